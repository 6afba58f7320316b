package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Monetary columns are stored as TEXT so decimal values survive the round
// trip without float drift.

type DebtorProfileModel struct {
	ID               int64           `gorm:"column:id;primaryKey"`
	DebtorID         string          `gorm:"column:debtor_id;uniqueIndex"`
	Currency         string          `gorm:"column:currency"`
	DisposableIncome decimal.Decimal `gorm:"column:disposable_income;type:TEXT"`
	RiskTolerance    string          `gorm:"column:risk_tolerance"`
	HighRisk         bool            `gorm:"column:high_risk"`
	CreatedAtUnix    int64           `gorm:"column:created_at"`
	UpdatedAtUnix    int64           `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
	UpdatedAt time.Time `gorm:"-"`
}

func (DebtorProfileModel) TableName() string { return "debtor_profiles" }

type ObligationModel struct {
	ID             int64           `gorm:"column:id;primaryKey"`
	ObligationID   string          `gorm:"column:obligation_id;uniqueIndex"`
	DebtorID       string          `gorm:"column:debtor_id;index"`
	CreditorID     string          `gorm:"column:creditor_id"`
	CreditorType   string          `gorm:"column:creditor_type"`
	Currency       string          `gorm:"column:currency"`
	Principal      decimal.Decimal `gorm:"column:principal;type:TEXT"`
	AnnualRate     decimal.Decimal `gorm:"column:annual_rate;type:TEXT"`
	ArrearsAmount  decimal.Decimal `gorm:"column:arrears_amount;type:TEXT"`
	ArrearsDays    int             `gorm:"column:arrears_days"`
	MinimumPayment decimal.Decimal `gorm:"column:minimum_payment;type:TEXT"`
	Seq            int             `gorm:"column:seq"`
	CreatedAtUnix  int64           `gorm:"column:created_at"`
	UpdatedAtUnix  int64           `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
	UpdatedAt time.Time `gorm:"-"`
}

func (ObligationModel) TableName() string { return "obligations" }

type NegotiationSessionModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	SessionID     string         `gorm:"column:session_id;uniqueIndex"`
	ObligationID  string         `gorm:"column:obligation_id;index"`
	State         string         `gorm:"column:state;index"`
	Rounds        int            `gorm:"column:rounds"`
	MaxRounds     int            `gorm:"column:max_rounds"`
	DeadlineUnix  int64          `gorm:"column:deadline"`
	History       datatypes.JSON `gorm:"column:proposal_history;type:TEXT"`
	CounterOffers datatypes.JSON `gorm:"column:counter_offers;type:TEXT"`
	Resolution    datatypes.JSON `gorm:"column:resolution;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
	UpdatedAt time.Time `gorm:"-"`
}

func (NegotiationSessionModel) TableName() string { return "negotiation_sessions" }

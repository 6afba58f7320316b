package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskTolerance biases candidate generation toward discounts or longer terms.
type RiskTolerance string

const (
	RiskLow      RiskTolerance = "low"
	RiskModerate RiskTolerance = "moderate"
	RiskHigh     RiskTolerance = "high"
)

// Obligation is a single debt owed to one creditor.
type Obligation struct {
	ID             string          `json:"id"`
	CreditorID     string          `json:"creditor_id"`
	CreditorType   string          `json:"creditor_type"` // bank | telecom | utility | retail | other
	Currency       string          `json:"currency"`
	Principal      decimal.Decimal `json:"principal"`
	AnnualRate     decimal.Decimal `json:"annual_rate"` // 0.18 == 18% a.a.
	ArrearsAmount  decimal.Decimal `json:"arrears_amount"`
	ArrearsDays    int             `json:"arrears_days"`
	MinimumPayment decimal.Decimal `json:"minimum_payment"`
	// Seq is the ingestion order inside the ledger, used as a ranking tie-breaker.
	Seq       int       `json:"seq,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DebtorProfile holds the debtor constraints and the ordered obligation list.
type DebtorProfile struct {
	DebtorID                string          `json:"debtor_id"`
	MonthlyDisposableIncome decimal.Decimal `json:"monthly_disposable_income"`
	RiskTolerance           RiskTolerance   `json:"risk_tolerance"`
	Obligations             []Obligation    `json:"obligations"`
}

// KnowledgeSnippet is a retrieved text fragment used to justify a proposal.
// Immutable once returned by the retriever.
type KnowledgeSnippet struct {
	SourceID  string  `json:"source_id"`
	Text      string  `json:"text"`
	Relevance float64 `json:"relevance"` // [0,1]
}

// ProposalKind restricts each proposal to a single restructuring path.
type ProposalKind string

const (
	KindRateReduction ProposalKind = "rate_reduction"
	KindInstallment   ProposalKind = "installment_plan"
	KindLumpSum       ProposalKind = "lump_sum_settlement"
)

// Proposal is a concrete restructuring or settlement offer for one obligation.
type Proposal struct {
	ID           string       `json:"id"`
	ObligationID string       `json:"obligation_id"`
	Kind         ProposalKind `json:"kind"`

	NewRate          *decimal.Decimal `json:"new_rate,omitempty"`
	NewPrincipal     *decimal.Decimal `json:"new_principal,omitempty"`
	InstallmentCount int              `json:"installment_count,omitempty"`
	MonthlyPayment   decimal.Decimal  `json:"monthly_payment"`
	DiscountPct      decimal.Decimal  `json:"discount_pct,omitempty"` // lump sum markdown, 0.4 == 40%
	SettlementAmount decimal.Decimal  `json:"settlement_amount,omitempty"`

	Rationale     []KnowledgeSnippet `json:"rationale,omitempty"`
	RationaleText string             `json:"rationale_text,omitempty"`

	InterestSaved   decimal.Decimal `json:"interest_saved"`
	BurdenReduction decimal.Decimal `json:"burden_reduction"`
	BenefitScore    float64         `json:"benefit_score"`

	TraceID   string    `json:"trace_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AcceptanceProxy is the mean relevance of the supporting snippets, 0 when empty.
func (p Proposal) AcceptanceProxy() float64 {
	if len(p.Rationale) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Rationale {
		sum += s.Relevance
	}
	return sum / float64(len(p.Rationale))
}

// RiskFlag is emitted by the ledger on overextension. Recorded, never blocking.
type RiskFlag struct {
	DebtorID  string          `json:"debtor_id"`
	Burden    decimal.Decimal `json:"burden"`
	Income    decimal.Decimal `json:"income"`
	Ratio     float64         `json:"ratio"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

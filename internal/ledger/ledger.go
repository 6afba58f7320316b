// Package ledger holds the debtor's obligations and disposable-income
// constraints. Obligations are read-only during proposal generation and are
// mutated only when a negotiation session resolves with acceptance.
package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"reclamai/internal/logger"
	"reclamai/internal/types"

	"github.com/shopspring/decimal"
)

// RiskFlagHook recebe o aviso de superendividamento (observable side effect).
type RiskFlagHook func(types.RiskFlag)

// Ledger is safe for concurrent use. One ledger per debtor, one currency per ledger.
type Ledger struct {
	mu sync.RWMutex

	debtorID         string
	currency         string
	disposableIncome decimal.Decimal
	riskTolerance    types.RiskTolerance

	obligations []types.Obligation
	index       map[string]int
	seq         int

	overextensionRatio decimal.Decimal
	highRisk           bool
	onRiskFlag         RiskFlagHook
}

// New builds a ledger from a debtor profile, validating every obligation.
func New(profile types.DebtorProfile, overextensionRatio float64, hook RiskFlagHook) (*Ledger, error) {
	if profile.MonthlyDisposableIncome.Sign() < 0 {
		return nil, types.NewValidationError("monthly_disposable_income", "must be >= 0")
	}
	if overextensionRatio < 1 {
		overextensionRatio = 1
	}
	l := &Ledger{
		debtorID:           profile.DebtorID,
		disposableIncome:   profile.MonthlyDisposableIncome,
		riskTolerance:      profile.RiskTolerance,
		index:              make(map[string]int),
		overextensionRatio: decimal.NewFromFloat(overextensionRatio),
		onRiskFlag:         hook,
	}
	for _, ob := range profile.Obligations {
		if err := l.AddObligation(ob); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddObligation validates and appends an obligation. The first obligation
// pins the ledger currency; later mismatches are rejected.
func (l *Ledger) AddObligation(ob types.Obligation) error {
	if err := validateObligation(ob); err != nil {
		return err
	}
	l.mu.Lock()
	cur := strings.ToUpper(strings.TrimSpace(ob.Currency))
	if l.currency == "" {
		l.currency = cur
	} else if l.currency != cur {
		l.mu.Unlock()
		return types.NewValidationError("currency",
			fmt.Sprintf("ledger holds %s, obligation is %s", l.currency, cur))
	}
	if _, dup := l.index[ob.ID]; dup {
		l.mu.Unlock()
		return types.NewValidationError("id", "duplicate obligation id "+ob.ID)
	}
	l.seq++
	ob.Seq = l.seq
	ob.Currency = cur
	ob.UpdatedAt = time.Now()
	l.index[ob.ID] = len(l.obligations)
	l.obligations = append(l.obligations, ob)
	l.mu.Unlock()

	l.checkOverextension()
	return nil
}

func validateObligation(ob types.Obligation) error {
	if strings.TrimSpace(ob.ID) == "" {
		return types.NewValidationError("id", "missing obligation id")
	}
	if strings.TrimSpace(ob.CreditorID) == "" {
		return types.NewValidationError("creditor_id", "missing creditor id")
	}
	if strings.TrimSpace(ob.Currency) == "" {
		return types.NewValidationError("currency", "missing currency")
	}
	if ob.Principal.Sign() < 0 {
		return types.NewValidationError("principal", "must be >= 0")
	}
	if ob.ArrearsDays < 0 {
		return types.NewValidationError("arrears_days", "must be >= 0")
	}
	if ob.ArrearsAmount.Sign() < 0 {
		return types.NewValidationError("arrears_amount", "must be >= 0")
	}
	if ob.AnnualRate.Sign() < 0 {
		return types.NewValidationError("annual_rate", "must be >= 0")
	}
	if ob.MinimumPayment.Sign() < 0 {
		return types.NewValidationError("minimum_payment", "must be >= 0")
	}
	return nil
}

// Obligation returns a copy of the obligation with the given id.
func (l *Ledger) Obligation(id string) (types.Obligation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return types.Obligation{}, false
	}
	return l.obligations[i], true
}

// Obligations returns a copy of the ordered obligation list.
func (l *Ledger) Obligations() []types.Obligation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Obligation(nil), l.obligations...)
}

// Profile reconstructs the debtor profile view of the ledger.
func (l *Ledger) Profile() types.DebtorProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return types.DebtorProfile{
		DebtorID:                l.debtorID,
		MonthlyDisposableIncome: l.disposableIncome,
		RiskTolerance:           l.riskTolerance,
		Obligations:             append([]types.Obligation(nil), l.obligations...),
	}
}

// DebtorID returns the ledger owner.
func (l *Ledger) DebtorID() string { return l.debtorID }

// Currency returns the ledger currency ("" while empty).
func (l *Ledger) Currency() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currency
}

// HighRisk reports whether the overextension flag has been raised.
func (l *Ledger) HighRisk() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highRisk
}

// TotalMonthlyBurden is the sum of minimum payments across all obligations.
func (l *Ledger) TotalMonthlyBurden() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalBurdenLocked()
}

func (l *Ledger) totalBurdenLocked() decimal.Decimal {
	total := decimal.Zero
	for _, ob := range l.obligations {
		total = total.Add(ob.MinimumPayment)
	}
	return total
}

// DisposableShare splits the disposable income across obligations in
// proportion to each minimum payment. A single obligation gets everything.
func (l *Ledger) DisposableShare(obligationID string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[obligationID]
	if !ok {
		return decimal.Zero
	}
	total := l.totalBurdenLocked()
	if total.Sign() == 0 || len(l.obligations) == 1 {
		return l.disposableIncome
	}
	return l.disposableIncome.Mul(l.obligations[i].MinimumPayment).DivRound(total, 8)
}

// checkOverextension raises the high-risk flag when the burden exceeds the
// disposable income by more than the configured ratio. Flagging never blocks.
func (l *Ledger) checkOverextension() {
	l.mu.Lock()
	burden := l.totalBurdenLocked()
	threshold := l.disposableIncome.Mul(l.overextensionRatio)
	flagged := burden.Cmp(threshold) > 0
	already := l.highRisk
	l.highRisk = l.highRisk || flagged
	hook := l.onRiskFlag
	income := l.disposableIncome
	debtor := l.debtorID
	l.mu.Unlock()

	if !flagged || already {
		return
	}
	ratio := 0.0
	if income.Sign() > 0 {
		r, _ := burden.DivRound(income, 4).Float64()
		ratio = r
	}
	flag := types.RiskFlag{
		DebtorID:  debtor,
		Burden:    burden,
		Income:    income,
		Ratio:     ratio,
		Reason:    "monthly burden exceeds overextension threshold",
		CreatedAt: time.Now(),
	}
	logger.Warnf("ledger: high-risk profile debtor=%s burden=%s income=%s ratio=%.2f",
		debtor, burden.StringFixed(2), income.StringFixed(2), ratio)
	if hook != nil {
		hook(flag)
	}
}

// ApplyAccepted overwrites the obligation terms with the accepted proposal.
// The swap happens under the write lock so concurrent readers never observe
// a partially updated obligation.
func (l *Ledger) ApplyAccepted(p types.Proposal) (types.Obligation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[p.ObligationID]
	if !ok {
		return types.Obligation{}, types.NewValidationError("obligation_id", "unknown obligation "+p.ObligationID)
	}
	ob := l.obligations[i]
	switch p.Kind {
	case types.KindRateReduction:
		if p.NewRate == nil {
			return types.Obligation{}, types.NewValidationError("new_rate", "rate reduction proposal without new_rate")
		}
		ob.AnnualRate = *p.NewRate
		ob.MinimumPayment = p.MonthlyPayment
	case types.KindInstallment:
		if p.InstallmentCount <= 0 {
			return types.Obligation{}, types.NewValidationError("installment_count", "installment proposal without count")
		}
		if p.NewRate != nil {
			ob.AnnualRate = *p.NewRate
		}
		ob.MinimumPayment = p.MonthlyPayment
		ob.Principal = ob.Principal.Add(ob.ArrearsAmount)
		ob.ArrearsAmount = decimal.Zero
		ob.ArrearsDays = 0
	case types.KindLumpSum:
		if p.SettlementAmount.Cmp(ob.Principal) > 0 {
			return types.Obligation{}, types.NewValidationError("settlement_amount", "settlement above principal")
		}
		ob.Principal = p.SettlementAmount
		ob.ArrearsAmount = decimal.Zero
		ob.ArrearsDays = 0
		ob.MinimumPayment = p.SettlementAmount
	default:
		return types.Obligation{}, types.NewValidationError("kind", "unknown proposal kind "+string(p.Kind))
	}
	ob.UpdatedAt = time.Now()
	l.obligations[i] = ob
	return ob, nil
}

package proposal

import (
	"sort"

	"reclamai/internal/config"
	"reclamai/internal/pkg/money"
	"reclamai/internal/types"

	"github.com/shopspring/decimal"
)

// ObligationSource resolves obligation facts and the income slice allotted
// to each obligation. *ledger.Ledger satisfies it.
type ObligationSource interface {
	Obligation(id string) (types.Obligation, bool)
	DisposableShare(obligationID string) decimal.Decimal
}

// Ranker orders candidate proposals by weighted debtor benefit. Scoring is a
// pure function of the proposal and its obligation; ranking the same inputs
// twice yields the same order.
type Ranker struct {
	weights config.ScoreWeights
}

func NewRanker(w config.ScoreWeights) *Ranker {
	return &Ranker{weights: w}
}

// Score computes the benefit score for one proposal against its obligation.
// Interest savings are normalized by total exposure and burden relief by the
// current minimum payment, so obligations of different sizes compete fairly.
func (r *Ranker) Score(ob types.Obligation, p types.Proposal) float64 {
	exposure := ob.Principal.Add(ob.ArrearsAmount)
	interest := money.Ratio(p.InterestSaved, exposure)
	burden := money.Ratio(p.BurdenReduction, ob.MinimumPayment)
	return r.weights.InterestSaved*interest +
		r.weights.BurdenRelief*burden +
		r.weights.Acceptance*p.AcceptanceProxy()
}

// Rank returns a new slice sorted highest-benefit first, with BenefitScore
// filled in. A candidate whose monthly payment fits the obligation's income
// share always outranks one whose payment exceeds it; interest the debtor
// cannot actually pay for is no benefit. Within a tier the score decides,
// ties break toward the lower monthly payment, then toward the obligation
// registered first. Inputs are never mutated.
func (r *Ranker) Rank(src ObligationSource, proposals []types.Proposal) []types.Proposal {
	out := make([]types.Proposal, len(proposals))
	copy(out, proposals)
	seq := make(map[string]int, len(out))
	affordable := make(map[string]bool, len(out))
	for i := range out {
		ob, ok := src.Obligation(out[i].ObligationID)
		if !ok {
			out[i].BenefitScore = 0
			continue
		}
		seq[ob.ID] = ob.Seq
		affordable[out[i].ID] = fitsShare(out[i], src.DisposableShare(ob.ID))
		out[i].BenefitScore = r.Score(ob, out[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if a, b := affordable[out[i].ID], affordable[out[j].ID]; a != b {
			return a
		}
		if out[i].BenefitScore != out[j].BenefitScore {
			return out[i].BenefitScore > out[j].BenefitScore
		}
		if c := out[i].MonthlyPayment.Cmp(out[j].MonthlyPayment); c != 0 {
			return c < 0
		}
		return seq[out[i].ObligationID] < seq[out[j].ObligationID]
	})
	return out
}

// fitsShare reports whether the proposal's monthly payment stays within the
// income share. A zero share means no income information, which never
// penalizes a candidate.
func fitsShare(p types.Proposal, share decimal.Decimal) bool {
	if share.Sign() <= 0 {
		return true
	}
	return p.MonthlyPayment.Cmp(share) <= 0
}

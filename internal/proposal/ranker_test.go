package proposal

import (
	"context"
	"testing"

	"reclamai/internal/config"
	"reclamai/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]types.Obligation

func (m mapSource) Obligation(id string) (types.Obligation, bool) {
	ob, ok := m[id]
	return ob, ok
}

// mapSource carries no income information, so every candidate ranks in the
// affordable tier.
func (m mapSource) DisposableShare(string) decimal.Decimal { return decimal.Zero }

// shareSource adds a fixed income share per obligation on top of mapSource.
type shareSource struct {
	mapSource
	shares map[string]decimal.Decimal
}

func (s shareSource) DisposableShare(id string) decimal.Decimal { return s.shares[id] }

func testWeights() config.ScoreWeights {
	return config.ScoreWeights{InterestSaved: 0.5, BurdenRelief: 0.3, Acceptance: 0.2}
}

func TestRankOrdersByBenefit(t *testing.T) {
	ob := testObligation()
	src := mapSource{ob.ID: ob}

	weak := types.Proposal{
		ID: "p-weak", ObligationID: ob.ID, Kind: types.KindInstallment,
		MonthlyPayment:  decimal.NewFromInt(290),
		InterestSaved:   decimal.Zero,
		BurdenReduction: decimal.NewFromInt(10),
	}
	strong := types.Proposal{
		ID: "p-strong", ObligationID: ob.ID, Kind: types.KindLumpSum,
		MonthlyPayment:  decimal.Zero,
		InterestSaved:   decimal.NewFromInt(3000),
		BurdenReduction: decimal.NewFromInt(300),
	}

	r := NewRanker(testWeights())
	out := r.Rank(src, []types.Proposal{weak, strong})
	require.Len(t, out, 2)
	assert.Equal(t, "p-strong", out[0].ID)
	assert.Greater(t, out[0].BenefitScore, out[1].BenefitScore)
}

func TestRankTieBreaksOnPaymentThenSeq(t *testing.T) {
	first := testObligation()
	first.Seq = 1
	second := testObligation()
	second.ID = "ob-2"
	second.Seq = 2
	src := mapSource{first.ID: first, second.ID: second}

	// Identical economics, different payments.
	a := types.Proposal{
		ID: "p-a", ObligationID: first.ID, Kind: types.KindInstallment,
		MonthlyPayment:  decimal.NewFromInt(450),
		InterestSaved:   decimal.NewFromInt(100),
		BurdenReduction: decimal.NewFromInt(50),
	}
	b := a
	b.ID = "p-b"
	b.MonthlyPayment = decimal.NewFromInt(400)

	r := NewRanker(testWeights())
	out := r.Rank(src, []types.Proposal{a, b})
	assert.Equal(t, "p-b", out[0].ID, "lower payment wins the tie")

	// Identical everything across two obligations: earlier ledger entry wins.
	c := a
	c.ID = "p-c"
	d := a
	d.ID = "p-d"
	d.ObligationID = second.ID
	out = r.Rank(src, []types.Proposal{d, c})
	assert.Equal(t, "p-c", out[0].ID)
	assert.Equal(t, "p-d", out[1].ID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	ob := testObligation()
	src := mapSource{ob.ID: ob}
	in := []types.Proposal{{
		ID: "p-1", ObligationID: ob.ID, Kind: types.KindInstallment,
		MonthlyPayment:  decimal.NewFromInt(400),
		InterestSaved:   decimal.NewFromInt(100),
		BurdenReduction: decimal.NewFromInt(50),
	}}

	r := NewRanker(testWeights())
	out := r.Rank(src, in)
	require.Len(t, out, 1)
	assert.Zero(t, in[0].BenefitScore, "caller slice must stay untouched")
	assert.NotZero(t, out[0].BenefitScore)
}

func TestRankUnknownObligationScoresZero(t *testing.T) {
	r := NewRanker(testWeights())
	out := r.Rank(mapSource{}, []types.Proposal{{
		ID: "p-x", ObligationID: "ghost", Kind: types.KindInstallment,
		InterestSaved: decimal.NewFromInt(9999),
	}})
	require.Len(t, out, 1)
	assert.Zero(t, out[0].BenefitScore)
}

func TestScoreUsesAcceptanceProxy(t *testing.T) {
	ob := testObligation()
	base := types.Proposal{ObligationID: ob.ID, Kind: types.KindInstallment}
	backed := base
	backed.Rationale = []types.KnowledgeSnippet{{SourceID: "faq:1", Relevance: 0.8}}

	r := NewRanker(testWeights())
	assert.Greater(t, r.Score(ob, backed), r.Score(ob, base))
}

func TestRankAffordablePlanBeatsUnaffordableRateCut(t *testing.T) {
	// With 500 of disposable income the rate-reduction payment lands just
	// above the share while the installment plan fits under it. The plan
	// must come first regardless of the rate cut's interest savings.
	ob := testObligation()
	share := decimal.NewFromInt(500)

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	candidates, err := g.Generate(context.Background(), testProfile(), ob, GenerateOptions{Share: share})
	require.NoError(t, err)

	kinds := make(map[types.ProposalKind]types.Proposal, len(candidates))
	for _, p := range candidates {
		kinds[p.Kind] = p
	}
	rate, ok := kinds[types.KindRateReduction]
	require.True(t, ok)
	require.True(t, rate.MonthlyPayment.GreaterThan(share),
		"scenario needs an unaffordable rate cut, got payment %s", rate.MonthlyPayment)
	_, ok = kinds[types.KindLumpSum]
	require.False(t, ok, "45 arrears days must not yield a settlement")

	src := shareSource{
		mapSource: mapSource{ob.ID: ob},
		shares:    map[string]decimal.Decimal{ob.ID: share},
	}
	ranked := NewRanker(testWeights()).Rank(src, candidates)
	require.NotEmpty(t, ranked)
	assert.Equal(t, types.KindInstallment, ranked[0].Kind)
	assert.True(t, ranked[0].MonthlyPayment.LessThanOrEqual(share))
}

func TestRankStableAcrossRuns(t *testing.T) {
	ob := testObligation()
	src := mapSource{ob.ID: ob}
	in := []types.Proposal{
		{ID: "p-1", ObligationID: ob.ID, Kind: types.KindInstallment, MonthlyPayment: decimal.NewFromInt(400), BurdenReduction: decimal.NewFromInt(50)},
		{ID: "p-2", ObligationID: ob.ID, Kind: types.KindRateReduction, MonthlyPayment: decimal.NewFromInt(400), BurdenReduction: decimal.NewFromInt(50)},
	}
	r := NewRanker(testWeights())
	first := r.Rank(src, in)
	for i := 0; i < 5; i++ {
		again := r.Rank(src, in)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].ID, again[j].ID)
		}
	}
}

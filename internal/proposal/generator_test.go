package proposal

import (
	"context"
	"errors"
	"testing"

	"reclamai/internal/config"
	"reclamai/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	snippets []types.KnowledgeSnippet
	err      error
	lastTopK int
}

func (s *stubRetriever) Search(_ context.Context, _ string, topK int) ([]types.KnowledgeSnippet, error) {
	s.lastTopK = topK
	return s.snippets, s.err
}

type stubPhraser struct {
	text string
	err  error
}

func (s *stubPhraser) Phrase(context.Context, types.Obligation, types.Proposal) (string, error) {
	return s.text, s.err
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		ChronicDefaultDays:       180,
		OverextensionRatio:       1.25,
		MaxMarkdownPct:           0.40,
		SettlementMinArrearsDays: 90,
		MaxInstallmentHorizon:    60,
		MaxNegotiationRounds:     5,
		RateReductionFactor:      0.60,
		MinAnnualRate:            0.02,
		ReliefTermMonths:         24,
		TopKSnippets:             5,
		Weights: config.ScoreWeights{
			InterestSaved: 0.5,
			BurdenRelief:  0.3,
			Acceptance:    0.2,
		},
	}
}

func testObligation() types.Obligation {
	return types.Obligation{
		ID:             "ob-1",
		CreditorID:     "Banco Azul",
		CreditorType:   "bank",
		Currency:       "BRL",
		Principal:      decimal.NewFromInt(10000),
		AnnualRate:     decimal.NewFromFloat(0.18),
		ArrearsAmount:  decimal.NewFromInt(900),
		ArrearsDays:    45,
		MinimumPayment: decimal.NewFromInt(300),
	}
}

func testProfile() types.DebtorProfile {
	return types.DebtorProfile{
		DebtorID:                "d-1",
		MonthlyDisposableIncome: decimal.NewFromInt(500),
		RiskTolerance:           types.RiskModerate,
	}
}

func TestGenerateInstallmentFitsIncomeShare(t *testing.T) {
	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share:   decimal.NewFromInt(500),
		TraceID: "t-1",
	})
	require.NoError(t, err)

	var plan *types.Proposal
	for i := range out {
		if out[i].Kind == types.KindInstallment {
			plan = &out[i]
			break
		}
	}
	require.NotNil(t, plan, "expected an installment plan candidate")
	assert.True(t, plan.MonthlyPayment.LessThanOrEqual(decimal.NewFromInt(500)),
		"payment %s exceeds income share", plan.MonthlyPayment)
	assert.LessOrEqual(t, plan.InstallmentCount, 60)
	assert.Positive(t, plan.InstallmentCount)
	assert.Equal(t, "t-1", plan.TraceID)
	assert.NotEmpty(t, plan.RationaleText)

	// The shortest plan must be the one returned: one month fewer should
	// push the payment above the share.
	if plan.InstallmentCount > 1 {
		_, err := g.installmentPlan(testObligation(), GenerateOptions{
			Share:       decimal.NewFromInt(500),
			Constraints: &Constraints{MaxInstallments: plan.InstallmentCount - 1},
		})
		assert.ErrorIs(t, err, types.ErrInfeasibleTerm)
	}
}

func TestGenerateRateReductionLowersRate(t *testing.T) {
	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	var rate *types.Proposal
	for i := range out {
		if out[i].Kind == types.KindRateReduction {
			rate = &out[i]
			break
		}
	}
	require.NotNil(t, rate)
	require.NotNil(t, rate.NewRate)
	assert.True(t, rate.NewRate.LessThan(decimal.NewFromFloat(0.18)),
		"new rate %s not below current", rate.NewRate)
	assert.True(t, rate.InterestSaved.Sign() > 0)
}

func TestGenerateChronicDefaultSkipsRateRelief(t *testing.T) {
	ob := testObligation()
	ob.ArrearsDays = 200

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), ob, GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	var lump bool
	for _, p := range out {
		assert.NotEqual(t, types.KindRateReduction, p.Kind,
			"chronic default must never receive rate relief")
		if p.Kind == types.KindLumpSum {
			lump = true
		}
	}
	assert.True(t, lump, "chronic default should yield a settlement candidate")
}

func TestGenerateLumpSumRequiresArrears(t *testing.T) {
	ob := testObligation()
	ob.ArrearsAmount = decimal.Zero
	ob.ArrearsDays = 0

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), ob, GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	for _, p := range out {
		assert.NotEqual(t, types.KindLumpSum, p.Kind)
	}
}

func TestGenerateLumpSumScalesWithTolerance(t *testing.T) {
	ob := testObligation()
	ob.ArrearsDays = 120

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})

	settle := func(tol types.RiskTolerance) decimal.Decimal {
		p, err := g.lumpSum(ob, tol, GenerateOptions{})
		require.NoError(t, err)
		return p.SettlementAmount
	}

	low := settle(types.RiskLow)
	mod := settle(types.RiskModerate)
	high := settle(types.RiskHigh)
	assert.True(t, high.LessThan(mod), "high tolerance should settle lower: %s vs %s", high, mod)
	assert.True(t, mod.LessThan(low), "moderate tolerance should settle lower than low: %s vs %s", mod, low)
	assert.True(t, high.LessThan(ob.Principal))
}

func TestGenerateRetrievalErrorDegradesToEmptyRationale(t *testing.T) {
	r := &stubRetriever{err: types.ErrRetrievalUnavailable}
	g := NewGenerator(GeneratorParams{Retriever: r, Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err, "retrieval outage must not fail generation")
	require.NotEmpty(t, out)
	for _, p := range out {
		assert.Empty(t, p.Rationale)
		assert.NotEmpty(t, p.RationaleText, "template rationale still expected")
	}
	assert.Equal(t, 5, r.lastTopK)
}

func TestGenerateAttachesMatchingSnippets(t *testing.T) {
	r := &stubRetriever{snippets: []types.KnowledgeSnippet{
		{SourceID: "faq:1", Text: "Parcelamento em ate 60 vezes com entrada reduzida.", Relevance: 0.9},
		{SourceID: "faq:2", Text: "Nada relacionado ao tema em questao.", Relevance: 0.4},
	}}
	g := NewGenerator(GeneratorParams{Retriever: r, Policy: testPolicy()})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	for _, p := range out {
		if p.Kind != types.KindInstallment {
			continue
		}
		require.Len(t, p.Rationale, 1)
		assert.Equal(t, "faq:1", p.Rationale[0].SourceID)
	}
}

func TestGenerateNoFeasibleProposal(t *testing.T) {
	ob := testObligation()
	ob.AnnualRate = decimal.NewFromFloat(0.01) // below the rate floor, no room
	ob.ArrearsAmount = decimal.Zero
	ob.ArrearsDays = 0

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	_, err := g.Generate(context.Background(), testProfile(), ob, GenerateOptions{
		Share: decimal.Zero,
	})
	assert.ErrorIs(t, err, types.ErrNoFeasibleProposal)
}

func TestGenerateHonorsCounterConstraints(t *testing.T) {
	g := NewGenerator(GeneratorParams{Policy: testPolicy()})

	counter := types.Proposal{Kind: types.KindInstallment, InstallmentCount: 12}
	c := ConstraintsFromCounter(counter)
	require.Equal(t, 12, c.MaxInstallments)

	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share:       decimal.NewFromInt(2000),
		Constraints: &c,
	})
	require.NoError(t, err)
	for _, p := range out {
		if p.Kind == types.KindInstallment {
			assert.LessOrEqual(t, p.InstallmentCount, 12)
		}
	}
}

func TestConstraintsFromCounterRate(t *testing.T) {
	floor := decimal.NewFromFloat(0.15)
	c := ConstraintsFromCounter(types.Proposal{Kind: types.KindRateReduction, NewRate: &floor})
	require.NotNil(t, c.MinAnnualRate)

	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	p, err := g.rateReduction(testObligation(), GenerateOptions{Constraints: &c})
	require.NoError(t, err)
	assert.True(t, p.NewRate.GreaterThanOrEqual(floor))
	assert.True(t, p.NewRate.LessThan(decimal.NewFromFloat(0.18)))
}

func TestPhraserTimeoutFallsBackToTemplate(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Policy:  testPolicy(),
		Phraser: &stubPhraser{err: context.DeadlineExceeded},
	})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	for _, p := range out {
		assert.Equal(t, TemplateRationale(testObligation(), p), p.RationaleText)
	}
}

func TestPhraserTextPreferred(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Policy:  testPolicy(),
		Phraser: &stubPhraser{text: "Prezado credor, segue proposta."},
	})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	for _, p := range out {
		assert.Equal(t, "Prezado credor, segue proposta.", p.RationaleText)
	}
}

func TestGenerateDeterministicAcrossRuns(t *testing.T) {
	g := NewGenerator(GeneratorParams{Policy: testPolicy()})
	run := func() []types.Proposal {
		out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
			Share: decimal.NewFromInt(500),
		})
		require.NoError(t, err)
		return out
	}
	a, b := run(), run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Kind, b[i].Kind)
		assert.True(t, a[i].MonthlyPayment.Equal(b[i].MonthlyPayment))
		assert.Equal(t, a[i].InstallmentCount, b[i].InstallmentCount)
	}
}

var errBoom = errors.New("boom")

func TestPhraserErrorFallsBackToTemplate(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Policy:  testPolicy(),
		Phraser: &stubPhraser{err: errBoom},
	})
	out, err := g.Generate(context.Background(), testProfile(), testObligation(), GenerateOptions{
		Share: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	for _, p := range out {
		assert.NotEmpty(t, p.RationaleText)
	}
}

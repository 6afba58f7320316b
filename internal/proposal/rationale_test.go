package proposal

import (
	"strings"
	"testing"

	"reclamai/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSnippetsByKind(t *testing.T) {
	snippets := []types.KnowledgeSnippet{
		{SourceID: "faq:juros", Text: "Revisão de juros abusivos pode ser solicitada judicialmente.", Relevance: 0.9},
		{SourceID: "faq:parcela", Text: "O parcelamento alonga o prazo e reduz a parcela mensal.", Relevance: 0.8},
		{SourceID: "faq:desconto", Text: "Quitação à vista costuma render desconto expressivo.", Relevance: 0.7},
	}

	rate := matchSnippets(snippets, "", types.KindRateReduction)
	require.Len(t, rate, 1)
	assert.Equal(t, "faq:juros", rate[0].SourceID)

	plan := matchSnippets(snippets, "", types.KindInstallment)
	require.Len(t, plan, 1)
	assert.Equal(t, "faq:parcela", plan[0].SourceID)

	lump := matchSnippets(snippets, "", types.KindLumpSum)
	require.Len(t, lump, 1)
	assert.Equal(t, "faq:desconto", lump[0].SourceID)
}

func TestMatchSnippetsByCreditorType(t *testing.T) {
	snippets := []types.KnowledgeSnippet{
		{SourceID: "faq:banco", Text: "Dívidas bancárias seguem regras do Banco Central.", Relevance: 0.6},
		{SourceID: "faq:outro", Text: "Conteúdo sem relação com o caso.", Relevance: 0.5},
	}
	out := matchSnippets(snippets, "bank", types.KindRateReduction)
	require.Len(t, out, 1)
	assert.Equal(t, "faq:banco", out[0].SourceID)
}

func TestMatchSnippetsPreservesOrder(t *testing.T) {
	snippets := []types.KnowledgeSnippet{
		{SourceID: "a", Text: "parcelamento", Relevance: 0.9},
		{SourceID: "b", Text: "parcela mensal", Relevance: 0.5},
	}
	out := matchSnippets(snippets, "", types.KindInstallment)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SourceID)
	assert.Equal(t, "b", out[1].SourceID)
}

func TestMatchSnippetsEmpty(t *testing.T) {
	assert.Nil(t, matchSnippets(nil, "bank", types.KindInstallment))
}

func TestTemplateRationalePerKind(t *testing.T) {
	ob := testObligation()
	newRate := decimal.NewFromFloat(0.108)

	cases := []struct {
		name string
		p    types.Proposal
		want string
	}{
		{
			name: "rate",
			p:    types.Proposal{Kind: types.KindRateReduction, NewRate: &newRate, MonthlyPayment: decimal.NewFromInt(480)},
			want: "10.80%",
		},
		{
			name: "installment",
			p:    types.Proposal{Kind: types.KindInstallment, InstallmentCount: 30, MonthlyPayment: decimal.NewFromFloat(420.55)},
			want: "30 parcelas",
		},
		{
			name: "lumpsum",
			p: types.Proposal{
				Kind:             types.KindLumpSum,
				SettlementAmount: decimal.NewFromInt(7000),
				DiscountPct:      decimal.NewFromFloat(0.30),
			},
			want: "30%",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := TemplateRationale(ob, tc.p)
			assert.Contains(t, text, tc.want)
			assert.Contains(t, text, ob.CreditorID)
		})
	}
}

func TestTemplateRationaleUnknownCreditor(t *testing.T) {
	ob := testObligation()
	ob.CreditorID = ""
	text := TemplateRationale(ob, types.Proposal{Kind: types.KindInstallment, InstallmentCount: 12, MonthlyPayment: decimal.NewFromInt(100)})
	assert.Contains(t, text, "o credor")
}

func TestBuildQueryShapes(t *testing.T) {
	ob := testObligation()
	q := BuildQuery(ob, types.RiskHigh, 180)
	assert.Contains(t, q, "renegociacao divida")
	assert.Contains(t, q, "banco")
	assert.Contains(t, q, "atraso moderado")
	assert.Contains(t, q, "quitacao a vista")

	ob.ArrearsDays = 365
	ob.CreditorType = "fintech"
	q = BuildQuery(ob, types.RiskLow, 180)
	assert.Contains(t, q, "fintech")
	assert.Contains(t, q, "inadimplencia cronica")
	assert.Contains(t, q, "parcelamento prazo")

	assert.Equal(t, q, BuildQuery(ob, types.RiskLow, 180), "query must be deterministic")
}

func TestFoldText(t *testing.T) {
	assert.Equal(t, "quitacao a vista", foldText("Quitação à Vista"))
	assert.True(t, strings.Contains(foldText("Revisão de Juros"), "revisao"))
}

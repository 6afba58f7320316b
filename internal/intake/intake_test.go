package intake

import (
	"context"
	"errors"
	"testing"

	"reclamai/internal/config"
	"reclamai/internal/gateway/provider"
	"reclamai/internal/guardrail"
	"reclamai/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestMergeNeverOverwrites(t *testing.T) {
	snap := &CaseSnapshot{CaseID: "c-1"}
	snap.Merge(CaseSnapshot{NumDebts: 2, Creditors: "Banco Azul"})
	snap.Merge(CaseSnapshot{NumDebts: 5, Creditors: "Loja X", ApproxAmounts: "R$ 3.000"})

	assert.Equal(t, 2, snap.NumDebts, "first captured value must win")
	assert.Equal(t, "Banco Azul", snap.Creditors)
	assert.Equal(t, "R$ 3.000", snap.ApproxAmounts, "empty fields still fill in")
}

func TestMergeBoolFields(t *testing.T) {
	snap := &CaseSnapshot{}
	snap.Merge(CaseSnapshot{PriorNegotiation: boolPtr(false)})
	snap.Merge(CaseSnapshot{PriorNegotiation: boolPtr(true), AcceptsNegativation: boolPtr(true)})

	require.NotNil(t, snap.PriorNegotiation)
	assert.False(t, *snap.PriorNegotiation, "an explicit 'no' is a captured fact")
	require.NotNil(t, snap.AcceptsNegativation)
	assert.True(t, *snap.AcceptsNegativation)
}

func TestMissingFieldsAndReady(t *testing.T) {
	snap := &CaseSnapshot{}
	assert.Len(t, snap.MissingFields(), 6)
	assert.False(t, snap.Ready())

	snap.Merge(CaseSnapshot{
		NumDebts:            1,
		Creditors:           "Operadora Sul",
		ApproxAmounts:       "R$ 1.200",
		ArrearsSince:        "3 meses",
		PriorNegotiation:    boolPtr(false),
		AcceptsNegativation: boolPtr(true),
	})
	assert.Empty(t, snap.MissingFields())
	assert.True(t, snap.Ready())
}

func TestHeuristicExtract(t *testing.T) {
	text := "Tenho 3 dívidas, devo R$ 2.500 ao banco e estou em atraso há 4 meses. Nunca tentei negociar."
	snap := heuristicExtract(text)

	assert.Equal(t, 3, snap.NumDebts)
	assert.Contains(t, snap.ApproxAmounts, "R$ 2.500")
	assert.Equal(t, "4 meses", snap.ArrearsSince)
	require.NotNil(t, snap.PriorNegotiation)
	assert.False(t, *snap.PriorNegotiation)
	assert.Nil(t, snap.AcceptsNegativation, "unstated facts stay unset")
}

func TestHeuristicExtractSingleDebt(t *testing.T) {
	snap := heuristicExtract("Tenho uma dívida com a loja, aceito ficar negativado enquanto negociamos.")
	assert.Equal(t, 1, snap.NumDebts)
	require.NotNil(t, snap.AcceptsNegativation)
	assert.True(t, *snap.AcceptsNegativation)
}

type fakeProvider struct {
	out string
	err error
}

func (f *fakeProvider) ID() string    { return "fake" }
func (f *fakeProvider) Enabled() bool { return true }
func (f *fakeProvider) Call(context.Context, provider.ChatPayload) (string, error) {
	return f.out, f.err
}

func TestExtractorUsesValidModelOutput(t *testing.T) {
	e := NewExtractor(&fakeProvider{out: "```json\n{\"num_dividas\": 2, \"credores\": \"Banco Azul, Telecom Sul\", \"negociacao_previa\": true}\n```"})
	snap := e.Extract(context.Background(), "qualquer texto sobre dívida")

	assert.Equal(t, 2, snap.NumDebts)
	assert.Equal(t, "Banco Azul, Telecom Sul", snap.Creditors)
	require.NotNil(t, snap.PriorNegotiation)
	assert.True(t, *snap.PriorNegotiation)
}

func TestExtractorRejectsSchemaViolation(t *testing.T) {
	// num_dividas as string violates the schema; the heuristic path must run.
	e := NewExtractor(&fakeProvider{out: `{"num_dividas": "muitas"}`})
	snap := e.Extract(context.Background(), "Tenho 2 dívidas em atraso há 6 meses")
	assert.Equal(t, 2, snap.NumDebts, "fallback heuristics expected")
}

func TestExtractorFallsBackOnModelError(t *testing.T) {
	e := NewExtractor(&fakeProvider{err: errors.New("upstream down")})
	snap := e.Extract(context.Background(), "Devo R$ 900 há 2 meses")
	assert.Contains(t, snap.ApproxAmounts, "R$ 900")
}

func newTestService() *Service {
	checker := guardrail.NewChecker(config.GuardrailConfig{MaxInputChars: 1000, MinKeywordHits: 1})
	return NewService(checker, nil, NewExtractor(nil), nil)
}

func TestHandleMessageAccumulates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	r1, err := svc.HandleMessage(ctx, "case-1", "Tenho 2 dívidas em atraso há 5 meses, devo R$ 4.000.")
	require.NoError(t, err)
	assert.False(t, r1.Ready)
	assert.Contains(t, r1.Message, "ainda preciso saber")

	r2, err := svc.HandleMessage(ctx, "case-1", "As dívidas são com banco e operadora. Nunca tentei negociar e aceito ficar negativado por enquanto.")
	require.NoError(t, err)
	assert.Equal(t, 2, r2.Snapshot.NumDebts, "first turn's facts survive")
	require.NotNil(t, r2.Snapshot.PriorNegotiation)
	assert.False(t, *r2.Snapshot.PriorNegotiation)
}

func TestHandleMessageGuardrail(t *testing.T) {
	svc := newTestService()
	_, err := svc.HandleMessage(context.Background(), "case-1", "Qual o resultado do jogo de ontem?")
	assert.ErrorIs(t, err, types.ErrInputRejected)

	_, ok := svc.Snapshot("case-1")
	assert.False(t, ok, "rejected input must not open a case")
}

func TestHandleMessageModerationRejects(t *testing.T) {
	checker := guardrail.NewChecker(config.GuardrailConfig{MaxInputChars: 1000, MinKeywordHits: 1})
	moderator := guardrail.NewModerator(&fakeProvider{out: `{"toxicidade": 0.95}`}, 0.75)
	svc := NewService(checker, moderator, NewExtractor(nil), nil)

	_, err := svc.HandleMessage(context.Background(), "case-1", "Dívida? Seu banco é uma quadrilha e você é um inútil.")
	assert.ErrorIs(t, err, types.ErrInputRejected)

	_, ok := svc.Snapshot("case-1")
	assert.False(t, ok, "moderated-out input must not open a case")
}

func TestHandleMessageRequiresCaseID(t *testing.T) {
	svc := newTestService()
	_, err := svc.HandleMessage(context.Background(), "", "dívida")
	assert.ErrorIs(t, err, types.ErrValidation)
}

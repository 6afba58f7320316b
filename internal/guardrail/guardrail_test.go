package guardrail

import (
	"strings"
	"testing"

	"reclamai/internal/config"
	"reclamai/internal/types"

	"github.com/stretchr/testify/assert"
)

func newChecker() *Checker {
	return NewChecker(config.GuardrailConfig{MaxInputChars: 1000, MinKeywordHits: 1})
}

func TestCheckAcceptsOnTopicMessage(t *testing.T) {
	c := newChecker()
	assert.NoError(t, c.Check("Tenho uma dívida de cartão atrasada e quero renegociar com o banco."))
}

func TestCheckAcceptsAccentedKeywords(t *testing.T) {
	c := newChecker()
	assert.NoError(t, c.Check("Como funciona a negociação de um empréstimo em atraso?"))
}

func TestCheckRejectsEmpty(t *testing.T) {
	c := newChecker()
	assert.ErrorIs(t, c.Check("   "), types.ErrInputRejected)
}

func TestCheckRejectsOversized(t *testing.T) {
	c := NewChecker(config.GuardrailConfig{MaxInputChars: 50})
	msg := "minha dívida " + strings.Repeat("explicando a situacao toda ", 10)
	assert.ErrorIs(t, c.Check(msg), types.ErrInputRejected)
}

func TestCheckRejectsSpamRun(t *testing.T) {
	c := newChecker()
	assert.ErrorIs(t, c.Check("divida "+strings.Repeat("k", 40)), types.ErrInputRejected)
}

func TestCheckRejectsNonLetterNoise(t *testing.T) {
	c := newChecker()
	assert.ErrorIs(t, c.Check("!!!???!!!???!!!???!!!???!!!???"), types.ErrInputRejected)
}

func TestCheckRejectsOffTopic(t *testing.T) {
	c := newChecker()
	err := c.Check("Qual a previsao do tempo para amanha em Salvador?")
	assert.ErrorIs(t, err, types.ErrInputRejected)
	assert.Contains(t, err.Error(), "fora do escopo")
}

func TestCheckCustomKeywordsAndHits(t *testing.T) {
	c := NewChecker(config.GuardrailConfig{
		ScopeKeywords:  []string{"boleto", "fatura"},
		MinKeywordHits: 2,
	})
	assert.ErrorIs(t, c.Check("Recebi um boleto ontem."), types.ErrInputRejected)
	assert.NoError(t, c.Check("Recebi um boleto e a fatura veio errada."))
}

// Package guardrail screens free-text intake before it reaches the engine:
// oversized or spammy messages and off-topic questions are rejected up
// front with a reason the transport layer can relay verbatim.
package guardrail

import (
	"fmt"
	"strings"
	"unicode"

	"reclamai/internal/config"
	"reclamai/internal/types"
)

type Checker struct {
	maxChars    int
	minHits     int
	keywords    []string
	spamRunSize int
}

func NewChecker(cfg config.GuardrailConfig) *Checker {
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = 1000
	}
	minHits := cfg.MinKeywordHits
	if minHits <= 0 {
		minHits = 1
	}
	keywords := cfg.ScopeKeywords
	if len(keywords) == 0 {
		keywords = config.DefaultScopeKeywords()
	}
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = fold(strings.TrimSpace(k))
		if k != "" {
			folded = append(folded, k)
		}
	}
	return &Checker{
		maxChars:    maxChars,
		minHits:     minHits,
		keywords:    folded,
		spamRunSize: 12,
	}
}

// Check validates one intake message. Every failure wraps ErrInputRejected.
func (c *Checker) Check(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: mensagem vazia", types.ErrInputRejected)
	}
	if n := len([]rune(trimmed)); n > c.maxChars {
		return fmt.Errorf("%w: mensagem com %d caracteres excede o limite de %d", types.ErrInputRejected, n, c.maxChars)
	}
	if looksLikeSpam(trimmed, c.spamRunSize) {
		return fmt.Errorf("%w: mensagem repetitiva demais", types.ErrInputRejected)
	}
	if !c.inScope(trimmed) {
		return fmt.Errorf("%w: assunto fora do escopo de renegociacao de dividas", types.ErrInputRejected)
	}
	return nil
}

func (c *Checker) inScope(text string) bool {
	folded := fold(text)
	hits := 0
	for _, k := range c.keywords {
		if strings.Contains(folded, k) {
			hits++
			if hits >= c.minHits {
				return true
			}
		}
	}
	return false
}

// looksLikeSpam flags long runs of one repeated character and messages with
// almost no letters.
func looksLikeSpam(text string, runSize int) bool {
	var prev rune
	run := 0
	letters := 0
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			prev = 0
			run = 0
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
		if r == prev {
			run++
			if run >= runSize {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	if total >= 20 && letters*4 < total {
		return true
	}
	return false
}

func fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'á', 'à', 'ã', 'â':
			r = 'a'
		case 'é', 'ê':
			r = 'e'
		case 'í':
			r = 'i'
		case 'ó', 'ô', 'õ':
			r = 'o'
		case 'ú', 'ü':
			r = 'u'
		case 'ç':
			r = 'c'
		}
		b.WriteRune(r)
	}
	return b.String()
}

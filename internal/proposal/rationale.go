package proposal

import (
	"fmt"
	"strings"

	"reclamai/internal/types"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Keyword families that tie a snippet to a proposal kind. Matching runs on
// folded text, so the lists stay accent-free.
var kindTerms = map[types.ProposalKind][]string{
	types.KindRateReduction: {"juros", "taxa", "reducao", "revisao"},
	types.KindInstallment:   {"parcel", "prazo", "mensal", "fluxo"},
	types.KindLumpSum:       {"desconto", "quita", "a vista", "abatimento"},
}

// matchSnippets keeps the snippets whose text mentions either the creditor
// type vocabulary or the term family of the proposal kind. Order and scores
// from retrieval are preserved.
func matchSnippets(snippets []types.KnowledgeSnippet, creditorType string, kind types.ProposalKind) []types.KnowledgeSnippet {
	if len(snippets) == 0 {
		return nil
	}
	terms := append([]string(nil), kindTerms[kind]...)
	ct := strings.ToLower(strings.TrimSpace(creditorType))
	if extra, ok := creditorTypeTerms[ct]; ok {
		terms = append(terms, extra...)
	} else if ct != "" {
		terms = append(terms, ct)
	}
	var out []types.KnowledgeSnippet
	for _, s := range snippets {
		text := foldText(s.Text)
		for _, t := range terms {
			if strings.Contains(text, t) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func foldText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		b.WriteRune(deaccentRune(r))
	}
	return b.String()
}

func deaccentRune(r rune) rune {
	switch r {
	case 'á', 'à', 'ã', 'â':
		return 'a'
	case 'é', 'ê':
		return 'e'
	case 'í':
		return 'i'
	case 'ó', 'ô', 'õ':
		return 'o'
	case 'ú', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	}
	return r
}

// TemplateRationale renders the deterministic fallback text used whenever
// the phrasing backend is disabled or degraded.
func TemplateRationale(ob types.Obligation, p types.Proposal) string {
	creditor := ob.CreditorID
	if creditor == "" {
		creditor = "o credor"
	}
	switch p.Kind {
	case types.KindRateReduction:
		rate := "taxa reduzida"
		if p.NewRate != nil {
			rate = fmt.Sprintf("taxa anual de %s%%", p.NewRate.Mul(hundred).StringFixed(2))
		}
		return fmt.Sprintf(
			"Proposta de revisao de juros junto a %s: %s com parcela mensal estimada de %s %s, preservando o saldo devedor e reduzindo o custo total da divida.",
			creditor, rate, ob.Currency, p.MonthlyPayment.StringFixed(2))
	case types.KindInstallment:
		return fmt.Sprintf(
			"Proposta de parcelamento junto a %s: %d parcelas mensais de %s %s, compativeis com a renda disponivel declarada, com quitacao integral do saldo e dos atrasados ao final do plano.",
			creditor, p.InstallmentCount, ob.Currency, p.MonthlyPayment.StringFixed(2))
	case types.KindLumpSum:
		return fmt.Sprintf(
			"Proposta de quitacao a vista junto a %s: pagamento unico de %s %s com desconto de %s%% sobre o saldo devedor, encerrando a divida e os encargos de mora.",
			creditor, ob.Currency, p.SettlementAmount.StringFixed(2), p.DiscountPct.Mul(hundred).StringFixed(0))
	}
	return fmt.Sprintf("Proposta de renegociacao junto a %s.", creditor)
}

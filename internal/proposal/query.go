package proposal

import (
	"strings"

	"reclamai/internal/types"
)

// Arrears severity buckets used both in the retrieval query and in prompt
// material. Thresholds follow the chronic-default policy knob.
const (
	severityRecent   = "atraso recente"
	severityModerate = "atraso moderado"
	severitySevere   = "atraso grave"
	severityChronic  = "inadimplencia cronica"
)

func arrearsSeverity(days, chronicDays int) string {
	switch {
	case days >= chronicDays:
		return severityChronic
	case days >= 90:
		return severitySevere
	case days >= 30:
		return severityModerate
	default:
		return severityRecent
	}
}

var creditorTypeTerms = map[string][]string{
	"bank":    {"banco", "bancaria", "emprestimo", "cartao"},
	"telecom": {"telefonia", "operadora", "telecom"},
	"utility": {"energia", "luz", "agua", "conta de consumo"},
	"retail":  {"loja", "varejo", "crediario"},
}

// BuildQuery summarizes creditor type, arrears severity and risk tolerance
// into the retrieval query for one obligation.
func BuildQuery(ob types.Obligation, tolerance types.RiskTolerance, chronicDays int) string {
	parts := []string{"renegociacao divida"}
	ct := strings.ToLower(strings.TrimSpace(ob.CreditorType))
	if terms, ok := creditorTypeTerms[ct]; ok {
		parts = append(parts, terms...)
	} else if ct != "" {
		parts = append(parts, ct)
	}
	parts = append(parts, arrearsSeverity(ob.ArrearsDays, chronicDays))
	switch tolerance {
	case types.RiskHigh:
		parts = append(parts, "desconto quitacao a vista")
	case types.RiskLow:
		parts = append(parts, "parcelamento prazo")
	default:
		parts = append(parts, "acordo parcelamento desconto")
	}
	return strings.Join(parts, " ")
}

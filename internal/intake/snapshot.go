// Package intake runs the triage conversation that turns free text from a
// debtor into a structured case snapshot. Facts accumulate across turns and
// are never overwritten by later extractions.
package intake

import (
	"strings"
	"time"
)

// Snapshot fields follow the triage checklist: how many debts, with whom,
// roughly how much, overdue since when, any prior negotiation attempt and
// whether the debtor accepts credit-registry listing while negotiating.
type CaseSnapshot struct {
	CaseID string `json:"case_id"`

	NumDebts            int    `json:"num_dividas,omitempty"`
	Creditors           string `json:"credores,omitempty"`
	ApproxAmounts       string `json:"valores_aprox,omitempty"`
	ArrearsSince        string `json:"inadimplencia,omitempty"`
	PriorNegotiation    *bool  `json:"negociacao_previa,omitempty"`
	AcceptsNegativation *bool  `json:"aceita_negativacao,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// fieldLabels maps snapshot fields to the wording used when asking the
// debtor for what is still missing.
var fieldLabels = []struct {
	name  string
	label string
	set   func(*CaseSnapshot) bool
}{
	{"num_dividas", "quantas dívidas você tem", func(s *CaseSnapshot) bool { return s.NumDebts > 0 }},
	{"credores", "com quais credores", func(s *CaseSnapshot) bool { return strings.TrimSpace(s.Creditors) != "" }},
	{"valores_aprox", "os valores aproximados de cada uma", func(s *CaseSnapshot) bool { return strings.TrimSpace(s.ApproxAmounts) != "" }},
	{"inadimplencia", "há quanto tempo estão em atraso", func(s *CaseSnapshot) bool { return strings.TrimSpace(s.ArrearsSince) != "" }},
	{"negociacao_previa", "se já tentou negociar antes", func(s *CaseSnapshot) bool { return s.PriorNegotiation != nil }},
	{"aceita_negativacao", "se aceita permanecer negativado durante a negociação", func(s *CaseSnapshot) bool { return s.AcceptsNegativation != nil }},
}

// Merge fills only the fields still empty on the receiver. Facts already
// captured in earlier turns win over any later re-extraction.
func (s *CaseSnapshot) Merge(in CaseSnapshot) {
	if s.NumDebts == 0 && in.NumDebts > 0 {
		s.NumDebts = in.NumDebts
	}
	if strings.TrimSpace(s.Creditors) == "" && strings.TrimSpace(in.Creditors) != "" {
		s.Creditors = strings.TrimSpace(in.Creditors)
	}
	if strings.TrimSpace(s.ApproxAmounts) == "" && strings.TrimSpace(in.ApproxAmounts) != "" {
		s.ApproxAmounts = strings.TrimSpace(in.ApproxAmounts)
	}
	if strings.TrimSpace(s.ArrearsSince) == "" && strings.TrimSpace(in.ArrearsSince) != "" {
		s.ArrearsSince = strings.TrimSpace(in.ArrearsSince)
	}
	if s.PriorNegotiation == nil && in.PriorNegotiation != nil {
		v := *in.PriorNegotiation
		s.PriorNegotiation = &v
	}
	if s.AcceptsNegativation == nil && in.AcceptsNegativation != nil {
		v := *in.AcceptsNegativation
		s.AcceptsNegativation = &v
	}
	s.UpdatedAt = time.Now()
}

// MissingFields lists the checklist items not yet captured, in asking order.
func (s *CaseSnapshot) MissingFields() []string {
	var out []string
	for _, f := range fieldLabels {
		if !f.set(s) {
			out = append(out, f.name)
		}
	}
	return out
}

// MissingQuestions phrases the open items for the next reply to the debtor.
func (s *CaseSnapshot) MissingQuestions() []string {
	var out []string
	for _, f := range fieldLabels {
		if !f.set(s) {
			out = append(out, f.label)
		}
	}
	return out
}

// Ready reports whether every checklist item has been captured.
func (s *CaseSnapshot) Ready() bool {
	return len(s.MissingFields()) == 0
}

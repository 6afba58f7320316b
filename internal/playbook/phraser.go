package playbook

import (
	"context"
	"fmt"

	"reclamai/internal/gateway/provider"
	"reclamai/internal/proposal"
	"reclamai/internal/types"
)

const phraseSystemPrompt = `Você redige justificativas curtas (um parágrafo) para propostas de
renegociação de dívidas, em português formal, dirigidas ao credor. Use apenas os números
fornecidos; não invente condições.`

// ModelPhraser turns proposal terms into prose through the reasoning
// backend. It satisfies the generator's Phraser port; the generator handles
// timeouts and falls back to templates on error.
type ModelPhraser struct {
	provider provider.ModelProvider
}

func NewModelPhraser(p provider.ModelProvider) *ModelPhraser {
	return &ModelPhraser{provider: p}
}

var _ proposal.Phraser = (*ModelPhraser)(nil)

func (m *ModelPhraser) Phrase(ctx context.Context, ob types.Obligation, p types.Proposal) (string, error) {
	if m == nil || m.provider == nil || !m.provider.Enabled() {
		return "", fmt.Errorf("phraser unavailable")
	}
	user := fmt.Sprintf("Credor: %s (%s)\nProposta: %s\nContexto: %s",
		ob.CreditorID, ob.CreditorType,
		describeProposal(ob, p),
		proposal.TemplateRationale(ob, p))
	return m.provider.Call(ctx, provider.ChatPayload{
		System:  phraseSystemPrompt,
		User:    user,
		Purpose: "rationale-phrase",
	})
}

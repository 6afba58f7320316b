package guardrail

import (
	"context"
	"fmt"

	"reclamai/internal/gateway/provider"
	"reclamai/internal/logger"
	"reclamai/internal/pkg/jsonutil"
	"reclamai/internal/types"

	"github.com/tidwall/gjson"
)

const moderationSystemPrompt = `Você é um classificador de conteúdo. Avalie a mensagem do usuário e responda com um único objeto JSON:
{"toxicidade": float entre 0 e 1}
Considere insultos, ameaças, assédio e linguagem obscena. Responda somente o JSON.`

// Moderator screens intake text for abusive content through the reasoning
// backend. Without a provider, or when the provider misbehaves, the screen
// is a no-op: moderation never takes the intake channel down with it.
type Moderator struct {
	provider  provider.ModelProvider
	threshold float64
}

func NewModerator(p provider.ModelProvider, threshold float64) *Moderator {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	return &Moderator{provider: p, threshold: threshold}
}

// Check rejects the message with ErrInputRejected when its toxicity score
// reaches the threshold.
func (m *Moderator) Check(ctx context.Context, text string) error {
	if m == nil || m.provider == nil || !m.provider.Enabled() {
		return nil
	}
	raw, err := m.provider.Call(ctx, provider.ChatPayload{
		System:     moderationSystemPrompt,
		User:       text,
		ExpectJSON: true,
		Purpose:    "intake-moderation",
	})
	if err != nil {
		logger.Warnf("guardrail: moderation call failed, message passes unscreened: %v", err)
		return nil
	}
	body, ok := jsonutil.ExtractJSON(raw)
	if !ok || !gjson.Valid(body) {
		logger.Warnf("guardrail: moderation returned no parseable JSON, message passes unscreened")
		return nil
	}
	score := gjson.Get(body, "toxicidade").Float()
	if score >= m.threshold {
		return fmt.Errorf("%w: conteúdo potencialmente tóxico (score=%.2f)", types.ErrInputRejected, score)
	}
	return nil
}

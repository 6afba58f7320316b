package provider

import (
	"fmt"
	"strings"
	"time"

	"reclamai/internal/config"
	"reclamai/internal/logger"
)

// BuildProvidersFromConfig turns the ai.models config block into live
// providers, synthesizing ids when missing.
func BuildProvidersFromConfig(models []config.ModelConfig, timeout time.Duration) []ModelProvider {
	out := make([]ModelProvider, 0, len(models))
	for _, m := range models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			base := strings.TrimSpace(m.Provider)
			if base == "" {
				base = "provider"
			}
			if model := strings.TrimSpace(m.Model); model != "" {
				id = fmt.Sprintf("%s:%s", base, model)
			} else {
				id = base
			}
			logger.Warnf("ai.models.id missing, generated %q for provider %q", id, m.Provider)
		}
		client := &OpenAIChatClient{
			BaseURL:    m.APIURL,
			APIKey:     m.APIKey,
			Model:      m.Model,
			MaxRetries: m.MaxRetries,
		}
		if timeout > 0 {
			client.Timeout = timeout
		}
		out = append(out, NewOpenAIModelProvider(id, true, client))
	}
	return out
}

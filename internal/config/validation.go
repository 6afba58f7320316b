package config

import (
	"fmt"
	"strings"
)

// validate performs basic sanity checks on the merged config.
func validate(c *Config) error {
	if err := c.Policy.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Guardrail.validate(); err != nil {
		return err
	}
	return nil
}

func (p *PolicyConfig) validate() error {
	if p.MaxMarkdownPct <= 0 || p.MaxMarkdownPct >= 1 {
		return fmt.Errorf("policy.max_markdown_pct must be in (0,1), got %v", p.MaxMarkdownPct)
	}
	if p.OverextensionRatio < 1 {
		return fmt.Errorf("policy.overextension_ratio must be >= 1, got %v", p.OverextensionRatio)
	}
	if p.RateReductionFactor <= 0 || p.RateReductionFactor >= 1 {
		return fmt.Errorf("policy.rate_reduction_factor must be in (0,1), got %v", p.RateReductionFactor)
	}
	if p.MaxInstallmentHorizon <= 0 {
		return fmt.Errorf("policy.max_installment_horizon must be > 0")
	}
	if p.MaxNegotiationRounds <= 0 {
		return fmt.Errorf("policy.max_negotiation_rounds must be > 0")
	}
	w := p.Weights
	if w.InterestSaved < 0 || w.BurdenRelief < 0 || w.Acceptance < 0 {
		return fmt.Errorf("policy.weights must not be negative")
	}
	if w.InterestSaved+w.BurdenRelief+w.Acceptance <= 0 {
		return fmt.Errorf("policy.weights requires at least one positive weight")
	}
	return nil
}

func (a *AIConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if len(a.Models) == 0 {
		return fmt.Errorf("ai.models requires at least one model when ai.enabled=true")
	}
	for _, m := range a.Models {
		if strings.TrimSpace(m.ID) == "" {
			return fmt.Errorf("ai.models contains entry without id")
		}
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("ai.models.%s missing model", m.ID)
		}
		if strings.TrimSpace(m.APIURL) == "" {
			return fmt.Errorf("ai.models.%s missing api_url", m.ID)
		}
	}
	return nil
}

func (g *GuardrailConfig) validate() error {
	if g.MaxInputChars <= 0 {
		return fmt.Errorf("guardrail.max_input_chars must be > 0")
	}
	if g.MinKeywordHits < 0 {
		return fmt.Errorf("guardrail.min_keyword_hits must be >= 0")
	}
	if g.ToxicityThreshold <= 0 || g.ToxicityThreshold > 1 {
		return fmt.Errorf("guardrail.toxicity_threshold must be within (0, 1]")
	}
	return nil
}

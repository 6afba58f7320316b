package config

import "strings"

// Default values applied to keys left unset in the config file.
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9880"
	defaultAppLogPath   = "data/logs/reclamai.log"
	defaultAppLLMLog    = "data/logs/reclamai-llm.log"
	defaultStorePath    = "data/db/reclamai.db"
	defaultCaseLogPath  = "data/db/caselog.db"
	defaultCorpusPath   = "configs/knowledge/faq_renegociacao.md"
	defaultProfilesPath = "configs/creditor_profiles.yaml"

	defaultChronicDefaultDays  = 180
	defaultOverextensionRatio  = 1.25
	defaultMaxMarkdownPct      = 0.40
	defaultSettlementMinDays   = 90
	defaultMaxHorizon          = 60
	defaultMaxRounds           = 5
	defaultRateReductionFactor = 0.60
	defaultMinAnnualRate       = 0.02
	defaultReliefTermMonths    = 24
	defaultTopKSnippets        = 5
	defaultSessionTTLMinutes   = 60 * 24 * 10 // 10 dias úteis por convenção do playbook
	defaultSweepSeconds        = 60

	defaultWeightInterest   = 0.5
	defaultWeightBurden     = 0.3
	defaultWeightAcceptance = 0.2

	defaultKnowledgeMinScore = 0.05
	defaultKnowledgeTimeout  = 5
	defaultAITimeout         = 30
	defaultMaxInputChars     = 1000
	defaultMinKeywordHits    = 1
	defaultToxicityThreshold = 0.75
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Policy.applyDefaults(keys)
	c.Knowledge.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Guardrail.applyDefaults(keys)
	c.Profiles.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.llm_log_path", &a.LLMLog, defaultAppLLMLog),
	)
}

func (p *PolicyConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("policy.chronic_default_days", &p.ChronicDefaultDays, defaultChronicDefaultDays),
		floatFieldDefault("policy.overextension_ratio", &p.OverextensionRatio, defaultOverextensionRatio),
		floatFieldDefault("policy.max_markdown_pct", &p.MaxMarkdownPct, defaultMaxMarkdownPct),
		intFieldDefault("policy.settlement_min_arrears_days", &p.SettlementMinArrearsDays, defaultSettlementMinDays),
		intFieldDefault("policy.max_installment_horizon", &p.MaxInstallmentHorizon, defaultMaxHorizon),
		intFieldDefault("policy.max_negotiation_rounds", &p.MaxNegotiationRounds, defaultMaxRounds),
		floatFieldDefault("policy.rate_reduction_factor", &p.RateReductionFactor, defaultRateReductionFactor),
		floatFieldDefault("policy.min_annual_rate", &p.MinAnnualRate, defaultMinAnnualRate),
		intFieldDefault("policy.relief_term_months", &p.ReliefTermMonths, defaultReliefTermMonths),
		intFieldDefault("policy.top_k_snippets", &p.TopKSnippets, defaultTopKSnippets),
		intFieldDefault("policy.session_ttl_minutes", &p.SessionTTLMinutes, defaultSessionTTLMinutes),
		intFieldDefault("policy.sweep_interval_seconds", &p.SweepIntervalSeconds, defaultSweepSeconds),
		floatFieldDefault("policy.weights.interest_saved", &p.Weights.InterestSaved, defaultWeightInterest),
		floatFieldDefault("policy.weights.burden_relief", &p.Weights.BurdenRelief, defaultWeightBurden),
		floatFieldDefault("policy.weights.acceptance", &p.Weights.Acceptance, defaultWeightAcceptance),
	)
}

func (k *KnowledgeConfig) applyDefaults(keys keySet) {
	if k == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("knowledge.corpus_path", &k.CorpusPath, defaultCorpusPath),
		floatFieldDefault("knowledge.min_score", &k.MinScore, defaultKnowledgeMinScore),
		intFieldDefault("knowledge.timeout_seconds", &k.TimeoutSeconds, defaultKnowledgeTimeout),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		stringFieldDefault("store.caselog_path", &s.CaseLogPath, defaultCaseLogPath),
	)
}

func (g *GuardrailConfig) applyDefaults(keys keySet) {
	if g == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("guardrail.max_input_chars", &g.MaxInputChars, defaultMaxInputChars),
		intFieldDefault("guardrail.min_keyword_hits", &g.MinKeywordHits, defaultMinKeywordHits),
		floatFieldDefault("guardrail.toxicity_threshold", &g.ToxicityThreshold, defaultToxicityThreshold),
	)
	if len(g.ScopeKeywords) == 0 && !keys.isSet("guardrail.scope_keywords") {
		g.ScopeKeywords = DefaultScopeKeywords()
	}
}

func (p *ProfilesConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("profiles.path", &p.Path, defaultProfilesPath),
	)
}

// DefaultScopeKeywords is the pt-BR keyword list shared with the domain guardrail.
func DefaultScopeKeywords() []string {
	return []string{
		"dívida", "divida", "negociação", "negociacao", "acordo", "parcelamento",
		"desconto", "inadimplência", "inadimplencia", "credor", "atraso",
		"nome negativado", "proposta", "boleto", "juros", "multa", "renegociação",
		"renegociacao", "quitação", "quitacao",
	}
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

package config

import "strings"

// Config is the top-level configuration carrier for reclamai.
type Config struct {
	App       AppConfig       `toml:"app"`
	Policy    PolicyConfig    `toml:"policy"`
	Knowledge KnowledgeConfig `toml:"knowledge"`
	AI        AIConfig        `toml:"ai"`
	Store     StoreConfig     `toml:"store"`
	Guardrail GuardrailConfig `toml:"guardrail"`
	Profiles  ProfilesConfig  `toml:"profiles"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

// PolicyConfig makes every negotiation threshold explicit. The generator,
// ranker and session machine receive this object instead of ambient state.
type PolicyConfig struct {
	ChronicDefaultDays       int     `toml:"chronic_default_days"`
	OverextensionRatio       float64 `toml:"overextension_ratio"`
	MaxMarkdownPct           float64 `toml:"max_markdown_pct"`
	SettlementMinArrearsDays int     `toml:"settlement_min_arrears_days"`
	MaxInstallmentHorizon    int     `toml:"max_installment_horizon"`
	MaxNegotiationRounds     int     `toml:"max_negotiation_rounds"`
	RateReductionFactor      float64 `toml:"rate_reduction_factor"`
	MinAnnualRate            float64 `toml:"min_annual_rate"`
	ReliefTermMonths         int     `toml:"relief_term_months"`
	TopKSnippets             int     `toml:"top_k_snippets"`
	SessionTTLMinutes        int     `toml:"session_ttl_minutes"`
	SweepIntervalSeconds     int     `toml:"sweep_interval_seconds"`

	Weights ScoreWeights `toml:"weights"`
}

// ScoreWeights controls the weighted combination behind benefit_score.
type ScoreWeights struct {
	InterestSaved float64 `toml:"interest_saved"`
	BurdenRelief  float64 `toml:"burden_relief"`
	Acceptance    float64 `toml:"acceptance"`
}

type KnowledgeConfig struct {
	CorpusPath     string  `toml:"corpus_path"`
	MinScore       float64 `toml:"min_score"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// AIConfig describes the reasoning backend (OpenAI-compatible chat API).
type AIConfig struct {
	Enabled        bool          `toml:"enabled"`
	TimeoutSeconds int           `toml:"timeout_seconds"`
	Models         []ModelConfig `toml:"models"`
}

type ModelConfig struct {
	ID         string `toml:"id"`
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIURL     string `toml:"api_url"`
	APIKey     string `toml:"api_key"`
	MaxRetries int    `toml:"max_retries"`
}

type StoreConfig struct {
	Path        string `toml:"path"`
	CaseLogPath string `toml:"caselog_path"`
}

type GuardrailConfig struct {
	MaxInputChars     int      `toml:"max_input_chars"`
	ScopeKeywords     []string `toml:"scope_keywords"`
	MinKeywordHits    int      `toml:"min_keyword_hits"`
	ToxicityThreshold float64  `toml:"toxicity_threshold"`
}

type ProfilesConfig struct {
	Path string `toml:"path"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

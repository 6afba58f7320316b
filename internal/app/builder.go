package app

import (
	"context"
	"time"

	rccfg "reclamai/internal/config"
	cfgloader "reclamai/internal/config/loader"
	"reclamai/internal/engine"
	"reclamai/internal/gateway/provider"
	"reclamai/internal/guardrail"
	"reclamai/internal/intake"
	"reclamai/internal/knowledge"
	"reclamai/internal/logger"
	"reclamai/internal/pkg/circuit"
	"reclamai/internal/playbook"
	"reclamai/internal/proposal"
	"reclamai/internal/session"
	"reclamai/internal/store"
	"reclamai/internal/store/caselog"
	"reclamai/internal/store/sqlite"
	apihttp "reclamai/internal/transport/http/api"
)

// AppBuilder assembles the component graph. The fn fields exist so tests can
// swap a stage without touching the rest of the wiring.
type AppBuilder struct {
	cfg *rccfg.Config

	profilesFn  func(string) (*cfgloader.Manager, error)
	retrieverFn func(rccfg.KnowledgeConfig) (knowledge.Retriever, error)
	providersFn func(rccfg.AIConfig) []provider.ModelProvider
	storeFn     func(rccfg.StoreConfig) (store.Store, error)
	caseLogFn   func(rccfg.StoreConfig) (*caselog.CaseLogStore, error)
	apiServerFn func(rccfg.AppConfig, *engine.Engine, *intake.Service) (*apihttp.Server, error)

	storeOverride     store.Store
	retrieverOverride knowledge.Retriever
}

type AppBuilderOption func(*AppBuilder)

// WithStore replaces the sqlite store, used by tests.
func WithStore(s store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = s }
}

// WithRetriever replaces the knowledge retriever, used by tests.
func WithRetriever(r knowledge.Retriever) AppBuilderOption {
	return func(b *AppBuilder) { b.retrieverOverride = r }
}

func NewAppBuilder(cfg *rccfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		profilesFn:  loadCreditorProfiles,
		retrieverFn: buildRetriever,
		providersFn: buildModelProviders,
		storeFn:     buildStore,
		caseLogFn:   buildCaseLog,
		apiServerFn: buildAPIServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func loadCreditorProfiles(path string) (*cfgloader.Manager, error) {
	if path == "" {
		return nil, nil
	}
	return cfgloader.NewManager(path)
}

// buildRetriever opens the corpus index and shields it with a breaker, so a
// corrupt or slow retrieval backend degrades instead of stalling generation.
func buildRetriever(cfg rccfg.KnowledgeConfig) (knowledge.Retriever, error) {
	if cfg.CorpusPath == "" {
		logger.Warnf("app: no knowledge corpus configured, rationale snippets disabled")
		return nil, nil
	}
	idx, err := knowledge.OpenIndex(cfg.CorpusPath, cfg.MinScore)
	if err != nil {
		return nil, err
	}
	breaker := circuit.NewBreaker("knowledge", 3, 30*time.Second)
	breaker.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("app: breaker %s %s -> %s", name, from, to)
	})
	return knowledge.NewGuardedRetriever(idx, breaker), nil
}

func buildModelProviders(cfg rccfg.AIConfig) []provider.ModelProvider {
	if !cfg.Enabled {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return provider.BuildProvidersFromConfig(cfg.Models, timeout)
}

func buildStore(cfg rccfg.StoreConfig) (store.Store, error) {
	path := cfg.Path
	if path == "" {
		path = "data/reclamai.db"
	}
	return sqlite.NewSqliteStore(path)
}

func buildCaseLog(cfg rccfg.StoreConfig) (*caselog.CaseLogStore, error) {
	path := cfg.CaseLogPath
	if path == "" {
		path = "data/caselog.db"
	}
	return caselog.NewCaseLogStore(path)
}

func buildAPIServer(cfg rccfg.AppConfig, e *engine.Engine, in *intake.Service) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:   cfg.HTTPAddr,
		Engine: e,
		Intake: in,
	})
}

// Build wires the full graph: stores, retriever, model providers, generator,
// ranker, session manager, engine, intake and the HTTP server.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg

	profiles, err := b.profilesFn(cfg.Profiles.Path)
	if err != nil {
		return nil, err
	}
	if profiles != nil {
		snap := profiles.Snapshot()
		logger.Infof("app: loaded %d creditor profiles from %s", len(snap.Profiles), cfg.Profiles.Path)
	}

	retriever := b.retrieverOverride
	if retriever == nil {
		retriever, err = b.retrieverFn(cfg.Knowledge)
		if err != nil {
			return nil, err
		}
	}

	providers := b.providersFn(cfg.AI)
	var primary provider.ModelProvider
	if len(providers) > 0 {
		primary = providers[0]
		logger.Infof("app: reasoning backend %s (%d configured)", primary.ID(), len(providers))
	} else {
		logger.Warnf("app: no reasoning backend, rationale and intake run on templates")
	}

	st := b.storeOverride
	if st == nil {
		st, err = b.storeFn(cfg.Store)
		if err != nil {
			return nil, err
		}
	}
	caseLog, err := b.caseLogFn(cfg.Store)
	if err != nil {
		return nil, err
	}

	aiTimeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	retrievalTimeout := time.Duration(cfg.Knowledge.TimeoutSeconds) * time.Second

	var phraser proposal.Phraser
	if primary != nil {
		phraser = playbook.NewModelPhraser(primary)
	}
	generator := proposal.NewGenerator(proposal.GeneratorParams{
		Retriever:        retriever,
		Phraser:          phraser,
		Profiles:         profiles,
		Policy:           cfg.Policy,
		AITimeout:        aiTimeout,
		RetrievalTimeout: retrievalTimeout,
	})

	ttl := time.Duration(cfg.Policy.SessionTTLMinutes) * time.Minute
	sessions := session.NewManager(cfg.Policy.MaxNegotiationRounds, ttl)

	eng := engine.New(engine.Params{
		Generator: generator,
		Ranker:    proposal.NewRanker(cfg.Policy.Weights),
		Sessions:  sessions,
		Playbooks: playbook.NewBuilder(primary),
		Store:     st,
		CaseLog:   caseLog,
		Policy:    cfg.Policy,
	})

	checker := guardrail.NewChecker(cfg.Guardrail)
	moderator := guardrail.NewModerator(primary, cfg.Guardrail.ToxicityThreshold)
	intakeSvc := intake.NewService(checker, moderator, intake.NewExtractor(primary), caseLog)

	api, err := b.apiServerFn(cfg.App, eng, intakeSvc)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		engine:  eng,
		intake:  intakeSvc,
		api:     api,
		store:   st,
		caseLog: caseLog,
	}, nil
}

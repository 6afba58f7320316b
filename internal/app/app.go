// Package app assembles the configured components and runs them.
package app

import (
	"context"
	"fmt"
	"time"

	rccfg "reclamai/internal/config"
	"reclamai/internal/engine"
	"reclamai/internal/intake"
	"reclamai/internal/logger"
	"reclamai/internal/scheduler"
	"reclamai/internal/store"
	"reclamai/internal/store/caselog"
	apihttp "reclamai/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App owns the long-running services: the HTTP API and the session sweeper.
type App struct {
	cfg    *rccfg.Config
	engine *engine.Engine
	intake *intake.Service
	api    *apihttp.Server

	store   store.Store
	caseLog *caselog.CaseLogStore
}

// NewApp builds the application from configuration without starting it.
func NewApp(cfg *rccfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is cancelled or a service fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.api != nil {
		group.Go(func() error {
			if err := a.api.Start(ctx); err != nil {
				return fmt.Errorf("api server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		interval := time.Duration(a.cfg.Policy.SweepIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		scheduler.NewSweeper(ctx, interval).Start("session-sweeper", func() {
			if n := a.engine.SweepExpired(time.Now()); n > 0 {
				logger.Infof("app: expired %d overdue sessions", n)
			}
		})
		return nil
	})

	err := group.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.caseLog != nil {
		_ = a.caseLog.Close()
	}
}

// Engine exposes the negotiation engine (for replay and test harnesses).
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Intake exposes the intake assistant.
func (a *App) Intake() *intake.Service {
	if a == nil {
		return nil
	}
	return a.intake
}

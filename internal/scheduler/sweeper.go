// Package scheduler runs the periodic housekeeping loops of the engine.
package scheduler

import (
	"context"
	"time"

	"reclamai/internal/logger"
)

// Sweeper fires a task on a fixed interval until the context ends. An
// optional immediate first run covers restart catch-up.
type Sweeper struct {
	Interval       time.Duration
	RunImmediately bool

	ctx context.Context
}

func NewSweeper(ctx context.Context, interval time.Duration) *Sweeper {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Sweeper{Interval: interval, ctx: ctx}
}

// Start blocks, running task every interval. Callers own the goroutine.
func (s *Sweeper) Start(name string, task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("sweeper %s: invalid interval=%s, exit", name, s.Interval)
		return
	}
	logger.Infof("sweeper %s: started interval=%s", name, s.Interval)

	if s.RunImmediately {
		task()
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("sweeper %s: ctx done, exit", name)
			return
		case <-ticker.C:
			task()
		}
	}
}

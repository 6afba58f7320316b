package engine

import (
	"context"

	"reclamai/internal/ledger"
	"reclamai/internal/logger"
	"reclamai/internal/session"
	"reclamai/internal/store/model"
	"reclamai/internal/types"
)

// persistProfile writes the ledger's profile and obligations in one unit.
func (e *Engine) persistProfile(ctx context.Context, led *ledger.Ledger) error {
	if e.store == nil {
		return nil
	}
	uow, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	profile := led.Profile()
	if err := uow.Profiles().Save(ctx, model.FromProfile(profile, led.Currency(), led.HighRisk())); err != nil {
		_ = uow.Rollback()
		return err
	}
	for _, ob := range profile.Obligations {
		if err := uow.Obligations().Save(ctx, model.FromObligation(profile.DebtorID, ob)); err != nil {
			_ = uow.Rollback()
			return err
		}
	}
	return uow.Commit()
}

// persistSession snapshots a session. Failures are logged, not surfaced:
// the in-memory machine stays authoritative and the next transition will
// write again.
func (e *Engine) persistSession(ctx context.Context, s *session.Session) {
	if e.store == nil || s == nil {
		return
	}
	uow, err := e.store.Begin(ctx)
	if err != nil {
		logger.Errorf("engine: session persistence begin failed session=%s err=%v", s.ID, err)
		return
	}
	if err := uow.Sessions().Save(ctx, model.FromSession(s)); err != nil {
		_ = uow.Rollback()
		logger.Errorf("engine: session persistence failed session=%s err=%v", s.ID, err)
		return
	}
	if err := uow.Commit(); err != nil {
		logger.Errorf("engine: session persistence commit failed session=%s err=%v", s.ID, err)
	}
}

// persistAccept writes the mutated obligation and the resolved session in a
// single transaction, so readers of the store never see an accepted session
// whose obligation still carries the old terms.
func (e *Engine) persistAccept(ctx context.Context, debtorID string, ob types.Obligation, s *session.Session) error {
	if e.store == nil {
		return nil
	}
	uow, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Obligations().Save(ctx, model.FromObligation(debtorID, ob)); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.Sessions().Save(ctx, model.FromSession(s)); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (e *Engine) logEvent(ctx context.Context, debtorID, kind, detail string) {
	if e.caseLog == nil {
		return
	}
	e.caseLog.AppendEvent(ctx, debtorID, kind, detail)
}

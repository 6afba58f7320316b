// Package engine wires the ledger, generator, ranker and session machine
// into the negotiation flows exposed to the transport layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reclamai/internal/config"
	"reclamai/internal/ledger"
	"reclamai/internal/logger"
	"reclamai/internal/playbook"
	"reclamai/internal/proposal"
	"reclamai/internal/session"
	"reclamai/internal/store"
	"reclamai/internal/store/caselog"
	"reclamai/internal/types"
)

// Engine owns one ledger per debtor plus the shared negotiation machinery.
type Engine struct {
	mu      sync.RWMutex
	ledgers map[string]*ledger.Ledger
	owners  map[string]string // obligation id -> debtor id

	generator *proposal.Generator
	ranker    *proposal.Ranker
	sessions  *session.Manager
	playbooks *playbook.Builder

	store   store.Store
	caseLog *caselog.CaseLogStore
	policy  config.PolicyConfig
}

// Params groups the engine dependencies. Store, CaseLog and Playbooks may
// be nil in tests.
type Params struct {
	Generator *proposal.Generator
	Ranker    *proposal.Ranker
	Sessions  *session.Manager
	Playbooks *playbook.Builder
	Store     store.Store
	CaseLog   *caselog.CaseLogStore
	Policy    config.PolicyConfig
}

func New(p Params) *Engine {
	return &Engine{
		ledgers:   make(map[string]*ledger.Ledger),
		owners:    make(map[string]string),
		generator: p.Generator,
		ranker:    p.Ranker,
		sessions:  p.Sessions,
		playbooks: p.Playbooks,
		store:     p.Store,
		caseLog:   p.CaseLog,
		policy:    p.Policy,
	}
}

// RegisterProfile creates (or replaces) the debtor's ledger and persists the
// profile with its obligations. Risk flags raised during ingestion land in
// the case event trail.
func (e *Engine) RegisterProfile(ctx context.Context, profile types.DebtorProfile) error {
	if profile.DebtorID == "" {
		return types.NewValidationError("debtor_id", "required")
	}
	hook := func(flag types.RiskFlag) {
		if e.caseLog != nil {
			e.caseLog.AppendEvent(context.Background(), flag.DebtorID, "risk_flag", flag.Reason)
		}
	}
	led, err := ledger.New(profile, e.policy.OverextensionRatio, hook)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.ledgers[profile.DebtorID] = led
	for _, ob := range led.Obligations() {
		e.owners[ob.ID] = profile.DebtorID
	}
	e.mu.Unlock()

	return e.persistProfile(ctx, led)
}

// AddObligation appends one obligation to an existing ledger.
func (e *Engine) AddObligation(ctx context.Context, debtorID string, ob types.Obligation) error {
	led, err := e.ledgerFor(debtorID)
	if err != nil {
		return err
	}
	if err := led.AddObligation(ob); err != nil {
		return err
	}
	e.mu.Lock()
	e.owners[ob.ID] = debtorID
	e.mu.Unlock()
	return e.persistProfile(ctx, led)
}

// Ledger exposes the debtor's ledger for read paths.
func (e *Engine) Ledger(debtorID string) (*ledger.Ledger, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	led, ok := e.ledgers[debtorID]
	return led, ok
}

func (e *Engine) ledgerFor(debtorID string) (*ledger.Ledger, error) {
	e.mu.RLock()
	led, ok := e.ledgers[debtorID]
	e.mu.RUnlock()
	if !ok {
		return nil, types.NewValidationError("debtor_id", "unknown debtor "+debtorID)
	}
	return led, nil
}

func (e *Engine) ownerOf(obligationID string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	debtor, ok := e.owners[obligationID]
	return debtor, ok
}

// NegotiationResult is what a start or counter round hands back.
type NegotiationResult struct {
	Session *session.Session `json:"session"`
	Ranked  []types.Proposal `json:"ranked"`
}

// StartNegotiation generates and ranks candidates for the obligation, opens
// a session and offers the top proposal. A second active session on the
// same obligation fails with ConcurrencyConflict before any generation runs.
func (e *Engine) StartNegotiation(ctx context.Context, obligationID, traceID string) (NegotiationResult, error) {
	debtorID, ok := e.ownerOf(obligationID)
	if !ok {
		return NegotiationResult{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}
	led, err := e.ledgerFor(debtorID)
	if err != nil {
		return NegotiationResult{}, err
	}
	ob, ok := led.Obligation(obligationID)
	if !ok {
		return NegotiationResult{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}

	s, err := e.sessions.Start(obligationID)
	if err != nil {
		return NegotiationResult{}, err
	}

	ranked, err := e.generateRanked(ctx, led, ob, proposal.GenerateOptions{
		Share:   led.DisposableShare(obligationID),
		TraceID: traceID,
	})
	if err != nil {
		// Nothing to offer: close the session so the slot frees up.
		_ = e.sessions.With(obligationID, func(s *session.Session) error {
			return s.Expire("no feasible proposal at start")
		})
		e.persistSession(ctx, s)
		return NegotiationResult{}, err
	}

	err = e.sessions.With(obligationID, func(s *session.Session) error {
		return s.Offer(ranked[0])
	})
	if err != nil {
		return NegotiationResult{}, err
	}
	e.persistSession(ctx, s)
	e.logEvent(ctx, debtorID, "session_offered",
		fmt.Sprintf("session=%s obligation=%s kind=%s", s.ID, obligationID, ranked[0].Kind))
	return NegotiationResult{Session: s, Ranked: ranked}, nil
}

// HandleCounter records the creditor's counter terms and, while rounds
// remain, regenerates under the counter's constraints and re-offers.
func (e *Engine) HandleCounter(ctx context.Context, obligationID string, counter types.Proposal) (NegotiationResult, error) {
	debtorID, ok := e.ownerOf(obligationID)
	if !ok {
		return NegotiationResult{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}
	led, err := e.ledgerFor(debtorID)
	if err != nil {
		return NegotiationResult{}, err
	}
	ob, ok := led.Obligation(obligationID)
	if !ok {
		return NegotiationResult{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}

	var out NegotiationResult
	err = e.sessions.With(obligationID, func(s *session.Session) error {
		out.Session = s
		if err := s.Counter(counter); err != nil {
			return err
		}
		if s.State == session.StateExpired {
			e.logEvent(ctx, debtorID, "session_expired", "round cap reached session="+s.ID)
			return nil
		}
		constraints := proposal.ConstraintsFromCounter(counter)
		ranked, err := e.generateRanked(ctx, led, ob, proposal.GenerateOptions{
			Share:       led.DisposableShare(obligationID),
			Constraints: &constraints,
			TraceID:     counter.TraceID,
		})
		if err != nil {
			// The counter boxed us out of every candidate. The session
			// cannot continue, but the history stays on record.
			if expErr := s.Expire("counter terms leave no feasible proposal"); expErr != nil {
				return expErr
			}
			return err
		}
		if err := s.Offer(ranked[0]); err != nil {
			return err
		}
		out.Ranked = ranked
		return nil
	})
	if out.Session != nil {
		e.persistSession(ctx, out.Session)
	}
	if err != nil {
		return NegotiationResult{}, err
	}
	return out, nil
}

// Accept resolves the session and applies the accepted terms to the ledger
// and the store in one transaction.
func (e *Engine) Accept(ctx context.Context, obligationID string) (types.Obligation, error) {
	debtorID, ok := e.ownerOf(obligationID)
	if !ok {
		return types.Obligation{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}
	led, err := e.ledgerFor(debtorID)
	if err != nil {
		return types.Obligation{}, err
	}

	var updated types.Obligation
	var resolved *session.Session
	err = e.sessions.With(obligationID, func(s *session.Session) error {
		resolved = s
		accepted, err := s.Accept()
		if err != nil {
			return err
		}
		ob, err := led.ApplyAccepted(accepted)
		if err != nil {
			// The ledger refused terms the session already accepted. This
			// only happens on malformed proposals; surface loudly.
			logger.Errorf("engine: accepted terms rejected by ledger session=%s err=%v", s.ID, err)
			return err
		}
		updated = ob
		return nil
	})
	if err != nil {
		return types.Obligation{}, err
	}

	if e.store != nil {
		if perr := e.persistAccept(ctx, debtorID, updated, resolved); perr != nil {
			logger.Errorf("engine: accept persistence failed obligation=%s err=%v", obligationID, perr)
			return updated, perr
		}
	}
	e.logEvent(ctx, debtorID, "session_accepted",
		fmt.Sprintf("session=%s obligation=%s", resolved.ID, obligationID))
	return updated, nil
}

// Reject resolves the session without touching the obligation.
func (e *Engine) Reject(ctx context.Context, obligationID, reason string) (*session.Session, error) {
	var resolved *session.Session
	err := e.sessions.With(obligationID, func(s *session.Session) error {
		resolved = s
		return s.Reject(reason)
	})
	if err != nil {
		return nil, err
	}
	e.persistSession(ctx, resolved)
	if debtorID, ok := e.ownerOf(obligationID); ok {
		e.logEvent(ctx, debtorID, "session_rejected", "session="+resolved.ID)
	}
	return resolved, nil
}

// Session resolves a session by id.
func (e *Engine) Session(id string) (*session.Session, bool) {
	return e.sessions.Session(id)
}

// ActiveSession resolves the live session of an obligation.
func (e *Engine) ActiveSession(obligationID string) (*session.Session, bool) {
	return e.sessions.Active(obligationID)
}

// Playbook renders the specialist deliverable for an obligation using the
// candidates of a fresh generation round.
func (e *Engine) Playbook(ctx context.Context, obligationID string) (playbook.Playbook, error) {
	debtorID, ok := e.ownerOf(obligationID)
	if !ok {
		return playbook.Playbook{}, types.NewValidationError("obligation_id", "unknown obligation "+obligationID)
	}
	led, err := e.ledgerFor(debtorID)
	if err != nil {
		return playbook.Playbook{}, err
	}
	ob, _ := led.Obligation(obligationID)

	ranked, err := e.generateRanked(ctx, led, ob, proposal.GenerateOptions{
		Share: led.DisposableShare(obligationID),
	})
	if err != nil && !errors.Is(err, types.ErrNoFeasibleProposal) {
		return playbook.Playbook{}, err
	}
	if e.playbooks == nil {
		return playbook.Playbook{}, fmt.Errorf("playbook builder not configured")
	}
	return e.playbooks.Build(ctx, led.Profile(), ob, ranked), nil
}

// SweepExpired expires overdue sessions and persists the outcomes. Wired to
// the interval sweeper by the app.
func (e *Engine) SweepExpired(now time.Time) int {
	expired := e.sessions.SweepExpired(now)
	for _, s := range expired {
		e.persistSession(context.Background(), s)
		if debtorID, ok := e.ownerOf(s.ObligationID); ok {
			e.logEvent(context.Background(), debtorID, "session_expired", "deadline session="+s.ID)
		}
	}
	return len(expired)
}

func (e *Engine) generateRanked(ctx context.Context, led *ledger.Ledger, ob types.Obligation, opts proposal.GenerateOptions) ([]types.Proposal, error) {
	candidates, err := e.generator.Generate(ctx, led.Profile(), ob, opts)
	if err != nil {
		return nil, err
	}
	ranked := e.ranker.Rank(led, candidates)
	return ranked, nil
}

// Package session drives a single obligation's negotiation through an
// explicit state machine. Transitions are table-driven so the legal paths
// can be tested exhaustively.
package session

import (
	"errors"
	"fmt"
	"time"

	"reclamai/internal/types"

	"github.com/google/uuid"
)

// State is the lifecycle position of one negotiation session.
type State string

const (
	StateDrafted   State = "drafted"
	StateOffered   State = "offered"
	StateCountered State = "countered"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
	StateExpired   State = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateAccepted, StateRejected, StateExpired:
		return true
	}
	return false
}

// transitions is the full legal-edge table. Countered→Offered closes the
// re-evaluation cycle; the round cap turns it into Expired instead.
var transitions = map[State][]State{
	StateDrafted:   {StateOffered, StateExpired},
	StateOffered:   {StateAccepted, StateCountered, StateRejected, StateExpired},
	StateCountered: {StateOffered, StateExpired},
}

// ErrInvalidTransition marks an attempt to move along an edge the table
// does not contain.
var ErrInvalidTransition = errors.New("invalid session transition")

// Resolution records how a terminal state was reached. Exactly one of
// Proposal or Reason carries the outcome; both may be set for Accepted.
type Resolution struct {
	Proposal *types.Proposal `json:"proposal,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	At       time.Time       `json:"at"`
}

// Session is the negotiation record for one obligation. All mutation goes
// through the transition methods; the manager serializes callers.
type Session struct {
	ID           string
	ObligationID string
	State        State

	// History is append-only. Superseded proposals stay in place.
	ProposalHistory []types.Proposal
	CounterOffers   []types.Proposal

	Rounds    int
	MaxRounds int
	Deadline  time.Time

	Resolution *Resolution

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSession(obligationID string, maxRounds int, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		ObligationID: obligationID,
		State:        StateDrafted,
		MaxRounds:    maxRounds,
		Deadline:     now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Session) transition(to State) error {
	for _, next := range transitions[s.State] {
		if next == to {
			s.State = to
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s (obligation %s)", ErrInvalidTransition, s.State, to, s.ObligationID)
}

// Offer submits a proposal to the creditor, from Drafted on the first round
// or from Countered on a re-evaluation.
func (s *Session) Offer(p types.Proposal) error {
	if p.ObligationID != s.ObligationID {
		return types.NewValidationError("obligation_id", "proposal belongs to a different obligation")
	}
	if err := s.transition(StateOffered); err != nil {
		return err
	}
	s.ProposalHistory = append(s.ProposalHistory, p)
	return nil
}

// Counter records the creditor's counter terms. When the round cap is
// reached the session expires instead of re-entering the cycle; the counter
// is still retained so no history is lost.
func (s *Session) Counter(counter types.Proposal) error {
	if counter.ObligationID != s.ObligationID {
		return types.NewValidationError("obligation_id", "counter belongs to a different obligation")
	}
	if err := s.transition(StateCountered); err != nil {
		return err
	}
	s.CounterOffers = append(s.CounterOffers, counter)
	s.Rounds++
	if s.MaxRounds > 0 && s.Rounds >= s.MaxRounds {
		s.State = StateExpired
		s.Resolution = &Resolution{Reason: "negotiation round cap reached", At: time.Now()}
	}
	return nil
}

// Accept resolves the session with the currently offered proposal and
// returns it so the caller can apply the terms to the ledger.
func (s *Session) Accept() (types.Proposal, error) {
	if s.State != StateOffered {
		return types.Proposal{}, fmt.Errorf("%w: accept from %s", ErrInvalidTransition, s.State)
	}
	current, ok := s.CurrentProposal()
	if !ok {
		return types.Proposal{}, fmt.Errorf("%w: no offered proposal on record", ErrInvalidTransition)
	}
	if err := s.transition(StateAccepted); err != nil {
		return types.Proposal{}, err
	}
	p := current
	s.Resolution = &Resolution{Proposal: &p, Reason: "accepted by creditor", At: time.Now()}
	return current, nil
}

// Reject resolves the session without touching the obligation.
func (s *Session) Reject(reason string) error {
	if err := s.transition(StateRejected); err != nil {
		return err
	}
	if reason == "" {
		reason = "rejected by creditor"
	}
	s.Resolution = &Resolution{Reason: reason, At: time.Now()}
	return nil
}

// Expire forces a non-terminal session into Expired, recording why.
func (s *Session) Expire(reason string) error {
	if s.State.Terminal() {
		return fmt.Errorf("%w: expire from %s", ErrInvalidTransition, s.State)
	}
	s.State = StateExpired
	s.UpdatedAt = time.Now()
	if reason == "" {
		reason = "session deadline elapsed"
	}
	s.Resolution = &Resolution{Reason: reason, At: time.Now()}
	return nil
}

// CurrentProposal returns the latest offered proposal, if any.
func (s *Session) CurrentProposal() (types.Proposal, bool) {
	if len(s.ProposalHistory) == 0 {
		return types.Proposal{}, false
	}
	return s.ProposalHistory[len(s.ProposalHistory)-1], true
}

// LastCounter returns the most recent creditor counter-offer, if any.
func (s *Session) LastCounter() (types.Proposal, bool) {
	if len(s.CounterOffers) == 0 {
		return types.Proposal{}, false
	}
	return s.CounterOffers[len(s.CounterOffers)-1], true
}

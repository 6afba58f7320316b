package session

import (
	"sync"
	"testing"
	"time"

	"reclamai/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposalFor(obligationID string) types.Proposal {
	return types.Proposal{
		ID:               "p-" + obligationID,
		ObligationID:     obligationID,
		Kind:             types.KindInstallment,
		InstallmentCount: 24,
		MonthlyPayment:   decimal.NewFromInt(450),
	}
}

func TestHappyPathAccept(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)
	assert.Equal(t, StateDrafted, s.State)

	require.NoError(t, s.Offer(proposalFor("ob-1")))
	assert.Equal(t, StateOffered, s.State)
	require.Len(t, s.ProposalHistory, 1)

	accepted, err := s.Accept()
	require.NoError(t, err)
	assert.Equal(t, StateAccepted, s.State)
	assert.Equal(t, "p-ob-1", accepted.ID)
	require.NotNil(t, s.Resolution)
	require.NotNil(t, s.Resolution.Proposal)
	assert.Equal(t, accepted.ID, s.Resolution.Proposal.ID)
}

func TestOfferRejectsForeignProposal(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)
	err := s.Offer(proposalFor("ob-2"))
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, StateDrafted, s.State)
}

func TestCounterRejectsForeignProposal(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)
	require.NoError(t, s.Offer(proposalFor("ob-1")))

	err := s.Counter(proposalFor("ob-2"))
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, StateOffered, s.State)
	assert.Empty(t, s.CounterOffers)
	assert.Zero(t, s.Rounds)
}

func TestIllegalTransitions(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)

	// Drafted accepts nothing but an offer or expiry.
	_, err := s.Accept()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.Counter(proposalFor("ob-1")), ErrInvalidTransition)
	assert.ErrorIs(t, s.Reject(""), ErrInvalidTransition)

	require.NoError(t, s.Offer(proposalFor("ob-1")))
	require.NoError(t, s.Reject("creditor declined"))
	assert.Equal(t, StateRejected, s.State)

	// Terminal states are sticky.
	assert.ErrorIs(t, s.Offer(proposalFor("ob-1")), ErrInvalidTransition)
	assert.ErrorIs(t, s.Expire(""), ErrInvalidTransition)
	_, err = s.Accept()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCounterCycleAndRoundCap(t *testing.T) {
	const maxRounds = 3
	s := newSession("ob-1", maxRounds, time.Hour)
	require.NoError(t, s.Offer(proposalFor("ob-1")))

	for round := 1; round < maxRounds; round++ {
		require.NoError(t, s.Counter(proposalFor("ob-1")))
		assert.Equal(t, StateCountered, s.State)
		assert.Equal(t, round, s.Rounds)
		require.NoError(t, s.Offer(proposalFor("ob-1")))
	}

	// The counter that reaches the cap expires the session.
	require.NoError(t, s.Counter(proposalFor("ob-1")))
	assert.Equal(t, StateExpired, s.State)
	assert.Equal(t, maxRounds, s.Rounds)
	require.NotNil(t, s.Resolution)
	assert.Contains(t, s.Resolution.Reason, "round cap")

	// Counters are retained even when they triggered expiry.
	assert.Len(t, s.CounterOffers, maxRounds)
	assert.ErrorIs(t, s.Counter(proposalFor("ob-1")), ErrInvalidTransition)
}

func TestHistoryRetainedAcrossRounds(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)
	require.NoError(t, s.Offer(proposalFor("ob-1")))
	require.NoError(t, s.Counter(proposalFor("ob-1")))

	revised := proposalFor("ob-1")
	revised.ID = "p-revised"
	require.NoError(t, s.Offer(revised))

	require.Len(t, s.ProposalHistory, 2)
	current, ok := s.CurrentProposal()
	require.True(t, ok)
	assert.Equal(t, "p-revised", current.ID)
	counter, ok := s.LastCounter()
	require.True(t, ok)
	assert.Equal(t, "p-ob-1", counter.ID)
}

func TestExpireRecordsReason(t *testing.T) {
	s := newSession("ob-1", 5, time.Hour)
	require.NoError(t, s.Offer(proposalFor("ob-1")))
	require.NoError(t, s.Expire(""))
	assert.Equal(t, StateExpired, s.State)
	require.NotNil(t, s.Resolution)
	assert.NotEmpty(t, s.Resolution.Reason)
	assert.Nil(t, s.Resolution.Proposal)
}

func TestManagerSingleActiveSession(t *testing.T) {
	m := NewManager(5, time.Hour)

	s1, err := m.Start("ob-1")
	require.NoError(t, err)

	_, err = m.Start("ob-1")
	assert.ErrorIs(t, err, types.ErrConcurrencyConflict)

	// A different obligation is independent.
	_, err = m.Start("ob-2")
	require.NoError(t, err)

	// Resolving the first session frees the slot.
	err = m.With("ob-1", func(s *Session) error {
		if err := s.Offer(proposalFor("ob-1")); err != nil {
			return err
		}
		return s.Reject("")
	})
	require.NoError(t, err)

	s2, err := m.Start("ob-1")
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)

	// Both remain addressable by id afterwards.
	_, ok := m.Session(s1.ID)
	assert.True(t, ok)
	_, ok = m.Session(s2.ID)
	assert.True(t, ok)
}

func TestManagerConcurrentStartOneWins(t *testing.T) {
	m := NewManager(5, time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Start("ob-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			assert.ErrorIs(t, err, types.ErrConcurrencyConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, ok, "exactly one start must win")
	assert.Equal(t, attempts-1, conflicts)
}

func TestManagerWithRequiresActiveSession(t *testing.T) {
	m := NewManager(5, time.Hour)
	err := m.With("ghost", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSweepExpired(t *testing.T) {
	m := NewManager(5, time.Minute)

	s, err := m.Start("ob-1")
	require.NoError(t, err)
	_, err = m.Start("ob-2")
	require.NoError(t, err)

	// Push only ob-1 past its deadline.
	s.Deadline = time.Now().Add(-time.Second)
	expired := m.SweepExpired(time.Now())
	require.Len(t, expired, 1)
	assert.Equal(t, "ob-1", expired[0].ObligationID)
	assert.Equal(t, StateExpired, expired[0].State)

	// ob-1 can start again, ob-2 still cannot.
	_, err = m.Start("ob-1")
	assert.NoError(t, err)
	_, err = m.Start("ob-2")
	assert.ErrorIs(t, err, types.ErrConcurrencyConflict)
}

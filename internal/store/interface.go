package store

import (
	"context"

	"reclamai/internal/store/model"
)

// UnitOfWork defines a transaction scope. Accepting a proposal writes the
// obligation and the session record in the same unit, so readers never see
// one without the other.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Profiles returns the debtor profile repository within this transaction.
	Profiles() ProfileRepository
	// Obligations returns the obligation repository within this transaction.
	Obligations() ObligationRepository
	// Sessions returns the negotiation session repository within this transaction.
	Sessions() SessionRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// ProfileRepository handles debtor profile persistence.
type ProfileRepository interface {
	Save(ctx context.Context, profile *model.DebtorProfileModel) error
	FindByID(ctx context.Context, debtorID string) (*model.DebtorProfileModel, error)
}

// ObligationRepository handles obligation persistence.
type ObligationRepository interface {
	Save(ctx context.Context, ob *model.ObligationModel) error
	FindByID(ctx context.Context, id string) (*model.ObligationModel, error)
	ListByDebtor(ctx context.Context, debtorID string) ([]model.ObligationModel, error)
}

// SessionRepository handles negotiation session persistence.
type SessionRepository interface {
	Save(ctx context.Context, s *model.NegotiationSessionModel) error
	FindByID(ctx context.Context, id string) (*model.NegotiationSessionModel, error)
	ListByObligation(ctx context.Context, obligationID string) ([]model.NegotiationSessionModel, error)
}

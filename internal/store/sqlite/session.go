package sqlite

import (
	"context"
	"errors"
	"time"

	"reclamai/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRepository implements the SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepo creates a new sessionRepository.
func NewSessionRepo(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

// Save inserts or updates a session keyed by session_id.
func (r *sessionRepository) Save(ctx context.Context, s *model.NegotiationSessionModel) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	now := time.Now().Unix()
	if s.CreatedAtUnix == 0 {
		s.CreatedAtUnix = now
	}
	s.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Save(s).Error
}

// FindByID finds a session, nil when absent.
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*model.NegotiationSessionModel, error) {
	var s model.NegotiationSessionModel
	err := r.db.WithContext(ctx).Where("session_id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByObligation returns the obligation's sessions, newest first.
func (r *sessionRepository) ListByObligation(ctx context.Context, obligationID string) ([]model.NegotiationSessionModel, error) {
	var out []model.NegotiationSessionModel
	if err := r.db.WithContext(ctx).
		Where("obligation_id = ?", obligationID).
		Order("created_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

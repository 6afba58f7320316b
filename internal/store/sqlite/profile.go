package sqlite

import (
	"context"
	"errors"
	"time"

	"reclamai/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileRepository implements the ProfileRepository interface.
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepo creates a new profileRepository.
func NewProfileRepo(db *gorm.DB) *profileRepository {
	return &profileRepository{db: db}
}

// Save inserts or updates a debtor profile keyed by debtor_id.
func (r *profileRepository) Save(ctx context.Context, profile *model.DebtorProfileModel) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}
	now := time.Now().Unix()
	if profile.CreatedAtUnix == 0 {
		profile.CreatedAtUnix = now
	}
	profile.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "debtor_id"}},
		UpdateAll: true,
	}).Save(profile).Error
}

// FindByID finds a profile by debtor id, nil when absent.
func (r *profileRepository) FindByID(ctx context.Context, debtorID string) (*model.DebtorProfileModel, error) {
	var profile model.DebtorProfileModel
	err := r.db.WithContext(ctx).Where("debtor_id = ?", debtorID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

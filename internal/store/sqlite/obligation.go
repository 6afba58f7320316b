package sqlite

import (
	"context"
	"errors"
	"time"

	"reclamai/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// obligationRepository implements the ObligationRepository interface.
type obligationRepository struct {
	db *gorm.DB
}

// NewObligationRepo creates a new obligationRepository.
func NewObligationRepo(db *gorm.DB) *obligationRepository {
	return &obligationRepository{db: db}
}

// Save inserts or updates an obligation keyed by obligation_id.
func (r *obligationRepository) Save(ctx context.Context, ob *model.ObligationModel) error {
	if ob == nil {
		return errors.New("obligation cannot be nil")
	}
	now := time.Now().Unix()
	if ob.CreatedAtUnix == 0 {
		ob.CreatedAtUnix = now
	}
	ob.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "obligation_id"}},
		UpdateAll: true,
	}).Save(ob).Error
}

// FindByID finds an obligation, nil when absent.
func (r *obligationRepository) FindByID(ctx context.Context, id string) (*model.ObligationModel, error) {
	var ob model.ObligationModel
	err := r.db.WithContext(ctx).Where("obligation_id = ?", id).First(&ob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ob, nil
}

// ListByDebtor returns the debtor's obligations in ledger ingestion order.
func (r *obligationRepository) ListByDebtor(ctx context.Context, debtorID string) ([]model.ObligationModel, error) {
	var out []model.ObligationModel
	if err := r.db.WithContext(ctx).
		Where("debtor_id = ?", debtorID).
		Order("seq ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

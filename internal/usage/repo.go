package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository appends and counts immutable usage rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, record *models.UsageRecord) error
	CountByAccountAction(ctx context.Context, accountID uuid.UUID, actionKind string) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.UsageRecord, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, record *models.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CountByAccountAction(ctx context.Context, accountID uuid.UUID, actionKind string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UsageRecord{}).
		Where("account_id = ? AND action_kind = ?", accountID, actionKind).
		Count(&count).Error
	return count, err
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

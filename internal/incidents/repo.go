package incidents

import (
	"context"

	"github.com/wjtan-dev/blockwatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads and replaces incident rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLatestByNormalized(ctx context.Context, normalized string) (*models.Incident, error)
	FindLatestContaining(ctx context.Context, normalized string) (*models.Incident, error)
	CountAll(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
	InsertBatch(ctx context.Context, rows []models.Incident) error
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

func (r *repository) FindLatestByNormalized(ctx context.Context, normalized string) (*models.Incident, error) {
	var incident models.Incident
	err := r.db.WithContext(ctx).
		Where("location_normalized = ?", normalized).
		Order("date_reported DESC").
		First(&incident).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *repository) FindLatestContaining(ctx context.Context, normalized string) (*models.Incident, error) {
	var incident models.Incident
	err := r.db.WithContext(ctx).
		Where("location_normalized LIKE ?", "%"+normalized+"%").
		Order("date_reported DESC").
		First(&incident).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Incident{}).Count(&count).Error
	return count, err
}

func (r *repository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Incident{}).Error
}

func (r *repository) InsertBatch(ctx context.Context, rows []models.Incident) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/tariff-storefront/models"
	"gorm.io/gorm"
)

// ImportRunRepositoryImpl implements ImportRunRepository interface
type ImportRunRepositoryImpl struct {
	*BaseRepository[models.ImportRun, models.ImportRunFilter]
}

// NewImportRunRepository creates a new import journal repository
func NewImportRunRepository(db *gorm.DB) ImportRunRepository {
	return &ImportRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ImportRun, models.ImportRunFilter](db),
	}
}

func (r *ImportRunRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.ImportRun, error) {
	db := r.getDB(ctx)

	var run models.ImportRun
	err := db.Where("uuid = ?", uuid).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find import run by uuid: %w", err)
	}

	return &run, nil
}

func (r *ImportRunRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	db := r.getDB(ctx)

	var runs []*models.ImportRun
	if err := db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}

	return runs, nil
}

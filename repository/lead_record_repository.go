package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/tariff-storefront/models"
	"gorm.io/gorm"
)

// LeadRecordRepositoryImpl implements LeadRecordRepository interface
type LeadRecordRepositoryImpl struct {
	*BaseRepository[models.LeadRecord, models.LeadRecordFilter]
}

// NewLeadRecordRepository creates a new lead journal repository
func NewLeadRecordRepository(db *gorm.DB) LeadRecordRepository {
	return &LeadRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadRecord, models.LeadRecordFilter](db),
	}
}

func (r *LeadRecordRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.LeadRecord, error) {
	db := r.getDB(ctx)

	var record models.LeadRecord
	err := db.Where("uuid = ?", uuid).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead record by uuid: %w", err)
	}

	return &record, nil
}

// UpdateStatus records the outcome of forwarding a lead to the backend
func (r *LeadRecordRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status string, errMsg *string) error {
	db, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	err = db.Model(&models.LeadRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "error": errMsg}).Error
	if err != nil {
		err = fmt.Errorf("failed to update lead record status: %w", err)
	}
	return finish(db, err)
}

// ByFilter lists lead records newest first
func (r *LeadRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadRecordFilter, limit, offset int) ([]*models.LeadRecord, error) {
	query := r.getDB(ctx).Model(&models.LeadRecord{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	var records []*models.LeadRecord
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lead records: %w", err)
	}

	return records, nil
}

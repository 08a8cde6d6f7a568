// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/tariff-storefront/models"
)

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
}

// LeadRecordRepository defines operations for the lead journal
type LeadRecordRepository interface {
	Repository[models.LeadRecord, models.LeadRecordFilter]
	ByUUID(ctx context.Context, uuid string) (*models.LeadRecord, error)
	UpdateStatus(ctx context.Context, id uint, status string, errMsg *string) error
	ByFilter(ctx context.Context, filter models.LeadRecordFilter, limit, offset int) ([]*models.LeadRecord, error)
}

// ImportRunRepository defines operations for the import journal
type ImportRunRepository interface {
	Repository[models.ImportRun, models.ImportRunFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ImportRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.ImportRun, error)
}

package testing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/amirphl/tariff-storefront/models"
)

// FakeLeadRepository is an in-memory repository.LeadRecordRepository
type FakeLeadRepository struct {
	mu      sync.Mutex
	records []*models.LeadRecord
	SaveErr error
	Now     func() time.Time
}

func NewFakeLeadRepository() *FakeLeadRepository {
	return &FakeLeadRepository{Now: time.Now}
}

func (r *FakeLeadRepository) ByID(ctx context.Context, id uint) (*models.LeadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

// Save assigns the next ID and stamps CreatedAt when it is zero
func (r *FakeLeadRepository) Save(ctx context.Context, entity *models.LeadRecord) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entity.ID = uint(len(r.records) + 1)
	if entity.CreatedAt.IsZero() && r.Now != nil {
		entity.CreatedAt = r.Now()
		entity.UpdatedAt = entity.CreatedAt
	}
	r.records = append(r.records, entity)
	return nil
}

func (r *FakeLeadRepository) Update(ctx context.Context, entity *models.LeadRecord) error {
	return nil
}

func (r *FakeLeadRepository) ByUUID(ctx context.Context, id string) (*models.LeadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UUID.String() == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *FakeLeadRepository) UpdateStatus(ctx context.Context, id uint, status string, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = status
			rec.Error = errMsg
		}
	}
	return nil
}

// ByFilter matches the SQL repository: newest first, then offset and limit
func (r *FakeLeadRepository) ByFilter(ctx context.Context, filter models.LeadRecordFilter, limit, offset int) ([]*models.LeadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.LeadRecord
	for _, rec := range slices.Backward(r.records) {
		switch {
		case filter.Status != nil && rec.Status != *filter.Status:
		case filter.Phone != nil && rec.Phone != *filter.Phone:
		case filter.CreatedAfter != nil && rec.CreatedAt.Before(*filter.CreatedAfter):
		case filter.CreatedBefore != nil && rec.CreatedAt.After(*filter.CreatedBefore):
		default:
			out = append(out, rec)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

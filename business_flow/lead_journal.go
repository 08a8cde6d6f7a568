package businessflow

import (
	"context"
	"slices"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/models"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var leadStatuses = []string{models.LeadStatusPending, models.LeadStatusForwarded, models.LeadStatusFailed}

// ListJournal pages through journaled leads, newest first
func (f *LeadFlowImpl) ListJournal(ctx context.Context, filter dto.LeadJournalFilter) (*dto.LeadJournalResponse, error) {
	if f.leadRepo == nil {
		return nil, NewBusinessError("LEAD_JOURNAL_DISABLED", "lead journal is not enabled", ErrLeadJournalDisabled)
	}

	fields := map[string]string{}
	query := models.LeadRecordFilter{
		Status:        filter.Status,
		CreatedAfter:  filter.StartDate,
		CreatedBefore: filter.EndDate,
	}
	if filter.Status != nil && !slices.Contains(leadStatuses, *filter.Status) {
		fields["status"] = "status must be one of pending, forwarded, failed"
	}
	if filter.Phone != nil {
		phone := utils.NormalizePhone(*filter.Phone)
		if phone == "" {
			fields["phone"] = "phone must be a valid Russian mobile number"
		}
		query.Phone = &phone
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		fields["end_date"] = "end_date must not be before start_date"
	}
	if len(fields) > 0 {
		return nil, NewValidationError(ErrLeadValidation, fields)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = utils.LeadJournalPageSize
	}
	limit = min(limit, utils.LeadJournalMaxPageSize)
	offset := max(filter.Offset, 0)

	records, err := f.leadRepo.ByFilter(ctx, query, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEAD_JOURNAL_FAILED", "failed to list leads", err)
	}
	return &dto.LeadJournalResponse{
		Leads:  lo.Map(records, func(r *models.LeadRecord, _ int) dto.LeadJournalEntry { return recordToEntry(r) }),
		Limit:  limit,
		Offset: offset,
	}, nil
}

// JournalEntry looks up one journaled lead by the id returned to the visitor
func (f *LeadFlowImpl) JournalEntry(ctx context.Context, id string) (*dto.LeadJournalEntry, error) {
	if f.leadRepo == nil {
		return nil, NewBusinessError("LEAD_JOURNAL_DISABLED", "lead journal is not enabled", ErrLeadJournalDisabled)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "lead not found", ErrLeadNotFound)
	}

	record, err := f.leadRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LEAD_JOURNAL_FAILED", "failed to load lead", err)
	}
	if record == nil {
		return nil, NewBusinessError("LEAD_NOT_FOUND", "lead not found", ErrLeadNotFound)
	}
	entry := recordToEntry(record)
	return &entry, nil
}

func recordToEntry(r *models.LeadRecord) dto.LeadJournalEntry {
	return dto.LeadJournalEntry{
		ID:        r.UUID.String(),
		Type:      r.Type,
		Name:      r.Name,
		Phone:     r.Phone,
		Address:   utils.Deref(r.Address),
		HouseType: utils.Deref(r.HouseType),
		CallTime:  utils.Deref(r.CallTime),
		Comment:   utils.Deref(r.Comment),
		CitySlug:  utils.Deref(r.CitySlug),
		Source:    r.Source,
		Status:    r.Status,
		Error:     utils.Deref(r.Error),
		IPAddress: utils.Deref(r.IPAddress),
		UserAgent: utils.Deref(r.UserAgent),
		RequestID: utils.Deref(r.RequestID),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/models"
	"github.com/amirphl/tariff-storefront/repository"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Lead sources recorded in the journal
const (
	LeadSourceForm   = "form"
	LeadSourceWizard = "wizard"
)

// LeadStatusAccepted is what visitors see regardless of the backend outcome
const LeadStatusAccepted = "accepted"

// LeadFlow accepts leads, journals them and forwards them to the tariff backend
type LeadFlow interface {
	Submit(ctx context.Context, req *dto.LeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error)
	Forward(ctx context.Context, lead dto.Lead, source, citySlug string, metadata *ClientMetadata) string
	ListJournal(ctx context.Context, filter dto.LeadJournalFilter) (*dto.LeadJournalResponse, error)
	JournalEntry(ctx context.Context, id string) (*dto.LeadJournalEntry, error)
}

type LeadFlowImpl struct {
	api       services.TariffAPIClient
	leadRepo  repository.LeadRecordRepository
	validator *validator.Validate
}

// NewLeadFlow wires the flow. leadRepo may be nil when the database is disabled.
func NewLeadFlow(api services.TariffAPIClient, leadRepo repository.LeadRecordRepository, v *validator.Validate) LeadFlow {
	if v == nil {
		v = utils.NewValidator()
	}
	return &LeadFlowImpl{
		api:       api,
		leadRepo:  leadRepo,
		validator: v,
	}
}

func (f *LeadFlowImpl) Submit(ctx context.Context, req *dto.LeadRequest, metadata *ClientMetadata) (*dto.LeadResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	if err := f.validator.Struct(req); err != nil {
		return nil, NewValidationError(ErrLeadValidation, utils.ValidationMessages(err))
	}

	lead := dto.Lead{
		Type:      strings.TrimSpace(req.Type),
		Name:      strings.TrimSpace(req.Name),
		Phone:     utils.NormalizePhone(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		HouseType: req.HouseType,
		CallTime:  strings.TrimSpace(req.CallTime),
		Comment:   strings.TrimSpace(req.Comment),
	}

	leadID := f.Forward(ctx, lead, LeadSourceForm, "", metadata)
	return &dto.LeadResponse{
		LeadID:   leadID,
		Status:   LeadStatusAccepted,
		Redirect: utils.CompletionPath,
	}, nil
}

// Forward journals the lead, posts it to the backend and records the outcome.
// Failures are logged and never returned; the visitor always reaches the completion page.
func (f *LeadFlowImpl) Forward(ctx context.Context, lead dto.Lead, source, citySlug string, metadata *ClientMetadata) string {
	leadID := uuid.New()
	logger := log.With().
		Str("lead_id", leadID.String()).
		Str("source", source).
		Str("request_id", metadata.requestID()).
		Logger()

	record := f.journal(ctx, leadID, lead, source, citySlug, metadata)

	status := models.LeadStatusForwarded
	var errMsg *string
	if err := f.api.SubmitLead(ctx, lead); err != nil {
		status = models.LeadStatusFailed
		errMsg = utils.ToPtr(utils.Truncate(err.Error(), 1000))
		logger.Error().Err(err).Msg("Lead forwarding failed")
	} else {
		logger.Info().Str("type", lead.Type).Msg("Lead forwarded")
	}
	leadsSubmittedTotal.WithLabelValues(status).Inc()

	if record != nil {
		if err := f.leadRepo.UpdateStatus(ctx, record.ID, status, errMsg); err != nil {
			logger.Warn().Err(err).Msg("Failed to update lead journal")
		}
	}
	return leadID.String()
}

func (f *LeadFlowImpl) journal(ctx context.Context, leadID uuid.UUID, lead dto.Lead, source, citySlug string, metadata *ClientMetadata) *models.LeadRecord {
	if f.leadRepo == nil {
		return nil
	}
	record := &models.LeadRecord{
		UUID:      leadID,
		Type:      utils.Truncate(lead.Type, 255),
		Name:      lead.Name,
		Phone:     lead.Phone,
		Address:   optional(lead.Address),
		HouseType: optional(lead.HouseType),
		CallTime:  optional(lead.CallTime),
		Comment:   optional(lead.Comment),
		CitySlug:  optional(citySlug),
		Source:    source,
		Status:    models.LeadStatusPending,
		IPAddress: optional(metadata.ip()),
		UserAgent: optional(utils.Truncate(metadata.userAgent(), 512)),
		RequestID: optional(metadata.requestID()),
	}
	if err := f.leadRepo.Save(ctx, record); err != nil {
		log.Warn().Err(err).Str("lead_id", leadID.String()).Msg("Failed to journal lead")
		return nil
	}
	return record
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

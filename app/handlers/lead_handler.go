package handlers

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

type LeadHandlerInterface interface {
	Submit(c fiber.Ctx) error
	Journal(c fiber.Ctx) error
	JournalEntry(c fiber.Ctx) error
}

type LeadHandler struct {
	baseHandler
	leads businessflow.LeadFlow
}

func NewLeadHandler(leads businessflow.LeadFlow) LeadHandlerInterface {
	return &LeadHandler{
		baseHandler: newBaseHandler(),
		leads:       leads,
	}
}

// Submit accepts a callback or connection request.
// The answer is "accepted" even when the tariff backend rejects the lead.
// @Summary Submit lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body dto.LeadRequest true "Lead"
// @Success 202 {object} dto.APIResponse{data=dto.LeadResponse}
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Router /api/v1/leads [post]
func (h *LeadHandler) Submit(c fiber.Ctx) error {
	var req dto.LeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	result, err := h.leads.Submit(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.HandleError(c, err, "Failed to submit lead")
	}
	return h.SuccessResponse(c, fiber.StatusAccepted, "Lead accepted", result)
}

// Journal lists journaled leads for the admin panel
// @Summary List journaled leads
// @Tags Admin Leads
// @Produce json
// @Param status query string false "pending|forwarded|failed"
// @Param phone query string false "Phone in any accepted format"
// @Param start_date query string false "created_at >= start_date (RFC3339)"
// @Param end_date query string false "created_at <= end_date (RFC3339)"
// @Param limit query int false "Page size"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} dto.APIResponse{data=dto.LeadJournalResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Database disabled"
// @Router /api/v1/admin/leads [get]
func (h *LeadHandler) Journal(c fiber.Ctx) error {
	var filter dto.LeadJournalFilter
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if phone := c.Query("phone"); phone != "" {
		filter.Phone = &phone
	}
	var ok bool
	if filter.StartDate, ok = queryTime(c, "start_date"); !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid start_date format", "INVALID_DATE", nil)
	}
	if filter.EndDate, ok = queryTime(c, "end_date"); !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid end_date format", "INVALID_DATE", nil)
	}
	if filter.Limit, ok = queryCount(c, "limit"); !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "limit must be a non-negative number", "VALIDATION_ERROR", map[string]string{"limit": "limit must be a non-negative number"})
	}
	if filter.Offset, ok = queryCount(c, "offset"); !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "offset must be a non-negative number", "VALIDATION_ERROR", map[string]string{"offset": "offset must be a non-negative number"})
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/leads")
	defer cancel()

	result, err := h.leads.ListJournal(ctx, filter)
	if err != nil {
		return h.HandleError(c, err, "Failed to list leads")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved", result)
}

func (h *LeadHandler) JournalEntry(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/leads/:id")
	defer cancel()

	result, err := h.leads.JournalEntry(ctx, c.Params("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to load lead")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved", result)
}

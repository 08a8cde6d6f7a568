package handlers

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

type WizardHandlerInterface interface {
	Start(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Next(c fiber.Ctx) error
	Prev(c fiber.Ctx) error
	Submit(c fiber.Ctx) error
}

type WizardHandler struct {
	baseHandler
	wizard businessflow.WizardFlow
}

func NewWizardHandler(wizard businessflow.WizardFlow) WizardHandlerInterface {
	return &WizardHandler{
		baseHandler: newBaseHandler(),
		wizard:      wizard,
	}
}

// Start opens an order wizard for a city
// @Summary Start order wizard
// @Tags Wizard
// @Accept json
// @Produce json
// @Param request body dto.WizardStartRequest true "City and optional preselected category"
// @Success 201 {object} dto.APIResponse{data=dto.WizardResponse}
// @Failure 404 {object} dto.APIResponse "City not found"
// @Router /api/v1/wizard [post]
func (h *WizardHandler) Start(c fiber.Ctx) error {
	var req dto.WizardStartRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/wizard")
	defer cancel()

	result, err := h.wizard.Start(ctx, &req)
	if err != nil {
		return h.HandleError(c, err, "Failed to start wizard")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Wizard started", result)
}

func (h *WizardHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/wizard/:id")
	defer cancel()

	result, err := h.wizard.Get(ctx, c.Params("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to load wizard")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Wizard retrieved", result)
}

// Next merges the step fields and advances. Field errors come back as VALIDATION_ERROR details.
func (h *WizardHandler) Next(c fiber.Ctx) error {
	var req dto.WizardStepRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/wizard/:id/next")
	defer cancel()

	result, err := h.wizard.Next(ctx, c.Params("id"), &req)
	if err != nil {
		return h.HandleError(c, err, "Failed to advance wizard")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Step accepted", result)
}

func (h *WizardHandler) Prev(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/wizard/:id/prev")
	defer cancel()

	result, err := h.wizard.Prev(ctx, c.Params("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to go back")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Step reverted", result)
}

// Submit sends the order and discards the wizard
func (h *WizardHandler) Submit(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/wizard/:id/submit")
	defer cancel()

	result, err := h.wizard.Submit(ctx, c.Params("id"), h.clientMetadata(c))
	if err != nil {
		return h.HandleError(c, err, "Failed to submit order")
	}
	return h.SuccessResponse(c, fiber.StatusAccepted, "Order accepted", result)
}

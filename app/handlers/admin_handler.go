package handlers

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/middleware"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
)

// AdminHandlerInterface defines the contract for admin session and tariff CRUD handlers
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ListTariffs(c fiber.Ctx) error
	UpdateTariff(c fiber.Ctx) error
	PatchTariff(c fiber.Ctx) error
	DeleteTariff(c fiber.Ctx) error
	AddTariff(c fiber.Ctx) error
	MassDelete(c fiber.Ctx) error
	MassHide(c fiber.Ctx) error
}

type AdminHandler struct {
	baseHandler
	flow businessflow.AdminFlow
}

func NewAdminHandler(flow businessflow.AdminFlow) AdminHandlerInterface {
	return &AdminHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// session returns the admin session placed by AdminAuthenticate
func (h *AdminHandler) session(c fiber.Ctx) (*dto.AdminSession, error) {
	session, ok := middleware.GetAdminSession(c)
	if !ok {
		return nil, h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin authentication required", "ADMIN_AUTHENTICATION_REQUIRED", nil)
	}
	return session, nil
}

// tariffRef reads :city/:service/:id and validates it
func (h *AdminHandler) tariffRef(c fiber.Ctx, withID bool) (dto.TariffRef, bool, error) {
	ref := dto.TariffRef{City: c.Params("city"), Service: c.Params("service"), ID: 1}
	if withID {
		id, ok := paramInt(c, "id")
		if !ok {
			return ref, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tariff id", "INVALID_TARIFF_ID", nil)
		}
		ref.ID = id
	}
	if err := h.validator.Struct(&ref); err != nil {
		return ref, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", utils.ValidationMessages(err))
	}
	return ref, true, nil
}

// Login authenticates against the admin backend and opens a session
// @Summary Admin login
// @Tags Admin Authentication
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Admin credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AdminLoginResponse} "Login successful"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 502 {object} dto.APIResponse "Admin backend unavailable"
// @Router /api/v1/admin/login [post]
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.HandleError(c, err, "Login failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

func (h *AdminHandler) Logout(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/logout")
	defer cancel()

	if err := h.flow.Logout(ctx, session.ID); err != nil {
		return h.HandleError(c, err, "Logout failed")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}

// ListTariffs returns the whole dataset, hidden tariffs included
func (h *AdminHandler) ListTariffs(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs")
	defer cancel()

	result, err := h.flow.ListAll(ctx, session)
	if err != nil {
		return h.HandleError(c, err, "Failed to list tariffs")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariffs retrieved", result)
}

func (h *AdminHandler) UpdateTariff(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	ref, ok, err := h.tariffRef(c, true)
	if !ok {
		return err
	}
	var tariff dto.Tariff
	if err := c.Bind().JSON(&tariff); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/:city/:service/:id")
	defer cancel()

	result, err := h.flow.UpdateTariff(ctx, session, ref, tariff)
	if err != nil {
		return h.HandleError(c, err, "Failed to update tariff")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariff updated", result)
}

func (h *AdminHandler) PatchTariff(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	ref, ok, err := h.tariffRef(c, true)
	if !ok {
		return err
	}
	var patch dto.TariffPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/:city/:service/:id")
	defer cancel()

	result, err := h.flow.PatchTariff(ctx, session, ref, patch)
	if err != nil {
		return h.HandleError(c, err, "Failed to patch tariff")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariff updated", result)
}

func (h *AdminHandler) DeleteTariff(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	ref, ok, err := h.tariffRef(c, true)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/:city/:service/:id")
	defer cancel()

	result, err := h.flow.DeleteTariff(ctx, session, ref)
	if err != nil {
		return h.HandleError(c, err, "Failed to delete tariff")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariff deleted", result)
}

func (h *AdminHandler) AddTariff(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	ref, ok, err := h.tariffRef(c, false)
	if !ok {
		return err
	}
	var tariff dto.Tariff
	if err := c.Bind().JSON(&tariff); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/:city/:service")
	defer cancel()

	result, err := h.flow.AddTariff(ctx, session, ref.City, ref.Service, tariff)
	if err != nil {
		return h.HandleError(c, err, "Failed to add tariff")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Tariff added", result)
}

func (h *AdminHandler) MassDelete(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	var req dto.AdminMassDeleteRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/mass-delete")
	defer cancel()

	result, err := h.flow.MassDelete(ctx, session, req.Items)
	if err != nil {
		return h.HandleError(c, err, "Failed to delete tariffs")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariffs deleted", result)
}

func (h *AdminHandler) MassHide(c fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	var req dto.AdminMassHideRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/tariffs/mass-hide")
	defer cancel()

	result, err := h.flow.MassHide(ctx, session, req.Items, req.Hidden)
	if err != nil {
		return h.HandleError(c, err, "Failed to update tariff visibility")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariff visibility updated", result)
}

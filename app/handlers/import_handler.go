package handlers

import (
	"strconv"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/middleware"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

const (
	importFormField     = "file"
	defaultRecentLimit  = 20
	maxRecentLimit      = 100
	defaultMaxFileBytes = 20 << 20
)

type ImportHandlerInterface interface {
	Upload(c fiber.Ctx) error
	Status(c fiber.Ctx) error
	Cancel(c fiber.Ctx) error
	Recent(c fiber.Ctx) error
}

type ImportHandler struct {
	baseHandler
	imports     businessflow.ImportFlow
	maxFileSize int64
}

func NewImportHandler(imports businessflow.ImportFlow, maxFileSize int) ImportHandlerInterface {
	limit := int64(maxFileSize)
	if limit <= 0 {
		limit = defaultMaxFileBytes
	}
	return &ImportHandler{
		baseHandler: newBaseHandler(),
		imports:     imports,
		maxFileSize: limit,
	}
}

// Upload parses an Excel workbook and starts uploading it in the background
// @Summary Start tariff import
// @Tags Admin Import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Excel workbook"
// @Success 202 {object} dto.APIResponse{data=dto.ImportStartResponse}
// @Failure 400 {object} dto.APIResponse "File missing or unreadable"
// @Router /api/v1/admin/import [post]
func (h *ImportHandler) Upload(c fiber.Ctx) error {
	session, ok := middleware.GetAdminSession(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Admin authentication required", "ADMIN_AUTHENTICATION_REQUIRED", nil)
	}

	header, err := c.FormFile(importFormField)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Excel file is required", "IMPORT_FILE_INVALID", map[string]string{importFormField: "file is required"})
	}
	if header.Size > h.maxFileSize {
		return h.ErrorResponse(c, fiber.StatusRequestEntityTooLarge, "Excel file is too large", "IMPORT_FILE_TOO_LARGE", fiber.Map{"max_bytes": h.maxFileSize})
	}

	file, err := header.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Excel file could not be read", "IMPORT_FILE_INVALID", nil)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close uploaded workbook")
		}
	}()

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/import")
	defer cancel()

	result, err := h.imports.Start(ctx, session, header.Filename, file)
	if err != nil {
		return h.HandleError(c, err, "Failed to start import")
	}
	return h.SuccessResponse(c, fiber.StatusAccepted, "Import started", result)
}

func (h *ImportHandler) Status(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/import/:id")
	defer cancel()

	result, err := h.imports.Status(ctx, c.Params("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to load import")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Import retrieved", result)
}

// Cancel aborts a running import; chunks already sent stay uploaded
func (h *ImportHandler) Cancel(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/import/:id")
	defer cancel()

	result, err := h.imports.Cancel(ctx, c.Params("id"))
	if err != nil {
		return h.HandleError(c, err, "Failed to cancel import")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Import canceled", result)
}

func (h *ImportHandler) Recent(c fiber.Ctx) error {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "limit must be a positive number", "VALIDATION_ERROR", map[string]string{"limit": "limit must be a positive number"})
		}
		limit = min(v, maxRecentLimit)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/import")
	defer cancel()

	runs, err := h.imports.Recent(ctx, limit)
	if err != nil {
		return h.HandleError(c, err, "Failed to list imports")
	}
	if runs == nil {
		runs = []dto.ImportStatusResponse{}
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Imports retrieved", runs)
}

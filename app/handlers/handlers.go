// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response envelope and request plumbing shared by every handler
type baseHandler struct {
	validator *validator.Validate
	timeout   time.Duration
}

func newBaseHandler() baseHandler {
	return baseHandler{
		validator: utils.NewValidator(),
		timeout:   defaultRequestTimeout,
	}
}

// ErrorResponse standard JSON error
func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// createRequestContext detaches flow work from the fasthttp request and stamps request-scoped values
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	timeout := h.timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, clientIP(c))
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

func clientIP(c fiber.Ctx) string {
	return utils.NormalizeIP(c.IP())
}

func (h *baseHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(clientIP(c), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	return metadata
}

// bindJSON decodes and validates a request body, answering 400 itself on failure.
// ok is false when a response has already been written.
func (h *baseHandler) bindJSON(c fiber.Ctx, out any) (bool, error) {
	if err := c.Bind().JSON(out); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(out); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", utils.ValidationMessages(err))
	}
	return true, nil
}

func paramInt(c fiber.Ctx, name string) (int, bool) {
	v, err := strconv.Atoi(c.Params(name))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// queryTime parses an optional RFC3339 query value
func queryTime(c fiber.Ctx, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// queryCount parses an optional non-negative integer query value
func queryCount(c fiber.Ctx, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// errorStatus maps flow errors to an HTTP status and a fallback error code
func errorStatus(err error) (int, string) {
	switch {
	case businessflow.IsCityNotFound(err):
		return fiber.StatusNotFound, "CITY_NOT_FOUND"
	case businessflow.IsServiceNotFound(err):
		return fiber.StatusNotFound, "SERVICE_NOT_FOUND"
	case businessflow.IsCityUnavailable(err):
		return fiber.StatusNotFound, "CITY_UNAVAILABLE"
	case businessflow.IsWizardNotFound(err):
		return fiber.StatusNotFound, "WIZARD_NOT_FOUND"
	case businessflow.IsImportNotFound(err):
		return fiber.StatusNotFound, "IMPORT_NOT_FOUND"
	case businessflow.IsLeadNotFound(err):
		return fiber.StatusNotFound, "LEAD_NOT_FOUND"
	case businessflow.IsInvalidCityName(err):
		return fiber.StatusBadRequest, "INVALID_CITY_NAME"
	case businessflow.IsInvalidCategory(err):
		return fiber.StatusBadRequest, "INVALID_CATEGORY"
	case businessflow.IsEmptySelection(err):
		return fiber.StatusBadRequest, "EMPTY_SELECTION"
	case businessflow.IsImportFileInvalid(err), businessflow.IsImportEmpty(err):
		return fiber.StatusBadRequest, "IMPORT_FILE_INVALID"
	case businessflow.IsWizardNotReady(err):
		return fiber.StatusConflict, "WIZARD_NOT_READY"
	case businessflow.IsImportAlreadyFinished(err):
		return fiber.StatusConflict, "IMPORT_ALREADY_FINISHED"
	case businessflow.IsInvalidCredentials(err):
		return fiber.StatusUnauthorized, "INVALID_CREDENTIALS"
	case businessflow.IsSessionExpired(err):
		return fiber.StatusUnauthorized, "SESSION_EXPIRED"
	case businessflow.IsSessionNotFound(err):
		return fiber.StatusUnauthorized, "SESSION_NOT_FOUND"
	case businessflow.IsUpstreamUnavailable(err):
		return fiber.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	case businessflow.IsCacheNotAvailable(err):
		return fiber.StatusServiceUnavailable, "CACHE_NOT_AVAILABLE"
	case businessflow.IsLeadJournalDisabled(err):
		return fiber.StatusServiceUnavailable, "LEAD_JOURNAL_DISABLED"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "TIMEOUT"
	default:
		return fiber.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// HandleError writes the envelope for an error returned by a business flow
func (h *baseHandler) HandleError(c fiber.Ctx, err error, fallbackMessage string) error {
	if fields, ok := businessflow.ValidationFields(err); ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", fields)
	}

	status, code := errorStatus(err)
	message := fallbackMessage
	var bErr *businessflow.BusinessError
	if errors.As(err, &bErr) {
		if bErr.Code != "" && status != fiber.StatusInternalServerError {
			code = bErr.Code
		}
		if bErr.Message != "" && status < fiber.StatusInternalServerError {
			message = bErr.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("request_id", requestID(c)).Msg(fallbackMessage)
	}
	return h.ErrorResponse(c, status, message, code, nil)
}

package handlers

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/middleware"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
)

type VisitorHandlerInterface interface {
	ChooseCity(c fiber.Ctx) error
	SetSupportOnly(c fiber.Ctx) error
}

// CookieOptions are applied to every visitor cookie the handler sets
type CookieOptions struct {
	Secure   bool
	SameSite string
}

type VisitorHandler struct {
	baseHandler
	resolution businessflow.CityResolutionFlow
	cookies    CookieOptions
}

func NewVisitorHandler(resolution businessflow.CityResolutionFlow, cookies CookieOptions) VisitorHandlerInterface {
	if cookies.SameSite == "" {
		cookies.SameSite = "Lax"
	}
	return &VisitorHandler{
		baseHandler: newBaseHandler(),
		resolution:  resolution,
		cookies:     cookies,
	}
}

func (h *VisitorHandler) setCookie(c fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   utils.UserCityCookieMaxAge,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

// ChooseCity stores the city picked by the visitor and returns where to go next
// @Summary Choose city
// @Tags Visitor
// @Accept json
// @Produce json
// @Param request body dto.VisitorCityRequest true "City display name"
// @Success 200 {object} dto.APIResponse{data=dto.VisitorCityResponse}
// @Failure 404 {object} dto.APIResponse "City is not served"
// @Router /api/v1/visitor/city [post]
func (h *VisitorHandler) ChooseCity(c fiber.Ctx) error {
	var req dto.VisitorCityRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/visitor/city")
	defer cancel()

	result, err := h.resolution.ChooseCity(ctx, req.Name)
	if err != nil {
		return h.HandleError(c, err, "Failed to choose city")
	}

	h.setCookie(c, utils.UserCityCookie, utils.EncodeCityCookie(result.Name))
	return h.SuccessResponse(c, fiber.StatusOK, "City chosen", result)
}

// SetSupportOnly marks or unmarks the visitor as an existing subscriber
func (h *VisitorHandler) SetSupportOnly(c fiber.Ctx) error {
	var req dto.SupportOnlyRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	if req.Enabled {
		h.setCookie(c, utils.SupportOnlyCookie, "true")
	} else {
		c.ClearCookie(utils.SupportOnlyCookie)
	}

	visitor := middleware.GetVisitor(c)
	visitor.SupportOnly = req.Enabled
	return h.SuccessResponse(c, fiber.StatusOK, "Visitor updated", visitor.DTO())
}

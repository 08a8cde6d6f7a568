package handlers

import (
	"github.com/amirphl/tariff-storefront/app/middleware"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
)

// CatalogHandlerInterface defines the contract for the public catalog endpoints
type CatalogHandlerInterface interface {
	ListCities(c fiber.Ctx) error
	GetCity(c fiber.Ctx) error
	ListTariffs(c fiber.Ctx) error
	Regions(c fiber.Ctx) error
	Slug(c fiber.Ctx) error
	Page(c fiber.Ctx) error
}

type CatalogHandler struct {
	baseHandler
	catalog businessflow.CatalogFlow
}

func NewCatalogHandler(catalog businessflow.CatalogFlow) CatalogHandlerInterface {
	return &CatalogHandler{
		baseHandler: newBaseHandler(),
		catalog:     catalog,
	}
}

func tariffQuery(c fiber.Ctx) businessflow.TariffQuery {
	return businessflow.TariffQuery{
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
		Params:   c.Queries(),
	}
}

// ListCities lists every served city
// @Summary List cities
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.CitySummary}
// @Failure 502 {object} dto.APIResponse "Tariff backend unavailable"
// @Router /api/v1/cities [get]
func (h *CatalogHandler) ListCities(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/cities")
	defer cancel()

	cities, err := h.catalog.ListCities(ctx)
	if err != nil {
		return h.HandleError(c, err, "Failed to list cities")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Cities retrieved", cities)
}

// GetCity returns one city with its visible tariffs
// @Summary Get city
// @Tags Catalog
// @Produce json
// @Param slug path string true "City slug"
// @Success 200 {object} dto.APIResponse{data=dto.CityData}
// @Failure 404 {object} dto.APIResponse "City not found"
// @Router /api/v1/cities/{slug} [get]
func (h *CatalogHandler) GetCity(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/cities/:slug")
	defer cancel()

	city, err := h.catalog.GetCity(ctx, c.Params("slug"))
	if err != nil {
		return h.HandleError(c, err, "Failed to load city")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "City retrieved", city)
}

// ListTariffs filters and sorts the tariffs of one city.
// Query: category, sort and the sidebar filter params.
func (h *CatalogHandler) ListTariffs(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/cities/:slug/tariffs")
	defer cancel()

	listing, err := h.catalog.ListTariffs(ctx, c.Params("slug"), tariffQuery(c))
	if err != nil {
		return h.HandleError(c, err, "Failed to list tariffs")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tariffs retrieved", listing)
}

func (h *CatalogHandler) Regions(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/regions")
	defer cancel()

	result, err := h.catalog.SearchRegions(ctx, c.Query("q"))
	if err != nil {
		return h.HandleError(c, err, "Failed to load regions")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Regions retrieved", result)
}

func (h *CatalogHandler) Slug(c fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "name is required", "VALIDATION_ERROR", map[string]string{"name": "name is required"})
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/slug")
	defer cancel()

	result, err := h.catalog.ResolveSlug(ctx, name)
	if err != nil {
		return h.HandleError(c, err, "Failed to resolve slug")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Slug resolved", result)
}

// Page returns the model of a /:city/:service page
func (h *CatalogHandler) Page(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/:city/:service")
	defer cancel()

	visitor := middleware.GetVisitor(c)
	page, err := h.catalog.BuildPage(ctx, c.Params("city"), c.Params("service"), tariffQuery(c), visitor.DTO())
	if err != nil {
		return h.HandleError(c, err, "Failed to build page")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Page retrieved", page)
}

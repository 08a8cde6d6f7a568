package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/rs/zerolog/log"
)

// CityResolutionFlow decides which city a visitor lands on
type CityResolutionFlow interface {
	// ResolveHomeCity walks cookie → geo → default and returns the slug plus the deciding source
	ResolveHomeCity(ctx context.Context, cookieValue, clientIP string) (string, string)
	ChooseCity(ctx context.Context, name string) (*dto.VisitorCityResponse, error)
	DefaultPath() string
	CityPath(slug string) string
}

type CityResolutionFlowImpl struct {
	catalog        CatalogFlow
	geo            services.GeoClient
	geoEnabled     bool
	defaultCity    string
	defaultService string
}

func NewCityResolutionFlow(catalog CatalogFlow, geo services.GeoClient, geoEnabled bool, defaultCity, defaultService string) CityResolutionFlow {
	if defaultCity == "" {
		defaultCity = utils.DefaultCitySlug
	}
	if defaultService == "" {
		defaultService = utils.DefaultServiceSlug
	}
	return &CityResolutionFlowImpl{
		catalog:        catalog,
		geo:            geo,
		geoEnabled:     geoEnabled,
		defaultCity:    defaultCity,
		defaultService: defaultService,
	}
}

func (f *CityResolutionFlowImpl) DefaultPath() string {
	return fmt.Sprintf("/%s/%s", f.defaultCity, f.defaultService)
}

// CityPath is the landing page of a resolved city
func (f *CityResolutionFlowImpl) CityPath(slug string) string {
	return fmt.Sprintf("/%s/%s", slug, utils.CategoryInternet)
}

func (f *CityResolutionFlowImpl) fallback() (string, string) {
	cityResolutionsTotal.WithLabelValues(ResolutionSourceDefault).Inc()
	return f.defaultCity, ResolutionSourceDefault
}

func (f *CityResolutionFlowImpl) ResolveHomeCity(ctx context.Context, cookieValue, clientIP string) (string, string) {
	if !f.geoEnabled {
		return f.fallback()
	}

	var available map[string]string
	isAvailable := func(slug string) bool {
		if slug == "" {
			return false
		}
		if available == nil {
			cities, err := f.catalog.AvailableCities(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Available cities lookup failed, using default city")
				available = map[string]string{}
				return false
			}
			available = cities
		}
		_, ok := available[slug]
		return ok
	}

	if cookieValue != "" {
		if slug := utils.Slugify(utils.DecodeCityCookie(cookieValue)); isAvailable(slug) {
			cityResolutionsTotal.WithLabelValues(ResolutionSourceCookie).Inc()
			return slug, ResolutionSourceCookie
		}
	}

	if f.geo == nil || !utils.IsPublicIP(clientIP) {
		return f.fallback()
	}

	cityName, err := f.geo.LookupCity(ctx, clientIP)
	if err != nil {
		log.Warn().Err(err).Str("ip", clientIP).Msg("Geo lookup failed, using default city")
		return f.fallback()
	}
	if slug := utils.Slugify(cityName); isAvailable(slug) {
		cityResolutionsTotal.WithLabelValues(ResolutionSourceGeo).Inc()
		return slug, ResolutionSourceGeo
	}

	log.Debug().Str("city", cityName).Msg("Geo city is not served")
	return f.fallback()
}

// ChooseCity resolves a picker entry to an available city
func (f *CityResolutionFlowImpl) ChooseCity(ctx context.Context, name string) (*dto.VisitorCityResponse, error) {
	name = strings.TrimSpace(name)
	candidates := []string{
		utils.Slugify(name),
		utils.SlugifyWith(name, utils.SlugOptions{GenericPrefix: true}),
	}
	if candidates[0] == "" && candidates[1] == "" {
		return nil, NewBusinessErrorf("INVALID_CITY_NAME", "%q is not a city name", ErrInvalidCityName, name)
	}

	available, err := f.catalog.AvailableCities(ctx)
	if err != nil {
		return nil, err
	}
	for _, slug := range candidates {
		display, ok := available[slug]
		if !ok {
			continue
		}
		if display == "" {
			display = name
		}
		return &dto.VisitorCityResponse{
			Slug:     slug,
			Name:     display,
			Redirect: f.CityPath(slug),
		}, nil
	}
	return nil, NewBusinessErrorf("CITY_UNAVAILABLE", "city %q is not served", ErrCityUnavailable, name)
}

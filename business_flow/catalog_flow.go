package businessflow

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const regionsCacheKey = "catalog:regions"

// CatalogFlow resolves cities, services and tariff listings over the tariff backend
type CatalogFlow interface {
	ListCities(ctx context.Context) ([]dto.CitySummary, error)
	GetCity(ctx context.Context, slug string) (*dto.CityData, error)
	AvailableCities(ctx context.Context) (map[string]string, error)
	IsCityAvailable(ctx context.Context, slug string) (bool, error)
	FindCityCaseInsensitive(ctx context.Context, segment string) (string, bool, error)
	ResolveSlug(ctx context.Context, name string) (*dto.SlugResponse, error)
	ListRegions(ctx context.Context) ([]dto.Region, error)
	RefreshRegions(ctx context.Context) error
	SearchRegions(ctx context.Context, query string) (*dto.RegionSearchResponse, error)
	ListTariffs(ctx context.Context, slug string, q TariffQuery) (*dto.TariffListResponse, error)
	BuildPage(ctx context.Context, citySlug, serviceSlug string, q TariffQuery, visitor dto.VisitorDTO) (*dto.PageResponse, error)
}

// TariffQuery is the listing request of one city
type TariffQuery struct {
	Category string
	Sort     string
	Params   map[string]string
}

type CatalogFlowImpl struct {
	api        services.TariffAPIClient
	cache      services.KVStore
	regionsTTL time.Duration
}

func NewCatalogFlow(api services.TariffAPIClient, cache services.KVStore, regionsTTL time.Duration) CatalogFlow {
	return &CatalogFlowImpl{
		api:        api,
		cache:      cache,
		regionsTTL: regionsTTL,
	}
}

func upstreamError(message string, err error) error {
	return NewBusinessError("UPSTREAM_UNAVAILABLE", message, errors.Join(ErrUpstreamUnavailable, err))
}

// HasService reports whether a city offers a category
func HasService(city *dto.CityData, category string) bool {
	if city == nil {
		return false
	}
	_, ok := city.Services[category]
	return ok
}

// withoutHidden returns a copy of the city with hidden tariffs removed
func withoutHidden(city dto.CityData) dto.CityData {
	out := city
	out.Services = make(map[string]dto.Service, len(city.Services))
	for key, svc := range city.Services {
		svc.Tariffs = lo.Reject(svc.Tariffs, func(t dto.Tariff, _ int) bool { return t.Hidden })
		out.Services[key] = svc
	}
	return out
}

func serviceKeys(city dto.CityData) []string {
	keys := lo.Keys(city.Services)
	sort.Slice(keys, func(i, j int) bool {
		oi, oj := categoryOrder(keys[i]), categoryOrder(keys[j])
		if oi != oj {
			return oi < oj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (f *CatalogFlowImpl) ListCities(ctx context.Context) ([]dto.CitySummary, error) {
	cities, err := f.api.ListCities(ctx)
	if err != nil {
		return nil, upstreamError("failed to list cities", err)
	}

	out := make([]dto.CitySummary, 0, len(cities))
	for _, c := range cities {
		out = append(out, dto.CitySummary{
			Slug:     c.Slug,
			Name:     c.Meta.Name,
			Region:   c.Meta.Region,
			Services: serviceKeys(c),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetCity returns one city without its hidden tariffs
func (f *CatalogFlowImpl) GetCity(ctx context.Context, slug string) (*dto.CityData, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, NewBusinessError("CITY_NOT_FOUND", "city not found", ErrCityNotFound)
	}

	city, err := f.api.GetCity(ctx, slug)
	if err != nil {
		if errors.Is(err, services.ErrCityNotFound) {
			return nil, NewBusinessErrorf("CITY_NOT_FOUND", "city %q not found", ErrCityNotFound, slug)
		}
		return nil, upstreamError("failed to load city", err)
	}

	visible := withoutHidden(*city)
	return &visible, nil
}

// AvailableCities returns slug → display name, fetched fresh on every call
func (f *CatalogFlowImpl) AvailableCities(ctx context.Context) (map[string]string, error) {
	cities, err := f.api.ListCities(ctx)
	if err != nil {
		return nil, upstreamError("failed to list available cities", err)
	}
	out := make(map[string]string, len(cities))
	for _, c := range cities {
		if c.Slug != "" {
			out[c.Slug] = c.Meta.Name
		}
	}
	return out, nil
}

func (f *CatalogFlowImpl) IsCityAvailable(ctx context.Context, slug string) (bool, error) {
	if slug == "" {
		return false, nil
	}
	available, err := f.AvailableCities(ctx)
	if err != nil {
		return false, err
	}
	_, ok := available[slug]
	return ok, nil
}

// FindCityCaseInsensitive looks up a path segment among the known slugs ignoring case.
// It returns the canonical slug and whether one matched.
func (f *CatalogFlowImpl) FindCityCaseInsensitive(ctx context.Context, segment string) (string, bool, error) {
	available, err := f.AvailableCities(ctx)
	if err != nil {
		return "", false, err
	}
	lower := strings.ToLower(segment)
	if _, ok := available[lower]; ok {
		return lower, true, nil
	}
	for slug := range available {
		if strings.EqualFold(slug, segment) {
			return slug, true, nil
		}
	}
	return "", false, nil
}

func (f *CatalogFlowImpl) ResolveSlug(ctx context.Context, name string) (*dto.SlugResponse, error) {
	resp := &dto.SlugResponse{
		Name:    name,
		Slug:    utils.Slugify(name),
		Generic: utils.SlugifyWith(name, utils.SlugOptions{GenericPrefix: true}),
	}
	if resp.Slug == "" && resp.Generic == "" {
		return resp, nil
	}

	available, err := f.AvailableCities(ctx)
	if err != nil {
		return nil, err
	}
	_, exact := available[resp.Slug]
	_, generic := available[resp.Generic]
	resp.Available = exact || generic
	return resp, nil
}

// ListRegions serves the region directory from the cache, loading it on a miss
func (f *CatalogFlowImpl) ListRegions(ctx context.Context) ([]dto.Region, error) {
	if f.cache != nil {
		cached, err := services.GetJSON[[]dto.Region](ctx, f.cache, regionsCacheKey)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, services.ErrKeyNotFound) {
			log.Warn().Err(err).Msg("Region cache read failed")
		}
	}
	return f.loadRegions(ctx)
}

// RefreshRegions reloads the region directory into the cache
func (f *CatalogFlowImpl) RefreshRegions(ctx context.Context) error {
	if f.cache == nil {
		return NewBusinessError("CACHE_NOT_AVAILABLE", "region cache is not configured", ErrCacheNotAvailable)
	}
	_, err := f.loadRegions(ctx)
	return err
}

func (f *CatalogFlowImpl) loadRegions(ctx context.Context) ([]dto.Region, error) {
	regions, err := f.api.ListRegions(ctx)
	if err != nil {
		return nil, upstreamError("failed to load regions", err)
	}
	if f.cache != nil {
		if err := services.SetJSON(ctx, f.cache, regionsCacheKey, regions, f.regionsTTL); err != nil {
			log.Warn().Err(err).Msg("Region cache write failed")
		}
	}
	return regions, nil
}

// SearchRegions keeps only the cities whose name contains the query, case- and ё-insensitively.
// Areas and letters left without cities are dropped.
func (f *CatalogFlowImpl) SearchRegions(ctx context.Context, query string) (*dto.RegionSearchResponse, error) {
	regions, err := f.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	filtered, total := FilterRegions(regions, query)
	return &dto.RegionSearchResponse{Query: query, Regions: filtered, Total: total}, nil
}

// FilterRegions is the pure part of SearchRegions. It returns the kept regions and the city count.
func FilterRegions(regions []dto.Region, query string) ([]dto.Region, int) {
	needle := utils.NormalizeName(query)
	out := make([]dto.Region, 0, len(regions))
	total := 0
	for _, region := range regions {
		var areas []dto.Area
		for _, area := range region.Areas {
			cities := lo.Filter(area.Cities, func(c string, _ int) bool {
				return needle == "" || strings.Contains(utils.NormalizeName(c), needle)
			})
			if len(cities) == 0 {
				continue
			}
			total += len(cities)
			areas = append(areas, dto.Area{ID: area.ID, Name: area.Name, Cities: cities})
		}
		if len(areas) > 0 {
			out = append(out, dto.Region{Letter: region.Letter, Areas: areas})
		}
	}
	return out, total
}

func (f *CatalogFlowImpl) ListTariffs(ctx context.Context, slug string, q TariffQuery) (*dto.TariffListResponse, error) {
	city, err := f.GetCity(ctx, slug)
	if err != nil {
		return nil, err
	}
	return buildListing(*city, q)
}

func buildListing(city dto.CityData, q TariffQuery) (*dto.TariffListResponse, error) {
	category := strings.ToLower(strings.TrimSpace(q.Category))
	if category == "" {
		category = utils.CategoryAll
	}
	if category != utils.CategoryAll && !IsCategoryID(category) {
		return nil, NewBusinessErrorf("INVALID_CATEGORY", "unknown category %q", ErrInvalidCategory, q.Category)
	}
	sortBy := q.Sort
	if sortBy == "" {
		sortBy = SortPopular
	}

	all := CityTariffs(city)
	filters := ParseFilterState(q.Params)
	tariffs := FilterAndSort(all, filters, category, sortBy)
	if tariffs == nil {
		tariffs = []dto.Tariff{}
	}

	return &dto.TariffListResponse{
		City:        city.Slug,
		Category:    category,
		Sort:        sortBy,
		Filters:     filters,
		Tariffs:     tariffs,
		Total:       len(tariffs),
		PriceBounds: PriceBounds(all),
		SpeedBounds: SpeedBounds(all),
	}, nil
}

// BuildPage assembles the /:city/:service page model
func (f *CatalogFlowImpl) BuildPage(ctx context.Context, citySlug, serviceSlug string, q TariffQuery, visitor dto.VisitorDTO) (*dto.PageResponse, error) {
	city, err := f.GetCity(ctx, citySlug)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(utils.ServiceCategories, serviceSlug) {
		return nil, NewBusinessErrorf("SERVICE_NOT_FOUND", "service %q not found", ErrServiceNotFound, serviceSlug)
	}
	svc, ok := city.Services[serviceSlug]
	if !ok {
		return nil, NewBusinessErrorf("SERVICE_NOT_FOUND", "service %q is not offered in %s", ErrServiceNotFound, serviceSlug, city.Meta.Name)
	}

	if q.Category == "" {
		q.Category = serviceSlug
	}
	listing, err := buildListing(*city, q)
	if err != nil {
		return nil, err
	}

	title := svc.Meta.Title
	if title == "" {
		title = svc.Title
	}
	description := svc.Meta.Description
	if description == "" {
		description = svc.Description
	}

	visitor.ShowOrderCTA = !visitor.SupportOnly
	return &dto.PageResponse{
		CitySlug:    city.Slug,
		City:        city.Meta,
		ServiceSlug: serviceSlug,
		Service:     svc.Meta,
		Title:       title,
		Description: description,
		Listing:     *listing,
		Visitor:     visitor,
	}, nil
}

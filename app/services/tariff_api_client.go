package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
)

// ErrCityNotFound is returned when the backend has no data for a slug
var ErrCityNotFound = errors.New("city not found")

// TariffAPIClient reads the public tariff backend
type TariffAPIClient interface {
	ListCities(ctx context.Context) ([]dto.CityData, error)
	GetCity(ctx context.Context, slug string) (*dto.CityData, error)
	ListRegions(ctx context.Context) ([]dto.Region, error)
	SubmitLead(ctx context.Context, lead dto.Lead) error
}

type TariffAPIClientImpl struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTariffAPIClient(baseURL string, timeout time.Duration) *TariffAPIClientImpl {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TariffAPIClientImpl{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// ListCities fetches every city fresh, bypassing intermediary caches
func (c *TariffAPIClientImpl) ListCities(ctx context.Context) ([]dto.CityData, error) {
	var out []dto.CityData
	err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/api/tariffs", nil, &out,
		withHeader("Cache-Control", "no-store"))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TariffAPIClientImpl) GetCity(ctx context.Context, slug string) (*dto.CityData, error) {
	var out dto.CityData
	err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/api/tariffs/"+url.PathEscape(slug), nil, &out)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (c *TariffAPIClientImpl) ListRegions(ctx context.Context) ([]dto.Region, error) {
	var out []dto.Region
	if err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/api/regions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TariffAPIClientImpl) SubmitLead(ctx context.Context, lead dto.Lead) error {
	return doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/api/leads", lead, nil)
}

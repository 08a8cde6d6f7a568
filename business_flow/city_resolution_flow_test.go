package businessflow

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/amirphl/tariff-storefront/app/services"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeo struct {
	city  string
	err   error
	calls int
}

func (g *fakeGeo) LookupCity(ctx context.Context, ip string) (string, error) {
	g.calls++
	return g.city, g.err
}

func TestCityResolutionFlow_ResolveHomeCity(t *testing.T) {
	tests := []struct {
		name           string
		geoEnabled     bool
		cookie         string
		ip             string
		geo            *fakeGeo
		citiesErr      error
		expectedSlug   string
		expectedSource string
		expectGeoCall  bool
	}{
		{
			name:           "cookie wins over geo",
			geoEnabled:     true,
			cookie:         url.QueryEscape("Казань"),
			ip:             "8.8.8.8",
			geo:            &fakeGeo{city: "Москва"},
			expectedSlug:   "kazan",
			expectedSource: ResolutionSourceCookie,
		},
		{
			name:           "unavailable cookie falls through to geo",
			geoEnabled:     true,
			cookie:         url.QueryEscape("Омск"),
			ip:             "8.8.8.8",
			geo:            &fakeGeo{city: "Kazan"},
			expectedSlug:   "kazan",
			expectedSource: ResolutionSourceGeo,
			expectGeoCall:  true,
		},
		{
			name:           "geo city not served",
			geoEnabled:     true,
			ip:             "8.8.8.8",
			geo:            &fakeGeo{city: "Omsk"},
			expectedSlug:   "moskva",
			expectedSource: ResolutionSourceDefault,
			expectGeoCall:  true,
		},
		{
			name:           "private address skips geo",
			geoEnabled:     true,
			ip:             "192.168.1.10",
			geo:            &fakeGeo{city: "Kazan"},
			expectedSlug:   "moskva",
			expectedSource: ResolutionSourceDefault,
		},
		{
			name:           "geo failure",
			geoEnabled:     true,
			ip:             "8.8.8.8",
			geo:            &fakeGeo{err: services.ErrGeoLookupFailed},
			expectedSlug:   "moskva",
			expectedSource: ResolutionSourceDefault,
			expectGeoCall:  true,
		},
		{
			name:           "disabled resolution ignores cookie",
			geoEnabled:     false,
			cookie:         url.QueryEscape("Казань"),
			ip:             "8.8.8.8",
			geo:            &fakeGeo{city: "Kazan"},
			expectedSlug:   "moskva",
			expectedSource: ResolutionSourceDefault,
		},
		{
			name:           "backend down",
			geoEnabled:     true,
			cookie:         url.QueryEscape("Казань"),
			ip:             "8.8.8.8",
			geo:            &fakeGeo{city: "Kazan"},
			citiesErr:      errors.New("dial tcp: refused"),
			expectedSlug:   "moskva",
			expectedSource: ResolutionSourceDefault,
			expectGeoCall:  true,
		},
		{
			name:           "undecodable cookie is used raw",
			geoEnabled:     true,
			cookie:         "Kazan%",
			ip:             "10.0.0.1",
			geo:            &fakeGeo{},
			expectedSlug:   "kazan",
			expectedSource: ResolutionSourceCookie,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testingutil.NewFakeTariffAPI()
			api.CitiesErr = tt.citiesErr
			catalog := NewCatalogFlow(api, services.NewMemoryKVStore(), time.Hour)
			flow := NewCityResolutionFlow(catalog, tt.geo, tt.geoEnabled, "", "")

			slug, source := flow.ResolveHomeCity(context.Background(), tt.cookie, tt.ip)
			assert.Equal(t, tt.expectedSlug, slug)
			assert.Equal(t, tt.expectedSource, source)
			assert.Equal(t, tt.expectGeoCall, tt.geo.calls > 0)
		})
	}
}

func TestCityResolutionFlow_AvailableCitiesFetchedOnce(t *testing.T) {
	api := testingutil.NewFakeTariffAPI()
	catalog := NewCatalogFlow(api, nil, time.Hour)
	flow := NewCityResolutionFlow(catalog, &fakeGeo{city: "Москва"}, true, "", "")

	slug, source := flow.ResolveHomeCity(context.Background(), url.QueryEscape("Омск"), "8.8.8.8")
	assert.Equal(t, "moskva", slug)
	assert.Equal(t, ResolutionSourceGeo, source)
	assert.Equal(t, 1, api.CallCount("ListCities"))
}

func TestCityResolutionFlow_Paths(t *testing.T) {
	flow := NewCityResolutionFlow(nil, nil, true, "kazan", "internet-tv")
	assert.Equal(t, "/kazan/internet-tv", flow.DefaultPath())
	assert.Equal(t, "/omsk/internet", flow.CityPath("omsk"))

	defaults := NewCityResolutionFlow(nil, nil, true, "", "")
	assert.Equal(t, "/moskva/internet", defaults.DefaultPath())
}

func TestCityResolutionFlow_ChooseCity(t *testing.T) {
	ctx := context.Background()
	api := testingutil.NewFakeTariffAPI()
	flow := NewCityResolutionFlow(NewCatalogFlow(api, nil, time.Hour), nil, true, "", "")

	t.Run("prefixed name", func(t *testing.T) {
		resp, err := flow.ChooseCity(ctx, "  г. Казань ")
		require.NoError(t, err)
		assert.Equal(t, "kazan", resp.Slug)
		assert.Equal(t, "Казань", resp.Name)
		assert.Equal(t, "/kazan/internet", resp.Redirect)
	})

	t.Run("not served", func(t *testing.T) {
		_, err := flow.ChooseCity(ctx, "Омск")
		assert.True(t, IsCityUnavailable(err))
	})

	t.Run("no letters", func(t *testing.T) {
		_, err := flow.ChooseCity(ctx, "!!!")
		assert.True(t, IsInvalidCityName(err))
	})

	t.Run("backend down", func(t *testing.T) {
		api.CitiesErr = errors.New("refused")
		defer func() { api.CitiesErr = nil }()
		_, err := flow.ChooseCity(ctx, "Казань")
		assert.True(t, IsUpstreamUnavailable(err))
	})
}

package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*CatalogFlowImpl, *testingutil.FakeTariffAPI, services.KVStore) {
	t.Helper()
	api := testingutil.NewFakeTariffAPI()
	store := services.NewMemoryKVStore()
	return NewCatalogFlow(api, store, time.Hour).(*CatalogFlowImpl), api, store
}

func TestCatalogFlow_GetCity(t *testing.T) {
	ctx := context.Background()
	flow, api, _ := newTestCatalog(t)

	t.Run("hidden tariffs are removed", func(t *testing.T) {
		city, err := flow.GetCity(ctx, " Moskva ")
		require.NoError(t, err)
		assert.Equal(t, []int{testingutil.TariffHome100, testingutil.TariffHome500}, ids(city.Services[utils.CategoryInternet].Tariffs))
	})

	t.Run("upstream dataset is not mutated", func(t *testing.T) {
		_, err := flow.GetCity(ctx, "moskva")
		require.NoError(t, err)
		assert.Len(t, api.Cities[0].Services[utils.CategoryInternet].Tariffs, 3)
	})

	t.Run("unknown city", func(t *testing.T) {
		_, err := flow.GetCity(ctx, "atlantida")
		require.Error(t, err)
		assert.True(t, IsCityNotFound(err))
	})

	t.Run("empty slug", func(t *testing.T) {
		_, err := flow.GetCity(ctx, "  ")
		assert.True(t, IsCityNotFound(err))
	})

	t.Run("backend failure", func(t *testing.T) {
		api.CitiesErr = errors.New("connection refused")
		defer func() { api.CitiesErr = nil }()

		_, err := flow.GetCity(ctx, "moskva")
		require.Error(t, err)
		assert.True(t, IsUpstreamUnavailable(err))
		assert.False(t, IsCityNotFound(err))
	})
}

func TestCatalogFlow_ListCities(t *testing.T) {
	flow, _, _ := newTestCatalog(t)

	cities, err := flow.ListCities(context.Background())
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "kazan", cities[0].Slug)
	assert.Equal(t, "moskva", cities[1].Slug)
	assert.Equal(t, utils.ServiceCategories, cities[1].Services)
}

func TestCatalogFlow_Availability(t *testing.T) {
	ctx := context.Background()
	flow, api, _ := newTestCatalog(t)

	ok, err := flow.IsCityAvailable(ctx, "kazan")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = flow.IsCityAvailable(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	slug, found, err := flow.FindCityCaseInsensitive(ctx, "MosKva")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "moskva", slug)

	_, found, err = flow.FindCityCaseInsensitive(ctx, "internet")
	require.NoError(t, err)
	assert.False(t, found)

	before := api.CallCount("ListCities")
	_, err = flow.AvailableCities(ctx)
	require.NoError(t, err)
	_, err = flow.AvailableCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, api.CallCount("ListCities"), "availability is never cached")
}

func TestCatalogFlow_ResolveSlug(t *testing.T) {
	flow, _, _ := newTestCatalog(t)

	resp, err := flow.ResolveSlug(context.Background(), "г. Казань")
	require.NoError(t, err)
	assert.Equal(t, "kazan", resp.Slug)
	assert.True(t, resp.Available)

	resp, err = flow.ResolveSlug(context.Background(), "Омск")
	require.NoError(t, err)
	assert.Equal(t, "omsk", resp.Slug)
	assert.False(t, resp.Available)
}

func TestCatalogFlow_Regions(t *testing.T) {
	ctx := context.Background()

	t.Run("cached after first load", func(t *testing.T) {
		flow, api, _ := newTestCatalog(t)

		first, err := flow.ListRegions(ctx)
		require.NoError(t, err)
		second, err := flow.ListRegions(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, api.CallCount("ListRegions"))
	})

	t.Run("refresh replaces cached copy", func(t *testing.T) {
		flow, api, _ := newTestCatalog(t)
		_, err := flow.ListRegions(ctx)
		require.NoError(t, err)

		api.Regions = api.Regions[:1]
		require.NoError(t, flow.RefreshRegions(ctx))

		regions, err := flow.ListRegions(ctx)
		require.NoError(t, err)
		assert.Len(t, regions, 1)
		assert.Equal(t, 2, api.CallCount("ListRegions"))
	})

	t.Run("refresh needs a cache", func(t *testing.T) {
		flow := NewCatalogFlow(testingutil.NewFakeTariffAPI(), nil, time.Hour)
		err := flow.RefreshRegions(ctx)
		assert.ErrorIs(t, err, ErrCacheNotAvailable)
	})

	t.Run("upstream failure", func(t *testing.T) {
		flow, api, _ := newTestCatalog(t)
		api.RegionsErr = errors.New("timeout")
		_, err := flow.ListRegions(ctx)
		assert.True(t, IsUpstreamUnavailable(err))
	})
}

func TestFilterRegions(t *testing.T) {
	regions := testingutil.SampleRegions()

	tests := []struct {
		name          string
		query         string
		expectedTotal int
		expectedFirst string
	}{
		{name: "empty query keeps all", query: "", expectedTotal: 7, expectedFirst: "Казань"},
		{name: "case insensitive", query: "КАЗ", expectedTotal: 1, expectedFirst: "Казань"},
		{name: "ё matches е", query: "березов", expectedTotal: 1, expectedFirst: "Берёзовский"},
		{name: "substring", query: "ом", expectedTotal: 1, expectedFirst: "Омск"},
		{name: "no match", query: "париж", expectedTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, total := FilterRegions(regions, tt.query)
			assert.Equal(t, tt.expectedTotal, total)
			if tt.expectedTotal == 0 {
				assert.Empty(t, out)
				return
			}
			assert.Equal(t, tt.expectedFirst, out[0].Areas[0].Cities[0])
			for _, r := range out {
				assert.NotEmpty(t, r.Areas)
			}
		})
	}
}

func TestCatalogFlow_ListTariffs(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newTestCatalog(t)

	t.Run("defaults to all and popular", func(t *testing.T) {
		resp, err := flow.ListTariffs(ctx, "moskva", TariffQuery{})
		require.NoError(t, err)
		assert.Equal(t, utils.CategoryAll, resp.Category)
		assert.Equal(t, SortPopular, resp.Sort)
		assert.Equal(t, 7, resp.Total)
		assert.NotContains(t, ids(resp.Tariffs), testingutil.TariffHiddenHome)
		assert.True(t, resp.Tariffs[0].IsHit)
		assert.Equal(t, dto.Range{600, 1500}, resp.PriceBounds)
		assert.Equal(t, dto.Range{100, 1000}, resp.SpeedBounds)
	})

	t.Run("category and sort", func(t *testing.T) {
		resp, err := flow.ListTariffs(ctx, "moskva", TariffQuery{Category: "internet-tv", Sort: SortPriceHigh})
		require.NoError(t, err)
		assert.Equal(t, []int{testingutil.TariffTVMax, testingutil.TariffTVBase}, ids(resp.Tariffs))
	})

	t.Run("price filter from params", func(t *testing.T) {
		resp, err := flow.ListTariffs(ctx, "moskva", TariffQuery{
			Sort:   SortPriceLow,
			Params: map[string]string{"price_max": "800"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int{testingutil.TariffHome100, testingutil.TariffMobileStart}, ids(resp.Tariffs))
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := flow.ListTariffs(ctx, "moskva", TariffQuery{Category: "satellite"})
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		resp, err := flow.ListTariffs(ctx, "kazan", TariffQuery{Category: utils.CategoryInternetTV})
		require.NoError(t, err)
		assert.NotNil(t, resp.Tariffs)
		assert.Zero(t, resp.Total)
	})
}

func TestCatalogFlow_BuildPage(t *testing.T) {
	ctx := context.Background()
	flow, _, _ := newTestCatalog(t)

	t.Run("service page uses service category", func(t *testing.T) {
		page, err := flow.BuildPage(ctx, "moskva", utils.CategoryInternet, TariffQuery{}, dto.VisitorDTO{})
		require.NoError(t, err)
		assert.Equal(t, "Интернет в Москве", page.Title)
		assert.Equal(t, utils.CategoryInternet, page.Listing.Category)
		assert.Equal(t, []int{testingutil.TariffHome100, testingutil.TariffHome500}, ids(page.Listing.Tariffs))
		assert.True(t, page.Visitor.ShowOrderCTA)
	})

	t.Run("falls back to service title", func(t *testing.T) {
		page, err := flow.BuildPage(ctx, "moskva", utils.CategoryInternetTV, TariffQuery{}, dto.VisitorDTO{})
		require.NoError(t, err)
		assert.Equal(t, "Интернет и ТВ", page.Title)
	})

	t.Run("support-only visitor hides order CTA", func(t *testing.T) {
		page, err := flow.BuildPage(ctx, "kazan", utils.CategoryInternet, TariffQuery{}, dto.VisitorDTO{SupportOnly: true})
		require.NoError(t, err)
		assert.False(t, page.Visitor.ShowOrderCTA)
	})

	t.Run("service not offered in city", func(t *testing.T) {
		_, err := flow.BuildPage(ctx, "kazan", utils.CategoryInternetTV, TariffQuery{}, dto.VisitorDTO{})
		assert.True(t, IsServiceNotFound(err))
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := flow.BuildPage(ctx, "moskva", "telephony", TariffQuery{}, dto.VisitorDTO{})
		assert.True(t, IsServiceNotFound(err))
	})
}

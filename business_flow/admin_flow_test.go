package businessflow

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFixture struct {
	flow   AdminFlow
	api    *testingutil.FakeAdminAPI
	store  services.KVStore
	tokens services.TokenService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, "storefront", "admin", "test-secret")
	require.NoError(t, err)
	api := testingutil.NewFakeAdminAPI()
	store := services.NewMemoryKVStore()
	return &adminFixture{flow: NewAdminFlow(api, tokens, store), api: api, store: store, tokens: tokens}
}

func (a *adminFixture) login(t *testing.T) *dto.AdminSession {
	t.Helper()
	ctx := context.Background()
	resp, err := a.flow.Login(ctx, &dto.AdminLoginRequest{Username: "admin", Password: "secret"}, NewClientMetadata("127.0.0.1", ""))
	require.NoError(t, err)
	session, err := a.flow.ValidateSession(ctx, resp.Session.AccessToken)
	require.NoError(t, err)
	return session
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type expiredTokens struct{ services.TokenService }

func (expiredTokens) ValidateAdminToken(string) (*services.AdminTokenClaims, error) {
	return nil, services.ErrTokenExpired
}

func TestAdminFlow_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a bearer token bound to a session", func(t *testing.T) {
		a := newAdminFixture(t)
		resp, err := a.flow.Login(ctx, &dto.AdminLoginRequest{Username: " admin ", Password: "secret"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "admin", resp.Username)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.InDelta(t, 3600, resp.Session.ExpiresIn, 1)

		session, err := a.flow.ValidateSession(ctx, resp.Session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "backend-token", session.BackendToken)
		assert.Equal(t, "admin", session.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		a := newAdminFixture(t)
		_, err := a.flow.Login(ctx, &dto.AdminLoginRequest{Username: "admin", Password: "nope"}, nil)
		assert.True(t, IsInvalidCredentials(err))
	})
}

func TestAdminFlow_ValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		a := newAdminFixture(t)
		_, err := a.flow.ValidateSession(ctx, "not.a.jwt")
		assert.True(t, IsSessionNotFound(err))
	})

	t.Run("expired token", func(t *testing.T) {
		a := newAdminFixture(t)
		flow := NewAdminFlow(a.api, expiredTokens{a.tokens}, a.store)
		_, err := flow.ValidateSession(ctx, "whatever")
		assert.True(t, IsSessionExpired(err))
	})

	t.Run("logged out session", func(t *testing.T) {
		a := newAdminFixture(t)
		resp, err := a.flow.Login(ctx, &dto.AdminLoginRequest{Username: "admin", Password: "secret"}, nil)
		require.NoError(t, err)
		session, err := a.flow.ValidateSession(ctx, resp.Session.AccessToken)
		require.NoError(t, err)

		require.NoError(t, a.flow.Logout(ctx, session.ID))
		_, err = a.flow.ValidateSession(ctx, resp.Session.AccessToken)
		assert.True(t, IsSessionNotFound(err))
	})

	t.Run("token for another user", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		forged, _, err := a.tokens.GenerateAdminToken(session.ID, "mallory")
		require.NoError(t, err)
		_, err = a.flow.ValidateSession(ctx, forged)
		assert.True(t, IsSessionNotFound(err))
	})

	t.Run("logout without session id", func(t *testing.T) {
		a := newAdminFixture(t)
		assert.True(t, IsSessionNotFound(a.flow.Logout(ctx, "")))
	})
}

func TestAdminFlow_ListAll(t *testing.T) {
	a := newAdminFixture(t)
	session := a.login(t)

	resp, err := a.flow.ListAll(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCities)
	assert.Equal(t, 9, resp.TotalTariffs)
	assert.Equal(t, 1, resp.HiddenCount)
}

func TestAdminFlow_Mutations(t *testing.T) {
	ctx := context.Background()
	home100 := dto.TariffRef{City: "moskva", Service: utils.CategoryInternet, ID: testingutil.TariffHome100}
	home500 := dto.TariffRef{City: "moskva", Service: utils.CategoryInternet, ID: testingutil.TariffHome500}

	tests := []struct {
		name          string
		call          func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error)
		expectedOp    string
		expectedTotal int
		expectedHide  int
	}{
		{
			name: "update",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.UpdateTariff(ctx, s, home100, dto.Tariff{Name: "Домашний 200", Type: "Интернет", Price: 650, Hidden: true})
			},
			expectedOp: "update", expectedTotal: 9, expectedHide: 2,
		},
		{
			name: "patch",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.PatchTariff(ctx, s, home100, dto.TariffPatch{Hidden: utils.ToPtr(true)})
			},
			expectedOp: "patch", expectedTotal: 9, expectedHide: 2,
		},
		{
			name: "delete",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.DeleteTariff(ctx, s, home100)
			},
			expectedOp: "delete", expectedTotal: 8, expectedHide: 1,
		},
		{
			name: "mass delete",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.MassDelete(ctx, s, []dto.TariffRef{home100, home500})
			},
			expectedOp: "mass-delete", expectedTotal: 7, expectedHide: 1,
		},
		{
			name: "mass hide",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.MassHide(ctx, s, []dto.TariffRef{home100, home500}, true)
			},
			expectedOp: "mass-hide", expectedTotal: 9, expectedHide: 3,
		},
		{
			name: "add",
			call: func(f AdminFlow, s *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
				return f.AddTariff(ctx, s, "kazan", utils.CategoryInternet, dto.Tariff{ID: 777, Name: "Новый", Type: "Интернет", Price: 400})
			},
			expectedOp: "add", expectedTotal: 10, expectedHide: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdminFixture(t)
			session := a.login(t)

			resp, err := tt.call(a.flow, session)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedTotal, resp.TotalTariffs)
			assert.Equal(t, tt.expectedHide, resp.HiddenCount)
			assert.Equal(t, 1, a.api.OpCount(tt.expectedOp))
			assert.Equal(t, 1, a.api.OpCount("list"), "dataset is refetched after the write")
		})
	}
}

func TestAdminFlow_MutationFailures(t *testing.T) {
	ctx := context.Background()
	ref := dto.TariffRef{City: "moskva", Service: utils.CategoryInternet, ID: testingutil.TariffHome100}

	t.Run("empty selection", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		_, err := a.flow.MassHide(ctx, session, nil, true)
		assert.True(t, IsEmptySelection(err))
		_, err = a.flow.MassDelete(ctx, session, []dto.TariffRef{})
		assert.True(t, IsEmptySelection(err))
	})

	t.Run("invalid tariff", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		_, err := a.flow.UpdateTariff(ctx, session, ref, dto.Tariff{Price: -1})
		require.Error(t, err)
		assert.Equal(t, []string{"name", "price"}, sortedKeys(fieldsOf(err)))
		assert.Zero(t, a.api.OpCount("update"))
	})

	t.Run("unknown service on add", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		_, err := a.flow.AddTariff(ctx, session, "kazan", "satellite", dto.Tariff{Name: "X"})
		assert.True(t, IsInvalidCategory(err))
	})

	t.Run("backend rejects token and session ends", func(t *testing.T) {
		a := newAdminFixture(t)
		resp, err := a.flow.Login(ctx, &dto.AdminLoginRequest{Username: "admin", Password: "secret"}, nil)
		require.NoError(t, err)
		session, err := a.flow.ValidateSession(ctx, resp.Session.AccessToken)
		require.NoError(t, err)

		a.api.Revoke()
		_, err = a.flow.DeleteTariff(ctx, session, ref)
		assert.True(t, IsSessionExpired(err))

		_, err = a.flow.ValidateSession(ctx, resp.Session.AccessToken)
		assert.True(t, IsSessionNotFound(err))
	})

	t.Run("failed write is not refetched", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		_, err := a.flow.DeleteTariff(ctx, session, dto.TariffRef{City: "omsk", Service: utils.CategoryInternet, ID: 1})
		assert.True(t, IsUpstreamUnavailable(err))
		assert.Zero(t, a.api.OpCount("list"))
	})

	t.Run("refetch failure", func(t *testing.T) {
		a := newAdminFixture(t)
		session := a.login(t)
		a.api.ListErr = errors.New("boom")
		_, err := a.flow.PatchTariff(ctx, session, ref, dto.TariffPatch{Price: utils.ToPtr(1)})
		assert.True(t, IsUpstreamUnavailable(err))
	})
}

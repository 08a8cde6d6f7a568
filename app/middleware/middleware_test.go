package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/tariff-storefront/app/dto"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	slug, source string
	gotCookie    string
	gotIP        string
}

func (s *stubResolver) ResolveHomeCity(_ context.Context, cookieValue, clientIP string) (string, string) {
	s.gotCookie = cookieValue
	s.gotIP = clientIP
	return s.slug, s.source
}

func (s *stubResolver) DefaultPath() string         { return "/moskva/internet" }
func (s *stubResolver) CityPath(slug string) string { return "/" + slug + "/internet" }

type stubFinder struct {
	cities map[string]bool
	err    error
	calls  int
}

func (f *stubFinder) FindCityCaseInsensitive(_ context.Context, segment string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	for slug := range f.cities {
		if strings.EqualFold(slug, segment) {
			return slug, true, nil
		}
	}
	return "", false, nil
}

func edgeApp(resolver HomeResolver, finder CityFinder, cfg ...fiber.Config) *fiber.App {
	app := fiber.New(cfg...)
	app.Use(CityRedirect(CityRedirectConfig{Resolver: resolver, Finder: finder, DefaultCity: "moskva"}))
	app.Get("/*", func(c fiber.Ctx) error {
		return c.SendString("page " + c.Path())
	})
	return app
}

func TestCityRedirect(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		resolver   *stubResolver
		wantStatus int
		wantLoc    string
	}{
		{"home via cookie", "/", &stubResolver{slug: "kazan", source: "cookie"}, fiber.StatusPermanentRedirect, "/kazan/internet"},
		{"home via geo", "/", &stubResolver{slug: "omsk", source: "geo"}, fiber.StatusPermanentRedirect, "/omsk/internet"},
		{"home default", "/", &stubResolver{slug: "moskva", source: "default"}, fiber.StatusPermanentRedirect, "/moskva/internet"},
		{"home keeps query", "/?utm=1", &stubResolver{slug: "kazan", source: "cookie"}, fiber.StatusPermanentRedirect, "/kazan/internet?utm=1"},
		{"legacy service", "/internet-tv", &stubResolver{}, fiber.StatusPermanentRedirect, "/moskva/internet-tv"},
		{"legacy service keeps rest and query", "/internet/tariff/5?x=y", &stubResolver{}, fiber.StatusPermanentRedirect, "/moskva/internet/tariff/5?x=y"},
		{"mis-cased city", "/Kazan/internet?sort=price-asc", &stubResolver{}, fiber.StatusPermanentRedirect, "/kazan/internet?sort=price-asc"},
		{"exact city passes", "/kazan/internet", &stubResolver{}, fiber.StatusOK, ""},
		{"unknown upper-case segment passes", "/About", &stubResolver{}, fiber.StatusOK, ""},
		{"api excluded", "/api/v1/cities", &stubResolver{}, fiber.StatusOK, ""},
		{"static excluded", "/_next/static/chunk.js", &stubResolver{}, fiber.StatusOK, ""},
		{"favicon excluded", "/favicon.ico", &stubResolver{}, fiber.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := edgeApp(tt.resolver, &stubFinder{cities: map[string]bool{"kazan": true}})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, resp.Header.Get("Location"))
				assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
			}
		})
	}
}

func TestCityRedirect_PassesCookieAndForwardedIP(t *testing.T) {
	trusted := fiber.Config{
		TrustProxy:         true,
		TrustProxyConfig:   fiber.TrustProxyConfig{Proxies: []string{"0.0.0.0"}},
		ProxyHeader:        fiber.HeaderXForwardedFor,
		EnableIPValidation: true,
	}

	tests := []struct {
		name   string
		cfg    fiber.Config
		wantIP string
	}{
		{"trusted proxy", trusted, "95.24.1.1"},
		{"header from an untrusted peer is ignored", fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor}, "0.0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &stubResolver{slug: "kazan", source: "cookie"}
			app := edgeApp(resolver, nil, tt.cfg)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Forwarded-For", "95.24.1.1, 10.0.0.1")
			req.AddCookie(&http.Cookie{Name: "user-city", Value: "%D0%9A%D0%B0%D0%B7%D0%B0%D0%BD%D1%8C"})

			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, "%D0%9A%D0%B0%D0%B7%D0%B0%D0%BD%D1%8C", resolver.gotCookie)
			assert.Equal(t, tt.wantIP, resolver.gotIP)
		})
	}
}

func TestCityRedirect_FinderFailurePassesThrough(t *testing.T) {
	finder := &stubFinder{err: errors.New("backend down")}
	app := edgeApp(&stubResolver{}, finder)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/Kazan/internet", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, finder.calls)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/kazan/internet", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, finder.calls, "lower-case segments never hit the backend")
}

func TestVisitor(t *testing.T) {
	app := fiber.New()
	app.Use(Visitor())
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(GetVisitor(c).DTO())
	})

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    string
	}{
		{"no cookies", nil, `{"support_only":false,"show_order_cta":true}`},
		{"support only", []*http.Cookie{{Name: "support-only", Value: "true"}}, `{"support_only":true,"show_order_cta":false}`},
		{"city decoded", []*http.Cookie{{Name: "user-city", Value: "%D0%9E%D0%BC%D1%81%D0%BA"}}, `{"support_only":false,"show_order_cta":true,"city_name":"Омск"}`},
		{"plus decodes to space", []*http.Cookie{{Name: "user-city", Value: utils.EncodeCityCookie("Набережные Челны")}}, `{"support_only":false,"show_order_cta":true,"city_name":"Набережные Челны"}`},
		{"undecodable city kept raw", []*http.Cookie{{Name: "user-city", Value: "Omsk%"}}, `{"support_only":false,"show_order_cta":true,"city_name":"Omsk%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, ck := range tt.cookies {
				req.AddCookie(ck)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(body))
		})
	}
}

type stubSessions struct {
	session *dto.AdminSession
	err     error
}

func (s stubSessions) ValidateSession(context.Context, string) (*dto.AdminSession, error) {
	return s.session, s.err
}

func TestAdminAuthenticate(t *testing.T) {
	live := &dto.AdminSession{ID: "s1", Username: "admin"}

	tests := []struct {
		name       string
		header     string
		sessions   stubSessions
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", stubSessions{session: live}, fiber.StatusUnauthorized, "MISSING_AUTHORIZATION_HEADER"},
		{"wrong scheme", "Basic abc", stubSessions{session: live}, fiber.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"expired", "Bearer t", stubSessions{err: businessflow.NewBusinessError("SESSION_EXPIRED", "expired", businessflow.ErrSessionExpired)}, fiber.StatusUnauthorized, "SESSION_EXPIRED"},
		{"logged out", "Bearer t", stubSessions{err: businessflow.NewBusinessError("SESSION_NOT_FOUND", "gone", businessflow.ErrSessionNotFound)}, fiber.StatusUnauthorized, "SESSION_NOT_FOUND"},
		{"store down", "Bearer t", stubSessions{err: businessflow.ErrCacheNotAvailable}, fiber.StatusServiceUnavailable, "CACHE_NOT_AVAILABLE"},
		{"valid", "Bearer t", stubSessions{session: live}, fiber.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(NewAuthMiddleware(tt.sessions).AdminAuthenticate())
			app.Get("/", func(c fiber.Ctx) error {
				session, ok := GetAdminSession(c)
				if !ok {
					return c.SendStatus(fiber.StatusTeapot)
				}
				return c.SendString(session.Username)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.wantCode != "" {
				assert.Contains(t, string(body), `"code":"`+tt.wantCode+`"`)
			} else {
				assert.Equal(t, "admin", string(body))
			}
		})
	}
}

func TestIsEdgeExcluded(t *testing.T) {
	assert.True(t, isEdgeExcluded("/api"))
	assert.True(t, isEdgeExcluded("/api/v1/leads"))
	assert.True(t, isEdgeExcluded("/metrics"))
	assert.True(t, isEdgeExcluded("/_next/image/a.png"))
	assert.False(t, isEdgeExcluded("/apiary/internet"))
	assert.False(t, isEdgeExcluded("/"))
}

func TestBearerToken(t *testing.T) {
	token, _, _ := bearerToken("Bearer abc")
	assert.Equal(t, "abc", token)

	_, _, code := bearerToken("Bearer   ")
	assert.Equal(t, "MISSING_ACCESS_TOKEN", code)

	_, _, code = bearerToken("Token abc")
	assert.Equal(t, "INVALID_AUTHORIZATION_FORMAT", code)
}

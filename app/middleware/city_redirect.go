package middleware

import (
	"context"
	"slices"
	"strings"
	"time"

	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// paths the edge middleware never touches
var edgeExcludedPrefixes = []string{
	"/api",
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
	"/metrics",
}

// HomeResolver picks the landing city of "/"
type HomeResolver interface {
	ResolveHomeCity(ctx context.Context, cookieValue, clientIP string) (string, string)
	DefaultPath() string
	CityPath(slug string) string
}

// CityFinder matches a path segment to a served city ignoring case
type CityFinder interface {
	FindCityCaseInsensitive(ctx context.Context, segment string) (string, bool, error)
}

type CityRedirectConfig struct {
	Resolver    HomeResolver
	Finder      CityFinder
	DefaultCity string
	Timeout     time.Duration
}

func isEdgeExcluded(path string) bool {
	for _, prefix := range edgeExcludedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// splitFirstSegment returns the first path segment and everything after it, leading slash included
func splitFirstSegment(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i:]
	}
	return trimmed, ""
}

func withQuery(c fiber.Ctx, path string) string {
	if q := string(c.Request().URI().QueryString()); q != "" {
		return path + "?" + q
	}
	return path
}

func permanentRedirect(c fiber.Ctx, reason, location string) error {
	edgeRedirectsTotal.WithLabelValues(reason).Inc()
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect().Status(fiber.StatusPermanentRedirect).To(location)
}

// CityRedirect is the edge middleware: it sends "/" to the visitor's city and normalizes
// legacy service paths and mis-cased city slugs. Resolution failures end at the default city.
func CityRedirect(cfg CityRedirectConfig) fiber.Handler {
	if cfg.DefaultCity == "" {
		cfg.DefaultCity = utils.DefaultCitySlug
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return func(c fiber.Ctx) error {
		path := c.Path()
		if isEdgeExcluded(path) {
			return c.Next()
		}

		if path == "/" {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()

			ip := utils.NormalizeIP(c.IP())
			slug, source := cfg.Resolver.ResolveHomeCity(ctx, c.Cookies(utils.UserCityCookie), ip)
			target := cfg.Resolver.CityPath(slug)
			if source == businessflow.ResolutionSourceDefault {
				target = cfg.Resolver.DefaultPath()
			}
			log.Debug().Str("city", slug).Str("source", source).Str("ip", ip).Msg("Home city resolved")
			return permanentRedirect(c, "home_"+source, withQuery(c, target))
		}

		segment, rest := splitFirstSegment(path)
		if segment == "" {
			return c.Next()
		}

		if slices.Contains(utils.ServiceCategories, segment) {
			return permanentRedirect(c, "legacy_service", withQuery(c, "/"+cfg.DefaultCity+"/"+segment+rest))
		}

		if cfg.Finder != nil && strings.ToLower(segment) != segment {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
			defer cancel()

			slug, ok, err := cfg.Finder.FindCityCaseInsensitive(ctx, segment)
			if err != nil {
				log.Warn().Err(err).Str("segment", segment).Msg("City case lookup failed")
				return c.Next()
			}
			if ok && slug != segment {
				return permanentRedirect(c, "city_case", withQuery(c, "/"+slug+rest))
			}
		}

		return c.Next()
	}
}

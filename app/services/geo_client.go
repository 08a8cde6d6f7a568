package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// geoCacheTTL mirrors the one-hour revalidation hint of the lookup
const geoCacheTTL = time.Hour

var (
	// ErrGeoLookupFailed is returned when the provider answers but cannot place the IP
	ErrGeoLookupFailed = errors.New("geo lookup failed")
	// ErrGeoRateLimited is returned instead of calling the provider over its request budget
	ErrGeoRateLimited = errors.New("geo lookup rate limited")
)

// GeoClient resolves a public IP address to a city display name
type GeoClient interface {
	LookupCity(ctx context.Context, ip string) (string, error)
}

// GeoClientImpl calls an ip-api.com compatible JSON endpoint
type GeoClientImpl struct {
	BaseURL    string
	Language   string
	HTTPClient *http.Client
	cache      KVStore
	limiter    *rate.Limiter
}

// WithRateLimit caps provider calls at perMinute. Cached answers do not count.
// Zero or less removes the cap.
func (c *GeoClientImpl) WithRateLimit(perMinute int) *GeoClientImpl {
	if perMinute <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return c
}

func NewGeoClient(baseURL, language string, timeout time.Duration, cache KVStore) *GeoClientImpl {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GeoClientImpl{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Language:   language,
		HTTPClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

type geoResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

func (c *GeoClientImpl) LookupCity(ctx context.Context, ip string) (string, error) {
	cacheKey := "geo:" + ip
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
			return string(cached), nil
		}
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return "", ErrGeoRateLimited
	}

	q := url.Values{}
	q.Set("fields", "status,message,city,regionName,country")
	if c.Language != "" {
		q.Set("lang", c.Language)
	}
	u := fmt.Sprintf("%s/%s?%s", c.BaseURL, url.PathEscape(ip), q.Encode())

	var out geoResponse
	if err := doJSON(ctx, c.HTTPClient, http.MethodGet, u, nil, &out); err != nil {
		return "", err
	}
	if out.Status != "" && out.Status != "success" {
		return "", fmt.Errorf("%w: %s", ErrGeoLookupFailed, out.Message)
	}
	city := strings.TrimSpace(out.City)
	if city == "" {
		return "", fmt.Errorf("%w: empty city", ErrGeoLookupFailed)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, []byte(city), geoCacheTTL)
	}
	return city, nil
}

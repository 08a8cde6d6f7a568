package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
)

// ErrEmptyBackendToken is returned when the admin backend accepts a login without a token
var ErrEmptyBackendToken = errors.New("admin backend returned an empty token")

// AdminAPIClient talks to the admin backend that owns tariff writes
type AdminAPIClient interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListAll(ctx context.Context, token string) ([]dto.CityData, error)
	Update(ctx context.Context, token string, ref dto.TariffRef, tariff dto.Tariff) error
	Patch(ctx context.Context, token string, ref dto.TariffRef, patch dto.TariffPatch) error
	Delete(ctx context.Context, token string, ref dto.TariffRef) error
	MassDelete(ctx context.Context, token string, items []dto.TariffRef) error
	MassHide(ctx context.Context, token string, items []dto.TariffRef, hidden bool) error
	Add(ctx context.Context, token, city, service string, tariff dto.Tariff) error
	UploadTariffs(ctx context.Context, token string, payload dto.UploadTariffsRequest) error
}

type AdminAPIClientImpl struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewAdminAPIClient(baseURL string, timeout time.Duration) *AdminAPIClientImpl {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AdminAPIClientImpl{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResp struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

func (c *AdminAPIClientImpl) tariffURL(ref dto.TariffRef) string {
	return fmt.Sprintf("%s/api/tariffs/%s/%s/%s", c.BaseURL,
		url.PathEscape(ref.City), url.PathEscape(ref.Service), strconv.Itoa(ref.ID))
}

func (c *AdminAPIClientImpl) Login(ctx context.Context, username, password string) (string, error) {
	var out adminLoginResp
	err := doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/api/login",
		adminLoginReq{Username: username, Password: password}, &out)
	if err != nil {
		return "", err
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", ErrEmptyBackendToken
	}
	return token, nil
}

// ListAll returns every city including hidden tariffs
func (c *AdminAPIClientImpl) ListAll(ctx context.Context, token string) ([]dto.CityData, error) {
	var out []dto.CityData
	err := doJSON(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/api/tariffs", nil, &out,
		withBearer(token), withHeader("Cache-Control", "no-store"))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminAPIClientImpl) Update(ctx context.Context, token string, ref dto.TariffRef, tariff dto.Tariff) error {
	return doJSON(ctx, c.HTTPClient, http.MethodPut, c.tariffURL(ref), tariff, nil, withBearer(token))
}

func (c *AdminAPIClientImpl) Patch(ctx context.Context, token string, ref dto.TariffRef, patch dto.TariffPatch) error {
	return doJSON(ctx, c.HTTPClient, http.MethodPatch, c.tariffURL(ref), patch, nil, withBearer(token))
}

func (c *AdminAPIClientImpl) Delete(ctx context.Context, token string, ref dto.TariffRef) error {
	return doJSON(ctx, c.HTTPClient, http.MethodDelete, c.tariffURL(ref), nil, nil, withBearer(token))
}

func (c *AdminAPIClientImpl) MassDelete(ctx context.Context, token string, items []dto.TariffRef) error {
	body := dto.AdminMassDeleteRequest{Items: items}
	return doJSON(ctx, c.HTTPClient, http.MethodDelete, c.BaseURL+"/api/tariffs/mass-delete", body, nil, withBearer(token))
}

func (c *AdminAPIClientImpl) MassHide(ctx context.Context, token string, items []dto.TariffRef, hidden bool) error {
	body := dto.AdminMassHideRequest{Items: items, Hidden: hidden}
	return doJSON(ctx, c.HTTPClient, http.MethodPatch, c.BaseURL+"/api/tariffs/mass-hide", body, nil, withBearer(token))
}

func (c *AdminAPIClientImpl) Add(ctx context.Context, token, city, service string, tariff dto.Tariff) error {
	u := fmt.Sprintf("%s/api/tariffs/%s/%s", c.BaseURL, url.PathEscape(city), url.PathEscape(service))
	return doJSON(ctx, c.HTTPClient, http.MethodPost, u, tariff, nil, withBearer(token))
}

// UploadTariffs sends one import chunk. The caller bounds it with its own deadline.
func (c *AdminAPIClientImpl) UploadTariffs(ctx context.Context, token string, payload dto.UploadTariffsRequest) error {
	return doJSON(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/api/upload-tariffs", payload, nil, withBearer(token))
}

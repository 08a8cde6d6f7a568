package businessflow

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const adminSessionKeyPrefix = "admin_session:"

// AdminFlow handles admin sessions and proxies tariff writes to the admin backend.
// Every mutation returns the full refetched dataset.
type AdminFlow interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	ValidateSession(ctx context.Context, token string) (*dto.AdminSession, error)
	ListAll(ctx context.Context, session *dto.AdminSession) (*dto.AdminTariffsResponse, error)
	UpdateTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef, tariff dto.Tariff) (*dto.AdminTariffsResponse, error)
	PatchTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef, patch dto.TariffPatch) (*dto.AdminTariffsResponse, error)
	DeleteTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef) (*dto.AdminTariffsResponse, error)
	MassDelete(ctx context.Context, session *dto.AdminSession, items []dto.TariffRef) (*dto.AdminTariffsResponse, error)
	MassHide(ctx context.Context, session *dto.AdminSession, items []dto.TariffRef, hidden bool) (*dto.AdminTariffsResponse, error)
	AddTariff(ctx context.Context, session *dto.AdminSession, city, service string, tariff dto.Tariff) (*dto.AdminTariffsResponse, error)
}

type AdminFlowImpl struct {
	api    services.AdminAPIClient
	tokens services.TokenService
	store  services.KVStore
	now    utils.Clock
}

func NewAdminFlow(api services.AdminAPIClient, tokens services.TokenService, store services.KVStore) AdminFlow {
	return &AdminFlowImpl{
		api:    api,
		tokens: tokens,
		store:  store,
		now:    utils.UTCNow,
	}
}

func sessionKey(id string) string {
	return adminSessionKeyPrefix + id
}

func (f *AdminFlowImpl) Login(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.AdminLoginResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	username := strings.TrimSpace(req.Username)

	backendToken, err := f.api.Login(ctx, username, req.Password)
	if err != nil {
		if services.IsStatus(err, http.StatusUnauthorized) || services.IsStatus(err, http.StatusForbidden) {
			log.Warn().Str("username", username).Str("ip", metadata.ip()).Msg("Admin login rejected")
			return nil, NewBusinessError("INVALID_CREDENTIALS", "invalid username or password", ErrInvalidCredentials)
		}
		return nil, upstreamError("admin backend login failed", err)
	}

	now := f.now()
	session := dto.AdminSession{
		ID:           uuid.NewString(),
		Username:     username,
		BackendToken: backendToken,
		IPAddress:    metadata.ip(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(f.tokens.TTL()),
	}
	if err := services.SetJSON(ctx, f.store, sessionKey(session.ID), session, f.tokens.TTL()); err != nil {
		return nil, NewBusinessError("CACHE_NOT_AVAILABLE", "failed to store admin session", errors.Join(ErrCacheNotAvailable, err))
	}

	accessToken, expiresAt, err := f.tokens.GenerateAdminToken(session.ID, username)
	if err != nil {
		_ = f.store.Delete(ctx, sessionKey(session.ID))
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "failed to issue admin token", err)
	}

	log.Info().Str("username", username).Str("session_id", session.ID).Msg("Admin logged in")
	return &dto.AdminLoginResponse{
		Username: username,
		Session: dto.AdminSessionDTO{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   int(expiresAt.Sub(now).Seconds()),
			CreatedAt:   now.Format(time.RFC3339),
		},
	}, nil
}

func (f *AdminFlowImpl) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return NewBusinessError("SESSION_NOT_FOUND", "admin session not found", ErrSessionNotFound)
	}
	if err := f.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		return NewBusinessError("CACHE_NOT_AVAILABLE", "failed to delete admin session", errors.Join(ErrCacheNotAvailable, err))
	}
	return nil
}

// ValidateSession checks the token signature and expiry, then the server-side session
func (f *AdminFlowImpl) ValidateSession(ctx context.Context, token string) (*dto.AdminSession, error) {
	claims, err := f.tokens.ValidateAdminToken(token)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return nil, NewBusinessError("SESSION_EXPIRED", "admin session expired", ErrSessionExpired)
		}
		return nil, NewBusinessError("SESSION_NOT_FOUND", "invalid admin token", errors.Join(ErrSessionNotFound, err))
	}

	session, err := services.GetJSON[dto.AdminSession](ctx, f.store, sessionKey(claims.SessionID))
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			return nil, NewBusinessError("SESSION_NOT_FOUND", "admin session not found", ErrSessionNotFound)
		}
		return nil, NewBusinessError("CACHE_NOT_AVAILABLE", "failed to load admin session", errors.Join(ErrCacheNotAvailable, err))
	}
	if session.Username != claims.Username {
		return nil, NewBusinessError("SESSION_NOT_FOUND", "admin session does not match token", ErrSessionNotFound)
	}
	return session, nil
}

// backendError maps admin backend failures. A rejected backend token ends the session.
func (f *AdminFlowImpl) backendError(ctx context.Context, session *dto.AdminSession, op string, err error) error {
	if services.IsStatus(err, http.StatusUnauthorized) {
		if delErr := f.store.Delete(ctx, sessionKey(session.ID)); delErr != nil {
			log.Warn().Err(delErr).Str("session_id", session.ID).Msg("Failed to drop rejected admin session")
		}
		return NewBusinessError("SESSION_EXPIRED", "admin backend rejected the session", ErrSessionExpired)
	}
	log.Error().Err(err).Str("op", op).Str("username", session.Username).Msg("Admin backend call failed")
	return upstreamError(op+" failed", err)
}

func (f *AdminFlowImpl) ListAll(ctx context.Context, session *dto.AdminSession) (*dto.AdminTariffsResponse, error) {
	cities, err := f.api.ListAll(ctx, session.BackendToken)
	if err != nil {
		return nil, f.backendError(ctx, session, "list tariffs", err)
	}
	return summarizeDataset(cities), nil
}

func summarizeDataset(cities []dto.CityData) *dto.AdminTariffsResponse {
	if cities == nil {
		cities = []dto.CityData{}
	}
	resp := &dto.AdminTariffsResponse{Cities: cities, TotalCities: len(cities)}
	for _, city := range cities {
		for _, svc := range city.Services {
			resp.TotalTariffs += len(svc.Tariffs)
			resp.HiddenCount += lo.CountBy(svc.Tariffs, func(t dto.Tariff) bool { return t.Hidden })
		}
	}
	return resp
}

// mutate runs one write and refetches the whole dataset
func (f *AdminFlowImpl) mutate(ctx context.Context, session *dto.AdminSession, op string, call func(token string) error) (*dto.AdminTariffsResponse, error) {
	if err := call(session.BackendToken); err != nil {
		return nil, f.backendError(ctx, session, op, err)
	}
	log.Info().Str("op", op).Str("username", session.Username).Msg("Admin mutation applied")
	return f.ListAll(ctx, session)
}

func validateTariff(t dto.Tariff) error {
	fields := map[string]string{}
	if strings.TrimSpace(t.Name) == "" {
		fields["name"] = "name is required"
	}
	if t.Price < 0 {
		fields["price"] = "price must be greater than or equal to 0"
	}
	if t.DiscountPrice != nil && *t.DiscountPrice < 0 {
		fields["discountPrice"] = "discountPrice must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return NewValidationError(errors.New("tariff validation failed"), fields)
	}
	return nil
}

func (f *AdminFlowImpl) UpdateTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef, tariff dto.Tariff) (*dto.AdminTariffsResponse, error) {
	if err := validateTariff(tariff); err != nil {
		return nil, err
	}
	tariff.ID = ref.ID
	return f.mutate(ctx, session, "update tariff", func(token string) error {
		return f.api.Update(ctx, token, ref, tariff)
	})
}

func (f *AdminFlowImpl) PatchTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef, patch dto.TariffPatch) (*dto.AdminTariffsResponse, error) {
	return f.mutate(ctx, session, "patch tariff", func(token string) error {
		return f.api.Patch(ctx, token, ref, patch)
	})
}

func (f *AdminFlowImpl) DeleteTariff(ctx context.Context, session *dto.AdminSession, ref dto.TariffRef) (*dto.AdminTariffsResponse, error) {
	return f.mutate(ctx, session, "delete tariff", func(token string) error {
		return f.api.Delete(ctx, token, ref)
	})
}

func (f *AdminFlowImpl) MassDelete(ctx context.Context, session *dto.AdminSession, items []dto.TariffRef) (*dto.AdminTariffsResponse, error) {
	if len(items) == 0 {
		return nil, NewBusinessError("EMPTY_SELECTION", "no tariffs selected", ErrEmptySelection)
	}
	return f.mutate(ctx, session, "mass delete", func(token string) error {
		return f.api.MassDelete(ctx, token, items)
	})
}

func (f *AdminFlowImpl) MassHide(ctx context.Context, session *dto.AdminSession, items []dto.TariffRef, hidden bool) (*dto.AdminTariffsResponse, error) {
	if len(items) == 0 {
		return nil, NewBusinessError("EMPTY_SELECTION", "no tariffs selected", ErrEmptySelection)
	}
	return f.mutate(ctx, session, "mass hide", func(token string) error {
		return f.api.MassHide(ctx, token, items, hidden)
	})
}

func (f *AdminFlowImpl) AddTariff(ctx context.Context, session *dto.AdminSession, city, service string, tariff dto.Tariff) (*dto.AdminTariffsResponse, error) {
	if !IsCategoryID(service) {
		return nil, NewBusinessErrorf("INVALID_CATEGORY", "unknown service %q", ErrInvalidCategory, service)
	}
	if err := validateTariff(tariff); err != nil {
		return nil, err
	}
	return f.mutate(ctx, session, "add tariff", func(token string) error {
		return f.api.Add(ctx, token, city, service, tariff)
	})
}

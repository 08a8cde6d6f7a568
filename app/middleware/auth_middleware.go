// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

const (
	adminSessionLocal = "admin_session"
	requestIDLocal    = "request_id"
)

// SessionValidator resolves a bearer token to a live admin session
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*dto.AdminSession, error)
}

// AuthMiddleware guards the admin API
type AuthMiddleware struct {
	sessions SessionValidator
	timeout  time.Duration
}

func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		timeout:  5 * time.Second,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
// On failure it returns the message and error code to answer with.
func bearerToken(authHeader string) (token, message, code string) {
	if authHeader == "" {
		return "", "Authorization header is required", "MISSING_AUTHORIZATION_HEADER"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT"
	}
	token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Access token is required", "MISSING_ACCESS_TOKEN"
	}
	return token, "", ""
}

// AdminAuthenticate checks the JWT and the server-side session, then stores the session in locals
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, message, code := bearerToken(c.Get("Authorization"))
		if token == "" {
			return unauthorized(c, message, code)
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		session, err := m.sessions.ValidateSession(ctx, token)
		if err != nil {
			switch {
			case businessflow.IsSessionExpired(err):
				return unauthorized(c, "Admin session has expired", "SESSION_EXPIRED")
			case businessflow.IsSessionNotFound(err):
				return unauthorized(c, "Admin session not found", "SESSION_NOT_FOUND")
			case businessflow.IsCacheNotAvailable(err):
				log.Error().Err(err).Msg("Session store unavailable")
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
					Success: false,
					Message: "Session store unavailable",
					Error:   dto.ErrorDetail{Code: "CACHE_NOT_AVAILABLE"},
				})
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}

		c.Locals(adminSessionLocal, session)
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals(requestIDLocal, requestID)
		}
		return c.Next()
	}
}

// GetAdminSession returns the session stored by AdminAuthenticate
func GetAdminSession(c fiber.Ctx) (*dto.AdminSession, bool) {
	session, ok := c.Locals(adminSessionLocal).(*dto.AdminSession)
	return session, ok && session != nil
}

// Package router provides HTTP routing, middleware configuration, and server setup for the storefront
package router

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/handlers"
	"github.com/amirphl/tariff-storefront/app/middleware"
	"github.com/amirphl/tariff-storefront/config"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// HealthCheck probes one dependency; nil means healthy
type HealthCheck func(ctx context.Context) error

// Handlers groups everything the router mounts
type Handlers struct {
	Catalog handlers.CatalogHandlerInterface
	Visitor handlers.VisitorHandlerInterface
	Lead    handlers.LeadHandlerInterface
	Wizard  handlers.WizardHandlerInterface
	Admin   handlers.AdminHandlerInterface
	Import  handlers.ImportHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app          *fiber.App
	cfg          *config.ProductionConfig
	handlers     Handlers
	auth         *middleware.AuthMiddleware
	cityRedirect fiber.Handler
	healthChecks map[string]HealthCheck
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	h Handlers,
	auth *middleware.AuthMiddleware,
	cityRedirect fiber.Handler,
	healthChecks map[string]HealthCheck,
) Router {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 25 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      "Tariff Storefront API",
		ServerHeader: "tariff-storefront",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,

		// c.IP() reads ProxyHeader only when the socket peer is a listed proxy
		TrustProxy:         len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig:   fiber.TrustProxyConfig{Proxies: cfg.Server.TrustedProxies},
		ProxyHeader:        cfg.Server.ProxyHeader,
		EnableIPValidation: true,
	})

	return &FiberRouter{
		app:          app,
		cfg:          cfg,
		handlers:     h,
		auth:         auth,
		cityRedirect: cityRedirect,
		healthChecks: healthChecks,
	}
}

func rateLimited(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// newLimiter builds a per-IP limiter of max requests per window
func (r *FiberRouter) newLimiter(max int, skip func(c fiber.Ctx) bool) fiber.Handler {
	window := r.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return utils.NormalizeIP(c.IP())
		},
		LimitReached: rateLimited,
		Next:         skip,
	})
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Info().Msg("Setting up routes...")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	api.Use(r.newLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == "/api/v1/health"
	}))

	// Catalog
	api.Get("/cities", r.handlers.Catalog.ListCities)
	api.Get("/cities/:slug", r.handlers.Catalog.GetCity)
	api.Get("/cities/:slug/tariffs", r.handlers.Catalog.ListTariffs)
	responseTTL := r.cfg.Cache.ResponseTTL
	if responseTTL <= 0 {
		responseTTL = 5 * time.Minute
	}
	api.Get("/regions", cache.New(cache.Config{
		Expiration: responseTTL,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.OriginalURL()
		},
	}), r.handlers.Catalog.Regions)
	api.Get("/slug", r.handlers.Catalog.Slug)

	// Visitor
	visitor := api.Group("/visitor")
	visitor.Post("/city", r.handlers.Visitor.ChooseCity)
	visitor.Post("/support-only", r.handlers.Visitor.SetSupportOnly)

	// Leads get a stricter limit
	api.Post("/leads", r.newLimiter(r.cfg.Security.LeadRateLimit, nil), r.handlers.Lead.Submit)

	// Order wizard
	api.Post("/wizard", r.handlers.Wizard.Start)
	wizard := api.Group("/wizard")
	wizard.Get("/:id", r.handlers.Wizard.Get)
	wizard.Post("/:id/next", r.handlers.Wizard.Next)
	wizard.Post("/:id/prev", r.handlers.Wizard.Prev)
	wizard.Post("/:id/submit", r.handlers.Wizard.Submit)

	// Admin
	api.Post("/admin/login", r.newLimiter(r.cfg.Security.AuthRateLimit, nil), r.handlers.Admin.Login)

	admin := api.Group("/admin", r.auth.AdminAuthenticate())
	admin.Post("/logout", r.handlers.Admin.Logout)
	admin.Get("/tariffs", r.handlers.Admin.ListTariffs)
	admin.Post("/tariffs/mass-delete", r.handlers.Admin.MassDelete)
	admin.Post("/tariffs/mass-hide", r.handlers.Admin.MassHide)
	admin.Put("/tariffs/:city/:service/:id", r.handlers.Admin.UpdateTariff)
	admin.Patch("/tariffs/:city/:service/:id", r.handlers.Admin.PatchTariff)
	admin.Delete("/tariffs/:city/:service/:id", r.handlers.Admin.DeleteTariff)
	admin.Post("/tariffs/:city/:service", r.handlers.Admin.AddTariff)
	admin.Get("/leads", r.handlers.Lead.Journal)
	admin.Get("/leads/:id", r.handlers.Lead.JournalEntry)
	admin.Post("/import", r.handlers.Import.Upload)
	admin.Get("/import", r.handlers.Import.Recent)
	admin.Get("/import/:id", r.handlers.Import.Status)
	admin.Delete("/import/:id", r.handlers.Import.Cancel)

	// Storefront pages
	r.app.Get("/:city/:service", r.handlers.Catalog.Page)

	r.app.Use(r.notFoundHandler)

	log.Info().Msg("Routes setup completed")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: fiber.HeaderXRequestID,
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	hstsMaxAge := r.cfg.Security.HSTSMaxAge
	if hstsMaxAge <= 0 {
		hstsMaxAge = 31536000
	}
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                hstsMaxAge,
		ContentSecurityPolicy:     "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge <= 0 {
		maxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{fiber.HeaderXRequestID},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           maxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	r.app.Use(middleware.Metrics())

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(middleware.RequestLogger())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Error().
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Interface("panic", e).
				Msg("Recovered from panic")
		},
	}))

	r.app.Use(middleware.Visitor())

	if r.cityRedirect != nil {
		r.app.Use(r.cityRedirect)
	}
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Info().Str("address", address).Msg("Starting server")
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// healthCheck reports the service and every probed dependency; one failing probe makes it 503
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	status := "ok"
	checks := make(fiber.Map, len(r.healthChecks))
	for name, check := range r.healthChecks {
		if err := check(ctx); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	code, message := fiber.StatusOK, "Service is healthy"
	if status != "ok" {
		code, message = fiber.StatusServiceUnavailable, "Service is degraded"
	}
	return c.Status(code).JSON(dto.APIResponse{
		Success: status == "ok",
		Message: message,
		Data: fiber.Map{
			"status":      status,
			"timestamp":   utils.UTCNow().Unix(),
			"version":     r.cfg.Deployment.Version,
			"environment": r.cfg.Deployment.Environment,
			"service":     "tariff-storefront",
			"checks":      checks,
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errCode = "REQUEST_ERROR"
		}
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Str("path", c.Path()).Msg("Unhandled error")
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			},
		},
	})
}

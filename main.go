// Package main provides the entry point of the tariff storefront backend
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amirphl/tariff-storefront/app/handlers"
	"github.com/amirphl/tariff-storefront/app/middleware"
	"github.com/amirphl/tariff-storefront/app/router"
	"github.com/amirphl/tariff-storefront/app/scheduler"
	"github.com/amirphl/tariff-storefront/app/services"
	businessflow "github.com/amirphl/tariff-storefront/business_flow"
	"github.com/amirphl/tariff-storefront/config"
	"github.com/amirphl/tariff-storefront/models"
	"github.com/amirphl/tariff-storefront/repository"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
	closers   []func() error
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging)
	log.Info().
		Str("environment", cfg.Deployment.Environment).
		Str("version", cfg.Deployment.Version).
		Str("commit", cfg.Deployment.CommitHash).
		Str("build_time", cfg.Deployment.BuildTime).
		Str("domain", cfg.Deployment.Domain).
		Msg("Starting tariff storefront")

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-sigChan
	log.Info().Msg("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Error while releasing a resource")
		}
	}

	log.Info().Msg("Server stopped")
}

// setupLogger configures the global zerolog logger; file output rotates through lumberjack
func setupLogger(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = os.Stdout
	if cfg.Format == "console" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var out io.Writer
	switch cfg.Output {
	case "file", "both":
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "both" {
			out = zerolog.MultiLevelWriter(console, rotating)
		} else {
			out = rotating
		}
	default:
		out = console
	}

	logCtx := zerolog.New(out).With().Timestamp()
	if cfg.EnableCaller {
		logCtx = logCtx.Caller()
	}
	log.Logger = logCtx.Logger()
}

// initializeDatabase opens the lead/import journal with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	logLevel := gormlogger.Silent
	if cfg.SlowQueryLog {
		logLevel = gormlogger.Warn
	}
	gormLog := gormlogger.New(&log.Logger, gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryTime,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate journal tables: %w", err)
	}

	log.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("Database connection established")

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Int("db", cfg.RedisDB).Msg("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor pings Redis periodically so connectivity loss shows up in the logs
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn().Err(err).Msg("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var (
		stopFuncs    []func()
		closers      []func() error
		healthChecks = map[string]router.HealthCheck{}
	)

	var (
		leadRepo   repository.LeadRecordRepository
		importRepo repository.ImportRunRepository
	)
	if cfg.Database.Enabled {
		db, err := initializeDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		closers = append(closers, sqlDB.Close)
		healthChecks["database"] = sqlDB.PingContext

		leadRepo = repository.NewLeadRecordRepository(db)
		importRepo = repository.NewImportRunRepository(db)
	} else {
		log.Warn().Msg("Database disabled; lead and import journals are not persisted")
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var (
		store   services.KVStore
		sweeper scheduler.Sweeper
	)
	if rc != nil {
		store = services.NewRedisKVStore(rc, cfg.Cache.RedisPrefix)
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second))
		closers = append(closers, rc.Close)
		healthChecks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	} else {
		memory := services.NewMemoryKVStore()
		store = memory
		sweeper = memory
		log.Warn().Msg("Redis disabled; using the in-process store for caches, sessions and wizard state")
	}

	tokenService, err := services.NewTokenService(cfg.JWT.TokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	tariffAPI := services.NewTariffAPIClient(cfg.TariffAPI.BaseURL, cfg.TariffAPI.Timeout)
	adminAPI := services.NewAdminAPIClient(cfg.AdminAPI.BaseURL, cfg.AdminAPI.Timeout)
	geoClient := services.NewGeoClient(cfg.Geo.BaseURL, cfg.Geo.Language, cfg.Geo.Timeout, store).
		WithRateLimit(cfg.Geo.RateLimit)

	validate := utils.NewValidator()

	catalogFlow := businessflow.NewCatalogFlow(tariffAPI, store, cfg.Cache.RegionsTTL)
	resolutionFlow := businessflow.NewCityResolutionFlow(
		catalogFlow,
		geoClient,
		cfg.Geo.RedirectEnabled,
		cfg.Site.DefaultCity,
		cfg.Site.DefaultService,
	)
	leadFlow := businessflow.NewLeadFlow(tariffAPI, leadRepo, validate)
	wizardFlow := businessflow.NewWizardFlow(
		catalogFlow,
		leadFlow,
		store,
		validate,
		cfg.Wizard.StateTTL,
		utils.LoadLocationOrUTC(cfg.Site.Timezone),
	)
	adminFlow := businessflow.NewAdminFlow(adminAPI, tokenService, store)
	importFlow := businessflow.NewImportFlow(adminAPI, importRepo, businessflow.ImportOptions{
		ChunkSize:      cfg.Import.ChunkSize,
		ChunkDelay:     cfg.Import.ChunkDelay,
		RequestTimeout: cfg.Import.RequestTimeout,
		MaxErrors:      cfg.Import.MaxErrors,
	})

	h := router.Handlers{
		Catalog: handlers.NewCatalogHandler(catalogFlow),
		Visitor: handlers.NewVisitorHandler(resolutionFlow, handlers.CookieOptions{
			Secure:   cfg.Security.CookieSecure,
			SameSite: cfg.Security.CookieSameSite,
		}),
		Lead:   handlers.NewLeadHandler(leadFlow),
		Wizard: handlers.NewWizardHandler(wizardFlow),
		Admin:  handlers.NewAdminHandler(adminFlow),
		Import: handlers.NewImportHandler(importFlow, cfg.Import.MaxFileSize),
	}

	cityRedirect := middleware.CityRedirect(middleware.CityRedirectConfig{
		Resolver:    resolutionFlow,
		Finder:      catalogFlow,
		DefaultCity: cfg.Site.DefaultCity,
	})

	appRouter := router.NewFiberRouter(
		cfg,
		h,
		middleware.NewAuthMiddleware(adminFlow),
		cityRedirect,
		healthChecks,
	)

	sched := scheduler.NewMaintenanceScheduler(catalogFlow, sweeper, cfg.Cache.RegionsRefreshSpec)
	stopScheduler, err := sched.Start(context.Background())
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, stopScheduler)

	return &Application{
		router:    appRouter,
		config:    cfg,
		stopFuncs: stopFuncs,
		closers:   closers,
	}, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func TestLoadProductionConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Geo.RedirectEnabled)
	assert.Equal(t, "moskva", cfg.Site.DefaultCity)
	assert.Equal(t, "internet", cfg.Site.DefaultService)
	assert.Equal(t, 1000, cfg.Import.ChunkSize)
	assert.Equal(t, time.Second, cfg.Import.ChunkDelay)
	assert.Equal(t, 30*time.Second, cfg.Import.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 10*time.Second, cfg.TariffAPI.Timeout)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "X-Real-IP", cfg.Server.ProxyHeader)
}

func TestLoadProductionConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "JWT_SECRET_KEY=" + testSecret + "\nDEFAULT_CITY=\"kazan\"\nGEO_REDIRECT_ENABLED=false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	// variables already in the environment win over the file
	t.Setenv("IMPORT_CHUNK_SIZE", "250")
	t.Setenv("DEFAULT_SERVICE", "internet-tv")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	assert.Equal(t, "kazan", cfg.Site.DefaultCity)
	assert.Equal(t, "internet-tv", cfg.Site.DefaultService)
	assert.False(t, cfg.Geo.RedirectEnabled)
	assert.Equal(t, 250, cfg.Import.ChunkSize)

	for _, key := range []string{"JWT_SECRET_KEY", "DEFAULT_CITY", "GEO_REDIRECT_ENABLED"} {
		os.Unsetenv(key)
	}
}

func TestValidateProductionConfig(t *testing.T) {
	valid := func() *ProductionConfig {
		return &ProductionConfig{
			Database:  DatabaseConfig{Enabled: false},
			Server:    ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
			JWT:       JWTConfig{SecretKey: testSecret, TokenTTL: time.Hour, Issuer: "test"},
			TariffAPI: TariffAPIConfig{BaseURL: "http://tariffs"},
			AdminAPI:  AdminAPIConfig{BaseURL: "http://admin"},
			Geo:       GeoConfig{RedirectEnabled: true, BaseURL: "http://geo"},
			Site:      SiteConfig{DefaultCity: "moskva", DefaultService: "internet"},
			Import:    ImportConfig{ChunkSize: 1000, ChunkDelay: time.Second, RequestTimeout: 30 * time.Second},
			Logging:   LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(cfg *ProductionConfig)
		errContains []string
	}{
		{
			name:   "valid",
			mutate: func(cfg *ProductionConfig) {},
		},
		{
			name:        "short secret",
			mutate:      func(cfg *ProductionConfig) { cfg.JWT.SecretKey = "short" },
			errContains: []string{"JWT_SECRET_KEY"},
		},
		{
			name: "geo url only required when enabled",
			mutate: func(cfg *ProductionConfig) {
				cfg.Geo.BaseURL = ""
				cfg.Geo.RedirectEnabled = false
			},
		},
		{
			name:        "geo url missing",
			mutate:      func(cfg *ProductionConfig) { cfg.Geo.BaseURL = "" },
			errContains: []string{"GEO_API_URL"},
		},
		{
			name: "trusted proxies accept ips and cidrs",
			mutate: func(cfg *ProductionConfig) {
				cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "::1"}
				cfg.Server.ProxyHeader = "X-Forwarded-For"
			},
		},
		{
			name: "bad trusted proxy",
			mutate: func(cfg *ProductionConfig) {
				cfg.Server.TrustedProxies = []string{"nginx.local"}
			},
			errContains: []string{"SERVER_TRUSTED_PROXIES", "SERVER_PROXY_HEADER"},
		},
		{
			name: "all problems reported together",
			mutate: func(cfg *ProductionConfig) {
				cfg.Import.ChunkSize = 0
				cfg.Logging.Level = "trace"
				cfg.Database = DatabaseConfig{Enabled: true}
			},
			errContains: []string{"IMPORT_CHUNK_SIZE", "LOG_LEVEL", "DB_HOST", "DB_NAME"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			if len(tt.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, s := range tt.errContains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Google.APIKey)
	assert.Equal(t, "vi", cfg.Google.Language)
	assert.Equal(t, 1000, cfg.Google.MonthlyLimit)
	assert.Equal(t, "data/geocoding_usage.json", cfg.Google.UsageFile)
	assert.Equal(t, "https://www.google.com/maps/dir", cfg.Scrape.BaseURL)
	assert.Equal(t, "scraped_pages", cfg.Scrape.AuditDir)
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.OSM.BaseURL)
	assert.Equal(t, 1100, cfg.OSM.MinIntervalMs)
	assert.InDelta(t, 8.0, cfg.Extract.MinLat, 0.001)
	assert.InDelta(t, 24.0, cfg.Extract.MaxLat, 0.001)
	assert.InDelta(t, 102.0, cfg.Extract.MinLng, 0.001)
	assert.InDelta(t, 110.0, cfg.Extract.MaxLng, 0.001)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "resolutions.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
google:
  api_key: test-key
  monthly_limit: 500
store:
  driver: postgres
  database_url: postgres://localhost/places
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Google.APIKey)
	assert.Equal(t, 500, cfg.Google.MonthlyLimit)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "vi", cfg.Google.Language)
	assert.Equal(t, 1100, cfg.OSM.MinIntervalMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PLACE_STORE_DRIVER", "postgres")
	t.Setenv("PLACE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("PLACE_GOOGLE_API_KEY", "env-key")
	t.Setenv("PLACE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Google.APIKey)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestExtractRegionBounds(t *testing.T) {
	e := ExtractConfig{MinLat: 8, MaxLat: 24, MinLng: 102, MaxLng: 110}
	b := e.Region()
	assert.InDelta(t, 102.0, b.Min(0), 0.001)
	assert.InDelta(t, 110.0, b.Max(0), 0.001)
	assert.InDelta(t, 8.0, b.Min(1), 0.001)
	assert.InDelta(t, 24.0, b.Max(1), 0.001)
}

func validDefaults() *Config {
	return &Config{
		Google:  GoogleConfig{Language: "vi", MonthlyLimit: 1000},
		OSM:     OSMConfig{UserAgent: "place-resolver/1.0", MinIntervalMs: 1100},
		Extract: ExtractConfig{MinLat: 8, MaxLat: 24, MinLng: 102, MaxLng: 110},
		Store:   StoreConfig{Driver: "sqlite", Path: "resolutions.db"},
		Server:  ServerConfig{Port: 8080},
	}
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateResolve_IgnoresPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.NoError(t, cfg.Validate("resolve"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStoreDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/places"
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be")

	cfg.Store.Driver = ""
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateRegionBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.MinLat = 30
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.min_lat must be < extract.max_lat")
}

func TestValidateOSM(t *testing.T) {
	cfg := validDefaults()
	cfg.OSM.UserAgent = ""
	cfg.OSM.MinIntervalMs = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osm.user_agent is required")
	assert.Contains(t, err.Error(), "osm.min_interval_ms must be > 0")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

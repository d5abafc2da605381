package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://info.kingcounty.gov", cfg.Source.BaseURL)
	assert.Equal(t, "/health/ehs/foodsafety/inspections/Results.aspx", cfg.Source.Path)
	assert.Equal(t, "utf-8", cfg.Source.Encoding)
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, 3, cfg.Source.Retries)
	assert.False(t, cfg.Source.Render)
	assert.Equal(t, "data/raw", cfg.Source.RawDir)
	assert.Equal(t, 0, cfg.Extract.Workers)
	assert.Equal(t, DefaultExtractLimit, cfg.Extract.Limit)
	assert.False(t, cfg.Geo.Enabled)
	assert.Equal(t, "census", cfg.Geo.Provider)
	assert.InDelta(t, 10, cfg.Geo.RateLimit, 0.001)
	assert.Equal(t, 4, cfg.Geo.Concurrency)
	assert.Equal(t, 10, cfg.Geo.TimeoutSecs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "inspections.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.2, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Len(t, cfg.Query, 16)
	assert.Equal(t, "W", cfg.Query["Output"])
	assert.Equal(t, "All", cfg.Query["Inspection_Type"])
	assert.Equal(t, "A", cfg.Query["Inspection_Closed_Business"])
	assert.Equal(t, "N", cfg.Query["Fuzzy_Search"])
	assert.Equal(t, "H", cfg.Query["Sort"])
	assert.Equal(t, "", cfg.Query["Zip_Code"])
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  encoding: windows-1252
  render: true
query:
  Zip_Code: "98109"
  City: Seattle
extract:
  limit: 25
geo:
  enabled: true
  concurrency: 8
store:
  driver: postgres
  database_url: postgres://localhost/inspections
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "windows-1252", cfg.Source.Encoding)
	assert.True(t, cfg.Source.Render)
	assert.Equal(t, "98109", cfg.Query["Zip_Code"])
	assert.Equal(t, "Seattle", cfg.Query["City"])
	assert.Equal(t, "W", cfg.Query["Output"])
	assert.Equal(t, 25, cfg.Extract.Limit)
	assert.True(t, cfg.Geo.Enabled)
	assert.Equal(t, 8, cfg.Geo.Concurrency)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("INSPECT_STORE_DRIVER", "postgres")
	t.Setenv("INSPECT_SERVER_PORT", "9090")
	t.Setenv("INSPECT_QUERY_ZIP_CODE", "98144")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "98144", cfg.Query["Zip_Code"])
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INSPECT_GEO_GOOGLE_API_KEY=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("INSPECT_GEO_GOOGLE_API_KEY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Geo.GoogleAPIKey)
}

func TestLoadEnvSecrets(t *testing.T) {
	chdirTemp(t)
	t.Setenv("INSPECT_GEO_GOOGLE_API_KEY", "k")
	t.Setenv("INSPECT_MONITORING_WEBHOOK_URL", "http://hook")
	t.Setenv("INSPECT_SOURCE_CHROME_BIN", "/usr/bin/chromium")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.Geo.GoogleAPIKey)
	assert.Equal(t, "http://hook", cfg.Monitoring.WebhookURL)
	assert.Equal(t, "/usr/bin/chromium", cfg.Source.ChromeBin)
}

func TestLoadExtractLimitZero(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("extract:\n  limit: 0\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Extract.Limit)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("source: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func validDefaults() *Config {
	return &Config{
		Source: SourceConfig{BaseURL: "http://info.kingcounty.gov"},
		Geo:    GeoConfig{Provider: "census", Concurrency: 4, TimeoutSecs: 10},
		Store:  StoreConfig{Driver: "sqlite", DatabaseURL: "inspections.db"},
		Server: ServerConfig{Port: 8080},
	}
}

func TestValidate_Commands(t *testing.T) {
	cfg := validDefaults()
	for _, cmd := range []string{"fetch", "scrape", "runs", "serve"} {
		assert.NoError(t, cfg.Validate(cmd), cmd)
	}
}

func TestValidateFetch_MissingBaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Source.BaseURL = ""

	err := cfg.Validate("fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.base_url is required")
}

func TestValidateScrape_GeoSettings(t *testing.T) {
	cfg := validDefaults()
	cfg.Geo.Enabled = true
	cfg.Geo.Concurrency = 0
	cfg.Geo.TimeoutSecs = 0
	cfg.Geo.Provider = "google"

	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geo.concurrency must be between 1 and 32")
	assert.Contains(t, err.Error(), "geo.timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "geo.google_api_key is required")

	cfg.Geo.Provider = "bing"
	err = cfg.Validate("scrape")
	assert.Contains(t, err.Error(), "geo.provider must be census or google")
}

func TestValidateScrape_GeoDisabledIgnoresGeo(t *testing.T) {
	cfg := validDefaults()
	cfg.Geo.Concurrency = 0
	assert.NoError(t, cfg.Validate("scrape"))
}

func TestValidateExtractBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.Limit = -1
	cfg.Extract.Workers = -2

	err := cfg.Validate("scrape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.workers must be >= 0")
	assert.Contains(t, err.Error(), "extract.limit must be >= 0")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateRuns_StoreDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"

	err := cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("runs")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	err := InitLogger(LogConfig{Level: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestValidateServe_Monitoring(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring = MonitoringConfig{Enabled: true, FailureRateThreshold: 1.5}

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.lookback_window_hours must be > 0")
	assert.Contains(t, err.Error(), "monitoring.failure_rate_threshold must be between 0 and 1")

	cfg.Monitoring = MonitoringConfig{Enabled: true, LookbackWindowHours: 24, FailureRateThreshold: 0.2}
	assert.NoError(t, cfg.Validate("serve"))
}

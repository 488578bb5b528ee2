package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"62.02A", "71.12B"}, cfg.Search.NAFCodes)
	assert.Equal(t, 10, cfg.Search.MinEmployees)
	assert.Equal(t, 500, cfg.Search.MaxEmployees)
	assert.Equal(t, 100, cfg.Search.PerPage)
	assert.Equal(t, 5, cfg.Search.MaxPages)
	assert.Equal(t, 600*time.Millisecond, cfg.Search.Sleep())
	assert.Equal(t, 2000, cfg.Search.ExcludeOver)
	assert.False(t, cfg.Search.IncludeZero)
	assert.False(t, cfg.Sources.UseRecherche)
	assert.False(t, cfg.Sources.InseeOnly)
	assert.Equal(t, "https://api.insee.fr/token", cfg.Insee.TokenURL)
	assert.Equal(t, 5, cfg.SerpAPI.Num)
	assert.Equal(t, "google", cfg.SerpAPI.Engine)
	assert.Equal(t, 1, cfg.Serper.Num)
	assert.Equal(t, 25, cfg.HTTP.TimeoutSecs)
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
	assert.Equal(t, "esn_candidates.csv", cfg.Output.Path)
	assert.Equal(t, "esn_relevant_for_clustor.csv", cfg.Output.RelevantName)
	assert.Equal(t, "", cfg.Store.Driver)
	assert.Equal(t, 720, cfg.Store.CacheTTLHours)
	assert.False(t, cfg.Notion.Enabled())
	assert.Equal(t, 3.0, cfg.Notion.RPS)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
search:
  naf_codes: ["62.02", "70.22Z"]
  min_emp: 20
  exclude_over_emp: -1
  no_web_scan: true
sources:
  use_recherche: true
store:
  driver: sqlite
  database_url: esn.db
notion:
  token: ntn_x
  lead_db: db-1
  rps: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"62.02", "70.22Z"}, cfg.Search.NAFCodes)
	assert.Equal(t, 20, cfg.Search.MinEmployees)
	assert.Equal(t, 500, cfg.Search.MaxEmployees)
	assert.Equal(t, -1, cfg.Search.ExcludeOver)
	assert.True(t, cfg.Search.NoWebScan)
	assert.True(t, cfg.Sources.UseRecherche)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Notion.Enabled())
	assert.Equal(t, 0.5, cfg.Notion.RPS)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ESN_STORE_DRIVER", "postgres")
	t.Setenv("ESN_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SIRENE_CLIENT_ID", "cid")
	t.Setenv("SIRENE_CLIENT_SECRET", "secret")
	t.Setenv("SIRENE_API_KEY", "key")
	t.Setenv("SIRENE_API_BASE", "https://sirene.example")
	t.Setenv("SERPAPI_KEY", "serp")
	t.Setenv("SERPER_API_KEY", "serper")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.Insee.ClientID)
	assert.Equal(t, "secret", cfg.Insee.ClientSecret)
	assert.Equal(t, "key", cfg.Insee.APIKey)
	assert.Equal(t, "https://sirene.example", cfg.Insee.BaseURL)
	assert.Equal(t, "serp", cfg.SerpAPI.Key)
	assert.Equal(t, "serper", cfg.Serper.Key)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ESN_SERPER_KEY", "prefixed")
	t.Setenv("SERPER_API_KEY", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Serper.Key)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Search.NAFCodes = nil
	cfg.Search.MaxEmployees = 5
	cfg.SerpAPI.Enabled = true
	cfg.Store.Driver = "mysql"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.naf_codes must not be empty")
	assert.Contains(t, err.Error(), "min_emp/max_emp")
	assert.Contains(t, err.Error(), "serpapi.key is required")
	assert.Contains(t, err.Error(), "store.driver must be")
}

func TestValidate_StoreNeedsURL(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Store.Driver = "sqlite"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
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

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
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leads.db", cfg.Store.DatabaseURL)
	assert.Equal(t, RemoteNone, cfg.Remote.Kind)
	assert.Equal(t, "Sheet1", cfg.Sheets.SheetName)
	assert.Equal(t, "default", cfg.Sheets.KeyringAccount)
	assert.Equal(t, "leads.xlsx", cfg.XLSX.Path)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 1000, cfg.Search.PageDelayMS)
	assert.Equal(t, "mobile", cfg.PageSpeed.Strategy)
	assert.Equal(t, 2000, cfg.PageSpeed.DelayMS)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "site:myshopify.com", cfg.Scan.Query)
	assert.Equal(t, 100, cfg.Scan.MaxResults)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
log:
  level: debug
  format: console
remote:
  kind: webhook
  webhook_url: https://script.google.com/macros/s/abc/exec
server:
  port: 9090
scan:
  max_results: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, RemoteWebhook, cfg.Remote.Kind)
	assert.Equal(t, "https://script.google.com/macros/s/abc/exec", cfg.Remote.WebhookURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Scan.MaxResults)
	// Defaults still apply for unset values
	assert.Equal(t, "site:myshopify.com", cfg.Scan.Query)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LEADS_STORE_DRIVER", "memory")
	t.Setenv("LEADS_LOG_LEVEL", "warn")
	t.Setenv("LEADS_SHEETS_SPREADSHEET_ID", "sheet-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sheet-123", cfg.Sheets.SpreadsheetID)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "leads.db"
	cfg.Remote.Kind = RemoteNone
	return cfg
}

func TestValidate_CaptureNoRemote(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("capture"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_WebhookURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Remote.Kind = RemoteWebhook

	// Empty and placeholder destinations are unconfigured, not invalid.
	assert.NoError(t, cfg.Validate("capture"))
	cfg.Remote.WebhookURL = "YOUR_APPS_SCRIPT_WEBHOOK_URL_HERE"
	assert.NoError(t, cfg.Validate("capture"))

	cfg.Remote.WebhookURL = "https://hooks.example.com/leads"
	assert.NoError(t, cfg.Validate("capture"))

	for _, bad := range []string{"ftp://hooks.example.com", "/relative/path", "hooks.example.com"} {
		cfg.Remote.WebhookURL = bad
		err := cfg.Validate("capture")
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "absolute http(s)")
	}
}

func TestValidate_RemoteKinds(t *testing.T) {
	tests := []struct {
		kind    string
		missing string
	}{
		{RemoteSheets, "sheets.spreadsheet_id"},
		{RemoteNotion, "notion.token"},
		{RemoteSalesforce, "salesforce.client_id"},
		{"carrier-pigeon", "remote.kind"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Remote.Kind = tt.kind
			err := cfg.Validate("capture")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestValidate_SheetsAccessTokenSkipsOAuth(t *testing.T) {
	cfg := validDefaults()
	cfg.Remote.Kind = RemoteSheets
	cfg.Sheets.SpreadsheetID = "id"
	cfg.Sheets.AccessToken = "ya29.token"
	assert.NoError(t, cfg.Validate("capture"))
}

func TestValidate_Scan(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.api_key")
	assert.Contains(t, err.Error(), "pagespeed.api_key")
	assert.Contains(t, err.Error(), "sheets.spreadsheet_id")

	cfg.Search.APIKey = "k"
	cfg.Search.EngineID = "cx"
	cfg.PageSpeed.APIKey = "p"
	cfg.Remote.Kind = RemoteXLSX
	cfg.XLSX.Path = "scan.xlsx"
	assert.NoError(t, cfg.Validate("scan"))
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.Validate("capture"))

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("capture")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")

	cfg.Store.Driver = "memory"
	assert.NoError(t, cfg.Validate("capture"))
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

// Package config loads application settings from config.yaml and LEADS_
// environment variables.
package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-builder/internal/persist"
)

// Remote sink kinds.
const (
	RemoteNone       = "none"
	RemoteWebhook    = "webhook"
	RemoteSheets     = "sheets"
	RemoteXLSX       = "xlsx"
	RemoteNotion     = "notion"
	RemoteSalesforce = "salesforce"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Remote     RemoteConfig     `yaml:"remote" mapstructure:"remote"`
	Sheets     SheetsConfig     `yaml:"sheets" mapstructure:"sheets"`
	XLSX       XLSXConfig       `yaml:"xlsx" mapstructure:"xlsx"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	PageSpeed  PageSpeedConfig  `yaml:"pagespeed" mapstructure:"pagespeed"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the local lead cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RemoteConfig selects the single remote destination leads are forwarded to.
type RemoteConfig struct {
	Kind          string `yaml:"kind" mapstructure:"kind"`
	WebhookURL    string `yaml:"webhook_url" mapstructure:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
}

// SheetsConfig holds the spreadsheet row store settings.
type SheetsConfig struct {
	SpreadsheetID  string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName      string `yaml:"sheet_name" mapstructure:"sheet_name"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	ClientID       string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret   string `yaml:"client_secret" mapstructure:"client_secret"`
	KeyringAccount string `yaml:"keyring_account" mapstructure:"keyring_account"`
	// AccessToken bypasses the refresh flow when set.
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
}

// XLSXConfig holds the local workbook row store settings.
type XLSXConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT bearer flow settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	EngineID    string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	PageDelayMS int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
}

// PageSpeedConfig configures the page metrics provider.
type PageSpeedConfig struct {
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	DelayMS  int    `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// JinaConfig configures the Jina Reader fetch fallback.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScanConfig holds bulk scan defaults.
type ScanConfig struct {
	Query      string `yaml:"query" mapstructure:"query"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("remote.kind", RemoteNone)
	v.SetDefault("remote.webhook_url", "")
	v.SetDefault("remote.webhook_secret", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.sheet_name", "Sheet1")
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com/v4/spreadsheets")
	v.SetDefault("sheets.client_id", "")
	v.SetDefault("sheets.client_secret", "")
	v.SetDefault("sheets.keyring_account", "default")
	v.SetDefault("sheets.access_token", "")
	v.SetDefault("xlsx.path", "leads.xlsx")
	v.SetDefault("xlsx.sheet_name", "Sheet1")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.page_delay_ms", 1000)
	v.SetDefault("pagespeed.api_key", "")
	v.SetDefault("pagespeed.strategy", "mobile")
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("pagespeed.delay_ms", 2000)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("scan.query", "site:myshopify.com")
	v.SetDefault("scan.max_results", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys required by the given command mode are set.
// Modes: capture, scan, serve.
func (c *Config) Validate(mode string) error {
	var missing []string
	require := func(val, key string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	switch mode {
	case "capture", "serve":
		c.requireRemote(require)
	case "scan":
		require(c.Search.APIKey, "search.api_key")
		require(c.Search.EngineID, "search.engine_id")
		require(c.PageSpeed.APIKey, "pagespeed.api_key")
		if c.Remote.Kind != RemoteXLSX {
			require(c.Sheets.SpreadsheetID, "sheets.spreadsheet_id")
			c.requireSheetsAuth(require)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		require(c.Store.DatabaseURL, "store.database_url")
	case "memory":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required keys for %s: %s", mode, strings.Join(missing, ", "))
	}

	if c.Remote.Kind == RemoteWebhook && persist.Configured(c.Remote.WebhookURL) {
		if err := ValidateWebhookURL(c.Remote.WebhookURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) requireRemote(require func(val, key string)) {
	switch c.Remote.Kind {
	case RemoteNone, "", RemoteWebhook:
		// An empty or placeholder webhook URL means the remote step is skipped.
	case RemoteSheets:
		require(c.Sheets.SpreadsheetID, "sheets.spreadsheet_id")
		c.requireSheetsAuth(require)
	case RemoteXLSX:
		require(c.XLSX.Path, "xlsx.path")
	case RemoteNotion:
		require(c.Notion.Token, "notion.token")
		require(c.Notion.LeadDB, "notion.lead_db")
	case RemoteSalesforce:
		require(c.Salesforce.ClientID, "salesforce.client_id")
		require(c.Salesforce.Username, "salesforce.username")
		require(c.Salesforce.KeyPath, "salesforce.key_path")
	default:
		require("", "remote.kind (unknown value "+c.Remote.Kind+")")
	}
}

func (c *Config) requireSheetsAuth(require func(val, key string)) {
	if c.Sheets.AccessToken != "" {
		return
	}
	require(c.Sheets.ClientID, "sheets.client_id")
	require(c.Sheets.ClientSecret, "sheets.client_secret")
}

// ValidateWebhookURL requires an absolute http or https URL.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "config: invalid webhook url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return eris.Errorf("config: webhook url must be an absolute http(s) URL: %q", raw)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-builder/internal/auth"
	"github.com/sells-group/lead-builder/internal/config"
	"github.com/sells-group/lead-builder/internal/extract"
	"github.com/sells-group/lead-builder/internal/ingest"
	"github.com/sells-group/lead-builder/internal/market"
	"github.com/sells-group/lead-builder/internal/persist"
	"github.com/sells-group/lead-builder/internal/scrape"
	"github.com/sells-group/lead-builder/internal/sink"
	"github.com/sells-group/lead-builder/internal/store"
	"github.com/sells-group/lead-builder/pkg/google"
	"github.com/sells-group/lead-builder/pkg/jina"
	"github.com/sells-group/lead-builder/pkg/notion"
	"github.com/sells-group/lead-builder/pkg/pagespeed"
	"github.com/sells-group/lead-builder/pkg/salesforce"
	"github.com/sells-group/lead-builder/pkg/sheets"
)

// appEnv holds the components shared by the capture, leads and serve
// commands.
type appEnv struct {
	Cache       store.Cache
	Leads       *store.LeadCache
	Extractor   *extract.Extractor
	Fetcher     *scrape.Chain
	Coordinator *persist.Coordinator
	// Metrics and Rows back the pagespeed webhook receiver; either may be nil.
	Metrics ingest.MetricsProvider
	Rows    ingest.RowStore
	// WebhookSecret, when set, is required on webhook receiver requests.
	WebhookSecret string
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initEnv validates config for mode and wires the cache, extractor, fetch
// chain and persistence coordinator. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cache, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Migrate(ctx); err != nil {
		_ = cache.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	metrics := initMetrics()

	remote, err := initRemote(ctx, metrics)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	leads := store.NewLeadCache(cache)
	env := &appEnv{
		Cache:         cache,
		Leads:         leads,
		Extractor:     extract.New(market.NewClassifier()),
		Fetcher:       initFetcher(),
		Coordinator:   persist.New(leads, remote),
		Metrics:       metrics,
		WebhookSecret: cfg.Remote.WebhookSecret,
	}

	if metrics != nil {
		rows, err := initRowStore(ctx)
		if err != nil {
			zap.L().Debug("row store not configured", zap.Error(err))
		} else {
			env.Rows = rows
		}
	}
	return env, nil
}

// initStore opens the local lead cache selected by store.driver.
func initStore(ctx context.Context) (store.Cache, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initFetcher builds the page fetch chain: direct HTTP first, then Jina.
func initFetcher() *scrape.Chain {
	var opts []jina.Option
	if cfg.Jina.BaseURL != "" {
		opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, opts...)
	return scrape.NewChain(scrape.NewLocalScraper(), scrape.NewJinaAdapter(jinaClient))
}

// initMetrics returns the PageSpeed metrics provider, or nil when no API key
// is configured.
func initMetrics() ingest.MetricsProvider {
	if cfg.PageSpeed.APIKey == "" {
		return nil
	}
	var opts []pagespeed.Option
	if cfg.PageSpeed.BaseURL != "" {
		opts = append(opts, pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL))
	}
	client := pagespeed.NewClient(cfg.PageSpeed.APIKey, opts...)
	return &ingest.PageSpeedMetrics{Client: client, Strategy: cfg.PageSpeed.Strategy}
}

// initRemote builds the forwarder selected by remote.kind. A nil forwarder
// means leads are kept locally only.
func initRemote(ctx context.Context, metrics ingest.MetricsProvider) (persist.Forwarder, error) {
	switch cfg.Remote.Kind {
	case config.RemoteNone, "":
		return nil, nil
	case config.RemoteWebhook:
		return sink.NewWebhook(cfg.Remote.WebhookURL, sink.WithSecret(cfg.Remote.WebhookSecret)), nil
	case config.RemoteSheets:
		client, cred := initSheetsClient(ctx)
		rows := sink.NewSheetStore(client, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName)
		return sink.NewRowForwarder(rows, rows.Destination(), sink.WithCredential(cred), sink.WithMetrics(metrics)), nil
	case config.RemoteXLSX:
		rows := sink.NewXLSXStore(cfg.XLSX.Path, cfg.XLSX.SheetName)
		return sink.NewRowForwarder(rows, rows.Destination(), sink.WithMetrics(metrics)), nil
	case config.RemoteNotion:
		return sink.NewNotionForwarder(notion.NewClient(cfg.Notion.Token), cfg.Notion.LeadDB), nil
	case config.RemoteSalesforce:
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return sink.NewSalesforceForwarder(client, cfg.Salesforce.LoginURL), nil
	default:
		return nil, eris.Errorf("unsupported remote kind: %s", cfg.Remote.Kind)
	}
}

// initRowStore returns the row store bulk scans and the webhook receiver
// append to: the workbook when remote.kind is xlsx, otherwise the
// spreadsheet.
func initRowStore(ctx context.Context) (ingest.RowStore, error) {
	if cfg.Remote.Kind == config.RemoteXLSX {
		return sink.NewXLSXStore(cfg.XLSX.Path, cfg.XLSX.SheetName), nil
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, eris.New("sheets.spreadsheet_id is not set")
	}
	client, _ := initSheetsClient(ctx)
	return sink.NewSheetStore(client, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName), nil
}

// initSheetsClient builds a Sheets client authenticated by a static access
// token, or by the refresh token stored in the OS keyring.
func initSheetsClient(ctx context.Context) (sheets.Client, *auth.Credential) {
	var cred *auth.Credential
	if cfg.Sheets.AccessToken != "" {
		cred = auth.Static(cfg.Sheets.AccessToken)
	} else {
		cred = auth.NewCredential(auth.RefreshSource(ctx, auth.OAuthConfig{
			ClientID:     cfg.Sheets.ClientID,
			ClientSecret: cfg.Sheets.ClientSecret,
		}, auth.NewKeyringStore(cfg.Sheets.KeyringAccount)))
	}
	var opts []sheets.Option
	if cfg.Sheets.BaseURL != "" {
		opts = append(opts, sheets.WithBaseURL(cfg.Sheets.BaseURL))
	}
	return sheets.NewClient(cred, opts...), cred
}

func initSalesforce() (salesforce.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}
	return salesforce.Dial(salesforce.Creds{
		LoginURL: cfg.Salesforce.LoginURL,
		Username: cfg.Salesforce.Username,
		ClientID: cfg.Salesforce.ClientID,
		RSAPem:   string(pemData),
	}, salesforce.WithRateLimit(5))
}

// initIngestor wires the bulk scan ingestor.
func initIngestor(ctx context.Context) (*ingest.Ingestor, error) {
	rows, err := initRowStore(ctx)
	if err != nil {
		return nil, err
	}
	var opts []google.Option
	if cfg.Search.BaseURL != "" {
		opts = append(opts, google.WithBaseURL(cfg.Search.BaseURL))
	}
	search := &ingest.GoogleSearch{
		Client:   google.NewClient(cfg.Search.APIKey, opts...),
		EngineID: cfg.Search.EngineID,
	}
	metrics := initMetrics()
	if metrics == nil {
		return nil, eris.New("pagespeed.api_key is not set")
	}
	return ingest.New(search, metrics, rows,
		ingest.WithPageDelay(time.Duration(cfg.Search.PageDelayMS)*time.Millisecond),
		ingest.WithMetricsDelay(time.Duration(cfg.PageSpeed.DelayMS)*time.Millisecond),
	), nil
}

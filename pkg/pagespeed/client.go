// Package pagespeed is a client for the PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-builder/internal/resilience"
)

const defaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Strategies accepted by the API.
const (
	StrategyMobile  = "mobile"
	StrategyDesktop = "desktop"
)

// Audit ids read from the Lighthouse result.
const (
	AuditFirstContentfulPaint   = "first-contentful-paint"
	AuditLargestContentfulPaint = "largest-contentful-paint"
	AuditCumulativeLayoutShift  = "cumulative-layout-shift"
)

// Client runs PageSpeed analyses.
type Client interface {
	Run(ctx context.Context, targetURL, strategy string) (*Result, error)
}

// Result is the subset of the runPagespeed response we use. When the API
// answers with an error object, Error is set and LighthouseResult is empty.
type Result struct {
	ID               string           `json:"id"`
	LighthouseResult LighthouseResult `json:"lighthouseResult"`
	Error            *APIError        `json:"error,omitempty"`
}

// LighthouseResult holds category scores and audits.
type LighthouseResult struct {
	Categories Categories       `json:"categories"`
	Audits     map[string]Audit `json:"audits"`
}

// Categories holds the category scores.
type Categories struct {
	Performance Category `json:"performance"`
}

// Category is a scored Lighthouse category. Score is 0..1 and may be null.
type Category struct {
	Score *float64 `json:"score"`
}

// Audit is a single Lighthouse audit.
type Audit struct {
	DisplayValue string  `json:"displayValue"`
	NumericValue float64 `json:"numericValue"`
}

// APIError is the error object Google APIs return.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return "pagespeed: api error " + strconv.Itoa(e.Code) + ": " + e.Message
}

// PerformanceScore returns the performance score scaled to 0..100, or -1
// when the category was not scored.
func (r *Result) PerformanceScore() int {
	s := r.LighthouseResult.Categories.Performance.Score
	if s == nil {
		return -1
	}
	return int(math.Round(*s * 100))
}

// DisplayValue returns the display value of the named audit.
func (r *Result) DisplayValue(audit string) string {
	return r.LighthouseResult.Audits[audit].DisplayValue
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a PageSpeed Insights client. Lighthouse runs are slow,
// so the default timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("pagespeed", "run")
	}
	return c
}

func (c *httpClient) Run(ctx context.Context, targetURL, strategy string) (*Result, error) {
	if strategy == "" {
		strategy = StrategyMobile
	}
	q := url.Values{}
	q.Set("url", targetURL)
	q.Set("strategy", strategy)
	q.Set("category", "performance")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + "?" + q.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.do(ctx, endpoint)
	})
}

func (c *httpClient) do(ctx context.Context, endpoint string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pagespeed: read response")
	}

	var result Result
	jsonErr := json.Unmarshal(body, &result)

	if resp.StatusCode == http.StatusTooManyRequests ||
		(resilience.IsTransientHTTPStatus(resp.StatusCode) && result.Error == nil) {
		return nil, resilience.NewTransientError(
			eris.Errorf("pagespeed: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
	}

	// An error object is a measurement outcome, not a transport failure.
	if result.Error != nil {
		return &result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("pagespeed: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if jsonErr != nil {
		return nil, eris.Wrap(jsonErr, "pagespeed: unmarshal response")
	}
	return &result, nil
}

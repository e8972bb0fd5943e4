package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-builder/internal/resilience"
)

const sampleResult = `{
  "id": "https://acme.com/",
  "lighthouseResult": {
    "categories": {"performance": {"score": 0.876}},
    "audits": {
      "first-contentful-paint": {"displayValue": "1.2 s", "numericValue": 1200},
      "largest-contentful-paint": {"displayValue": "2.5 s", "numericValue": 2500},
      "cumulative-layout-shift": {"displayValue": "0.01", "numericValue": 0.01}
    }
  }
}`

func fastRetry() Option {
	return WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
}

func TestRun_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://acme.com", r.URL.Query().Get("url"))
		assert.Equal(t, StrategyMobile, r.URL.Query().Get("strategy"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(sampleResult))
	}))
	defer srv.Close()

	res, err := NewClient("test-key", WithBaseURL(srv.URL)).Run(context.Background(), "https://acme.com", "")
	require.NoError(t, err)
	assert.Nil(t, res.Error)
	assert.Equal(t, 88, res.PerformanceScore())
	assert.Equal(t, "1.2 s", res.DisplayValue(AuditFirstContentfulPaint))
	assert.Equal(t, "2.5 s", res.DisplayValue(AuditLargestContentfulPaint))
	assert.Equal(t, "0.01", res.DisplayValue(AuditCumulativeLayoutShift))
}

func TestRun_ErrorPayloadIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"Lighthouse returned error: FAILED_DOCUMENT_REQUEST"}}`))
	}))
	defer srv.Close()

	res, err := NewClient("k", WithBaseURL(srv.URL)).Run(context.Background(), "https://acme.com", StrategyMobile)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Contains(t, res.Error.Message, "FAILED_DOCUMENT_REQUEST")
	assert.Equal(t, -1, res.PerformanceScore())
}

func TestRun_RateLimitedRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded"}}`))
			return
		}
		_, _ = w.Write([]byte(sampleResult))
	}))
	defer srv.Close()

	res, err := NewClient("k", WithBaseURL(srv.URL), fastRetry()).Run(context.Background(), "https://acme.com", "")
	require.NoError(t, err)
	assert.Equal(t, 88, res.PerformanceScore())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRun_GatewayErrorExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL), fastRetry()).Run(context.Background(), "https://acme.com", "")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestRun_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Run(context.Background(), "https://acme.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

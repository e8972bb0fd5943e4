//go:build !integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-builder/internal/model"
)

const acmePage = `<html><head>
<title>Acme Co | Home</title>
<meta name="description" content="Acme builds analytics software for data teams.">
</head><body>
<p>Our SaaS platform helps teams ship faster.</p>
<div>sales@acme.com</div>
<div>(555) 123-4567</div>
</body></html>`

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, acmePage)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCaptureOne_Advanced(t *testing.T) {
	srv := pageServer(t)
	env := newTestEnv(t, nil)

	out := captureOne(context.Background(), env, srv.URL+"/", false)

	assert.True(t, out.SavedLocally)
	assert.False(t, out.ForwardedRemotely)
	assert.True(t, out.RemoteSkipped)
	assert.Equal(t, model.ErrKindNone, out.Kind)
	assert.Equal(t, model.ExtractionAdvanced, out.Lead.ExtractionMethod)
	assert.Equal(t, "Acme Co", out.Lead.CompanyName)
	assert.Equal(t, "sales@acme.com", out.Lead.ContactEmail)
	assert.Equal(t, "Added Acme Co successfully!", out.Message())
}

func TestCaptureOne_FetchFailureSavesBasicLead(t *testing.T) {
	srv := pageServer(t)
	env := newTestEnv(t, nil)

	out := captureOne(context.Background(), env, srv.URL+"/missing", false)

	assert.True(t, out.SavedLocally)
	assert.Equal(t, model.ExtractionBasic, out.Lead.ExtractionMethod)
	assert.Equal(t, "Added basic lead data", out.Message())
}

func TestCaptureOne_BasicFlagSkipsFetch(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		fmt.Fprint(w, acmePage)
	}))
	defer srv.Close()

	env := newTestEnv(t, nil)
	out := captureOne(context.Background(), env, srv.URL, true)

	assert.Equal(t, 0, hits)
	assert.Equal(t, model.ExtractionBasic, out.Lead.ExtractionMethod)
}

func TestCaptureOne_RestrictedPage(t *testing.T) {
	env := newTestEnv(t, nil)

	out := captureOne(context.Background(), env, "chrome://extensions", false)

	assert.Equal(t, model.ExtractionBasic, out.Lead.ExtractionMethod)
	assert.Equal(t, "extensions", out.Lead.CompanyName)
	assert.True(t, out.SavedLocally)

	out = captureOne(context.Background(), env, "about:blank", false)
	assert.Equal(t, model.ExtractionBasic, out.Lead.ExtractionMethod)
	assert.Equal(t, "Unknown", out.Lead.CompanyName)
}

func TestCaptureAll_PreservesOrderAndCachesEach(t *testing.T) {
	srv := pageServer(t)
	env := newTestEnv(t, nil)

	urls := []string{srv.URL + "/a", "about:blank", srv.URL + "/missing", srv.URL + "/b"}
	outcomes := captureAll(context.Background(), env, urls, false, 2)

	require.Len(t, outcomes, len(urls))
	for i, out := range outcomes {
		assert.Equal(t, urls[i], out.Lead.WebsiteURL)
		assert.True(t, out.SavedLocally)
	}
	assert.Equal(t, model.ExtractionAdvanced, outcomes[0].Lead.ExtractionMethod)
	assert.Equal(t, model.ExtractionBasic, outcomes[1].Lead.ExtractionMethod)
	assert.Equal(t, model.ExtractionBasic, outcomes[2].Lead.ExtractionMethod)

	cached, err := env.Leads.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, cached, len(urls))
}

func TestCaptureAll_ZeroConcurrency(t *testing.T) {
	env := newTestEnv(t, nil)
	outcomes := captureAll(context.Background(), env, []string{"about:blank"}, true, 0)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].SavedLocally)
}

func TestPrintOutcome(t *testing.T) {
	env := newTestEnv(t, nil)
	out := captureOne(context.Background(), env, "https://acme.com", true)

	var buf bytes.Buffer
	printOutcome(&buf, out)
	assert.True(t, strings.HasPrefix(buf.String(), "https://acme.com  Added basic lead data"))
	assert.NotContains(t, buf.String(), "remote:")
}

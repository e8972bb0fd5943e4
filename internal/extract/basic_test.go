package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-builder/internal/model"
)

func TestCanInspect(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://acme.com", true},
		{"http://acme.com/page", true},
		{"chrome://extensions", false},
		{"chrome-extension://abc/popup.html", false},
		{"moz-extension://abc", false},
		{"edge://settings", false},
		{"about:blank", false},
		{"file:///tmp/x.html", false},
		{"CHROME://settings", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanInspect(tt.url), "url %q", tt.url)
	}
}

func TestBasicLead(t *testing.T) {
	lead := BasicLead("https://www.acme.co.uk/shop")
	assert.Equal(t, model.Lead{
		WebsiteURL:       "https://www.acme.co.uk/shop",
		CompanyName:      "acme",
		Market:           model.MarketUnknown,
		Description:      basicDescription,
		ExtractionMethod: model.ExtractionBasic,
	}, lead)
}

func TestBasicLead_Malformed(t *testing.T) {
	for _, raw := range []string{"not a url", "::", ""} {
		lead := BasicLead(raw)
		assert.Equal(t, "Unknown", lead.CompanyName, "url %q", raw)
		assert.Equal(t, errorDescription, lead.Description)
		assert.Equal(t, model.MarketUnknown, lead.Market)
	}
}

func TestBasicLead_NoHost(t *testing.T) {
	lead := BasicLead("about:blank")
	assert.Equal(t, "Unknown", lead.CompanyName)
	assert.Equal(t, basicDescription, lead.Description)
}

func TestBasicLead_Idempotent(t *testing.T) {
	a, err := json.Marshal(BasicLead("https://acme.com"))
	require.NoError(t, err)
	b, err := json.Marshal(BasicLead("https://acme.com"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

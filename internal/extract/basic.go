package extract

import (
	"net/url"
	"strings"

	"github.com/sells-group/lead-builder/internal/model"
)

const (
	basicDescription = "Basic extraction from URL"
	errorDescription = "Error extracting data"
	unknownName      = "Unknown"
)

// restrictedPrefixes are URL schemes whose pages cannot be inspected.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"moz-extension://",
	"edge://",
	"about:",
	"file://",
}

// CanInspect reports whether the page at pageURL may be inspected.
func CanInspect(pageURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(pageURL))
	if lower == "" {
		return false
	}
	for _, p := range restrictedPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	return true
}

// BasicLead builds a lead from the URL alone. A malformed URL still
// yields a record.
func BasicLead(pageURL string) model.Lead {
	lead := model.Lead{
		WebsiteURL:       pageURL,
		Market:           model.MarketUnknown,
		ExtractionMethod: model.ExtractionBasic,
	}

	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || !u.IsAbs() {
		lead.CompanyName = unknownName
		lead.Description = errorDescription
		return lead
	}

	lead.CompanyName = hostLabel(pageURL)
	if lead.CompanyName == "" {
		lead.CompanyName = unknownName
	}
	lead.Description = basicDescription
	return lead
}

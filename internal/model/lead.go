package model

import "time"

// Market is a coarse industry classification derived from page text.
type Market string

const (
	MarketTechnology    Market = "technology"
	MarketEcommerce     Market = "ecommerce"
	MarketHealthcare    Market = "healthcare"
	MarketFinance       Market = "finance"
	MarketEducation     Market = "education"
	MarketMarketing     Market = "marketing"
	MarketConsulting    Market = "consulting"
	MarketManufacturing Market = "manufacturing"
	MarketRealEstate    Market = "real estate"
	MarketFood          Market = "food"
	MarketUnknown       Market = "unknown"
)

// AllMarkets returns every market tag in definition order, excluding unknown.
func AllMarkets() []Market {
	return []Market{
		MarketTechnology,
		MarketEcommerce,
		MarketHealthcare,
		MarketFinance,
		MarketEducation,
		MarketMarketing,
		MarketConsulting,
		MarketManufacturing,
		MarketRealEstate,
		MarketFood,
	}
}

// OrUnknown normalises the zero value and unrecognised tags to MarketUnknown.
func (m Market) OrUnknown() Market {
	for _, known := range AllMarkets() {
		if m == known {
			return m
		}
	}
	return MarketUnknown
}

// ExtractionMethod records how a lead was derived.
type ExtractionMethod string

const (
	// ExtractionBasic means only the URL was available.
	ExtractionBasic ExtractionMethod = "basic"
	// ExtractionAdvanced means the page document was inspected.
	ExtractionAdvanced ExtractionMethod = "advanced"
)

// MaxDescriptionLen caps Lead.Description, in runes.
const MaxDescriptionLen = 200

// Lead is a business contact record derived from a single web page.
// JSON names match the payload the browser extension and webhook exchange.
type Lead struct {
	WebsiteURL       string           `json:"websiteUrl"`
	CompanyName      string           `json:"companyName"`
	ContactEmail     string           `json:"contactEmail"`
	PhoneNumber      string           `json:"phoneNumber"`
	Market           Market           `json:"market"`
	Description      string           `json:"description"`
	ExtractionMethod ExtractionMethod `json:"extractionMethod"`
	DateAdded        time.Time        `json:"dateAdded,omitzero"`
}

// CachedLead is a Lead as held in the local cache.
type CachedLead struct {
	ID string `json:"id"`
	Lead
	SavedAt int64 `json:"savedAt"`
}

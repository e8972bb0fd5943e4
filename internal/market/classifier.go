// Package market tags page text with a coarse industry label by keyword frequency.
package market

import (
	"strings"

	"github.com/sells-group/lead-builder/internal/model"
)

// MinMatches is the number of distinct keywords a market needs before it can
// be selected.
const MinMatches = 2

type keywordSet struct {
	market   model.Market
	keywords []string
}

// keywordTable is ordered; on an exact tie between qualifying markets the
// earlier entry wins.
var keywordTable = []keywordSet{
	{model.MarketTechnology, []string{"software", "app", "tech", "digital", "platform", "saas", "ai", "data"}},
	{model.MarketEcommerce, []string{"shop", "store", "buy", "cart", "product", "retail", "marketplace"}},
	{model.MarketHealthcare, []string{"health", "medical", "doctor", "clinic", "hospital", "wellness"}},
	{model.MarketFinance, []string{"bank", "finance", "investment", "insurance", "loan", "credit"}},
	{model.MarketEducation, []string{"education", "school", "university", "course", "learning", "training"}},
	{model.MarketMarketing, []string{"marketing", "advertising", "seo", "social media", "brand"}},
	{model.MarketConsulting, []string{"consulting", "advisory", "professional services", "strategy"}},
	{model.MarketManufacturing, []string{"manufacturing", "factory", "production", "industrial"}},
	{model.MarketRealEstate, []string{"real estate", "property", "housing", "rental", "mortgage"}},
	{model.MarketFood, []string{"restaurant", "food", "catering", "cafe", "dining", "culinary"}},
}

// Classifier maps lowercased page text to a market tag.
type Classifier struct {
	table     []keywordSet
	threshold int
}

// NewClassifier returns a Classifier over the built-in keyword table.
func NewClassifier() *Classifier {
	return &Classifier{table: keywordTable, threshold: MinMatches}
}

// Classify returns the market whose keyword list has the most distinct
// substring hits in text, or MarketUnknown when no market reaches the
// threshold. text is expected to be lowercased already.
func (c *Classifier) Classify(text string) model.Market {
	best := model.MarketUnknown
	bestCount := 0

	for _, set := range c.table {
		n := countMatches(text, set.keywords)
		if n >= c.threshold && n > bestCount {
			best = set.market
			bestCount = n
		}
	}
	return best
}

// Scores returns the distinct-keyword hit count for every market.
func (c *Classifier) Scores(text string) map[model.Market]int {
	scores := make(map[model.Market]int, len(c.table))
	for _, set := range c.table {
		scores[set.market] = countMatches(text, set.keywords)
	}
	return scores
}

// Keywords returns a copy of the keyword list for m, or nil for an unknown market.
func Keywords(m model.Market) []string {
	for _, set := range keywordTable {
		if set.market == m {
			return append([]string(nil), set.keywords...)
		}
	}
	return nil
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

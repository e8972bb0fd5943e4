package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-builder/internal/model"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		text string
		want model.Market
	}{
		{"technology", "we sell software on our platform", model.MarketTechnology},
		{"below threshold", "our software", model.MarketUnknown},
		{"no keywords", "hello world", model.MarketUnknown},
		{"empty", "", model.MarketUnknown},
		{"tie goes to first defined", "software platform shop cart", model.MarketTechnology},
		{"higher count wins", "software platform shop cart buy store", model.MarketEcommerce},
		{"distinct keywords only", "food food food cafe", model.MarketFood},
		{"multi word keyword", "real estate and property listings", model.MarketRealEstate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestClassify_EachMarketInIsolation(t *testing.T) {
	c := NewClassifier()

	texts := map[model.Market]string{
		model.MarketTechnology:    "software app",
		model.MarketEcommerce:     "shop store",
		model.MarketHealthcare:    "health medical",
		model.MarketFinance:       "bank finance",
		model.MarketEducation:     "education school",
		model.MarketMarketing:     "marketing advertising",
		model.MarketConsulting:    "consulting advisory",
		model.MarketManufacturing: "manufacturing factory",
		model.MarketRealEstate:    "real estate property",
		model.MarketFood:          "restaurant food",
	}

	for _, m := range model.AllMarkets() {
		text, ok := texts[m]
		if !assert.True(t, ok, "missing fixture for %s", m) {
			continue
		}
		assert.Equal(t, m, c.Classify(text), "text %q", text)

		// A single keyword never qualifies.
		assert.Equal(t, model.MarketUnknown, c.Classify(Keywords(m)[0]), "market %s", m)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier()
	text := "software platform shop cart"
	first := c.Classify(text)
	for range 50 {
		assert.Equal(t, first, c.Classify(text))
	}
}

func TestScores(t *testing.T) {
	c := NewClassifier()
	scores := c.Scores("software platform shop")
	assert.Equal(t, 2, scores[model.MarketTechnology])
	assert.Equal(t, 1, scores[model.MarketEcommerce])
	assert.Equal(t, 0, scores[model.MarketFood])
	assert.Len(t, scores, len(model.AllMarkets()))
}

func TestKeywords(t *testing.T) {
	kw := Keywords(model.MarketFood)
	assert.Contains(t, kw, "restaurant")

	kw[0] = "mutated"
	assert.Equal(t, "restaurant", Keywords(model.MarketFood)[0])

	assert.Nil(t, Keywords(model.MarketUnknown))
}

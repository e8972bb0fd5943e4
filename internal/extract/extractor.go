// Package extract derives lead records from page documents using DOM and
// text heuristics.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-builder/internal/model"
)

// UnknownCompany is the name used when no company name can be resolved.
const UnknownCompany = "Unknown Company"

// MarketClassifier maps lowercased page text to a market tag.
type MarketClassifier interface {
	Classify(text string) model.Market
}

var (
	titleSuffixRe = regexp.MustCompile(`(?i)\s*[|\-–]\s*(Home|About|Contact|Welcome).*$`)
	logoWordRe    = regexp.MustCompile(`(?i)logo`)
	emailRe       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe       = regexp.MustCompile(`(\+?1?[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)

	selSiteName      = cascadia.MustCompile(`meta[property="og:site_name"]`)
	selImg           = cascadia.MustCompile(`img`)
	selMetaDesc      = cascadia.MustCompile(`meta[name="description"]`)
	selOGDescription = cascadia.MustCompile(`meta[property="og:description"]`)
	selParagraph     = cascadia.MustCompile(`p`)
	selHeading       = cascadia.MustCompile(`h1`)
)

// genericEmailMarkers disqualify an address as a real contact.
var genericEmailMarkers = []string{"example.com", "test", "noreply", "no-reply"}

// marketScorer is implemented by classifiers that expose per-market hit counts.
type marketScorer interface {
	Scores(text string) map[model.Market]int
}

// Extractor builds advanced lead records from inspectable documents.
type Extractor struct {
	markets MarketClassifier
}

// New creates an Extractor that delegates market tagging to mc.
func New(mc MarketClassifier) *Extractor {
	return &Extractor{markets: mc}
}

// Extract derives a lead from doc. It never fails: every field degrades to
// an empty or fallback value.
func (e *Extractor) Extract(pageURL string, doc Document) model.Lead {
	text := doc.Text()
	lower := strings.ToLower(text)
	lead := model.Lead{
		WebsiteURL:       pageURL,
		CompanyName:      CompanyName(pageURL, doc),
		ContactEmail:     Email(text),
		PhoneNumber:      Phone(text),
		Market:           e.markets.Classify(lower).OrUnknown(),
		Description:      Description(doc),
		ExtractionMethod: model.ExtractionAdvanced,
	}
	e.logScores(pageURL, lower, lead.Market)
	return lead
}

func (e *Extractor) logScores(pageURL, lower string, chosen model.Market) {
	log := zap.L()
	sc, ok := e.markets.(marketScorer)
	if !ok || !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	scores := sc.Scores(lower)
	fields := []zap.Field{zap.String("url", pageURL), zap.String("market", string(chosen))}
	for _, m := range model.AllMarkets() {
		if n := scores[m]; n > 0 {
			fields = append(fields, zap.Int(string(m), n))
		}
	}
	log.Debug("extract: market scores", fields...)
}

// Capture is the trigger entry point: pages that cannot be inspected, or
// arrive without a document, get a basic lead.
func (e *Extractor) Capture(pageURL string, doc Document) model.Lead {
	if doc == nil || !CanInspect(pageURL) {
		return BasicLead(pageURL)
	}
	return e.Extract(pageURL, doc)
}

// CompanyName resolves the company name: cleaned title, overridden by
// og:site_name, then logo alt text, then the first hostname label.
func CompanyName(pageURL string, doc Document) string {
	name := ""

	if title := doc.Title(); title != "" {
		name = strings.TrimSpace(titleSuffixRe.ReplaceAllString(title, ""))
	}

	if content := firstAttr(doc, selSiteName, "content"); content != "" {
		name = content
	}

	if name == "" {
		if alt := logoAlt(doc); alt != "" {
			name = strings.TrimSpace(replaceFirst(logoWordRe, alt, ""))
		}
	}

	if name == "" {
		name = hostLabel(pageURL)
	}

	name = clean(name)
	if name == "" {
		return UnknownCompany
	}
	return name
}

// logoAlt returns the alt text of the first image whose alt or class
// mentions "logo". Only that first image is considered.
func logoAlt(doc Document) string {
	for _, img := range doc.Find(selImg) {
		alt, _ := img.Attr("alt")
		class, _ := img.Attr("class")
		if strings.Contains(strings.ToLower(alt), "logo") || strings.Contains(strings.ToLower(class), "logo") {
			return strings.TrimSpace(alt)
		}
	}
	return ""
}

// Email returns the first non-generic address in text, falling back to the
// first address of any kind.
func Email(text string) string {
	matches := emailRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	for _, m := range matches {
		if !isGenericEmail(m) {
			return m
		}
	}
	return matches[0]
}

func isGenericEmail(addr string) bool {
	lower := strings.ToLower(addr)
	for _, marker := range genericEmailMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Phone returns the first North-American style phone number in text.
func Phone(text string) string {
	return strings.TrimSpace(phoneRe.FindString(text))
}

// Description returns the first non-empty of meta description,
// og:description, first paragraph and first heading, truncated.
func Description(doc Document) string {
	if s := firstAttr(doc, selMetaDesc, "content"); s != "" {
		return truncate(s)
	}
	if s := firstAttr(doc, selOGDescription, "content"); s != "" {
		return truncate(s)
	}
	if s := firstText(doc, selParagraph); s != "" {
		return truncate(s)
	}
	if s := firstText(doc, selHeading); s != "" {
		return truncate(s)
	}
	return ""
}

func firstAttr(doc Document, sel cascadia.Selector, name string) string {
	nodes := doc.Find(sel)
	if len(nodes) == 0 {
		return ""
	}
	v, _ := nodes[0].Attr(name)
	return strings.TrimSpace(v)
}

func firstText(doc Document, sel cascadia.Selector) string {
	nodes := doc.Find(sel)
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(nodes[0].Text())
}

// hostLabel returns the first dot-separated label of the URL host with a
// leading "www." removed, or "" when the URL has no host.
func hostLabel(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(host, ".")
	return label
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func clean(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// truncate NFC-normalises s and caps it at MaxDescriptionLen runes.
func truncate(s string) string {
	s = clean(s)
	r := []rune(s)
	if len(r) <= model.MaxDescriptionLen {
		return s
	}
	return string(r[:model.MaxDescriptionLen])
}

// Package planner turns discovery and similarity results into title analyses
// and planned episodes.
package planner

import (
	"regexp"
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

const (
	topPatternCount = 10
	topKeywordCount = 20
)

// DefaultRiskWords flag clickbait or policy-sensitive phrasing in titles.
var DefaultRiskWords = []string{
	"instantly", "miracle", "guaranteed", "ban", "banned", "cure",
	"reverse aging", "secret", "shocking", "urgent", "warning",
}

var (
	digitsRE     = regexp.MustCompile(`\d+`)
	quotesRE     = regexp.MustCompile("[“”\"'`]")
	nonPatternRE = regexp.MustCompile(`[^a-z0-9{}\s]`)
	nonWordRE    = regexp.MustCompile(`[^a-z0-9\s]`)
	spacesRE     = regexp.MustCompile(`\s+`)
)

var analyzerStop = toSet("the", "and", "for", "with", "your", "that", "this", "from",
	"into", "over", "under", "what", "when", "where", "how")

// PatternCount is a normalized title shape and how many titles share it.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// KeywordCount is a title token frequency.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// RiskHit is how many titles contain a risk word.
type RiskHit struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TitleAnalysis summarizes a batch of titles.
type TitleAnalysis struct {
	TotalTitles int            `json:"total_titles"`
	TopPatterns []PatternCount `json:"top_patterns"`
	TopKeywords []KeywordCount `json:"top_keywords"`
	RiskHits    []RiskHit      `json:"risk_hits"`
}

// NormalizePattern lowercases a title, replaces digit runs with {n} and drops punctuation.
func NormalizePattern(title string) string {
	s := strings.ToLower(title)
	s = digitsRE.ReplaceAllString(s, "{n}")
	s = quotesRE.ReplaceAllString(s, "")
	s = nonPatternRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacesRE.ReplaceAllString(s, " "))
}

// words lowercases text, strips non-alphanumerics and keeps tokens of at least minLen.
func words(text string, minLen int, stop map[string]bool) []string {
	var out []string
	for _, w := range strings.Fields(nonWordRE.ReplaceAllString(strings.ToLower(text), " ")) {
		if len(w) >= minLen && !stop[w] {
			out = append(out, w)
		}
	}
	return out
}

// counter counts keys and remembers first-seen order for stable ties.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter { return &counter{counts: map[string]int{}} }

func (c *counter) add(k string) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// top returns up to limit keys by descending count; limit <= 0 returns all.
func (c *counter) top(limit int) []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// AnalyzeTitles reports the most common title patterns and keywords and the
// risk words found. extraRisk extends DefaultRiskWords (for niche-specific words).
func AnalyzeTitles(titles []string, extraRisk ...string) TitleAnalysis {
	patterns, kws, risks := newCounter(), newCounter(), newCounter()

	riskWords := riskDictionary(extraRisk)
	var matcher *ahocorasick.Matcher
	if len(riskWords) > 0 {
		matcher = ahocorasick.NewStringMatcher(riskWords)
	}

	for _, title := range titles {
		patterns.add(NormalizePattern(title))
		for _, w := range words(title, 4, analyzerStop) {
			kws.add(w)
		}
		if matcher == nil {
			continue
		}
		seen := make(map[int]bool)
		for _, i := range matcher.Match([]byte(strings.ToLower(title))) {
			if i >= 0 && i < len(riskWords) && !seen[i] {
				seen[i] = true
				risks.add(riskWords[i])
			}
		}
	}

	out := TitleAnalysis{
		TotalTitles: len(titles),
		TopPatterns: []PatternCount{},
		TopKeywords: []KeywordCount{},
		RiskHits:    []RiskHit{},
	}
	for _, p := range patterns.top(topPatternCount) {
		out.TopPatterns = append(out.TopPatterns, PatternCount{Pattern: p, Count: patterns.counts[p]})
	}
	for _, k := range kws.top(topKeywordCount) {
		out.TopKeywords = append(out.TopKeywords, KeywordCount{Keyword: k, Count: kws.counts[k]})
	}
	for _, r := range risks.top(0) {
		out.RiskHits = append(out.RiskHits, RiskHit{Word: r, Count: risks.counts[r]})
	}
	return out
}

func riskDictionary(extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range append(append([]string(nil), DefaultRiskWords...), extra...) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func toSet(ws ...string) map[string]bool {
	m := make(map[string]bool, len(ws))
	for _, w := range ws {
		m[w] = true
	}
	return m
}

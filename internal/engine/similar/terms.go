// Package similar finds channels whose recent titles share vocabulary with a seed channel.
package similar

import (
	"regexp"
	"sort"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

const (
	minTokenLen    = 4
	maxTokens      = 40
	topTermCount   = 6
	queryTermCount = 4
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true,
	"your": true, "have": true, "will": true, "what": true,
	"when": true, "where": true, "about": true, "into": true,
	"over": true, "under": true, "after": true, "before": true,
}

// Tokenize lowercases text, replaces everything outside [a-z0-9\s] with spaces
// and returns at most 40 tokens of length >= 4.
func Tokenize(text string) []string {
	clean := nonAlnumRe.ReplaceAllString(strings.ToLower(text), " ")
	var out []string
	for _, w := range strings.Fields(clean) {
		if len(w) < minTokenLen {
			continue
		}
		out = append(out, w)
		if len(out) == maxTokens {
			break
		}
	}
	return out
}

// TopTerms returns the 6 most frequent non-stop tokens across titles.
// Ties keep first-encountered order.
func TopTerms(titles []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, t := range titles {
		for _, w := range Tokenize(t) {
			if stopWords[w] {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topTermCount {
		order = order[:topTermCount]
	}
	return order
}

// Overlap is the Jaccard index of the two term sets as a percentage, rounded to 2 decimals.
// An empty union counts as 1.
func Overlap(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		union = 1
	}
	return engine.Round2(float64(inter) / float64(union) * 100)
}

// MatchedTerms returns the seed terms present in other, in seed order.
func MatchedTerms(seed, other []string) []string {
	set := toSet(other)
	out := []string{}
	for _, w := range seed {
		if set[w] {
			out = append(out, w)
		}
	}
	return out
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

package script

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Contract thresholds.
const (
	MaxRequiredCount    = 50
	MinContentItemRunes = 4
	MinSegments         = 8
	MinVoiceoverRunes   = 60
	MinVisualsRunes     = 40
)

// Contract violation kinds. Every violation in a ContractError wraps one of these.
var (
	ErrCountMismatch        = errors.New("content item count mismatch")
	ErrTooVague             = errors.New("content item too vague")
	ErrInsufficientSegments = errors.New("insufficient timeline segments")
	ErrSegmentTooShort      = errors.New("timeline segment too short")
	ErrMissingShotAction    = errors.New("timeline segment missing shot action")
	ErrCoverageGap          = errors.New("timeline does not cover every content item")
	ErrOffTopic             = errors.New("script is off topic")
	ErrBannedWord           = errors.New("script contains banned word")
)

var (
	requiredCountRe = regexp.MustCompile(`(?i)(\d{1,3})\s*(种|个|条|items?)`)
	coverageRe      = regexp.MustCompile(`要点\s*(\d+)(?:[-~到](\d+))?`)
)

// ParseRequiredCount extracts a numeric promise such as "10种" or "5 items" from
// direction text. It returns 0 when none is present or the value is outside 1..50.
func ParseRequiredCount(direction string) int {
	m := requiredCountRe.FindStringSubmatch(direction)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > MaxRequiredCount {
		return 0
	}
	return n
}

// Constraints are the caller's generation contract.
type Constraints struct {
	RequiredCount int      `json:"required_count,omitempty"` // 0 = unset
	TopicLock     string   `json:"topic_lock,omitempty"`
	BannedWords   []string `json:"banned_words,omitempty"`
}

// NewConstraints builds constraints from free-text direction, a topic lock and banned words.
func NewConstraints(direction, topicLock string, banned []string) Constraints {
	c := Constraints{
		RequiredCount: ParseRequiredCount(direction),
		TopicLock:     strings.TrimSpace(topicLock),
	}
	for _, w := range banned {
		if w = strings.TrimSpace(w); w != "" {
			c.BannedWords = append(c.BannedWords, w)
		}
	}
	return c
}

// Violation is one failed contract rule.
type Violation struct {
	Kind   error
	Detail string
}

func (v Violation) Error() string { return v.Kind.Error() + ": " + v.Detail }
func (v Violation) Unwrap() error { return v.Kind }

// ContractError aggregates every violation of one script.
type ContractError struct {
	Violations []Violation
}

func (e *ContractError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "script contract violated: " + strings.Join(msgs, "; ")
}

// Unwrap exposes each violation so errors.Is matches any violated kind.
func (e *ContractError) Unwrap() []error {
	out := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v
	}
	return out
}

// Enforce checks s against c and returns a *ContractError listing every
// violation, or nil when the script is acceptable.
func Enforce(s DetailedScript, c Constraints) error {
	var vs []Violation
	add := func(kind error, format string, args ...any) {
		vs = append(vs, Violation{Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	if c.RequiredCount > 0 && len(s.ContentItems) != c.RequiredCount {
		add(ErrCountMismatch, "required %d, got %d", c.RequiredCount, len(s.ContentItems))
	}
	for i, item := range s.ContentItems {
		if runes(strings.TrimSpace(item)) < MinContentItemRunes {
			add(ErrTooVague, "item %d %q shorter than %d characters", i+1, item, MinContentItemRunes)
		}
	}
	if len(s.Timeline) < MinSegments {
		add(ErrInsufficientSegments, "got %d segments, need at least %d", len(s.Timeline), MinSegments)
	}
	for i, seg := range s.Timeline {
		vo, vis := runes(seg.Voiceover), runes(seg.Visuals)
		if vo < MinVoiceoverRunes || vis < MinVisualsRunes {
			add(ErrSegmentTooShort, "segment %d voiceover %d/%d, visuals %d/%d",
				i+1, vo, MinVoiceoverRunes, vis, MinVisualsRunes)
		}
		if !shotSet.contains(seg.Visuals) {
			add(ErrMissingShotAction, "segment %d visuals name no shot action", i+1)
		}
	}
	if c.RequiredCount > 0 {
		if missing := uncoveredItems(s.Timeline, c.RequiredCount); len(missing) > 0 {
			add(ErrCoverageGap, "items %s not referenced by any segment", joinInts(missing))
		}
	}

	blob := topicBlob(s)
	if c.TopicLock != "" && !strings.Contains(blob, strings.ToLower(c.TopicLock)) {
		add(ErrOffTopic, "topic/title/items do not mention %q", c.TopicLock)
	}
	if hits := bannedHits(blob, c.BannedWords); len(hits) > 0 {
		add(ErrBannedWord, "found %s", strings.Join(hits, ", "))
	}

	if len(vs) == 0 {
		return nil
	}
	return &ContractError{Violations: vs}
}

// CoveredItems returns the item indices referenced by "要点N" or "要点N-M" labels.
func CoveredItems(timeline []Segment) map[int]bool {
	covered := make(map[int]bool)
	for _, seg := range timeline {
		for _, m := range coverageRe.FindAllStringSubmatch(seg.Segment, -1) {
			lo, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			hi := lo
			if m[2] != "" {
				if v, err := strconv.Atoi(m[2]); err == nil && v >= lo {
					hi = v
				}
			}
			for i := lo; i <= hi && i <= MaxRequiredCount; i++ {
				covered[i] = true
			}
		}
	}
	return covered
}

func uncoveredItems(timeline []Segment, n int) []int {
	covered := CoveredItems(timeline)
	var missing []int
	for i := 1; i <= n; i++ {
		if !covered[i] {
			missing = append(missing, i)
		}
	}
	return missing
}

// topicBlob is the lowercased topic, title and content items.
func topicBlob(s DetailedScript) string {
	parts := append([]string{s.Topic, s.Title}, s.ContentItems...)
	return strings.ToLower(strings.Join(parts, " "))
}

func bannedHits(blob string, banned []string) []string {
	if len(banned) == 0 || blob == "" {
		return nil
	}
	words := make([]string, 0, len(banned))
	for _, w := range banned {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}
	idx := ahocorasick.NewStringMatcher(words).Match([]byte(blob))
	seen := make(map[string]bool, len(idx))
	var hits []string
	for _, i := range idx {
		if i < len(words) && !seen[words[i]] {
			seen[words[i]] = true
			hits = append(hits, words[i])
		}
	}
	sort.Strings(hits)
	return hits
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

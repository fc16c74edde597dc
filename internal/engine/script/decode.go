package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload is returned when the LLM answer is not a usable script object.
var ErrMalformedPayload = errors.New("malformed script payload")

// flexString accepts a JSON string, number or bool.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = ""
	case float64, bool:
		*f = flexString(fmt.Sprint(t))
	default:
		return fmt.Errorf("expected string, got %T", v)
	}
	return nil
}

// flexStrings accepts a JSON array of scalars or a single string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var one flexString
	if err := json.Unmarshal(b, &one); err == nil {
		if one != "" {
			*f = flexStrings{string(one)}
		}
		return nil
	}
	var many []flexString
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	out := make(flexStrings, 0, len(many))
	for _, s := range many {
		out = append(out, string(s))
	}
	*f = out
	return nil
}

type wireSegment struct {
	Time      flexString `json:"time"`
	Segment   flexString `json:"segment"`
	Voiceover flexString `json:"voiceover"`
	Visuals   flexString `json:"visuals"`
}

// wireScript mirrors the camelCase field names requested in the prompt.
type wireScript struct {
	Topic           flexString    `json:"topic"`
	Title           flexString    `json:"title"`
	ThumbnailCopy   flexString    `json:"thumbnailCopy"`
	Opening15s      flexStrings   `json:"opening15s"`
	Timeline        []wireSegment `json:"timeline"`
	ContentItems    flexStrings   `json:"contentItems"`
	CTA             flexString    `json:"cta"`
	PublishCopy     flexString    `json:"publishCopy"`
	Tags            flexStrings   `json:"tags"`
	Differentiation flexStrings   `json:"differentiation"`
}

// DecodeScript validates the untrusted LLM answer structurally and converts it
// to a DetailedScript. Scalars are coerced to strings; a missing title, topic or
// timeline is an error.
func DecodeScript(raw string) (DetailedScript, error) {
	raw = strings.TrimSpace(raw)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	var w wireScript
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return DetailedScript{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var missing []string
	if strings.TrimSpace(string(w.Title)) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(string(w.Topic)) == "" {
		missing = append(missing, "topic")
	}
	if len(w.Timeline) == 0 {
		missing = append(missing, "timeline")
	}
	if len(missing) > 0 {
		return DetailedScript{}, fmt.Errorf("%w: missing %s", ErrMalformedPayload, strings.Join(missing, ", "))
	}

	timeline := make([]Segment, len(w.Timeline))
	for i, seg := range w.Timeline {
		timeline[i] = Segment{
			Time:      string(seg.Time),
			Segment:   string(seg.Segment),
			Voiceover: string(seg.Voiceover),
			Visuals:   string(seg.Visuals),
		}
	}
	return DetailedScript{
		Topic:           string(w.Topic),
		Title:           string(w.Title),
		ThumbnailCopy:   string(w.ThumbnailCopy),
		Opening15s:      nonNil(w.Opening15s),
		Timeline:        timeline,
		ContentItems:    nonNil(w.ContentItems),
		CTA:             string(w.CTA),
		PublishCopy:     string(w.PublishCopy),
		Tags:            nonNil(w.Tags),
		Differentiation: nonNil(w.Differentiation),
		Provider:        ProviderAI,
	}, nil
}

func nonNil(s flexStrings) []string {
	if s == nil {
		return []string{}
	}
	return []string(s)
}

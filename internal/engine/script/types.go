// Package script scores, validates and generates shootable video scripts.
//
// Evaluate and EvaluateEnhanced are pure rule-based scorers. Enforce checks an
// LLM-produced script against the caller's generation contract. Generator ties
// them to the LLM and falls back to a local template.
package script

// Provider values for DetailedScript.Provider.
const (
	ProviderAI       = "ai"
	ProviderTemplate = "template"
)

// Segment is one timeline entry of a script.
type Segment struct {
	Time      string `json:"time"`
	Segment   string `json:"segment"`
	Voiceover string `json:"voiceover"`
	Visuals   string `json:"visuals"`
}

// References records the seeds and titles a script was generated from.
type References struct {
	Seeds         []string `json:"seeds"`
	SampledTitles []string `json:"sampled_titles"`
}

// DetailedScript is a shootable script.
type DetailedScript struct {
	Topic           string      `json:"topic"`
	Title           string      `json:"title"`
	ThumbnailCopy   string      `json:"thumbnail_copy"`
	Opening15s      []string    `json:"opening_15s"`
	Timeline        []Segment   `json:"timeline"`
	ContentItems    []string    `json:"content_items"`
	CTA             string      `json:"cta"`
	PublishCopy     string      `json:"publish_copy"`
	Tags            []string    `json:"tags"`
	Differentiation []string    `json:"differentiation"`
	References      *References `json:"references,omitempty"`
	Provider        string      `json:"provider"`
}

// Grade is the quality band of an overall score.
type Grade string

const (
	GradeExcellent Grade = "优秀"
	GradeGood      Grade = "良好"
	GradePass      Grade = "及格"
	GradeImprove   Grade = "待改进"
)

// GradeFor maps an overall score to its band. Lower bounds are inclusive.
func GradeFor(overall int) Grade {
	switch {
	case overall >= 85:
		return GradeExcellent
	case overall >= 70:
		return GradeGood
	case overall >= 60:
		return GradePass
	default:
		return GradeImprove
	}
}

// Dimension is one scored quality axis with human-readable findings.
type Dimension struct {
	Score   int      `json:"score"`
	Details []string `json:"details"`
}

// QualityScore is the three-axis quality evaluation.
type QualityScore struct {
	Overall      int       `json:"overall"`
	Structure    Dimension `json:"structure"`
	Shootability Dimension `json:"shootability"`
	Concreteness Dimension `json:"concreteness"`
	Grade        Grade     `json:"grade"`
}

// EnhancedQualityScore adds creativity, emotion and rhythm with caller weights.
type EnhancedQualityScore struct {
	Overall      int            `json:"overall"`
	Structure    Dimension      `json:"structure"`
	Shootability Dimension      `json:"shootability"`
	Concreteness Dimension      `json:"concreteness"`
	Creativity   Dimension      `json:"creativity"`
	Emotion      Dimension      `json:"emotion"`
	Rhythm       Dimension      `json:"rhythm"`
	Grade        Grade          `json:"grade"`
	Weights      QualityWeights `json:"weights"`
}

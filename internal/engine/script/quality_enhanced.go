package script

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// QualityWeights are the per-dimension weights of EvaluateEnhanced.
type QualityWeights struct {
	Structure    float64 `json:"structure"`
	Shootability float64 `json:"shootability"`
	Concreteness float64 `json:"concreteness"`
	Creativity   float64 `json:"creativity"`
	Emotion      float64 `json:"emotion"`
	Rhythm       float64 `json:"rhythm"`
}

// DefaultQualityWeights is used when the caller supplies none.
var DefaultQualityWeights = QualityWeights{
	Structure:    0.20,
	Shootability: 0.25,
	Concreteness: 0.20,
	Creativity:   0.15,
	Emotion:      0.10,
	Rhythm:       0.10,
}

// Sum returns the total weight.
func (w QualityWeights) Sum() float64 {
	return w.Structure + w.Shootability + w.Concreteness + w.Creativity + w.Emotion + w.Rhythm
}

// Valid reports whether the weights sum to 1 within 0.01.
// EvaluateEnhanced does not call it; callers decide whether to reject.
func (w QualityWeights) Valid() bool {
	return math.Abs(w.Sum()-1) < 0.01
}

var (
	questionRe = regexp.MustCompile(`[？?]`)
	contrastRe = regexp.MustCompile(`但是|然而|其实|实际上|事实上`)
	digitsRe   = regexp.MustCompile(`\d+`)
	clockRe    = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
)

// EvaluateEnhanced scores the three base dimensions plus creativity, emotion
// and rhythm and combines them with w (DefaultQualityWeights when nil).
func EvaluateEnhanced(s DetailedScript, w *QualityWeights) EnhancedQualityScore {
	weights := DefaultQualityWeights
	if w != nil {
		weights = *w
	}
	base := Evaluate(s)
	cr := evaluateCreativity(s)
	em := evaluateEmotion(s)
	rh := evaluateRhythm(s)

	overall := int(math.Round(
		float64(base.Structure.Score)*weights.Structure +
			float64(base.Shootability.Score)*weights.Shootability +
			float64(base.Concreteness.Score)*weights.Concreteness +
			float64(cr.Score)*weights.Creativity +
			float64(em.Score)*weights.Emotion +
			float64(rh.Score)*weights.Rhythm))

	return EnhancedQualityScore{
		Overall:      overall,
		Structure:    base.Structure,
		Shootability: base.Shootability,
		Concreteness: base.Concreteness,
		Creativity:   cr,
		Emotion:      em,
		Rhythm:       rh,
		Grade:        GradeFor(overall),
		Weights:      weights,
	}
}

// --- creativity (subtractive from 100) ---

func evaluateCreativity(s DetailedScript) Dimension {
	return dimension(100,
		creativeDifferentiationRule(s),
		titleNoveltyRule(s),
		hookRule(s),
		uniqueAngleRule(s),
	)
}

func creativeDifferentiationRule(s DetailedScript) rule {
	n := len(s.Differentiation)
	switch {
	case n >= 3:
		return rule{0, fmt.Sprintf("✓ 差异化点充足（%d个）", n)}
	case n >= 2:
		return rule{-10, fmt.Sprintf("△ 差异化点一般（%d个，建议≥3个）", n)}
	default:
		return rule{-30, fmt.Sprintf("✗ 差异化点不足（%d个）", n)}
	}
}

func titleNoveltyRule(s DetailedScript) rule {
	switch {
	case commonTitleSet.contains(s.Title):
		return rule{-15, "△ 标题使用常见套路（建议更新颖）"}
	case s.Title != "":
		return rule{0, "✓ 标题避开常见套路"}
	default:
		return rule{-20, "✗ 标题缺失"}
	}
}

func hookRule(s DetailedScript) rule {
	if len(s.Opening15s) == 0 {
		return rule{-25, "✗ 缺少开场钩子"}
	}
	opening := strings.Join(s.Opening15s, "")
	hook := 0
	if questionRe.MatchString(opening) {
		hook += 8
	}
	if contrastRe.MatchString(opening) {
		hook += 8
	}
	if digitsRe.MatchString(opening) {
		hook += 9
	}
	switch {
	case hook >= 16:
		return rule{0, "✓ 开场钩子多样化"}
	case hook >= 8:
		return rule{-10, "△ 开场钩子单一（建议增加疑问/对比/数据）"}
	default:
		return rule{-25, "✗ 开场钩子缺乏吸引力"}
	}
}

func uniqueAngleRule(s DetailedScript) rule {
	if uniqueAngleSet.contains(strings.Join(s.ContentItems, "")) {
		return rule{0, "✓ 内容角度独特"}
	}
	return rule{-20, "△ 内容角度常规（建议增加独特视角）"}
}

// --- emotion (subtractive from 100) ---

func emotionText(s DetailedScript) string {
	parts := []string{s.Title, s.ThumbnailCopy}
	parts = append(parts, s.Opening15s...)
	parts = append(parts, s.ContentItems...)
	parts = append(parts, s.CTA)
	return strings.Join(parts, "")
}

func evaluateEmotion(s DetailedScript) Dimension {
	text := emotionText(s)
	return dimension(100, emotionWordsRule(text), painPointRule(text), resonanceRule(text))
}

func emotionWordsRule(text string) rule {
	n := emotionSet.distinct(text)
	switch {
	case n >= 3:
		return rule{0, fmt.Sprintf("✓ 情感词汇丰富（%d个）", n)}
	case n >= 1:
		return rule{-15, fmt.Sprintf("△ 情感词汇偏少（%d个，建议≥3个）", n)}
	default:
		return rule{-30, "✗ 缺乏情感词汇"}
	}
}

func painPointRule(text string) rule {
	n := painPointSet.distinct(text)
	switch {
	case n >= 2:
		return rule{0, fmt.Sprintf("✓ 触达用户痛点（%d个）", n)}
	case n >= 1:
		return rule{-15, fmt.Sprintf("△ 痛点触达不足（%d个，建议≥2个）", n)}
	default:
		return rule{-35, "✗ 未触达用户痛点"}
	}
}

func resonanceRule(text string) rule {
	if resonanceSet.contains(text) {
		return rule{0, "✓ 包含共鸣场景描述"}
	}
	return rule{-30, "△ 缺少共鸣场景（建议增加\"你是否...\"等描述）"}
}

// --- rhythm (subtractive from 100) ---

func evaluateRhythm(s DetailedScript) Dimension {
	return dimension(100, pacingRule(s), sentenceVarietyRule(s), contentDensityRule(s))
}

// clockSeconds parses every mm:ss or hh:mm:ss stamp in label.
func clockSeconds(label string) []int {
	var out []int
	for _, m := range clockRe.FindAllStringSubmatch(label, -1) {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			c, _ := strconv.Atoi(m[3])
			out = append(out, a*3600+b*60+c)
			continue
		}
		out = append(out, a*60+b)
	}
	return out
}

// segmentDurations derives each segment's length in seconds from its time label:
// a "start-end" range gives end-start; a bare start runs until the next segment.
// Unknown durations are -1.
func segmentDurations(timeline []Segment) []int {
	starts := make([][]int, len(timeline))
	for i, seg := range timeline {
		starts[i] = clockSeconds(seg.Time)
	}
	out := make([]int, len(timeline))
	for i, st := range starts {
		out[i] = -1
		switch {
		case len(st) >= 2 && st[1] > st[0]:
			out[i] = st[1] - st[0]
		case len(st) >= 1 && i+1 < len(starts) && len(starts[i+1]) > 0 && starts[i+1][0] > st[0]:
			out[i] = starts[i+1][0] - st[0]
		}
	}
	return out
}

func pacingRule(s DetailedScript) rule {
	if len(s.Timeline) == 0 {
		return rule{-40, "✗ 缺少分镜时间轴"}
	}
	var short, medium, long int
	for _, d := range segmentDurations(s.Timeline) {
		switch {
		case d < 0:
		case d <= 15:
			short++
		case d <= 30:
			medium++
		default:
			long++
		}
	}
	switch {
	case short > 0 && medium > 0:
		return rule{0, "✓ 分镜时长分布合理（快慢结合）"}
	case float64(long) > float64(len(s.Timeline))*0.7:
		return rule{-25, "△ 分镜过长（建议增加快节奏片段）"}
	default:
		return rule{-15, "△ 分镜节奏单一"}
	}
}

func sentenceVarietyRule(s DetailedScript) rule {
	if len(s.Opening15s) == 0 {
		return rule{-30, "✗ 缺少开场口播"}
	}
	lo, hi := math.MaxInt, 0
	for _, line := range s.Opening15s {
		n := runes(line)
		lo = min(lo, n)
		hi = max(hi, n)
	}
	if hi-lo > 10 {
		return rule{0, "✓ 句子长度有变化"}
	}
	return rule{-20, "△ 句子长度过于统一（建议长短结合）"}
}

func contentDensityRule(s DetailedScript) rule {
	if len(s.ContentItems) == 0 {
		return rule{-30, "✗ 缺少内容要点"}
	}
	total := 0
	for _, item := range s.ContentItems {
		total += runes(item)
	}
	avg := float64(total) / float64(len(s.ContentItems))
	switch {
	case avg >= 20 && avg <= 50:
		return rule{0, "✓ 内容密度适中"}
	case avg > 50:
		return rule{-20, "△ 内容过于密集（建议拆分）"}
	default:
		return rule{-15, "△ 内容过于简略（建议补充细节）"}
	}
}

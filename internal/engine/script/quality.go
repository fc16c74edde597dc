package script

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Thresholds shared with the contract enforcer.
const (
	minFlagVisualsRunes   = 30
	minFlagVoiceoverRunes = 50
	maxShootDetails       = 5
)

var numberTokenRe = regexp.MustCompile(`\d+(\.\d+)?[%个条种项天分钟小时元块]`)

// rule is one scoring check: a signed delta against the dimension baseline
// and a human-readable finding.
type rule struct {
	delta  int
	detail string
}

// dimension sums rule deltas from baseline and clamps to [0,100].
func dimension(baseline int, rules ...rule) Dimension {
	score := baseline
	details := make([]string, 0, len(rules))
	for _, r := range rules {
		score += r.delta
		details = append(details, r.detail)
	}
	return Dimension{Score: min(max(score, 0), 100), Details: details}
}

func runes(s string) int { return utf8.RuneCountInString(s) }

func pct(v float64) int { return int(math.Round(v * 100)) }

// Evaluate scores structure, shootability and concreteness.
// Overall = round(0.3*structure + 0.4*shootability + 0.3*concreteness).
func Evaluate(s DetailedScript) QualityScore {
	st := evaluateStructure(s)
	sh := evaluateShootability(s)
	co := evaluateConcreteness(s)
	overall := int(math.Round(float64(st.Score)*0.3 + float64(sh.Score)*0.4 + float64(co.Score)*0.3))
	return QualityScore{
		Overall:      overall,
		Structure:    st,
		Shootability: sh,
		Concreteness: co,
		Grade:        GradeFor(overall),
	}
}

// --- structure (additive from 0) ---

func evaluateStructure(s DetailedScript) Dimension {
	return dimension(0,
		openingRule(s),
		segmentCountRule(s),
		contentItemsRule(s),
		voiceoverBalanceRule(s),
		differentiationRule(s),
	)
}

func openingRule(s DetailedScript) rule {
	if len(s.Opening15s) >= 3 {
		return rule{15, "✓ 开场口播完整（≥3句）"}
	}
	return rule{0, "✗ 开场口播不足3句"}
}

func segmentCountRule(s DetailedScript) rule {
	n := len(s.Timeline)
	switch {
	case n >= 8:
		return rule{25, fmt.Sprintf("✓ 分镜段数充足（%d段）", n)}
	case n >= 5:
		return rule{15, fmt.Sprintf("△ 分镜段数偏少（%d段，建议≥8段）", n)}
	default:
		return rule{0, fmt.Sprintf("✗ 分镜段数严重不足（%d段）", n)}
	}
}

func contentItemsRule(s DetailedScript) rule {
	n := len(s.ContentItems)
	switch {
	case n >= 5:
		return rule{20, fmt.Sprintf("✓ 内容要点清晰（%d条）", n)}
	case n >= 3:
		return rule{10, fmt.Sprintf("△ 内容要点偏少（%d条，建议≥5条）", n)}
	default:
		return rule{0, fmt.Sprintf("✗ 内容要点不足（%d条）", n)}
	}
}

// voiceoverBalanceRule scores the coefficient of variation of voiceover lengths.
// An empty timeline or all-empty voiceovers earn nothing.
func voiceoverBalanceRule(s DetailedScript) rule {
	if len(s.Timeline) == 0 {
		return rule{0, "✗ 缺少分镜，无法评估段落均衡"}
	}
	lengths := make([]float64, len(s.Timeline))
	var sum float64
	for i, seg := range s.Timeline {
		lengths[i] = float64(runes(seg.Voiceover))
		sum += lengths[i]
	}
	avg := sum / float64(len(lengths))
	if avg == 0 {
		return rule{0, "✗ 分镜段落长度差异过大"}
	}
	var variance float64
	for _, l := range lengths {
		variance += (l - avg) * (l - avg)
	}
	cv := math.Sqrt(variance/float64(len(lengths))) / avg
	switch {
	case cv < 0.3:
		return rule{20, "✓ 分镜段落长度均衡"}
	case cv < 0.5:
		return rule{10, "△ 分镜段落长度略有不均"}
	default:
		return rule{0, "✗ 分镜段落长度差异过大"}
	}
}

func differentiationRule(s DetailedScript) rule {
	n := len(s.Differentiation)
	switch {
	case n >= 3:
		return rule{20, fmt.Sprintf("✓ 差异化点充分（%d条）", n)}
	case n >= 2:
		return rule{10, fmt.Sprintf("△ 差异化点偏少（%d条，建议≥3条）", n)}
	default:
		return rule{0, fmt.Sprintf("✗ 差异化点不足（%d条）", n)}
	}
}

// --- shootability (additive from 0, timeline only) ---

type shotStats struct {
	segments     int
	withShots    int
	withScenes   int
	shotKeywords int
	flags        []string
}

func collectShotStats(timeline []Segment) shotStats {
	st := shotStats{segments: len(timeline)}
	for i, seg := range timeline {
		if n := shotSet.distinct(seg.Visuals); n > 0 {
			st.withShots++
			st.shotKeywords += n
		}
		if sceneSet.contains(seg.Visuals) {
			st.withScenes++
		}
		if n := runes(seg.Visuals); n < minFlagVisualsRunes {
			st.flags = append(st.flags, fmt.Sprintf("✗ 第%d段画面描述过短（%d字）", i+1, n))
		}
		if n := runes(seg.Voiceover); n < minFlagVoiceoverRunes {
			st.flags = append(st.flags, fmt.Sprintf("✗ 第%d段口播过短（%d字）", i+1, n))
		}
	}
	return st
}

func evaluateShootability(s DetailedScript) Dimension {
	if len(s.Timeline) == 0 {
		return Dimension{Score: 0, Details: []string{"✗ 缺少分镜脚本"}}
	}
	st := collectShotStats(s.Timeline)
	d := dimension(0, shotCoverageRule(st), sceneCoverageRule(st), shotDensityRule(st))
	// Per-segment flags come first; only the first five findings are kept.
	details := append(append([]string{}, st.flags...), d.Details...)
	if len(details) > maxShootDetails {
		details = details[:maxShootDetails]
	}
	d.Details = details
	return d
}

func shotCoverageRule(st shotStats) rule {
	c := float64(st.withShots) / float64(st.segments)
	switch {
	case c >= 0.8:
		return rule{40, fmt.Sprintf("✓ 镜头动作覆盖率高（%d%%）", pct(c))}
	case c >= 0.5:
		return rule{25, fmt.Sprintf("△ 镜头动作覆盖率中等（%d%%）", pct(c))}
	default:
		return rule{0, fmt.Sprintf("✗ 镜头动作覆盖率低（%d%%）", pct(c))}
	}
}

func sceneCoverageRule(st shotStats) rule {
	c := float64(st.withScenes) / float64(st.segments)
	switch {
	case c >= 0.6:
		return rule{30, fmt.Sprintf("✓ 场景描述充分（%d%%）", pct(c))}
	case c >= 0.3:
		return rule{15, fmt.Sprintf("△ 场景描述一般（%d%%）", pct(c))}
	default:
		return rule{0, fmt.Sprintf("✗ 场景描述不足（%d%%）", pct(c))}
	}
}

func shotDensityRule(st shotStats) rule {
	d := float64(st.shotKeywords) / float64(st.segments)
	switch {
	case d >= 2:
		return rule{30, fmt.Sprintf("✓ 镜头动作密度高（平均%.1f个/段）", d)}
	case d >= 1:
		return rule{15, fmt.Sprintf("△ 镜头动作密度中等（平均%.1f个/段）", d)}
	default:
		return rule{0, fmt.Sprintf("✗ 镜头动作密度低（平均%.1f个/段）", d)}
	}
}

// --- concreteness (subtractive from 100) ---

// concreteText joins the spoken and on-screen copy the concreteness rules read.
func concreteText(s DetailedScript) string {
	parts := []string{s.Topic, s.Title, s.ThumbnailCopy}
	parts = append(parts, s.Opening15s...)
	for _, seg := range s.Timeline {
		parts = append(parts, seg.Voiceover+seg.Visuals)
	}
	parts = append(parts, s.ContentItems...)
	parts = append(parts, s.CTA)
	return strings.Join(parts, " ")
}

// per100 is the count per 100 characters of text; empty text yields 0.
func per100(count, textLen int) float64 {
	if textLen == 0 {
		return 0
	}
	return float64(count) / (float64(textLen) / 100)
}

func evaluateConcreteness(s DetailedScript) Dimension {
	text := concreteText(s)
	n := runes(text)
	return dimension(100,
		vagueDensityRule(text, n),
		numberDensityRule(text, n),
		exampleRule(text),
		verbRule(text),
	)
}

func vagueDensityRule(text string, n int) rule {
	count := occurrences(text, vagueWords)
	ratio := per100(count, n)
	switch {
	case ratio > 3:
		return rule{-30, fmt.Sprintf("✗ 空话词汇过多（%d个，密度%.1f/100字）", count, ratio)}
	case ratio > 1.5:
		return rule{-15, fmt.Sprintf("△ 空话词汇偏多（%d个，密度%.1f/100字）", count, ratio)}
	default:
		return rule{0, fmt.Sprintf("✓ 空话词汇控制良好（%d个）", count)}
	}
}

func numberDensityRule(text string, n int) rule {
	count := len(numberTokenRe.FindAllString(text, -1))
	density := per100(count, n)
	switch {
	case density >= 2:
		return rule{0, fmt.Sprintf("✓ 数字数据充足（%d个，密度%.1f/100字）", count, density)}
	case density >= 1:
		return rule{-10, fmt.Sprintf("△ 数字数据偏少（%d个，建议增加具体数据）", count)}
	default:
		return rule{-20, fmt.Sprintf("✗ 数字数据严重不足（%d个）", count)}
	}
}

func exampleRule(text string) rule {
	count := exampleSet.distinct(text)
	switch {
	case count >= 3:
		return rule{0, fmt.Sprintf("✓ 案例引用充分（%d处）", count)}
	case count >= 1:
		return rule{-10, fmt.Sprintf("△ 案例引用偏少（%d处，建议≥3处）", count)}
	default:
		return rule{-20, "✗ 缺少具体案例引用"}
	}
}

func verbRule(text string) rule {
	vague := occurrences(text, vagueVerbs)
	concrete := occurrences(text, concreteVerbs)
	switch {
	case concrete > vague*2:
		return rule{0, fmt.Sprintf("✓ 动词具体性强（具体动词%d个 vs 泛化动词%d个）", concrete, vague)}
	case concrete > vague:
		return rule{-15, "△ 动词具体性一般（建议多用具体动作动词）"}
	default:
		return rule{-30, fmt.Sprintf("✗ 动词过于泛化（泛化动词%d个 ≥ 具体动词%d个）", vague, concrete)}
	}
}

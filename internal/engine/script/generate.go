package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

const (
	maxSeeds         = 5
	maxSampledTitles = 24
	defaultAttempts  = 2
)

var seedSplitRe = regexp.MustCompile(`[\n,]`)

// TitleSource resolves seed channels and reads their recent titles.
type TitleSource interface {
	ResolveChannelID(ctx context.Context, input string) (string, error)
	RecentTitles(ctx context.Context, channelID string) ([]string, error)
}

// CompleteFunc is an LLM completion call.
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// Generator produces contract-checked scripts from seed channels.
type Generator struct {
	Titles      TitleSource
	Complete    CompleteFunc // nil = engine.CallLLM
	MaxAttempts int          // <= 0 = engine.Cfg.ScriptMaxAttempts, then 2
}

// Request is one script generation request.
type Request struct {
	SeedText    string   `json:"seed_text"`
	Language    string   `json:"language"`
	Direction   string   `json:"direction"`
	TopicLock   string   `json:"topic_lock"`
	BannedWords []string `json:"banned_words"`
}

// Result is an accepted or template script with its quality score.
// LastError is set when the template was used because every attempt failed.
type Result struct {
	Script      DetailedScript `json:"script"`
	Quality     QualityScore   `json:"quality"`
	Constraints Constraints    `json:"constraints"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"last_error,omitempty"`
}

// ParseSeeds splits seed text on newlines and commas and keeps the first 5.
func ParseSeeds(text string) []string {
	var out []string
	for _, s := range seedSplitRe.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == maxSeeds {
			break
		}
	}
	return out
}

// Generate samples titles from the seeds, asks the LLM for a script and enforces
// the contract, retrying with the violations fed back. When every attempt fails
// it returns the local template together with the last failure.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	seeds := ParseSeeds(req.SeedText)
	if len(seeds) == 0 {
		return nil, errors.New("at least one seed channel is required")
	}
	sampled, err := g.sampleTitles(ctx, seeds)
	if err != nil {
		return nil, err
	}
	refs := &References{Seeds: seeds, SampledTitles: sampled}
	c := NewConstraints(req.Direction, req.TopicLock, req.BannedWords)

	complete := g.Complete
	if complete == nil {
		complete = engine.CallLLM
	}
	attempts := g.attempts()

	var lastErr error
	used := 0
	for used < attempts {
		used++
		prompt, perr := buildPrompt(req, c, refs, lastErr)
		if perr != nil {
			return nil, perr
		}
		raw, err := complete(ctx, scriptSystemPrompt, prompt)
		if err != nil {
			lastErr = err
			if errors.Is(err, engine.ErrLLMDisabled) || ctx.Err() != nil {
				break
			}
			slog.Warn("script: llm call failed", slog.Int("attempt", used), slog.Any("error", err))
			continue
		}
		s, err := DecodeScript(raw)
		if err == nil {
			err = Enforce(s, c)
		}
		if err != nil {
			lastErr = err
			engine.IncrScriptRejected()
			slog.Info("script: candidate rejected", slog.Int("attempt", used), slog.Any("error", err))
			continue
		}
		engine.IncrScriptAccepted()
		s.References = refs
		return &Result{Script: s, Quality: Evaluate(s), Constraints: c, Attempts: used}, nil
	}

	topic := c.TopicLock
	if topic == "" {
		topic = strings.TrimSpace(req.Direction)
	}
	s := Template(TemplateInput{Topic: engine.TruncateRunes(topic, 24, ""), RequiredCount: c.RequiredCount, SampledTitles: sampled})
	s.References = refs
	engine.IncrScriptTemplated()

	res := &Result{Script: s, Quality: Evaluate(s), Constraints: c, Attempts: used}
	if lastErr != nil {
		res.LastError = lastErr.Error()
	}
	return res, nil
}

func (g *Generator) attempts() int {
	if g.MaxAttempts > 0 {
		return g.MaxAttempts
	}
	if engine.Cfg.ScriptMaxAttempts > 0 {
		return engine.Cfg.ScriptMaxAttempts
	}
	return defaultAttempts
}

func (g *Generator) sampleTitles(ctx context.Context, seeds []string) ([]string, error) {
	if g.Titles == nil {
		return nil, errors.New("script generator has no title source")
	}
	sampled := []string{}
	for _, seed := range seeds {
		id, err := g.Titles.ResolveChannelID(ctx, seed)
		if err != nil {
			return nil, fmt.Errorf("resolve seed %q: %w", seed, err)
		}
		titles, err := g.Titles.RecentTitles(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("titles for %s: %w", id, err)
		}
		sampled = append(sampled, titles...)
		if len(sampled) >= maxSampledTitles {
			return sampled[:maxSampledTitles], nil
		}
	}
	return sampled, nil
}

const scriptSystemPrompt = "你是YouTube内容策划。请基于参考频道风格，产出1篇可直接拍摄的详细文案。" +
	"仅学习结构和节奏，禁止复用原句。禁止编造数字承诺；如果提到N种/个/条，contentItems必须严格给出N条。" +
	"timeline至少8段，每段voiceover不少于60字，visuals不少于40字并写明镜头动作（近景/特写/推镜等）；" +
	"如果有N条要点，timeline的segment标签必须用“要点1”“要点2-3”这样的写法覆盖全部要点。必须输出JSON。"

type promptPayload struct {
	Language           string          `json:"language"`
	Direction          string          `json:"direction"`
	TopicLock          string          `json:"topicLock"`
	BannedWords        []string        `json:"bannedWords"`
	RequiredCount      *int            `json:"requiredCount"`
	Requirement        promptReq       `json:"requirement"`
	References         *References     `json:"references"`
	PreviousViolations json.RawMessage `json:"previousViolations,omitempty"`
}

type promptReq struct {
	Count          int      `json:"count"`
	OutputFields   []string `json:"outputFields"`
	TimelineFormat string   `json:"timelineFormat"`
	Constraints    []string `json:"constraints"`
}

func buildPrompt(req Request, c Constraints, refs *References, prev error) (string, error) {
	lang := req.Language
	if lang == "" {
		lang = "zh"
	}
	direction := strings.TrimSpace(req.Direction)
	if direction == "" {
		direction = "同类型视频"
	}
	p := promptPayload{
		Language:    lang,
		Direction:   direction,
		TopicLock:   c.TopicLock,
		BannedWords: c.BannedWords,
		Requirement: promptReq{
			Count: 1,
			OutputFields: []string{
				"topic", "title", "thumbnailCopy", "opening15s", "timeline",
				"contentItems", "cta", "publishCopy", "tags", "differentiation",
			},
			TimelineFormat: "[{time,segment,voiceover,visuals}]",
			Constraints: []string{
				"不要照抄参考标题和原句",
				"至少给出3条差异化点",
				"风格贴近参考频道但更适合实操拍摄",
				"如果requiredCount存在，contentItems长度必须===requiredCount",
				"如果topicLock存在，topic/title/contentItems必须明显围绕topicLock",
				"如果bannedWords存在，输出中不能出现这些词",
			},
		},
		References: refs,
	}
	if p.BannedWords == nil {
		p.BannedWords = []string{}
	}
	if c.RequiredCount > 0 {
		n := c.RequiredCount
		p.RequiredCount = &n
	}
	if prev != nil {
		msg, _ := json.Marshal(engine.TruncateRunes(prev.Error(), 600, "..."))
		p.PreviousViolations = msg
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("script prompt: %w", err)
	}
	return string(b), nil
}

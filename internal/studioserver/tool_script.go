package studioserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine/script"
	"github.com/anatolykoptev/go_studio/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ScriptGenerateInput is the script_generate request.
type ScriptGenerateInput struct {
	SeedText    string `json:"seed_text" jsonschema:"Seed channels, comma or newline separated (up to 5)"`
	Language    string `json:"language,omitempty" jsonschema:"Script language (default zh)"`
	Direction   string `json:"direction,omitempty" jsonschema:"Free-text direction; a count such as '10种' or '5 items' becomes a hard requirement"`
	TopicLock   string `json:"topic_lock,omitempty" jsonschema:"Phrase the topic, title or items must contain"`
	BannedWords string `json:"banned_words,omitempty" jsonschema:"Comma or newline separated words the script must not contain"`
}

// ScriptInput carries a script either as an object or as raw LLM JSON.
type ScriptInput struct {
	Script     *script.DetailedScript `json:"script,omitempty" jsonschema:"Script object"`
	ScriptJSON string                 `json:"script_json,omitempty" jsonschema:"Script as raw JSON text; markdown fences and loose types are tolerated"`
}

func (in ScriptInput) resolve() (script.DetailedScript, error) {
	if in.Script != nil {
		return *in.Script, nil
	}
	if strings.TrimSpace(in.ScriptJSON) == "" {
		return script.DetailedScript{}, errors.New("script or script_json is required")
	}
	return script.DecodeScript(in.ScriptJSON)
}

// ScriptQualityInput is the script_quality request.
type ScriptQualityInput struct {
	ScriptInput
	Enhanced bool                   `json:"enhanced,omitempty" jsonschema:"Add creativity, emotion and rhythm dimensions"`
	Weights  *script.QualityWeights `json:"weights,omitempty" jsonschema:"Enhanced dimension weights; must sum to 1"`
}

// ScriptQualityOutput holds the basic or the enhanced evaluation.
type ScriptQualityOutput struct {
	Quality  *script.QualityScore         `json:"quality,omitempty"`
	Enhanced *script.EnhancedQualityScore `json:"enhanced,omitempty"`
}

// ScriptValidateInput is the script_validate request.
type ScriptValidateInput struct {
	ScriptInput
	Direction   string `json:"direction,omitempty"`
	TopicLock   string `json:"topic_lock,omitempty"`
	BannedWords string `json:"banned_words,omitempty"`
}

// ViolationView is one contract violation.
type ViolationView struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// ScriptValidateOutput is the contract check result.
type ScriptValidateOutput struct {
	Valid       bool               `json:"valid"`
	Constraints script.Constraints `json:"constraints"`
	Violations  []ViolationView    `json:"violations"`
}

func registerScriptTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "script_generate",
		Description: "Generate a shootable video script from seed channels: samples their recent titles, asks the LLM for a timeline script and enforces the contract (promised item count, segment length, shot actions, item coverage, topic lock, banned words), retrying with the violations. Falls back to a local template when every attempt fails. Returns the script with its quality score.",
	}, d.scriptGenerate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "script_quality",
		Description: "Score a script on structure, shootability and concreteness (0-100 with findings and grade); enhanced mode adds creativity, emotion and rhythm with optional weights.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.scriptQuality)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "script_validate",
		Description: "Check a script against a generation contract and list every violation.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.scriptValidate)
}

func (d *Deps) scriptGenerate(ctx context.Context, _ *mcp.CallToolRequest, input ScriptGenerateInput) (*mcp.CallToolResult, *script.Result, error) {
	if strings.TrimSpace(input.SeedText) == "" {
		return nil, nil, fmt.Errorf("seed_text is required")
	}
	res, err := d.Generator.Generate(ctx, script.Request{
		SeedText:    input.SeedText,
		Language:    input.Language,
		Direction:   input.Direction,
		TopicLock:   input.TopicLock,
		BannedWords: toolutil.SplitList(input.BannedWords),
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (d *Deps) scriptQuality(_ context.Context, _ *mcp.CallToolRequest, input ScriptQualityInput) (*mcp.CallToolResult, *ScriptQualityOutput, error) {
	s, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	if !input.Enhanced && input.Weights == nil {
		q := script.Evaluate(s)
		return nil, &ScriptQualityOutput{Quality: &q}, nil
	}
	if input.Weights != nil && !input.Weights.Valid() {
		return nil, nil, fmt.Errorf("weights must sum to 1, got %.2f", input.Weights.Sum())
	}
	q := script.EvaluateEnhanced(s, input.Weights)
	return nil, &ScriptQualityOutput{Enhanced: &q}, nil
}

func (d *Deps) scriptValidate(_ context.Context, _ *mcp.CallToolRequest, input ScriptValidateInput) (*mcp.CallToolResult, *ScriptValidateOutput, error) {
	s, err := input.resolve()
	if err != nil {
		return nil, nil, err
	}
	c := script.NewConstraints(input.Direction, input.TopicLock, toolutil.SplitList(input.BannedWords))
	out := &ScriptValidateOutput{Valid: true, Constraints: c, Violations: []ViolationView{}}

	err = script.Enforce(s, c)
	var ce *script.ContractError
	switch {
	case err == nil:
	case errors.As(err, &ce):
		out.Valid = false
		for _, v := range ce.Violations {
			out.Violations = append(out.Violations, ViolationView{Kind: v.Kind.Error(), Detail: v.Detail})
		}
	default:
		return nil, nil, err
	}
	return nil, out, nil
}

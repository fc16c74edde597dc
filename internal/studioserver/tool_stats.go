package studioserver

import (
	"context"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput sets the trend window.
type StatsInput struct {
	Days int `json:"days,omitempty" jsonschema:"Trend window in days (default 7, max 90)"`
}

// StatsOutput is the studio dashboard.
type StatsOutput struct {
	store.Stats
	Counters map[string]int64 `json:"counters"`
}

func registerStatsTool(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "studio_stats",
		Description: "Dashboard totals: episodes (and how many are measured), discover and similar runs, marked and priority channels, a daily episode trend, and process counters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.stats)
}

func (d *Deps) stats(ctx context.Context, _ *mcp.CallToolRequest, in StatsInput) (*mcp.CallToolResult, *StatsOutput, error) {
	st, err := d.Store.Stats(ctx, in.Days)
	if err != nil {
		return nil, nil, err
	}
	return nil, &StatsOutput{Stats: *st, Counters: engine.GetMetrics()}, nil
}

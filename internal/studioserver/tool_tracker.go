package studioserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/anatolykoptev/go_studio/internal/engine/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetricsUpdateInput is the tracker_metrics_update request. Omitted numbers keep their stored values.
type MetricsUpdateInput struct {
	EpisodeID        string   `json:"episode_id" jsonschema:"Episode id from episode_list"`
	CTR              *float64 `json:"ctr,omitempty" jsonschema:"Click-through rate in percent"`
	Retention30s     *float64 `json:"retention_30s,omitempty" jsonschema:"Audience retention at 30 seconds in percent"`
	AvgWatchTimeSec  *float64 `json:"avg_watch_time_sec,omitempty"`
	Views7d          *int64   `json:"views_7d,omitempty" jsonschema:"Views in the first 7 days"`
	CommentsSummary  string   `json:"comments_summary,omitempty"`
	WinOrFail        string   `json:"win_or_fail,omitempty"`
	OptimizationNote string   `json:"optimization_note,omitempty"`
}

func registerTrackerTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_metrics_update",
		Description: "Record measured performance of an episode (CTR, 30s retention, watch time, 7-day views, verdict and notes). Omitted values keep what was stored.",
	}, d.metricsUpdate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_summary",
		Description: "Summarize own episode performance, competitor keyword trends from the last 14 days of discovery runs, and a focus recommendation.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.trackerSummary)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_next_actions",
		Description: "Score keywords by measured CTR, retention and views, and suggest which to keep and which to pause.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.nextActions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "report_weekly",
		Description: "Weekly review of the last 7 days: averages, winning and losing keywords, next week's must-do, backup and experiment topics, and recommendations.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.weeklyReport)
}

func (d *Deps) metricsUpdate(ctx context.Context, _ *mcp.CallToolRequest, input MetricsUpdateInput) (*mcp.CallToolResult, *store.EpisodeMetrics, error) {
	id := strings.TrimSpace(input.EpisodeID)
	if id == "" {
		return nil, nil, fmt.Errorf("episode_id is required")
	}
	m, err := d.Tracker.UpdateMetrics(ctx, store.EpisodeMetrics{
		EpisodeID:        id,
		CTR:              input.CTR,
		Retention30s:     input.Retention30s,
		AvgWatchTimeSec:  input.AvgWatchTimeSec,
		Views7d:          input.Views7d,
		CommentsSummary:  input.CommentsSummary,
		WinOrFail:        input.WinOrFail,
		OptimizationNote: input.OptimizationNote,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, m, nil
}

func (d *Deps) trackerSummary(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *tracker.Summary, error) {
	s, err := d.Tracker.Summary(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, s, nil
}

func (d *Deps) nextActions(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *tracker.NextActionsResult, error) {
	r, err := d.Tracker.NextActions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, r, nil
}

func (d *Deps) weeklyReport(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *tracker.WeeklyReport, error) {
	r, err := d.Tracker.WeeklyReport(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, r, nil
}

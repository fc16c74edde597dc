package studioserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine/planner"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WeeklyPlanInput is the planner_weekly request.
type WeeklyPlanInput struct {
	RunID  string `json:"run_id,omitempty" jsonschema:"Discover run to plan from (default latest)"`
	Count  int    `json:"count,omitempty" jsonschema:"Episodes to plan, 3-20 (default 10)"`
	Briefs int    `json:"briefs,omitempty" jsonschema:"Episode briefs to return, 1-10 (default 3)"`
	AI     bool   `json:"ai,omitempty" jsonschema:"Refine keywords with the LLM"`
}

// SeedPlanInput is the planner_seed request.
type SeedPlanInput struct {
	SeedText  string `json:"seed_text" jsonschema:"Seed channels, comma or newline separated (up to 5)"`
	Count     int    `json:"count,omitempty" jsonschema:"Episodes to plan, 3-20 (default 10)"`
	Language  string `json:"language,omitempty" jsonschema:"Script language (default zh)"`
	Scene     string `json:"scene,omitempty" jsonschema:"Shooting scene, used when auto_scene is false"`
	AutoScene *bool  `json:"auto_scene,omitempty" jsonschema:"Infer the scene from seed titles (default true)"`
	AI        bool   `json:"ai,omitempty" jsonschema:"Refine keywords with the LLM"`
}

// EpisodeListInput is the episode_list request.
type EpisodeListInput struct {
	Days  int `json:"days,omitempty" jsonschema:"Only episodes created in the last N days"`
	Limit int `json:"limit,omitempty" jsonschema:"Maximum episodes, up to 500 (default 50)"`
}

// EpisodeListOutput lists planned episodes with their metrics.
type EpisodeListOutput struct {
	Episodes []store.Episode `json:"episodes"`
}

// EpisodeDeleteInput is the episode_delete request.
type EpisodeDeleteInput struct {
	ID string `json:"id" jsonschema:"Episode id from episode_list"`
}

// EpisodeDeleteOutput confirms a deletion.
type EpisodeDeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func registerPlannerTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "planner_weekly",
		Description: "Plan next week's episodes from a stored discover run and the latest similar-channel run: extracts keywords from competitor titles (optionally refined by the LLM), saves episodes with title options and planned dates, and returns hook/steps/CTA briefs.",
	}, d.weeklyPlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "planner_seed",
		Description: "Plan episodes from seed channels: reads their recent titles, builds a keyword pool, infers the shooting scene (balcony, backyard, indoor, off-grid, farm) and saves episodes in must-do, backup and experiment buckets.",
	}, d.seedPlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "episode_list",
		Description: "List planned episodes newest first with their measured metrics.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.episodeList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "episode_delete",
		Description: "Delete a planned episode and its metrics by id.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, d.episodeDelete)
}

func (d *Deps) weeklyPlan(ctx context.Context, _ *mcp.CallToolRequest, input WeeklyPlanInput) (*mcp.CallToolResult, *planner.WeeklyResult, error) {
	res, err := d.Planner.WeeklyPlan(ctx, planner.WeeklyRequest{
		RunID:  latestID(input.RunID),
		Count:  input.Count,
		Briefs: input.Briefs,
		AI:     input.AI,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (d *Deps) seedPlan(ctx context.Context, _ *mcp.CallToolRequest, input SeedPlanInput) (*mcp.CallToolResult, *planner.SeedResult, error) {
	if strings.TrimSpace(input.SeedText) == "" {
		return nil, nil, fmt.Errorf("seed_text is required")
	}
	res, err := d.Planner.SeedPlan(ctx, planner.SeedRequest{
		SeedText:  input.SeedText,
		Count:     input.Count,
		Language:  input.Language,
		Scene:     input.Scene,
		AutoScene: input.AutoScene,
		AI:        input.AI,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func (d *Deps) episodeList(ctx context.Context, _ *mcp.CallToolRequest, input EpisodeListInput) (*mcp.CallToolResult, *EpisodeListOutput, error) {
	f := store.EpisodeFilter{Limit: input.Limit}
	if input.Days > 0 {
		f.Since = d.now().Add(-time.Duration(input.Days) * 24 * time.Hour)
	}
	eps, err := d.Store.ListEpisodes(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	if eps == nil {
		eps = []store.Episode{}
	}
	return nil, &EpisodeListOutput{Episodes: eps}, nil
}

func (d *Deps) episodeDelete(ctx context.Context, _ *mcp.CallToolRequest, input EpisodeDeleteInput) (*mcp.CallToolResult, *EpisodeDeleteOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, nil, fmt.Errorf("id is required")
	}
	if err := d.Store.DeleteEpisode(ctx, id); err != nil {
		return nil, nil, err
	}
	return nil, &EpisodeDeleteOutput{ID: id, Deleted: true}, nil
}

func ptr[T any](v T) *T { return &v }

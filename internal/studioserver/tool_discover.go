package studioserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/niche"
	"github.com/anatolykoptev/go_studio/internal/engine/planner"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DiscoverInput is the youtube_discover request.
type DiscoverInput struct {
	Query             string   `json:"query,omitempty" jsonschema:"Search query. Defaults to the niche's primary query, then homestead"`
	Niche             string   `json:"niche,omitempty" jsonschema:"Niche preset slug, e.g. homestead, ai-tools, fitness"`
	Region            string   `json:"region,omitempty" jsonschema:"Region code (default US)"`
	Language          string   `json:"language,omitempty" jsonschema:"Relevance language (default en)"`
	Days              int      `json:"days,omitempty" jsonschema:"Publish window in days (default 7)"`
	MaxResults        int      `json:"max_results,omitempty" jsonschema:"Videos to fetch, at most 50"`
	MinDurationSec    int      `json:"min_duration_sec,omitempty" jsonschema:"Drop videos shorter than this (default 240, negative disables)"`
	WeightViewSum     float64  `json:"weight_view_sum,omitempty" jsonschema:"Score weight of ln(1 + view sum)"`
	WeightMedianView  float64  `json:"weight_median_view,omitempty" jsonschema:"Score weight of ln(1 + median views)"`
	WeightUpload      float64  `json:"weight_upload,omitempty" jsonschema:"Score weight of upload count"`
	MinSubscribers    *int64   `json:"min_subscribers,omitempty"`
	MaxSubscribers    *int64   `json:"max_subscribers,omitempty"`
	MaxChannelAgeDays *int     `json:"max_channel_age_days,omitempty"`
	MinViewSubRatio   *float64 `json:"min_view_sub_ratio,omitempty"`
	MaxViewSubRatio   *float64 `json:"max_view_sub_ratio,omitempty"`
	Enrich            bool     `json:"enrich,omitempty" jsonschema:"Fetch subscriber counts and channel age even without bounds"`
	Refresh           bool     `json:"refresh,omitempty" jsonschema:"Bypass the result cache"`
}

func (in DiscoverInput) discoveryInput() discovery.Input {
	return discovery.Input{
		Query:          in.Query,
		Region:         in.Region,
		Language:       in.Language,
		Days:           in.Days,
		MaxResults:     in.MaxResults,
		MinDurationSec: in.MinDurationSec,
		Weights: discovery.WeightVector{
			ViewSum:    in.WeightViewSum,
			MedianView: in.WeightMedianView,
			Upload:     in.WeightUpload,
		},
		Bounds: discovery.Bounds{
			MinSubscribers:    in.MinSubscribers,
			MaxSubscribers:    in.MaxSubscribers,
			MaxChannelAgeDays: in.MaxChannelAgeDays,
			MinViewSubRatio:   in.MinViewSubRatio,
			MaxViewSubRatio:   in.MaxViewSubRatio,
		},
		Enrich: in.Enrich,
	}
}

// DiscoverOutput is one ranked discovery run.
type DiscoverOutput struct {
	RunID          string                       `json:"run_id,omitempty"`
	Niche          string                       `json:"niche,omitempty"`
	Input          discovery.Input              `json:"input"`
	Channels       []discovery.ChannelCandidate `json:"channels"`
	FetchedVideos  int                          `json:"fetched_videos"`
	FilteredVideos int                          `json:"filtered_videos"`
}

// DiscoverHistoryInput selects a page of runs or one run by id.
type DiscoverHistoryInput struct {
	RunID    string `json:"run_id,omitempty" jsonschema:"Return this run with its candidates; 'latest' for the newest run"`
	Page     int    `json:"page,omitempty" jsonschema:"Page number (default 1)"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Runs per page, 1-50 (default 10)"`
}

// DiscoverHistoryOutput is a run page, or a single run when run_id was given.
type DiscoverHistoryOutput struct {
	Runs []store.DiscoverRun `json:"runs,omitempty"`
	Page *store.Page         `json:"page,omitempty"`
	Run  *store.DiscoverRun  `json:"run,omitempty"`
}

// AnalyzeTitlesInput is the youtube_analyze_titles request.
type AnalyzeTitlesInput struct {
	Titles []string `json:"titles,omitempty" jsonschema:"Titles to analyze. When empty the sample titles of a stored discover run are used"`
	RunID  string   `json:"run_id,omitempty" jsonschema:"Discover run to read titles from (default latest)"`
	Niche  string   `json:"niche,omitempty" jsonschema:"Niche preset whose risk words extend the default list"`
}

// AnalyzeTitlesOutput is a title analysis with its source run.
type AnalyzeTitlesOutput struct {
	RunID string `json:"run_id,omitempty"`
	planner.TitleAnalysis
}

// NicheListOutput lists the active niche presets.
type NicheListOutput struct {
	Niches []niche.Preset `json:"niches"`
}

func registerDiscoverTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_discover",
		Description: "Find fast-growing YouTube channels: searches recent videos, drops short ones, aggregates by channel, scores by view sum, median views and upload count, then applies optional subscriber, channel-age and view/subscriber bounds. Returns the top 20 channels and stores the run for history and planning. Niche presets fill query, window, duration and weights.",
	}, d.discover)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_discover_history",
		Description: "List stored discovery runs newest first, or return one run with its candidates (run_id, or 'latest').",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.discoverHistory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_analyze_titles",
		Description: "Analyze video titles: normalized title patterns (digits become {n}), top keywords and risky clickbait words. Uses the given titles or a stored discover run.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.analyzeTitles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "niche_list",
		Description: "List niche presets with their query, keyword set, duration and window defaults, score weights and risk words.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.nicheList)
}

func (d *Deps) discover(ctx context.Context, _ *mcp.CallToolRequest, input DiscoverInput) (*mcp.CallToolResult, *DiscoverOutput, error) {
	in := input.discoveryInput()
	if input.Niche != "" {
		preset, ok := d.Niches.Get(ctx, input.Niche)
		if !ok {
			return nil, nil, fmt.Errorf("unknown niche %q", input.Niche)
		}
		niche.ApplyDiscover(&in, preset)
	}
	in.Normalize()

	keyJSON, err := json.Marshal(in)
	if err != nil {
		return nil, nil, fmt.Errorf("cache key: %w", err)
	}
	cacheKey := engine.CacheKey("youtube_discover", input.Niche, string(keyJSON))
	if !input.Refresh {
		if out, ok := engine.CacheLoadJSON[DiscoverOutput](ctx, cacheKey); ok {
			return nil, &out, nil
		}
	}

	var res *discovery.Result
	err = engine.TrackOperation(ctx, "youtube_discover:"+in.Query, func(ctx context.Context) error {
		var err error
		res, err = discovery.Discover(ctx, d.YouTube, in, d.now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	out := &DiscoverOutput{
		Niche:          input.Niche,
		Input:          in,
		Channels:       res.Channels,
		FetchedVideos:  res.FetchedVideos,
		FilteredVideos: res.FilteredVideos,
	}
	if d.Store != nil {
		run, err := d.Store.SaveDiscoverRun(ctx, in, input.Niche, res)
		if err != nil {
			slog.Warn("youtube_discover: save run failed", slog.Any("error", err))
		} else {
			out.RunID = run.ID
		}
	}
	engine.CacheStoreJSON(ctx, cacheKey, *out)
	return nil, out, nil
}

func (d *Deps) discoverHistory(ctx context.Context, _ *mcp.CallToolRequest, input DiscoverHistoryInput) (*mcp.CallToolResult, *DiscoverHistoryOutput, error) {
	if input.RunID != "" {
		run, err := d.Store.DiscoverRun(ctx, latestID(input.RunID))
		if err != nil {
			return nil, nil, err
		}
		return nil, &DiscoverHistoryOutput{Run: run}, nil
	}
	runs, page, err := d.Store.ListDiscoverRuns(ctx, store.NewPage(input.Page, input.PageSize))
	if err != nil {
		return nil, nil, err
	}
	return nil, &DiscoverHistoryOutput{Runs: runs, Page: &page}, nil
}

func (d *Deps) analyzeTitles(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeTitlesInput) (*mcp.CallToolResult, *AnalyzeTitlesOutput, error) {
	var extraRisk []string
	if input.Niche != "" {
		preset, ok := d.Niches.Get(ctx, input.Niche)
		if !ok {
			return nil, nil, fmt.Errorf("unknown niche %q", input.Niche)
		}
		extraRisk = preset.RiskWords
	}

	out := &AnalyzeTitlesOutput{}
	titles := input.Titles
	if len(titles) == 0 {
		run, err := d.Store.DiscoverRun(ctx, latestID(input.RunID))
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("titles or a stored discover run is required")
		}
		if err != nil {
			return nil, nil, err
		}
		out.RunID = run.ID
		for _, c := range run.Candidates {
			titles = append(titles, c.SampleTitles...)
		}
	}
	out.TitleAnalysis = planner.AnalyzeTitles(titles, extraRisk...)
	return nil, out, nil
}

func (d *Deps) nicheList(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *NicheListOutput, error) {
	presets, err := d.Niches.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, &NicheListOutput{Niches: presets}, nil
}

// latestID maps the "latest" alias to the store's empty-id convention.
func latestID(id string) string {
	if id == "latest" {
		return ""
	}
	return id
}

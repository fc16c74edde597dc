package studioserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/anatolykoptev/go_studio/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SimilarInput is the youtube_similar request.
type SimilarInput struct {
	Seed       string   `json:"seed" jsonschema:"Seed channel: UC id, channel URL, @handle or username"`
	Candidates []string `json:"candidates,omitempty" jsonschema:"Extra candidate channel ids ranked alongside the search results"`
	PoolRunID  string   `json:"pool_run_id,omitempty" jsonschema:"Also rank the channels of this discover run ('latest' for the newest)"`
	Refresh    bool     `json:"refresh,omitempty" jsonschema:"Bypass the result cache"`
}

// SimilarOutput is one similarity run.
type SimilarOutput struct {
	RunID string `json:"run_id,omitempty"`
	similar.Result
}

// SimilarHistoryInput selects a page of similar runs or one run by id.
type SimilarHistoryInput struct {
	RunID    string `json:"run_id,omitempty" jsonschema:"Return this run with its items; 'latest' for the newest run"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// SimilarHistoryOutput is a run page, or a single run when run_id was given.
type SimilarHistoryOutput struct {
	Runs []store.SimilarRun `json:"runs,omitempty"`
	Page *store.Page        `json:"page,omitempty"`
	Run  *store.SimilarRun  `json:"run,omitempty"`
}

func registerSimilarTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_similar",
		Description: "Find channels similar to a seed channel by overlap of frequent title terms. Resolves the seed, searches channels with its top terms, merges optional candidates, and ranks by Jaccard similarity. Stores the run for weekly planning.",
	}, d.similar)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_similar_history",
		Description: "List stored similar-channel runs newest first, or return one run with its ranked items (run_id, or 'latest').",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.similarHistory)
}

func (d *Deps) similar(ctx context.Context, _ *mcp.CallToolRequest, input SimilarInput) (*mcp.CallToolResult, *SimilarOutput, error) {
	seed := strings.TrimSpace(input.Seed)
	if seed == "" {
		return nil, nil, fmt.Errorf("seed is required")
	}
	pool, err := d.similarPool(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	poolIDs := make([]string, len(pool))
	for i, c := range pool {
		poolIDs[i] = c.ChannelID
	}
	cacheKey := engine.CacheKey("youtube_similar", seed, strings.Join(poolIDs, ","))
	if input.Refresh {
		cacheKey = ""
	}

	out, err := toolutil.Cached(ctx, cacheKey, func(ctx context.Context) (SimilarOutput, error) {
		var res *similar.Result
		err := engine.TrackOperation(ctx, "youtube_similar:"+seed, func(ctx context.Context) error {
			var err error
			res, err = similar.FindSimilar(ctx, d.YouTube, seed, pool)
			return err
		})
		if err != nil {
			return SimilarOutput{}, err
		}
		out := SimilarOutput{Result: *res}
		if d.Store != nil {
			run, err := d.Store.SaveSimilarRun(ctx, res)
			if err != nil {
				slog.Warn("youtube_similar: save run failed", slog.Any("error", err))
			} else {
				out.RunID = run.ID
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, &out, nil
}

// similarPool collects the caller's candidate ids and, when asked, the
// channels of a stored discover run.
func (d *Deps) similarPool(ctx context.Context, input SimilarInput) ([]similar.Channel, error) {
	var pool []similar.Channel
	for _, id := range input.Candidates {
		if id = strings.TrimSpace(id); id != "" {
			pool = append(pool, similar.Channel{ChannelID: id, ChannelURL: engine.ChannelURL(id)})
		}
	}
	if input.PoolRunID == "" {
		return pool, nil
	}
	run, err := d.Store.DiscoverRun(ctx, latestID(input.PoolRunID))
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("youtube_similar: pool run not found", slog.String("run_id", input.PoolRunID))
		return pool, nil
	}
	if err != nil {
		return nil, err
	}
	for _, c := range run.Candidates {
		pool = append(pool, similar.Channel{ChannelID: c.ChannelID, ChannelTitle: c.ChannelTitle, ChannelURL: c.ChannelURL})
	}
	return pool, nil
}

func (d *Deps) similarHistory(ctx context.Context, _ *mcp.CallToolRequest, input SimilarHistoryInput) (*mcp.CallToolResult, *SimilarHistoryOutput, error) {
	if input.RunID != "" {
		run, err := d.Store.SimilarRun(ctx, latestID(input.RunID))
		if err != nil {
			return nil, nil, err
		}
		return nil, &SimilarHistoryOutput{Run: run}, nil
	}
	runs, page, err := d.Store.ListSimilarRuns(ctx, store.NewPage(input.Page, input.PageSize))
	if err != nil {
		return nil, nil, err
	}
	return nil, &SimilarHistoryOutput{Runs: runs, Page: &page}, nil
}

package studioserver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/anatolykoptev/go_studio/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ChannelMarkInput sets or updates a channel bookmark. Omitted fields keep their stored value.
type ChannelMarkInput struct {
	ChannelID    string  `json:"channel_id" jsonschema:"Channel id (UC...)"`
	ChannelTitle *string `json:"channel_title,omitempty" jsonschema:"Display title"`
	Marked       *bool   `json:"marked,omitempty" jsonschema:"Bookmark flag (default true for new marks)"`
	Priority     *bool   `json:"priority,omitempty" jsonschema:"Priority flag (default false for new marks)"`
	Note         *string `json:"note,omitempty" jsonschema:"Free-form note"`
}

// ChannelMarkListInput filters the bookmark list.
type ChannelMarkListInput struct {
	All   bool `json:"all,omitempty" jsonschema:"Include unmarked rows"`
	Limit int  `json:"limit,omitempty" jsonschema:"Max rows (default 500)"`
}

// ChannelMarkListOutput is the bookmark list.
type ChannelMarkListOutput struct {
	Marks []store.ChannelMark `json:"marks"`
}

// ChannelMarkDeleteInput names the bookmark to remove.
type ChannelMarkDeleteInput struct {
	ChannelID string `json:"channel_id" jsonschema:"Channel id (UC...)"`
}

// ChannelMarkDeleteOutput confirms a removal.
type ChannelMarkDeleteOutput struct {
	Deleted string `json:"deleted"`
}

// VideoInfoInput names one video by id or URL.
type VideoInfoInput struct {
	Video string `json:"video" jsonschema:"Video id or URL (watch?v=, youtu.be/, /embed/, /shorts/)"`
}

// VideoInfoOutput is the metadata of one video.
type VideoInfoOutput struct {
	discovery.VideoRecord
	Duration   string `json:"duration"`
	URL        string `json:"url"`
	ChannelURL string `json:"channel_url"`
}

func registerChannelTools(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_mark_set",
		Description: "Bookmark a channel or update its bookmark. New marks default to marked=true, priority=false; omitted fields keep their stored values.",
	}, d.channelMarkSet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_mark_list",
		Description: "List bookmarked channels, priority first then most recently updated. Set all=true to include unmarked rows.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.channelMarkList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "channel_mark_delete",
		Description: "Remove a channel bookmark.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: ptr(true)},
	}, d.channelMarkDelete)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_video_info",
		Description: "Fetch title, channel, views, duration and publish time of one video by id or URL. Costs 1 quota unit.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.videoInfo)
}

func (d *Deps) channelMarkSet(ctx context.Context, _ *mcp.CallToolRequest, in ChannelMarkInput) (*mcp.CallToolResult, *store.ChannelMark, error) {
	m, err := d.Store.SaveChannelMark(ctx, store.MarkUpdate{
		ChannelID:    in.ChannelID,
		ChannelTitle: in.ChannelTitle,
		Marked:       in.Marked,
		Priority:     in.Priority,
		Note:         in.Note,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, m, nil
}

func (d *Deps) channelMarkList(ctx context.Context, _ *mcp.CallToolRequest, in ChannelMarkListInput) (*mcp.CallToolResult, *ChannelMarkListOutput, error) {
	marks, err := d.Store.ChannelMarks(ctx, !in.All, in.Limit)
	if err != nil {
		return nil, nil, err
	}
	if marks == nil {
		marks = []store.ChannelMark{}
	}
	return nil, &ChannelMarkListOutput{Marks: marks}, nil
}

func (d *Deps) channelMarkDelete(ctx context.Context, _ *mcp.CallToolRequest, in ChannelMarkDeleteInput) (*mcp.CallToolResult, *ChannelMarkDeleteOutput, error) {
	id := strings.TrimSpace(in.ChannelID)
	if id == "" {
		return nil, nil, errors.New("channel_id is required")
	}
	if err := d.Store.DeleteChannelMark(ctx, id); err != nil {
		return nil, nil, err
	}
	return nil, &ChannelMarkDeleteOutput{Deleted: id}, nil
}

func (d *Deps) videoInfo(ctx context.Context, _ *mcp.CallToolRequest, in VideoInfoInput) (*mcp.CallToolResult, *VideoInfoOutput, error) {
	id := extractVideoID(in.Video)
	if id == "" {
		return nil, nil, fmt.Errorf("cannot find a video id in %q", in.Video)
	}
	rec, err := toolutil.Cached(ctx, engine.CacheKey("youtube_video_info", id), func(ctx context.Context) (discovery.VideoRecord, error) {
		recs, err := d.YouTube.VideoDetails(ctx, []string{id})
		if err != nil {
			return discovery.VideoRecord{}, err
		}
		for _, r := range recs {
			if r.VideoID == id {
				return r, nil
			}
		}
		return discovery.VideoRecord{}, fmt.Errorf("video %q: %w", id, store.ErrNotFound)
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, &VideoInfoOutput{
		VideoRecord: rec,
		Duration:    formatDuration(rec.DurationSec),
		URL:         "https://www.youtube.com/watch?v=" + rec.VideoID,
		ChannelURL:  engine.ChannelURL(rec.ChannelID),
	}, nil
}

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// extractVideoID accepts a bare 11-character id or a watch, short, embed or youtu.be URL.
func extractVideoID(s string) string {
	s = strings.TrimSpace(s)
	if videoIDRE.MatchString(s) {
		return s
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}
	if !videoIDRE.MatchString(id) {
		return ""
	}
	return id
}

// formatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func formatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, sec%3600/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

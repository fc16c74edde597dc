package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
)

const recentTitleCount = 12

var channelIDRE = regexp.MustCompile(`^UC[\w-]{20,}$`)

// ErrChannelNotFound is returned when a seed cannot be resolved to a channel id.
var ErrChannelNotFound = errors.New("youtube: unable to resolve channel id (use UC... or @handle)")

// ResolveChannelID accepts a raw UC… id, a channel URL, an @handle or a legacy username.
func (c *YouTubeClient) ResolveChannelID(ctx context.Context, input string) (string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", errors.New("channel input is required")
	}
	if channelIDRE.MatchString(raw) {
		return raw, nil
	}

	handle := raw
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parse channel url: %w", err)
		}
		parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
		switch {
		case len(parts) >= 2 && parts[0] == "channel":
			return parts[1], nil
		case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
			handle = parts[0]
		default:
			handle = strings.Join(parts, " ")
		}
	}

	if strings.HasPrefix(handle, "@") {
		id, err := c.lookupChannel(ctx, "forHandle", strings.TrimPrefix(handle, "@"))
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}

	id, err := c.lookupChannel(ctx, "forUsername", strings.TrimPrefix(handle, "@"))
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrChannelNotFound
	}
	return id, nil
}

func (c *YouTubeClient) lookupChannel(ctx context.Context, field, value string) (string, error) {
	var resp ytChannelsResp
	err := c.get(ctx, "/channels", map[string][]string{
		"part":       {"id"},
		field:        {value},
		"maxResults": {"1"},
	}, costList, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", nil
	}
	return resp.Items[0].ID, nil
}

// RecentTitles returns the titles of the channel's 12 latest uploads.
// Results are cached to save quota across similarity runs.
func (c *YouTubeClient) RecentTitles(ctx context.Context, channelID string) ([]string, error) {
	key := engine.CacheKey("yt_titles", channelID)
	if titles, ok := engine.CacheLoadJSON[[]string](ctx, key); ok {
		return titles, nil
	}

	var ch ytChannelsResp
	err := c.get(ctx, "/channels", map[string][]string{
		"part":       {"contentDetails"},
		"id":         {channelID},
		"maxResults": {"1"},
	}, costList, &ch)
	if err != nil {
		return nil, err
	}
	if len(ch.Items) == 0 || ch.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return []string{}, nil
	}

	var pl struct {
		Items []struct {
			ContentDetails struct {
				VideoID string `json:"videoId"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	err = c.get(ctx, "/playlistItems", map[string][]string{
		"part":       {"contentDetails"},
		"playlistId": {ch.Items[0].ContentDetails.RelatedPlaylists.Uploads},
		"maxResults": {strconv.Itoa(recentTitleCount)},
	}, costList, &pl)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pl.Items))
	for _, it := range pl.Items {
		if it.ContentDetails.VideoID != "" {
			ids = append(ids, it.ContentDetails.VideoID)
		}
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	var vids ytVideosResp
	err = c.get(ctx, "/videos", map[string][]string{
		"part": {"snippet"},
		"id":   {strings.Join(ids, ",")},
	}, costList, &vids)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(vids.Items))
	for _, v := range vids.Items {
		if v.Snippet.Title != "" {
			titles = append(titles, v.Snippet.Title)
		}
	}
	engine.CacheStoreJSON(ctx, key, titles)
	return titles, nil
}

// SearchChannels runs search.list for channels ordered by relevance.
func (c *YouTubeClient) SearchChannels(ctx context.Context, query string, maxResults int) ([]similar.Channel, error) {
	var resp ytSearchResp
	err := c.get(ctx, "/search", map[string][]string{
		"part":       {"snippet"},
		"type":       {"channel"},
		"q":          {query},
		"maxResults": {strconv.Itoa(min(max(maxResults, 1), ytPageSize))},
		"order":      {"relevance"},
	}, costSearch, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]similar.Channel, 0, len(resp.Items))
	for _, it := range resp.Items {
		id := it.Snippet.ChannelID
		if id == "" {
			id = it.ID.ChannelID
		}
		if id == "" {
			continue
		}
		out = append(out, similar.Channel{
			ChannelID:    id,
			ChannelTitle: it.Snippet.ChannelTitle,
			ChannelURL:   engine.ChannelURL(id),
		})
	}
	return out, nil
}

package sources

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
)

// --- Data API v3 response types ---

type ytSearchResp struct {
	Items []ytSearchItem `json:"items"`
}

type ytSearchItem struct {
	ID struct {
		VideoID   string `json:"videoId"`
		ChannelID string `json:"channelId"`
	} `json:"id"`
	Snippet ytSnippet `json:"snippet"`
}

type ytSnippet struct {
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PublishedAt  string `json:"publishedAt"`
}

type ytVideosResp struct {
	Items []ytVideoItem `json:"items"`
}

type ytVideoItem struct {
	ID         string    `json:"id"`
	Snippet    ytSnippet `json:"snippet"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

type ytChannelsResp struct {
	Items []ytChannelItem `json:"items"`
}

type ytChannelItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount       string `json:"subscriberCount"`
		HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
	} `json:"statistics"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}

// SearchVideoIDs runs search.list for videos ordered by view count in the window.
func (c *YouTubeClient) SearchVideoIDs(ctx context.Context, p discovery.SearchParams) ([]string, error) {
	params := map[string][]string{
		"part":              {"snippet"},
		"type":              {"video"},
		"order":             {"viewCount"},
		"q":                 {p.Query},
		"maxResults":        {strconv.Itoa(min(max(p.MaxResults, 1), ytPageSize))},
		"regionCode":        {p.Region},
		"relevanceLanguage": {p.Language},
	}
	if !p.PublishedAfter.IsZero() {
		params["publishedAfter"] = []string{p.PublishedAfter.UTC().Format(time.RFC3339)}
	}
	var resp ytSearchResp
	if err := c.get(ctx, "/search", params, costSearch, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	return ids, nil
}

// VideoDetails fetches snippet, statistics and duration for ids in batches of 50.
func (c *YouTubeClient) VideoDetails(ctx context.Context, ids []string) ([]discovery.VideoRecord, error) {
	var out []discovery.VideoRecord
	for _, batch := range chunks(ids, ytPageSize) {
		var resp ytVideosResp
		err := c.get(ctx, "/videos", map[string][]string{
			"part":       {"snippet,statistics,contentDetails"},
			"id":         {strings.Join(batch, ",")},
			"maxResults": {strconv.Itoa(ytPageSize)},
		}, costList, &resp)
		if err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			out = append(out, toVideoRecord(it))
		}
	}
	return out, nil
}

func toVideoRecord(it ytVideoItem) discovery.VideoRecord {
	views, _ := strconv.ParseInt(it.Statistics.ViewCount, 10, 64)
	published, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
	return discovery.VideoRecord{
		VideoID:      it.ID,
		ChannelID:    it.Snippet.ChannelID,
		ChannelTitle: it.Snippet.ChannelTitle,
		Title:        it.Snippet.Title,
		ViewCount:    max(views, 0),
		DurationSec:  discovery.ParseISODurationSeconds(it.ContentDetails.Duration),
		PublishedAt:  published,
	}
}

// ChannelStats fetches subscriber counts and creation dates for ids in batches of 50.
// Channels missing from the response are absent from the map.
func (c *YouTubeClient) ChannelStats(ctx context.Context, ids []string) (map[string]discovery.ChannelStats, error) {
	out := make(map[string]discovery.ChannelStats, len(ids))
	for _, batch := range chunks(ids, ytPageSize) {
		var resp ytChannelsResp
		err := c.get(ctx, "/channels", map[string][]string{
			"part":       {"statistics,snippet"},
			"id":         {strings.Join(batch, ",")},
			"maxResults": {strconv.Itoa(ytPageSize)},
		}, costList, &resp)
		if err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			subs, _ := strconv.ParseInt(it.Statistics.SubscriberCount, 10, 64)
			published, _ := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
			out[it.ID] = discovery.ChannelStats{
				SubscriberCount: subs,
				HiddenSubs:      it.Statistics.HiddenSubscriberCount,
				PublishedAt:     published,
			}
		}
	}
	return out, nil
}

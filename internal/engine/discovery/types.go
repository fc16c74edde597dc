// Package discovery ranks fast-growing channels from a window of recent videos.
//
// The pipeline is split into pure steps so each can be tested on its own:
// Aggregate groups videos by channel, BuildCandidates scores the groups, and
// FilterAndRank applies the optional subscriber/age/ratio bounds and truncates.
// Discover wires them to a VideoSource.
package discovery

import "time"

// MaxRanked caps the number of channels returned by one discovery run.
const MaxRanked = 20

// maxSampleTitles caps the titles kept per channel.
const maxSampleTitles = 3

// VideoRecord is one video from the search + details API calls.
type VideoRecord struct {
	VideoID      string    `json:"video_id"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	Title        string    `json:"title"`
	ViewCount    int64     `json:"view_count"`
	DurationSec  int       `json:"duration_sec"`
	PublishedAt  time.Time `json:"published_at"`
}

// WeightVector holds the linear-combination coefficients of Score.
// Values need not sum to 1.
type WeightVector struct {
	ViewSum    float64 `json:"view_sum"`
	MedianView float64 `json:"median_view"`
	Upload     float64 `json:"upload"`
}

// DefaultWeights is used when no niche preset or caller weights are given.
var DefaultWeights = WeightVector{ViewSum: 0.45, MedianView: 0.30, Upload: 0.25}

// IsZero reports whether no weight was set.
func (w WeightVector) IsZero() bool {
	return w.ViewSum == 0 && w.MedianView == 0 && w.Upload == 0
}

// OrDefault returns w, or DefaultWeights when w is zero.
func (w WeightVector) OrDefault() WeightVector {
	if w.IsZero() {
		return DefaultWeights
	}
	return w
}

// ChannelCandidate is a scored channel within one discovery run.
// Optional fields are nil when the channel statistics are unknown.
type ChannelCandidate struct {
	ChannelID       string   `json:"channel_id"`
	ChannelTitle    string   `json:"channel_title"`
	ChannelURL      string   `json:"channel_url"`
	VideoCount7d    int      `json:"video_count_7d"`
	ViewsSum7d      int64    `json:"views_sum_7d"`
	ViewsMedian7d   float64  `json:"views_median_7d"`
	Score           float64  `json:"score"`
	SampleTitles    []string `json:"sample_titles"`
	SubscriberCount *int64   `json:"subscriber_count,omitempty"`
	ChannelAgeDays  *int     `json:"channel_age_days,omitempty"`
	ViewSubRatio    *float64 `json:"view_sub_ratio,omitempty"`
}

// ChannelStats is the per-channel statistics used for enrichment.
type ChannelStats struct {
	SubscriberCount int64
	HiddenSubs      bool
	PublishedAt     time.Time
}

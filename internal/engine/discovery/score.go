package discovery

import (
	"math"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

// uploadCap bounds the upload-frequency term of Score.
const uploadCap = 7

// Score is the weighted log-scale popularity score of a channel, rounded to 2 decimals.
func Score(viewsSum, viewsMedian float64, videoCount int, w WeightVector) float64 {
	s := w.ViewSum*math.Log(viewsSum+1) +
		w.MedianView*math.Log(viewsMedian+1) +
		w.Upload*float64(min(videoCount, uploadCap))
	return engine.Round2(s * 10)
}

// BuildCandidates scores each aggregate. A zero weight vector means DefaultWeights.
func BuildCandidates(aggs []ChannelAggregate, w WeightVector) []ChannelCandidate {
	w = w.OrDefault()
	out := make([]ChannelCandidate, 0, len(aggs))
	for _, a := range aggs {
		sum := a.ViewsSum()
		med := a.ViewsMedian()
		titles := make([]string, len(a.SampleTitles))
		copy(titles, a.SampleTitles)
		out = append(out, ChannelCandidate{
			ChannelID:     a.ChannelID,
			ChannelTitle:  a.ChannelTitle,
			ChannelURL:    engine.ChannelURL(a.ChannelID),
			VideoCount7d:  a.Count,
			ViewsSum7d:    sum,
			ViewsMedian7d: med,
			Score:         Score(float64(sum), med, a.Count, w),
			SampleTitles:  titles,
		})
	}
	return out
}

package discovery

// ChannelAggregate accumulates the videos of one channel within a run.
type ChannelAggregate struct {
	ChannelID    string
	ChannelTitle string
	Views        []int64
	Count        int
	SampleTitles []string
}

// Aggregate groups videos by channel in first-seen order.
// Records without a channel id are skipped.
func Aggregate(videos []VideoRecord) []ChannelAggregate {
	index := make(map[string]int, len(videos))
	var out []ChannelAggregate

	for _, v := range videos {
		if v.ChannelID == "" {
			continue
		}
		i, ok := index[v.ChannelID]
		if !ok {
			title := v.ChannelTitle
			if title == "" {
				title = "Unknown"
			}
			out = append(out, ChannelAggregate{ChannelID: v.ChannelID, ChannelTitle: title})
			i = len(out) - 1
			index[v.ChannelID] = i
		}
		row := &out[i]
		row.Views = append(row.Views, v.ViewCount)
		row.Count++
		if len(row.SampleTitles) < maxSampleTitles {
			row.SampleTitles = append(row.SampleTitles, v.Title)
		}
	}
	return out
}

// ViewsSum returns the total views of the aggregate.
func (a ChannelAggregate) ViewsSum() int64 {
	var sum int64
	for _, v := range a.Views {
		sum += v
	}
	return sum
}

// ViewsMedian returns the median per-video view count.
func (a ChannelAggregate) ViewsMedian() float64 {
	vals := make([]float64, len(a.Views))
	for i, v := range a.Views {
		vals[i] = float64(v)
	}
	return Median(vals)
}

// FilterByDuration keeps videos at least minSec long.
func FilterByDuration(videos []VideoRecord, minSec int) []VideoRecord {
	out := make([]VideoRecord, 0, len(videos))
	for _, v := range videos {
		if v.DurationSec >= minSec {
			out = append(out, v)
		}
	}
	return out
}

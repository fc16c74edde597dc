package discovery

import "sort"

// Bounds are the optional discovery filters. A nil field is unset and filters nothing.
// When a bound is set, a candidate whose corresponding value is unknown fails it.
type Bounds struct {
	MinSubscribers    *int64   `json:"min_subscribers,omitempty"`
	MaxSubscribers    *int64   `json:"max_subscribers,omitempty"`
	MaxChannelAgeDays *int     `json:"max_channel_age_days,omitempty"`
	MinViewSubRatio   *float64 `json:"min_view_sub_ratio,omitempty"`
	MaxViewSubRatio   *float64 `json:"max_view_sub_ratio,omitempty"`
}

// IsZero reports whether no bound is set.
func (b Bounds) IsZero() bool {
	return b.MinSubscribers == nil && b.MaxSubscribers == nil && b.MaxChannelAgeDays == nil &&
		b.MinViewSubRatio == nil && b.MaxViewSubRatio == nil
}

// NeedsChannelStats reports whether any bound reads subscriber or age data.
func (b Bounds) NeedsChannelStats() bool {
	return !b.IsZero()
}

type predicate func(c ChannelCandidate) bool

func (b Bounds) predicates() []predicate {
	var ps []predicate
	if b.MinSubscribers != nil {
		lo := *b.MinSubscribers
		ps = append(ps, func(c ChannelCandidate) bool {
			return c.SubscriberCount != nil && *c.SubscriberCount >= lo
		})
	}
	if b.MaxSubscribers != nil {
		hi := *b.MaxSubscribers
		ps = append(ps, func(c ChannelCandidate) bool {
			return c.SubscriberCount != nil && *c.SubscriberCount <= hi
		})
	}
	if b.MaxChannelAgeDays != nil {
		hi := *b.MaxChannelAgeDays
		ps = append(ps, func(c ChannelCandidate) bool {
			return c.ChannelAgeDays != nil && *c.ChannelAgeDays <= hi
		})
	}
	if b.MinViewSubRatio != nil {
		lo := *b.MinViewSubRatio
		ps = append(ps, func(c ChannelCandidate) bool {
			return c.ViewSubRatio != nil && *c.ViewSubRatio >= lo
		})
	}
	if b.MaxViewSubRatio != nil {
		hi := *b.MaxViewSubRatio
		ps = append(ps, func(c ChannelCandidate) bool {
			return c.ViewSubRatio != nil && *c.ViewSubRatio <= hi
		})
	}
	return ps
}

// FilterAndRank applies the bounds in order, sorts by score descending (stable)
// and keeps the top MaxRanked. The input slice is not modified.
func FilterAndRank(candidates []ChannelCandidate, b Bounds) []ChannelCandidate {
	ps := b.predicates()
	out := make([]ChannelCandidate, 0, len(candidates))
next:
	for _, c := range candidates {
		for _, p := range ps {
			if !p(c) {
				continue next
			}
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxRanked {
		out = out[:MaxRanked]
	}
	return out
}

package script

import (
	"encoding/json"
	"fmt"
)

// validScript returns a script that satisfies every contract rule for n items.
func validScript(n int) DetailedScript {
	s := DetailedScript{
		Topic:         "食物保存",
		Title:         fmt.Sprintf("%d种食物保存方法实测", n),
		ThumbnailCopy: "实测结果公开",
		Opening15s:    []string{"你是否也遇到过剩菜变质？", "其实只要3个步骤就能避免浪费。", "今天实测给你看。"},
		CTA:           "评论区告诉我你最常用哪一种。",
		Tags:          []string{"保存", "实测"},
		Differentiation: []string{
			"每种方法都做7天对比",
			"给出失败样本",
			"附带成本计算",
		},
		Provider: ProviderAI,
	}
	for i := 1; i <= n; i++ {
		s.ContentItems = append(s.ContentItems, fmt.Sprintf("第%d种保存方法", i))
	}
	segs := max(n, MinSegments)
	for i := 1; i <= segs; i++ {
		label := "总结"
		if i <= n {
			label = fmt.Sprintf("要点%d", i)
		}
		s.Timeline = append(s.Timeline, Segment{
			Time:      fmt.Sprintf("%02d:%02d", (i-1)/2, ((i-1)%2)*30),
			Segment:   label,
			Voiceover: fmt.Sprintf("第%d步：把材料按比例称好，然后用小火慢慢加热十分钟，期间每隔两分钟搅拌一次，确保受热均匀不糊底，最后关火静置五分钟再装盒保存。", i),
			Visuals:   "近景镜头拍摄锅内变化，特写手部搅拌动作，固定机位俯拍整个台面，室内自然光照明，背景干净。",
		})
	}
	return s
}

// wireJSON renders s in the camelCase shape the LLM is asked to return.
func wireJSON(s DetailedScript) string {
	type seg struct {
		Time      string `json:"time"`
		Segment   string `json:"segment"`
		Voiceover string `json:"voiceover"`
		Visuals   string `json:"visuals"`
	}
	segs := make([]seg, len(s.Timeline))
	for i, t := range s.Timeline {
		segs[i] = seg(t)
	}
	b, _ := json.Marshal(map[string]any{
		"topic":           s.Topic,
		"title":           s.Title,
		"thumbnailCopy":   s.ThumbnailCopy,
		"opening15s":      s.Opening15s,
		"timeline":        segs,
		"contentItems":    s.ContentItems,
		"cta":             s.CTA,
		"publishCopy":     s.PublishCopy,
		"tags":            s.Tags,
		"differentiation": s.Differentiation,
	})
	return string(b)
}

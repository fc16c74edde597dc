package script

import (
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

const (
	defaultTemplateItems = 8
	templateSegmentSecs  = 45
)

// TemplateInput parameterizes the local fallback script.
type TemplateInput struct {
	Topic         string
	RequiredCount int
	SampledTitles []string
}

// Template builds a deterministic shootable script without the LLM.
// It carries max(RequiredCount, 8) segments, labels segment i as 要点i for every
// promised item, and keeps voiceover and visuals above the contract minimums.
func Template(in TemplateInput) DetailedScript {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" && len(in.SampledTitles) > 0 {
		topic = engine.TruncateRunes(in.SampledTitles[0], 24, "")
	}
	if topic == "" {
		topic = "参考频道同类主题"
	}

	n := in.RequiredCount
	if n <= 0 {
		n = defaultTemplateItems
	}
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("%s实操要点%d", topic, i+1)
	}

	segments := max(n, MinSegments)
	timeline := make([]Segment, segments)
	for i := range timeline {
		start := i * templateSegmentSecs
		label := fmt.Sprintf("第%d段：总结与复盘", i+1)
		if i < n {
			label = fmt.Sprintf("要点%d：%s", i+1, items[i])
		}
		timeline[i] = Segment{
			Time:    fmt.Sprintf("%02d:%02d-%02d:%02d", start/60, start%60, (start+templateSegmentSecs)/60, (start+templateSegmentSecs)%60),
			Segment: label,
			Voiceover: fmt.Sprintf("现在来看第%d部分：%s。先说清楚这一步要达到的结果，再演示准备好的材料和工具，"+
				"然后按顺序完成每个动作，最后对照结果检查有没有遗漏，出错时马上调整。", i+1, label),
			Visuals: "中景镜头展示整体操作过程，切换到特写镜头强调关键步骤和细节，" +
				"推镜头引导观众注意力，转场使用快速切换，背景保持简洁突出主体。",
		}
	}

	return DetailedScript{
		Topic:         topic,
		Title:         fmt.Sprintf("%s：%d个关键要点实测", topic, n),
		ThumbnailCopy: fmt.Sprintf("%d个要点 实测公开", n),
		Opening15s: []string{
			fmt.Sprintf("今天我们来聊%s。", topic),
			fmt.Sprintf("很多人在%s上踩过坑，其实掌握这%d个要点就够了。", topic, n),
			"接下来我一步步演示，你可以边看边照着做。",
		},
		Timeline:     timeline,
		ContentItems: items,
		CTA:          "如果你要我继续做下一期，评论区打“继续”。",
		PublishCopy:  fmt.Sprintf("%s完整实测 | %d个实用要点 | 新手可直接照做", topic, n),
		Tags:         []string{topic, "实测", "教程", "复盘"},
		Differentiation: []string{
			"把泛化建议改成可执行步骤",
			"增加失败样本和纠错过程",
			"加入量化对比结果",
		},
		Provider: ProviderTemplate,
	}
}

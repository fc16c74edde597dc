package script

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// keywordSet is an Aho-Corasick automaton over a fixed dictionary.
// The matcher keeps per-call state, so matches are serialized.
type keywordSet struct {
	mu      sync.Mutex
	words   []string
	matcher *ahocorasick.Matcher
}

func newKeywordSet(words ...string) *keywordSet {
	return &keywordSet{words: words, matcher: ahocorasick.NewStringMatcher(words)}
}

// distinct returns how many dictionary words occur in text at least once.
func (k *keywordSet) distinct(text string) int {
	return len(k.hits(text))
}

// contains reports whether any dictionary word occurs in text.
func (k *keywordSet) contains(text string) bool {
	return k.distinct(text) > 0
}

// hits returns the dictionary words found in text, in dictionary order.
func (k *keywordSet) hits(text string) []string {
	if text == "" || len(k.words) == 0 {
		return nil
	}
	k.mu.Lock()
	idx := k.matcher.Match([]byte(text))
	k.mu.Unlock()

	found := make([]bool, len(k.words))
	for _, i := range idx {
		if i >= 0 && i < len(k.words) {
			found[i] = true
		}
	}
	var out []string
	for i, ok := range found {
		if ok {
			out = append(out, k.words[i])
		}
	}
	return out
}

// occurrences counts every non-overlapping occurrence of each word in text.
func occurrences(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

var (
	shotWords = []string{"近景", "远景", "中景", "特写", "俯拍", "仰拍", "跟拍", "推镜", "拉镜", "转场", "机位", "镜头", "切换"}
	shotSet   = newKeywordSet(shotWords...)
	sceneSet  = newKeywordSet("室内", "室外", "桌面", "手持", "固定", "移动", "背景", "前景")

	vagueWords = []string{
		"非常", "很", "特别", "十分", "极其", "相当",
		"可能", "也许", "大概", "基本上", "一般来说",
		"等等", "之类", "什么的",
		"比较", "还是", "应该", "可以说",
	}
	exampleSet    = newKeywordSet("例如", "比如", "举例", "案例", "实验", "研究", "数据显示", "事实上")
	vagueVerbs    = []string{"做", "搞", "弄", "处理", "进行", "实施", "开展"}
	concreteVerbs = []string{"切", "拌", "煮", "炒", "烤", "测量", "调整", "安装", "固定", "连接"}

	commonTitleSet = newKeywordSet("如何", "怎么", "方法", "技巧", "教程", "攻略")
	uniqueAngleSet = newKeywordSet("误区", "真相", "秘密", "内幕", "揭秘", "对比", "实验", "测试")
	emotionSet     = newKeywordSet(
		"惊讶", "震惊", "意外", "没想到", "居然", "竟然",
		"担心", "焦虑", "害怕", "恐惧", "紧张",
		"开心", "高兴", "兴奋", "激动", "满意",
		"失望", "遗憾", "可惜", "后悔",
		"愤怒", "生气", "不满",
	)
	painPointSet = newKeywordSet(
		"浪费", "损失", "错过", "后悔", "失败",
		"困扰", "问题", "难题", "挑战", "障碍",
		"省钱", "省时", "省力", "避免", "防止",
	)
	resonanceSet = newKeywordSet("你是否", "有没有", "是不是", "想不想", "会不会")
)

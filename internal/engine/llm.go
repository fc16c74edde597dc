package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMDisabled is returned when no LLM client is configured.
var ErrLLMDisabled = errors.New("llm client not configured (set LLM_API_KEY)")

// currentDate returns today's date in ISO 8601 format (UTC).
func currentDate() string {
	return time.Now().UTC().Format("2006-01-02")
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends a prompt using the configured temperature and max_tokens.
func CallLLM(ctx context.Context, system, prompt string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, system, prompt)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// ExtractKeywords asks the LLM for a flat keyword list. Used by the planners to
// refine locally extracted keyword pools; callers keep their own pool on error.
func ExtractKeywords(ctx context.Context, instruction string, payload any, n int) ([]string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: marshal: %w", err)
	}
	if cfg.LLMClient == nil {
		return nil, ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	raw, err := cfg.LLMClient.Complete(ctx, instruction, fmt.Sprintf(keywordPrompt, currentDate(), n, string(body)),
		llm.WithChatTemperature(0.3),
		llm.WithChatMaxTokens(400),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return nil, err
	}
	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("extract keywords: parse failed on %q: %w", TruncateRunes(raw, 120, "..."), err)
	}
	seen := make(map[string]bool, len(out.Keywords))
	keywords := make([]string, 0, len(out.Keywords))
	for _, k := range out.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
	}
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords, nil
}

const keywordPrompt = `Today is %s.
Return a JSON object {"keywords": ["..."]} with at most %d short, practical content keywords
for next week's YouTube content tests, based on this data:

%s

Return ONLY the JSON object.`

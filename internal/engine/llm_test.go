package engine

import (
	"context"
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding space", "  \n{\"a\":1}\n  ", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.raw); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLLMDisabledWithoutClient(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { Init(prev) })
	Init(Config{})

	ctx := context.Background()
	if _, err := CallLLM(ctx, "system", "prompt"); !errors.Is(err, ErrLLMDisabled) {
		t.Errorf("CallLLM err = %v, want ErrLLMDisabled", err)
	}
	if _, err := ExtractKeywords(ctx, "instruction", map[string]any{"titles": []string{"a"}}, 5); !errors.Is(err, ErrLLMDisabled) {
		t.Errorf("ExtractKeywords err = %v, want ErrLLMDisabled", err)
	}
}

func TestExtractKeywordsRejectsUnmarshalablePayload(t *testing.T) {
	_, err := ExtractKeywords(context.Background(), "instruction", make(chan int), 5)
	if err == nil || errors.Is(err, ErrLLMDisabled) {
		t.Errorf("ExtractKeywords err = %v, want marshal error", err)
	}
}

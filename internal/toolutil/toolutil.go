// Package toolutil provides shared helper functions for go_studio MCP tools.
package toolutil

import (
	"context"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

var listSplitRE = regexp.MustCompile(`[\n,，]`)

// SplitList splits a comma- or newline-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range listSplitRE.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Cached returns the cached value for key, or runs fn and caches its result on success.
// An empty key bypasses the cache.
func Cached[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if key == "" {
		return fn(ctx)
	}
	if out, ok := engine.CacheLoadJSON[T](ctx, key); ok {
		return out, nil
	}
	out, err := fn(ctx)
	if err != nil {
		return out, err
	}
	engine.CacheStoreJSON(ctx, key, out)
	return out, nil
}

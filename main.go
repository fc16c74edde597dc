// go_studio is a YouTube content-ops MCP server.
//
// Exposes discovery, similar-channel, script, planning and tracking tools
// over the YouTube Data API, an LLM gateway and a Postgres or SQLite store.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/niche"
	"github.com/anatolykoptev/go_studio/internal/engine/planner"
	"github.com/anatolykoptev/go_studio/internal/engine/script"
	"github.com/anatolykoptev/go_studio/internal/engine/sources"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/anatolykoptev/go_studio/internal/engine/tracker"
	"github.com/anatolykoptev/go_studio/internal/studioserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, engine.Cfg.DatabaseURL, engine.Cfg.SQLitePath)
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	keys := sources.NewKeyPool(engine.Cfg.YouTubeAPIKeys, engine.Cfg.YouTubeQuotaPerKey)
	if keys.Len() == 0 {
		slog.Warn("no YouTube API keys configured, YouTube tools will fail")
	}
	go keys.RunDailyReset(ctx)
	yt := sources.NewYouTubeClient(keys, sources.WithRateLimit(engine.Cfg.YouTubeRPS))

	deps := &studioserver.Deps{
		YouTube:   yt,
		Store:     st,
		Niches:    &niche.Registry{Store: st},
		Generator: &script.Generator{Titles: yt},
		Planner:   &planner.Planner{Store: st, Titles: yt},
		Tracker:   &tracker.Tracker{Store: st},
	}

	slog.Info("starting go_studio",
		slog.String("port", mcpPort),
		slog.Int("youtube_keys", keys.Len()),
		slog.Bool("llm", engine.Cfg.LLMClient != nil),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_studio",
		Version: version,
	}, nil)

	studioserver.RegisterTools(server, deps)
	slog.Info("tools registered", slog.Int("count", 23))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_studio",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	keys := env.List("YOUTUBE_API_KEYS", "")
	if len(keys) == 0 {
		if k := env.Str("YOUTUBE_API_KEY", ""); k != "" {
			keys = []string{k}
		}
	}

	c := engine.Config{
		YouTubeAPIKeys:       keys,
		YouTubeQuotaPerKey:   env.Int("YOUTUBE_QUOTA_PER_KEY", 10000),
		YouTubeRPS:           env.Float("YOUTUBE_RPS", 5),
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 8192),
		ScriptMaxAttempts:    env.Int("SCRIPT_MAX_ATTEMPTS", 2),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		SQLitePath:           env.Str("SQLITE_PATH", ""),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	// Without a key the generator and planners fall back to templates and local keywords.
	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

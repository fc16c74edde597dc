package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	YouTubeAPIKeys       []string
	YouTubeQuotaPerKey   int
	YouTubeRPS           float64
	LLMAPIKey            string
	LLMAPIKeyFallbacks   []string
	LLMAPIBase           string
	LLMModel             string
	LLMTemperature       float64
	LLMMaxTokens         int
	ScriptMaxAttempts    int
	DatabaseURL          string // postgres; empty = SQLite at SQLitePath
	SQLitePath           string
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	LLMClient            *llm.Client // nil = LLM features fall back to templates
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, script, planner).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg = c
	Cfg = &cfg
}

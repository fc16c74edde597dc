package studioserver

import (
	"context"

	"github.com/anatolykoptev/go_studio/internal/engine/sources"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// KeysStatusOutput is the quota accounting of the YouTube key pool.
type KeysStatusOutput struct {
	sources.PoolStats
	Warning sources.QuotaWarning `json:"warning"`
}

func registerKeysStatus(server *mcp.Server, d *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_keys_status",
		Description: "Show YouTube Data API key pool health: per-key quota used and remaining, error counts, status (active, limited, exhausted, error) and a warning when quota runs low.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, d.keysStatus)
}

func (d *Deps) keysStatus(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *KeysStatusOutput, error) {
	pool := d.YouTube.Keys()
	return nil, &KeysStatusOutput{PoolStats: pool.Stats(), Warning: pool.QuotaWarning()}, nil
}

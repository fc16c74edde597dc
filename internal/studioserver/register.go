// Package studioserver exposes the content-ops engine as MCP tools.
package studioserver

import (
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/niche"
	"github.com/anatolykoptev/go_studio/internal/engine/planner"
	"github.com/anatolykoptev/go_studio/internal/engine/script"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
	"github.com/anatolykoptev/go_studio/internal/engine/sources"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
	"github.com/anatolykoptev/go_studio/internal/engine/tracker"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// YouTube is the Data API surface used by the tools.
type YouTube interface {
	discovery.VideoSource
	similar.ChannelSource
	Keys() *sources.KeyPool
}

// Deps are the services shared by all tools.
type Deps struct {
	YouTube   YouTube
	Store     *store.Store
	Niches    *niche.Registry
	Generator *script.Generator
	Planner   *planner.Planner
	Tracker   *tracker.Tracker
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// RegisterTools registers every studio tool on the given MCP server.
func RegisterTools(server *mcp.Server, d *Deps) {
	registerDiscoverTools(server, d)
	registerSimilarTools(server, d)
	registerKeysStatus(server, d)
	registerScriptTools(server, d)
	registerPlannerTools(server, d)
	registerTrackerTools(server, d)
	registerChannelTools(server, d)
	registerStatsTool(server, d)
}

// Package mcp exposes the workout store and stats to MCP clients, so an
// assistant can answer questions like "how did pull-ups go this month".
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/setlog/internal/stats"
	"github.com/claude/setlog/internal/storage"
)

// New creates an MCP server with all tools and resources registered.
func New(db *storage.DB, weekPolicy stats.WeekPolicy, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("setlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("setlog workout tracker. Query exercise templates, recorded sessions, weekly volume summaries, and per-exercise progression."),
	)

	h := &handlers{db: db, weekPolicy: weekPolicy, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetLastSession, Handler: h.getLastSession},
		server.ServerTool{Tool: toolGetWeeklySummary, Handler: h.getWeeklySummary},
		server.ServerTool{Tool: toolGetExerciseProgress, Handler: h.getExerciseProgress},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	db         *storage.DB
	weekPolicy stats.WeekPolicy
	log        *slog.Logger
}

var resRecentSessions = mcp.NewResource(
	"setlog://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The 20 most recently started workout sessions"),
	mcp.WithMIMEType("application/json"),
)

package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/setlog/internal/stats"
)

// --- Tool definitions ---

var toolListTemplates = mcp.NewTool("list_templates",
	mcp.WithDescription("List all workout templates: exercise name, set count, target total reps, and rest interval."),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Retrieve recent workout sessions, most recent first. Each session includes its per-set reps, total reps, and whether the target was achieved."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return. Defaults to 20.")),
)

var toolGetLastSession = mcp.NewTool("get_last_session",
	mcp.WithDescription("Get the most recent session for a template, preferring completed sessions. Useful for comparing today's workout against the previous one."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Template id (e.g. tpl_wide)")),
)

var toolGetWeeklySummary = mcp.NewTool("get_weekly_summary",
	mcp.WithDescription("Weekly training volume: session count, total reps, and achieved-target count per calendar week, most recent weeks first."),
	mcp.WithNumber("weeks", mcp.Description("Number of recent weeks to include. Defaults to 4.")),
)

var toolGetExerciseProgress = mcp.NewTool("get_exercise_progress",
	mcp.WithDescription("Per-exercise progression for a template: one point per session with total reps and best single set, ascending by date."),
	mcp.WithString("template_id", mcp.Required(), mcp.Description("Template id to chart")),
)

// --- Tool handlers ---

func (h *handlers) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.db.ListTemplates(ctx)
	if err != nil {
		h.log.Error("mcp list_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(templates)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	sessions, err := h.db.ListSessions(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getLastSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id parameter is required"), nil
	}

	session, err := h.db.LastSessionForTemplate(ctx, templateID, "")
	if err != nil {
		h.log.Error("mcp get_last_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if session == nil {
		return mcp.NewToolResultText("no sessions recorded for template " + templateID), nil
	}

	result, err := mcp.NewToolResultJSON(session)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWeeklySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weeks := req.GetInt("weeks", stats.DefaultWeeks)

	sessions, err := h.db.ListSessions(ctx, 0)
	if err != nil {
		h.log.Error("mcp get_weekly_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	summary := stats.WeeklySummary(sessions, h.weekPolicy, weeks)

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id parameter is required"), nil
	}

	sessions, err := h.db.SessionsForTemplate(ctx, templateID)
	if err != nil {
		h.log.Error("mcp get_exercise_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	series := stats.ExerciseSeries(sessions)

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

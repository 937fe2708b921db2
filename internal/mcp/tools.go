package mcp

import "github.com/mark3labs/mcp-go/mcp"

// retrieveHealthContextTool defines the retrieve_health_context MCP tool.
var retrieveHealthContextTool = mcp.NewTool("retrieve_health_context",
	mcp.WithDescription("Search a person's check-ins and health documents semantically. Returns a dated, most-recent-first context block."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User whose history to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language question or topic"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum results per source (default 5)"),
	),
	mcp.WithBoolean("include_checkins",
		mcp.Description("Search check-ins (default true)"),
	),
	mcp.WithBoolean("include_documents",
		mcp.Description("Search documents (default true)"),
	),
)

// detectHealthPatternsTool defines the detect_health_patterns MCP tool.
var detectHealthPatternsTool = mcp.NewTool("detect_health_patterns",
	mcp.WithDescription("Find recurring symptoms and clusters of similar check-ins in the recent window."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User whose check-ins to analyse"),
	),
)

// logCheckInTool defines the log_checkin MCP tool.
var logCheckInTool = mcp.NewTool("log_checkin",
	mcp.WithDescription("Record a health check-in. Reports a recurring pattern when the new entry matches recent ones."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User the check-in belongs to"),
	),
	mcp.WithString("transcript",
		mcp.Required(),
		mcp.Description("What the person said or wrote"),
	),
	mcp.WithNumber("mood",
		mcp.Description("Mood from 1 to 10"),
	),
	mcp.WithNumber("energy",
		mcp.Description("Energy from 1 to 10"),
	),
	mcp.WithArray("symptoms",
		mcp.Description("Symptom names"),
		mcp.Items(map[string]any{"type": "string"}),
	),
)

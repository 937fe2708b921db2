package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/patterns"
)

// handleRetrieveHealthContext runs a retrieval and returns the combined context.
func (s *Server) handleRetrieveHealthContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	opts := s.defaults
	if limit := request.GetInt("limit", 0); limit > 0 {
		opts.Limit = limit
	}
	opts.IncludeCheckIns = request.GetBool("include_checkins", opts.IncludeCheckIns)
	opts.IncludeDocuments = request.GetBool("include_documents", opts.IncludeDocuments)

	bundle, err := s.retriever.Retrieve(ctx, query, userID, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}
	if len(bundle.Results) == 0 {
		return mcp.NewToolResultText("No relevant history found. Log check-ins or ingest documents first."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d item(s), most recent first:\n\n", len(bundle.Results))
	sb.WriteString(bundle.CombinedContext)
	if len(bundle.Degraded) > 0 {
		fmt.Fprintf(&sb, "\n\nNote: some sources could not be searched: %v", bundle.Degraded)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleDetectHealthPatterns lists detected patterns.
func (s *Server) handleDetectHealthPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}

	found := s.patterns.Detect(ctx, userID)
	if len(found) == 0 {
		return mcp.NewToolResultText("No patterns detected yet. Patterns need several similar check-ins within the recent window."), nil
	}
	return mcp.NewToolResultText(formatPatterns(found)), nil
}

// handleLogCheckIn records a check-in through the ingestion pipeline.
func (s *Server) handleLogCheckIn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	transcript, err := request.RequireString("transcript")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: transcript"), nil
	}

	c := &checkins.CheckIn{
		UserID:     userID,
		Transcript: transcript,
		Mood:       request.GetInt("mood", 0),
		Energy:     request.GetInt("energy", 0),
		Source:     checkins.SourceText,
	}
	for _, name := range request.GetStringSlice("symptoms", nil) {
		c.Symptoms = append(c.Symptoms, checkins.Symptom{Name: name})
	}
	if err := c.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.checkIns.IngestCheckIn(ctx, c)
	if err != nil {
		s.logger.Error("log_checkin", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to store check-in: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Check-in %s recorded.", res.CheckIn.ID)
	if !res.Embedded {
		sb.WriteString(" It is stored but not yet searchable.")
	}
	if res.Pattern != nil {
		fmt.Fprintf(&sb, "\nPossible pattern: %s", res.Pattern.Description)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatPatterns renders patterns for agent consumption.
func formatPatterns(list []patterns.Pattern) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d pattern(s):\n", len(list))
	for i, p := range list {
		fmt.Fprintf(&sb, "\n--- Pattern %d (%s) ---\n", i+1, p.Type)
		sb.WriteString(p.Description)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Confidence: %.0f%%\n", p.Confidence*100)
		fmt.Fprintf(&sb, "Occurrences: %d (%s to %s)\n", p.Occurrences,
			p.FirstSeen.Format("2006-01-02"), p.LastSeen.Format("2006-01-02"))
		if len(p.CommonSymptoms) > 0 {
			fmt.Fprintf(&sb, "Common symptoms: %s\n", strings.Join(p.CommonSymptoms, ", "))
		}
	}
	return sb.String()
}

package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/healthtrace/internal/agent"
	"github.com/ziadkadry99/healthtrace/internal/checkins"
	"github.com/ziadkadry99/healthtrace/internal/ingest"
	"github.com/ziadkadry99/healthtrace/internal/logging"
	"github.com/ziadkadry99/healthtrace/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// CheckInLogger stores a new check-in. ingest.Pipeline satisfies it.
type CheckInLogger interface {
	IngestCheckIn(ctx context.Context, c *checkins.CheckIn) (*ingest.CheckInResult, error)
}

// Server wraps an MCP server that exposes a person's health history to
// agents.
type Server struct {
	retriever agent.ContextRetriever
	patterns  agent.PatternSource
	checkIns  CheckInLogger
	defaults  retrieval.Options
	logger    *slog.Logger
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(r agent.ContextRetriever, p agent.PatternSource, c CheckInLogger, defaults retrieval.Options, logger *slog.Logger) *Server {
	if defaults.Limit == 0 {
		defaults = retrieval.DefaultOptions()
	}
	s := &Server{
		retriever: r,
		patterns:  p,
		checkIns:  c,
		defaults:  defaults,
		logger:    logging.OrDefault(logger).With("component", "mcp"),
	}

	s.mcp = server.NewMCPServer(
		"healthtrace",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(retrieveHealthContextTool, s.handleRetrieveHealthContext)
	s.mcp.AddTool(detectHealthPatternsTool, s.handleDetectHealthPatterns)
	s.mcp.AddTool(logCheckInTool, s.handleLogCheckIn)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

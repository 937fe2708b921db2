package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/healthtrace/internal/mcp"
	"github.com/ziadkadry99/healthtrace/internal/vectordb"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing health context, pattern and check-in tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()
		defer func() {
			if err := a.persist(); err != nil {
				a.logger.Error("persisting index", "error", err)
			}
		}()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "healthtrace MCP server started on stdio (check-ins=%d, chunks=%d)\n",
			a.index.Count(vectordb.KindCheckIn), a.index.Count(vectordb.KindDocumentChunk))

		srv := mcpserver.NewServer(a.retriever, a.detector, a.pipeline, retrievalOptions(a.cfg.Retrieval), a.logger)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

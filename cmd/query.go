package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/healthtrace/internal/retrieval"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search check-ins and documents semantically",
	Long:  `Retrieves the check-ins and document chunks most similar to the query and prints them most recent first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", 0, "maximum results per source (default from config)")
	queryCmd.Flags().Float32("threshold", 0, "minimum similarity (default from config)")
	queryCmd.Flags().Bool("no-checkins", false, "skip check-ins")
	queryCmd.Flags().Bool("no-documents", false, "skip documents")
	queryCmd.Flags().Bool("json", false, "output the full context bundle as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	threshold, _ := cmd.Flags().GetFloat32("threshold")
	noCheckIns, _ := cmd.Flags().GetBool("no-checkins")
	noDocs, _ := cmd.Flags().GetBool("no-documents")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := retrievalOptions(a.cfg.Retrieval)
	if limit > 0 {
		opts.Limit = limit
	}
	if cmd.Flags().Changed("threshold") {
		opts.SimilarityThreshold = threshold
	}
	opts.IncludeCheckIns = !noCheckIns
	opts.IncludeDocuments = !noDocs

	bundle, err := a.retriever.Retrieve(ctx, args[0], userID, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	printBundle(bundle)
	return nil
}

func printBundle(b *retrieval.Bundle) {
	for _, src := range b.Degraded {
		fmt.Fprintf(os.Stderr, "Warning: %s search failed, results are partial\n", src)
	}
	if len(b.Results) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Printf("Found %d results:\n\n", len(b.Results))
	for i, r := range b.Results {
		fmt.Printf("  %d. [%.1f%%] %s %s\n", i+1, r.Similarity*100, r.CreatedAt.Format("2006-01-02"), r.SourceType)
		fmt.Printf("     %s\n\n", truncate(r.Text, 120))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

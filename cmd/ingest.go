package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/healthtrace/internal/documents"
	"github.com/ziadkadry99/healthtrace/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob...>",
	Short: "Ingest health documents (markdown, text, PDF)",
	Long: `Extracts, chunks, embeds and indexes every file matching the given
paths or glob patterns (doublestar syntax, e.g. "records/**/*.pdf").
Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("type", "", "document type: lab_report, prescription, visit_note, imaging, other (default: inferred from file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	typeFlag, _ := cmd.Flags().GetString("type")
	var docType documents.Type
	if typeFlag != "" {
		t, err := documents.ParseType(typeFlag)
		if err != nil {
			return err
		}
		docType = t
	}

	files, err := documents.FindFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No matching files.")
		return nil
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	reporter := progress.NewReporter("Ingesting")
	reporter.Start(len(files))

	var stored, failed int
	for i, path := range files {
		res, err := a.pipeline.IngestFile(ctx, userID, path, docType)
		reporter.Update(i+1, path)
		if err != nil {
			failed++
			a.logger.Error("ingesting file", "path", path, "error", err)
			continue
		}
		stored += res.ChunksStored
		for _, e := range res.Errors {
			a.logger.Warn("chunk skipped", "path", path, "error", e)
		}
	}
	reporter.Finish()

	if err := a.persist(); err != nil {
		return err
	}

	fmt.Printf("Ingested %d file(s), %d chunk(s) stored", len(files)-failed, stored)
	if failed > 0 {
		fmt.Printf(", %d file(s) failed", failed)
	}
	fmt.Println()
	if failed == len(files) {
		return fmt.Errorf("all %d file(s) failed", failed)
	}
	return nil
}

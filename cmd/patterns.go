package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show recurring symptom patterns",
	Long:  `Clusters recent check-ins by similarity and lists the recurring patterns found in the configured window.`,
	Args:  cobra.NoArgs,
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().Bool("json", false, "output patterns as JSON")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	found := a.detector.Detect(context.Background(), userID)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		fmt.Printf("No patterns in the last %d days.\n", a.cfg.Patterns.WindowDays)
		return nil
	}
	for i, p := range found {
		fmt.Printf("%d. [%s] %s\n", i+1, p.Type, p.Description)
		fmt.Printf("   %d occurrences, %s to %s, confidence %.0f%%\n",
			p.Occurrences, p.FirstSeen.Format("2006-01-02"), p.LastSeen.Format("2006-01-02"), p.Confidence*100)
		if len(p.CommonSymptoms) > 0 {
			fmt.Printf("   Symptoms: %s\n", strings.Join(p.CommonSymptoms, ", "))
		}
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/healthtrace/internal/checkins"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin [text]",
	Short: "Log a health check-in",
	Long: `Stores a check-in, makes it searchable, and reports when it resembles
enough recent check-ins to form a pattern.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckIn,
}

func init() {
	checkinCmd.Flags().Int("mood", 0, "mood from 1 to 10")
	checkinCmd.Flags().Int("energy", 0, "energy from 1 to 10")
	checkinCmd.Flags().StringSliceP("symptom", "s", nil, "symptom name, repeatable; name:severity sets a 1-10 severity")
	checkinCmd.Flags().Bool("voice", false, "mark the text as a voice transcript")
	rootCmd.AddCommand(checkinCmd)
}

func runCheckIn(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	mood, _ := cmd.Flags().GetInt("mood")
	energy, _ := cmd.Flags().GetInt("energy")
	symptomFlags, _ := cmd.Flags().GetStringSlice("symptom")
	voice, _ := cmd.Flags().GetBool("voice")

	c := &checkins.CheckIn{
		UserID:     userID,
		Transcript: strings.Join(args, " "),
		Mood:       mood,
		Energy:     energy,
		Source:     checkins.SourceText,
	}
	if voice {
		c.Source = checkins.SourceVoice
	}
	for _, s := range symptomFlags {
		sym, err := parseSymptom(s)
		if err != nil {
			return err
		}
		c.Symptoms = append(c.Symptoms, sym)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.pipeline.IngestCheckIn(ctx, c)
	if err != nil {
		return fmt.Errorf("storing check-in: %w", err)
	}
	if err := a.persist(); err != nil {
		return err
	}

	fmt.Printf("Logged check-in %s\n", res.CheckIn.ID)
	fmt.Printf("  Summary: %s\n", res.CheckIn.Summary)
	if !res.Embedded {
		fmt.Println("  Not searchable yet: the embedding provider was unavailable.")
	}
	if res.Pattern != nil {
		fmt.Printf("\nPossible pattern (%.0f%% confidence): %s\n", res.Pattern.Confidence*100, res.Pattern.Description)
	}
	return nil
}

// parseSymptom reads "name" or "name:severity".
func parseSymptom(s string) (checkins.Symptom, error) {
	name, sev, found := strings.Cut(s, ":")
	sym := checkins.Symptom{Name: strings.TrimSpace(name)}
	if found {
		if _, err := fmt.Sscanf(strings.TrimSpace(sev), "%d", &sym.Severity); err != nil {
			return sym, fmt.Errorf("invalid severity in symptom %q", s)
		}
	}
	if sym.Name == "" {
		return sym, fmt.Errorf("empty symptom name in %q", s)
	}
	return sym, nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question answered from your own health history",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("show-context", false, "print the retrieved context before the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	showContext, _ := cmd.Flags().GetBool("show-context")

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.agent.Ask(context.Background(), userID, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if showContext && ans.Context != nil && ans.Context.CombinedContext != "" {
		fmt.Println(ans.Context.CombinedContext)
		fmt.Println()
	}
	fmt.Println(ans.Answer)
	return nil
}

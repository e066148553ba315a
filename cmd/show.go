package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the collected experiences",
	Run: func(cmd *cobra.Command, _ []string) {
		runShow(cmd)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("raw", false, "print the whole session as JSON")
}

func runShow(cmd *cobra.Command) {
	l, config := setup()

	state, err := currentState(context.Background(), newCollector(l, config, nil))
	if err != nil {
		l.Fatal("showing experiences", zap.Error(err))
	}

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		if err := dumpJSON(os.Stdout, state); err != nil {
			l.Fatal("encoding session", zap.Error(err))
		}
		return
	}

	l.Info("collected experiences", zap.Int("turn", state.Turn), zap.Int("count", len(state.Experiences)))
	printExperiences(os.Stdout, state.Experiences)
}

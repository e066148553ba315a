package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/compass/internal/experience"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a batch of ADD/UPDATE/DELETE/NOOP operations to the session as one turn",
	Run: func(cmd *cobra.Command, _ []string) {
		runApply(cmd)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringP("file", "f", "", "YAML or JSON file with the operations")
	applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command) {
	ctx := context.Background()
	l, config := setup()

	path, _ := cmd.Flags().GetString("file")

	ops, err := experience.LoadOperationsFile(l, path)
	if err != nil && len(ops) == 0 {
		l.Fatal("loading operations", zap.String("file", path), zap.Error(err))
	}
	if err != nil {
		l.Warn("some operations could not be decoded and were skipped", zap.Error(err))
	}

	result, err := newCollector(l, config, nil).Apply(ctx, ops)
	if err != nil {
		l.Fatal("applying operations", zap.Error(err))
	}

	printTurn(os.Stdout, result)
}

// Package cli defines the viralcut command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "viralcut",
		Short:        "Score long-form video for viral short clips",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", "", "Path to a YAML config file")

	root.AddCommand(newProcessCmd())
	root.AddCommand(newBudgetCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <input>",
		Short: "Segment, score, and rank clips from a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0])
		},
	}

	// Visible flags
	cmd.Flags().String("out", "out", "Output directory")
	cmd.Flags().Bool("rule-only", false, "Skip AI analysis, score with rules only")

	// Hidden tuning flags (internal)
	cmd.Flags().Float64("window", 0, "Segment window seconds")
	cmd.Flags().Float64("tail", -1, "Tail merge threshold seconds")
	_ = cmd.Flags().MarkHidden("window")
	_ = cmd.Flags().MarkHidden("tail")

	return cmd
}

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect or reset the daily analysis budget",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show today's budget usage",
		Args:  cobra.NoArgs,
		RunE:  runBudgetShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset today's budget epoch to zero",
		Args:  cobra.NoArgs,
		RunE:  runBudgetReset,
	})
	return cmd
}

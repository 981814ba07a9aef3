package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fifteenfame/viralcut/internal/config"
	"github.com/fifteenfame/viralcut/internal/logging"
	"github.com/fifteenfame/viralcut/internal/pipeline"
	"github.com/fifteenfame/viralcut/internal/store"
)

func loadSettings(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	set, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return set, nil
}

func runProcess(cmd *cobra.Command, input string) error {
	set, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetFloat64("window"); v > 0 {
		set.WindowSec = v
	}
	if v, _ := cmd.Flags().GetFloat64("tail"); v >= 0 {
		set.MinTailSec = v
	}
	outDir, _ := cmd.Flags().GetString("out")
	ruleOnly, _ := cmd.Flags().GetBool("rule-only")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Input:    absIn,
		OutDir:   outDir,
		RuleOnly: ruleOnly,
		Settings: set,
		Logger:   logging.NewLogger(os.Stderr, set.LogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

func runBudgetShow(cmd *cobra.Command, _ []string) error {
	set, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.New(filepath.Join(set.DataDir, "viralcut.db"), nil)
	if err != nil {
		return err
	}
	defer st.Close()

	day := store.EpochKey(time.Now())
	snap, ok, err := st.LoadBudgetEpoch(cmd.Context(), day)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no analysis spend recorded (cap $%.2f)\n", day, set.DailyBudgetUSD)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"%s: spent $%.4f of $%.2f (%d requests, %d tokens, $%.4f remaining)\n",
		day, snap.Spent, snap.Cap, snap.RequestCount, snap.Tokens, snap.Remaining())
	return nil
}

func runBudgetReset(cmd *cobra.Command, _ []string) error {
	set, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	st, err := store.New(filepath.Join(set.DataDir, "viralcut.db"), nil)
	if err != nil {
		return err
	}
	defer st.Close()

	day := store.EpochKey(time.Now())
	if err := st.ResetBudgetEpoch(cmd.Context(), day); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "budget epoch %s reset\n", day)
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hwcatalog/appraisal/internal/types"
)

var hydrateCmd = &cobra.Command{
	Use:   "hydrate",
	Short: "Expand baseline placeholder rules into concrete rules",
	RunE:  runHydrate,
}

func init() {
	rootCmd.AddCommand(hydrateCmd)
	hydrateCmd.Flags().String("ruleset", "", "ruleset ID")
	hydrateCmd.MarkFlagRequired("ruleset")
}

func runHydrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	rulesetFlag, _ := cmd.Flags().GetString("ruleset")
	rulesetID, err := types.ParseRulesetID(rulesetFlag)
	if err != nil {
		return err
	}

	svc, cleanup, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	result, err := svc.Hydrate(ctx, rulesetID)
	if err != nil {
		return fmt.Errorf("hydration failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

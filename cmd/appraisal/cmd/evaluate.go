package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hwcatalog/appraisal/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one listing against a ruleset",
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("ruleset", "", "ruleset ID")
	evaluateCmd.Flags().String("listing", "", "listing ID")
	evaluateCmd.MarkFlagRequired("ruleset")
	evaluateCmd.MarkFlagRequired("listing")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
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
	listingFlag, _ := cmd.Flags().GetString("listing")
	listingID, err := types.ParseListingID(listingFlag)
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

	result, err := svc.Evaluate(ctx, rulesetID, listingID)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

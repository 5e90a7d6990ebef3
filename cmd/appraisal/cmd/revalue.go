package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hwcatalog/appraisal/internal/batch"
	"github.com/hwcatalog/appraisal/internal/types"
)

var revalueCmd = &cobra.Command{
	Use:   "revalue",
	Short: "Re-evaluate every stored listing against a ruleset",
	RunE:  runRevalue,
}

func init() {
	rootCmd.AddCommand(revalueCmd)
	revalueCmd.Flags().String("ruleset", "", "ruleset ID")
	revalueCmd.Flags().Int("workers", 0, "worker parallelism (defaults to config)")
	revalueCmd.MarkFlagRequired("ruleset")
}

func runRevalue(cmd *cobra.Command, args []string) error {
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
	workers := cfg.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	svc, cleanup, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Interrupt cancels between listings; completed results are kept.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := svc.Revalue(ctx, rulesetID, workers)
	if err != nil {
		return fmt.Errorf("revaluation failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newRevalueReport(summary))
}

// revalueReport is the printable shape of a batch summary. Errors flatten
// to strings so the report round-trips through JSON.
type revalueReport struct {
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Canceled  int                 `json:"canceled"`
	Listings  []revalueReportItem `json:"listings"`
}

type revalueReportItem struct {
	ListingID     string  `json:"listing_id"`
	AdjustedValue float64 `json:"adjusted_value,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func newRevalueReport(summary *batch.Summary) revalueReport {
	report := revalueReport{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Canceled:  summary.Canceled,
	}
	for _, r := range summary.Results {
		item := revalueReportItem{ListingID: string(r.ListingID)}
		if r.Err != nil {
			item.Error = r.Err.Error()
		} else {
			item.AdjustedValue = r.Result.AdjustedValue
		}
		report.Listings = append(report.Listings, item)
	}
	return report
}

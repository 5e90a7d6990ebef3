package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hwcatalog/appraisal/internal/core/store"
	"github.com/hwcatalog/appraisal/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load a ruleset and listings from a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// Seed document shapes. IDs are optional; omitted IDs are generated.

type seedDoc struct {
	Ruleset  *seedRuleset  `json:"ruleset"`
	Listings []seedListing `json:"listings"`
}

type seedRuleset struct {
	Name    string      `json:"name"`
	Version int         `json:"version"`
	Active  bool        `json:"active"`
	Groups  []seedGroup `json:"groups"`
}

type seedGroup struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	DisplayOrder int        `json:"display_order"`
	Weight       float64    `json:"weight"`
	Rules        []seedRule `json:"rules"`
}

type seedRule struct {
	Name                string          `json:"name"`
	Priority            int             `json:"priority"`
	EvaluationOrder     int             `json:"evaluation_order"`
	Active              bool            `json:"active"`
	BaselinePlaceholder bool            `json:"baseline_placeholder"`
	Conditions          []seedCondition `json:"conditions"`
	Actions             []seedAction    `json:"actions"`
	Hydration           *seedHydration  `json:"hydration"`
}

type seedCondition struct {
	FieldPath  string `json:"field_path"`
	Operator   string `json:"operator"`
	Value      any    `json:"value"`
	Values     []any  `json:"values"`
	LogicalOp  string `json:"logical_op"`
	GroupOrder int    `json:"group_order"`
}

type seedAction struct {
	Type         string           `json:"type"`
	Metric       string           `json:"metric"`
	BaseValue    float64          `json:"base_value"`
	UnitType     string           `json:"unit_type"`
	FormulaText  string           `json:"formula_text"`
	DisplayOrder int              `json:"display_order"`
	Multipliers  []seedMultiplier `json:"multipliers"`
}

type seedMultiplier struct {
	Name      string             `json:"name"`
	FieldPath string             `json:"field_path"`
	Factors   map[string]float64 `json:"factors"`
}

type seedHydration struct {
	Strategy     string             `json:"strategy"`
	FieldPath    string             `json:"field_path"`
	ValueFactors map[string]float64 `json:"value_factors"`
	BaseValue    float64            `json:"base_value"`
	FormulaText  string             `json:"formula_text"`
}

type seedListing struct {
	Title      string         `json:"title"`
	BaseValue  float64        `json:"base_value"`
	Attributes map[string]any `json:"attributes"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var doc seedDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	svc, cleanup, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	st := svc.Store()

	if doc.Ruleset != nil {
		ruleset := buildRuleset(doc.Ruleset)
		if err := st.SaveRuleset(ctx, ruleset); err != nil {
			return fmt.Errorf("failed to save ruleset %q: %w", ruleset.Name, err)
		}
		logger.Info().
			Str("ruleset", string(ruleset.ID)).
			Str("name", ruleset.Name).
			Msg("ruleset seeded")
		fmt.Printf("ruleset %s: %s\n", ruleset.Name, ruleset.ID)
	}

	for _, l := range doc.Listings {
		listing := &store.Listing{
			ID:         types.NewListingID(),
			Title:      l.Title,
			BaseValue:  l.BaseValue,
			Attributes: l.Attributes,
		}
		if err := st.SaveListing(ctx, listing); err != nil {
			return fmt.Errorf("failed to save listing %q: %w", l.Title, err)
		}
		fmt.Printf("listing %s: %s\n", listing.Title, listing.ID)
	}

	return nil
}

func buildRuleset(src *seedRuleset) *types.Ruleset {
	version := src.Version
	if version == 0 {
		version = 1
	}
	ruleset := &types.Ruleset{
		ID:      types.NewRulesetID(),
		Name:    src.Name,
		Version: version,
		Active:  src.Active,
	}

	for _, g := range src.Groups {
		group := types.RuleGroup{
			ID:           types.NewRuleGroupID(),
			RulesetID:    ruleset.ID,
			Name:         g.Name,
			Category:     g.Category,
			DisplayOrder: g.DisplayOrder,
			Weight:       g.Weight,
		}
		for _, r := range g.Rules {
			group.Rules = append(group.Rules, buildRule(group.ID, r))
		}
		ruleset.Groups = append(ruleset.Groups, group)
	}
	return ruleset
}

func buildRule(groupID types.RuleGroupID, src seedRule) types.Rule {
	rule := types.Rule{
		ID:                  types.NewRuleID(),
		GroupID:             groupID,
		Name:                src.Name,
		Priority:            src.Priority,
		EvaluationOrder:     src.EvaluationOrder,
		Active:              src.Active,
		BaselinePlaceholder: src.BaselinePlaceholder,
	}
	if src.Hydration != nil {
		rule.Hydration = &types.HydrationSpec{
			Strategy:     src.Hydration.Strategy,
			FieldPath:    src.Hydration.FieldPath,
			ValueFactors: src.Hydration.ValueFactors,
			BaseValue:    src.Hydration.BaseValue,
			FormulaText:  src.Hydration.FormulaText,
		}
	}

	for _, c := range src.Conditions {
		rule.Conditions = append(rule.Conditions, types.Condition{
			ID:         types.NewConditionID(),
			RuleID:     rule.ID,
			FieldPath:  c.FieldPath,
			Operator:   types.Operator(c.Operator),
			Value:      c.Value,
			Values:     c.Values,
			LogicalOp:  types.LogicalOperator(c.LogicalOp),
			GroupOrder: c.GroupOrder,
		})
	}

	for _, a := range src.Actions {
		action := types.Action{
			ID:           types.NewActionID(),
			RuleID:       rule.ID,
			Type:         types.ActionType(a.Type),
			Metric:       a.Metric,
			BaseValue:    a.BaseValue,
			UnitType:     a.UnitType,
			FormulaText:  a.FormulaText,
			DisplayOrder: a.DisplayOrder,
		}
		for _, m := range a.Multipliers {
			action.Multipliers = append(action.Multipliers, types.ActionMultiplier{
				Name:      m.Name,
				FieldPath: m.FieldPath,
				Factors:   m.Factors,
			})
		}
		rule.Actions = append(rule.Actions, action)
	}

	return rule
}

package engine

import (
	"sort"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Rule evaluation orchestration.
 *
 * Evaluates one listing snapshot against an immutable ruleset tree:
 *
 *   1. Flatten groups (display order) to active, non-placeholder rules
 *   2. Stable sort by (priority asc, evaluation_order asc)
 *   3. Per rule: fold the condition siblings (conditions.go)
 *   4. Matched rules: evaluate actions in declared order (action.go) and
 *      accumulate contributions into the running total
 *   5. Finalize: adjusted_value = base_value + total_adjustment
 *
 * Determinism: identical (ruleset, snapshot) inputs produce bit-identical
 * output. The accumulation path uses no wall clock, no randomness, and no
 * map iteration; summation order is the breakdown order, so the total always
 * reconciles exactly with the sum of the per-rule adjustment amounts.
 *
 * Evaluation never fails hard for data-quality issues. Condition and formula
 * faults degrade to non-matches and zero contributions, annotated on the
 * breakdown entry so a human can see why a rule did not contribute.
 */

// BreakdownEntry itemizes one matched rule's contribution.
type BreakdownEntry struct {
	RuleID           types.RuleID     `json:"rule_id"`
	RuleName         string           `json:"rule_name"`
	GroupName        string           `json:"group_name"`
	ConditionsMet    []string         `json:"conditions_met"`
	ActionsApplied   []string         `json:"actions_applied"`
	AdjustmentAmount float64          `json:"adjustment_amount"`
	Multipliers      []MultiplierStep `json:"multipliers,omitempty"`
	Faults           []string         `json:"faults,omitempty"`
}

// EvaluationResult is the engine's aggregate output for one listing.
type EvaluationResult struct {
	BaseValue       float64          `json:"base_value"`
	TotalAdjustment float64          `json:"total_adjustment"`
	AdjustedValue   float64          `json:"adjusted_value"`
	Breakdown       []BreakdownEntry `json:"breakdown"`
}

// Evaluate computes the price adjustment for one listing snapshot.
// The ruleset tree is treated as an immutable snapshot; callers own any
// caching of loaded trees.
func Evaluate(ruleset *types.Ruleset, snap Snapshot, baseValue float64) EvaluationResult {
	result := EvaluationResult{BaseValue: baseValue}

	for _, flat := range flattenRules(ruleset) {
		outcome := evaluateConditions(flat.rule.Conditions, snap)
		if !outcome.Matched {
			continue
		}

		entry := BreakdownEntry{
			RuleID:        flat.rule.ID,
			RuleName:      flat.rule.Name,
			GroupName:     flat.groupName,
			ConditionsMet: outcome.Met,
			Faults:        outcome.Faults,
		}

		for i := range flat.rule.Actions {
			ao := evaluateAction(&flat.rule.Actions[i], snap)
			if ao.Skipped || ao.Fault != "" {
				if ao.Fault != "" {
					entry.Faults = append(entry.Faults, ao.Fault)
				}
				continue
			}
			entry.ActionsApplied = append(entry.ActionsApplied, ao.Rendered)
			entry.Multipliers = append(entry.Multipliers, ao.Multipliers...)
			entry.AdjustmentAmount += ao.Contribution
		}

		// Fixed summation order: breakdown order is the accumulation order,
		// so TotalAdjustment reconciles exactly with the entries.
		result.TotalAdjustment += entry.AdjustmentAmount
		result.Breakdown = append(result.Breakdown, entry)
	}

	result.AdjustedValue = result.BaseValue + result.TotalAdjustment
	return result
}

// flatRule pairs a rule with its owning group's display name.
type flatRule struct {
	rule      *types.Rule
	groupName string
}

// flattenRules selects active, non-placeholder rules in evaluation order.
// Groups iterate in display order; rules stable-sort by (priority,
// evaluation_order) so equal keys preserve authored order.
func flattenRules(ruleset *types.Ruleset) []flatRule {
	groups := make([]*types.RuleGroup, 0, len(ruleset.Groups))
	for i := range ruleset.Groups {
		groups = append(groups, &ruleset.Groups[i])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].DisplayOrder < groups[j].DisplayOrder
	})

	var flat []flatRule
	for _, g := range groups {
		for i := range g.Rules {
			r := &g.Rules[i]
			if !r.Active || r.BaselinePlaceholder {
				continue
			}
			flat = append(flat, flatRule{rule: r, groupName: g.Name})
		}
	}

	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].rule.Priority != flat[j].rule.Priority {
			return flat[i].rule.Priority < flat[j].rule.Priority
		}
		return flat[i].rule.EvaluationOrder < flat[j].rule.EvaluationOrder
	})

	return flat
}

package hydrate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Hydration strategies.
 *
 * A strategy expands one baseline placeholder's declarative metadata into
 * concrete rule drafts. Strategies are pure: they read the placeholder and
 * return drafts; persistence and provenance stamping belong to the service.
 *
 * Built-in strategies:
 *   - enum_multiplier: one rule per declared field value, each with a single
 *     equality condition and a fixed-value action of base * factor
 *   - formula: one always-matching rule with a single formula action
 *   - fixed_value: one always-matching rule with a single fixed action
 *
 * New strategies register by tag via RegisterStrategy.
 */

// Strategy expands a placeholder into concrete rule drafts.
// Drafts carry fresh IDs and provenance back-references; the service
// persists them atomically.
type Strategy interface {
	// Expand returns the concrete rules generated from the placeholder.
	Expand(placeholder *types.Rule) ([]types.Rule, error)
}

var strategies = map[string]Strategy{
	types.StrategyEnumMultiplier: enumMultiplierStrategy{},
	types.StrategyFormula:        formulaStrategy{},
	types.StrategyFixedValue:     fixedValueStrategy{},
}

// RegisterStrategy installs a strategy under a tag. Init-time only; the
// strategy map is read without locking during hydration.
func RegisterStrategy(tag string, s Strategy) {
	strategies[tag] = s
}

// strategyFor resolves a placeholder's strategy tag.
func strategyFor(tag string) (Strategy, error) {
	s, ok := strategies[tag]
	if !ok {
		return nil, fmt.Errorf("%q: %w", tag, types.ErrUnknownStrategy)
	}
	return s, nil
}

// draftRule seeds a generated rule with placeholder provenance.
// Generated rules inherit the placeholder's group and priority so they sort
// into the same evaluation slot the placeholder occupied.
func draftRule(placeholder *types.Rule, name string, order int) types.Rule {
	return types.Rule{
		ID:                    types.NewRuleID(),
		GroupID:               placeholder.GroupID,
		Name:                  name,
		Priority:              placeholder.Priority,
		EvaluationOrder:       placeholder.EvaluationOrder + order,
		Active:                true,
		HydrationSourceRuleID: placeholder.ID,
	}
}

type enumMultiplierStrategy struct{}

// Expand emits one rule per declared field value. Values iterate in sorted
// order so repeated hydration of identical metadata produces rules in a
// stable sequence.
func (enumMultiplierStrategy) Expand(placeholder *types.Rule) ([]types.Rule, error) {
	spec := placeholder.Hydration
	if spec.FieldPath == "" || len(spec.ValueFactors) == 0 {
		return nil, types.ErrMissingStrategyParams
	}

	values := make([]string, 0, len(spec.ValueFactors))
	for v := range spec.ValueFactors {
		values = append(values, v)
	}
	sort.Strings(values)

	rules := make([]types.Rule, 0, len(values))
	for i, value := range values {
		rule := draftRule(placeholder, fmt.Sprintf("%s: %s", placeholder.Name, value), i)
		rule.Conditions = []types.Condition{{
			ID:        types.NewConditionID(),
			RuleID:    rule.ID,
			FieldPath: spec.FieldPath,
			Operator:  types.OpEq,
			Value:     conditionValue(value),
		}}
		rule.Actions = []types.Action{{
			ID:        types.NewActionID(),
			RuleID:    rule.ID,
			Type:      types.ActionFixedValue,
			BaseValue: spec.BaseValue * spec.ValueFactors[value],
		}}
		rules = append(rules, rule)
	}
	return rules, nil
}

// conditionValue types a factor map key for the equality comparison.
// Factor keys are the rendered form of the field value, so numeric and
// boolean keys must come back as numbers and booleans for the generated
// conditions to match the fields the way the multiplier chain does.
func conditionValue(key string) any {
	if n, err := strconv.ParseFloat(key, 64); err == nil {
		return n
	}
	switch key {
	case "true":
		return true
	case "false":
		return false
	}
	return key
}

type formulaStrategy struct{}

// Expand emits exactly one always-matching rule carrying the placeholder's
// stored expression as a formula action.
func (formulaStrategy) Expand(placeholder *types.Rule) ([]types.Rule, error) {
	spec := placeholder.Hydration
	if spec.FormulaText == "" {
		return nil, types.ErrMissingStrategyParams
	}

	rule := draftRule(placeholder, placeholder.Name, 0)
	rule.Actions = []types.Action{{
		ID:          types.NewActionID(),
		RuleID:      rule.ID,
		Type:        types.ActionFormula,
		FormulaText: spec.FormulaText,
	}}
	return []types.Rule{rule}, nil
}

type fixedValueStrategy struct{}

// Expand emits exactly one always-matching rule with a fixed-value action.
func (fixedValueStrategy) Expand(placeholder *types.Rule) ([]types.Rule, error) {
	rule := draftRule(placeholder, placeholder.Name, 0)
	rule.Actions = []types.Action{{
		ID:        types.NewActionID(),
		RuleID:    rule.ID,
		Type:      types.ActionFixedValue,
		BaseValue: placeholder.Hydration.BaseValue,
	}}
	return []types.Rule{rule}, nil
}

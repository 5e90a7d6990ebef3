package types

import (
	"fmt"
	"math"
	"strings"
)

/*
 * Authoring-time structural validation.
 *
 * Rules are validated when created or updated, before they ever reach the
 * evaluator. The evaluator may therefore assume well-formed trees: the first
 * condition sibling carries no logical operator, every subsequent sibling
 * carries one, action metadata matches the action type, and multiplier
 * factors are finite non-negative reals.
 *
 * Data-quality problems (absent fields, bad formulas against a particular
 * listing) are NOT rejected here; those degrade gracefully at evaluation
 * time and surface in the breakdown.
 */

// Validate checks a rule's structural invariants.
// Placeholder rules are validated against their hydration spec instead of
// their (empty) conditions and actions.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule %s: name is required", r.ID)
	}

	if r.BaselinePlaceholder {
		if r.Hydration == nil {
			return fmt.Errorf("rule %s: %w", r.ID, ErrMissingStrategyParams)
		}
		return r.Hydration.Validate(r.ID)
	}

	if len(r.Conditions) > MaxConditionsPerRule {
		return fmt.Errorf("rule %s: too many conditions (%d > %d)", r.ID, len(r.Conditions), MaxConditionsPerRule)
	}

	for i, c := range r.Conditions {
		if err := c.validate(i == 0); err != nil {
			return fmt.Errorf("rule %s condition %d: %w", r.ID, i, err)
		}
	}

	for i, a := range r.Actions {
		if err := a.validate(); err != nil {
			return fmt.Errorf("rule %s action %d: %w", r.ID, i, err)
		}
	}

	return nil
}

// validate checks a single condition sibling. root is true for the first
// sibling in GroupOrder sequence.
func (c *Condition) validate(root bool) error {
	if root && c.LogicalOp != LogicalNone {
		return ErrRootLogicalOperator
	}
	if !root && c.LogicalOp != LogicalAnd && c.LogicalOp != LogicalOr {
		return ErrMissingLogicalOperator
	}
	if c.FieldPath == "" {
		return fmt.Errorf("field path is required")
	}
	if strings.Count(c.FieldPath, ".")+1 > MaxFieldPathDepth {
		return ErrPathTooDeep
	}
	switch c.Operator {
	case OpIn, OpNotIn:
		if len(c.Values) > MaxInOperatorValues {
			return ErrTooManyInValues
		}
	case OpBetween:
		if len(c.Values) != 2 {
			return fmt.Errorf("between operator requires exactly 2 values, got %d", len(c.Values))
		}
	}
	return nil
}

// validate checks action type/metadata invariants and multiplier factors.
func (a *Action) validate() error {
	switch a.Type {
	case ActionFixedValue:
		// no extra metadata required
	case ActionPerUnit:
		if a.Metric == "" {
			return ErrMissingMetric
		}
	case ActionFormula:
		if strings.TrimSpace(a.FormulaText) == "" {
			return ErrMissingFormula
		}
		if len(a.FormulaText) > MaxFormulaLength {
			return ErrFormulaTooLong
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}

	for _, m := range a.Multipliers {
		if err := m.validate(); err != nil {
			return fmt.Errorf("multiplier %q: %w", m.Name, err)
		}
	}
	return nil
}

// validate checks multiplier structure and factor finiteness.
func (m *ActionMultiplier) validate() error {
	if m.FieldPath == "" {
		return fmt.Errorf("field path is required")
	}
	if len(m.Factors) > MaxMultiplierFactors {
		return fmt.Errorf("too many factors (%d > %d)", len(m.Factors), MaxMultiplierFactors)
	}
	for value, factor := range m.Factors {
		if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
			return fmt.Errorf("value %q: %w", value, ErrInvalidMultiplierFactor)
		}
	}
	return nil
}

// Validate checks a hydration spec carries the parameters its strategy needs.
func (h *HydrationSpec) Validate(ruleID RuleID) error {
	switch h.Strategy {
	case StrategyEnumMultiplier:
		if h.FieldPath == "" || len(h.ValueFactors) == 0 {
			return fmt.Errorf("rule %s: enum_multiplier requires field_path and value factors: %w", ruleID, ErrMissingStrategyParams)
		}
		for value, factor := range h.ValueFactors {
			if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
				return fmt.Errorf("rule %s: value %q: %w", ruleID, value, ErrInvalidMultiplierFactor)
			}
		}
	case StrategyFormula:
		if strings.TrimSpace(h.FormulaText) == "" {
			return fmt.Errorf("rule %s: formula strategy requires formula text: %w", ruleID, ErrMissingStrategyParams)
		}
		if len(h.FormulaText) > MaxFormulaLength {
			return fmt.Errorf("rule %s: %w", ruleID, ErrFormulaTooLong)
		}
	case StrategyFixedValue:
		if math.IsNaN(h.BaseValue) || math.IsInf(h.BaseValue, 0) {
			return fmt.Errorf("rule %s: fixed_value requires a finite base value: %w", ruleID, ErrMissingStrategyParams)
		}
	case "":
		return fmt.Errorf("rule %s: %w", ruleID, ErrMissingStrategyParams)
	default:
		return fmt.Errorf("rule %s: %q: %w", ruleID, h.Strategy, ErrUnknownStrategy)
	}
	return nil
}

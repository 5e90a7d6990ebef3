package engine

import (
	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Multiplier chain evaluation.
 *
 * Applies an ordered list of field-keyed multiplicative modifiers to an
 * action's base value. For each multiplier in list order: resolve its field,
 * look the rendered value up in the factors map (exact match), multiply the
 * matched factor into the running value. An unmatched value or absent field
 * applies the implicit factor 1.0.
 *
 * Order is preserved exactly as authored. That is documented behavior, not
 * an implementation detail: once intermediate rounding enters a chain,
 * reordering multipliers changes results.
 *
 * Each step's matched value and applied factor are reported for the
 * breakdown consumer.
 */

// MultiplierStep explains one multiplier application for the breakdown.
type MultiplierStep struct {
	Name         string  `json:"name"`
	FieldPath    string  `json:"field_path"`
	MatchedValue string  `json:"matched_value"` // rendered field value, "" when absent
	Factor       float64 `json:"factor"`
	Applied      bool    `json:"applied"` // false when the implicit 1.0 fallback ran
}

// applyMultipliers chains the multipliers over base in authored order.
// Returns the final value and the per-step explanation.
func applyMultipliers(base float64, multipliers []types.ActionMultiplier, snap Snapshot) (float64, []MultiplierStep) {
	if len(multipliers) == 0 {
		return base, nil
	}

	value := base
	steps := make([]MultiplierStep, 0, len(multipliers))
	for _, m := range multipliers {
		step := MultiplierStep{
			Name:      m.Name,
			FieldPath: m.FieldPath,
			Factor:    1.0,
		}

		resolved := Resolve(snap, m.FieldPath)
		if !resolved.IsAbsent() {
			rendered := resolved.Render()
			step.MatchedValue = rendered
			if factor, ok := m.Factors[rendered]; ok {
				step.Factor = factor
				step.Applied = true
			}
		}

		value *= step.Factor
		steps = append(steps, step)
	}

	return value, steps
}

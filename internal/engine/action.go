package engine

import (
	"fmt"
	"strconv"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Action evaluation.
 *
 * Computes one action's contribution per its type tag, then pipes the base
 * value through the multiplier chain. The type switch is exhaustive over the
 * closed ActionType variant; an unknown tag can only reach here through a
 * corrupted store row and is flagged, never fatal.
 *
 * Degradation rules:
 *   - per_unit with an absent metric contributes zero and is flagged skipped
 *     (expected data shape, not a fault)
 *   - per_unit with a present, non-numeric metric is a fault
 *   - formula faults contribute zero and are flagged with the fault reason
 */

// ActionOutcome reports one action's contribution and explanation.
type ActionOutcome struct {
	Contribution float64
	Rendered     string // stable human-readable form, "" when skipped/faulted
	Skipped      bool
	Fault        string // fault reason, "" when clean
	Multipliers  []MultiplierStep
}

// evaluateAction computes the action's final contribution against a snapshot.
func evaluateAction(action *types.Action, snap Snapshot) ActionOutcome {
	var base float64
	var rendered string

	switch action.Type {
	case types.ActionFixedValue:
		base = action.BaseValue
		rendered = "Fixed adjustment: " + money(base)

	case types.ActionPerUnit:
		metric := Resolve(snap, action.Metric)
		if metric.IsAbsent() {
			// Expected data shape on sparse listings, not a fault.
			return ActionOutcome{Skipped: true}
		}
		qty, ok := metric.AsNumber()
		if !ok {
			return ActionOutcome{
				Fault: fmt.Sprintf("per-unit metric %q is %s, not numeric", action.Metric, kindName(metric.Kind)),
			}
		}
		base = action.BaseValue * qty
		rendered = fmt.Sprintf("Per-unit adjustment: %s per %s × %s = %s",
			money(action.BaseValue), unitLabel(action), formatNumber(qty), money(base))

	case types.ActionFormula:
		value, err := EvaluateFormula(action.FormulaText, snap)
		if err != nil {
			return ActionOutcome{
				Fault: fmt.Sprintf("formula %q: %v", action.FormulaText, err),
			}
		}
		base = value
		rendered = fmt.Sprintf("Formula adjustment: %s = %s", action.FormulaText, money(base))

	default:
		return ActionOutcome{
			Fault: fmt.Sprintf("unknown action type %q", action.Type),
		}
	}

	final, steps := applyMultipliers(base, action.Multipliers, snap)
	if len(steps) > 0 && final != base {
		rendered += " → " + money(final) + " after multipliers"
	}

	return ActionOutcome{
		Contribution: final,
		Rendered:     rendered,
		Multipliers:  steps,
	}
}

// unitLabel prefers the authored unit type, falling back to the metric path.
func unitLabel(action *types.Action) string {
	if action.UnitType != "" {
		return action.UnitType
	}
	return action.Metric
}

// money renders a currency amount with shortest round-trip formatting,
// e.g. "$50", "$83.2", "-$25". Part of the stable breakdown phrasing.
func money(v float64) string {
	if v < 0 {
		return "-$" + formatNumber(-v)
	}
	return "$" + formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Condition tree evaluation.
 *
 * A rule's conditions are an ordered sibling sequence folded left to right:
 * the first sibling seeds the accumulator, every subsequent sibling combines
 * with it using its own logical operator. There is no operator precedence
 * beyond the fold and no explicit parenthesization, so A AND B OR C is
 * (A AND B) OR C. Siblings order by GroupOrder; equal values preserve
 * authored order via stable sort.
 *
 * Absent-field policy: a leaf whose field resolves to absent evaluates to
 * false for every operator except is_null, which evaluates to true. This
 * directly controls whether a rule applies to a listing missing the field.
 *
 * Faults: malformed operator/value type combinations are recovered locally
 * as false and recorded for the breakdown. Evaluation never fails hard for
 * data-quality issues.
 */

// conditionOutcome reports one rule's condition fold.
type conditionOutcome struct {
	Matched bool
	Met     []string // rendered conditions that individually held
	Faults  []string // recorded evaluation faults
}

// evaluateConditions folds the rule's condition siblings against a snapshot.
// An empty condition list always matches.
func evaluateConditions(conds []types.Condition, snap Snapshot) conditionOutcome {
	if len(conds) == 0 {
		return conditionOutcome{Matched: true}
	}

	ordered := make([]types.Condition, len(conds))
	copy(ordered, conds)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].GroupOrder < ordered[j].GroupOrder
	})

	out := conditionOutcome{}
	for i := range ordered {
		cond := &ordered[i]
		matched, fault := evaluateLeaf(cond, snap)
		if fault != nil {
			out.Faults = append(out.Faults, fmt.Sprintf("condition %s: %v", RenderCondition(cond), fault))
		}
		if matched {
			out.Met = append(out.Met, RenderCondition(cond))
		}

		if i == 0 {
			out.Matched = matched
			continue
		}
		switch cond.LogicalOp {
		case types.LogicalOr:
			out.Matched = out.Matched || matched
		default:
			// Validated trees only carry AND/OR past the root; treat anything
			// else as AND so a malformed row cannot widen a match.
			out.Matched = out.Matched && matched
		}
	}

	return out
}

// evaluateLeaf resolves the field and dispatches to the operator registry.
// Absent fields apply the absent policy; comparator errors surface as faults
// with the leaf evaluating to false.
func evaluateLeaf(cond *types.Condition, snap Snapshot) (bool, error) {
	value := Resolve(snap, cond.FieldPath)

	if value.IsAbsent() {
		return cond.Operator == types.OpIsNull, nil
	}

	matched, err := compare(value, cond)
	if err != nil {
		return false, err
	}
	return matched, nil
}

// RenderCondition produces the stable human-readable form consumed by the
// breakdown display (e.g. "ram_gb >= 16"). UI snapshot tests depend on the
// exact phrasing; change with care.
func RenderCondition(cond *types.Condition) string {
	switch cond.Operator {
	case types.OpIsNull:
		return cond.FieldPath + " is null"
	case types.OpIsNotNull:
		return cond.FieldPath + " is not null"
	case types.OpIn:
		return cond.FieldPath + " in [" + renderValues(cond.Values) + "]"
	case types.OpNotIn:
		return cond.FieldPath + " not in [" + renderValues(cond.Values) + "]"
	case types.OpBetween:
		if len(cond.Values) == 2 {
			return fmt.Sprintf("%s between %s and %s",
				cond.FieldPath, renderValue(cond.Values[0]), renderValue(cond.Values[1]))
		}
		return cond.FieldPath + " between ?"
	default:
		return fmt.Sprintf("%s %s %s", cond.FieldPath, operatorSymbol(cond.Operator), renderValue(cond.Value))
	}
}

// operatorSymbol maps operators onto display tokens.
func operatorSymbol(op types.Operator) string {
	switch op {
	case types.OpEq:
		return "=="
	case types.OpNeq:
		return "!="
	case types.OpGt:
		return ">"
	case types.OpGte:
		return ">="
	case types.OpLt:
		return "<"
	case types.OpLte:
		return "<="
	case types.OpContains:
		return "contains"
	case types.OpStartsWith:
		return "starts with"
	case types.OpEndsWith:
		return "ends with"
	case types.OpMatches:
		return "matches"
	default:
		return string(op)
	}
}

// renderValue renders a comparison value in the same canonical form the
// resolver renders field values.
func renderValue(v any) string {
	return fieldValueOf(v).Render()
}

func renderValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = renderValue(v)
	}
	return strings.Join(parts, ", ")
}

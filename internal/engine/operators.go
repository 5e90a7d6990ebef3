package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Condition operator registry.
 *
 * Implements the 15 comparison operators as plain functions keyed by
 * types.Operator. New operators register via RegisterOperator without
 * touching the condition tree walk in conditions.go.
 *
 * Type discipline: ordering operators (gt/gte/lt/lte/between) and the text
 * operators (contains/starts_with/ends_with/matches) return a typed fault
 * for incompatible value kinds; the orchestrator records the fault and
 * treats the condition as false. Equality across kinds is well-defined and
 * simply unequal, no fault.
 *
 * Absent fields never reach a comparator; the tree walk applies the absent
 * policy (false for every operator except is_null) before lookup.
 *
 * Why function-based: 15 operators via a comparator map is cleaner than 15
 * interface implementations with minimal behavior variation, and keeps the
 * evaluation path allocation-free.
 */

// Comparator evaluates one operator against a resolved field value.
// Returned errors are evaluation faults, not fatal conditions.
type Comparator func(value FieldValue, cond *types.Condition) (bool, error)

var comparators = map[types.Operator]Comparator{
	types.OpEq:         compareEq,
	types.OpNeq:        compareNeq,
	types.OpGt:         orderingComparator(func(c int) bool { return c > 0 }),
	types.OpGte:        orderingComparator(func(c int) bool { return c >= 0 }),
	types.OpLt:         orderingComparator(func(c int) bool { return c < 0 }),
	types.OpLte:        orderingComparator(func(c int) bool { return c <= 0 }),
	types.OpContains:   textComparator(strings.Contains),
	types.OpStartsWith: textComparator(strings.HasPrefix),
	types.OpEndsWith:   textComparator(strings.HasSuffix),
	types.OpMatches:    compareMatches,
	types.OpBetween:    compareBetween,
	types.OpIn:         compareIn,
	types.OpNotIn:      compareNotIn,
	types.OpIsNull:     compareIsNull,
	types.OpIsNotNull:  compareIsNotNull,
}

// RegisterOperator installs a comparator for an operator tag.
// Registration is init-time only; the comparator map is read without locking
// on the evaluation path.
func RegisterOperator(op types.Operator, fn Comparator) {
	comparators[op] = fn
}

// compare dispatches to the registered comparator.
func compare(value FieldValue, cond *types.Condition) (bool, error) {
	fn, ok := comparators[cond.Operator]
	if !ok {
		return false, fmt.Errorf("%q: %w", cond.Operator, types.ErrUnknownOperator)
	}
	return fn(value, cond)
}

// compareEq checks equality. Cross-kind comparison is unequal, not a fault.
func compareEq(value FieldValue, cond *types.Condition) (bool, error) {
	return fieldEqual(value, fieldValueOf(cond.Value)), nil
}

func compareNeq(value FieldValue, cond *types.Condition) (bool, error) {
	return !fieldEqual(value, fieldValueOf(cond.Value)), nil
}

// fieldEqual compares two field values of the same kind.
func fieldEqual(a, b FieldValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNumber:
		return a.Num == b.Num
	case KindText:
		return a.Text == b.Text
	case KindBool:
		return a.Bool == b.Bool
	default:
		return true
	}
}

// orderingComparator builds a numeric ordering operator from a predicate over
// the three-way comparison result.
func orderingComparator(accept func(cmp int) bool) Comparator {
	return func(value FieldValue, cond *types.Condition) (bool, error) {
		left, ok := value.AsNumber()
		if !ok {
			return false, fmt.Errorf("ordering operator against %s value: %w", kindName(value.Kind), types.ErrTypeMismatch)
		}
		right, ok := fieldValueOf(cond.Value).AsNumber()
		if !ok {
			return false, fmt.Errorf("ordering operator with non-numeric comparison value: %w", types.ErrTypeMismatch)
		}
		switch {
		case left < right:
			return accept(-1), nil
		case left > right:
			return accept(1), nil
		default:
			return accept(0), nil
		}
	}
}

// textComparator builds a string operator from a two-argument predicate.
func textComparator(pred func(s, substr string) bool) Comparator {
	return func(value FieldValue, cond *types.Condition) (bool, error) {
		if value.Kind != KindText {
			return false, fmt.Errorf("text operator against %s value: %w", kindName(value.Kind), types.ErrTypeMismatch)
		}
		target := fieldValueOf(cond.Value)
		if target.Kind != KindText {
			return false, fmt.Errorf("text operator with non-text comparison value: %w", types.ErrTypeMismatch)
		}
		return pred(value.Text, target.Text), nil
	}
}

// compareMatches applies an RE2 pattern to a text value.
// Pattern compilation failure is an evaluation fault.
func compareMatches(value FieldValue, cond *types.Condition) (bool, error) {
	if value.Kind != KindText {
		return false, fmt.Errorf("matches operator against %s value: %w", kindName(value.Kind), types.ErrTypeMismatch)
	}
	pattern, ok := cond.Value.(string)
	if !ok {
		return false, fmt.Errorf("matches operator requires a text pattern: %w", types.ErrTypeMismatch)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %v", pattern, err)
	}
	return re.MatchString(value.Text), nil
}

// compareBetween checks inclusive numeric range membership.
// Expects exactly two numeric bounds in cond.Values (validated at authoring).
func compareBetween(value FieldValue, cond *types.Condition) (bool, error) {
	num, ok := value.AsNumber()
	if !ok {
		return false, fmt.Errorf("between operator against %s value: %w", kindName(value.Kind), types.ErrTypeMismatch)
	}
	if len(cond.Values) != 2 {
		return false, fmt.Errorf("between operator requires 2 bounds, got %d: %w", len(cond.Values), types.ErrTypeMismatch)
	}
	lo, okLo := fieldValueOf(cond.Values[0]).AsNumber()
	hi, okHi := fieldValueOf(cond.Values[1]).AsNumber()
	if !okLo || !okHi {
		return false, fmt.Errorf("between operator with non-numeric bounds: %w", types.ErrTypeMismatch)
	}
	return num >= lo && num <= hi, nil
}

// compareIn checks membership with equality semantics.
func compareIn(value FieldValue, cond *types.Condition) (bool, error) {
	for _, candidate := range cond.Values {
		if fieldEqual(value, fieldValueOf(candidate)) {
			return true, nil
		}
	}
	return false, nil
}

func compareNotIn(value FieldValue, cond *types.Condition) (bool, error) {
	matched, err := compareIn(value, cond)
	return !matched, err
}

// compareIsNull and compareIsNotNull only see present values here; the tree
// walk resolves the absent case before comparator dispatch.
func compareIsNull(value FieldValue, _ *types.Condition) (bool, error) {
	return value.IsAbsent(), nil
}

func compareIsNotNull(value FieldValue, _ *types.Condition) (bool, error) {
	return !value.IsAbsent(), nil
}

// kindName returns a short human label for fault messages.
func kindName(k FieldKind) string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	default:
		return "absent"
	}
}

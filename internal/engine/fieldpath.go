package engine

import (
	"strconv"
	"strings"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Field path resolution for listing snapshots.
 *
 * Resolves dotted paths (e.g. "ram_spec.ddr_generation") through nested
 * map[string]any snapshots. Missing intermediate segments, nil values, and
 * non-map intermediates all resolve to Absent; resolution never returns an
 * error. Absent semantics are shared by the condition evaluator, formula
 * engine, and multiplier chain, so all three see identical behavior for the
 * same path.
 *
 * Values are surfaced as a FieldValue sum type (Number | Text | Bool |
 * Absent) rather than raw any, so comparison logic never performs dynamic
 * "any" comparisons. Snapshot values outside those kinds (arrays, nested
 * objects at a leaf) resolve to Absent.
 */

// FieldKind discriminates the FieldValue sum type.
type FieldKind int

const (
	KindAbsent FieldKind = iota
	KindNumber
	KindText
	KindBool
)

// FieldValue is a strongly-typed view of one resolved snapshot field.
// Exactly one payload field is meaningful, selected by Kind.
type FieldValue struct {
	Kind FieldKind
	Num  float64
	Text string
	Bool bool
}

// Absent is the canonical absent marker.
var Absent = FieldValue{Kind: KindAbsent}

// Number wraps a float64 as a FieldValue.
func Number(f float64) FieldValue { return FieldValue{Kind: KindNumber, Num: f} }

// Text wraps a string as a FieldValue.
func Text(s string) FieldValue { return FieldValue{Kind: KindText, Text: s} }

// Bool wraps a bool as a FieldValue.
func Bool(b bool) FieldValue { return FieldValue{Kind: KindBool, Bool: b} }

// IsAbsent reports whether the value is the absent marker.
func (v FieldValue) IsAbsent() bool { return v.Kind == KindAbsent }

// AsNumber returns the numeric payload, or false if the value is not numeric.
func (v FieldValue) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Render returns the canonical text form of the value. Numbers use the
// shortest round-trip float formatting, booleans render as true/false.
// Multiplier condition keys and breakdown strings both rely on this form.
func (v FieldValue) Render() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "<absent>"
	}
}

// Snapshot is a read-only key/value view of one listing. Values may nest via
// map[string]any; the provider materializes it before evaluation begins.
type Snapshot map[string]any

// Resolve walks a dotted field path against the snapshot.
// Returns Absent for missing segments, nil values, non-map intermediates,
// and paths deeper than types.MaxFieldPathDepth. Never errors.
func Resolve(snap Snapshot, path string) FieldValue {
	if path == "" || snap == nil {
		return Absent
	}

	segments := strings.Split(path, ".")
	if len(segments) > types.MaxFieldPathDepth {
		return Absent
	}

	var current any = map[string]any(snap)
	for _, seg := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return Absent
		}
		current, ok = obj[seg]
		if !ok {
			return Absent
		}
	}

	return fieldValueOf(current)
}

// fieldValueOf converts a raw snapshot value into the FieldValue sum type.
// Numeric widths are normalized to float64, matching JSON-decoded snapshots.
func fieldValueOf(v any) FieldValue {
	switch val := v.(type) {
	case nil:
		return Absent
	case float64:
		return Number(val)
	case float32:
		return Number(float64(val))
	case int:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case uint:
		return Number(float64(val))
	case uint64:
		return Number(float64(val))
	case string:
		return Text(val)
	case bool:
		return Bool(val)
	default:
		// Arrays and nested objects cannot be compared as scalars.
		return Absent
	}
}

package engine

import (
	"testing"

	"github.com/hwcatalog/appraisal/internal/types"
)

// The fold is strictly left to right: A AND B OR C means (A AND B) OR C
func TestEvaluateConditions_LeftFold(t *testing.T) {
	conds := []types.Condition{
		{FieldPath: "ram_gb", Operator: types.OpGte, Value: float64(16), GroupOrder: 0},
		{FieldPath: "brand", Operator: types.OpEq, Value: "lenovo", LogicalOp: types.LogicalAnd, GroupOrder: 1},
		{FieldPath: "refurbished", Operator: types.OpEq, Value: true, LogicalOp: types.LogicalOr, GroupOrder: 2},
	}

	tests := []struct {
		name    string
		snap    Snapshot
		matched bool
	}{
		{
			name:    "A and B hold",
			snap:    Snapshot{"ram_gb": float64(32), "brand": "lenovo", "refurbished": false},
			matched: true,
		},
		{
			name:    "only C holds rescues the fold",
			snap:    Snapshot{"ram_gb": float64(8), "brand": "dell", "refurbished": true},
			matched: true,
		},
		{
			name:    "A holds but B fails and C fails",
			snap:    Snapshot{"ram_gb": float64(32), "brand": "dell", "refurbished": false},
			matched: false,
		},
		{
			name:    "nothing holds",
			snap:    Snapshot{"ram_gb": float64(4), "brand": "asus", "refurbished": false},
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluateConditions(conds, tt.snap)
			if out.Matched != tt.matched {
				t.Errorf("Matched = %v, expected %v", out.Matched, tt.matched)
			}
		})
	}
}

func TestEvaluateConditions_EmptyAlwaysMatches(t *testing.T) {
	out := evaluateConditions(nil, Snapshot{"anything": float64(1)})
	if !out.Matched {
		t.Error("empty condition list should match")
	}
}

// Siblings order by GroupOrder before folding, not by slice position
func TestEvaluateConditions_GroupOrderSorting(t *testing.T) {
	// Authored out of order: the OR sibling sorts to position 2.
	conds := []types.Condition{
		{FieldPath: "refurbished", Operator: types.OpEq, Value: true, LogicalOp: types.LogicalOr, GroupOrder: 2},
		{FieldPath: "ram_gb", Operator: types.OpGte, Value: float64(16), GroupOrder: 0},
		{FieldPath: "brand", Operator: types.OpEq, Value: "lenovo", LogicalOp: types.LogicalAnd, GroupOrder: 1},
	}

	snap := Snapshot{"ram_gb": float64(8), "brand": "dell", "refurbished": true}
	out := evaluateConditions(conds, snap)
	if !out.Matched {
		t.Error("expected (A AND B) OR C with C true to match after sorting")
	}
}

// Absent fields are false for every operator except is_null
func TestEvaluateConditions_AbsentPolicy(t *testing.T) {
	snap := Snapshot{"brand": "dell"}

	tests := []struct {
		name    string
		op      types.Operator
		value   any
		matched bool
	}{
		{name: "eq on absent", op: types.OpEq, value: "x", matched: false},
		{name: "neq on absent", op: types.OpNeq, value: "x", matched: false},
		{name: "gte on absent", op: types.OpGte, value: float64(1), matched: false},
		{name: "contains on absent", op: types.OpContains, value: "x", matched: false},
		{name: "is_not_null on absent", op: types.OpIsNotNull, matched: false},
		{name: "is_null on absent", op: types.OpIsNull, matched: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []types.Condition{{FieldPath: "gpu_model", Operator: tt.op, Value: tt.value}}
			out := evaluateConditions(conds, snap)
			if out.Matched != tt.matched {
				t.Errorf("Matched = %v, expected %v", out.Matched, tt.matched)
			}
			if len(out.Faults) != 0 {
				t.Errorf("absent policy is not a fault, got %v", out.Faults)
			}
		})
	}
}

// Faulted leaves evaluate to false and record the fault
func TestEvaluateConditions_FaultRecording(t *testing.T) {
	conds := []types.Condition{
		{FieldPath: "brand", Operator: types.OpGte, Value: float64(16)},
	}
	out := evaluateConditions(conds, Snapshot{"brand": "lenovo"})

	if out.Matched {
		t.Error("faulted condition should not match")
	}
	if len(out.Faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(out.Faults))
	}
}

// Met conditions collect in fold order with stable phrasing
func TestEvaluateConditions_MetRendering(t *testing.T) {
	conds := []types.Condition{
		{FieldPath: "ram_gb", Operator: types.OpGte, Value: float64(16), GroupOrder: 0},
		{FieldPath: "brand", Operator: types.OpEq, Value: "lenovo", LogicalOp: types.LogicalAnd, GroupOrder: 1},
	}
	out := evaluateConditions(conds, Snapshot{"ram_gb": float64(32), "brand": "lenovo"})

	if !out.Matched {
		t.Fatal("expected match")
	}
	expected := []string{"ram_gb >= 16", "brand == lenovo"}
	if len(out.Met) != len(expected) {
		t.Fatalf("Met = %v, expected %v", out.Met, expected)
	}
	for i := range expected {
		if out.Met[i] != expected[i] {
			t.Errorf("Met[%d] = %q, expected %q", i, out.Met[i], expected[i])
		}
	}
}

func TestRenderCondition(t *testing.T) {
	tests := []struct {
		name     string
		cond     types.Condition
		expected string
	}{
		{
			name:     "numeric comparison",
			cond:     types.Condition{FieldPath: "ram_gb", Operator: types.OpGte, Value: float64(16)},
			expected: "ram_gb >= 16",
		},
		{
			name:     "text equality",
			cond:     types.Condition{FieldPath: "brand", Operator: types.OpEq, Value: "lenovo"},
			expected: "brand == lenovo",
		},
		{
			name:     "between",
			cond:     types.Condition{FieldPath: "ram_gb", Operator: types.OpBetween, Values: []any{float64(8), float64(32)}},
			expected: "ram_gb between 8 and 32",
		},
		{
			name:     "in list",
			cond:     types.Condition{FieldPath: "ddr", Operator: types.OpIn, Values: []any{"ddr4", "ddr5"}},
			expected: "ddr in [ddr4, ddr5]",
		},
		{
			name:     "is_null",
			cond:     types.Condition{FieldPath: "gpu_model", Operator: types.OpIsNull},
			expected: "gpu_model is null",
		},
		{
			name:     "contains",
			cond:     types.Condition{FieldPath: "model", Operator: types.OpContains, Value: "x1"},
			expected: "model contains x1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderCondition(&tt.cond); got != tt.expected {
				t.Errorf("RenderCondition() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

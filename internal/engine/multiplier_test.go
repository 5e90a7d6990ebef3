package engine

import (
	"testing"

	"github.com/hwcatalog/appraisal/internal/types"
)

func TestApplyMultipliers_Chain(t *testing.T) {
	multipliers := []types.ActionMultiplier{
		{
			Name:      "condition grade",
			FieldPath: "condition",
			Factors:   map[string]float64{"used": 0.9, "new": 1.1},
		},
		{
			Name:      "ddr generation",
			FieldPath: "ram_spec.ddr_generation",
			Factors:   map[string]float64{"ddr5": 1.2, "ddr3": 0.7},
		},
	}
	snap := Snapshot{
		"condition": "used",
		"ram_spec":  map[string]any{"ddr_generation": "ddr5"},
	}

	final, steps := applyMultipliers(100, multipliers, snap)

	if final != 100*0.9*1.2 {
		t.Errorf("final = %v, expected 108", final)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "condition grade" || steps[0].Factor != 0.9 || !steps[0].Applied {
		t.Errorf("step 0 = %+v", steps[0])
	}
	if steps[1].Name != "ddr generation" || steps[1].Factor != 1.2 || !steps[1].Applied {
		t.Errorf("step 1 = %+v", steps[1])
	}
}

// Unmatched values and absent fields apply the implicit 1.0 factor
func TestApplyMultipliers_ImplicitFallback(t *testing.T) {
	multipliers := []types.ActionMultiplier{
		{
			Name:      "condition grade",
			FieldPath: "condition",
			Factors:   map[string]float64{"new": 1.1},
		},
		{
			Name:      "ddr generation",
			FieldPath: "ram_spec.ddr_generation",
			Factors:   map[string]float64{"ddr5": 1.2},
		},
	}
	snap := Snapshot{"condition": "refurbished"}

	final, steps := applyMultipliers(50, multipliers, snap)

	if final != 50 {
		t.Errorf("final = %v, expected unchanged 50", final)
	}
	if steps[0].Applied || steps[0].Factor != 1.0 {
		t.Errorf("unmatched value step = %+v", steps[0])
	}
	if steps[0].MatchedValue != "refurbished" {
		t.Errorf("unmatched step should still report the resolved value, got %q", steps[0].MatchedValue)
	}
	if steps[1].Applied || steps[1].MatchedValue != "" {
		t.Errorf("absent field step = %+v", steps[1])
	}
}

// Numeric field values match factors through canonical rendering
func TestApplyMultipliers_NumericKeys(t *testing.T) {
	multipliers := []types.ActionMultiplier{
		{
			Name:      "ram size",
			FieldPath: "ram_gb",
			Factors:   map[string]float64{"16": 1.5, "32": 2.0},
		},
	}

	final, steps := applyMultipliers(10, multipliers, Snapshot{"ram_gb": float64(16)})

	if final != 15 {
		t.Errorf("final = %v, expected 15", final)
	}
	if steps[0].MatchedValue != "16" || !steps[0].Applied {
		t.Errorf("step = %+v", steps[0])
	}
}

// Chain order is authored order; with rounding in play this is observable
func TestApplyMultipliers_OrderPreserved(t *testing.T) {
	forward := []types.ActionMultiplier{
		{Name: "a", FieldPath: "x", Factors: map[string]float64{"v": 0.5}},
		{Name: "b", FieldPath: "x", Factors: map[string]float64{"v": 3.0}},
	}
	snap := Snapshot{"x": "v"}

	_, steps := applyMultipliers(100, forward, snap)
	if steps[0].Name != "a" || steps[1].Name != "b" {
		t.Errorf("steps out of order: %+v", steps)
	}
}

func TestApplyMultipliers_Empty(t *testing.T) {
	final, steps := applyMultipliers(75, nil, Snapshot{"x": "v"})
	if final != 75 || steps != nil {
		t.Errorf("empty chain should be a no-op, got %v %v", final, steps)
	}
}

func TestApplyMultipliers_ZeroFactor(t *testing.T) {
	multipliers := []types.ActionMultiplier{
		{Name: "dead pixel", FieldPath: "screen_state", Factors: map[string]float64{"broken": 0}},
	}
	final, _ := applyMultipliers(200, multipliers, Snapshot{"screen_state": "broken"})
	if final != 0 {
		t.Errorf("zero factor should zero the value, got %v", final)
	}
}

package engine

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Test normal path resolution cases
func TestResolve_Normal(t *testing.T) {
	snap := Snapshot{
		"ram_gb": float64(16),
		"brand":  "lenovo",
		"tested": true,
		"ram_spec": map[string]any{
			"ddr_generation": "ddr4",
			"speed_mhz":      float64(3200),
		},
		"cpu": map[string]any{
			"cores": map[string]any{
				"physical": 8,
			},
		},
	}

	tests := []struct {
		name     string
		path     string
		expected FieldValue
	}{
		{
			name:     "top-level number",
			path:     "ram_gb",
			expected: Number(16),
		},
		{
			name:     "top-level string",
			path:     "brand",
			expected: Text("lenovo"),
		},
		{
			name:     "top-level bool",
			path:     "tested",
			expected: Bool(true),
		},
		{
			name:     "nested string",
			path:     "ram_spec.ddr_generation",
			expected: Text("ddr4"),
		},
		{
			name:     "nested number",
			path:     "ram_spec.speed_mhz",
			expected: Number(3200),
		},
		{
			name:     "deep nesting with int widening",
			path:     "cpu.cores.physical",
			expected: Number(8),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Resolve(snap, tt.path)
			if result != tt.expected {
				t.Errorf("Resolve(%q) = %+v, expected %+v", tt.path, result, tt.expected)
			}
		})
	}
}

// Test absent resolution cases
func TestResolve_Absent(t *testing.T) {
	snap := Snapshot{
		"brand":   "dell",
		"gpu":     nil,
		"storage": []any{"ssd", "hdd"},
		"ram_spec": map[string]any{
			"ddr_generation": "ddr5",
		},
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing key", path: "cpu_model"},
		{name: "missing nested key", path: "ram_spec.speed_mhz"},
		{name: "empty path", path: ""},
		{name: "null value", path: "gpu"},
		{name: "array leaf", path: "storage"},
		{name: "traverse through scalar", path: "brand.name"},
		{name: "traverse through null", path: "gpu.vram_gb"},
		{name: "path too deep", path: strings.Repeat("a.", 20) + "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Resolve(snap, tt.path)
			if !result.IsAbsent() {
				t.Errorf("Resolve(%q) = %+v, expected absent", tt.path, result)
			}
		})
	}

	if !Resolve(nil, "brand").IsAbsent() {
		t.Error("Resolve on nil snapshot should be absent")
	}
}

// Test canonical rendering used by multiplier keys and breakdown strings
func TestFieldValue_Render(t *testing.T) {
	tests := []struct {
		name     string
		value    FieldValue
		expected string
	}{
		{name: "integer-valued float", value: Number(16), expected: "16"},
		{name: "fractional float", value: Number(83.2), expected: "83.2"},
		{name: "negative float", value: Number(-0.5), expected: "-0.5"},
		{name: "string", value: Text("ddr4"), expected: "ddr4"},
		{name: "bool true", value: Bool(true), expected: "true"},
		{name: "bool false", value: Bool(false), expected: "false"},
		{name: "absent", value: Absent, expected: "<absent>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Render(); got != tt.expected {
				t.Errorf("Render() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

// Property: resolution never panics regardless of snapshot shape or path
func TestResolve_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("resolution never crashes regardless of input", prop.ForAll(
		func(keys []string, path string) bool {
			snap := Snapshot{}
			var cursor map[string]any = snap
			for i, k := range keys {
				if i == len(keys)-1 {
					cursor[k] = float64(i)
					break
				}
				child := map[string]any{}
				cursor[k] = child
				cursor = child
			}
			Resolve(snap, path)
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.RegexMatch(`[a-z.]{0,40}`),
	))

	properties.TestingRun(t)
}

// Property: resolution is deterministic for identical inputs
func TestResolve_PropertyDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("same snapshot and path always resolve identically", prop.ForAll(
		func(key string, value float64) bool {
			snap := Snapshot{key: value}
			first := Resolve(snap, key)
			second := Resolve(snap, key)
			return first == second && first.Render() == second.Render()
		},
		gen.AlphaString(),
		gen.Float64(),
	))

	properties.TestingRun(t)
}

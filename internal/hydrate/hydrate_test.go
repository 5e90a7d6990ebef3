package hydrate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwcatalog/appraisal/internal/engine"
	"github.com/hwcatalog/appraisal/internal/types"
)

// fakeStore records hydration writes in memory.
type fakeStore struct {
	ruleset   *types.Ruleset
	generated map[types.RuleID][]types.Rule
	applyErr  error
	applied   []types.RuleID
}

func newFakeStore(ruleset *types.Ruleset) *fakeStore {
	return &fakeStore{
		ruleset:   ruleset,
		generated: make(map[types.RuleID][]types.Rule),
	}
}

func (f *fakeStore) LoadRuleset(ctx context.Context, id types.RulesetID) (*types.Ruleset, error) {
	if f.ruleset == nil || f.ruleset.ID != id {
		return nil, types.ErrRulesetNotFound
	}
	return f.ruleset, nil
}

func (f *fakeStore) GeneratedRules(ctx context.Context, source types.RuleID) ([]types.Rule, error) {
	return f.generated[source], nil
}

func (f *fakeStore) ApplyHydration(ctx context.Context, placeholder types.RuleID, generated []types.Rule) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.generated[placeholder] = generated
	f.applied = append(f.applied, placeholder)

	// Mirror the real transaction: flip the placeholder's provenance flags.
	for gi := range f.ruleset.Groups {
		for ri := range f.ruleset.Groups[gi].Rules {
			rule := &f.ruleset.Groups[gi].Rules[ri]
			if rule.ID == placeholder {
				rule.Hydrated = true
				rule.Active = false
			}
		}
	}
	return nil
}

func enumPlaceholder() types.Rule {
	return types.Rule{
		ID:                  types.RuleID("r-ddr-baseline"),
		GroupID:             types.RuleGroupID("g-memory"),
		Name:                "DDR baseline",
		Priority:            10,
		EvaluationOrder:     3,
		Active:              true,
		BaselinePlaceholder: true,
		Hydration: &types.HydrationSpec{
			Strategy:  types.StrategyEnumMultiplier,
			FieldPath: "ram_spec.ddr_generation",
			BaseValue: 50,
			ValueFactors: map[string]float64{
				"ddr5": 1.4,
				"ddr3": 0.6,
				"ddr4": 1.0,
			},
		},
	}
}

func hydrationRuleset(rules ...types.Rule) *types.Ruleset {
	return &types.Ruleset{
		ID:     types.RulesetID("rs-1"),
		Name:   "laptop-valuation",
		Active: true,
		Groups: []types.RuleGroup{
			{ID: types.RuleGroupID("g-memory"), RulesetID: types.RulesetID("rs-1"), Name: "Memory", Rules: rules},
		},
	}
}

func TestHydrateRule_EnumMultiplier(t *testing.T) {
	placeholder := enumPlaceholder()
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	generated, err := svc.HydrateRule(context.Background(), &placeholder)
	require.NoError(t, err)
	require.Len(t, generated, 3)

	// Sorted value order: ddr3, ddr4, ddr5
	names := []string{"DDR baseline: ddr3", "DDR baseline: ddr4", "DDR baseline: ddr5"}
	values := []float64{50 * 0.6, 50 * 1.0, 50 * 1.4}
	for i, rule := range generated {
		assert.Equal(t, names[i], rule.Name)
		assert.Equal(t, placeholder.GroupID, rule.GroupID)
		assert.Equal(t, placeholder.Priority, rule.Priority)
		assert.Equal(t, placeholder.EvaluationOrder+i, rule.EvaluationOrder)
		assert.Equal(t, placeholder.ID, rule.HydrationSourceRuleID)
		assert.True(t, rule.Active)
		assert.False(t, rule.BaselinePlaceholder)

		require.Len(t, rule.Conditions, 1)
		cond := rule.Conditions[0]
		assert.Equal(t, "ram_spec.ddr_generation", cond.FieldPath)
		assert.Equal(t, types.OpEq, cond.Operator)

		require.Len(t, rule.Actions, 1)
		assert.Equal(t, types.ActionFixedValue, rule.Actions[0].Type)
		assert.Equal(t, values[i], rule.Actions[0].BaseValue)
	}

	assert.Equal(t, []types.RuleID{placeholder.ID}, store.applied)
}

// A numeric-keyed enum must generate conditions that match numeric fields.
// Factor keys are rendered values, so "16" compares against ram_gb as the
// number 16, not the text "16".
func TestHydrateRule_NumericEnumMatchesAfterHydration(t *testing.T) {
	placeholder := types.Rule{
		ID:                  types.RuleID("r-ram-baseline"),
		GroupID:             types.RuleGroupID("g-memory"),
		Name:                "RAM baseline",
		Active:              true,
		BaselinePlaceholder: true,
		Hydration: &types.HydrationSpec{
			Strategy:  types.StrategyEnumMultiplier,
			FieldPath: "ram_gb",
			BaseValue: 50,
			ValueFactors: map[string]float64{
				"8":  0.8,
				"16": 1.0,
				"32": 1.4,
			},
		},
	}
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	generated, err := svc.HydrateRule(context.Background(), &placeholder)
	require.NoError(t, err)
	require.Len(t, generated, 3)
	for _, rule := range generated {
		require.Len(t, rule.Conditions, 1)
		assert.IsType(t, float64(0), rule.Conditions[0].Value)
	}

	hydrated := &types.Ruleset{
		ID:     types.RulesetID("rs-ram"),
		Name:   "ram-valuation",
		Active: true,
		Groups: []types.RuleGroup{
			{ID: placeholder.GroupID, Name: "Memory", Rules: generated},
		},
	}
	result := engine.Evaluate(hydrated, engine.Snapshot{"ram_gb": float64(16)}, 100)

	require.Len(t, result.Breakdown, 1)
	assert.Equal(t, "RAM baseline: 16", result.Breakdown[0].RuleName)
	assert.Equal(t, 50.0, result.Breakdown[0].AdjustmentAmount)
	assert.Equal(t, 150.0, result.AdjustedValue)
}

func TestHydrateRule_FormulaStrategy(t *testing.T) {
	placeholder := types.Rule{
		ID:                  types.RuleID("r-depr"),
		Name:                "Depreciation",
		BaselinePlaceholder: true,
		Hydration: &types.HydrationSpec{
			Strategy:    types.StrategyFormula,
			FormulaText: "age_years * -20",
		},
	}
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	generated, err := svc.HydrateRule(context.Background(), &placeholder)
	require.NoError(t, err)
	require.Len(t, generated, 1)

	rule := generated[0]
	assert.Empty(t, rule.Conditions, "formula rules always match")
	require.Len(t, rule.Actions, 1)
	assert.Equal(t, types.ActionFormula, rule.Actions[0].Type)
	assert.Equal(t, "age_years * -20", rule.Actions[0].FormulaText)
}

func TestHydrateRule_FixedValueStrategy(t *testing.T) {
	placeholder := types.Rule{
		ID:                  types.RuleID("r-base"),
		Name:                "Chassis baseline",
		BaselinePlaceholder: true,
		Hydration: &types.HydrationSpec{
			Strategy:  types.StrategyFixedValue,
			BaseValue: 120,
		},
	}
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	generated, err := svc.HydrateRule(context.Background(), &placeholder)
	require.NoError(t, err)
	require.Len(t, generated, 1)
	assert.Equal(t, 120.0, generated[0].Actions[0].BaseValue)
}

func TestHydrateRule_NotPlaceholder(t *testing.T) {
	rule := types.Rule{ID: types.RuleID("r-normal"), Name: "ordinary"}
	svc := NewService(newFakeStore(nil), zerolog.Nop())

	_, err := svc.HydrateRule(context.Background(), &rule)
	assert.ErrorIs(t, err, types.ErrNotPlaceholder)
}

func TestHydrateRule_UnknownStrategy(t *testing.T) {
	placeholder := types.Rule{
		ID:                  types.RuleID("r-odd"),
		Name:                "odd",
		BaselinePlaceholder: true,
		Hydration:           &types.HydrationSpec{Strategy: "percentile"},
	}
	svc := NewService(newFakeStore(nil), zerolog.Nop())

	_, err := svc.HydrateRule(context.Background(), &placeholder)
	assert.ErrorIs(t, err, types.ErrUnknownStrategy)
}

func TestHydrateRule_MissingSpec(t *testing.T) {
	placeholder := types.Rule{
		ID:                  types.RuleID("r-hollow"),
		Name:                "hollow",
		BaselinePlaceholder: true,
	}
	svc := NewService(newFakeStore(nil), zerolog.Nop())

	_, err := svc.HydrateRule(context.Background(), &placeholder)
	assert.ErrorIs(t, err, types.ErrMissingStrategyParams)
}

// Re-running returns the existing generated set without writing again
func TestHydrateRule_Idempotent(t *testing.T) {
	placeholder := enumPlaceholder()
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	first, err := svc.HydrateRule(context.Background(), &placeholder)
	require.NoError(t, err)

	// The store flipped the flags; reload the placeholder the way a second
	// pass would see it.
	hydrated := store.ruleset.Groups[0].Rules[0]
	require.True(t, hydrated.Hydrated)

	second, err := svc.HydrateRule(context.Background(), &hydrated)
	require.NoError(t, err)

	assert.Equal(t, first, second, "second pass must return the existing set")
	assert.Len(t, store.applied, 1, "no second write")
}

func TestHydrateRuleset_Batch(t *testing.T) {
	good := enumPlaceholder()
	bad := types.Rule{
		ID:                  types.RuleID("r-bad"),
		Name:                "broken",
		BaselinePlaceholder: true,
		Hydration:           &types.HydrationSpec{Strategy: "percentile"},
	}
	ordinary := types.Rule{ID: types.RuleID("r-normal"), Name: "ordinary", Active: true}

	store := newFakeStore(hydrationRuleset(good, bad, ordinary))
	svc := NewService(store, zerolog.Nop())

	result, err := svc.HydrateRuleset(context.Background(), store.ruleset.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalPlaceholders)
	assert.Equal(t, 3, result.CreatedRuleCount)
	require.Len(t, result.PerRuleOutcomes, 2)

	assert.Equal(t, StatusSuccess, result.PerRuleOutcomes[0].Status)
	assert.Len(t, result.PerRuleOutcomes[0].GeneratedRuleIDs, 3)

	assert.Equal(t, StatusError, result.PerRuleOutcomes[1].Status)
	assert.NotEmpty(t, result.PerRuleOutcomes[1].ErrorMessage)
}

// A second batch pass reports skipped outcomes and creates nothing
func TestHydrateRuleset_SecondPassSkips(t *testing.T) {
	placeholder := enumPlaceholder()
	store := newFakeStore(hydrationRuleset(placeholder))
	svc := NewService(store, zerolog.Nop())

	first, err := svc.HydrateRuleset(context.Background(), store.ruleset.ID)
	require.NoError(t, err)
	require.Equal(t, 3, first.CreatedRuleCount)

	second, err := svc.HydrateRuleset(context.Background(), store.ruleset.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, second.TotalPlaceholders)
	assert.Equal(t, 0, second.CreatedRuleCount)
	require.Len(t, second.PerRuleOutcomes, 1)
	assert.Equal(t, StatusSkipped, second.PerRuleOutcomes[0].Status)
	assert.Len(t, second.PerRuleOutcomes[0].GeneratedRuleIDs, 3)
}

func TestHydrateRuleset_UnknownRuleset(t *testing.T) {
	svc := NewService(newFakeStore(nil), zerolog.Nop())

	_, err := svc.HydrateRuleset(context.Background(), types.RulesetID("rs-missing"))
	assert.ErrorIs(t, err, types.ErrRulesetNotFound)
}

func TestHydrateRule_StoreFailure(t *testing.T) {
	placeholder := enumPlaceholder()
	store := newFakeStore(hydrationRuleset(placeholder))
	store.applyErr = errors.New("disk full")
	svc := NewService(store, zerolog.Nop())

	_, err := svc.HydrateRule(context.Background(), &placeholder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, store.applied)
}

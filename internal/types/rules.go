package types

/*
 * Domain types for the valuation rule tree.
 *
 * Provides Ruleset, RuleGroup, Rule, Condition, Action, and ActionMultiplier
 * structures consumed by internal/engine for evaluation and internal/hydrate
 * for baseline expansion. The tree is fully materialized by the store before
 * evaluation; the engine treats it as an immutable snapshot.
 *
 * Ownership: deleting a Rule cascades to its Conditions and Actions, deleting
 * a RuleGroup cascades to its Rules, deleting a Ruleset cascades to everything
 * beneath it. Cascades are enforced in the schema (ON DELETE CASCADE), these
 * types only model the containment.
 *
 * Placeholder lifecycle: a Rule with BaselinePlaceholder=true carries a
 * HydrationSpec instead of Conditions/Actions. The hydration service expands
 * it into concrete Rules, stamps HydrationSourceRuleID on each, and flips the
 * placeholder to Hydrated=true + Active=false.
 */

// Ruleset is the top-level named, versioned rule container.
// Name is unique within the catalog (enforced by the store).
type Ruleset struct {
	ID      RulesetID
	Name    string
	Version int
	Active  bool
	Groups  []RuleGroup // ordered by DisplayOrder
}

// RuleGroup is a categorized collection of rules within a ruleset.
// Weight is informational aggregation metadata only; it never gates
// evaluation.
type RuleGroup struct {
	ID           RuleGroupID
	RulesetID    RulesetID
	Name         string
	Category     string
	DisplayOrder int
	Weight       float64
	Rules        []Rule // ordered by (Priority, EvaluationOrder)
}

// Rule combines a condition tree with an ordered list of actions.
// An empty Conditions list means the rule always matches.
type Rule struct {
	ID              RuleID
	GroupID         RuleGroupID
	Name            string
	Priority        int
	EvaluationOrder int
	Active          bool

	Conditions []Condition // ordered by GroupOrder
	Actions    []Action    // ordered by DisplayOrder

	// Provenance.
	BaselinePlaceholder   bool
	Hydrated              bool
	HydrationSourceRuleID RuleID // non-owning back-reference, empty for authored rules

	// Hydration holds the placeholder's declarative expansion metadata.
	// Nil unless BaselinePlaceholder is true.
	Hydration *HydrationSpec
}

// Condition is one sibling in a rule's left-folded condition sequence.
// The first sibling (lowest GroupOrder) carries LogicalNone; every subsequent
// sibling combines with the running accumulator using its own LogicalOp.
type Condition struct {
	ID         ConditionID
	RuleID     RuleID
	FieldPath  string
	Operator   Operator
	Value      any   // comparison value (nil for is_null/is_not_null)
	Values     []any // for in/not_in and between
	LogicalOp  LogicalOperator
	GroupOrder int
}

// Action computes one numeric price adjustment contribution.
// FormulaText is required iff Type is ActionFormula; Metric is required iff
// Type is ActionPerUnit.
type Action struct {
	ID           ActionID
	RuleID       RuleID
	Type         ActionType
	Metric       string // entity field path holding the per-unit quantity
	BaseValue    float64
	UnitType     string
	FormulaText  string
	DisplayOrder int
	Multipliers  []ActionMultiplier // applied in list order, order matters
}

// ActionMultiplier is a field-keyed multiplicative modifier chained onto an
// action's base value. Factors maps the rendered observed field value to the
// factor applied; an unmatched or absent field uses the implicit factor 1.0.
type ActionMultiplier struct {
	Name      string
	FieldPath string
	Factors   map[string]float64
}

// HydrationSpec is the declarative metadata of a baseline placeholder rule.
// Which fields are required depends on Strategy; see Validate.
type HydrationSpec struct {
	Strategy     string
	FieldPath    string             // enum_multiplier: field the equality conditions target
	ValueFactors map[string]float64 // enum_multiplier: observed value -> factor
	BaseValue    float64            // enum_multiplier, fixed_value: base amount
	FormulaText  string             // formula: stored expression
}

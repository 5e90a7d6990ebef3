// Package types provides domain models shared across Appraisal components.
//
// Zero-dependency design: types.go, rules.go, and errors.go keep the rule
// tree model free of storage and engine imports so it can cross package
// boundaries cheaply. ID utilities in ids.go import uuid but are isolated
// for selective inclusion.
//
// The rule tree (Ruleset -> RuleGroup -> Rule -> Condition/Action) is wire-
// and storage-format agnostic; the store materializes it, the engine consumes
// it read-only.
package types

// Resource limits enforced at rule-authoring time to keep evaluation bounded.
const (
	// MaxFieldPathDepth prevents runaway recursion during path resolution.
	// 16 dotted segments handles deeply nested listing attributes.
	MaxFieldPathDepth = 16

	// MaxFormulaLength caps formula source text. 1KB allows any realistic
	// valuation expression while bounding parser work.
	MaxFormulaLength = 1024

	// MaxInOperatorValues limits in/not_in list size to prevent quadratic
	// comparison cost. 64 values supports enum-style membership checks.
	MaxInOperatorValues = 64

	// MaxConditionsPerRule bounds the left-fold walk per rule.
	MaxConditionsPerRule = 64

	// MaxMultiplierFactors bounds a single multiplier's conditions map.
	MaxMultiplierFactors = 128
)

// Operator identifies a condition comparison operator.
// String values match the stored representation in the conditions table.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNeq        Operator = "neq"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpMatches    Operator = "matches"
	OpBetween    Operator = "between"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpIsNull     Operator = "is_null"
	OpIsNotNull  Operator = "is_not_null"
)

// LogicalOperator joins a condition sibling with the running accumulator.
// The first sibling of a rule carries LogicalNone; every subsequent sibling
// must carry LogicalAnd or LogicalOr.
type LogicalOperator string

const (
	LogicalNone LogicalOperator = ""
	LogicalAnd  LogicalOperator = "AND"
	LogicalOr   LogicalOperator = "OR"
)

// ActionType is a closed tagged variant over the supported action kinds.
// The action evaluator switches exhaustively over these values.
type ActionType string

const (
	ActionFixedValue ActionType = "fixed_value"
	ActionPerUnit    ActionType = "per_unit"
	ActionFormula    ActionType = "formula"
)

// HydrationStrategy tags identify how a baseline placeholder expands.
const (
	StrategyEnumMultiplier = "enum_multiplier"
	StrategyFormula        = "formula"
	StrategyFixedValue     = "fixed_value"
)

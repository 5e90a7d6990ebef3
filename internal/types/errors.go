package types

import "errors"

// Sentinel errors for Appraisal operations.
var (
	// ErrFieldNotFound indicates a field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrPathTooDeep indicates a field path exceeds MaxFieldPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrUnknownOperator indicates an operator with no registered comparator.
	ErrUnknownOperator = errors.New("unknown condition operator")

	// ErrTypeMismatch indicates an operator/value type combination that
	// cannot be compared (e.g. numeric operator against text).
	ErrTypeMismatch = errors.New("operator incompatible with value type")

	// ErrTooManyInValues indicates an in/not_in list exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("membership operator has too many values")

	// ErrMissingLogicalOperator indicates a condition sibling after the first
	// carries no logical operator.
	ErrMissingLogicalOperator = errors.New("condition sibling missing logical operator")

	// ErrRootLogicalOperator indicates the first condition sibling carries a
	// logical operator.
	ErrRootLogicalOperator = errors.New("first condition must not carry a logical operator")

	// ErrFormulaSyntax indicates a formula failed to parse.
	ErrFormulaSyntax = errors.New("malformed formula expression")

	// ErrFormulaTooLong indicates formula text exceeds MaxFormulaLength.
	ErrFormulaTooLong = errors.New("formula exceeds maximum length")

	// ErrDivisionByZero indicates a formula divided by zero at evaluation time.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownFunction indicates a formula called a function outside the
	// allow list.
	ErrUnknownFunction = errors.New("unknown formula function")

	// ErrMissingFormula indicates a formula action without formula text.
	ErrMissingFormula = errors.New("formula action requires formula text")

	// ErrMissingMetric indicates a per-unit action without a metric field.
	ErrMissingMetric = errors.New("per-unit action requires a metric field")

	// ErrInvalidMultiplierFactor indicates a non-finite or negative factor.
	ErrInvalidMultiplierFactor = errors.New("multiplier factor must be a finite non-negative number")

	// ErrUnknownStrategy indicates a hydration strategy tag with no
	// registered strategy.
	ErrUnknownStrategy = errors.New("unknown hydration strategy")

	// ErrMissingStrategyParams indicates a placeholder lacking parameters its
	// strategy requires.
	ErrMissingStrategyParams = errors.New("missing required hydration strategy parameters")

	// ErrNotPlaceholder indicates hydration was requested for a rule that is
	// not a baseline placeholder.
	ErrNotPlaceholder = errors.New("rule is not a baseline placeholder")

	// ErrRulesetNotFound indicates the requested ruleset does not exist.
	ErrRulesetNotFound = errors.New("ruleset not found")

	// ErrListingNotFound indicates the requested listing does not exist.
	ErrListingNotFound = errors.New("listing not found")
)

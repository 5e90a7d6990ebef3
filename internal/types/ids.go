package types

import (
	"github.com/google/uuid"
)

// RulesetID represents a UUIDv7 ruleset identifier.
// String alias enables type safety while maintaining JSON string serialization.
// UUIDv7 time-ordering ensures sequential IDs cluster in B-tree indexes.
type RulesetID string

// RuleGroupID represents a UUIDv7 rule group identifier.
type RuleGroupID string

// RuleID represents a UUIDv7 rule identifier.
type RuleID string

// ConditionID represents a UUIDv7 condition identifier.
type ConditionID string

// ActionID represents a UUIDv7 action identifier.
type ActionID string

// ListingID represents a UUIDv7 listing (entity) identifier.
type ListingID string

// NewRulesetID generates a UUIDv7 ruleset identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRulesetID() RulesetID {
	return RulesetID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleGroupID generates a UUIDv7 rule group identifier.
func NewRuleGroupID() RuleGroupID {
	return RuleGroupID(uuid.Must(uuid.NewV7()).String())
}

// NewRuleID generates a UUIDv7 rule identifier.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewConditionID generates a UUIDv7 condition identifier.
func NewConditionID() ConditionID {
	return ConditionID(uuid.Must(uuid.NewV7()).String())
}

// NewActionID generates a UUIDv7 action identifier.
func NewActionID() ActionID {
	return ActionID(uuid.Must(uuid.NewV7()).String())
}

// NewListingID generates a UUIDv7 listing identifier.
func NewListingID() ListingID {
	return ListingID(uuid.Must(uuid.NewV7()).String())
}

// ParseRulesetID validates and converts a string to RulesetID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRulesetID(s string) (RulesetID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RulesetID(s), nil
}

// ParseRuleID validates and converts a string to RuleID.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseListingID validates and converts a string to ListingID.
func ParseListingID(s string) (ListingID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return ListingID(s), nil
}

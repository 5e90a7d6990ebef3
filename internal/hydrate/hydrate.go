// Package hydrate expands baseline placeholder rules into concrete,
// independently editable rules.
package hydrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hwcatalog/appraisal/internal/types"
)

/*
 * Hydration service.
 *
 * Converts a placeholder rule's declarative metadata into concrete rules via
 * the strategy registry, stamps provenance, and delegates persistence to a
 * collaborator-supplied write transaction.
 *
 * Contracts:
 *   - Idempotent: an already-hydrated placeholder returns its existing
 *     generated set unchanged, never duplicates.
 *   - Transactional: ApplyHydration either fully persists (concrete rules
 *     created and linked, placeholder deactivated) or fully fails with no
 *     partial state, so callers can retry safely.
 *   - Batch isolation: HydrateRuleset records per-placeholder outcomes and
 *     continues past failures instead of aborting the batch.
 *
 * Concurrency: two concurrent passes over the same ruleset could race on
 * provenance checks and double-create rules, so hydration serializes on a
 * per-ruleset mutex. Different rulesets hydrate concurrently.
 */

// Status values for per-placeholder hydration outcomes.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Store is the persistence boundary the service writes through.
type Store interface {
	// LoadRuleset materializes the full rule tree for a ruleset.
	LoadRuleset(ctx context.Context, id types.RulesetID) (*types.Ruleset, error)

	// GeneratedRules returns concrete rules stamped with the given source
	// placeholder, in stable (priority, evaluation_order) order.
	GeneratedRules(ctx context.Context, source types.RuleID) ([]types.Rule, error)

	// ApplyHydration atomically creates the generated rules and marks the
	// placeholder hydrated and inactive.
	ApplyHydration(ctx context.Context, placeholder types.RuleID, generated []types.Rule) error
}

// RuleOutcome reports one placeholder's hydration result.
type RuleOutcome struct {
	SourceRuleID     types.RuleID   `json:"source_rule_id"`
	Status           string         `json:"status"`
	GeneratedRuleIDs []types.RuleID `json:"generated_rule_ids,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// Result summarizes a batch hydration pass over one ruleset.
type Result struct {
	TotalPlaceholders int `json:"total_placeholders"`

	// CreatedRuleCount counts rules created by this pass only. Placeholders
	// hydrated on an earlier pass report a skipped outcome carrying their
	// existing generated IDs and add nothing here.
	CreatedRuleCount int `json:"created_rule_count"`

	PerRuleOutcomes []RuleOutcome `json:"per_rule_outcomes"`
}

// Service orchestrates placeholder expansion against a store.
type Service struct {
	store  Store
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[types.RulesetID]*sync.Mutex
}

// NewService creates a hydration service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		locks:  make(map[types.RulesetID]*sync.Mutex),
	}
}

// rulesetLock returns the mutex serializing hydration for one ruleset,
// creating it on first use. The map grows by one entry per ruleset ever
// hydrated by this process (acceptable footprint).
func (s *Service) rulesetLock(id types.RulesetID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// HydrateRule expands a single placeholder.
// Hard-errors on unknown strategy, missing parameters, or invalid metadata;
// re-running against an already-hydrated placeholder returns the existing
// generated set.
func (s *Service) HydrateRule(ctx context.Context, placeholder *types.Rule) ([]types.Rule, error) {
	if !placeholder.BaselinePlaceholder {
		return nil, fmt.Errorf("rule %s: %w", placeholder.ID, types.ErrNotPlaceholder)
	}

	if placeholder.Hydrated {
		existing, err := s.store.GeneratedRules(ctx, placeholder.ID)
		if err != nil {
			return nil, fmt.Errorf("load generated rules for %s: %w", placeholder.ID, err)
		}
		return existing, nil
	}

	if placeholder.Hydration == nil {
		return nil, fmt.Errorf("rule %s: %w", placeholder.ID, types.ErrMissingStrategyParams)
	}
	if err := placeholder.Hydration.Validate(placeholder.ID); err != nil {
		return nil, err
	}

	strategy, err := strategyFor(placeholder.Hydration.Strategy)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", placeholder.ID, err)
	}

	generated, err := strategy.Expand(placeholder)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", placeholder.ID, err)
	}

	if err := s.store.ApplyHydration(ctx, placeholder.ID, generated); err != nil {
		return nil, fmt.Errorf("persist hydration for %s: %w", placeholder.ID, err)
	}

	s.logger.Info().
		Str("placeholder", string(placeholder.ID)).
		Str("strategy", placeholder.Hydration.Strategy).
		Int("generated", len(generated)).
		Msg("hydrated placeholder rule")

	return generated, nil
}

// HydrateRuleset expands every placeholder in the ruleset, isolating
// failures per placeholder. The pass serializes per ruleset; see the
// concurrency note above.
func (s *Service) HydrateRuleset(ctx context.Context, id types.RulesetID) (*Result, error) {
	lock := s.rulesetLock(id)
	lock.Lock()
	defer lock.Unlock()

	ruleset, err := s.store.LoadRuleset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ruleset %s: %w", id, err)
	}

	result := &Result{}
	for gi := range ruleset.Groups {
		for ri := range ruleset.Groups[gi].Rules {
			rule := &ruleset.Groups[gi].Rules[ri]
			if !rule.BaselinePlaceholder {
				continue
			}
			result.TotalPlaceholders++

			if rule.Hydrated {
				existing, err := s.store.GeneratedRules(ctx, rule.ID)
				if err != nil {
					result.PerRuleOutcomes = append(result.PerRuleOutcomes, RuleOutcome{
						SourceRuleID: rule.ID,
						Status:       StatusError,
						ErrorMessage: err.Error(),
					})
					continue
				}
				result.PerRuleOutcomes = append(result.PerRuleOutcomes, RuleOutcome{
					SourceRuleID:     rule.ID,
					Status:           StatusSkipped,
					GeneratedRuleIDs: ruleIDs(existing),
				})
				continue
			}

			generated, err := s.HydrateRule(ctx, rule)
			if err != nil {
				s.logger.Warn().
					Str("placeholder", string(rule.ID)).
					Err(err).
					Msg("placeholder hydration failed")
				result.PerRuleOutcomes = append(result.PerRuleOutcomes, RuleOutcome{
					SourceRuleID: rule.ID,
					Status:       StatusError,
					ErrorMessage: err.Error(),
				})
				continue
			}

			result.CreatedRuleCount += len(generated)
			result.PerRuleOutcomes = append(result.PerRuleOutcomes, RuleOutcome{
				SourceRuleID:     rule.ID,
				Status:           StatusSuccess,
				GeneratedRuleIDs: ruleIDs(generated),
			})
		}
	}

	return result, nil
}

func ruleIDs(rules []types.Rule) []types.RuleID {
	ids := make([]types.RuleID, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// Package service ties the persistence layer to the evaluation engine and
// the hydration pass. Commands and embedding programs talk to this facade
// instead of composing store, engine, and hydrator themselves.
package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hwcatalog/appraisal/internal/batch"
	"github.com/hwcatalog/appraisal/internal/core/store"
	"github.com/hwcatalog/appraisal/internal/engine"
	"github.com/hwcatalog/appraisal/internal/hydrate"
	"github.com/hwcatalog/appraisal/internal/types"
)

// Service exposes the valuation operations over a backing store.
type Service struct {
	store    *store.Store
	hydrator *hydrate.Service
	logger   zerolog.Logger
}

// New wires a service over the given store.
func New(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		hydrator: hydrate.NewService(st, logger),
		logger:   logger,
	}
}

// Store exposes the backing store for callers that need direct persistence
// access, such as the seeding command.
func (s *Service) Store() *store.Store {
	return s.store
}

// Evaluate loads the ruleset and listing, then runs one evaluation against
// the listing's attribute snapshot and base value.
func (s *Service) Evaluate(ctx context.Context, rulesetID types.RulesetID, listingID types.ListingID) (*engine.EvaluationResult, error) {
	ruleset, err := s.store.LoadRuleset(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	result := engine.Evaluate(ruleset, engine.Snapshot(listing.Attributes), listing.BaseValue)

	s.logger.Info().
		Str("ruleset", string(rulesetID)).
		Str("listing", string(listingID)).
		Float64("base_value", result.BaseValue).
		Float64("adjusted_value", result.AdjustedValue).
		Int("breakdown_entries", len(result.Breakdown)).
		Msg("listing evaluated")
	return &result, nil
}

// Hydrate expands every unhydrated baseline placeholder in the ruleset into
// concrete rules. Safe to call repeatedly.
func (s *Service) Hydrate(ctx context.Context, rulesetID types.RulesetID) (*hydrate.Result, error) {
	return s.hydrator.HydrateRuleset(ctx, rulesetID)
}

// Revalue evaluates every stored listing against the ruleset using a bounded
// worker pool. Results keep listing order regardless of worker scheduling.
func (s *Service) Revalue(ctx context.Context, rulesetID types.RulesetID, workers int) (*batch.Summary, error) {
	ruleset, err := s.store.LoadRuleset(ctx, rulesetID)
	if err != nil {
		return nil, err
	}
	listings, err := s.store.ListListings(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]batch.Item, len(listings))
	for i, listing := range listings {
		items[i] = batch.Item{
			ListingID: listing.ID,
			Snapshot:  engine.Snapshot(listing.Attributes),
			BaseValue: listing.BaseValue,
		}
	}

	pool := batch.NewPool(workers, s.logger)
	summary := pool.Run(ctx, ruleset, items)
	return &summary, nil
}

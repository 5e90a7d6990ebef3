package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hwcatalog/appraisal/internal/types"
)

// Listing is a stored hardware listing with its attribute snapshot decoded.
type Listing struct {
	ID         types.ListingID
	Title      string
	BaseValue  float64
	Attributes map[string]any
}

type listingRow struct {
	ListingID  string  `db:"listing_id"`
	Title      string  `db:"title"`
	BaseValue  float64 `db:"base_value"`
	Attributes string  `db:"attributes"`
}

// GetListing returns one listing. Returns types.ErrListingNotFound for
// unknown IDs.
func (s *Store) GetListing(ctx context.Context, id types.ListingID) (*Listing, error) {
	var row listingRow
	if err := s.q.Get(ctx, "get-listing", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", id, types.ErrListingNotFound)
		}
		return nil, fmt.Errorf("query listing %s: %w", id, err)
	}
	return decodeListing(row)
}

// ListListings returns all listings ordered by identifier.
func (s *Store) ListListings(ctx context.Context) ([]*Listing, error) {
	var rows []listingRow
	if err := s.q.Select(ctx, "list-listings", &rows); err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	listings := make([]*Listing, 0, len(rows))
	for _, row := range rows {
		listing, err := decodeListing(row)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// SaveListing persists a listing with its attributes JSON-encoded.
func (s *Store) SaveListing(ctx context.Context, listing *Listing) error {
	attributes, err := json.Marshal(listing.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes for %s: %w", listing.ID, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.q.Exec(ctx, "insert-listing",
		string(listing.ID), listing.Title, listing.BaseValue, string(attributes), now); err != nil {
		return fmt.Errorf("insert listing %s: %w", listing.ID, err)
	}
	return nil
}

func decodeListing(row listingRow) (*Listing, error) {
	attributes := make(map[string]any)
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &attributes); err != nil {
			return nil, fmt.Errorf("decode attributes for %s: %w", row.ListingID, err)
		}
	}
	return &Listing{
		ID:         types.ListingID(row.ListingID),
		Title:      row.Title,
		BaseValue:  row.BaseValue,
		Attributes: attributes,
	}, nil
}

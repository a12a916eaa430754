// Package repository contains data access logic separated from HTTP
// handlers and from the in-memory ledger. This file defines the archive
// store that makes the ledger durable: every accepted mutation is
// written through to MySQL, and at startup the full archive is loaded
// back into the arena in id order. Row ids are the ledger's own
// sequential ids, not AUTO_INCREMENT values, so the archive preserves
// the gapless numbering the ledger guarantees.
package repository

import (
	"context"
	"database/sql"

	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
)

// LedgerStore persists restaurants and reviews. It holds no state
// beyond the connection pool and performs no validation; invariants are
// enforced by the ledger before anything reaches this layer.
type LedgerStore struct {
	db *sql.DB
}

// NewLedgerStore constructs a LedgerStore with the provided DB handle.
func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// LoadRestaurants returns every archived restaurant ordered by id.
func (s *LedgerStore) LoadRestaurants(ctx context.Context) ([]ledger.Restaurant, error) {
	const q = `SELECT id, name, location, owner_id, is_active, created_at
	           FROM restaurants ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Restaurant
	for rows.Next() {
		var r ledger.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Location, &r.OwnerID, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadReviews returns every archived review ordered by id.
func (s *LedgerStore) LoadReviews(ctx context.Context) ([]ledger.Review, error) {
	const q = `SELECT id, restaurant_id, reviewer_id,
	                  food_quality, service, atmosphere, price_value, overall,
	                  comment, is_verified, created_at
	           FROM reviews ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Review
	for rows.Next() {
		var rev ledger.Review
		if err := rows.Scan(&rev.ID, &rev.RestaurantID, &rev.ReviewerID,
			&rev.Ratings.FoodQuality, &rev.Ratings.Service, &rev.Ratings.Atmosphere,
			&rev.Ratings.PriceValue, &rev.Ratings.Overall,
			&rev.Comment, &rev.IsVerified, &rev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveRestaurant archives a newly registered restaurant.
func (s *LedgerStore) SaveRestaurant(ctx context.Context, r ledger.Restaurant) error {
	const q = `INSERT INTO restaurants (id, name, location, owner_id, is_active, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, r.ID, r.Name, r.Location, r.OwnerID, r.IsActive, r.CreatedAt)
	return err
}

// SaveReview archives a newly accepted review.
func (s *LedgerStore) SaveReview(ctx context.Context, rev ledger.Review) error {
	const q = `INSERT INTO reviews
	           (id, restaurant_id, reviewer_id, food_quality, service, atmosphere, price_value, overall, comment, is_verified, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rev.ID, rev.RestaurantID, rev.ReviewerID,
		rev.Ratings.FoodQuality, rev.Ratings.Service, rev.Ratings.Atmosphere,
		rev.Ratings.PriceValue, rev.Ratings.Overall,
		rev.Comment, rev.IsVerified, rev.CreatedAt)
	return err
}

// SetRestaurantActive records an owner's status toggle.
func (s *LedgerStore) SetRestaurantActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE restaurants SET is_active = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkReviewVerified records the one-way verified flag.
func (s *LedgerStore) MarkReviewVerified(ctx context.Context, id uint64) error {
	const q = `UPDATE reviews SET is_verified = TRUE WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

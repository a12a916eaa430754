// Package ledger implements the in-memory rating ledger: restaurants,
// reviews and the derived indexes between them. All state lives in a
// single arena guarded by one RWMutex so that every mutation is applied
// as an indivisible transaction; the check-then-act sequences inside
// SubmitReview (existence, active, duplicate, self-review, bounds) can
// never observe a stale arena. Reads take the read lock and return
// copies, so callers always see a consistent snapshot.
//
// Identifiers are allocated by explicit counters starting at 1, strictly
// increasing and gapless. Records are never deleted and ids are never
// reused, so the counters double as the total counts.
package ledger

import (
	"sync"
	"time"
)

// RatingMin and RatingMax bound every rating dimension, inclusive.
const (
	RatingMin = 1
	RatingMax = 10
)

// Restaurant is a registered establishment. OwnerID is the identity of
// the registering caller and is immutable; IsActive is toggled only by
// the owner. TotalReviews always equals the number of review ids
// indexed against the restaurant.
type Restaurant struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	OwnerID      uint64    `json:"owner_id"`
	IsActive     bool      `json:"is_active"`
	TotalReviews uint64    `json:"total_reviews"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ratings holds the five rating dimensions of a review. Overall is
// supplied by the caller and is not derived from the other four.
type Ratings struct {
	FoodQuality uint8 `json:"food_quality"`
	Service     uint8 `json:"service"`
	Atmosphere  uint8 `json:"atmosphere"`
	PriceValue  uint8 `json:"price_value"`
	Overall     uint8 `json:"overall"`
}

// Review is a single rating+comment record authored by one identity
// against one restaurant. ReviewerID is immutable. IsVerified flips
// false->true exactly once via VerifyReview and never reverts.
type Review struct {
	ID           uint64    `json:"id"`
	RestaurantID uint64    `json:"restaurant_id"`
	ReviewerID   uint64    `json:"reviewer_id"`
	Ratings      Ratings   `json:"ratings"`
	Comment      string    `json:"comment"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// reviewKey identifies the (restaurant, reviewer) pair used to enforce
// the one-review-per-user-per-restaurant rule.
type reviewKey struct {
	restaurantID uint64
	reviewerID   uint64
}

// Ledger owns all rating state. Construct it with New; the zero value
// is not usable.
type Ledger struct {
	mu sync.RWMutex

	adminID uint64 // distinguished identity with ledger-wide verify rights

	restaurants map[uint64]*Restaurant
	reviews     map[uint64]*Review

	restaurantReviews map[uint64][]uint64   // restaurant id -> review ids, insertion order
	reviewerReviews   map[uint64][]uint64   // reviewer id -> review ids, insertion order
	reviewed          map[reviewKey]struct{} // has-reviewed flags

	restaurantSeq uint64
	reviewSeq     uint64

	sink EventSink        // may be nil; notifications only, never state
	now  func() time.Time // injectable clock for tests
}

// New constructs an empty ledger. adminID is the single administrator
// identity configured at deployment time. sink may be nil, in which
// case no notifications are emitted.
func New(adminID uint64, sink EventSink) *Ledger {
	return &Ledger{
		adminID:           adminID,
		restaurants:       make(map[uint64]*Restaurant),
		reviews:           make(map[uint64]*Review),
		restaurantReviews: make(map[uint64][]uint64),
		reviewerReviews:   make(map[uint64][]uint64),
		reviewed:          make(map[reviewKey]struct{}),
		sink:              sink,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// SetSink swaps the notification sink. Mutators load the sink under the
// same lock, so swapping while the ledger is serving is safe. Used at
// startup to attach the publisher only after an archive replay, so
// restored records do not re-emit events.
func (l *Ledger) SetSink(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// RegisterRestaurant allocates the next restaurant id and stores a new
// active restaurant owned by the caller. Name and location are accepted
// as-is, empty strings included. It never fails.
func (l *Ledger) RegisterRestaurant(name, location string, caller uint64) Restaurant {
	l.mu.Lock()
	l.restaurantSeq++
	r := &Restaurant{
		ID:        l.restaurantSeq,
		Name:      name,
		Location:  location,
		OwnerID:   caller,
		IsActive:  true,
		CreatedAt: l.now(),
	}
	l.restaurants[r.ID] = r
	out := *r
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink.RestaurantRegistered(RestaurantRegisteredEvent{
			RestaurantID: out.ID,
			Name:         out.Name,
			OwnerID:      out.OwnerID,
			RegisteredAt: out.CreatedAt,
		})
	}
	return out
}

// SubmitReview records a review against a restaurant. Preconditions are
// checked in a fixed order and the first failure aborts the call with
// zero mutation: restaurant exists, restaurant active, caller has not
// reviewed it before, caller is not the owner, all five ratings within
// [RatingMin, RatingMax]. On success the review id is appended to both
// derived indexes, the has-reviewed flag is set and the restaurant's
// TotalReviews is incremented.
func (l *Ledger) SubmitReview(restaurantID uint64, ratings Ratings, comment string, caller uint64) (Review, error) {
	l.mu.Lock()
	rev, err := l.submitLocked(restaurantID, ratings, comment, caller)
	sink := l.sink
	l.mu.Unlock()
	if err != nil {
		return Review{}, err
	}

	if sink != nil {
		sink.ReviewSubmitted(ReviewSubmittedEvent{
			ReviewID:     rev.ID,
			RestaurantID: rev.RestaurantID,
			ReviewerID:   rev.ReviewerID,
			Overall:      rev.Ratings.Overall,
			SubmittedAt:  rev.CreatedAt,
		})
	}
	return rev, nil
}

func (l *Ledger) submitLocked(restaurantID uint64, ratings Ratings, comment string, caller uint64) (Review, error) {
	r, ok := l.restaurants[restaurantID]
	if !ok {
		return Review{}, ErrRestaurantNotFound
	}
	if !r.IsActive {
		return Review{}, ErrRestaurantInactive
	}
	if _, dup := l.reviewed[reviewKey{restaurantID, caller}]; dup {
		return Review{}, ErrDuplicateReview
	}
	if caller == r.OwnerID {
		return Review{}, ErrSelfReview
	}
	if err := validateRatings(ratings); err != nil {
		return Review{}, err
	}

	l.reviewSeq++
	rev := &Review{
		ID:           l.reviewSeq,
		RestaurantID: restaurantID,
		ReviewerID:   caller,
		Ratings:      ratings,
		Comment:      comment,
		CreatedAt:    l.now(),
	}
	l.reviews[rev.ID] = rev
	l.restaurantReviews[restaurantID] = append(l.restaurantReviews[restaurantID], rev.ID)
	l.reviewerReviews[caller] = append(l.reviewerReviews[caller], rev.ID)
	l.reviewed[reviewKey{restaurantID, caller}] = struct{}{}
	r.TotalReviews++
	return *rev, nil
}

// validateRatings checks each dimension in declaration order so the
// first out-of-range field is the one reported.
func validateRatings(rt Ratings) error {
	fields := []struct {
		name  string
		value uint8
	}{
		{"food_quality", rt.FoodQuality},
		{"service", rt.Service},
		{"atmosphere", rt.Atmosphere},
		{"price_value", rt.PriceValue},
		{"overall", rt.Overall},
	}
	for _, f := range fields {
		if f.value < RatingMin || f.value > RatingMax {
			return &RatingRangeError{Field: f.name, Value: f.value}
		}
	}
	return nil
}

// VerifyReview sets a review's verified flag. The caller must be the
// owning restaurant's owner or the configured administrator, and the
// review must not already be verified.
func (l *Ledger) VerifyReview(reviewID, caller uint64) (Review, error) {
	l.mu.Lock()
	rev, ok := l.reviews[reviewID]
	if !ok {
		l.mu.Unlock()
		return Review{}, ErrReviewNotFound
	}
	owner := l.restaurants[rev.RestaurantID].OwnerID
	if caller != owner && caller != l.adminID {
		l.mu.Unlock()
		return Review{}, ErrNotAuthorized
	}
	if rev.IsVerified {
		l.mu.Unlock()
		return Review{}, ErrAlreadyVerified
	}
	rev.IsVerified = true
	out := *rev
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink.ReviewVerified(ReviewVerifiedEvent{
			ReviewID:     out.ID,
			RestaurantID: out.RestaurantID,
			VerifiedAt:   l.now(),
		})
	}
	return out, nil
}

// ToggleRestaurantStatus flips a restaurant's active flag. Only the
// registering owner may toggle. It returns the new state.
func (l *Ledger) ToggleRestaurantStatus(restaurantID, caller uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.restaurants[restaurantID]
	if !ok {
		return false, ErrRestaurantNotFound
	}
	if caller != r.OwnerID {
		return false, ErrNotAuthorized
	}
	r.IsActive = !r.IsActive
	return r.IsActive, nil
}

// Restaurant returns a copy of the restaurant record.
func (l *Ledger) Restaurant(id uint64) (Restaurant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.restaurants[id]
	if !ok {
		return Restaurant{}, ErrRestaurantNotFound
	}
	return *r, nil
}

// Review returns a copy of the review record.
func (l *Ledger) Review(id uint64) (Review, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rev, ok := l.reviews[id]
	if !ok {
		return Review{}, ErrReviewNotFound
	}
	return *rev, nil
}

// HasReviewed reports whether the user has already reviewed the
// restaurant. Unknown restaurant or user ids simply yield false.
func (l *Ledger) HasReviewed(restaurantID, userID uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.reviewed[reviewKey{restaurantID, userID}]
	return ok
}

// UserReviews returns the ids of all reviews the user has authored, in
// submission order. The slice is a copy and never nil.
func (l *Ledger) UserReviews(userID uint64) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyIDs(l.reviewerReviews[userID])
}

// RestaurantReviews returns the ids of all reviews recorded against the
// restaurant, in submission order. An unknown restaurant id yields an
// empty list rather than ErrRestaurantNotFound; this permissive
// behavior is deliberate and mirrors HasReviewed.
func (l *Ledger) RestaurantReviews(restaurantID uint64) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyIDs(l.restaurantReviews[restaurantID])
}

// Counts returns the number of restaurants and reviews recorded so far.
// Because ids are gapless the counters are also the highest ids.
func (l *Ledger) Counts() (restaurants, reviews uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.restaurantSeq, l.reviewSeq
}

func copyIDs(ids []uint64) []uint64 {
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

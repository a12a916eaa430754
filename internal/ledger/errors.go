package ledger

// This file defines the error values shared across ledger operations.
// The sentinels let higher layers such as handlers distinguish failure
// scenarios: ErrNotAuthorized means the caller is neither owner nor
// administrator, ErrDuplicateReview means the caller already reviewed
// the restaurant, and so on.

import (
	"errors"
	"fmt"
)

// ErrRestaurantNotFound is returned when a restaurant id does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrReviewNotFound is returned when a review id does not exist.
var ErrReviewNotFound = errors.New("review not found")

// ErrRestaurantInactive is returned when a review is submitted against a
// restaurant whose owner has deactivated it. Handlers should translate
// this into an HTTP 409 response.
var ErrRestaurantInactive = errors.New("restaurant inactive")

// ErrDuplicateReview is returned when a caller attempts a second review
// of the same restaurant. The one-review-per-user-per-restaurant rule
// holds for all time, even after the restaurant is deactivated.
var ErrDuplicateReview = errors.New("duplicate review")

// ErrSelfReview is returned when a restaurant's registering owner
// attempts to review their own restaurant.
var ErrSelfReview = errors.New("owner cannot review own restaurant")

// ErrRatingOutOfRange is the sentinel wrapped by RatingRangeError. Use
// errors.Is against this value when the offending field does not matter.
var ErrRatingOutOfRange = errors.New("rating out of range")

// ErrNotAuthorized is returned when the caller is neither the resource
// owner nor the configured administrator. Handlers should translate
// this into an HTTP 403 response.
var ErrNotAuthorized = errors.New("not authorized")

// ErrAlreadyVerified is returned when VerifyReview is called on a review
// whose verified flag is already set. The flag transitions false->true
// exactly once and never reverts.
var ErrAlreadyVerified = errors.New("review already verified")

// RatingRangeError reports which rating dimension fell outside [1,10].
// It unwraps to ErrRatingOutOfRange so callers can match either the
// typed error or the sentinel.
type RatingRangeError struct {
	Field string // dimension name, e.g. "food_quality"
	Value uint8  // the rejected value
}

func (e *RatingRangeError) Error() string {
	return fmt.Sprintf("rating out of range: %s=%d (want 1..10)", e.Field, e.Value)
}

// Unwrap lets errors.Is(err, ErrRatingOutOfRange) succeed.
func (e *RatingRangeError) Unwrap() error { return ErrRatingOutOfRange }

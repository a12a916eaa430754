// Package handler defines the HTTP handlers that expose the rating
// ledger. Handlers parse and authenticate requests, delegate every
// decision to the ledger, and translate its typed errors into HTTP
// responses. No invariant is enforced at this layer.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
)

// Archiver persists accepted ledger mutations. *repository.LedgerStore
// is the production implementation; tests substitute a stub. A nil
// Archiver disables persistence (useful for ephemeral deployments).
type Archiver interface {
	SaveRestaurant(ctx context.Context, r ledger.Restaurant) error
	SaveReview(ctx context.Context, rev ledger.Review) error
	SetRestaurantActive(ctx context.Context, id uint64, active bool) error
	MarkReviewVerified(ctx context.Context, id uint64) error
}

// getUserID extracts the caller identity stored by the JWT middleware
// and converts it to uint64. JWT numeric claims decode as float64, so
// several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses the :id path parameter. Zero is rejected because the
// ledger never assigns it.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// ledgerError maps the ledger's error taxonomy onto HTTP responses.
// Every precondition failure carries its machine-readable name so
// clients can branch without string matching.
func ledgerError(c echo.Context, err error) error {
	var rangeErr *ledger.RatingRangeError
	switch {
	case errors.Is(err, ledger.ErrRestaurantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant_not_found"})
	case errors.Is(err, ledger.ErrReviewNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "review_not_found"})
	case errors.Is(err, ledger.ErrRestaurantInactive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "restaurant_inactive"})
	case errors.Is(err, ledger.ErrDuplicateReview):
		return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate_review"})
	case errors.Is(err, ledger.ErrSelfReview):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "self_review_forbidden"})
	case errors.As(err, &rangeErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "rating_out_of_range",
			"field": rangeErr.Field,
			"value": rangeErr.Value,
		})
	case errors.Is(err, ledger.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not_authorized"})
	case errors.Is(err, ledger.ErrAlreadyVerified):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_verified"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// archive runs a persistence call and logs any failure. The ledger has
// already committed, so the write is best effort; a lost archive row is
// repaired by the operator, not by failing a request the ledger
// accepted.
func archive(what string, err error) {
	if err != nil {
		log.Printf("archive: %s failed: %v", what, err)
	}
}

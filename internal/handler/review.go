package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
)

// ReviewHandler exposes review submission, verification and the
// review-side read accessors.
type ReviewHandler struct {
	Ledger  *ledger.Ledger
	Archive Archiver
}

// NewReviewHandler constructs a ReviewHandler. The archive may be nil;
// the ledger must not be.
func NewReviewHandler(l *ledger.Ledger, archive Archiver) *ReviewHandler {
	if l == nil {
		panic("nil ledger passed to NewReviewHandler")
	}
	return &ReviewHandler{Ledger: l, Archive: archive}
}

// Submit handles POST /v1/restaurants/:id/reviews. The ledger rejects
// the request, in order, when the restaurant is missing or inactive,
// the caller already reviewed it, the caller owns it, or any rating
// falls outside [1,10]. A rejected submission mutates nothing.
func (h *ReviewHandler) Submit(c echo.Context) error {
	caller, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	restaurantID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		FoodQuality int    `json:"food_quality"`
		Service     int    `json:"service"`
		Atmosphere  int    `json:"atmosphere"`
		PriceValue  int    `json:"price_value"`
		Overall     int    `json:"overall"`
		Comment     string `json:"comment"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	rev, err := h.Ledger.SubmitReview(restaurantID, ledger.Ratings{
		FoodQuality: narrowRating(body.FoodQuality),
		Service:     narrowRating(body.Service),
		Atmosphere:  narrowRating(body.Atmosphere),
		PriceValue:  narrowRating(body.PriceValue),
		Overall:     narrowRating(body.Overall),
	}, body.Comment, caller)
	if err != nil {
		return ledgerError(c, err)
	}
	if h.Archive != nil {
		archive("save review", h.Archive.SaveReview(c.Request().Context(), rev))
	}
	return c.JSON(http.StatusCreated, rev)
}

// narrowRating squeezes a JSON rating into the ledger's byte domain.
// Values outside [0,255] saturate to a byte the ledger still rejects,
// so a negative or huge rating reports the offending field instead of a
// generic bind failure. The ledger keeps checking bounds last, after
// the existence, active, duplicate and self-review preconditions.
func narrowRating(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Verify handles POST /v1/reviews/:id/verify. The caller must be the
// owning restaurant's owner or the configured administrator; a second
// verification attempt is rejected.
func (h *ReviewHandler) Verify(c echo.Context) error {
	caller, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	rev, err := h.Ledger.VerifyReview(id, caller)
	if err != nil {
		return ledgerError(c, err)
	}
	if h.Archive != nil {
		archive("mark review verified", h.Archive.MarkReviewVerified(c.Request().Context(), id))
	}
	return c.JSON(http.StatusOK, rev)
}

// Get handles GET /v1/reviews/:id and returns the full record.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rev, err := h.Ledger.Review(id)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, rev)
}

// UserReviews handles GET /v1/users/:id/reviews and returns the ids of
// every review the user has authored, across all restaurants, in
// submission order.
func (h *ReviewHandler) UserReviews(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ids := h.Ledger.UserReviews(id)
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "review_ids": ids})
}

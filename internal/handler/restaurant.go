package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
)

// RestaurantHandler exposes restaurant registration, status toggling
// and the restaurant-side read accessors.
type RestaurantHandler struct {
	Ledger  *ledger.Ledger
	Archive Archiver
}

// NewRestaurantHandler constructs a RestaurantHandler. The archive may
// be nil; the ledger must not be.
func NewRestaurantHandler(l *ledger.Ledger, archive Archiver) *RestaurantHandler {
	if l == nil {
		panic("nil ledger passed to NewRestaurantHandler")
	}
	return &RestaurantHandler{Ledger: l, Archive: archive}
}

// Register handles POST /v1/restaurants. Any authenticated caller may
// register; name and location are stored as given, empty included.
func (h *RestaurantHandler) Register(c echo.Context) error {
	caller, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	r := h.Ledger.RegisterRestaurant(body.Name, body.Location, caller)
	if h.Archive != nil {
		archive("save restaurant", h.Archive.SaveRestaurant(c.Request().Context(), r))
	}
	return c.JSON(http.StatusCreated, r)
}

// ToggleStatus handles POST /v1/restaurants/:id/toggle. Only the
// registering owner may flip the active flag.
func (h *RestaurantHandler) ToggleStatus(c echo.Context) error {
	caller, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	active, err := h.Ledger.ToggleRestaurantStatus(id, caller)
	if err != nil {
		return ledgerError(c, err)
	}
	if h.Archive != nil {
		archive("set restaurant active", h.Archive.SetRestaurantActive(c.Request().Context(), id, active))
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": active})
}

// Get handles GET /v1/restaurants/:id and returns the full record.
func (h *RestaurantHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	r, err := h.Ledger.Restaurant(id)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Reviews handles GET /v1/restaurants/:id/reviews. An unknown
// restaurant id yields an empty list, mirroring the ledger's permissive
// read.
func (h *RestaurantHandler) Reviews(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ids := h.Ledger.RestaurantReviews(id)
	return c.JSON(http.StatusOK, echo.Map{"restaurant_id": id, "review_ids": ids})
}

// HasReviewed handles GET /v1/restaurants/:id/reviewed?user_id=N. It
// always succeeds; unknown ids simply answer false.
func (h *RestaurantHandler) HasReviewed(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	userID, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"restaurant_id": id,
		"user_id":       userID,
		"has_reviewed":  h.Ledger.HasReviewed(id, userID),
	})
}

// Stats handles GET /v1/stats and returns the running totals.
func (h *RestaurantHandler) Stats(c echo.Context) error {
	restaurants, reviews := h.Ledger.Counts()
	return c.JSON(http.StatusOK, echo.Map{
		"restaurant_count": restaurants,
		"review_count":     reviews,
	})
}

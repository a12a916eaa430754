package ledger_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
)

const adminID = uint64(999)

// recordingSink captures emitted events for assertions.
type recordingSink struct {
	mu         sync.Mutex
	registered []ledger.RestaurantRegisteredEvent
	submitted  []ledger.ReviewSubmittedEvent
	verified   []ledger.ReviewVerifiedEvent
}

func (s *recordingSink) RestaurantRegistered(e ledger.RestaurantRegisteredEvent) {
	s.mu.Lock()
	s.registered = append(s.registered, e)
	s.mu.Unlock()
}

func (s *recordingSink) ReviewSubmitted(e ledger.ReviewSubmittedEvent) {
	s.mu.Lock()
	s.submitted = append(s.submitted, e)
	s.mu.Unlock()
}

func (s *recordingSink) ReviewVerified(e ledger.ReviewVerifiedEvent) {
	s.mu.Lock()
	s.verified = append(s.verified, e)
	s.mu.Unlock()
}

func validRatings() ledger.Ratings {
	return ledger.Ratings{FoodQuality: 8, Service: 9, Atmosphere: 7, PriceValue: 8, Overall: 8}
}

func TestRegisterRestaurantAssignsSequentialIDs(t *testing.T) {
	l := ledger.New(adminID, nil)
	for i := 1; i <= 5; i++ {
		r := l.RegisterRestaurant(fmt.Sprintf("place-%d", i), "somewhere", 10)
		require.Equal(t, uint64(i), r.ID)
		assert.True(t, r.IsActive)
		assert.Zero(t, r.TotalReviews)
		assert.False(t, r.CreatedAt.IsZero())
	}
	restaurants, reviews := l.Counts()
	assert.Equal(t, uint64(5), restaurants)
	assert.Zero(t, reviews)
}

func TestRegisterRestaurantAcceptsEmptyText(t *testing.T) {
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("", "", 1)
	got, err := l.Restaurant(r.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Name)
	assert.Empty(t, got.Location)
}

func TestReviewIDsIndependentOfRestaurantIDs(t *testing.T) {
	l := ledger.New(adminID, nil)
	l.RegisterRestaurant("a", "x", 1)
	l.RegisterRestaurant("b", "y", 1)
	r3 := l.RegisterRestaurant("c", "z", 1)

	rev, err := l.SubmitReview(r3.ID, validRatings(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev.ID)

	rev2, err := l.SubmitReview(r3.ID-1, validRatings(), "", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev2.ID)
}

// TestScenario walks the end-to-end sequence: register, review, reject
// the duplicate and the owner, verify once, reject the second verify.
func TestScenario(t *testing.T) {
	const ownerA, reviewerB = uint64(1), uint64(2)
	l := ledger.New(adminID, nil)

	r := l.RegisterRestaurant("Golden Fork", "123 Main St", ownerA)
	require.Equal(t, uint64(1), r.ID)
	assert.True(t, r.IsActive)
	assert.Zero(t, r.TotalReviews)

	rev, err := l.SubmitReview(r.ID, ledger.Ratings{FoodQuality: 8, Service: 9, Atmosphere: 7, PriceValue: 8, Overall: 8}, "Great!", reviewerB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rev.ID)
	assert.False(t, rev.IsVerified)

	got, err := l.Restaurant(r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.TotalReviews)
	assert.True(t, l.HasReviewed(r.ID, reviewerB))

	_, err = l.SubmitReview(r.ID, validRatings(), "again", reviewerB)
	assert.ErrorIs(t, err, ledger.ErrDuplicateReview)

	_, err = l.SubmitReview(r.ID, validRatings(), "mine is best", ownerA)
	assert.ErrorIs(t, err, ledger.ErrSelfReview)

	verified, err := l.VerifyReview(rev.ID, ownerA)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = l.VerifyReview(rev.ID, ownerA)
	assert.ErrorIs(t, err, ledger.ErrAlreadyVerified)
}

func TestSubmitReviewPreconditionOrder(t *testing.T) {
	const owner, diner = uint64(1), uint64(2)
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("Golden Fork", "123 Main St", owner)

	_, err := l.SubmitReview(42, validRatings(), "", diner)
	assert.ErrorIs(t, err, ledger.ErrRestaurantNotFound, "existence is checked first")

	// Record a review, then deactivate: the inactive check must win over
	// the duplicate check.
	_, err = l.SubmitReview(r.ID, validRatings(), "", diner)
	require.NoError(t, err)
	_, err = l.ToggleRestaurantStatus(r.ID, owner)
	require.NoError(t, err)
	_, err = l.SubmitReview(r.ID, validRatings(), "", diner)
	assert.ErrorIs(t, err, ledger.ErrRestaurantInactive)

	_, err = l.ToggleRestaurantStatus(r.ID, owner)
	require.NoError(t, err)

	// Duplicate wins over rating bounds: an existing reviewer with junk
	// ratings still gets ErrDuplicateReview.
	_, err = l.SubmitReview(r.ID, ledger.Ratings{}, "", diner)
	assert.ErrorIs(t, err, ledger.ErrDuplicateReview)

	// Self-review wins over rating bounds too.
	_, err = l.SubmitReview(r.ID, ledger.Ratings{}, "", owner)
	assert.ErrorIs(t, err, ledger.ErrSelfReview)
}

func TestSubmitReviewFailureLeavesNoTrace(t *testing.T) {
	const owner, diner = uint64(1), uint64(2)
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("x", "y", owner)

	_, err := l.SubmitReview(r.ID, ledger.Ratings{FoodQuality: 11, Service: 5, Atmosphere: 5, PriceValue: 5, Overall: 5}, "", diner)
	require.ErrorIs(t, err, ledger.ErrRatingOutOfRange)

	got, err := l.Restaurant(r.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalReviews)
	assert.False(t, l.HasReviewed(r.ID, diner))
	assert.Empty(t, l.UserReviews(diner))
	assert.Empty(t, l.RestaurantReviews(r.ID))
	_, reviews := l.Counts()
	assert.Zero(t, reviews, "a rejected review must not consume an id")
}

func TestRatingBounds(t *testing.T) {
	const owner = uint64(1)
	set := func(base ledger.Ratings, field string, v uint8) ledger.Ratings {
		switch field {
		case "food_quality":
			base.FoodQuality = v
		case "service":
			base.Service = v
		case "atmosphere":
			base.Atmosphere = v
		case "price_value":
			base.PriceValue = v
		case "overall":
			base.Overall = v
		}
		return base
	}

	fields := []string{"food_quality", "service", "atmosphere", "price_value", "overall"}
	for _, field := range fields {
		for _, v := range []uint8{0, 11} {
			t.Run(fmt.Sprintf("%s=%d rejected", field, v), func(t *testing.T) {
				l := ledger.New(adminID, nil)
				r := l.RegisterRestaurant("x", "y", owner)
				_, err := l.SubmitReview(r.ID, set(validRatings(), field, v), "", 2)
				require.ErrorIs(t, err, ledger.ErrRatingOutOfRange)
				var rangeErr *ledger.RatingRangeError
				require.ErrorAs(t, err, &rangeErr)
				assert.Equal(t, field, rangeErr.Field)
				assert.Equal(t, v, rangeErr.Value)
			})
		}
		for _, v := range []uint8{1, 10} {
			t.Run(fmt.Sprintf("%s=%d accepted", field, v), func(t *testing.T) {
				l := ledger.New(adminID, nil)
				r := l.RegisterRestaurant("x", "y", owner)
				_, err := l.SubmitReview(r.ID, set(validRatings(), field, v), "", 2)
				assert.NoError(t, err)
			})
		}
	}
}

func TestReviewCountConsistency(t *testing.T) {
	l := ledger.New(adminID, nil)
	r1 := l.RegisterRestaurant("a", "", 1)
	r2 := l.RegisterRestaurant("b", "", 2)

	for diner := uint64(10); diner < 16; diner++ {
		_, err := l.SubmitReview(r1.ID, validRatings(), "", diner)
		require.NoError(t, err)
		if diner%2 == 0 {
			_, err := l.SubmitReview(r2.ID, validRatings(), "", diner)
			require.NoError(t, err)
		}
	}

	for _, id := range []uint64{r1.ID, r2.ID} {
		got, err := l.Restaurant(id)
		require.NoError(t, err)
		assert.Equal(t, got.TotalReviews, uint64(len(l.RestaurantReviews(id))))
	}
	assert.Len(t, l.RestaurantReviews(r1.ID), 6)
	assert.Len(t, l.RestaurantReviews(r2.ID), 3)
}

func TestVerifyReviewAuthorization(t *testing.T) {
	const owner, diner, stranger = uint64(1), uint64(2), uint64(3)
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("x", "y", owner)
	rev, err := l.SubmitReview(r.ID, validRatings(), "", diner)
	require.NoError(t, err)

	_, err = l.VerifyReview(404, owner)
	assert.ErrorIs(t, err, ledger.ErrReviewNotFound)

	_, err = l.VerifyReview(rev.ID, stranger)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = l.VerifyReview(rev.ID, diner)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized, "the reviewer cannot self-verify")

	verified, err := l.VerifyReview(rev.ID, adminID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	// Authorization is checked before the already-verified flag.
	_, err = l.VerifyReview(rev.ID, stranger)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = l.VerifyReview(rev.ID, owner)
	assert.ErrorIs(t, err, ledger.ErrAlreadyVerified)

	got, err := l.Review(rev.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified, "the flag never reverts")
}

func TestToggleRestaurantStatus(t *testing.T) {
	const owner, diner = uint64(1), uint64(7)
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("x", "y", owner)

	_, err := l.ToggleRestaurantStatus(404, owner)
	assert.ErrorIs(t, err, ledger.ErrRestaurantNotFound)

	_, err = l.ToggleRestaurantStatus(r.ID, diner)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized)

	_, err = l.ToggleRestaurantStatus(r.ID, adminID)
	assert.ErrorIs(t, err, ledger.ErrNotAuthorized, "admin rights cover verification only")

	active, err := l.ToggleRestaurantStatus(r.ID, owner)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = l.SubmitReview(r.ID, validRatings(), "", diner)
	assert.ErrorIs(t, err, ledger.ErrRestaurantInactive)

	active, err = l.ToggleRestaurantStatus(r.ID, owner)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = l.SubmitReview(r.ID, validRatings(), "", diner)
	assert.NoError(t, err, "reactivation lifts the gate")
}

func TestPermissiveReads(t *testing.T) {
	l := ledger.New(adminID, nil)
	assert.NotNil(t, l.RestaurantReviews(12345))
	assert.Empty(t, l.RestaurantReviews(12345))
	assert.Empty(t, l.UserReviews(12345))
	assert.False(t, l.HasReviewed(12345, 1))
}

func TestUserReviewsSpanRestaurants(t *testing.T) {
	const diner = uint64(50)
	l := ledger.New(adminID, nil)
	r1 := l.RegisterRestaurant("a", "", 1)
	r2 := l.RegisterRestaurant("b", "", 2)

	rev1, err := l.SubmitReview(r1.ID, validRatings(), "", diner)
	require.NoError(t, err)
	rev2, err := l.SubmitReview(r2.ID, validRatings(), "", diner)
	require.NoError(t, err)

	assert.Equal(t, []uint64{rev1.ID, rev2.ID}, l.UserReviews(diner))
}

func TestEventsEmitted(t *testing.T) {
	sink := &recordingSink{}
	l := ledger.New(adminID, sink)

	r := l.RegisterRestaurant("Golden Fork", "123 Main St", 1)
	rev, err := l.SubmitReview(r.ID, validRatings(), "", 2)
	require.NoError(t, err)
	_, err = l.VerifyReview(rev.ID, 1)
	require.NoError(t, err)

	require.Len(t, sink.registered, 1)
	assert.Equal(t, r.ID, sink.registered[0].RestaurantID)
	assert.Equal(t, "Golden Fork", sink.registered[0].Name)
	assert.Equal(t, uint64(1), sink.registered[0].OwnerID)

	require.Len(t, sink.submitted, 1)
	assert.Equal(t, rev.ID, sink.submitted[0].ReviewID)
	assert.Equal(t, r.ID, sink.submitted[0].RestaurantID)
	assert.Equal(t, uint64(2), sink.submitted[0].ReviewerID)

	require.Len(t, sink.verified, 1)
	assert.Equal(t, rev.ID, sink.verified[0].ReviewID)
}

func TestNoEventsOnFailure(t *testing.T) {
	sink := &recordingSink{}
	l := ledger.New(adminID, sink)
	r := l.RegisterRestaurant("x", "y", 1)

	_, err := l.SubmitReview(r.ID, ledger.Ratings{}, "", 2)
	require.Error(t, err)
	_, err = l.VerifyReview(404, 1)
	require.Error(t, err)

	assert.Empty(t, sink.submitted)
	assert.Empty(t, sink.verified)
}

func TestRestoreRebuildsState(t *testing.T) {
	src := ledger.New(adminID, nil)
	r1 := src.RegisterRestaurant("a", "loc-a", 1)
	r2 := src.RegisterRestaurant("b", "loc-b", 2)
	_, err := src.SubmitReview(r1.ID, validRatings(), "one", 3)
	require.NoError(t, err)
	rev2, err := src.SubmitReview(r2.ID, validRatings(), "two", 3)
	require.NoError(t, err)
	_, err = src.VerifyReview(rev2.ID, 2)
	require.NoError(t, err)
	_, err = src.ToggleRestaurantStatus(r1.ID, 1)
	require.NoError(t, err)

	restaurants, reviews := dump(t, src)

	dst := ledger.New(adminID, nil)
	require.NoError(t, dst.Restore(restaurants, reviews))

	gotRestaurants, gotReviews := dst.Counts()
	assert.Equal(t, uint64(2), gotRestaurants)
	assert.Equal(t, uint64(2), gotReviews)

	got1, err := dst.Restaurant(r1.ID)
	require.NoError(t, err)
	assert.False(t, got1.IsActive)
	assert.Equal(t, uint64(1), got1.TotalReviews)

	gotRev2, err := dst.Review(rev2.ID)
	require.NoError(t, err)
	assert.True(t, gotRev2.IsVerified)

	assert.True(t, dst.HasReviewed(r2.ID, 3))
	assert.Equal(t, []uint64{1, 2}, dst.UserReviews(3))

	// Duplicate prevention survives the restart.
	_, err = dst.SubmitReview(r2.ID, validRatings(), "", 3)
	assert.ErrorIs(t, err, ledger.ErrDuplicateReview)

	// New ids continue the sequences.
	r3 := dst.RegisterRestaurant("c", "", 4)
	assert.Equal(t, uint64(3), r3.ID)
	rev3, err := dst.SubmitReview(r3.ID, validRatings(), "", 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rev3.ID)
}

func TestRestoreRejectsCorruptArchive(t *testing.T) {
	dst := ledger.New(adminID, nil)
	err := dst.Restore([]ledger.Restaurant{{ID: 2, OwnerID: 1}}, nil)
	assert.Error(t, err, "gap in restaurant ids")

	dst = ledger.New(adminID, nil)
	err = dst.Restore(
		[]ledger.Restaurant{{ID: 1, OwnerID: 1, IsActive: true}},
		[]ledger.Review{{ID: 1, RestaurantID: 9, ReviewerID: 2}},
	)
	assert.Error(t, err, "review references unknown restaurant")

	dst = ledger.New(adminID, nil)
	dst.RegisterRestaurant("x", "", 1)
	err = dst.Restore(nil, nil)
	assert.Error(t, err, "restore into a non-empty ledger")
}

func TestConcurrentRegistrationsStayGapless(t *testing.T) {
	const n = 64
	l := ledger.New(adminID, nil)

	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			r := l.RegisterRestaurant("r", "", owner)
			ids <- r.ID
		}(uint64(i + 1))
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, n)
	for id := range ids {
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	for i := uint64(1); i <= n; i++ {
		assert.True(t, seen[i], "id %d missing", i)
	}
}

// dump reads every record back out of a ledger in id order.
func dump(t *testing.T, l *ledger.Ledger) ([]ledger.Restaurant, []ledger.Review) {
	t.Helper()
	nr, nv := l.Counts()
	restaurants := make([]ledger.Restaurant, 0, nr)
	for id := uint64(1); id <= nr; id++ {
		r, err := l.Restaurant(id)
		require.NoError(t, err)
		restaurants = append(restaurants, r)
	}
	reviews := make([]ledger.Review, 0, nv)
	for id := uint64(1); id <= nv; id++ {
		rev, err := l.Review(id)
		require.NoError(t, err)
		reviews = append(reviews, rev)
	}
	return restaurants, reviews
}

func TestSetSinkRoutesLaterEvents(t *testing.T) {
	l := ledger.New(adminID, nil)
	r := l.RegisterRestaurant("Quiet Start", "", 7) // nil sink, nothing emitted

	sink := &recordingSink{}
	l.SetSink(sink)

	_, err := l.SubmitReview(r.ID, validRatings(), "", 42)
	require.NoError(t, err)

	assert.Empty(t, sink.registered)
	require.Len(t, sink.submitted, 1)
	assert.Equal(t, r.ID, sink.submitted[0].RestaurantID)
}

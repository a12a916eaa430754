package ledger

import "fmt"

// Restore loads previously persisted records into an empty ledger and
// rebuilds every derived structure: the per-restaurant and per-reviewer
// indexes, the has-reviewed flags, the review counters on each
// restaurant and both id sequences. Records must be supplied in id
// order, the order the archive returns them in.
//
// Restore validates the referential and sequencing invariants of the
// archive and refuses to load a corrupt one: ids must be gapless from 1
// and every review must reference a known restaurant.
func (l *Ledger) Restore(restaurants []Restaurant, reviews []Review) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.restaurants) != 0 || len(l.reviews) != 0 {
		return fmt.Errorf("restore: ledger is not empty")
	}

	for i := range restaurants {
		r := restaurants[i]
		if r.ID != uint64(i)+1 {
			return fmt.Errorf("restore: restaurant ids not gapless: got %d at position %d", r.ID, i)
		}
		r.TotalReviews = 0 // recomputed below from the review index
		cp := r
		l.restaurants[r.ID] = &cp
	}
	l.restaurantSeq = uint64(len(restaurants))

	for i := range reviews {
		rev := reviews[i]
		if rev.ID != uint64(i)+1 {
			return fmt.Errorf("restore: review ids not gapless: got %d at position %d", rev.ID, i)
		}
		r, ok := l.restaurants[rev.RestaurantID]
		if !ok {
			return fmt.Errorf("restore: review %d references unknown restaurant %d", rev.ID, rev.RestaurantID)
		}
		cp := rev
		l.reviews[rev.ID] = &cp
		l.restaurantReviews[rev.RestaurantID] = append(l.restaurantReviews[rev.RestaurantID], rev.ID)
		l.reviewerReviews[rev.ReviewerID] = append(l.reviewerReviews[rev.ReviewerID], rev.ID)
		l.reviewed[reviewKey{rev.RestaurantID, rev.ReviewerID}] = struct{}{}
		r.TotalReviews++
	}
	l.reviewSeq = uint64(len(reviews))
	return nil
}

package ledger

import "time"

// RestaurantRegisteredEvent is emitted after a restaurant is created.
// It carries enough information for downstream consumers to log, notify
// or trigger analytics without querying the ledger.
type RestaurantRegisteredEvent struct {
	RestaurantID uint64    `json:"restaurant_id"`
	Name         string    `json:"name"`
	OwnerID      uint64    `json:"owner_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ReviewSubmittedEvent is emitted after a review passes all preconditions
// and is recorded.
type ReviewSubmittedEvent struct {
	ReviewID     uint64    `json:"review_id"`
	RestaurantID uint64    `json:"restaurant_id"`
	ReviewerID   uint64    `json:"reviewer_id"`
	Overall      uint8     `json:"overall"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ReviewVerifiedEvent is emitted after a review's verified flag is set.
type ReviewVerifiedEvent struct {
	ReviewID     uint64    `json:"review_id"`
	RestaurantID uint64    `json:"restaurant_id"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// EventSink receives ledger notifications after a successful mutation.
// Delivery is fire-and-forget: the ledger does not depend on the sink
// for correctness and ignores any failure inside it. Implementations
// must be safe for concurrent use.
type EventSink interface {
	RestaurantRegistered(e RestaurantRegisteredEvent)
	ReviewSubmitted(e ReviewSubmittedEvent)
	ReviewVerified(e ReviewVerifiedEvent)
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// MemberJoinedEvent is published after the join transaction commits.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type MemberJoinedEvent struct {
	EventID           string `json:"event_id"`
	ListingID         uint64 `json:"listing_id"`
	ServiceName       string `json:"service_name"`
	OwnerID           uint64 `json:"owner_id"`
	MemberID          uint64 `json:"member_id"`
	MemberEmail       string `json:"member_email"`
	PricePerSlotCents uint32 `json:"price_per_slot_cents"`
	SlotsLeft         uint32 `json:"slots_left"`
	JoinedAt          string `json:"joined_at"`
}

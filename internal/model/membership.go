package model

import "time"

// Membership records a user occupying one slot of a listing.  A
// membership is created by the join workflow together with the slot
// decrement in a single transaction.  The unique key on
// (listing_id, user_id) guarantees at most one membership per pair;
// only the 'active' status is ever reached in the current lifecycle
// (there is no leave operation).
//
// Fields:
//  ID        – primary key identifier.
//  ListingID – listing whose slot is occupied.
//  UserID    – member occupying the slot (never the listing owner).
//  Status    – 'active' or 'inactive'.
//  CreatedAt – join timestamp.
type Membership struct {
	ID        uint64    // memberships.id
	ListingID uint64    // memberships.listing_id
	UserID    uint64    // memberships.user_id
	Status    string    // memberships.status
	CreatedAt time.Time // memberships.created_at
}

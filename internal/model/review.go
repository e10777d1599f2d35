package model

import "time"

// Review is a single 1–5 rating left on a listing by its owner or by
// an active member.  The unique key on (listing_id, user_id) makes
// repeated submissions an upsert: the latest score and comment win.
// Aggregate ratings are never stored; they are recomputed from this
// table on every read.
//
// Fields:
//  ID        – primary key identifier.
//  ListingID – listing being rated.
//  UserID    – reviewing user.
//  Score     – integer rating between 1 and 5 inclusive.
//  Comment   – optional text; empty input is normalized to nil.
//  CreatedAt – first submission timestamp.
//  UpdatedAt – last overwrite timestamp.
type Review struct {
	ID        uint64    // reviews.id
	ListingID uint64    // reviews.listing_id
	UserID    uint64    // reviews.user_id
	Score     uint8     // reviews.score
	Comment   *string   // reviews.comment (nullable)
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}

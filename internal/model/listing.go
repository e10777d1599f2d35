package model

import "time"

// Listing represents a subscription seat-sharing offer as stored in
// the `listings` table.  A listing is exclusively owned by the user
// who created it.  All prices are stored in integer cents to avoid
// floating point drift.  The available slot counter is only ever
// mutated inside the join transaction and must satisfy
// 0 <= AvailableSlots <= TotalSlots at all times.
//
// Fields:
//  ID                 – primary key identifier.
//  OwnerID            – user who posted the listing.
//  ServiceName        – name of the shared service (e.g. a streaming provider).
//  TotalSlots         – total number of seats on the plan (>= 1).
//  AvailableSlots     – seats not yet claimed by members.
//  MonthlyPriceCents  – full monthly price of the plan in cents.
//  PricePerSlotCents  – derived per-seat share (monthly price / total slots).
//  Description        – optional free-form text (nil when absent).
//  Status             – 'active' or 'inactive'; only 'active' listings are browsable.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Listing struct {
	ID                uint64    // listings.id
	OwnerID           uint64    // listings.owner_id
	ServiceName       string    // listings.service_name
	TotalSlots        uint32    // listings.total_slots
	AvailableSlots    uint32    // listings.available_slots
	MonthlyPriceCents uint32    // listings.monthly_price_cents
	PricePerSlotCents uint32    // listings.price_per_slot_cents
	Description       *string   // listings.description (nullable)
	Status            string    // listings.status
	CreatedAt         time.Time // listings.created_at
	UpdatedAt         time.Time // listings.updated_at
}

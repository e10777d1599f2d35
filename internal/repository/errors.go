// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// string matching. For example, ErrNoSlots signals that the join
// transaction found no remaining slot to claim.
package repository

import "errors"

// ErrListingNotFound is returned when a listing lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrListingNotFound = errors.New("listing not found")

// ErrAlreadyMember is returned when a user already holds an active
// membership on the listing they are trying to join. Handlers should
// translate this into an HTTP 400 response.
var ErrAlreadyMember = errors.New("already a member")

// ErrNoSlots is returned when a join finds no available slot, either
// on the snapshot check or when the guarded decrement affects no row
// under a concurrent join. Handlers should translate this into an
// HTTP 400 response.
var ErrNoSlots = errors.New("no available slots")

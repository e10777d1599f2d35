package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/subsplit/internal/model"
	"github.com/iliyamo/subsplit/internal/queue"
	"github.com/iliyamo/subsplit/internal/repository"
	queue_publisher "github.com/iliyamo/subsplit/internal/service"
)

// JoinListing claims one open slot on a listing.  The whole check-and-
// claim sequence runs inside a single transaction with the listing row
// locked, so two concurrent joiners racing for the last slot cannot
// both succeed: the loser's guarded decrement touches zero rows and the
// transaction rolls back.
func (h *ListingHandler) JoinListing(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Listings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Listings.GetForUpdateTx(ctx, tx, listingID)
	if err != nil {
		if err == repository.ErrListingNotFound {
			h.rejectJoin("not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if rec.OwnerID == uid {
		h.rejectJoin("own_listing")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot join your own listing"})
	}
	existing, err := h.Memberships.GetActiveTx(ctx, tx, listingID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if existing != nil {
		h.rejectJoin("already_member")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already a member of this listing"})
	}
	if rec.Status != "active" || rec.AvailableSlots < 1 {
		h.rejectJoin("no_slots")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no available slots"})
	}

	if _, err := h.Memberships.CreateTx(ctx, tx, listingID, uid); err != nil {
		if err == repository.ErrAlreadyMember {
			h.rejectJoin("already_member")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already a member of this listing"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "join failed"})
	}
	if err := h.Listings.DecrementSlotTx(ctx, tx, listingID); err != nil {
		if err == repository.ErrNoSlots {
			h.rejectJoin("no_slots")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no available slots"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "join failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	if h.Metrics != nil {
		h.Metrics.RecordJoin()
	}

	detail, err := h.Listings.GetDetail(ctx, listingID)
	if err != nil {
		// The join committed; report success even if the re-read failed.
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}

	h.publishJoined(rec, detail, uid)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "listing": detail})
}

func (h *ListingHandler) rejectJoin(reason string) {
	if h.Metrics != nil {
		h.Metrics.RecordJoinRejection(reason)
	}
}

// publishJoined emits a member.joined event on a best-effort basis.
// A broker outage must never fail a committed join.
func (h *ListingHandler) publishJoined(rec model.Listing, detail *repository.ListingSummary, uid uint64) {
	email := ""
	for _, m := range detail.Members {
		if m.UserID == uid {
			email = m.Email
			break
		}
	}
	evt := queue.MemberJoinedEvent{
		EventID:           uuid.NewString(),
		ListingID:         rec.ID,
		ServiceName:       rec.ServiceName,
		OwnerID:           rec.OwnerID,
		MemberID:          uid,
		MemberEmail:       email,
		PricePerSlotCents: rec.PricePerSlotCents,
		SlotsLeft:         detail.AvailableSlots,
		JoinedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queue_publisher.PublishMemberJoined(ctx, evt); err != nil {
			log.Printf("publish member.joined failed: %v", err)
		}
	}()
}

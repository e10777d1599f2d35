package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/subsplit/internal/model"
	"github.com/iliyamo/subsplit/internal/repository"
)

type ratingReq struct {
	Score   *int   `json:"score"`
	Comment string `json:"comment"`
}

// SubmitRating stores or replaces the caller's rating of a listing.
// Only the owner or an active member may rate.  Validation runs before
// any write so an out-of-range score never touches the database.
func (h *ListingHandler) SubmitRating(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	var req ratingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Score == nil || *req.Score < 1 || *req.Score > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "score must be between 1 and 5"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Listings.GetByID(ctx, listingID)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	allowed := rec.OwnerID == uid
	if !allowed {
		member, err := h.Memberships.IsActiveMember(ctx, listingID, uid)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		allowed = member
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the owner or an active member may rate this listing"})
	}

	stored, err := h.Reviews.Upsert(ctx, model.Review{
		ListingID: listingID,
		UserID:    uid,
		Score:     uint8(*req.Score),
		Comment:   normalizeComment(req.Comment),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save rating failed"})
	}
	if h.Metrics != nil {
		h.Metrics.RecordRating()
	}
	return c.JSON(http.StatusOK, echo.Map{"rating": stored})
}

// ListRatings returns all ratings of a listing, newest first, together
// with the aggregate recomputed from the stored rows.
func (h *ListingHandler) ListRatings(c echo.Context) error {
	listingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || listingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Listings.GetByID(ctx, listingID); err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	items, err := h.Reviews.ListByListing(ctx, listingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	avg, count, err := h.Reviews.Aggregate(ctx, listingID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ratings":      items,
		"avg_rating":   avg,
		"rating_count": count,
	})
}

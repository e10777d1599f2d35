package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/subsplit/internal/repository"
)

// UserListings returns the listings the caller owns and the listings
// the caller has joined.  The two queries are independent, so they run
// concurrently.
func (h *ListingHandler) UserListings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		wg       sync.WaitGroup
		owned    []repository.ListingSummary
		memberOf []repository.ListingSummary
		ownedErr error
		membErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		owned, ownedErr = h.Listings.ListOwnedBy(ctx, uid)
	}()
	go func() {
		defer wg.Done()
		memberOf, membErr = h.Listings.ListMemberOf(ctx, uid)
	}()
	wg.Wait()

	if ownedErr != nil || membErr != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"owned":     owned,
		"member_of": memberOf,
	})
}

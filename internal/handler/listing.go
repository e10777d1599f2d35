package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/subsplit/internal/metrics"
	"github.com/iliyamo/subsplit/internal/model"
	"github.com/iliyamo/subsplit/internal/repository"
)

// ListingHandler bundles the repositories the listing endpoints need.
type ListingHandler struct {
	Listings    *repository.ListingRepo
	Memberships *repository.MembershipRepo
	Reviews     *repository.ReviewRepo
	Metrics     *metrics.Collector
}

// NewListingHandler wires the handler. Metrics may be nil in tests.
func NewListingHandler(l *repository.ListingRepo, m *repository.MembershipRepo, r *repository.ReviewRepo, col *metrics.Collector) *ListingHandler {
	if l == nil || m == nil || r == nil {
		panic("NewListingHandler: nil repository")
	}
	return &ListingHandler{Listings: l, Memberships: m, Reviews: r, Metrics: col}
}

type createListingReq struct {
	ServiceName       string  `json:"service_name"`
	TotalSlots        int     `json:"total_slots"`
	AvailableSlots    *int    `json:"available_slots"` // optional, defaults to total_slots
	MonthlyPriceCents int64   `json:"monthly_price_cents"`
	Description       *string `json:"description"`
}

// CreateListing publishes a new subscription share.
// The per-slot price is derived server-side from the monthly price, so
// clients cannot invent their own split.
func (h *ListingHandler) CreateListing(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createListingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ServiceName = strings.TrimSpace(req.ServiceName)
	if req.ServiceName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service_name is required"})
	}
	if req.TotalSlots < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_slots must be at least 1"})
	}
	if req.MonthlyPriceCents < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "monthly_price_cents must be positive"})
	}
	available := req.TotalSlots
	if req.AvailableSlots != nil {
		available = *req.AvailableSlots
	}
	if available < 0 || available > req.TotalSlots {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "available_slots must be between 0 and total_slots"})
	}
	perSlot := req.MonthlyPriceCents / int64(req.TotalSlots)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec := model.Listing{
		OwnerID:           ownerID,
		ServiceName:       req.ServiceName,
		TotalSlots:        uint32(req.TotalSlots),
		AvailableSlots:    uint32(available),
		MonthlyPriceCents: uint32(req.MonthlyPriceCents),
		PricePerSlotCents: uint32(perSlot),
		Description:       normalizeComment(deref(req.Description)),
	}
	if err := h.Listings.Create(ctx, &rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                   rec.ID,
		"owner_id":             rec.OwnerID,
		"service_name":         rec.ServiceName,
		"total_slots":          rec.TotalSlots,
		"available_slots":      rec.AvailableSlots,
		"monthly_price_cents":  rec.MonthlyPriceCents,
		"price_per_slot_cents": rec.PricePerSlotCents,
		"description":          rec.Description,
		"status":               rec.Status,
		"created_at":           rec.CreatedAt,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListListings is the public browse endpoint. ?service= filters by
// exact service name; ?include=full embeds members and rating details.
func (h *ListingHandler) ListListings(c echo.Context) error {
	service := strings.TrimSpace(c.QueryParam("service"))
	full := c.QueryParam("include") == "full"

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Listings.ListOpen(ctx, service, full)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": items, "count": len(items)})
}

// GetListing returns a single listing with members and ratings.
func (h *ListingHandler) GetListing(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Listings.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrListingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// ListServices returns the distinct service names that currently have
// joinable listings, for populating a filter dropdown.
func (h *ListingHandler) ListServices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	names, err := h.Listings.DistinctServices(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"services": names})
}

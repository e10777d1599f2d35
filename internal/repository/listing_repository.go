package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/subsplit/internal/model"
)

// ListingRepo provides CRUD and query operations for subscription
// listings.  Listings hold the shared slot counter mutated by the
// join workflow, so the repo exposes *Tx variants for the statements
// that must run inside the join transaction.  All timestamp fields
// are assumed to be stored in UTC.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning several repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

// Create inserts a new listing and populates the generated ID and the
// database defaults (status, timestamps) on the provided record.
func (r *ListingRepo) Create(ctx context.Context, rec *model.Listing) error {
	const q = `INSERT INTO listings
	           (owner_id, service_name, total_slots, available_slots, monthly_price_cents, price_per_slot_cents, description)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		rec.OwnerID, rec.ServiceName, rec.TotalSlots, rec.AvailableSlots,
		rec.MonthlyPriceCents, rec.PricePerSlotCents, rec.Description)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults
	const sel = `SELECT id, owner_id, service_name, total_slots, available_slots,
	                    monthly_price_cents, price_per_slot_cents, description, status, created_at, updated_at
	             FROM listings WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, rec.ID).Scan(
		&rec.ID, &rec.OwnerID, &rec.ServiceName, &rec.TotalSlots, &rec.AvailableSlots,
		&rec.MonthlyPriceCents, &rec.PricePerSlotCents, &rec.Description, &rec.Status,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
}

// GetByID returns a single listing row.  It returns ErrListingNotFound
// when no listing with the given ID exists.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	const q = `SELECT id, owner_id, service_name, total_slots, available_slots,
	                  monthly_price_cents, price_per_slot_cents, description, status, created_at, updated_at
	           FROM listings WHERE id = ?`
	var rec model.Listing
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.OwnerID, &rec.ServiceName, &rec.TotalSlots, &rec.AvailableSlots,
		&rec.MonthlyPriceCents, &rec.PricePerSlotCents, &rec.Description, &rec.Status,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return rec, ErrListingNotFound
	}
	return rec, err
}

// GetForUpdateTx loads a listing inside a transaction with a row lock
// so that concurrent joins serialize on the slot counter.  It returns
// ErrListingNotFound when the listing does not exist.
func (r *ListingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Listing, error) {
	const q = `SELECT id, owner_id, service_name, total_slots, available_slots,
	                  monthly_price_cents, price_per_slot_cents, description, status, created_at, updated_at
	           FROM listings WHERE id = ? FOR UPDATE`
	var rec model.Listing
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.OwnerID, &rec.ServiceName, &rec.TotalSlots, &rec.AvailableSlots,
		&rec.MonthlyPriceCents, &rec.PricePerSlotCents, &rec.Description, &rec.Status,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return rec, ErrListingNotFound
	}
	return rec, err
}

// DecrementSlotTx consumes one available slot within the join
// transaction.  The WHERE guard keeps the counter from ever going
// negative: when a concurrent join already consumed the last slot the
// update affects no row and ErrNoSlots is returned, which must roll
// back the whole transaction.
func (r *ListingRepo) DecrementSlotTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE listings SET available_slots = available_slots - 1
	           WHERE id = ? AND available_slots > 0`
	result, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSlots
	}
	return nil
}

// ListingMember is one active member row as exposed in listing payloads.
type ListingMember struct {
	UserID   uint64    `json:"user_id"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListingReview is one review row as exposed in listing payloads.
type ListingReview struct {
	UserID    uint64    `json:"user_id"`
	Email     string    `json:"email"`
	Score     uint8     `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListingSummary is the shape returned by list endpoints: the listing
// row plus the owner's email and the recomputed aggregate rating.
// Members and Ratings are only populated for full/detail views.
type ListingSummary struct {
	ID                uint64          `json:"id"`
	OwnerID           uint64          `json:"owner_id"`
	OwnerEmail        string          `json:"owner_email"`
	ServiceName       string          `json:"service_name"`
	TotalSlots        uint32          `json:"total_slots"`
	AvailableSlots    uint32          `json:"available_slots"`
	MonthlyPriceCents uint32          `json:"monthly_price_cents"`
	PricePerSlotCents uint32          `json:"price_per_slot_cents"`
	Description       *string         `json:"description,omitempty"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	AvgRating         float64         `json:"avg_rating"`
	RatingCount       uint32          `json:"rating_count"`
	Members           []ListingMember `json:"members,omitempty"`
	Ratings           []ListingReview `json:"ratings,omitempty"`
}

// summaryColumns selects the listing row, owner email and aggregate
// rating in one statement.  The reviews are pre-aggregated per listing
// in a derived table so no N+1 query is needed for list views.
const summaryColumns = `SELECT l.id, l.owner_id, u.email, l.service_name, l.total_slots, l.available_slots,
       l.monthly_price_cents, l.price_per_slot_cents, l.description, l.status, l.created_at,
       COALESCE(rv.avg_score, 0), COALESCE(rv.cnt, 0)
FROM listings l
JOIN users u ON u.id = l.owner_id
LEFT JOIN (SELECT listing_id, AVG(score) AS avg_score, COUNT(*) AS cnt
           FROM reviews GROUP BY listing_id) rv ON rv.listing_id = l.id`

func scanSummary(rows *sql.Rows) (ListingSummary, error) {
	var s ListingSummary
	var desc sql.NullString
	err := rows.Scan(
		&s.ID, &s.OwnerID, &s.OwnerEmail, &s.ServiceName, &s.TotalSlots, &s.AvailableSlots,
		&s.MonthlyPriceCents, &s.PricePerSlotCents, &desc, &s.Status, &s.CreatedAt,
		&s.AvgRating, &s.RatingCount,
	)
	if err != nil {
		return s, err
	}
	if desc.Valid {
		d := desc.String
		s.Description = &d
	}
	return s, nil
}

// ListOpen returns active listings that still have at least one
// available slot, newest first.  When service is non-empty the result
// is restricted to exact matches on service_name.  When full is true
// each summary additionally carries its active members and reviews.
func (r *ListingRepo) ListOpen(ctx context.Context, service string, full bool) ([]ListingSummary, error) {
	q := summaryColumns + `
WHERE l.status = 'active' AND l.available_slots > 0`
	args := []interface{}{}
	if service != "" {
		q += ` AND l.service_name = ?`
		args = append(args, service)
	}
	q += ` ORDER BY l.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ListingSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if full {
		if err := r.populateMembers(ctx, items); err != nil {
			return nil, err
		}
		if err := r.populateRatings(ctx, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ListOwnedBy returns all listings created by the given user, newest
// first, with active members populated.
func (r *ListingRepo) ListOwnedBy(ctx context.Context, ownerID uint64) ([]ListingSummary, error) {
	q := summaryColumns + `
WHERE l.owner_id = ?
ORDER BY l.created_at DESC`
	return r.listWithMembers(ctx, q, ownerID)
}

// ListMemberOf returns all listings on which the given user holds an
// active membership, newest first, with active members populated.
func (r *ListingRepo) ListMemberOf(ctx context.Context, userID uint64) ([]ListingSummary, error) {
	q := summaryColumns + `
WHERE l.id IN (SELECT listing_id FROM memberships WHERE user_id = ? AND status = 'active')
ORDER BY l.created_at DESC`
	return r.listWithMembers(ctx, q, userID)
}

func (r *ListingRepo) listWithMembers(ctx context.Context, q string, arg interface{}) ([]ListingSummary, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ListingSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.populateMembers(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// populateMembers fills the Members slice of every summary with the
// listing's active members using a single IN query, following the
// same pattern as populateRatings.
func (r *ListingRepo) populateMembers(ctx context.Context, items []ListingSummary) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(items))
	placeholders := make([]string, 0, len(items))
	index := make(map[uint64]int, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
		placeholders = append(placeholders, "?")
		index[items[i].ID] = i
		items[i].Members = []ListingMember{}
	}
	q := `SELECT m.listing_id, m.user_id, u.email, m.created_at
	      FROM memberships m
	      JOIN users u ON u.id = m.user_id
	      WHERE m.status = 'active' AND m.listing_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY m.listing_id, m.created_at`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var lid uint64
		var m ListingMember
		if err := rows.Scan(&lid, &m.UserID, &m.Email, &m.JoinedAt); err != nil {
			return err
		}
		i, ok := index[lid]
		if !ok {
			continue
		}
		items[i].Members = append(items[i].Members, m)
	}
	return rows.Err()
}

// populateRatings fills the Ratings slice of every summary with the
// listing's reviews, newest first.
func (r *ListingRepo) populateRatings(ctx context.Context, items []ListingSummary) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(items))
	placeholders := make([]string, 0, len(items))
	index := make(map[uint64]int, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
		placeholders = append(placeholders, "?")
		index[items[i].ID] = i
		items[i].Ratings = []ListingReview{}
	}
	q := `SELECT rv.listing_id, rv.user_id, u.email, rv.score, rv.comment, rv.created_at
	      FROM reviews rv
	      JOIN users u ON u.id = rv.user_id
	      WHERE rv.listing_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY rv.listing_id, rv.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var lid uint64
		var rev ListingReview
		var comment sql.NullString
		if err := rows.Scan(&lid, &rev.UserID, &rev.Email, &rev.Score, &comment, &rev.CreatedAt); err != nil {
			return err
		}
		if comment.Valid {
			c := comment.String
			rev.Comment = &c
		}
		i, ok := index[lid]
		if !ok {
			continue
		}
		items[i].Ratings = append(items[i].Ratings, rev)
	}
	return rows.Err()
}

// GetDetail returns the full nested view of one listing: owner email,
// active members, reviews newest-first and the recomputed aggregate
// rating.  It returns ErrListingNotFound when the listing is absent.
func (r *ListingRepo) GetDetail(ctx context.Context, id uint64) (*ListingSummary, error) {
	q := summaryColumns + `
WHERE l.id = ?`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrListingNotFound
	}
	s, err := scanSummary(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()
	items := []ListingSummary{s}
	if err := r.populateMembers(ctx, items); err != nil {
		return nil, err
	}
	if err := r.populateRatings(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// DistinctServices returns the distinct service names of active
// listings that still have open slots, ascending.  The result is used
// by clients to populate the service filter.
func (r *ListingRepo) DistinctServices(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT service_name FROM listings
	           WHERE status = 'active' AND available_slots > 0
	           ORDER BY service_name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

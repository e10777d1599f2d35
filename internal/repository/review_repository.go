package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/subsplit/internal/model"
)

// ReviewRepo provides access to the reviews ledger.  Reviews are
// keyed on (listing_id, user_id); a repeated submission overwrites
// the previous score and comment via an upsert.  Aggregate ratings
// are never stored, they are recomputed from this table on read.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// ReviewRecord is the stored review echoed back to the submitting
// client, including the reviewer's email.
type ReviewRecord struct {
	ID        uint64    `json:"id"`
	ListingID uint64    `json:"listing_id"`
	UserID    uint64    `json:"user_id"`
	Email     string    `json:"email"`
	Score     uint8     `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Upsert inserts the user's review for a listing or overwrites the
// existing one.  The comment must already be normalized (trimmed,
// nil for empty).  It returns the stored row.
func (r *ReviewRepo) Upsert(ctx context.Context, rev model.Review) (ReviewRecord, error) {
	const q = `INSERT INTO reviews (listing_id, user_id, score, comment)
	           VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE score = VALUES(score), comment = VALUES(comment)`
	var rec ReviewRecord
	if _, err := r.db.ExecContext(ctx, q, rev.ListingID, rev.UserID, rev.Score, rev.Comment); err != nil {
		return rec, err
	}
	// Query back the row to pick up the ID and timestamps regardless of
	// whether the statement inserted or updated.
	const sel = `SELECT rv.id, rv.listing_id, rv.user_id, u.email, rv.score, rv.comment, rv.created_at, rv.updated_at
	             FROM reviews rv
	             JOIN users u ON u.id = rv.user_id
	             WHERE rv.listing_id = ? AND rv.user_id = ?`
	var c sql.NullString
	err := r.db.QueryRowContext(ctx, sel, rev.ListingID, rev.UserID).Scan(
		&rec.ID, &rec.ListingID, &rec.UserID, &rec.Email, &rec.Score, &c, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}
	if c.Valid {
		v := c.String
		rec.Comment = &v
	}
	return rec, nil
}

// ListByListing returns all reviews of a listing with reviewer
// emails, newest first.  When no reviews exist an empty slice is
// returned.
func (r *ReviewRepo) ListByListing(ctx context.Context, listingID uint64) ([]ReviewRecord, error) {
	const q = `SELECT rv.id, rv.listing_id, rv.user_id, u.email, rv.score, rv.comment, rv.created_at, rv.updated_at
	           FROM reviews rv
	           JOIN users u ON u.id = rv.user_id
	           WHERE rv.listing_id = ?
	           ORDER BY rv.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ReviewRecord, 0)
	for rows.Next() {
		var rec ReviewRecord
		var c sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ListingID, &rec.UserID, &rec.Email, &rec.Score, &c, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if c.Valid {
			v := c.String
			rec.Comment = &v
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// Aggregate recomputes the arithmetic mean and count of the listing's
// scores.  A listing without reviews yields 0, 0.
func (r *ReviewRepo) Aggregate(ctx context.Context, listingID uint64) (float64, uint32, error) {
	const q = `SELECT COALESCE(AVG(score), 0), COUNT(*) FROM reviews WHERE listing_id = ?`
	var avg float64
	var count uint32
	err := r.db.QueryRowContext(ctx, q, listingID).Scan(&avg, &count)
	return avg, count, err
}

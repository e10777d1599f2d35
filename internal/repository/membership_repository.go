package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/subsplit/internal/model"
)

// MembershipRepo provides access to the memberships ledger.  The
// insert lives behind a *Tx method because it must commit together
// with the slot decrement performed by the join workflow.
type MembershipRepo struct {
	db *sql.DB
}

// NewMembershipRepo returns a new MembershipRepo bound to the given database.
func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

// GetActiveTx returns the user's active membership on the listing, or
// nil when none exists.  It runs inside the join transaction so the
// answer is consistent with the locked listing row.
func (r *MembershipRepo) GetActiveTx(ctx context.Context, tx *sql.Tx, listingID, userID uint64) (*model.Membership, error) {
	const q = `SELECT id, listing_id, user_id, status, created_at FROM memberships
	           WHERE listing_id = ? AND user_id = ? AND status = 'active' LIMIT 1`
	var m model.Membership
	err := tx.QueryRowContext(ctx, q, listingID, userID).Scan(&m.ID, &m.ListingID, &m.UserID, &m.Status, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateTx inserts an active membership row within the join
// transaction and returns its generated ID.  The unique key on
// (listing_id, user_id) backs up the GetActiveTx check: a duplicate
// insert surfaces as ErrAlreadyMember.
func (r *MembershipRepo) CreateTx(ctx context.Context, tx *sql.Tx, listingID, userID uint64) (uint64, error) {
	const q = `INSERT INTO memberships (listing_id, user_id) VALUES (?, ?)`
	result, err := tx.ExecContext(ctx, q, listingID, userID)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrAlreadyMember
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// IsActiveMember reports whether the user holds an active membership
// on the listing, outside of any transaction.  Used by the rating
// workflow's eligibility check.
func (r *MembershipRepo) IsActiveMember(ctx context.Context, listingID, userID uint64) (bool, error) {
	const q = `SELECT 1 FROM memberships WHERE listing_id = ? AND user_id = ? AND status = 'active' LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, listingID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

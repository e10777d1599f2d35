package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/subsplit/internal/model"
)

func newListingRepo(t *testing.T) (*ListingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewListingRepo(db), mock
}

func TestListingCreatePopulatesDefaults(t *testing.T) {
	repo, mock := newListingRepo(t)

	mock.ExpectExec(`INSERT INTO listings`).
		WithArgs(uint64(1), "Netflix", uint32(4), uint32(4), uint32(1600), uint32(400), nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	now := time.Now()
	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "service_name", "total_slots", "available_slots",
			"monthly_price_cents", "price_per_slot_cents", "description", "status",
			"created_at", "updated_at",
		}).AddRow(7, 1, "Netflix", 4, 4, 1600, 400, nil, "active", now, now))

	rec := model.Listing{
		OwnerID:           1,
		ServiceName:       "Netflix",
		TotalSlots:        4,
		AvailableSlots:    4,
		MonthlyPriceCents: 1600,
		PricePerSlotCents: 400,
	}
	require.NoError(t, repo.Create(context.Background(), &rec))

	assert.Equal(t, uint64(7), rec.ID)
	assert.Equal(t, "active", rec.Status) // DB default picked up by re-read
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementSlotTxGuardsAgainstZero(t *testing.T) {
	repo, mock := newListingRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE listings SET available_slots = available_slots - 1`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	err = repo.DecrementSlotTx(context.Background(), tx, 7)
	assert.True(t, errors.Is(err, ErrNoSlots))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateTxNotFound(t *testing.T) {
	repo, mock := newListingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tx, err := repo.DB().Begin()
	require.NoError(t, err)

	_, err = repo.GetForUpdateTx(context.Background(), tx, 99)
	assert.True(t, errors.Is(err, ErrListingNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

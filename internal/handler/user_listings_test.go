package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserListings(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	// the owned and member-of queries run concurrently
	mock.MatchExpectationsInOrder(false)

	now := time.Now()
	mock.ExpectQuery(`WHERE l\.owner_id = \?`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(summaryRowCols).
			AddRow(7, 42, "me@example.com", "Netflix", 4, 2, 1600, 400, nil, "active", now, 0.0, 0))
	mock.ExpectQuery(`WHERE l\.id IN \(SELECT listing_id FROM memberships`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(summaryRowCols))
	// only the owned result is non-empty, so a single members query runs
	mock.ExpectQuery(`FROM memberships m`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"listing_id", "user_id", "email", "created_at"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/user/listings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(42))

	require.NoError(t, h.UserListings(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Owned []struct {
			ID uint64 `json:"id"`
		} `json:"owned"`
		MemberOf []json.RawMessage `json:"member_of"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Owned, 1)
	assert.Equal(t, uint64(7), body.Owned[0].ID)
	assert.Empty(t, body.MemberOf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListingsUnauthorized(t *testing.T) {
	h, _, _ := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/user/listings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.UserListings(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

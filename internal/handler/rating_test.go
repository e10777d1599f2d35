package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatingContext(t *testing.T, userID interface{}, listingID, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/listings/"+listingID+"/ratings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/listings/:id/ratings")
	c.SetParamNames("id")
	c.SetParamValues(listingID)
	if userID != nil {
		c.Set("user_id", userID)
	}
	return c, rec
}

func expectListingByID(mock sqlmock.Sqlmock, id, ownerID uint64) {
	now := time.Now()
	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(listingRowCols()).
			AddRow(id, ownerID, "Spotify", 5, 2, 1000, 200, nil, "active", now, now))
}

// Out-of-range scores are rejected before the database is touched, so
// the mock carries no expectations at all.
func TestSubmitRatingScoreBounds(t *testing.T) {
	for _, body := range []string{
		`{"score": 0}`,
		`{"score": 6}`,
		`{"score": -1}`,
		`{"comment": "no score at all"}`,
	} {
		h, mock, _ := newTestHandler(t)
		c, rec := newRatingContext(t, uint64(42), "7", body)
		require.NoError(t, h.SubmitRating(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
		assert.Contains(t, rec.Body.String(), "between 1 and 5")
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestSubmitRatingForbiddenForStranger(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	expectListingByID(mock, 7, 1)
	mock.ExpectQuery(`SELECT 1 FROM memberships`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnError(sql.ErrNoRows)

	c, rec := newRatingContext(t, uint64(42), "7", `{"score": 4}`)
	require.NoError(t, h.SubmitRating(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRatingOwnerUpsert(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	// owner id matches caller, so no membership check runs
	expectListingByID(mock, 7, 42)
	mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs(uint64(7), uint64(42), uint8(5), "great value").
		WillReturnResult(sqlmock.NewResult(3, 1))
	now := time.Now()
	mock.ExpectQuery(`FROM reviews rv`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "user_id", "email", "score", "comment", "created_at", "updated_at"}).
			AddRow(3, 7, 42, "owner@example.com", 5, "great value", now, now))

	c, rec := newRatingContext(t, uint64(42), "7", `{"score": 5, "comment": "  great value  "}`)
	require.NoError(t, h.SubmitRating(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Rating struct {
			Score   uint8   `json:"score"`
			Comment *string `json:"comment"`
		} `json:"rating"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint8(5), body.Rating.Score)
	require.NotNil(t, body.Rating.Comment)
	assert.Equal(t, "great value", *body.Rating.Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRatingMemberBlankCommentStoredAsNull(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	expectListingByID(mock, 7, 1)
	mock.ExpectQuery(`SELECT 1 FROM memberships`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs(uint64(7), uint64(42), uint8(3), nil).
		WillReturnResult(sqlmock.NewResult(4, 1))
	now := time.Now()
	mock.ExpectQuery(`FROM reviews rv`).
		WithArgs(uint64(7), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "user_id", "email", "score", "comment", "created_at", "updated_at"}).
			AddRow(4, 7, 42, "member@example.com", 3, nil, now, now))

	c, rec := newRatingContext(t, uint64(42), "7", `{"score": 3, "comment": "   "}`)
	require.NoError(t, h.SubmitRating(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitRatingListingNotFound(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	mock.ExpectQuery(`FROM listings WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	c, rec := newRatingContext(t, uint64(42), "99", `{"score": 4}`)
	require.NoError(t, h.SubmitRating(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRatingsAggregates(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	expectListingByID(mock, 7, 1)
	now := time.Now()
	mock.ExpectQuery(`FROM reviews rv`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "listing_id", "user_id", "email", "score", "comment", "created_at", "updated_at"}).
			AddRow(1, 7, 42, "a@example.com", 5, "smooth", now, now).
			AddRow(2, 7, 43, "b@example.com", 3, nil, now, now))
	mock.ExpectQuery(`SELECT COALESCE\(AVG\(score\), 0\), COUNT\(\*\) FROM reviews`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"avg", "count"}).AddRow(4.0, 2))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/listings/7/ratings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/listings/:id/ratings")
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.ListRatings(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Ratings     []json.RawMessage `json:"ratings"`
		AvgRating   float64           `json:"avg_rating"`
		RatingCount uint32            `json:"rating_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Ratings, 2)
	assert.InEpsilon(t, 4.0, body.AvgRating, 1e-9)
	assert.Equal(t, uint32(2), body.RatingCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

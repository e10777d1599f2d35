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

	"github.com/iliyamo/subsplit/internal/config"
	"github.com/iliyamo/subsplit/internal/repository"
	"github.com/iliyamo/subsplit/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4, // minimum cost keeps the test fast
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("new@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(uint64(5), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := postJSON(t, "/v1/auth/register", `{"email": "New@Example.com ", "password": "hunter22"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		User struct {
			ID    uint64 `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(5), body.User.ID)
	assert.Equal(t, "new@example.com", body.User.Email) // lowercased and trimmed
	assert.NotEmpty(t, body.Access.Token)
	assert.NotEmpty(t, body.Refresh.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("dup@example.com", sqlmock.AnyArg()).
		WillReturnError(&mysqlDupErr{})

	c, rec := postJSON(t, "/v1/auth/register", `{"email": "dup@example.com", "password": "hunter22"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// mysqlDupErr mimics the MySQL duplicate-key error text the repository
// matches on.
type mysqlDupErr struct{}

func (*mysqlDupErr) Error() string { return "Error 1062 (23000): Duplicate entry" }

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("correct horse", 4)
	require.NoError(t, err)
	mock.ExpectQuery(`FROM users WHERE email=\?`).
		WithArgs("u@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(5, "u@example.com", hash, true, time.Now(), time.Now()))

	c, rec := postJSON(t, "/v1/auth/login", `{"email": "u@example.com", "password": "wrong"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`FROM users WHERE email=\?`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	c, rec := postJSON(t, "/v1/auth/login", `{"email": "nobody@example.com", "password": "whatever"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`FROM refresh_tokens`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	c, rec := postJSON(t, "/v1/auth/refresh", `{"refresh_token": "deadbeef"}`)
	require.NoError(t, h.Refresh(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

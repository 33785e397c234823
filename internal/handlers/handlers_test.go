package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"libtrack/internal/auth"
	"libtrack/internal/handlers"
	"libtrack/internal/models"
	"libtrack/internal/repositories"
	"libtrack/internal/seed"
	"libtrack/internal/services"
)

// newTestRouter boots the full stack against a seeded in-memory store, the
// same wiring as cmd/main.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}, &models.Issue{}, &models.Activity{}))
	require.NoError(t, seed.Run(db))

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	issueRepo := repositories.NewIssueRepository(db)
	activityRepo := repositories.NewActivityRepository(db)

	library := services.NewLibraryService(db, userRepo, bookRepo, issueRepo, activityRepo)
	users := services.NewUserService(db, userRepo, issueRepo, 0)
	session := auth.NewSession(userRepo)

	router := gin.New()
	handlers.RegisterRoutes(router, library, users, session)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, email string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)

	// No session yet.
	w := doJSON(t, router, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Bad credentials.
	w = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "user@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	login(t, router, "user@example.com")

	w = doJSON(t, router, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var identity auth.Identity
	decode(t, w, &identity)
	assert.Equal(t, "user@example.com", identity.Email)

	w = doJSON(t, router, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := newTestRouter(t)

	// Anonymous → 401.
	w := doJSON(t, router, http.MethodGet, "/issues", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Regular user → 403.
	login(t, router, "user@example.com")
	w = doJSON(t, router, http.MethodGet, "/issues", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin → 200.
	login(t, router, "admin@example.com")
	w = doJSON(t, router, http.MethodGet, "/issues", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBorrowAndReturnOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "jane@example.com")

	w := doJSON(t, router, http.MethodGet, "/books/available", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var available []models.Book
	decode(t, w, &available)
	require.Len(t, available, 5)
	bookID := available[0].ID

	w = doJSON(t, router, http.MethodPost, "/books/"+bookID.String()+"/borrow", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var issue models.Issue
	decode(t, w, &issue)
	assert.Equal(t, bookID, issue.BookID)
	assert.Nil(t, issue.ReturnDate)

	// Borrowing the same book again conflicts.
	w = doJSON(t, router, http.MethodPost, "/books/"+bookID.String()+"/borrow", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/me/issues", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []services.IssueDetail
	decode(t, w, &mine)
	require.Len(t, mine, 1)

	w = doJSON(t, router, http.MethodPost, "/issues/"+issue.ID.String()+"/return", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Double return conflicts.
	w = doJSON(t, router, http.MethodPost, "/issues/"+issue.ID.String()+"/return", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The book is back on the shelf.
	w = doJSON(t, router, http.MethodGet, "/books/"+bookID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var book models.Book
	decode(t, w, &book)
	assert.True(t, book.IsAvailable)
}

func TestAdminStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "admin@example.com")

	w := doJSON(t, router, http.MethodGet, "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats services.AdminStats
	decode(t, w, &stats)
	assert.Equal(t, 6, stats.TotalBooks)
	assert.Equal(t, 5, stats.AvailableBooks)
	assert.Equal(t, 1, stats.IssuedBooks)
	assert.Equal(t, 2, stats.TotalUsers)
}

func TestBadIDsAndBodies(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "admin@example.com")

	w := doJSON(t, router, http.MethodGet, "/books/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/books", gin.H{"title": "No Author"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"name":     "Short Password",
		"email":    "short@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateEmailOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"name":     "New Member",
		"email":    "new@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/auth/register", gin.H{
		"name":     "Imposter",
		"email":    "new@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

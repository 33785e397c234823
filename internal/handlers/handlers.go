package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libtrack/internal/auth"
	"libtrack/internal/models"
	"libtrack/internal/services"
)

const contextIdentity = "identity"

type LibraryHandler struct {
	library services.LibraryService
	users   services.UserService
	session *auth.Session
}

func RegisterRoutes(r *gin.Engine, library services.LibraryService, users services.UserService, session *auth.Session) {
	h := &LibraryHandler{library: library, users: users, session: session}

	// Public endpoints
	r.POST("/auth/login", h.login)
	r.POST("/auth/logout", h.logout)
	r.POST("/auth/register", h.register)
	r.GET("/books", h.listBooks)
	r.GET("/books/available", h.listAvailableBooks)
	r.GET("/books/:id", h.getBook)

	// Endpoints for any logged-in identity
	authed := r.Group("/", h.requireAuth)
	authed.GET("/auth/me", h.me)
	authed.POST("/books/:id/borrow", h.borrowBook)
	authed.POST("/issues/:id/return", h.returnBook)
	authed.GET("/me/issues", h.listMyIssues)
	authed.GET("/me/stats", h.userStats)

	// Admin endpoints
	admin := r.Group("/", h.requireAuth, h.requireAdmin)
	admin.POST("/books", h.addBook)
	admin.PUT("/books/:id", h.updateBook)
	admin.DELETE("/books/:id", h.deleteBook)
	admin.POST("/issues", h.issueBook)
	admin.GET("/issues", h.listAllIssues)
	admin.GET("/users", h.listUsers)
	admin.POST("/users", h.addUser)
	admin.DELETE("/users/:id", h.deleteUser)
	admin.POST("/users/:id/promote", h.promoteUser)
	admin.GET("/users/:id/issues", h.listUserIssues)
	admin.GET("/admin/stats", h.adminStats)
}

// ─── Middleware ───────────────────────────────────────────────────────────────

func (h *LibraryHandler) requireAuth(c *gin.Context) {
	identity, err := h.session.Current()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.Set(contextIdentity, identity)
	c.Next()
}

func (h *LibraryHandler) requireAdmin(c *gin.Context) {
	identity := currentIdentity(c)
	if identity == nil || identity.Role != models.UserRoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}

func currentIdentity(c *gin.Context) *auth.Identity {
	val, ok := c.Get(contextIdentity)
	if !ok {
		return nil
	}
	identity, _ := val.(*auth.Identity)
	return identity
}

// ─── Error Mapping ────────────────────────────────────────────────────────────

// respondError translates the domain error taxonomy into HTTP statuses:
// not-found → 404, conflict → 409, bad credentials / no session → 401,
// anything else → 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrIssueNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrBookUnavailable),
		errors.Is(err, services.ErrIssueAlreadyReturned),
		errors.Is(err, services.ErrBookCurrentlyIssued),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUserHasOpenIssues):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidRole):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *LibraryHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, err := h.session.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *LibraryHandler) logout(c *gin.Context) {
	h.session.Logout()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *LibraryHandler) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c))
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *LibraryHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ─── Catalogue ────────────────────────────────────────────────────────────────

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.library.ListBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) listAvailableBooks(c *gin.Context) {
	books, err := h.library.ListAvailableBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	book, err := h.library.GetBook(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

type addBookRequest struct {
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
	ISBN   string `json:"isbn" binding:"required"`
}

func (h *LibraryHandler) addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.library.AddBook(req.Title, req.Author, req.ISBN)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

type updateBookRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	ISBN   *string `json:"isbn"`
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}

	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Availability is owned by the issue lifecycle and cannot be set here.
	book, err := h.library.UpdateBook(id, models.BookUpdate{
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) deleteBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}
	if err := h.library.DeleteBook(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ─── Circulation ──────────────────────────────────────────────────────────────

// borrowBook issues the book to whoever is logged in.
func (h *LibraryHandler) borrowBook(c *gin.Context) {
	id, ok := parseID(c, "book")
	if !ok {
		return
	}

	identity := currentIdentity(c)
	issue, err := h.library.IssueBook(id, identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

type issueBookRequest struct {
	BookID string `json:"book_id" binding:"required,uuid"`
	UserID string `json:"user_id" binding:"required,uuid"`
}

// issueBook is the admin flow: issue any book to any user.
func (h *LibraryHandler) issueBook(c *gin.Context) {
	var req issueBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	issue, err := h.library.IssueBook(bookID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

func (h *LibraryHandler) returnBook(c *gin.Context) {
	id, ok := parseID(c, "issue")
	if !ok {
		return
	}
	issue, err := h.library.ReturnBook(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (h *LibraryHandler) listAllIssues(c *gin.Context) {
	issues, err := h.library.ListAllIssues()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (h *LibraryHandler) listMyIssues(c *gin.Context) {
	identity := currentIdentity(c)
	issues, err := h.library.ListIssuesForUser(identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (h *LibraryHandler) listUserIssues(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	issues, err := h.library.ListIssuesForUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// ─── Users ────────────────────────────────────────────────────────────────────

func (h *LibraryHandler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type addUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

func (h *LibraryHandler) addUser(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.AddUser(req.Name, req.Email, req.Password, models.UserRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *LibraryHandler) deleteUser(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *LibraryHandler) promoteUser(c *gin.Context) {
	id, ok := parseID(c, "user")
	if !ok {
		return
	}
	user, err := h.users.PromoteUser(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ─── Dashboards ───────────────────────────────────────────────────────────────

func (h *LibraryHandler) adminStats(c *gin.Context) {
	stats, err := h.library.AdminStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *LibraryHandler) userStats(c *gin.Context) {
	identity := currentIdentity(c)
	stats, err := h.library.UserStats(identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

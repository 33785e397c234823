// Package auth holds the single-slot session used in place of a real
// session/token mechanism. One identity is "logged in" per process; a
// deployment that needs real sessions should replace this with the host
// platform's middleware rather than extend it.
package auth

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libtrack/internal/models"
	"libtrack/internal/repositories"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the
	// password does not match. The two cases are deliberately not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotAuthenticated is returned by Current when no identity is logged in.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Identity is the subset of a user account carried by the session. The
// password hash never leaves the store.
type Identity struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// Session owns the current-identity slot. It is constructed in main and passed
// to the handlers; the mutex is needed because the HTTP server handles
// requests concurrently.
type Session struct {
	userRepo repositories.UserRepository

	mu      sync.Mutex
	current *Identity
}

func NewSession(userRepo repositories.UserRepository) *Session {
	return &Session{userRepo: userRepo}
}

// Login verifies the credentials against the stored bcrypt hash and stores the
// identity in the slot, replacing any previous one.
func (s *Session) Login(email, password string) (*Identity, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] Login: unknown email %s", email)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("[WARN] Login: password mismatch for %s", email)
		return nil, ErrInvalidCredentials
	}

	identity := &Identity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()

	log.Printf("[INFO] Login: %s logged in (role=%s)", user.Email, user.Role)
	return identity, nil
}

// Logout clears the slot. Logging out when nobody is logged in is not an
// error.
func (s *Session) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	log.Printf("[INFO] Logout: session cleared")
}

// Current returns the logged-in identity or ErrNotAuthenticated.
func (s *Session) Current() (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNotAuthenticated
	}
	identity := *s.current
	return &identity, nil
}

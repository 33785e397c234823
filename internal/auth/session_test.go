package auth_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"libtrack/internal/auth"
	"libtrack/internal/models"
	"libtrack/internal/repositories"
)

func newSession(t *testing.T) (*auth.Session, *models.User) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Name:     "Regular User",
		Email:    "user@example.com",
		Password: string(hash),
		Role:     models.UserRoleUser,
	}
	userRepo := repositories.NewUserRepository(db)
	require.NoError(t, userRepo.Create(nil, user))

	return auth.NewSession(userRepo), user
}

func TestLoginLogoutFlow(t *testing.T) {
	session, user := newSession(t)

	_, err := session.Current()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)

	identity, err := session.Login("user@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, user.Email, identity.Email)
	assert.Equal(t, models.UserRoleUser, identity.Role)

	current, err := session.Current()
	require.NoError(t, err)
	assert.Equal(t, identity.ID, current.ID)

	session.Logout()
	_, err = session.Current()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	session, _ := newSession(t)

	_, err := session.Login("user@example.com", "wrong-password")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = session.Login("nobody@example.com", "password123")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// A failed login must not establish an identity.
	_, err = session.Current()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLogoutWithoutLoginIsHarmless(t *testing.T) {
	session, _ := newSession(t)
	session.Logout()
	_, err := session.Current()
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

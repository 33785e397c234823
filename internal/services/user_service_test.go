package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"libtrack/internal/models"
	"libtrack/internal/repositories"
	"libtrack/internal/services"
)

func newUserService(t *testing.T) (services.UserService, *fixture) {
	t.Helper()
	f := newFixture(t)
	issueRepo := repositories.NewIssueRepository(f.db)
	return services.NewUserService(f.db, f.users, issueRepo, bcrypt.MinCost), f
}

func TestAddUserHashesPassword(t *testing.T) {
	svc, f := newUserService(t)

	user, err := svc.AddUser("Jane Smith", "jane@example.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.NotEqual(t, "password123", user.Password)

	stored, err := f.users.GetByEmail(nil, "jane@example.com")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestAddUserDuplicateEmailConflict(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.AddUser("Jane Smith", "jane@example.com", "password123", "")
	require.NoError(t, err)

	_, err = svc.AddUser("Someone Else", "jane@example.com", "hunter22!", "")
	require.ErrorIs(t, err, services.ErrEmailTaken)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAddUserRejectsUnknownRole(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.AddUser("Jane Smith", "jane@example.com", "password123", "librarian")
	require.ErrorIs(t, err, services.ErrInvalidRole)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRegisterForcesUserRole(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Register("Jane Smith", "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleUser, user.Role)
}

func TestPromoteUserIsIdempotent(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.AddUser("Jane Smith", "jane@example.com", "password123", "")
	require.NoError(t, err)

	promoted, err := svc.PromoteUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, promoted.Role)

	again, err := svc.PromoteUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, again.Role)

	_, err = svc.PromoteUser(uuid.New())
	require.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestDeleteUserBlockedByOpenIssue(t *testing.T) {
	svc, f := newUserService(t)

	user, err := svc.AddUser("Jane Smith", "jane@example.com", "password123", "")
	require.NoError(t, err)
	book := f.createBook(t, "Neuromancer")

	issue, err := f.library.IssueBook(book.ID, user.ID)
	require.NoError(t, err)

	err = svc.DeleteUser(user.ID)
	require.ErrorIs(t, err, services.ErrUserHasOpenIssues)

	_, err = f.library.ReturnBook(issue.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(user.ID))
	_, err = svc.GetUser(user.ID)
	require.ErrorIs(t, err, services.ErrUserNotFound)

	// History keeps its own name snapshot.
	detail, err := f.library.GetIssue(issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", detail.UserName)
}

func TestDeleteMissingUser(t *testing.T) {
	svc, _ := newUserService(t)
	err := svc.DeleteUser(uuid.New())
	require.ErrorIs(t, err, services.ErrUserNotFound)
}

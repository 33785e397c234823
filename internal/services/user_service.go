package services

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libtrack/internal/models"
	"libtrack/internal/repositories"
)

var (
	// ErrEmailTaken is returned when registration or admin-add uses an email
	// that already belongs to an account.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrUserHasOpenIssues is returned when a delete is attempted on a user
	// who still holds borrowed books.
	ErrUserHasOpenIssues = errors.New("user has open issues")

	// ErrInvalidRole is returned when AddUser is given a role other than
	// "user" or "admin".
	ErrInvalidRole = errors.New("invalid role")
)

// UserService defines account management: registration, the admin user list,
// deletion, and promotion.
type UserService interface {
	ListUsers() ([]models.User, error)
	GetUser(id uuid.UUID) (*models.User, error)
	AddUser(name, email, password string, role models.UserRole) (*models.User, error)
	Register(name, email, password string) (*models.User, error)
	DeleteUser(id uuid.UUID) error
	PromoteUser(id uuid.UUID) (*models.User, error)
}

type userService struct {
	db         *gorm.DB
	userRepo   repositories.UserRepository
	issueRepo  repositories.IssueRepository
	bcryptCost int
}

// NewUserService wires up a UserService. bcryptCost of 0 selects the bcrypt
// default.
func NewUserService(db *gorm.DB, userRepo repositories.UserRepository, issueRepo repositories.IssueRepository, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		db:         db,
		userRepo:   userRepo,
		issueRepo:  issueRepo,
		bcryptCost: bcryptCost,
	}
}

func (s *userService) ListUsers() ([]models.User, error) {
	return s.userRepo.List(nil)
}

func (s *userService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// AddUser creates an account with a bcrypt-hashed password. The email must not
// belong to an existing account; the uniqueness check and the insert share one
// transaction so the unique index never fires in normal operation.
func (s *userService) AddUser(name, email, password string, role models.UserRole) (*models.User, error) {
	switch role {
	case "":
		role = models.UserRoleUser
	case models.UserRoleUser, models.UserRoleAdmin:
	default:
		log.Printf("[WARN] AddUser: rejecting unknown role %q for %s", role, email)
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		log.Printf("[ERROR] AddUser: failed to hash password: %v", err)
		return nil, err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     role,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.userRepo.GetByEmail(tx, email)
		if err == nil {
			log.Printf("[WARN] AddUser: email %s already registered", email)
			return ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.userRepo.Create(tx, user); err != nil {
			log.Printf("[ERROR] AddUser: failed to create user record: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] AddUser: created user %s (id=%s, role=%s)", user.Email, user.ID, user.Role)
	return user, nil
}

// Register is self-service signup: AddUser with the role forced to "user".
func (s *userService) Register(name, email, password string) (*models.User, error) {
	return s.AddUser(name, email, password, models.UserRoleUser)
}

// DeleteUser removes an account. A user still holding borrowed books cannot be
// deleted; closed issues keep their own name snapshot and survive the delete.
func (s *userService) DeleteUser(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		open, err := s.issueRepo.CountOpenByUser(tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			log.Printf("[WARN] DeleteUser: user %s has %d open issue(s), refusing delete", id, open)
			return ErrUserHasOpenIssues
		}

		if err := s.userRepo.Delete(tx, id); err != nil {
			log.Printf("[ERROR] DeleteUser: failed to delete user %s: %v", id, err)
			return err
		}
		log.Printf("[INFO] DeleteUser: deleted user %s", id)
		return nil
	})
}

// PromoteUser sets the role to admin. Promoting an admin again is a no-op and
// returns the unchanged record.
func (s *userService) PromoteUser(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role == models.UserRoleAdmin {
		return user, nil
	}

	if err := s.userRepo.UpdateRole(nil, id, models.UserRoleAdmin); err != nil {
		log.Printf("[ERROR] PromoteUser: failed to update role for user %s: %v", id, err)
		return nil, err
	}
	log.Printf("[INFO] PromoteUser: user %s promoted to admin", id)
	return s.userRepo.GetByID(nil, id)
}

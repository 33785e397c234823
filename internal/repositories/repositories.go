package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libtrack/internal/models"
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	List(db *gorm.DB) ([]models.User, error)
	UpdateRole(db *gorm.DB, id uuid.UUID, role models.UserRole) error
	Delete(db *gorm.DB, id uuid.UUID) error
	CountByRole(db *gorm.DB, role models.UserRole) (int64, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	List(db *gorm.DB) ([]models.Book, error)
	ListAvailable(db *gorm.DB) ([]models.Book, error)
	Update(db *gorm.DB, id uuid.UUID, update models.BookUpdate) error
	SetAvailability(db *gorm.DB, id uuid.UUID, available bool) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type IssueRepository interface {
	Create(db *gorm.DB, issue *models.Issue) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Issue, error)
	List(db *gorm.DB) ([]models.Issue, error)
	ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Issue, error)
	GetOpenByBook(db *gorm.DB, bookID uuid.UUID) (*models.Issue, error)
	CountOpenByUser(db *gorm.DB, userID uuid.UUID) (int64, error)
	MarkReturned(db *gorm.DB, issueID uuid.UUID, returnedAt time.Time) error
}

type ActivityRepository interface {
	Create(db *gorm.DB, activity *models.Activity) error
	ListRecent(db *gorm.DB, limit int) ([]models.Activity, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateRole(db *gorm.DB, id uuid.UUID, role models.UserRole) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role).
		Error
}

func (r *userRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}

func (r *userRepository) CountByRole(db *gorm.DB, role models.UserRole) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	if err := db.Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Order("created_at").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListAvailable(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where("is_available = ?", true).Order("created_at").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// Update applies only the fields set on the BookUpdate. The column map is
// built from the typed struct so identifiers and timestamps cannot be merged
// over; gorm refreshes updated_at itself.
func (r *bookRepository) Update(db *gorm.DB, id uuid.UUID, update models.BookUpdate) error {
	if db == nil {
		db = r.db
	}
	columns := map[string]interface{}{}
	if update.Title != nil {
		columns["title"] = *update.Title
	}
	if update.Author != nil {
		columns["author"] = *update.Author
	}
	if update.ISBN != nil {
		columns["isbn"] = *update.ISBN
	}
	if update.IsAvailable != nil {
		columns["is_available"] = *update.IsAvailable
	}
	if len(columns) == 0 {
		return nil
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Updates(columns).
		Error
}

func (r *bookRepository) SetAvailability(db *gorm.DB, id uuid.UUID, available bool) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		Update("is_available", available).
		Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

type issueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

func (r *issueRepository) Create(db *gorm.DB, issue *models.Issue) error {
	if db == nil {
		db = r.db
	}
	return db.Create(issue).Error
}

func (r *issueRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Issue, error) {
	if db == nil {
		db = r.db
	}
	var issue models.Issue
	if err := db.First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) List(db *gorm.DB) ([]models.Issue, error) {
	if db == nil {
		db = r.db
	}
	var issues []models.Issue
	if err := db.Order("issue_date DESC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *issueRepository) ListByUser(db *gorm.DB, userID uuid.UUID) ([]models.Issue, error) {
	if db == nil {
		db = r.db
	}
	var issues []models.Issue
	if err := db.Where("user_id = ?", userID).Order("issue_date DESC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

// GetOpenByBook returns the open (unreturned) issue for a book. At most one
// may exist at a time.
func (r *issueRepository) GetOpenByBook(db *gorm.DB, bookID uuid.UUID) (*models.Issue, error) {
	if db == nil {
		db = r.db
	}
	var issue models.Issue
	err := db.Where("book_id = ? AND return_date IS NULL", bookID).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) CountOpenByUser(db *gorm.DB, userID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var n int64
	err := db.Model(&models.Issue{}).
		Where("user_id = ? AND return_date IS NULL", userID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *issueRepository) MarkReturned(db *gorm.DB, issueID uuid.UUID, returnedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Issue{}).
		Where("id = ? AND return_date IS NULL", issueID).
		Update("return_date", returnedAt).
		Error
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(db *gorm.DB, activity *models.Activity) error {
	if db == nil {
		db = r.db
	}
	return db.Create(activity).Error
}

func (r *activityRepository) ListRecent(db *gorm.DB, limit int) ([]models.Activity, error) {
	if db == nil {
		db = r.db
	}
	var activities []models.Activity
	if err := db.Order("created_at DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

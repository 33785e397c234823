package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type ActivityAction string

const (
	ActivityActionIssue  ActivityAction = "issue"
	ActivityActionReturn ActivityAction = "return"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type Book struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title  string    `gorm:"size:255;not null" json:"title"`
	Author string    `gorm:"size:255;not null" json:"author"`
	ISBN   string    `gorm:"size:32;not null" json:"isbn"`
	// No default tag: gorm drops zero-value fields with a default from the
	// INSERT, which would silently flip a false here back to true. Creators
	// always set availability explicitly.
	IsAvailable bool      `gorm:"not null;index" json:"is_available"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// Issue is a borrowing record linking one book to one user. ReturnDate is nil
// while the issue is open and is set exactly once on return; issues are never
// deleted. BookTitle/BookAuthor/UserName are snapshots taken at issue time so
// the history stays readable after catalogue or user changes.
type Issue struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	IssueDate  time.Time  `gorm:"not null" json:"issue_date"`
	ReturnDate *time.Time `json:"return_date"`
	BookTitle  string     `gorm:"size:255;not null" json:"book_title"`
	BookAuthor string     `gorm:"size:255;not null" json:"book_author"`
	UserName   string     `gorm:"size:255;not null" json:"user_name"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

// Activity is an append-only log entry recorded by the issue/return flows and
// shown newest-first on the admin dashboard.
type Activity struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action    ActivityAction `gorm:"size:16;not null" json:"action"`
	UserName  string         `gorm:"size:255;not null" json:"user"`
	BookTitle string         `gorm:"size:255;not null" json:"book"`
	CreatedAt time.Time      `gorm:"not null;index" json:"date"`
}

// IDs are assigned application-side so the same models work on both the
// in-memory sqlite engine and postgres.

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (i *Issue) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BookUpdate enumerates the mutable catalogue fields of a Book. A nil field is
// left untouched. Identifiers and timestamps are deliberately absent so a
// partial update can never overwrite them.
type BookUpdate struct {
	Title       *string
	Author      *string
	ISBN        *string
	IsAvailable *bool
}

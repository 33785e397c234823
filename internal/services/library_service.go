package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libtrack/internal/models"
	"libtrack/internal/repositories"
)

// ─── Loan Policy Constants ────────────────────────────────────────────────────

const (
	// LoanPeriodDays is the number of days a user may keep a book before it is
	// considered overdue.
	LoanPeriodDays = 14

	// ReturningSoonWindowDays is the look-ahead window for the "returning soon"
	// indicator: an open issue due within this many days (and not yet overdue)
	// counts as returning soon.
	ReturningSoonWindowDays = 7

	// RecentActivityLimit caps how many log entries the admin dashboard shows.
	RecentActivityLimit = 10
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrIssueNotFound is returned when the referenced issue does not exist.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrBookUnavailable is returned when an issue is attempted for a book that
	// already has an open issue.
	ErrBookUnavailable = errors.New("book is not available")

	// ErrIssueAlreadyReturned is returned when a return is attempted on an
	// issue whose return date is already set.
	ErrIssueAlreadyReturned = errors.New("issue already returned")

	// ErrBookCurrentlyIssued is returned when a delete is attempted on a book
	// with an open issue.
	ErrBookCurrentlyIssued = errors.New("book is currently issued")
)

// ─── Derived Issue Fields ─────────────────────────────────────────────────────

// DueDate is the date by which an issue must be returned: issue date plus the
// loan period. It is derived, never stored.
func DueDate(issue *models.Issue) time.Time {
	return issue.IssueDate.AddDate(0, 0, LoanPeriodDays)
}

// IsOverdue reports whether an issue is open and past its due date.
func IsOverdue(issue *models.Issue, now time.Time) bool {
	return issue.ReturnDate == nil && DueDate(issue).Before(now)
}

// IsReturningSoon reports whether an open issue is due within the
// returning-soon window but not yet overdue.
func IsReturningSoon(issue *models.Issue, now time.Time) bool {
	if issue.ReturnDate != nil {
		return false
	}
	due := DueDate(issue)
	if due.Before(now) {
		return false
	}
	return !due.After(now.AddDate(0, 0, ReturningSoonWindowDays))
}

// IssueDetail is an issue enriched with its derived loan-policy fields for
// presentation.
type IssueDetail struct {
	models.Issue
	DueDate       time.Time `json:"due_date"`
	Overdue       bool      `json:"overdue"`
	ReturningSoon bool      `json:"returning_soon"`
}

func toDetail(issue models.Issue, now time.Time) IssueDetail {
	return IssueDetail{
		Issue:         issue,
		DueDate:       DueDate(&issue),
		Overdue:       IsOverdue(&issue, now),
		ReturningSoon: IsReturningSoon(&issue, now),
	}
}

func toDetails(issues []models.Issue, now time.Time) []IssueDetail {
	details := make([]IssueDetail, 0, len(issues))
	for _, issue := range issues {
		details = append(details, toDetail(issue, now))
	}
	return details
}

// ─── Dashboard Stats ──────────────────────────────────────────────────────────

type AdminStats struct {
	TotalBooks       int               `json:"total_books"`
	AvailableBooks   int               `json:"available_books"`
	IssuedBooks      int               `json:"issued_books"`
	TotalUsers       int               `json:"total_users"`
	RecentActivities []models.Activity `json:"recent_activities"`
}

type UserStats struct {
	CurrentlyBorrowed int           `json:"currently_borrowed"`
	TotalBorrowed     int           `json:"total_borrowed"`
	ReturningSoon     int           `json:"returning_soon"`
	AvailableBooks    []models.Book `json:"available_books"`
	BorrowedBooks     []IssueDetail `json:"borrowed_books"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// LibraryService defines the catalogue and circulation operations of the
// library system.
type LibraryService interface {
	ListBooks() ([]models.Book, error)
	ListAvailableBooks() ([]models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	AddBook(title, author, isbn string) (*models.Book, error)
	UpdateBook(id uuid.UUID, update models.BookUpdate) (*models.Book, error)
	DeleteBook(id uuid.UUID) error

	IssueBook(bookID, userID uuid.UUID) (*models.Issue, error)
	ReturnBook(issueID uuid.UUID) (*models.Issue, error)

	GetIssue(id uuid.UUID) (*IssueDetail, error)
	ListAllIssues() ([]IssueDetail, error)
	ListIssuesForUser(userID uuid.UUID) ([]IssueDetail, error)

	AdminStats() (*AdminStats, error)
	UserStats(userID uuid.UUID) (*UserStats, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	bookRepo     repositories.BookRepository
	issueRepo    repositories.IssueRepository
	activityRepo repositories.ActivityRepository
	now          func() time.Time
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	issueRepo repositories.IssueRepository,
	activityRepo repositories.ActivityRepository,
) LibraryService {
	return &libraryService{
		db:           db,
		userRepo:     userRepo,
		bookRepo:     bookRepo,
		issueRepo:    issueRepo,
		activityRepo: activityRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ─── Catalogue ────────────────────────────────────────────────────────────────

func (s *libraryService) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

func (s *libraryService) ListAvailableBooks() ([]models.Book, error) {
	return s.bookRepo.ListAvailable(nil)
}

func (s *libraryService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// AddBook creates a catalogue entry. New books are always available; there is
// no duplicate-ISBN check.
func (s *libraryService) AddBook(title, author, isbn string) (*models.Book, error) {
	book := &models.Book{
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		IsAvailable: true,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		log.Printf("[ERROR] AddBook: failed to create book record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] AddBook: created book %q (id=%s)", book.Title, book.ID)
	return book, nil
}

func (s *libraryService) UpdateBook(id uuid.UUID, update models.BookUpdate) (*models.Book, error) {
	if _, err := s.bookRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if err := s.bookRepo.Update(nil, id, update); err != nil {
		log.Printf("[ERROR] UpdateBook: failed to update book %s: %v", id, err)
		return nil, err
	}
	return s.bookRepo.GetByID(nil, id)
}

// DeleteBook removes a book from the catalogue. A book with an open issue
// cannot be deleted; returned (closed) issues keep their own title/author
// snapshots, so the history survives the delete.
func (s *libraryService) DeleteBook(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		_, err := s.issueRepo.GetOpenByBook(tx, id)
		if err == nil {
			log.Printf("[WARN] DeleteBook: book %s has an open issue, refusing delete", id)
			return ErrBookCurrentlyIssued
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.bookRepo.Delete(tx, id); err != nil {
			log.Printf("[ERROR] DeleteBook: failed to delete book %s: %v", id, err)
			return err
		}
		log.Printf("[INFO] DeleteBook: deleted book %s", id)
		return nil
	})
}

// ─── Issue Lifecycle ──────────────────────────────────────────────────────────

// IssueBook implements the transactional issue flow: validate the user and the
// book, flip the book unavailable, and create the issue record — all in one
// transaction so a crash cannot leave the book flag and the issue row
// disagreeing.
func (s *libraryService) IssueBook(bookID, userID uuid.UUID) (*models.Issue, error) {
	var issue *models.Issue

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		book, err := s.bookRepo.GetByID(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if !book.IsAvailable {
			log.Printf("[WARN] IssueBook: book %s already issued", bookID)
			return ErrBookUnavailable
		}

		if err := s.bookRepo.SetAvailability(tx, bookID, false); err != nil {
			log.Printf("[ERROR] IssueBook: failed to mark book %s unavailable: %v", bookID, err)
			return err
		}

		issue = &models.Issue{
			BookID:     bookID,
			UserID:     userID,
			IssueDate:  s.now(),
			BookTitle:  book.Title,
			BookAuthor: book.Author,
			UserName:   user.Name,
		}
		if err := s.issueRepo.Create(tx, issue); err != nil {
			log.Printf("[ERROR] IssueBook: failed to create issue record: %v", err)
			return err
		}

		activity := &models.Activity{
			Action:    models.ActivityActionIssue,
			UserName:  user.Name,
			BookTitle: book.Title,
			CreatedAt: issue.IssueDate,
		}
		if err := s.activityRepo.Create(tx, activity); err != nil {
			log.Printf("[ERROR] IssueBook: failed to record activity: %v", err)
			return err
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] IssueBook: issue created (id=%s) for user %s / book %s, due %s",
		issue.ID, userID, bookID, DueDate(issue).Format("2006-01-02"))
	return issue, nil
}

// ReturnBook implements the transactional return flow.
//
// Steps (all in one transaction):
//  1. Load the issue and guard against double-return.
//  2. Set the return date.
//  3. Mark the book available again.
//  4. Record a return activity.
func (s *libraryService) ReturnBook(issueID uuid.UUID) (*models.Issue, error) {
	var updated *models.Issue

	err := s.db.Transaction(func(tx *gorm.DB) error {
		issue, err := s.issueRepo.GetByID(tx, issueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIssueNotFound
			}
			return err
		}

		if issue.ReturnDate != nil {
			log.Printf("[WARN] ReturnBook: issue %s already returned at %s", issueID, issue.ReturnDate)
			return ErrIssueAlreadyReturned
		}

		now := s.now()
		if err := s.issueRepo.MarkReturned(tx, issue.ID, now); err != nil {
			log.Printf("[ERROR] ReturnBook: failed to mark issue %s returned: %v", issueID, err)
			return err
		}

		if err := s.bookRepo.SetAvailability(tx, issue.BookID, true); err != nil {
			log.Printf("[ERROR] ReturnBook: failed to mark book %s available: %v", issue.BookID, err)
			return err
		}

		activity := &models.Activity{
			Action:    models.ActivityActionReturn,
			UserName:  issue.UserName,
			BookTitle: issue.BookTitle,
			CreatedAt: now,
		}
		if err := s.activityRepo.Create(tx, activity); err != nil {
			log.Printf("[ERROR] ReturnBook: failed to record activity: %v", err)
			return err
		}

		reloaded, err := s.issueRepo.GetByID(tx, issueID)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] ReturnBook: issue %s returned (book=%s, user=%s)", issueID, updated.BookID, updated.UserID)
	return updated, nil
}

// ─── Issue Queries ────────────────────────────────────────────────────────────

func (s *libraryService) GetIssue(id uuid.UUID) (*IssueDetail, error) {
	issue, err := s.issueRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, err
	}
	detail := toDetail(*issue, s.now())
	return &detail, nil
}

func (s *libraryService) ListAllIssues() ([]IssueDetail, error) {
	issues, err := s.issueRepo.List(nil)
	if err != nil {
		return nil, err
	}
	return toDetails(issues, s.now()), nil
}

func (s *libraryService) ListIssuesForUser(userID uuid.UUID) ([]IssueDetail, error) {
	issues, err := s.issueRepo.ListByUser(nil, userID)
	if err != nil {
		return nil, err
	}
	return toDetails(issues, s.now()), nil
}

// ─── Dashboards ───────────────────────────────────────────────────────────────

// AdminStats aggregates the admin dashboard: catalogue counts, the number of
// user-role accounts, and the most recent circulation activity.
func (s *libraryService) AdminStats() (*AdminStats, error) {
	books, err := s.bookRepo.List(nil)
	if err != nil {
		return nil, err
	}
	available := 0
	for _, book := range books {
		if book.IsAvailable {
			available++
		}
	}

	userCount, err := s.userRepo.CountByRole(nil, models.UserRoleUser)
	if err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListRecent(nil, RecentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &AdminStats{
		TotalBooks:       len(books),
		AvailableBooks:   available,
		IssuedBooks:      len(books) - available,
		TotalUsers:       int(userCount),
		RecentActivities: activities,
	}, nil
}

// UserStats aggregates the user dashboard: the user's borrowing history with
// derived due-date fields, plus the currently available catalogue.
func (s *libraryService) UserStats(userID uuid.UUID) (*UserStats, error) {
	issues, err := s.issueRepo.ListByUser(nil, userID)
	if err != nil {
		return nil, err
	}

	available, err := s.bookRepo.ListAvailable(nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	borrowed := toDetails(issues, now)

	current, returningSoon := 0, 0
	for _, detail := range borrowed {
		if detail.ReturnDate == nil {
			current++
		}
		if detail.ReturningSoon {
			returningSoon++
		}
	}

	return &UserStats{
		CurrentlyBorrowed: current,
		TotalBorrowed:     len(borrowed),
		ReturningSoon:     returningSoon,
		AvailableBooks:    available,
		BorrowedBooks:     borrowed,
	}, nil
}

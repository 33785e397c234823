// Package seed loads the fixed demo dataset: six books, three accounts (all
// with password "password123"), and one open issue seven days old. The seed
// runs only against an empty store, so restarting against a real database does
// not overwrite anything.
package seed

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"libtrack/internal/models"
)

const demoPassword = "password123"

// Run populates the store with the demo dataset if it holds no users.
func Run(db *gorm.DB) error {
	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		log.Printf("[ERROR] seed: failed to count users: %v", err)
		return err
	}
	if users > 0 {
		log.Printf("[INFO] seed: store already populated, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[ERROR] seed: failed to hash demo password: %v", err)
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		books := []models.Book{
			{Title: "Neuromancer", Author: "William Gibson", ISBN: "978-0441569595", IsAvailable: true},
			{Title: "Snow Crash", Author: "Neal Stephenson", ISBN: "978-0553380958", IsAvailable: true},
			{Title: "Do Androids Dream of Electric Sheep?", Author: "Philip K. Dick", ISBN: "978-1407230016", IsAvailable: true},
			{Title: "Altered Carbon", Author: "Richard K. Morgan", ISBN: "978-0345457684", IsAvailable: true},
			{Title: "The Diamond Age", Author: "Neal Stephenson", ISBN: "978-0553380965", IsAvailable: true},
			{Title: "Ready Player One", Author: "Ernest Cline", ISBN: "978-0307887436", IsAvailable: false},
		}
		for i := range books {
			if err := tx.Create(&books[i]).Error; err != nil {
				log.Printf("[ERROR] seed: failed to create book %q: %v", books[i].Title, err)
				return err
			}
		}

		accounts := []models.User{
			{Name: "Admin User", Email: "admin@example.com", Password: string(hash), Role: models.UserRoleAdmin},
			{Name: "Regular User", Email: "user@example.com", Password: string(hash), Role: models.UserRoleUser},
			{Name: "Jane Smith", Email: "jane@example.com", Password: string(hash), Role: models.UserRoleUser},
		}
		for i := range accounts {
			if err := tx.Create(&accounts[i]).Error; err != nil {
				log.Printf("[ERROR] seed: failed to create user %s: %v", accounts[i].Email, err)
				return err
			}
		}

		// Ready Player One has been out with the regular user for a week.
		readyPlayerOne := books[5]
		regularUser := accounts[1]
		issue := models.Issue{
			BookID:     readyPlayerOne.ID,
			UserID:     regularUser.ID,
			IssueDate:  time.Now().UTC().AddDate(0, 0, -7),
			BookTitle:  readyPlayerOne.Title,
			BookAuthor: readyPlayerOne.Author,
			UserName:   regularUser.Name,
		}
		if err := tx.Create(&issue).Error; err != nil {
			log.Printf("[ERROR] seed: failed to create issue: %v", err)
			return err
		}

		activity := models.Activity{
			Action:    models.ActivityActionIssue,
			UserName:  regularUser.Name,
			BookTitle: readyPlayerOne.Title,
			CreatedAt: issue.IssueDate,
		}
		if err := tx.Create(&activity).Error; err != nil {
			log.Printf("[ERROR] seed: failed to create activity: %v", err)
			return err
		}

		log.Printf("[INFO] seed: demo dataset loaded (%d books, %d users, 1 open issue)", len(books), len(accounts))
		return nil
	})
}

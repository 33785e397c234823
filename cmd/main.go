package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"libtrack/internal/auth"
	"libtrack/internal/config"
	"libtrack/internal/handlers"
	"libtrack/internal/models"
	"libtrack/internal/repositories"
	"libtrack/internal/seed"
	"libtrack/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Book{}, &models.Issue{}, &models.Activity{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	if !cfg.DisableSeed {
		if err := seed.Run(db); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	issueRepo := repositories.NewIssueRepository(db)
	activityRepo := repositories.NewActivityRepository(db)

	libraryService := services.NewLibraryService(db, userRepo, bookRepo, issueRepo, activityRepo)
	userService := services.NewUserService(db, userRepo, issueRepo, cfg.BcryptCost)
	session := auth.NewSession(userRepo)

	router := gin.Default()

	handlers.RegisterRoutes(router, libraryService, userService, session)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// openDatabase picks the engine: postgres when DATABASE_URL is set, otherwise
// a volatile in-memory sqlite store that lives and dies with the process.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Printf("[INFO] main: DATABASE_URL not set, using in-memory store")
		// A single connection keeps every request on the same in-memory
		// database; a second connection would see an empty one.
		db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

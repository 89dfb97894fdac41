package database

import (
	"fmt"
	"time"

	"github.com/heartlink/backend/internal/config"
	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Users and referrals
		&models.User{},
		&models.Referral{},

		// Lottery
		&models.Campaign{},
		&models.Prize{},
		&models.Entry{},

		// Webhook ledger
		&models.WebhookEvent{},
		&models.WebhookLog{},
		&models.EmailSuppression{},
		&models.EmailTrackingEvent{},

		// Automation tasks
		&models.AutomationTask{},
		&models.TaskAttachment{},

		// Notifications
		&models.Notification{},
		&models.Badge{},

		// Background jobs
		&queue.Job{},
	)
}

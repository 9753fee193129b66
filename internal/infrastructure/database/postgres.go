package database

import (
	"fmt"

	"github.com/casbin/gorm-adapter/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/rentalsvc/internal/infrastructure/repositories"
)

// Open creates a new database connection with production-ready settings
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate performs database migration for all required tables:
// accounts, the append-only ledger, rental sessions, and the Casbin policy
// tables used for the admin RBAC.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&repositories.DBAccount{},
		&repositories.DBLedgerEntry{},
		&repositories.DBRentalSession{},
	); err != nil {
		return fmt.Errorf("failed to migrate rental tables: %w", err)
	}

	// Initialize Casbin GORM adapter tables (creates casbin_rules lazily)
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}
	_ = adapter

	return nil
}

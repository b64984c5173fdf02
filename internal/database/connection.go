// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chaincert/chaincert-backend/internal/config"
	"github.com/chaincert/chaincert-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Account{},
		&models.ProductRecord{},
		&models.RegistryEvent{},
		&models.Deposit{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Account indexes
		"CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)",
		"CREATE INDEX IF NOT EXISTS idx_accounts_address ON accounts(address)",
		"CREATE INDEX IF NOT EXISTS idx_accounts_role_status ON accounts(role, status)",

		// Product record indexes
		"CREATE INDEX IF NOT EXISTS idx_product_records_owner ON product_records(owner)",
		"CREATE INDEX IF NOT EXISTS idx_product_records_enterprise ON product_records(enterprise)",
		"CREATE INDEX IF NOT EXISTS idx_product_records_for_sale ON product_records(is_for_sale) WHERE is_for_sale",

		// Event log indexes
		"CREATE INDEX IF NOT EXISTS idx_registry_events_token ON registry_events(token_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_registry_events_name ON registry_events(event_name, created_at DESC)",

		// Deposit indexes
		"CREATE INDEX IF NOT EXISTS idx_deposits_account_status ON deposits(account_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_deposits_reference ON deposits(payment_reference)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_account_action ON audit_logs(account_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB, authorityAddress string) error {
	log.Println("Seeding initial data...")

	// Create the mint authority account if it does not exist yet
	var authorityCount int64
	db.Model(&models.Account{}).Where("role = ?", models.AccountRoleAdmin).Count(&authorityCount)

	if authorityCount == 0 {
		authority := &models.Account{
			Username: "authority",
			Email:    "authority@chaincert.io",
			Address:  authorityAddress,
			Role:     models.AccountRoleAdmin,
			Status:   models.AccountStatusActive,
		}

		if err := authority.SetPassword("authority123!@#"); err != nil {
			return fmt.Errorf("failed to set authority password: %w", err)
		}

		if err := db.Create(authority).Error; err != nil {
			return fmt.Errorf("failed to create authority account: %w", err)
		}

		log.Println("Default authority account created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

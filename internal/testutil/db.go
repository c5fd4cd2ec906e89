// Package testutil builds the in-memory databases the package suites run on.
package testutil

import (
	"fmt"

	"github.com/transit241/port-logistics/internal/core/datamodel/account"
	"github.com/transit241/port-logistics/internal/core/datamodel/audit"
	"github.com/transit241/port-logistics/internal/core/datamodel/billing"
	"github.com/transit241/port-logistics/internal/core/datamodel/customs"
	"github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	"github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	"github.com/transit241/port-logistics/internal/core/datamodel/shipment"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with every table migrated.
// A single connection is kept open so all queries, transactional or not,
// see the same database.
func NewDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&account.Permission{},
		&account.Role{},
		&account.Account{},
		&shipment.Shipment{},
		&shipment.StatusEvent{},
		&pickup.Pickup{},
		&billing.Invoice{},
		&billing.Transaction{},
		&customs.Declaration{},
		&audit.Entry{},
		&outbox.Message{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return db, nil
}

// Close releases the connection behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedAccount inserts a minimal active account and returns its id.
func SeedAccount(db *gorm.DB, id, email string) (string, error) {
	return SeedAccountWithRole(db, id, email, nil)
}

// SeedAccountWithRole inserts a minimal active account holding roleID.
func SeedAccountWithRole(db *gorm.DB, id, email string, roleID *int64) (string, error) {
	acc := &account.Account{
		ID:           id,
		Email:        email,
		FirstName:    "Test",
		LastName:     "Account",
		RoleID:       roleID,
		PasswordHash: "x",
		IsActive:     true,
	}
	if err := db.Create(acc).Error; err != nil {
		return "", err
	}
	return acc.ID, nil
}

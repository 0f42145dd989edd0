package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/calleye/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens the sqlite database at dbPath and migrates the schema.
// Callers own the returned handle; there is no package-level singleton.
func Open(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies the schema for all owned entities.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Alert{},
		&models.AlertHistory{},
		&models.Call{},
		&models.Agent{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}
	return nil
}

// Close closes the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	return sqlDB.Close()
}

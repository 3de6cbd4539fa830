package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/patiponrmutl/ScanAttendance/config"
	"github.com/patiponrmutl/ScanAttendance/models"
)

// Connect opens the SQL store selected by STORE_DRIVER and migrates it.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite folder: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store driver %q has no database", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger(cfg.AppEnv)})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.StoreDriver, err)
	}
	if cfg.StoreDriver == "sqlite" {
		// one writer at a time; the engine serializes anyway
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the SQL store uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.StudentRow{},
		&models.EventRow{},
		&models.CardRow{},
		&models.CatalogRow{},
		&models.StudentMove{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Printf("[migrate] schema up to date")
	return nil
}

func newLogger(appEnv string) gormLogger.Interface {
	level := gormLogger.Warn
	switch appEnv {
	case "dev":
		level = gormLogger.Info
	case "test":
		level = gormLogger.Silent
	}
	return gormLogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

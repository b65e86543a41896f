package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: patients, sessions, and insights tables.
		{
			ID: "001_sessions",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Patient{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Session{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&SessionInsights{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("session_insights", "sessions", "patients")
			},
		},
	})
	return m.Migrate()
}

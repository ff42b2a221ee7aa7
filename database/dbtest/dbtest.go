// Package dbtest opens a migrated SQLite database for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"eventhub-api/config"
	"eventhub-api/database"
	"eventhub-api/models"
)

// Open returns a fresh database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := database.Initialize(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user with a unique username, email and phone.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		PhoneNumber: "+7" + username,
		FirstName:   "First",
		LastName:    "Last",
		Password:    "x",
		IsActive:    true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateActivities inserts one activity per name, in order.
func CreateActivities(t testing.TB, db *gorm.DB, names ...string) []models.Activity {
	t.Helper()
	out := make([]models.Activity, 0, len(names))
	for _, name := range names {
		a := models.Activity{Name: name}
		if err := db.Create(&a).Error; err != nil {
			t.Fatalf("create activity %s: %v", name, err)
		}
		out = append(out, a)
	}
	return out
}

// Package dbtest opens isolated in-memory sqlite databases for repository and
// service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wishwall/wishwall-backend/pkg/db"
	"github.com/wishwall/wishwall-backend/pkg/db/models"
)

// Open returns a migrated sqlite connection unique to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromConn(Open(t))
}

// MustCreateUser inserts a user plus its profile.
func MustCreateUser(t *testing.T, conn *gorm.DB, fullName string) (*models.User, *models.Profile) {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("ww_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	profile := &models.Profile{ID: user.ID, FullName: fullName}
	if err := conn.Create(profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return user, profile
}

// MustCreateWish inserts a wish owned by userID. createdAt orders feeds.
func MustCreateWish(t *testing.T, conn *gorm.DB, userID uuid.UUID, title string, public bool, createdAt time.Time) *models.Wish {
	t.Helper()
	wish := &models.Wish{
		UserID:    userID,
		Title:     title,
		Content:   "content for " + title,
		IsPublic:  public,
		CreatedAt: createdAt,
	}
	if err := conn.Create(wish).Error; err != nil {
		t.Fatalf("create wish: %v", err)
	}
	return wish
}

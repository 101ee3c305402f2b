package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (row) TableName() string { return "rows" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&row{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestForUpdateSkipsLockOnSQLite(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)
	id := uuid.New()
	if err := db.Create(&row{ID: id, CreatedAt: time.Now().UTC()}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	var got row
	if err := base.ForUpdate(context.Background()).First(&got, "id = ?", id).Error; err != nil {
		t.Fatalf("locked select failed on sqlite: %v", err)
	}
}

func TestNewestFirstKeyset(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, 4)
	for i := 0; i < 4; i++ {
		id := uuid.New()
		ids = append(ids, id)
		if err := db.Create(&row{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var first []row
	if err := NewestFirst(db.Model(&row{}), "rows", nil).Limit(2).Find(&first).Error; err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || first[0].ID != ids[3] || first[1].ID != ids[2] {
		t.Fatalf("unexpected first page %+v", first)
	}

	cursor := CursorOf(first[1].CreatedAt, first[1].ID)
	var second []row
	if err := NewestFirst(db.Model(&row{}), "rows", &cursor).Limit(2).Find(&second).Error; err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 || second[0].ID != ids[1] || second[1].ID != ids[0] {
		t.Fatalf("unexpected second page %+v", second)
	}
}

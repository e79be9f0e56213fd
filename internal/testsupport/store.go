package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
)

// NewStore opens a fresh sqlite-backed store inside the test's temp dir with
// every table migrated.
func NewStore(t testing.TB) *store.GormStore {
	t.Helper()

	db, err := store.NewDatabase(&config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "content.db"),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return store.NewGormStore(db)
}

// Logger returns a logger that discards output.
func Logger() *zap.Logger {
	return zap.NewNop()
}

// FixedClock returns a clock pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ContentOption customizes a seeded content record.
type ContentOption func(*models.ContentRecord)

func WithStatus(status models.ContentStatus) ContentOption {
	return func(r *models.ContentRecord) { r.Status = status }
}

func WithChannel(channel string) ContentOption {
	return func(r *models.ContentRecord) { r.Channel = &channel }
}

func WithPillar(pillar string) ContentOption {
	return func(r *models.ContentRecord) { r.Pillar = &pillar }
}

func WithScheduledAt(ms int64) ContentOption {
	return func(r *models.ContentRecord) { r.ScheduledAt = &ms }
}

func WithTitle(title string) ContentOption {
	return func(r *models.ContentRecord) { r.Title = title }
}

func WithMetadata(meta models.ContentMetadata) ContentOption {
	return func(r *models.ContentRecord) { r.Metadata = meta }
}

func WithApproval(by string, at int64) ContentOption {
	return func(r *models.ContentRecord) {
		r.ApprovedBy = &by
		r.ApprovedAt = &at
	}
}

func WithCreatedAt(ms int64) ContentOption {
	return func(r *models.ContentRecord) {
		r.CreatedAt = ms
		r.UpdatedAt = ms
	}
}

// SeedContent inserts a draft blog record and returns it.
func SeedContent(t testing.TB, st store.ContentStore, opts ...ContentOption) *models.ContentRecord {
	t.Helper()

	now := time.Now().UnixMilli()
	record := &models.ContentRecord{
		ID:          uuid.NewString(),
		Type:        models.TypeBlog,
		Title:       "Seeded content",
		ContentBody: "# Heading\n\nBody text.",
		Status:      models.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(record)
	}

	if err := st.CreateContent(context.Background(), record); err != nil {
		t.Fatalf("seed content: %v", err)
	}
	return record
}

// MustGet reloads a record by id.
func MustGet(t testing.TB, st store.ContentStore, id string) *models.ContentRecord {
	t.Helper()

	record, err := st.GetContent(context.Background(), id)
	if err != nil {
		t.Fatalf("load content %s: %v", id, err)
	}
	return record
}

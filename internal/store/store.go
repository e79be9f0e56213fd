package store

import (
	"context"
	"errors"

	"gorm.io/datatypes"

	"github.com/ifuryst/contentos/internal/models"
)

var (
	// ErrNotFound is returned when a content record or log entry does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrStatusConflict is returned by UpdateStatus when the record is no longer
	// in one of the expected states.
	ErrStatusConflict = errors.New("store: status changed concurrently")
)

// ContentFilter narrows ListContent.
type ContentFilter struct {
	Status  models.ContentStatus
	Channel string
	Search  string
	Limit   int
}

// StatusChange describes a conditional status update. Nil pointer fields are
// left untouched; the Clear* flags null the matching columns.
type StatusChange struct {
	To        models.ContentStatus
	UpdatedAt int64

	ApprovedBy     *string
	ApprovedAt     *int64
	RejectedReason *string
	ScheduledAt    *int64
	PublishResults datatypes.JSON

	ClearApproval       bool
	ClearRejectedReason bool
	ClearScheduledAt    bool
}

// PublishLogUpdate is the terminal write applied to a pending log entry.
type PublishLogUpdate struct {
	Status         models.PublishLogStatus
	ResponseStatus *int
	ResponseBody   *string
	PublishedURL   *string
	ErrorMessage   *string
	CompletedAt    int64
}

// ContentStore is the persistence capability set used by the workflow core.
// One instance serves one project database.
type ContentStore interface {
	GetContent(ctx context.Context, id string) (*models.ContentRecord, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]models.ContentRecord, error)
	ListScheduled(ctx context.Context, limit int) ([]models.ContentRecord, error)
	ListDue(ctx context.Context, nowMs int64, limit int) ([]models.ContentRecord, error)
	CreateContent(ctx context.Context, record *models.ContentRecord) error
	// UpdateStatus applies change only if the record's current status is one of from.
	UpdateStatus(ctx context.Context, id string, from []models.ContentStatus, change StatusChange) error

	CreatePublishLog(ctx context.Context, entry *models.PublishLogEntry) error
	UpdatePublishLog(ctx context.Context, id string, update PublishLogUpdate) error
	GetPublishLog(ctx context.Context, id string) (*models.PublishLogEntry, error)
	ListPublishLogs(ctx context.Context, contentID string, limit int) ([]models.PublishLogEntry, error)
	ListPipelineLogs(ctx context.Context, limit int) ([]models.PipelineLogEntry, error)

	ListNewsletters(ctx context.Context, limit int) ([]models.Newsletter, error)
	GetNewsletter(ctx context.Context, id string) (*models.Newsletter, error)
	// UpdateNewsletterStatus moves an issue to to only while it is still in from.
	UpdateNewsletterStatus(ctx context.Context, id string, from, to models.NewsletterStatus) error
}

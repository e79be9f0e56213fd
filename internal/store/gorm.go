package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ifuryst/contentos/internal/models"
)

const (
	defaultListLimit       = 100
	defaultScheduledLimit  = 200
	defaultLogLimit        = 50
	defaultPipelineLimit   = 30
	defaultNewsletterLimit = 50
)

// GormStore implements ContentStore on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying connection for read-only reporting queries.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) GetContent(ctx context.Context, id string) (*models.ContentRecord, error) {
	var record models.ContentRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load content %s: %w", id, err)
	}
	return &record, nil
}

func (s *GormStore) ListContent(ctx context.Context, filter ContentFilter) ([]models.ContentRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := s.db.WithContext(ctx).Model(&models.ContentRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(topic) LIKE ? OR LOWER(content_body) LIKE ?", like, like, like)
	}

	var records []models.ContentRecord
	if err := query.Order("priority DESC").Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return records, nil
}

func (s *GormStore) ListScheduled(ctx context.Context, limit int) ([]models.ContentRecord, error) {
	if limit <= 0 {
		limit = defaultScheduledLimit
	}
	var records []models.ContentRecord
	if err := s.db.WithContext(ctx).
		Where("scheduled_at IS NOT NULL").
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list scheduled content: %w", err)
	}
	return records, nil
}

func (s *GormStore) ListDue(ctx context.Context, nowMs int64, limit int) ([]models.ContentRecord, error) {
	query := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", models.StatusScheduled, nowMs).
		Order("scheduled_at ASC").
		Order("priority DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.ContentRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list due content: %w", err)
	}
	return records, nil
}

func (s *GormStore) CreateContent(ctx context.Context, record *models.ContentRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, id string, from []models.ContentStatus, change StatusChange) error {
	updates := map[string]interface{}{
		"status":     change.To,
		"updated_at": change.UpdatedAt,
	}
	if change.ApprovedBy != nil {
		updates["approved_by"] = *change.ApprovedBy
	}
	if change.ApprovedAt != nil {
		updates["approved_at"] = *change.ApprovedAt
	}
	if change.RejectedReason != nil {
		updates["rejected_reason"] = *change.RejectedReason
	}
	if change.ScheduledAt != nil {
		updates["scheduled_at"] = *change.ScheduledAt
	}
	if change.PublishResults != nil {
		updates["publish_results"] = change.PublishResults
	}
	if change.ClearApproval {
		updates["approved_by"] = gorm.Expr("NULL")
		updates["approved_at"] = gorm.Expr("NULL")
	}
	if change.ClearRejectedReason {
		updates["rejected_reason"] = gorm.Expr("NULL")
	}
	if change.ClearScheduledAt {
		updates["scheduled_at"] = gorm.Expr("NULL")
	}

	result := s.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update status of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ContentRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check content %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("content %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("content %s: %w", id, ErrStatusConflict)
	}
	return nil
}

func (s *GormStore) CreatePublishLog(ctx context.Context, entry *models.PublishLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create publish log: %w", err)
	}
	return nil
}

func (s *GormStore) UpdatePublishLog(ctx context.Context, id string, update PublishLogUpdate) error {
	updates := map[string]interface{}{
		"status":       update.Status,
		"completed_at": update.CompletedAt,
	}
	if update.ResponseStatus != nil {
		updates["response_status"] = *update.ResponseStatus
	}
	if update.ResponseBody != nil {
		updates["response_body"] = *update.ResponseBody
	}
	if update.PublishedURL != nil {
		updates["published_url"] = *update.PublishedURL
	}
	if update.ErrorMessage != nil {
		updates["error_message"] = *update.ErrorMessage
	}

	// Only a pending entry may be resolved, and only once.
	result := s.db.WithContext(ctx).
		Model(&models.PublishLogEntry{}).
		Where("id = ? AND status = ?", id, models.LogPending).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update publish log %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("pending publish log %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) GetPublishLog(ctx context.Context, id string) (*models.PublishLogEntry, error) {
	var entry models.PublishLogEntry
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("publish log %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load publish log %s: %w", id, err)
	}
	return &entry, nil
}

func (s *GormStore) ListPublishLogs(ctx context.Context, contentID string, limit int) ([]models.PublishLogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	query := s.db.WithContext(ctx).Model(&models.PublishLogEntry{})
	if contentID != "" {
		query = query.Where("content_id = ?", contentID)
	}

	var entries []models.PublishLogEntry
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list publish logs: %w", err)
	}
	return entries, nil
}

func (s *GormStore) ListPipelineLogs(ctx context.Context, limit int) ([]models.PipelineLogEntry, error) {
	if limit <= 0 {
		limit = defaultPipelineLimit
	}
	var entries []models.PipelineLogEntry
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list pipeline logs: %w", err)
	}
	return entries, nil
}

// ListNewsletters returns the newest issues without their bodies.
func (s *GormStore) ListNewsletters(ctx context.Context, limit int) ([]models.Newsletter, error) {
	if limit <= 0 {
		limit = defaultNewsletterLimit
	}
	var newsletters []models.Newsletter
	if err := s.db.WithContext(ctx).
		Select("id", "subject", "status", "sent_at", "created_at").
		Order("created_at DESC").
		Limit(limit).
		Find(&newsletters).Error; err != nil {
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	return newsletters, nil
}

func (s *GormStore) GetNewsletter(ctx context.Context, id string) (*models.Newsletter, error) {
	var newsletter models.Newsletter
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&newsletter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("newsletter %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load newsletter %s: %w", id, err)
	}
	return &newsletter, nil
}

func (s *GormStore) UpdateNewsletterStatus(ctx context.Context, id string, from, to models.NewsletterStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.Newsletter{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to update newsletter %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Newsletter{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check newsletter %s: %w", id, err)
		}
		if count == 0 {
			return fmt.Errorf("newsletter %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("newsletter %s: %w", id, ErrStatusConflict)
	}
	return nil
}

var _ ContentStore = (*GormStore)(nil)

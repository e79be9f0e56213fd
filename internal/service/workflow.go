package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
)

// WorkflowSettings are the tunables of the content state machine.
type WorkflowSettings struct {
	MinScheduleLead time.Duration
	DefaultApprover string
}

// WorkflowOption customizes a WorkflowService.
type WorkflowOption func(*WorkflowService)

// WithClock overrides the time source used for timestamps and schedule checks.
func WithClock(now func() time.Time) WorkflowOption {
	return func(w *WorkflowService) {
		if now != nil {
			w.now = now
		}
	}
}

// WorkflowService owns every status change of a project's content records.
type WorkflowService struct {
	project  string
	store    store.ContentStore
	settings WorkflowSettings
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorkflowService(project string, st store.ContentStore, settings WorkflowSettings, logger *zap.Logger, opts ...WorkflowOption) *WorkflowService {
	if settings.MinScheduleLead <= 0 {
		settings.MinScheduleLead = 10 * time.Minute
	}
	w := &WorkflowService{
		project:  project,
		store:    st,
		settings: settings,
		logger:   logger.With(zap.String("project", project)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Now returns the service clock in epoch milliseconds.
func (w *WorkflowService) Now() int64 {
	return w.now().UnixMilli()
}

func (w *WorkflowService) RequestReview(ctx context.Context, id string) error {
	return w.transition(ctx, id, models.StatusReview, nil)
}

// Approve records approver (or the configured default) as the approving identity.
func (w *WorkflowService) Approve(ctx context.Context, id, approver string) error {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		approver = w.settings.DefaultApprover
	}
	if approver == "" {
		return invalidArgument("approver is required")
	}
	return w.transition(ctx, id, models.StatusApproved, func(_ *models.ContentRecord, change *store.StatusChange) {
		at := change.UpdatedAt
		change.ApprovedBy = &approver
		change.ApprovedAt = &at
	})
}

func (w *WorkflowService) Reject(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalidArgument("reject reason is required")
	}
	return w.transition(ctx, id, models.StatusRejected, func(_ *models.ContentRecord, change *store.StatusChange) {
		change.RejectedReason = &reason
	})
}

func (w *WorkflowService) ResetToDraft(ctx context.Context, id string) error {
	return w.transition(ctx, id, models.StatusDraft, func(_ *models.ContentRecord, change *store.StatusChange) {
		change.ClearRejectedReason = true
		change.ClearApproval = true
		change.ClearScheduledAt = true
	})
}

// Schedule sets the publish time of an approved record. whenMs must be later
// than now plus the minimum lead.
func (w *WorkflowService) Schedule(ctx context.Context, id string, whenMs int64) error {
	earliest := w.now().Add(w.settings.MinScheduleLead).UnixMilli()
	if whenMs <= earliest {
		return invalidArgument("scheduled time must be more than %s in the future", w.settings.MinScheduleLead)
	}
	return w.transition(ctx, id, models.StatusScheduled, func(_ *models.ContentRecord, change *store.StatusChange) {
		change.ScheduledAt = &whenMs
	})
}

// BeginPublishing moves an approved or scheduled record to publishing.
func (w *WorkflowService) BeginPublishing(ctx context.Context, record *models.ContentRecord) error {
	if !CanTransition(record.Status, models.StatusPublishing) {
		return &TransitionError{ID: record.ID, From: record.Status, To: models.StatusPublishing}
	}
	change := store.StatusChange{
		To:               models.StatusPublishing,
		UpdatedAt:        w.stamp(record),
		ClearScheduledAt: record.Status == models.StatusScheduled,
	}
	return w.apply(ctx, record.ID, record.Status, change)
}

// CompletePublishing resolves a publishing record to published or failed and
// stores results in the same write.
func (w *WorkflowService) CompletePublishing(ctx context.Context, record *models.ContentRecord, succeeded bool, results datatypes.JSON) error {
	to := models.StatusFailed
	if succeeded {
		to = models.StatusPublished
	}
	change := store.StatusChange{
		To:             to,
		UpdatedAt:      w.stamp(record),
		PublishResults: results,
	}
	return w.apply(ctx, record.ID, models.StatusPublishing, change)
}

// transition loads the record, checks the edge and applies the change with a
// compare-and-swap on the loaded status.
func (w *WorkflowService) transition(ctx context.Context, id string, to models.ContentStatus, mutate func(*models.ContentRecord, *store.StatusChange)) error {
	record, err := w.store.GetContent(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(record.Status, to) {
		return &TransitionError{ID: id, From: record.Status, To: to}
	}

	change := store.StatusChange{
		To:        to,
		UpdatedAt: w.stamp(record),
	}
	if record.Status == models.StatusScheduled {
		change.ClearScheduledAt = true
	}
	if mutate != nil {
		mutate(record, &change)
	}

	if err := w.apply(ctx, id, record.Status, change); err != nil {
		return err
	}

	w.logger.Info("Content status changed",
		zap.String("content_id", id),
		zap.String("from", string(record.Status)),
		zap.String("to", string(to)))
	return nil
}

func (w *WorkflowService) apply(ctx context.Context, id string, from models.ContentStatus, change store.StatusChange) error {
	err := w.store.UpdateStatus(ctx, id, []models.ContentStatus{from}, change)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrStatusConflict) {
		current := from
		if fresh, ferr := w.store.GetContent(ctx, id); ferr == nil {
			current = fresh.Status
		}
		return &TransitionError{ID: id, From: current, To: change.To}
	}
	return err
}

// stamp never moves updated_at backwards.
func (w *WorkflowService) stamp(record *models.ContentRecord) int64 {
	now := w.Now()
	if now < record.UpdatedAt {
		return record.UpdatedAt
	}
	return now
}

// BulkOptions carries the per-target arguments of BulkTransition.
type BulkOptions struct {
	Approver    string `json:"approver"`
	Reason      string `json:"reason"`
	ScheduledAt int64  `json:"scheduled_at"`
}

type BulkItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkResult struct {
	Succeeded int             `json:"success"`
	Failed    int             `json:"failed"`
	Errors    []BulkItemError `json:"errors"`
}

var bulkTargets = map[models.ContentStatus]struct{}{
	models.StatusReview:    {},
	models.StatusApproved:  {},
	models.StatusRejected:  {},
	models.StatusDraft:     {},
	models.StatusScheduled: {},
}

// BulkTransition applies target to every id independently. Only an
// unsupported target fails the call as a whole.
func (w *WorkflowService) BulkTransition(ctx context.Context, ids []string, target models.ContentStatus, opts BulkOptions) (*BulkResult, error) {
	if _, ok := bulkTargets[target]; !ok {
		return nil, invalidArgument("unsupported bulk target %q", target)
	}

	result := &BulkResult{Errors: []BulkItemError{}}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var err error
		switch target {
		case models.StatusReview:
			err = w.RequestReview(ctx, id)
		case models.StatusApproved:
			err = w.Approve(ctx, id, opts.Approver)
		case models.StatusRejected:
			err = w.Reject(ctx, id, opts.Reason)
		case models.StatusDraft:
			err = w.ResetToDraft(ctx, id)
		case models.StatusScheduled:
			err = w.Schedule(ctx, id, opts.ScheduledAt)
		}

		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{ID: id, Error: err.Error()})
			continue
		}
		result.Succeeded++
	}

	w.logger.Info("Bulk transition completed",
		zap.String("target", string(target)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// CreateContentInput is the operator payload for a new draft.
type CreateContentInput struct {
	Type            models.ContentType     `json:"type"`
	Title           string                 `json:"title"`
	Pillar          string                 `json:"pillar"`
	Topic           string                 `json:"topic"`
	Channel         string                 `json:"channel"`
	ContentBody     string                 `json:"content_body"`
	Metadata        models.ContentMetadata `json:"metadata"`
	Priority        int                    `json:"priority"`
	PlatformTargets []string               `json:"platform_targets"`
}

func (in CreateContentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&in.Type, validation.In(models.TypeBlog, models.TypeNewsletter, models.TypeSNS)),
		validation.Field(&in.Pillar, validation.Length(0, 100)),
		validation.Field(&in.Channel, validation.Length(0, 100)),
		validation.Field(&in.Priority, validation.Min(0)),
	)
}

// CreateContent stores a new draft record.
func (w *WorkflowService) CreateContent(ctx context.Context, in CreateContentInput) (*models.ContentRecord, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" {
		in.Type = models.TypeBlog
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	now := w.Now()
	record := &models.ContentRecord{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Title:       in.Title,
		ContentBody: in.ContentBody,
		Metadata:    in.Metadata,
		Status:      models.StatusDraft,
		Priority:    in.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pillar:      optional(in.Pillar),
		Topic:       optional(in.Topic),
		Channel:     optional(in.Channel),
		Project:     optional(w.project),
	}
	if len(in.PlatformTargets) > 0 {
		record.PlatformTargets = encodeTargets(in.PlatformTargets)
	}

	if err := w.store.CreateContent(ctx, record); err != nil {
		return nil, err
	}

	w.logger.Info("Content created",
		zap.String("content_id", record.ID),
		zap.String("type", string(record.Type)))
	return record, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func encodeTargets(targets []string) datatypes.JSON {
	cleaned := make([]string, 0, len(targets))
	for _, t := range targets {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	data, err := json.Marshal(cleaned)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

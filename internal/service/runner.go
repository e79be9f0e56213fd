package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
)

// Sweep item outcomes.
const (
	SweepSuccess = "success"
	SweepFailed  = "failed"
	SweepSkipped = "skipped"
)

// SweepItem is the outcome of one due record.
type SweepItem struct {
	Project string `json:"project,omitempty"`
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// SweepReport summarizes one run over the due records.
type SweepReport struct {
	Processed int         `json:"processed"`
	Results   []SweepItem `json:"results"`
	// Errors holds project-level failures such as an unreachable database.
	Errors []string `json:"errors,omitempty"`
}

// Count returns how many items ended with status.
func (r *SweepReport) Count(status string) int {
	n := 0
	for _, item := range r.Results {
		if item.Status == status {
			n++
		}
	}
	return n
}

func (r *SweepReport) merge(other *SweepReport) {
	r.Processed += other.Processed
	r.Results = append(r.Results, other.Results...)
	r.Errors = append(r.Errors, other.Errors...)
}

// SweepRunner publishes every scheduled record whose time has come.
// It keeps no state between runs.
type SweepRunner struct {
	project   string
	store     store.ContentStore
	publisher *PublishService
	limit     int
	logger    *zap.Logger
}

func NewSweepRunner(project string, st store.ContentStore, publisher *PublishService, limit int, logger *zap.Logger) *SweepRunner {
	if limit <= 0 {
		limit = 500
	}
	return &SweepRunner{
		project:   project,
		store:     st,
		publisher: publisher,
		limit:     limit,
		logger:    logger.With(zap.String("project", project)),
	}
}

// RunDueSweep dispatches each due record independently. Only a failure to
// list due records is returned as an error.
func (r *SweepRunner) RunDueSweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	due, err := r.store.ListDue(ctx, now.UnixMilli(), r.limit)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{
		Processed: len(due),
		Results:   make([]SweepItem, 0, len(due)),
	}
	for i := range due {
		report.Results = append(report.Results, r.runItem(ctx, &due[i]))
	}

	if len(due) > 0 {
		r.logger.Info("Due sweep completed",
			zap.Int("processed", report.Processed),
			zap.Int("success", report.Count(SweepSuccess)),
			zap.Int("failed", report.Count(SweepFailed)),
			zap.Int("skipped", report.Count(SweepSkipped)))
	}
	return report, nil
}

func (r *SweepRunner) runItem(ctx context.Context, record *models.ContentRecord) (item SweepItem) {
	channel := record.PublishChannel()
	item = SweepItem{Project: r.project, ID: record.ID, Channel: channel}
	if channel == "" {
		item.Channel = "unknown"
	}

	if !r.publisher.CanDispatch(channel) {
		item.Status = SweepSkipped
		return item
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Sweep item panicked",
				zap.String("content_id", record.ID),
				zap.Any("panic", p))
			item.Status = SweepFailed
			item.Error = fmt.Sprintf("panic: %v", p)
		}
	}()

	outcome, err := r.publisher.Publish(ctx, record.ID, channel, models.TriggerCron)
	if err != nil {
		r.logger.Warn("Sweep item not dispatched",
			zap.String("content_id", record.ID),
			zap.String("channel", channel),
			zap.Error(err))
		item.Status = SweepFailed
		item.Error = err.Error()
		return item
	}

	if outcome.Succeeded() {
		item.Status = SweepSuccess
	} else {
		item.Status = SweepFailed
		item.Error = outcome.Error
	}
	return item
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/service/publisher"
	"github.com/ifuryst/contentos/internal/service/publisher/blog"
	"github.com/ifuryst/contentos/internal/service/publisher/brevo"
	"github.com/ifuryst/contentos/internal/store"
	"github.com/ifuryst/contentos/pkg/util"
)

// NewChannelManager builds the publish manager with every supported channel
// registered. Channels with missing credentials stay registered and fail
// their configuration check at dispatch time.
func NewChannelManager(cfg *config.Config, logger *zap.Logger, opts ...publisher.ManagerOption) (*publisher.Manager, error) {
	manager := publisher.NewPublishManager(logger, cfg.PublishTimeout(), opts...)

	channels := []publisher.Publisher{
		brevo.NewBrevoPublisher(cfg.Publisher.Brevo),
		blog.NewBlogPublisher(cfg.Publisher.Blog),
	}
	for _, ch := range channels {
		if err := manager.RegisterPublisher(ch); err != nil {
			return nil, err
		}
		if err := ch.ValidateConfig(); err != nil {
			logger.Warn("Publisher registered without credentials",
				zap.String("platform", ch.GetPlatformName()),
				zap.Error(err))
		}
	}
	return manager, nil
}

// PublishOutcome reports how one dispatch ended.
type PublishOutcome struct {
	ContentID    string                  `json:"content_id"`
	Channel      string                  `json:"channel"`
	Status       models.PublishLogStatus `json:"status"`
	LogID        string                  `json:"log_id,omitempty"`
	PublishedURL string                  `json:"published_url,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// Succeeded reports whether the destination accepted the content.
func (o *PublishOutcome) Succeeded() bool {
	return o.Status == models.LogSuccess
}

// PublishService dispatches content to its channel.
type PublishService struct {
	project  string
	store    store.ContentStore
	workflow *WorkflowService
	manager  *publisher.Manager
	inFlight *util.KeyedMutex
	logger   *zap.Logger
}

func NewPublishService(project string, st store.ContentStore, workflow *WorkflowService, manager *publisher.Manager, logger *zap.Logger) *PublishService {
	return &PublishService{
		project:  project,
		store:    st,
		workflow: workflow,
		manager:  manager,
		inFlight: util.NewKeyedMutex(),
		logger:   logger.With(zap.String("project", project)),
	}
}

// Publish sends one record to channel. An empty channel falls back to the
// record's channel, then to its first platform target.
//
// A returned error means nothing was mutated: unknown id, unknown or
// unconfigured channel, a status that cannot publish, or another publish of
// the same id in flight. Once the record reaches publishing, failures are
// reported through the outcome and persisted on the log entry and record.
func (s *PublishService) Publish(ctx context.Context, contentID, channel string, trigger models.Trigger) (*PublishOutcome, error) {
	release, ok := s.inFlight.TryLock(contentID)
	if !ok {
		return nil, fmt.Errorf("%w: publish of %s already in progress", ErrInvalidTransition, contentID)
	}
	defer release()

	record, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = record.PublishChannel()
	}
	if channel == "" {
		return nil, invalidArgument("content %s has no channel", contentID)
	}

	pub, err := s.manager.Validate(channel)
	if err != nil {
		return nil, err
	}

	if err := s.workflow.BeginPublishing(ctx, record); err != nil {
		return nil, err
	}

	// The record is now publishing; resolution writes must not be dropped
	// because the caller went away.
	resolveCtx := context.WithoutCancel(ctx)

	outcome := &PublishOutcome{
		ContentID: contentID,
		Channel:   channel,
		LogID:     uuid.NewString(),
	}

	entry := &models.PublishLogEntry{
		ID:          outcome.LogID,
		ContentID:   contentID,
		PlatformID:  channel,
		Status:      models.LogPending,
		TriggeredBy: trigger,
		CreatedAt:   s.workflow.Now(),
	}
	if err := s.store.CreatePublishLog(resolveCtx, entry); err != nil {
		s.logger.Error("Failed to create publish log",
			zap.String("content_id", contentID),
			zap.Error(err))
		outcome.LogID = ""
		outcome.Status = models.LogFailed
		outcome.Error = fmt.Sprintf("failed to record publish attempt: %v", err)
		s.finish(resolveCtx, record, outcome)
		return outcome, nil
	}

	delivery := s.deliver(ctx, pub, publisher.FromContentRecord(record))

	update := store.PublishLogUpdate{
		ResponseStatus: delivery.StatusCode,
		CompletedAt:    s.workflow.Now(),
	}
	if delivery.ResponseBody != "" {
		body := delivery.ResponseBody
		update.ResponseBody = &body
	}
	if delivery.Success {
		update.Status = models.LogSuccess
		if delivery.URL != "" {
			url := delivery.URL
			update.PublishedURL = &url
		}
		outcome.Status = models.LogSuccess
		outcome.PublishedURL = delivery.URL
	} else {
		msg := delivery.Err.Error()
		update.Status = models.LogFailed
		update.ErrorMessage = &msg
		outcome.Status = models.LogFailed
		outcome.Error = msg
	}

	if err := s.store.UpdatePublishLog(resolveCtx, entry.ID, update); err != nil {
		s.logger.Error("Failed to resolve publish log",
			zap.String("content_id", contentID),
			zap.String("log_id", entry.ID),
			zap.Error(err))
	}
	s.finish(resolveCtx, record, outcome)

	s.logger.Info("Publish finished",
		zap.String("content_id", contentID),
		zap.String("channel", channel),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(outcome.Status)),
		zap.String("error", outcome.Error))
	return outcome, nil
}

// finish moves the record out of publishing and stores the channel result.
func (s *PublishService) finish(ctx context.Context, record *models.ContentRecord, outcome *PublishOutcome) {
	results := record.WithResult(outcome.Channel, models.PublishResult{
		Status:       outcome.Status,
		LogID:        outcome.LogID,
		PublishedURL: outcome.PublishedURL,
		Error:        outcome.Error,
		At:           s.workflow.Now(),
	})
	if err := s.workflow.CompletePublishing(ctx, record, outcome.Succeeded(), results); err != nil {
		// An operator may have rejected the record mid-call.
		s.logger.Warn("Failed to complete publishing transition",
			zap.String("content_id", record.ID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
	}
}

// deliver converts a panic inside a channel into a transport failure so the
// record never stays in publishing.
func (s *PublishService) deliver(ctx context.Context, pub publisher.Publisher, content publisher.PublishContent) (delivery *publisher.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Publisher panicked",
				zap.String("platform", pub.GetPlatformName()),
				zap.String("content_id", content.ID),
				zap.Any("panic", r))
			delivery = &publisher.Delivery{Err: fmt.Errorf("%w: publisher panic: %v", publisher.ErrTransport, r)}
		}
	}()
	return s.manager.Deliver(ctx, pub, content)
}

// History returns the publish log entries of a record, most recent first.
func (s *PublishService) History(ctx context.Context, contentID string, limit int) ([]models.PublishLogEntry, error) {
	if _, err := s.store.GetContent(ctx, contentID); err != nil {
		return nil, err
	}
	return s.store.ListPublishLogs(ctx, contentID, limit)
}

// Channels lists the registered channel names.
func (s *PublishService) Channels() []string {
	return s.manager.GetAvailablePlatforms()
}

// CanDispatch reports whether channel has a registered publisher.
func (s *PublishService) CanDispatch(channel string) bool {
	return s.manager.HasPublisher(channel)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
)

// NewsletterService reads generated newsletter issues and steps them along
// their editorial stages.
type NewsletterService struct {
	store  store.ContentStore
	logger *zap.Logger
}

func NewNewsletterService(project string, st store.ContentStore, logger *zap.Logger) *NewsletterService {
	return &NewsletterService{
		store:  st,
		logger: logger.With(zap.String("project", project)),
	}
}

func (n *NewsletterService) List(ctx context.Context) ([]models.Newsletter, error) {
	return n.store.ListNewsletters(ctx, 0)
}

func (n *NewsletterService) Get(ctx context.Context, id string) (*models.Newsletter, error) {
	return n.store.GetNewsletter(ctx, id)
}

// Advance moves an issue to the stage after its current one and returns the
// updated issue.
func (n *NewsletterService) Advance(ctx context.Context, id string) (*models.Newsletter, error) {
	newsletter, err := n.store.GetNewsletter(ctx, id)
	if err != nil {
		return nil, err
	}

	from := newsletter.Status
	to, ok := from.Next()
	if !ok {
		return nil, fmt.Errorf("%w: newsletter %s has no stage after %s", ErrInvalidTransition, id, from)
	}
	if err := n.store.UpdateNewsletterStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: newsletter %s changed concurrently", ErrInvalidTransition, id)
		}
		return nil, err
	}

	n.logger.Info("Newsletter advanced",
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	newsletter.Status = to
	return newsletter, nil
}

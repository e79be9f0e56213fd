package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/datatypes"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
	"github.com/ifuryst/contentos/internal/testsupport"
)

func TestGetContentNotFound(t *testing.T) {
	st := testsupport.NewStore(t)

	_, err := st.GetContent(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMetadataParsedOnLoad(t *testing.T) {
	st := testsupport.NewStore(t)
	seeded := testsupport.SeedContent(t, st, testsupport.WithMetadata(models.ContentMetadata{
		SEOTitle:    "SEO",
		Description: "desc",
		Tags:        []string{"ai", "tools"},
	}))

	got := testsupport.MustGet(t, st, seeded.ID)
	if got.Metadata.SEOTitle != "SEO" || got.Metadata.Description != "desc" || len(got.Metadata.Tags) != 2 {
		t.Fatalf("unexpected metadata: %+v", got.Metadata)
	}
}

func TestInvalidMetadataDegradesToEmpty(t *testing.T) {
	st := testsupport.NewStore(t)
	seeded := testsupport.SeedContent(t, st, func(r *models.ContentRecord) {
		r.MetadataRaw = datatypes.JSON("{not json")
	})

	got := testsupport.MustGet(t, st, seeded.ID)
	if got.Metadata.SEOTitle != "" || len(got.Metadata.Tags) != 0 {
		t.Fatalf("expected empty metadata, got %+v", got.Metadata)
	}
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)
	seeded := testsupport.SeedContent(t, st, testsupport.WithStatus(models.StatusApproved))

	err := st.UpdateStatus(ctx, seeded.ID, []models.ContentStatus{models.StatusApproved}, store.StatusChange{
		To:        models.StatusPublishing,
		UpdatedAt: 42,
	})
	if err != nil {
		t.Fatalf("first swap: %v", err)
	}

	err = st.UpdateStatus(ctx, seeded.ID, []models.ContentStatus{models.StatusApproved}, store.StatusChange{
		To:        models.StatusPublishing,
		UpdatedAt: 43,
	})
	if !errors.Is(err, store.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	got := testsupport.MustGet(t, st, seeded.ID)
	if got.Status != models.StatusPublishing || got.UpdatedAt != 42 {
		t.Fatalf("unexpected record after swaps: status=%s updated_at=%d", got.Status, got.UpdatedAt)
	}

	err = st.UpdateStatus(ctx, "missing", []models.ContentStatus{models.StatusApproved}, store.StatusChange{To: models.StatusPublishing})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestUpdateStatusClearsColumns(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)
	seeded := testsupport.SeedContent(t, st,
		testsupport.WithStatus(models.StatusScheduled),
		testsupport.WithApproval("editor", 10),
		testsupport.WithScheduledAt(1000),
	)

	err := st.UpdateStatus(ctx, seeded.ID, []models.ContentStatus{models.StatusScheduled}, store.StatusChange{
		To:               models.StatusDraft,
		UpdatedAt:        50,
		ClearApproval:    true,
		ClearScheduledAt: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got := testsupport.MustGet(t, st, seeded.ID)
	if got.ApprovedBy != nil || got.ApprovedAt != nil || got.ScheduledAt != nil {
		t.Fatalf("expected cleared columns, got approved_by=%v approved_at=%v scheduled_at=%v", got.ApprovedBy, got.ApprovedAt, got.ScheduledAt)
	}
}

func TestListDueOnlyReturnsScheduledInThePast(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)

	due := testsupport.SeedContent(t, st, testsupport.WithStatus(models.StatusScheduled), testsupport.WithScheduledAt(900))
	testsupport.SeedContent(t, st, testsupport.WithStatus(models.StatusScheduled), testsupport.WithScheduledAt(2000))
	testsupport.SeedContent(t, st, testsupport.WithStatus(models.StatusApproved), testsupport.WithScheduledAt(500))

	records, err := st.ListDue(ctx, 1000, 10)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(records) != 1 || records[0].ID != due.ID {
		t.Fatalf("expected only %s, got %+v", due.ID, records)
	}
}

func TestListContentFilters(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)

	testsupport.SeedContent(t, st, testsupport.WithTitle("Weekly AI digest"), testsupport.WithChannel("brevo"))
	testsupport.SeedContent(t, st, testsupport.WithTitle("Automation guide"), testsupport.WithChannel("blog.apppro.kr"))
	testsupport.SeedContent(t, st, testsupport.WithTitle("Review me"), testsupport.WithStatus(models.StatusReview))

	byChannel, err := st.ListContent(ctx, store.ContentFilter{Channel: "brevo"})
	if err != nil || len(byChannel) != 1 {
		t.Fatalf("channel filter: got %d records, err %v", len(byChannel), err)
	}

	bySearch, err := st.ListContent(ctx, store.ContentFilter{Search: "automation"})
	if err != nil || len(bySearch) != 1 || bySearch[0].Title != "Automation guide" {
		t.Fatalf("search filter: got %+v, err %v", bySearch, err)
	}

	byStatus, err := st.ListContent(ctx, store.ContentFilter{Status: models.StatusReview})
	if err != nil || len(byStatus) != 1 {
		t.Fatalf("status filter: got %d records, err %v", len(byStatus), err)
	}
}

func TestPublishLogResolvesOnlyOnce(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)
	seeded := testsupport.SeedContent(t, st)

	entry := &models.PublishLogEntry{
		ID:          "log-1",
		ContentID:   seeded.ID,
		PlatformID:  "brevo",
		Status:      models.LogPending,
		TriggeredBy: models.TriggerManual,
		CreatedAt:   1,
	}
	if err := st.CreatePublishLog(ctx, entry); err != nil {
		t.Fatalf("create log: %v", err)
	}

	msg := "boom"
	if err := st.UpdatePublishLog(ctx, entry.ID, store.PublishLogUpdate{Status: models.LogFailed, ErrorMessage: &msg, CompletedAt: 2}); err != nil {
		t.Fatalf("resolve log: %v", err)
	}
	err := st.UpdatePublishLog(ctx, entry.ID, store.PublishLogUpdate{Status: models.LogSuccess, CompletedAt: 3})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second resolution to be refused, got %v", err)
	}

	got, err := st.GetPublishLog(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if got.Status != models.LogFailed || got.ErrorMessage == nil || *got.ErrorMessage != "boom" {
		t.Fatalf("unexpected log entry: %+v", got)
	}
}

func TestListPipelineLogsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)

	for i := 0; i < 35; i++ {
		entry := &models.PipelineLogEntry{
			ID:           fmt.Sprintf("run-%02d", i),
			PipelineName: "rss-collect",
			Status:       "success",
			CreatedAt:    int64(1000 + i),
		}
		if err := st.DB().Create(entry).Error; err != nil {
			t.Fatalf("seed pipeline log: %v", err)
		}
	}

	logs, err := st.ListPipelineLogs(ctx, 0)
	if err != nil {
		t.Fatalf("list pipeline logs: %v", err)
	}
	if len(logs) != 30 {
		t.Fatalf("expected the 30 newest runs, got %d", len(logs))
	}
	if logs[0].ID != "run-34" || logs[29].ID != "run-05" {
		t.Fatalf("unexpected order: first=%s last=%s", logs[0].ID, logs[29].ID)
	}

	limited, err := st.ListPipelineLogs(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("explicit limit: got %d entries, err %v", len(limited), err)
	}
}

func seedNewsletter(t *testing.T, st *store.GormStore, id string, status models.NewsletterStatus, createdAt int64) {
	t.Helper()
	newsletter := &models.Newsletter{
		ID:          id,
		Subject:     "Issue " + id,
		HTMLContent: "<p>body</p>",
		Status:      status,
		CreatedAt:   createdAt,
	}
	if err := st.DB().Create(newsletter).Error; err != nil {
		t.Fatalf("seed newsletter: %v", err)
	}
}

func TestNewsletterReads(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)

	for i := 0; i < 55; i++ {
		seedNewsletter(t, st, fmt.Sprintf("nl-%02d", i), models.NewsletterDraft, int64(100+i))
	}

	list, err := st.ListNewsletters(ctx, 0)
	if err != nil {
		t.Fatalf("list newsletters: %v", err)
	}
	if len(list) != 50 || list[0].ID != "nl-54" {
		t.Fatalf("expected 50 newest issues, got %d starting at %s", len(list), list[0].ID)
	}
	if list[0].HTMLContent != "" || list[0].Subject != "Issue nl-54" {
		t.Fatalf("list should carry summary columns only: %+v", list[0])
	}

	got, err := st.GetNewsletter(ctx, "nl-03")
	if err != nil {
		t.Fatalf("get newsletter: %v", err)
	}
	if got.HTMLContent != "<p>body</p>" || got.Status != models.NewsletterDraft || got.SentAt != nil {
		t.Fatalf("unexpected newsletter %+v", got)
	}

	if _, err := st.GetNewsletter(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateNewsletterStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	st := testsupport.NewStore(t)
	seedNewsletter(t, st, "nl-1", models.NewsletterReview, 1)

	if err := st.UpdateNewsletterStatus(ctx, "nl-1", models.NewsletterReview, models.NewsletterApproved); err != nil {
		t.Fatalf("first swap: %v", err)
	}
	err := st.UpdateNewsletterStatus(ctx, "nl-1", models.NewsletterReview, models.NewsletterApproved)
	if !errors.Is(err, store.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	err = st.UpdateNewsletterStatus(ctx, "missing", models.NewsletterDraft, models.NewsletterReview)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := st.GetNewsletter(ctx, "nl-1")
	if err != nil || got.Status != models.NewsletterApproved {
		t.Fatalf("unexpected newsletter after swaps: %+v, err %v", got, err)
	}
}

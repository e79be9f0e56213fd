package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/service"
	"github.com/ifuryst/contentos/internal/testsupport"
)

func seed(t *testing.T, env *testEnv, opts ...testsupport.ContentOption) *models.ContentRecord {
	t.Helper()
	opts = append([]testsupport.ContentOption{testsupport.WithCreatedAt(baseTime.Add(-time.Hour).UnixMilli())}, opts...)
	return testsupport.SeedContent(t, env.store, opts...)
}

func TestTransitionTable(t *testing.T) {
	allowed := map[models.ContentStatus][]models.ContentStatus{
		models.StatusDraft:      {models.StatusReview, models.StatusApproved, models.StatusRejected},
		models.StatusReview:     {models.StatusApproved, models.StatusRejected},
		models.StatusApproved:   {models.StatusScheduled, models.StatusPublishing, models.StatusRejected},
		models.StatusScheduled:  {models.StatusPublishing, models.StatusRejected},
		models.StatusPublishing: {models.StatusPublished, models.StatusFailed, models.StatusRejected},
		models.StatusFailed:     {models.StatusDraft, models.StatusRejected},
		models.StatusRejected:   {models.StatusDraft},
		models.StatusPublished:  nil,
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			if got := service.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRequestReviewAndApprove(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, testConfig())
	record := seed(t, env)

	if err := env.project.Workflow.RequestReview(ctx, record.ID); err != nil {
		t.Fatalf("request review: %v", err)
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.Status != models.StatusReview {
		t.Fatalf("expected review, got %s", got.Status)
	}

	if err := env.project.Workflow.Approve(ctx, record.ID, "editor@apppro.kr"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got := testsupport.MustGet(t, env.store, record.ID)
	if got.Status != models.StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != "editor@apppro.kr" {
		t.Fatalf("unexpected approved_by %v", got.ApprovedBy)
	}
	if got.ApprovedAt == nil || *got.ApprovedAt != baseTime.UnixMilli() {
		t.Fatalf("expected approved_at %d, got %v", baseTime.UnixMilli(), got.ApprovedAt)
	}
	if got.UpdatedAt != baseTime.UnixMilli() {
		t.Fatalf("expected updated_at %d, got %d", baseTime.UnixMilli(), got.UpdatedAt)
	}
}

func TestApproveUsesDefaultApprover(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env)

	if err := env.project.Workflow.Approve(context.Background(), record.ID, " "); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got := testsupport.MustGet(t, env.store, record.ID)
	if got.ApprovedBy == nil || *got.ApprovedBy != "VP/CEO" {
		t.Fatalf("expected default approver, got %v", got.ApprovedBy)
	}
}

func TestApprovePublishedIsInvalidTransition(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusPublished))

	err := env.project.Workflow.Approve(context.Background(), record.ID, "editor")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	var te *service.TransitionError
	if !errors.As(err, &te) || te.From != models.StatusPublished || te.To != models.StatusApproved {
		t.Fatalf("expected transition error naming both states, got %#v", err)
	}

	got := testsupport.MustGet(t, env.store, record.ID)
	if got.Status != models.StatusPublished || got.UpdatedAt != record.UpdatedAt || got.ApprovedBy != nil {
		t.Fatalf("record changed after refused transition: %+v", got)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	env := newEnv(t, testConfig())

	if err := env.project.Workflow.RequestReview(context.Background(), "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusReview))

	for _, reason := range []string{"", "   "} {
		err := env.project.Workflow.Reject(context.Background(), record.ID, reason)
		if !errors.Is(err, service.ErrInvalidArgument) {
			t.Fatalf("reason %q: expected ErrInvalidArgument, got %v", reason, err)
		}
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.Status != models.StatusReview {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}
}

func TestRejectFromEachState(t *testing.T) {
	tests := []struct {
		from    models.ContentStatus
		allowed bool
	}{
		{models.StatusDraft, true},
		{models.StatusReview, true},
		{models.StatusApproved, true},
		{models.StatusScheduled, true},
		{models.StatusPublishing, true},
		{models.StatusFailed, true},
		{models.StatusPublished, false},
		{models.StatusRejected, false},
	}

	env := newEnv(t, testConfig())
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			record := seed(t, env, testsupport.WithStatus(tt.from))
			err := env.project.Workflow.Reject(context.Background(), record.ID, "off-brand tone")

			got := testsupport.MustGet(t, env.store, record.ID)
			if tt.allowed {
				if err != nil {
					t.Fatalf("reject: %v", err)
				}
				if got.Status != models.StatusRejected || got.RejectedReason == nil || *got.RejectedReason != "off-brand tone" {
					t.Fatalf("unexpected record: status=%s reason=%v", got.Status, got.RejectedReason)
				}
				return
			}
			if !errors.Is(err, service.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if got.Status != tt.from {
				t.Fatalf("expected %s, got %s", tt.from, got.Status)
			}
		})
	}
}

func TestResetToDraftClearsWorkflowFields(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusApproved), testsupport.WithApproval("editor", 1))

	if err := env.project.Workflow.Reject(ctx, record.ID, "needs sources"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := env.project.Workflow.ResetToDraft(ctx, record.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got := testsupport.MustGet(t, env.store, record.ID)
	if got.Status != models.StatusDraft {
		t.Fatalf("expected draft, got %s", got.Status)
	}
	if got.RejectedReason != nil || got.ApprovedBy != nil || got.ApprovedAt != nil || got.ScheduledAt != nil {
		t.Fatalf("expected cleared fields, got %+v", got)
	}
}

func TestResetToDraftOnlyFromRejectedOrFailed(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusReview))

	if err := env.project.Workflow.ResetToDraft(context.Background(), record.ID); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	failed := seed(t, env, testsupport.WithStatus(models.StatusFailed))
	if err := env.project.Workflow.ResetToDraft(context.Background(), failed.ID); err != nil {
		t.Fatalf("reset failed record: %v", err)
	}
}

func TestScheduleEnforcesLeadTime(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusApproved))

	tooSoon := baseTime.Add(time.Second).UnixMilli()
	err := env.project.Workflow.Schedule(ctx, record.ID, tooSoon)
	if !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.Status != models.StatusApproved || got.ScheduledAt != nil {
		t.Fatalf("record changed after refused schedule: %+v", got)
	}

	exactlyLead := baseTime.Add(10 * time.Minute).UnixMilli()
	if err := env.project.Workflow.Schedule(ctx, record.ID, exactlyLead); !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expected lead boundary to be refused, got %v", err)
	}

	when := baseTime.Add(20 * time.Minute).UnixMilli()
	if err := env.project.Workflow.Schedule(ctx, record.ID, when); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	got := testsupport.MustGet(t, env.store, record.ID)
	if got.Status != models.StatusScheduled || got.ScheduledAt == nil || *got.ScheduledAt != when {
		t.Fatalf("unexpected scheduled record: status=%s scheduled_at=%v", got.Status, got.ScheduledAt)
	}
}

func TestScheduleRequiresApproved(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env)

	err := env.project.Workflow.Schedule(context.Background(), record.ID, baseTime.Add(time.Hour).UnixMilli())
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConfiguredLeadTime(t *testing.T) {
	cfg := testConfig()
	cfg.Workflow.MinScheduleLead = "1h"
	env := newEnv(t, cfg)
	record := seed(t, env, testsupport.WithStatus(models.StatusApproved))

	err := env.project.Workflow.Schedule(context.Background(), record.ID, baseTime.Add(30*time.Minute).UnixMilli())
	if !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expected a 30 minute schedule to be refused under a 1h lead, got %v", err)
	}
}

func TestLeavingScheduledClearsScheduledAt(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusScheduled), testsupport.WithScheduledAt(baseTime.Add(time.Hour).UnixMilli()))

	if err := env.project.Workflow.Reject(context.Background(), record.ID, "pulled"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.ScheduledAt != nil {
		t.Fatalf("expected scheduled_at cleared, got %d", *got.ScheduledAt)
	}
}

func TestUpdatedAtNeverMovesBackwards(t *testing.T) {
	env := newEnv(t, testConfig())
	future := baseTime.Add(time.Hour).UnixMilli()
	record := seed(t, env, testsupport.WithCreatedAt(future))

	if err := env.project.Workflow.RequestReview(context.Background(), record.ID); err != nil {
		t.Fatalf("request review: %v", err)
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.UpdatedAt < future {
		t.Fatalf("updated_at moved backwards: %d < %d", got.UpdatedAt, future)
	}
}

func TestBulkTransitionCollectsFailures(t *testing.T) {
	env := newEnv(t, testConfig())
	draft := seed(t, env)
	review := seed(t, env, testsupport.WithStatus(models.StatusReview))
	published := seed(t, env, testsupport.WithStatus(models.StatusPublished))

	result, err := env.project.Workflow.BulkTransition(context.Background(),
		[]string{draft.ID, review.ID, published.ID, "missing", draft.ID},
		models.StatusApproved, service.BulkOptions{Approver: "lead"})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 2 {
		t.Fatalf("expected 2 succeeded and 2 failed, got %+v", result)
	}

	failedIDs := map[string]string{}
	for _, e := range result.Errors {
		failedIDs[e.ID] = e.Error
	}
	if _, ok := failedIDs[published.ID]; !ok {
		t.Fatalf("expected %s among failures, got %+v", published.ID, result.Errors)
	}
	if msg := failedIDs["missing"]; !strings.Contains(msg, "not found") {
		t.Fatalf("expected not found error for missing id, got %q", msg)
	}
}

func TestBulkTransitionRejectsUnsupportedTarget(t *testing.T) {
	env := newEnv(t, testConfig())
	record := seed(t, env, testsupport.WithStatus(models.StatusApproved))

	_, err := env.project.Workflow.BulkTransition(context.Background(), []string{record.ID}, models.StatusPublished, service.BulkOptions{})
	if !errors.Is(err, service.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if got := testsupport.MustGet(t, env.store, record.ID); got.Status != models.StatusApproved {
		t.Fatalf("expected record untouched, got %s", got.Status)
	}
}

func TestBulkRejectWithoutReasonFailsEveryItem(t *testing.T) {
	env := newEnv(t, testConfig())
	a := seed(t, env)
	b := seed(t, env)

	result, err := env.project.Workflow.BulkTransition(context.Background(), []string{a.ID, b.ID}, models.StatusRejected, service.BulkOptions{})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 2 {
		t.Fatalf("expected every item to fail, got %+v", result)
	}
}

func TestCreateContent(t *testing.T) {
	env := newEnv(t, testConfig())

	record, err := env.project.Workflow.CreateContent(context.Background(), service.CreateContentInput{
		Type:            models.TypeNewsletter,
		Title:           "  Weekly AI digest  ",
		Channel:         "brevo",
		Pillar:          "AI News",
		ContentBody:     "# Hello",
		Metadata:        models.ContentMetadata{Tags: []string{"ai"}},
		Priority:        3,
		PlatformTargets: []string{"brevo", " "},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := testsupport.MustGet(t, env.store, record.ID)
	if got.Status != models.StatusDraft || got.Title != "Weekly AI digest" || got.ChannelName() != "brevo" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Project == nil || *got.Project != "apppro" {
		t.Fatalf("expected project apppro, got %v", got.Project)
	}
	if targets := got.Targets(); len(targets) != 1 || targets[0] != "brevo" {
		t.Fatalf("unexpected targets %v", targets)
	}
	if len(got.Metadata.Tags) != 1 {
		t.Fatalf("expected metadata tags to round trip, got %+v", got.Metadata)
	}
}

func TestCreateContentValidation(t *testing.T) {
	env := newEnv(t, testConfig())

	tests := []struct {
		name  string
		input service.CreateContentInput
	}{
		{"missing title", service.CreateContentInput{Title: "  "}},
		{"unknown type", service.CreateContentInput{Title: "x", Type: "podcast"}},
		{"negative priority", service.CreateContentInput{Title: "x", Priority: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.project.Workflow.CreateContent(context.Background(), tt.input)
			if !errors.Is(err, service.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

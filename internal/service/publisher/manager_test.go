package publisher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/service/publisher"
)

// stubPublisher posts to url and accepts any 2xx response.
type stubPublisher struct {
	name      string
	url       string
	configErr error
	buildErr  error
}

func (s *stubPublisher) GetPlatformName() string { return s.name }

func (s *stubPublisher) ValidateConfig() error { return s.configErr }

func (s *stubPublisher) BuildRequest(content publisher.PublishContent) (*publisher.Request, error) {
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return &publisher.Request{
		Method:  http.MethodPost,
		URL:     s.url,
		Headers: map[string]string{"X-Content-ID": content.ID},
		Body:    []byte(content.Title),
	}, nil
}

func (s *stubPublisher) ParseResponse(statusCode int, body []byte) publisher.Outcome {
	if publisher.IsSuccessStatus(statusCode) {
		return publisher.Outcome{Accepted: true, URL: s.url + "/" + string(body)}
	}
	return publisher.Outcome{Message: "stub rejected: " + string(body)}
}

func TestRegisterAndLookup(t *testing.T) {
	m := publisher.NewPublishManager(zap.NewNop(), 0)
	if m.Timeout() != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", m.Timeout())
	}

	for _, name := range []string{"zeta", "alpha"} {
		if err := m.RegisterPublisher(&stubPublisher{name: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := m.RegisterPublisher(&stubPublisher{name: "alpha"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	if got := m.GetAvailablePlatforms(); len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Fatalf("unexpected platforms %v", got)
	}
	if !m.HasPublisher("zeta") || m.HasPublisher("omega") {
		t.Fatal("unexpected HasPublisher result")
	}
	if _, err := m.GetPublisher("omega"); !errors.Is(err, publisher.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestValidateReportsConfiguration(t *testing.T) {
	m := publisher.NewPublishManager(zap.NewNop(), time.Second)
	configErr := errors.Join(publisher.ErrConfiguration, errors.New("api key missing"))
	_ = m.RegisterPublisher(&stubPublisher{name: "stub", configErr: configErr})

	if _, err := m.Validate("stub"); !errors.Is(err, publisher.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := m.Validate("missing"); !errors.Is(err, publisher.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestDeliverAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Content-ID") != "c-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("post-1"))
	}))
	defer srv.Close()

	m := publisher.NewPublishManager(zap.NewNop(), time.Second)
	delivery := m.Deliver(context.Background(), &stubPublisher{name: "stub", url: srv.URL}, publisher.PublishContent{ID: "c-1", Title: "hello"})

	if !delivery.Success || delivery.Err != nil {
		t.Fatalf("expected success, got %+v", delivery)
	}
	if delivery.StatusCode == nil || *delivery.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %v", delivery.StatusCode)
	}
	if delivery.URL != srv.URL+"/post-1" || delivery.ResponseBody != "post-1" {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
}

func TestDeliverRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("bad title"))
	}))
	defer srv.Close()

	m := publisher.NewPublishManager(zap.NewNop(), time.Second)
	delivery := m.Deliver(context.Background(), &stubPublisher{name: "stub", url: srv.URL}, publisher.PublishContent{ID: "c-1"})

	if delivery.Success || !errors.Is(delivery.Err, publisher.ErrDestinationRejected) {
		t.Fatalf("expected rejection, got %+v", delivery)
	}
	if !strings.Contains(delivery.Err.Error(), "stub rejected: bad title") {
		t.Fatalf("expected destination message, got %v", delivery.Err)
	}
	if delivery.StatusCode == nil || *delivery.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %v", delivery.StatusCode)
	}
}

func TestDeliverTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	m := publisher.NewPublishManager(zap.NewNop(), 50*time.Millisecond)
	delivery := m.Deliver(context.Background(), &stubPublisher{name: "stub", url: srv.URL}, publisher.PublishContent{ID: "c-1"})

	if !errors.Is(delivery.Err, publisher.ErrTimeout) || !errors.Is(delivery.Err, publisher.ErrTransport) {
		t.Fatalf("expected timeout transport error, got %v", delivery.Err)
	}
	if delivery.StatusCode != nil {
		t.Fatalf("expected no status code, got %d", *delivery.StatusCode)
	}
}

func TestDeliverUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := publisher.NewPublishManager(zap.NewNop(), time.Second)
	delivery := m.Deliver(context.Background(), &stubPublisher{name: "stub", url: url}, publisher.PublishContent{ID: "c-1"})

	if !errors.Is(delivery.Err, publisher.ErrTransport) || errors.Is(delivery.Err, publisher.ErrTimeout) {
		t.Fatalf("expected plain transport error, got %v", delivery.Err)
	}
}

func TestDeliverBuildFailure(t *testing.T) {
	m := publisher.NewPublishManager(zap.NewNop(), time.Second)
	delivery := m.Deliver(context.Background(), &stubPublisher{name: "stub", buildErr: errors.New("boom")}, publisher.PublishContent{})

	if !errors.Is(delivery.Err, publisher.ErrTransport) {
		t.Fatalf("expected transport error, got %v", delivery.Err)
	}
}

func TestFromContentRecord(t *testing.T) {
	pillar := "AI News"
	record := &models.ContentRecord{
		ID:          "c-1",
		Type:        models.TypeNewsletter,
		Title:       "  Weekly digest ",
		ContentBody: "# Body",
		Pillar:      &pillar,
		Metadata:    models.ContentMetadata{SEOTitle: "SEO", Description: "desc"},
	}

	content := publisher.FromContentRecord(record)
	if content.Title != "Weekly digest" || content.Pillar != "AI News" || content.Type != "newsletter" {
		t.Fatalf("unexpected content %+v", content)
	}
	if content.Tags == nil || len(content.Tags) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", content.Tags)
	}
	if content.SEOTitle != "SEO" || content.Description != "desc" {
		t.Fatalf("unexpected metadata mapping %+v", content)
	}
}

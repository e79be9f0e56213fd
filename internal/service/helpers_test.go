package service_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/service"
	"github.com/ifuryst/contentos/internal/store"
	"github.com/ifuryst/contentos/internal/testsupport"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Publisher.Timeout = "2s"
	return cfg
}

type testEnv struct {
	store   *store.GormStore
	project *service.Project
}

func newEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()

	manager, err := service.NewChannelManager(cfg, testsupport.Logger())
	if err != nil {
		t.Fatalf("build channel manager: %v", err)
	}

	st := testsupport.NewStore(t)
	project := service.NewProject(service.ProjectSettings{
		ID: "apppro",
		Workflow: service.WorkflowSettings{
			MinScheduleLead: cfg.MinScheduleLead(),
			DefaultApprover: cfg.Workflow.DefaultApprover,
		},
		SweepLimit: cfg.Publisher.SweepLimit,
	}, st, manager, testsupport.Logger(), service.WithClock(testsupport.FixedClock(baseTime)))

	return &testEnv{store: st, project: project}
}

// destination is a fake channel endpoint that records every request.
type destination struct {
	*httptest.Server
	requests chan *capturedRequest
}

type capturedRequest struct {
	Header http.Header
	Body   []byte
}

func newDestination(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *destination {
	t.Helper()

	d := &destination{requests: make(chan *capturedRequest, 64)}
	d.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		d.requests <- &capturedRequest{Header: r.Header.Clone(), Body: body}
		handler(w, r)
	}))
	t.Cleanup(d.Close)
	return d
}

func jsonResponse(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

// Delivery is the result of one outbound call.
type Delivery struct {
	Success      bool
	StatusCode   *int
	ResponseBody string
	URL          string
	// Err wraps ErrDestinationRejected, ErrTransport or ErrTimeout when the
	// call did not succeed.
	Err error
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		if client != nil {
			m.client = client
		}
	}
}

// Manager holds the channel registry and performs outbound calls.
type Manager struct {
	publishers map[string]Publisher
	logger     *zap.Logger
	client     *http.Client
	timeout    time.Duration
}

func NewPublishManager(logger *zap.Logger, timeout time.Duration, opts ...ManagerOption) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := &Manager{
		publishers: make(map[string]Publisher),
		logger:     logger,
		client:     &http.Client{},
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) RegisterPublisher(publisher Publisher) error {
	platformName := publisher.GetPlatformName()
	if _, exists := m.publishers[platformName]; exists {
		return fmt.Errorf("publisher for platform %s already registered", platformName)
	}

	m.publishers[platformName] = publisher
	m.logger.Info("Publisher registered", zap.String("platform", platformName))
	return nil
}

func (m *Manager) GetPublisher(platformName string) (Publisher, error) {
	publisher, exists := m.publishers[platformName]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, platformName)
	}
	return publisher, nil
}

// HasPublisher reports whether platformName has a registered publisher.
func (m *Manager) HasPublisher(platformName string) bool {
	_, exists := m.publishers[platformName]
	return exists
}

// GetAvailablePlatforms returns the registered channel names in sorted order.
func (m *Manager) GetAvailablePlatforms() []string {
	platforms := make([]string, 0, len(m.publishers))
	for name := range m.publishers {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)
	return platforms
}

// Validate resolves platformName and checks its configuration without any I/O.
func (m *Manager) Validate(platformName string) (Publisher, error) {
	publisher, err := m.GetPublisher(platformName)
	if err != nil {
		return nil, err
	}
	if err := publisher.ValidateConfig(); err != nil {
		return nil, err
	}
	return publisher, nil
}

// Timeout returns the per-call deadline.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Deliver performs exactly one outbound call for content on publisher.
func (m *Manager) Deliver(ctx context.Context, publisher Publisher, content PublishContent) *Delivery {
	platformName := publisher.GetPlatformName()

	req, err := publisher.BuildRequest(content)
	if err != nil {
		return &Delivery{Err: fmt.Errorf("%w: build request: %v", ErrTransport, err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return &Delivery{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := m.client.Do(httpReq)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			m.logger.Warn("Publish call timed out",
				zap.String("platform", platformName),
				zap.String("content_id", content.ID),
				zap.Duration("timeout", m.timeout))
			return &Delivery{Err: fmt.Errorf("%w: %w: request timed out after %s", ErrTransport, ErrTimeout, m.timeout)}
		}
		m.logger.Error("Publish call failed",
			zap.String("platform", platformName),
			zap.String("content_id", content.ID),
			zap.Error(err))
		return &Delivery{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	statusCode := resp.StatusCode
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &Delivery{StatusCode: &statusCode, Err: fmt.Errorf("%w: %w: response timed out after %s", ErrTransport, ErrTimeout, m.timeout)}
		}
		return &Delivery{StatusCode: &statusCode, Err: fmt.Errorf("%w: read response: %v", ErrTransport, err)}
	}

	outcome := publisher.ParseResponse(statusCode, body)
	delivery := &Delivery{
		Success:      outcome.Accepted,
		StatusCode:   &statusCode,
		ResponseBody: string(body),
		URL:          outcome.URL,
	}
	if !outcome.Accepted {
		delivery.Err = fmt.Errorf("%w: %s", ErrDestinationRejected, outcome.Message)
	}

	m.logger.Info("Publish call completed",
		zap.String("platform", platformName),
		zap.String("content_id", content.ID),
		zap.Int("status_code", statusCode),
		zap.Bool("accepted", outcome.Accepted),
		zap.Duration("duration", time.Since(start)))
	return delivery
}

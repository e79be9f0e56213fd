package publisher

import (
	"errors"
	"strings"

	"github.com/ifuryst/contentos/internal/models"
)

var (
	// ErrUnknownChannel is returned for a channel with no registered publisher.
	ErrUnknownChannel = errors.New("publisher: unknown channel")
	// ErrConfiguration is returned when a registered channel lacks credentials.
	ErrConfiguration = errors.New("publisher: channel not configured")
	// ErrDestinationRejected marks a response the destination did not accept.
	ErrDestinationRejected = errors.New("publisher: destination rejected content")
	// ErrTransport marks a failed outbound call.
	ErrTransport = errors.New("publisher: transport error")
	// ErrTimeout marks an outbound call that exceeded the publish timeout.
	// It always also matches ErrTransport.
	ErrTimeout = errors.New("publisher: timed out")
)

// UntitledSubject replaces an empty title in outbound payloads.
const UntitledSubject = "(untitled)"

// PublishContent is the channel-neutral view of a record handed to publishers.
type PublishContent struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Pillar      string   `json:"pillar"`
	Tags        []string `json:"tags"`
	SEOTitle    string   `json:"seo_title"`
	Description string   `json:"description"`
}

// Request is a fully built outbound call. Building one never performs I/O.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Outcome is a publisher's reading of a destination response.
type Outcome struct {
	Accepted bool
	URL      string
	// Message explains a rejection.
	Message string
}

// Publisher builds and interprets the single outbound call of one channel.
type Publisher interface {
	GetPlatformName() string

	// ValidateConfig reports missing credentials, wrapping ErrConfiguration.
	ValidateConfig() error

	BuildRequest(content PublishContent) (*Request, error)
	ParseResponse(statusCode int, body []byte) Outcome
}

// FromContentRecord converts a stored record to PublishContent.
func FromContentRecord(record *models.ContentRecord) PublishContent {
	content := PublishContent{
		ID:          record.ID,
		Type:        string(record.Type),
		Title:       strings.TrimSpace(record.Title),
		Content:     record.ContentBody,
		Pillar:      record.PillarName(),
		Tags:        record.Metadata.Tags,
		SEOTitle:    record.Metadata.SEOTitle,
		Description: record.Metadata.Description,
	}
	if content.Tags == nil {
		content.Tags = []string{}
	}
	return content
}

// IsSuccessStatus reports whether code is a 2xx HTTP status.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

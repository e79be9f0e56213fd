package brevo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/service/publisher"
	"github.com/ifuryst/contentos/pkg/util"
)

const PlatformName = "brevo"

// BrevoPublisher creates a Brevo email campaign per content record.
type BrevoPublisher struct {
	config      config.BrevoConfig
	transformer *BrevoTransformer
}

type campaignRequest struct {
	Name        string     `json:"name"`
	Subject     string     `json:"subject"`
	Sender      sender     `json:"sender"`
	Type        string     `json:"type"`
	HTMLContent string     `json:"htmlContent"`
	Recipients  recipients `json:"recipients"`
}

type sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type recipients struct {
	ListIDs []int `json:"listIds"`
}

type campaignResponse struct {
	ID      json.Number `json:"id"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

func NewBrevoPublisher(cfg config.BrevoConfig) *BrevoPublisher {
	return &BrevoPublisher{
		config:      cfg,
		transformer: NewBrevoTransformer(),
	}
}

func (p *BrevoPublisher) GetPlatformName() string {
	return PlatformName
}

func (p *BrevoPublisher) ValidateConfig() error {
	if strings.TrimSpace(p.config.APIKey) == "" {
		return fmt.Errorf("%w: publisher.brevo.api_key (BREVO_API_KEY) is not set", publisher.ErrConfiguration)
	}
	if strings.TrimSpace(p.config.APIURL) == "" {
		return fmt.Errorf("%w: publisher.brevo.api_url is not set", publisher.ErrConfiguration)
	}
	return nil
}

func (p *BrevoPublisher) BuildRequest(content publisher.PublishContent) (*publisher.Request, error) {
	subject := content.Title
	if subject == "" {
		subject = publisher.UntitledSubject
	}

	htmlContent, err := p.transformer.RenderHTML(subject, content.Content)
	if err != nil {
		return nil, err
	}

	listID := p.config.ListID
	if listID <= 0 {
		listID = 3
	}

	payload := campaignRequest{
		Name:    "content-" + util.ShortID(content.ID, 8),
		Subject: subject,
		Sender: sender{
			Name:  p.config.SenderName,
			Email: p.config.SenderEmail,
		},
		Type:        "classic",
		HTMLContent: htmlContent,
		Recipients:  recipients{ListIDs: []int{listID}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode campaign: %w", err)
	}

	return &publisher.Request{
		Method: http.MethodPost,
		URL:    p.config.APIURL,
		Headers: map[string]string{
			"accept":       "application/json",
			"content-type": "application/json",
			"api-key":      p.config.APIKey,
		},
		Body: body,
	}, nil
}

// ParseResponse accepts a 2xx response carrying a campaign id.
func (p *BrevoPublisher) ParseResponse(statusCode int, body []byte) publisher.Outcome {
	var resp campaignResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return publisher.Outcome{Message: fmt.Sprintf("Brevo API error: invalid response (HTTP %d)", statusCode)}
	}

	id := resp.ID.String()
	if publisher.IsSuccessStatus(statusCode) && id != "" && id != "0" {
		return publisher.Outcome{
			Accepted: true,
			URL:      p.config.ReportURL + id,
		}
	}

	message := resp.Message
	if message == "" {
		message = "Brevo API error"
	}
	return publisher.Outcome{Message: message}
}

var _ publisher.Publisher = (*BrevoPublisher)(nil)

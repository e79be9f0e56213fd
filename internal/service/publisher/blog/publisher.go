package blog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/service/publisher"
)

const PlatformName = "blog.apppro.kr"

// BlogPublisher posts articles to the company blog API.
type BlogPublisher struct {
	config config.BlogConfig
}

type postResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

func NewBlogPublisher(cfg config.BlogConfig) *BlogPublisher {
	return &BlogPublisher{config: cfg}
}

func (p *BlogPublisher) GetPlatformName() string {
	return PlatformName
}

func (p *BlogPublisher) ValidateConfig() error {
	if strings.TrimSpace(p.config.APIKey) == "" {
		return fmt.Errorf("%w: publisher.blog.api_key (APPPRO_BLOG_API_KEY) is not set", publisher.ErrConfiguration)
	}
	if strings.TrimSpace(p.config.APIURL) == "" {
		return fmt.Errorf("%w: publisher.blog.api_url is not set", publisher.ErrConfiguration)
	}
	return nil
}

func (p *BlogPublisher) BuildRequest(content publisher.PublishContent) (*publisher.Request, error) {
	body, err := json.Marshal(transformPost(content, p.config.Author))
	if err != nil {
		return nil, fmt.Errorf("encode post: %w", err)
	}

	return &publisher.Request{
		Method: http.MethodPost,
		URL:    p.config.APIURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"x-api-key":    p.config.APIKey,
		},
		Body: body,
	}, nil
}

// ParseResponse accepts a 2xx response with success=true.
func (p *BlogPublisher) ParseResponse(statusCode int, body []byte) publisher.Outcome {
	var resp postResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return publisher.Outcome{Message: fmt.Sprintf("Blog API error: invalid response (HTTP %d)", statusCode)}
	}

	if publisher.IsSuccessStatus(statusCode) && resp.Success {
		return publisher.Outcome{Accepted: true, URL: resp.URL}
	}

	message := resp.Error
	if message == "" {
		message = "Blog API error"
	}
	return publisher.Outcome{Message: message}
}

var _ publisher.Publisher = (*BlogPublisher)(nil)

package blog

import (
	"github.com/ifuryst/contentos/internal/service/publisher"
	"github.com/ifuryst/contentos/pkg/util"
)

// postRequest is the body accepted by the blog publish API.
type postRequest struct {
	Title          string   `json:"title"`
	Slug           string   `json:"slug"`
	Content        string   `json:"content"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	SEOTitle       string   `json:"seo_title"`
	SEODescription string   `json:"seo_description"`
	Author         string   `json:"author"`
	Published      bool     `json:"published"`
}

// transformPost maps content to the blog payload. The slug falls back to
// post-<first 8 id chars> when the title yields no ASCII characters.
func transformPost(content publisher.PublishContent, author string) postRequest {
	title := content.Title
	if title == "" {
		title = publisher.UntitledSubject
	}

	category := content.Pillar
	if category == "" {
		category = "general"
	}

	seoTitle := content.SEOTitle
	if seoTitle == "" {
		seoTitle = content.Title
	}

	tags := content.Tags
	if tags == nil {
		tags = []string{}
	}

	return postRequest{
		Title:          title,
		Slug:           util.GenerateSlug(content.Title, "post-"+util.ShortID(content.ID, 8)),
		Content:        content.Content,
		Category:       category,
		Tags:           tags,
		SEOTitle:       seoTitle,
		SEODescription: content.Description,
		Author:         author,
		Published:      true,
	}
}

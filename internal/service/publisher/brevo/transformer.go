package brevo

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// BrevoTransformer renders markdown bodies into campaign HTML.
type BrevoTransformer struct {
	engine goldmark.Markdown
}

func NewBrevoTransformer() *BrevoTransformer {
	return &BrevoTransformer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Raw HTML in the body is dropped.
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// RenderHTML wraps the rendered body in a minimal email document headed by title.
func (t *BrevoTransformer) RenderHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := t.engine.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<html><body>")
	fmt.Fprintf(&doc, "<h1>%s</h1>", html.EscapeString(title))
	doc.Write(body.Bytes())
	doc.WriteString("</body></html>")
	return doc.String(), nil
}

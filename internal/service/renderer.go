package service

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/newsdesk/internal/db"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer renders article bodies with goldmark and sanitizes the
// result with bluemonday before it becomes a publication artifact.
type MarkdownRenderer struct {
	engine    goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewMarkdownRenderer creates the default renderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps(), goldmarkhtml.WithXHTML()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// RenderHTML produces the HTML child artifact: sanitized rendered markdown
// inside a minimal page shell.
func (r *MarkdownRenderer) RenderHTML(ctx context.Context, article *db.Article, markdown string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rendered bytes.Buffer
	if err := r.engine.Convert([]byte(markdown), &rendered); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	body := r.sanitizer.SanitizeBytes(rendered.Bytes())

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	page.WriteString("<meta charset=\"utf-8\"/>\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(article.Headline))
	page.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&page, "<article data-topic=%q>\n", html.EscapeString(article.Topic))
	fmt.Fprintf(&page, "<h1>%s</h1>\n", html.EscapeString(article.Headline))
	if article.Author != "" {
		fmt.Fprintf(&page, "<p class=\"byline\">%s</p>\n", html.EscapeString(article.Author))
	}
	page.Write(body)
	page.WriteString("\n</article>\n</body>\n</html>\n")

	return page.Bytes(), nil
}

// RenderPDF produces the PDF child artifact from the plain text of the body.
func (r *MarkdownRenderer) RenderPDF(ctx context.Context, article *db.Article, markdown string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := pdfTextLines(markdown)
	return buildPDF(article.Headline, article.Author, lines), nil
}

// pdfTextLines flattens markdown to wrapped plain-text lines. Markup that
// has no plain-text meaning (heading markers, emphasis) is stripped.
func pdfTextLines(markdown string) []string {
	const width = 92

	var lines []string
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		line = strings.TrimLeft(line, "#")
		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "*", "")
		line = strings.TrimSpace(line)

		if line == "" {
			lines = append(lines, "")
			continue
		}

		for len(line) > width {
			cut := strings.LastIndex(line[:width], " ")
			if cut <= 0 {
				cut = width
			}
			lines = append(lines, strings.TrimSpace(line[:cut]))
			line = strings.TrimSpace(line[cut:])
		}
		lines = append(lines, line)
	}
	return lines
}

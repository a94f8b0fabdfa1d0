// Package extract turns raw article HTML into clean title, body text and
// publication date by stripping page chrome and boilerplate.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/digest-service/internal/entity"
)

// boilerplateSelector matches elements that never contain article body text.
const boilerplateSelector = "script, style, noscript, iframe, svg, nav, header, footer, aside, form, button, figure, figcaption"

var whitespaceRun = regexp.MustCompile(`[ \t\r\f]+`)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Article parses htmlContent and extracts structured article fields.
// A parse failure returns an error; a page that parses but yields no body
// text returns an empty Text with a nil error, so callers can distinguish
// broken markup from content-free pages.
func Article(htmlContent string) (entity.ExtractedContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return entity.ExtractedContent{}, err
	}

	content := entity.ExtractedContent{
		Title: extractTitle(doc),
		Date:  extractDate(doc),
	}

	doc.Find(boilerplateSelector).Remove()
	content.Text = extractBody(doc)
	return content, nil
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractDate(doc *goquery.Document) *time.Time {
	candidates := []string{}
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find(`meta[name="date"]`).Attr("content"); ok {
		candidates = append(candidates, v)
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		candidates = append(candidates, v)
	}

	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				utc := ts.UTC()
				return &utc
			}
		}
	}
	return nil
}

// extractBody prefers the semantic article container and falls back to
// main, then body. Paragraph text is joined; when a page carries no <p>
// elements at all, the container's own text is used.
func extractBody(doc *goquery.Document) string {
	for _, selector := range []string{"article", "main", "body"} {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		var paragraphs []string
		container.Find("p").Each(func(_ int, s *goquery.Selection) {
			if text := normalizeSpace(s.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}

		if text := normalizeSpace(container.Text()); text != "" {
			return text
		}
	}
	return ""
}

func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

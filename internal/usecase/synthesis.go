package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/user/digest-service/internal/entity"
)

// metaPromptTemplate asks the model to write the actual digest prompt for
// today's article set. Generating the prompt in a first pass keeps the
// digest instructions adapted to whatever the day's coverage looks like.
const metaPromptTemplate = `You are an expert prompt engineer. Write a prompt for a news digest writer.

The digest covers the topic %q for %s. The writer will receive %d article texts as input.

The prompt you write must instruct the writer to:
- open with a short overview of the day's most important developments
- group related stories together and deduplicate overlapping coverage
- attribute claims to their source publications
- keep a neutral, factual tone

Article metadata for context:
%s

Respond with the prompt text only, no preamble.`

// htmlOnlyInstruction is appended to the generated digest prompt so the
// second pass returns a renderable document instead of markdown.
const htmlOnlyInstruction = `

Format the digest as a complete standalone HTML document with inline CSS suitable for email clients. Respond with the HTML only: no markdown, no code fences, no commentary before or after the document.`

const emailMetadataPromptTemplate = `Given the following HTML news digest about %q, write an email subject line and a short preview text for it.

Respond with a JSON object only, with exactly these keys:
{"subject_line": "...", "preview_text": "..."}

The subject line must be under 80 characters. The preview text must be under 120 characters and must not repeat the subject line.

Digest:
%s`

const forumPostPromptTemplate = `Convert the following HTML news digest about %q into a forum post.

Respond with a JSON object only, with exactly these keys:
{"extracted_title": "...", "markdown_body": "..."}

The title must be under 250 characters. The body must be well-formed markdown: use headings, bullet lists and links, and drop any styling or layout markup from the source document.

Digest:
%s`

type articleMeta struct {
	Title           string `json:"title"`
	SourceDomain    string `json:"source_domain,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
}

// buildMetaPrompt renders the first-pass prompt from the day's articles.
func buildMetaPrompt(term string, date time.Time, articles []entity.FinalArticle) (string, error) {
	metas := make([]articleMeta, 0, len(articles))
	for _, a := range articles {
		meta := articleMeta{Title: a.Title, SourceDomain: a.SourceDomain}
		if a.PublicationDate != nil {
			meta.PublicationDate = a.PublicationDate.UTC().Format("2006-01-02")
		}
		metas = append(metas, meta)
	}

	encoded, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal article metadata: %w", err)
	}
	return fmt.Sprintf(metaPromptTemplate, term, formattedDate(date), len(articles), string(encoded)), nil
}

func buildDigestPrompt(generatedPrompt string, articles []entity.FinalArticle) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(generatedPrompt))
	b.WriteString(htmlOnlyInstruction)
	b.WriteString("\n\nArticles:\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "\n--- Article %d: %s (%s) ---\n%s\n", i+1, a.Title, a.SourceDomain, a.Text)
	}
	return b.String()
}

// formattedDate renders a date like "23rd of August 2026".
func formattedDate(t time.Time) string {
	day := t.Day()
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s of %s %d", day, suffix, t.Month(), t.Year())
}

var htmlDocument = regexp.MustCompile(`(?is)(<!DOCTYPE[^>]*>\s*)?<html.*</html>`)

// cleanHTMLOutput isolates the HTML document from a completion that may
// wrap it in code fences or chatty framing.
func cleanHTMLOutput(raw string) string {
	trimmed := stripCodeFence(raw)
	if doc := htmlDocument.FindString(trimmed); doc != "" {
		return doc
	}
	return trimmed
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop a language tag on the opening fence.
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, " <>") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

type emailMetadata struct {
	SubjectLine string `json:"subject_line"`
	PreviewText string `json:"preview_text"`
}

func parseEmailMetadata(raw string) (emailMetadata, error) {
	var meta emailMetadata
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &meta); err != nil {
		return emailMetadata{}, fmt.Errorf("parse email metadata: %w", err)
	}
	if meta.SubjectLine == "" {
		return emailMetadata{}, fmt.Errorf("email metadata has no subject line")
	}
	return meta, nil
}

type forumAdaptation struct {
	ExtractedTitle string `json:"extracted_title"`
	MarkdownBody   string `json:"markdown_body"`
}

func parseForumAdaptation(raw string) (forumAdaptation, error) {
	var post forumAdaptation
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &post); err != nil {
		return forumAdaptation{}, fmt.Errorf("parse forum adaptation: %w", err)
	}
	if post.ExtractedTitle == "" || post.MarkdownBody == "" {
		return forumAdaptation{}, fmt.Errorf("forum adaptation is incomplete")
	}
	return post, nil
}

package entity

import "time"

// Resolution error codes. An empty string means the article resolved cleanly;
// any other value (including free-form messages from the browser layer) marks
// the article as unresolved.
const (
	ResolveErrMissingLink = "missing_link"
	ResolveErrTimeout     = "timeout"
	ResolveErrConsent     = "consent_failure"
	ResolveErrBrowser     = "browser_failure"
)

// Extraction error codes, empty string meaning a clean extraction.
const (
	ExtractErrFetchFailed   = "fetch_failed"
	ExtractErrEmptyResponse = "empty_response"
	ExtractErrParseFailed   = "parse_failed"
	ExtractErrTooShort      = "too_short"
)

// ArticleStub is the minimal article record produced by a feed fetch,
// before URL resolution. SourceLink is always set; it may be an
// indirection URL that still needs to be resolved.
type ArticleStub struct {
	Title        string     `json:"title"`
	SourceLink   string     `json:"source_link"`
	PublishedAt  *time.Time `json:"publication_date,omitempty"`
	SourceName   string     `json:"source_name,omitempty"`
	SourceDomain string     `json:"source_domain,omitempty"`
}

// ResolvedArticle is a stub after URL resolution. Exactly one of
// ResolvedURL / ResolutionError is set once resolution has run.
type ResolvedArticle struct {
	ArticleStub
	ResolvedURL     string `json:"resolved_url,omitempty"`
	ResolutionError string `json:"resolution_error,omitempty"`
}

// EnrichedArticle is a resolved article after content extraction.
// ExtractionError == "" implies ExtractedText is present and meets the
// configured minimum length.
type EnrichedArticle struct {
	ResolvedArticle
	ExtractedTitle  string     `json:"extracted_title,omitempty"`
	ExtractedText   string     `json:"extracted_text,omitempty"`
	ExtractedDate   *time.Time `json:"extracted_date,omitempty"`
	ExtractionError string     `json:"extraction_error,omitempty"`
}

// ExtractedContent holds the structured output of the boilerplate-removal
// step for a single page.
type ExtractedContent struct {
	Title string
	Text  string
	Date  *time.Time
}

// FinalArticle is the output payload of the retrieval pipeline: only
// articles with a resolved URL and usable extracted text make it here.
type FinalArticle struct {
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	SourceDomain    string     `json:"source_domain,omitempty"`
	Text            string     `json:"text"`
}

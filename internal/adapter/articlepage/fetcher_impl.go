package articlepage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/user/digest-service/internal/repository"
)

// maxBodyBytes caps how much of an article page is read; pages past this
// size are navigation-heavy portals, not articles.
const maxBodyBytes = 4 << 20

// Fetcher downloads raw article HTML with a browser-like identity to reduce
// bot blocking. One fetcher is shared by the extraction worker pool; the
// underlying http.Client is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	referer    string
}

var _ repository.PageFetcher = (*Fetcher)(nil)

func NewFetcher(timeout time.Duration, userAgent, referer string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		referer:    referer,
	}
}

// FetchHTML issues a single GET for the page. Any transport error or error
// status is returned as-is; there are no retries at this layer.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new page request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", f.referer)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}
	return string(body), nil
}

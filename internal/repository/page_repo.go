package repository

import "context"

// PageFetcher fetches raw article HTML. Implementations must be safe for
// concurrent use, as the extraction worker pool shares one fetcher.
type PageFetcher interface {
	FetchHTML(ctx context.Context, rawURL string) (string, error)
}

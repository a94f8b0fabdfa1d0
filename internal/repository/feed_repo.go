package repository

import (
	"context"

	"github.com/user/digest-service/internal/entity"
)

// FeedRepository defines the contract for fetching article stubs from a
// news feed source.
type FeedRepository interface {
	// Fetch runs a single feed query and returns the parsed stubs. A
	// transport or feed-level parse failure yields an error; per-item
	// parse failures are skipped, not surfaced.
	Fetch(ctx context.Context, query entity.FeedQuery) ([]entity.ArticleStub, error)
}

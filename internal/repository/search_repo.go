package repository

import (
	"context"

	"github.com/user/digest-service/internal/entity"
)

// SearchRepository defines the contract for a news search API that returns
// direct article URLs, so browser-based URL resolution can be skipped.
type SearchRepository interface {
	Search(ctx context.Context, query entity.FeedQuery) ([]entity.ResolvedArticle, error)
}

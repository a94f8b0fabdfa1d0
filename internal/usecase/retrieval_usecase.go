package usecase

import (
	"context"
	"log/slog"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/utils"
)

// URLResolver resolves feed stubs to publisher URLs.
type URLResolver interface {
	Resolve(ctx context.Context, stubs []entity.ArticleStub) []entity.ResolvedArticle
}

// ContentExtractor enriches resolved articles with page content.
type ContentExtractor interface {
	Extract(ctx context.Context, articles []entity.ResolvedArticle) []entity.EnrichedArticle
}

// Retrieval runs the article retrieval pipeline: fetch, resolve, extract,
// filter. When a search repository is configured it replaces the feed and
// resolver stages, since search results already carry direct URLs.
type Retrieval struct {
	feed      repository.FeedRepository
	search    repository.SearchRepository
	resolver  URLResolver
	extractor ContentExtractor
}

func NewRetrieval(feed repository.FeedRepository, search repository.SearchRepository, resolver URLResolver, extractor ContentExtractor) *Retrieval {
	return &Retrieval{feed: feed, search: search, resolver: resolver, extractor: extractor}
}

// Run executes the pipeline for one query and returns the articles that
// survived every stage. Fetch failures degrade to an empty result: per the
// pipeline's error policy no stage raises past its boundary, the failure is
// logged and the caller sees a list that happens to be empty.
func (r *Retrieval) Run(ctx context.Context, query entity.FeedQuery) ([]entity.FinalArticle, error) {
	var resolved []entity.ResolvedArticle

	if r.search != nil {
		found, err := r.search.Search(ctx, query)
		if err != nil {
			slog.Error("search failed", "query", query.Term, "error", err)
			return nil, nil
		}
		resolved = found
	} else {
		stubs, err := r.feed.Fetch(ctx, query)
		if err != nil {
			slog.Error("feed fetch failed", "query", query.Term, "error", err)
			return nil, nil
		}
		if len(stubs) == 0 {
			slog.Info("feed returned no articles", "query", query.Term)
			return nil, nil
		}
		resolved = r.resolver.Resolve(ctx, stubs)
	}

	if len(resolved) == 0 {
		return nil, nil
	}

	enriched := r.extractor.Extract(ctx, resolved)
	final := finalize(enriched)
	slog.Info("retrieval finished", "query", query.Term, "candidates", len(resolved), "final", len(final))
	return final, nil
}

// finalize keeps only articles with a resolved URL and usable extracted
// text, preferring extracted title and date over the feed's when present.
func finalize(enriched []entity.EnrichedArticle) []entity.FinalArticle {
	out := make([]entity.FinalArticle, 0, len(enriched))
	for _, a := range enriched {
		if a.ResolvedURL == "" || a.ExtractionError != "" || a.ExtractedText == "" {
			continue
		}

		final := entity.FinalArticle{
			Title:           a.Title,
			Link:            a.ResolvedURL,
			PublicationDate: a.PublishedAt,
			SourceDomain:    a.SourceDomain,
			Text:            a.ExtractedText,
		}
		if a.ExtractedTitle != "" {
			final.Title = a.ExtractedTitle
		}
		if a.ExtractedDate != nil {
			final.PublicationDate = a.ExtractedDate
		}
		if domain := utils.DomainFromURL(a.ResolvedURL); domain != "" {
			final.SourceDomain = domain
		}
		out = append(out, final)
	}
	return out
}

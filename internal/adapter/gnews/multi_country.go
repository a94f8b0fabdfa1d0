package gnews

import (
	"context"
	"log/slog"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
)

// MultiCountryFeed unions country-specific fetches of the same query,
// deduplicating by raw source link. The first occurrence of a link wins and
// call order is preserved.
type MultiCountryFeed struct {
	repo      repository.FeedRepository
	countries []string
}

var _ repository.FeedRepository = (*MultiCountryFeed)(nil)

func NewMultiCountryFeed(repo repository.FeedRepository, countries []string) *MultiCountryFeed {
	return &MultiCountryFeed{repo: repo, countries: countries}
}

// Fetch runs the query once per configured country. A failing country is
// logged and skipped; it never aborts the remaining countries.
func (m *MultiCountryFeed) Fetch(ctx context.Context, query entity.FeedQuery) ([]entity.ArticleStub, error) {
	seen := make(map[string]struct{})
	var collated []entity.ArticleStub

	for _, country := range m.countries {
		countryQuery := query
		countryQuery.CountryCode = country

		stubs, err := m.repo.Fetch(ctx, countryQuery)
		if err != nil {
			slog.Warn("country fetch failed, skipping", "country", country, "error", err)
			continue
		}

		added := 0
		for _, stub := range stubs {
			if stub.SourceLink == "" {
				continue
			}
			if _, ok := seen[stub.SourceLink]; ok {
				continue
			}
			seen[stub.SourceLink] = struct{}{}
			collated = append(collated, stub)
			added++
		}
		slog.Info("country fetch merged", "country", country, "fetched", len(stubs), "new", added)
	}

	slog.Info("international fetch finished", "unique_articles", len(collated))
	return collated, nil
}

package gnews

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/metrics"
	"github.com/user/digest-service/pkg/utils"
)

// FeedRepo fetches article stubs from a Google-News-style RSS search feed.
type FeedRepo struct {
	baseURL    string
	httpClient *http.Client
	parser     *rss.Parser

	// now is injectable for date-window tests.
	now func() time.Time
}

var _ repository.FeedRepository = (*FeedRepo)(nil)

// NewFeedRepo creates a feed repository against baseURL (the /rss/search
// endpoint) with a bounded per-fetch timeout.
func NewFeedRepo(baseURL string, timeout time.Duration) *FeedRepo {
	return &FeedRepo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		parser:     &rss.Parser{},
		now:        time.Now,
	}
}

// Fetch issues a single feed request and returns the date-filtered stubs.
// A transport or feed-level parse failure is returned as an error; callers
// treat it as an empty result. Individual malformed items are skipped.
func (r *FeedRepo) Fetch(ctx context.Context, query entity.FeedQuery) ([]entity.ArticleStub, error) {
	feedURL, err := r.buildFeedURL(query)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("new feed request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode)
	}

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	stubs := make([]entity.ArticleStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		stub := entity.ArticleStub{
			Title:      item.Title,
			SourceLink: item.Link,
		}
		if item.PubDateParsed != nil {
			utc := item.PubDateParsed.UTC()
			stub.PublishedAt = &utc
		}
		if item.Source != nil {
			stub.SourceName = item.Source.Title
			stub.SourceDomain = utils.DomainFromURL(item.Source.URL)
		}
		stubs = append(stubs, stub)
	}

	filtered := filterByDateWindow(stubs, query.DaysBack, r.now().UTC())
	slog.Info("feed fetch finished",
		"query", query.Term,
		"country", query.CountryCode,
		"items", len(stubs),
		"kept", len(filtered),
	)
	metrics.FeedFetchesTotal.WithLabelValues("success").Inc()
	return filtered, nil
}

func (r *FeedRepo) buildFeedURL(query entity.FeedQuery) (string, error) {
	if strings.TrimSpace(query.Term) == "" {
		return "", fmt.Errorf("query term is mandatory")
	}

	base, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse feed base url: %w", err)
	}

	params := url.Values{}
	params.Set("q", query.Term)
	if query.LanguageCode != "" {
		params.Set("hl", query.LanguageCode)
	}
	if query.CountryCode != "" {
		params.Set("gl", query.CountryCode)
	}
	if query.LanguageCode != "" && query.CountryCode != "" {
		params.Set("ceid", strings.ToUpper(query.CountryCode)+":"+strings.ToLower(query.LanguageCode))
	}
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// filterByDateWindow keeps stubs published within [today-daysBack, today],
// both bounds inclusive at date granularity. A negative daysBack disables
// filtering; with filtering on, stubs without a parseable date are dropped.
func filterByDateWindow(stubs []entity.ArticleStub, daysBack int, now time.Time) []entity.ArticleStub {
	if daysBack < 0 {
		return stubs
	}

	today := now.Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -daysBack)

	kept := make([]entity.ArticleStub, 0, len(stubs))
	for _, stub := range stubs {
		if stub.PublishedAt == nil {
			slog.Warn("dropping stub without publication date", "title", stub.Title)
			continue
		}
		day := stub.PublishedAt.UTC().Truncate(24 * time.Hour)
		if !day.Before(start) && !day.After(today) {
			kept = append(kept, stub)
		}
	}
	return kept
}

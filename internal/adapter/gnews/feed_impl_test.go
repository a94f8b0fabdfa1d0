package gnews

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/digest-service/internal/entity"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"real madrid" - News Search</title>
%s
</channel>
</rss>`

func feedItem(title, link, pubDate, sourceName, sourceURL string) string {
	item := "<item><title>" + title + "</title>"
	if link != "" {
		item += "<link>" + link + "</link>"
	}
	if pubDate != "" {
		item += "<pubDate>" + pubDate + "</pubDate>"
	}
	if sourceName != "" {
		item += fmt.Sprintf(`<source url=%q>%s</source>`, sourceURL, sourceName)
	}
	return item + "</item>"
}

func newTestRepo(t *testing.T, body string, status int) (*FeedRepo, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	repo := NewFeedRepo(srv.URL, 5*time.Second)
	repo.now = func() time.Time {
		return time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC)
	}
	return repo, srv
}

func TestFeedRepoFetch(t *testing.T) {
	query := entity.FeedQuery{Term: "real madrid", DaysBack: 1, LanguageCode: "en", CountryCode: "US"}

	t.Run("parses items and source metadata", func(t *testing.T) {
		body := fmt.Sprintf(feedTemplate, feedItem(
			"Title A", "https://news.example/a",
			"Sun, 23 Aug 2026 08:00:00 GMT",
			"Example News", "https://www.example.com",
		))
		repo, _ := newTestRepo(t, body, http.StatusOK)

		stubs, err := repo.Fetch(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, stubs, 1)

		assert.Equal(t, "Title A", stubs[0].Title)
		assert.Equal(t, "https://news.example/a", stubs[0].SourceLink)
		assert.Equal(t, "Example News", stubs[0].SourceName)
		assert.Equal(t, "example.com", stubs[0].SourceDomain)
		require.NotNil(t, stubs[0].PublishedAt)
		assert.Equal(t, time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC), *stubs[0].PublishedAt)
	})

	t.Run("date window bounds are inclusive", func(t *testing.T) {
		body := fmt.Sprintf(feedTemplate,
			feedItem("Today", "https://news.example/today", "Sun, 23 Aug 2026 01:00:00 GMT", "", "")+
				feedItem("Window start", "https://news.example/start", "Sat, 22 Aug 2026 23:59:00 GMT", "", "")+
				feedItem("Too old", "https://news.example/old", "Fri, 21 Aug 2026 12:00:00 GMT", "", ""),
		)
		repo, _ := newTestRepo(t, body, http.StatusOK)

		stubs, err := repo.Fetch(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, stubs, 2)
		assert.Equal(t, "Today", stubs[0].Title)
		assert.Equal(t, "Window start", stubs[1].Title)
	})

	t.Run("items without dates are dropped when filtering", func(t *testing.T) {
		body := fmt.Sprintf(feedTemplate,
			feedItem("Dated", "https://news.example/dated", "Sun, 23 Aug 2026 01:00:00 GMT", "", "")+
				feedItem("Undated", "https://news.example/undated", "", "", ""),
		)
		repo, _ := newTestRepo(t, body, http.StatusOK)

		stubs, err := repo.Fetch(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, stubs, 1)
		assert.Equal(t, "Dated", stubs[0].Title)
	})

	t.Run("negative days back disables filtering", func(t *testing.T) {
		body := fmt.Sprintf(feedTemplate,
			feedItem("Ancient", "https://news.example/ancient", "Mon, 05 Jan 2015 12:00:00 GMT", "", "")+
				feedItem("Undated", "https://news.example/undated", "", "", ""),
		)
		repo, _ := newTestRepo(t, body, http.StatusOK)

		unbounded := query
		unbounded.DaysBack = -1
		stubs, err := repo.Fetch(context.Background(), unbounded)
		require.NoError(t, err)
		assert.Len(t, stubs, 2)
	})

	t.Run("items without links are skipped", func(t *testing.T) {
		body := fmt.Sprintf(feedTemplate,
			feedItem("No link", "", "Sun, 23 Aug 2026 01:00:00 GMT", "", "")+
				feedItem("Linked", "https://news.example/linked", "Sun, 23 Aug 2026 01:00:00 GMT", "", ""),
		)
		repo, _ := newTestRepo(t, body, http.StatusOK)

		stubs, err := repo.Fetch(context.Background(), query)
		require.NoError(t, err)
		require.Len(t, stubs, 1)
		assert.Equal(t, "Linked", stubs[0].Title)
	})

	t.Run("error status", func(t *testing.T) {
		repo, _ := newTestRepo(t, "Service Unavailable", http.StatusServiceUnavailable)
		_, err := repo.Fetch(context.Background(), query)
		assert.Error(t, err)
	})

	t.Run("malformed xml", func(t *testing.T) {
		repo, _ := newTestRepo(t, "<html>not a feed</html>", http.StatusOK)
		_, err := repo.Fetch(context.Background(), query)
		assert.Error(t, err)
	})

	t.Run("empty term is rejected", func(t *testing.T) {
		repo, _ := newTestRepo(t, fmt.Sprintf(feedTemplate, ""), http.StatusOK)
		_, err := repo.Fetch(context.Background(), entity.FeedQuery{Term: "  "})
		assert.Error(t, err)
	})
}

func TestBuildFeedURL(t *testing.T) {
	repo := NewFeedRepo("https://news.google.com/rss/search", time.Second)

	u, err := repo.buildFeedURL(entity.FeedQuery{Term: "real madrid", LanguageCode: "en", CountryCode: "US"})
	require.NoError(t, err)
	assert.Contains(t, u, "q=real+madrid")
	assert.Contains(t, u, "hl=en")
	assert.Contains(t, u, "gl=US")
	assert.Contains(t, u, "ceid=US%3Aen")

	u, err = repo.buildFeedURL(entity.FeedQuery{Term: "tottenham"})
	require.NoError(t, err)
	assert.NotContains(t, u, "ceid=")
}

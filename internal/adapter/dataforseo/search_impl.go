package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
)

const (
	statusOK        = 20000
	searchTimestamp = "2006-01-02 15:04:05 -07:00"
)

// SearchRepo queries the DataForSEO news SERP endpoint. Unlike the RSS
// feed, results carry direct article URLs, so articles come back already
// resolved and skip browser resolution entirely.
type SearchRepo struct {
	apiURL     string
	login      string
	password   string
	httpClient *http.Client
	now        func() time.Time
}

var _ repository.SearchRepository = (*SearchRepo)(nil)

func NewSearchRepo(apiURL, login, password string, timeout time.Duration) *SearchRepo {
	return &SearchRepo{
		apiURL:     apiURL,
		login:      login,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type taskPayload struct {
	LanguageCode string `json:"language_code"`
	LocationCode int    `json:"location_code"`
	Keyword      string `json:"keyword"`
}

type apiResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Items []resultItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

type resultItem struct {
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	Domain    string       `json:"domain"`
	Timestamp string       `json:"timestamp"`
	Items     []resultItem `json:"items"`
}

// Search posts a live news query and returns resolved articles within the
// recency window.
func (r *SearchRepo) Search(ctx context.Context, query entity.FeedQuery) ([]entity.ResolvedArticle, error) {
	if r.login == "" || r.password == "" {
		return nil, fmt.Errorf("search API credentials are not configured")
	}

	body, err := json.Marshal([]taskPayload{{
		LanguageCode: query.LanguageCode,
		LocationCode: query.LocationCode,
		Keyword:      query.Term,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new search request: %w", err)
	}
	req.SetBasicAuth(r.login, r.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if parsed.StatusCode != statusOK {
		return nil, fmt.Errorf("search API error: %s", parsed.StatusMessage)
	}
	if len(parsed.Tasks) == 0 || parsed.Tasks[0].StatusCode != statusOK {
		msg := "no tasks in response"
		if len(parsed.Tasks) > 0 {
			msg = parsed.Tasks[0].StatusMessage
		}
		return nil, fmt.Errorf("search task failed: %s", msg)
	}

	var articles []entity.ResolvedArticle
	for _, result := range parsed.Tasks[0].Result {
		for _, item := range result.Items {
			switch item.Type {
			case "news_search":
				if a, ok := itemToArticle(item); ok {
					articles = append(articles, a)
				}
			case "top_stories":
				for _, sub := range item.Items {
					if a, ok := itemToArticle(sub); ok {
						articles = append(articles, a)
					}
				}
			}
		}
	}

	filtered := filterByRecency(articles, query.DaysBack, r.now().UTC())
	slog.Info("search fetch finished", "query", query.Term, "parsed", len(articles), "kept", len(filtered))
	return filtered, nil
}

func itemToArticle(item resultItem) (entity.ResolvedArticle, bool) {
	if item.URL == "" || item.Title == "" {
		return entity.ResolvedArticle{}, false
	}
	article := entity.ResolvedArticle{
		ArticleStub: entity.ArticleStub{
			Title:        item.Title,
			SourceLink:   item.URL,
			SourceDomain: item.Domain,
		},
		ResolvedURL: item.URL,
	}
	if ts, err := time.Parse(searchTimestamp, item.Timestamp); err == nil {
		utc := ts.UTC()
		article.PublishedAt = &utc
	}
	return article, true
}

func filterByRecency(articles []entity.ResolvedArticle, daysBack int, now time.Time) []entity.ResolvedArticle {
	if daysBack < 0 {
		return articles
	}

	start := now.Truncate(24 * time.Hour).AddDate(0, 0, -daysBack)
	kept := make([]entity.ResolvedArticle, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt == nil {
			slog.Warn("dropping search result without timestamp", "title", a.Title)
			continue
		}
		if !a.PublishedAt.UTC().Truncate(24 * time.Hour).Before(start) {
			kept = append(kept, a)
		}
	}
	return kept
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/extract"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/metrics"
	"github.com/user/digest-service/pkg/utils"
)

// Extractor downloads and parses article pages over a bounded worker pool.
// The pool stays small on purpose: publisher sites rate-limit aggressively
// and two concurrent fetches already saturate the pipeline.
type Extractor struct {
	fetcher    repository.PageFetcher
	workers    int
	minTextLen int
}

func NewExtractor(fetcher repository.PageFetcher, workers, minTextLen int) *Extractor {
	if workers < 1 {
		workers = 1
	}
	return &Extractor{fetcher: fetcher, workers: workers, minTextLen: minTextLen}
}

// Extract enriches every resolvable article with page content. Output order
// matches input order regardless of worker completion order, and articles
// that failed resolution are passed through untouched.
func (e *Extractor) Extract(ctx context.Context, articles []entity.ResolvedArticle) []entity.EnrichedArticle {
	out := make([]entity.EnrichedArticle, len(articles))
	for i, a := range articles {
		out[i] = entity.EnrichedArticle{ResolvedArticle: a}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				e.processOne(ctx, &out[idx])
			}
		}()
	}

	queued := 0
	for i, a := range articles {
		if a.ResolvedURL == "" || a.ResolutionError != "" {
			continue
		}
		jobs <- i
		queued++
	}
	close(jobs)
	wg.Wait()

	slog.Info("extraction batch finished", "eligible", queued, "extracted", countExtracted(out))
	return out
}

// processOne fills in the extraction fields of a single article. A panicking
// parse must not take down the worker pool, so it is converted into a
// per-article error.
func (e *Extractor) processOne(ctx context.Context, article *entity.EnrichedArticle) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("extraction panicked", "url", article.ResolvedURL, "panic", r)
			article.ExtractionError = fmt.Sprintf("unhandled panic: %v", r)
			metrics.ExtractionsTotal.WithLabelValues("panic").Inc()
		}
	}()

	start := time.Now()
	domain := utils.DomainFromURL(article.ResolvedURL)
	defer func() {
		metrics.ExtractionDuration.WithLabelValues(domain).Observe(time.Since(start).Seconds())
	}()

	html, err := e.fetcher.FetchHTML(ctx, article.ResolvedURL)
	if err != nil {
		slog.Warn("page fetch failed", "url", article.ResolvedURL, "error", err)
		article.ExtractionError = entity.ExtractErrFetchFailed
		metrics.ExtractionsTotal.WithLabelValues(entity.ExtractErrFetchFailed).Inc()
		return
	}
	if html == "" {
		article.ExtractionError = entity.ExtractErrEmptyResponse
		metrics.ExtractionsTotal.WithLabelValues(entity.ExtractErrEmptyResponse).Inc()
		return
	}

	content, err := extract.Article(html)
	if err != nil {
		slog.Warn("page parse failed", "url", article.ResolvedURL, "error", err)
		article.ExtractionError = entity.ExtractErrParseFailed
		metrics.ExtractionsTotal.WithLabelValues(entity.ExtractErrParseFailed).Inc()
		return
	}
	if content.Text == "" {
		article.ExtractionError = entity.ExtractErrEmptyResponse
		metrics.ExtractionsTotal.WithLabelValues(entity.ExtractErrEmptyResponse).Inc()
		return
	}

	article.ExtractedTitle = content.Title
	article.ExtractedText = content.Text
	article.ExtractedDate = content.Date

	if utf8.RuneCountInString(content.Text) < e.minTextLen {
		article.ExtractionError = entity.ExtractErrTooShort
		metrics.ExtractionsTotal.WithLabelValues(entity.ExtractErrTooShort).Inc()
		return
	}
	metrics.ExtractionsTotal.WithLabelValues("extracted").Inc()
}

func countExtracted(articles []entity.EnrichedArticle) int {
	n := 0
	for _, a := range articles {
		if a.ExtractionError == "" && a.ExtractedText != "" {
			n++
		}
	}
	return n
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/metrics"
	"github.com/user/digest-service/pkg/utils"
)

// ContentRetriever runs the article retrieval pipeline for one query.
type ContentRetriever interface {
	Run(ctx context.Context, query entity.FeedQuery) ([]entity.FinalArticle, error)
}

// DigestOptions configures the distribution side of a digest run. Channels
// are enabled by their corresponding port being non-nil plus the settings
// they need being present.
type DigestOptions struct {
	EmailRecipients  []string
	FromNameTemplate string
	ForumSubreddit   string
	ForumFlairID     string
	SaveIntermediate bool
	ExportsDir       string
}

// DigestResult summarizes one digest run for the API response.
type DigestResult struct {
	RunID        string `json:"run_id"`
	QueryTerm    string `json:"query_term"`
	ArticleCount int    `json:"article_count"`
	ArchiveURL   string `json:"archive_url,omitempty"`
	EmailSent    bool   `json:"email_sent"`
	ForumPostURL string `json:"forum_post_url,omitempty"`
}

// Digest turns retrieved articles into a rendered digest and pushes it out
// over the configured distribution channels.
type Digest struct {
	retrieval  ContentRetriever
	completion repository.CompletionClient
	blobs      repository.BlobStore
	mail       repository.MailSender
	forum      repository.ForumPoster
	opts       DigestOptions
	now        func() time.Time
}

func NewDigest(retrieval ContentRetriever, completion repository.CompletionClient, blobs repository.BlobStore, mail repository.MailSender, forum repository.ForumPoster, opts DigestOptions) *Digest {
	return &Digest{
		retrieval:  retrieval,
		completion: completion,
		blobs:      blobs,
		mail:       mail,
		forum:      forum,
		opts:       opts,
		now:        time.Now,
	}
}

// Run executes the full digest pipeline for one query. Retrieval or
// synthesis failures abort the run; a failing distribution channel is
// logged and the remaining channels still run.
func (d *Digest) Run(ctx context.Context, query entity.FeedQuery) (*DigestResult, error) {
	runID := uuid.NewString()
	start := d.now()
	log := slog.With("run_id", runID, "query", query.Term)
	log.Info("digest run started")

	result, err := d.run(ctx, log, runID, query)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	log.Info("digest run finished", "articles", result.ArticleCount, "duration", time.Since(start).Round(time.Second).String())
	return result, nil
}

func (d *Digest) run(ctx context.Context, log *slog.Logger, runID string, query entity.FeedQuery) (*DigestResult, error) {
	articles, err := d.retrieval.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no usable articles found for %q", query.Term)
	}
	log.Info("articles retrieved", "count", len(articles))

	digestHTML, err := d.synthesize(ctx, log, query.Term, articles)
	if err != nil {
		return nil, fmt.Errorf("synthesize digest: %w", err)
	}

	result := &DigestResult{
		RunID:        runID,
		QueryTerm:    query.Term,
		ArticleCount: len(articles),
	}
	d.distribute(ctx, log, query.Term, digestHTML, result)
	return result, nil
}

// synthesize is a two-pass generation: the first completion writes a digest
// prompt tailored to the day's articles, the second renders the digest.
func (d *Digest) synthesize(ctx context.Context, log *slog.Logger, term string, articles []entity.FinalArticle) (string, error) {
	metaPrompt, err := buildMetaPrompt(term, d.now().UTC(), articles)
	if err != nil {
		return "", err
	}

	generatedPrompt, err := d.completion.Complete(ctx, metaPrompt)
	if err != nil {
		return "", fmt.Errorf("generate digest prompt: %w", err)
	}
	d.snapshot(log, term, "prompt", "txt", generatedPrompt)

	rendered, err := d.completion.Complete(ctx, buildDigestPrompt(generatedPrompt, articles))
	if err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}

	digestHTML := cleanHTMLOutput(rendered)
	if digestHTML == "" {
		return "", fmt.Errorf("rendered digest is empty")
	}
	d.snapshot(log, term, "digest", "html", digestHTML)
	return digestHTML, nil
}

func (d *Digest) distribute(ctx context.Context, log *slog.Logger, term, digestHTML string, result *DigestResult) {
	if d.blobs != nil {
		if url, err := d.archive(ctx, term, digestHTML); err != nil {
			log.Error("digest archival failed", "error", err)
		} else {
			result.ArchiveURL = url
			log.Info("digest archived", "url", url)
		}
	}

	if d.mail != nil {
		if len(d.opts.EmailRecipients) == 0 {
			log.Warn("email channel enabled but no recipients configured, skipping")
		} else if err := d.sendEmail(ctx, term, digestHTML); err != nil {
			log.Error("digest email failed", "error", err)
		} else {
			result.EmailSent = true
		}
	}

	if d.forum != nil && d.opts.ForumSubreddit != "" {
		if postURL, err := d.postToForum(ctx, term, digestHTML); err != nil {
			log.Error("forum post failed", "error", err)
		} else {
			result.ForumPostURL = postURL
			log.Info("digest posted to forum", "url", postURL)
		}
	}
}

func (d *Digest) archive(ctx context.Context, term, digestHTML string) (string, error) {
	now := d.now().UTC()
	path := fmt.Sprintf("digests/%s/%s_digest_%s.html",
		now.Format("2006/01/02"),
		utils.SanitizeQueryTerm(term),
		now.Format("150405"),
	)
	return d.blobs.Put(ctx, digestHTML, "text/html", path)
}

func (d *Digest) sendEmail(ctx context.Context, term, digestHTML string) error {
	metaRaw, err := d.completion.Complete(ctx, fmt.Sprintf(emailMetadataPromptTemplate, term, digestHTML))
	if err != nil {
		return fmt.Errorf("generate email metadata: %w", err)
	}
	meta, err := parseEmailMetadata(metaRaw)
	if err != nil {
		return err
	}

	return d.mail.Send(ctx, entity.Email{
		Recipients: d.opts.EmailRecipients,
		Subject:    meta.SubjectLine,
		HTML:       digestHTML,
		FromName:   strings.ReplaceAll(d.opts.FromNameTemplate, "{query_term}", term),
		Preview:    meta.PreviewText,
	})
}

func (d *Digest) postToForum(ctx context.Context, term, digestHTML string) (string, error) {
	raw, err := d.completion.Complete(ctx, fmt.Sprintf(forumPostPromptTemplate, term, digestHTML))
	if err != nil {
		return "", fmt.Errorf("adapt digest for forum: %w", err)
	}
	adapted, err := parseForumAdaptation(raw)
	if err != nil {
		return "", err
	}

	return d.forum.Submit(ctx, entity.ForumPost{
		Subreddit: d.opts.ForumSubreddit,
		Title:     adapted.ExtractedTitle,
		Body:      adapted.MarkdownBody,
		FlairID:   d.opts.ForumFlairID,
	})
}

// snapshot writes an intermediate artifact to the exports directory when
// debugging is enabled. Failures only log: snapshots are diagnostics, never
// part of the pipeline contract.
func (d *Digest) snapshot(log *slog.Logger, term, kind, ext, content string) {
	if !d.opts.SaveIntermediate {
		return
	}
	name := fmt.Sprintf("%s_%s_%s.%s", utils.SanitizeQueryTerm(term), kind, d.now().UTC().Format("20060102_150405"), ext)
	if err := os.MkdirAll(d.opts.ExportsDir, 0o755); err != nil {
		log.Warn("snapshot dir create failed", "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(d.opts.ExportsDir, name), []byte(content), 0o644); err != nil {
		log.Warn("snapshot write failed", "file", name, "error", err)
	}
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/metrics"
	"github.com/user/digest-service/pkg/utils"
)

// ResolverConfig carries the URL patterns the resolver classifies with.
type ResolverConfig struct {
	// IndirectionPattern matches URLs still on the redirector host.
	IndirectionPattern *regexp.Regexp
	// ConsentHostPattern matches the consent interstitial host.
	ConsentHostPattern *regexp.Regexp
}

// Resolver turns feed stubs with indirection links into articles with their
// real publisher URLs, driving one browser session per batch.
type Resolver struct {
	launcher repository.BrowserLauncher
	cfg      ResolverConfig
}

func NewResolver(launcher repository.BrowserLauncher, cfg ResolverConfig) *Resolver {
	return &Resolver{launcher: launcher, cfg: cfg}
}

// Resolve maps each stub to a ResolvedArticle in input order. It never
// returns an error: failures are recorded per article so downstream stages
// can skip them. When the browser cannot launch or the consent interstitial
// cannot be cleared, the whole batch is marked failed, since every later
// navigation would hit the same wall.
func (r *Resolver) Resolve(ctx context.Context, stubs []entity.ArticleStub) []entity.ResolvedArticle {
	if len(stubs) == 0 {
		return nil
	}

	firstLinked := -1
	for i, stub := range stubs {
		if stub.SourceLink != "" {
			firstLinked = i
			break
		}
	}
	if firstLinked == -1 {
		return failAll(stubs, entity.ResolveErrMissingLink)
	}

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		slog.Error("browser launch failed", "error", err)
		return failAll(stubs, entity.ResolveErrBrowser)
	}
	defer session.Close()

	// Prime the session on the first linked article. If we land on the
	// consent interstitial it has to be cleared once, after which the
	// browser profile carries the consent cookie for the rest of the batch.
	primedURL, primeErr := session.Navigate(ctx, stubs[firstLinked].SourceLink)
	if primedURL != "" && r.cfg.ConsentHostPattern.MatchString(primedURL) {
		if !session.AcceptConsent(ctx) {
			slog.Error("consent interstitial could not be cleared, failing batch")
			return failAll(stubs, entity.ResolveErrConsent)
		}
		// Re-run the priming navigation now that consent is stored.
		primedURL, primeErr = session.Navigate(ctx, stubs[firstLinked].SourceLink)
	}

	out := make([]entity.ResolvedArticle, len(stubs))
	for i, stub := range stubs {
		resolved := entity.ResolvedArticle{ArticleStub: stub}
		switch {
		case stub.SourceLink == "":
			resolved.ResolutionError = entity.ResolveErrMissingLink
		case i == firstLinked:
			r.classify(&resolved, primedURL, primeErr)
		default:
			finalURL, navErr := session.Navigate(ctx, stub.SourceLink)
			r.classify(&resolved, finalURL, navErr)
		}

		if resolved.ResolutionError == "" {
			metrics.ResolutionsTotal.WithLabelValues("resolved").Inc()
		} else {
			metrics.ResolutionsTotal.WithLabelValues(resolved.ResolutionError).Inc()
		}
		out[i] = resolved
	}

	slog.Info("resolution batch finished", "total", len(out), "resolved", countResolved(out))
	return out
}

// classify interprets a navigation outcome. A timeout whose last observed
// URL already left the indirection host is accepted as resolved: slow
// publisher pages routinely keep loading subresources long after the URL
// bar shows the real article.
func (r *Resolver) classify(resolved *entity.ResolvedArticle, finalURL string, navErr error) {
	switch {
	case navErr == nil:
		if finalURL == "" || r.cfg.IndirectionPattern.MatchString(finalURL) {
			resolved.ResolutionError = entity.ResolveErrTimeout
			return
		}
		resolved.ResolvedURL = finalURL
	case errors.Is(navErr, repository.ErrNavigationTimeout):
		if finalURL != "" && !r.cfg.IndirectionPattern.MatchString(finalURL) {
			slog.Debug("accepting slow page as resolved", "url", finalURL, "domain", utils.DomainFromURL(finalURL))
			resolved.ResolvedURL = finalURL
			return
		}
		resolved.ResolutionError = entity.ResolveErrTimeout
	default:
		slog.Warn("navigation failed", "link", resolved.SourceLink, "error", navErr)
		resolved.ResolutionError = navErr.Error()
	}
}

func failAll(stubs []entity.ArticleStub, code string) []entity.ResolvedArticle {
	out := make([]entity.ResolvedArticle, len(stubs))
	for i, stub := range stubs {
		out[i] = entity.ResolvedArticle{ArticleStub: stub, ResolutionError: code}
		metrics.ResolutionsTotal.WithLabelValues(code).Inc()
	}
	return out
}

func countResolved(articles []entity.ResolvedArticle) int {
	n := 0
	for _, a := range articles {
		if a.ResolutionError == "" {
			n++
		}
	}
	return n
}

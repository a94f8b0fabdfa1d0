package usecase

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
)

var testResolverConfig = ResolverConfig{
	IndirectionPattern: regexp.MustCompile(`^https?://([a-z0-9-]+\.)*gnews\.test`),
	ConsentHostPattern: regexp.MustCompile(`^https?://consent\.gnews\.test`),
}

type navResult struct {
	url string
	err error
}

type fakeSession struct {
	// results are consumed per link in call order.
	results       map[string][]navResult
	navigations   []string
	consentOK     bool
	consentCalled int
	closed        bool
}

func (s *fakeSession) Navigate(_ context.Context, rawURL string) (string, error) {
	s.navigations = append(s.navigations, rawURL)
	queue := s.results[rawURL]
	if len(queue) == 0 {
		return "", fmt.Errorf("unexpected navigation to %s", rawURL)
	}
	next := queue[0]
	s.results[rawURL] = queue[1:]
	return next.url, next.err
}

func (s *fakeSession) AcceptConsent(_ context.Context) bool {
	s.consentCalled++
	return s.consentOK
}

func (s *fakeSession) Close() { s.closed = true }

type fakeLauncher struct {
	session *fakeSession
	err     error
}

func (l *fakeLauncher) Launch(_ context.Context) (repository.BrowserSession, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func linkStub(link string) entity.ArticleStub {
	return entity.ArticleStub{Title: "t", SourceLink: link}
}

func TestResolverResolve(t *testing.T) {
	t.Run("resolves batch in input order", func(t *testing.T) {
		session := &fakeSession{results: map[string][]navResult{
			"https://gnews.test/a": {{url: "https://pub.example/a"}},
			"https://gnews.test/b": {{url: "https://pub.example/b"}},
		}}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{
			linkStub("https://gnews.test/a"),
			linkStub("https://gnews.test/b"),
		})

		require.Len(t, out, 2)
		assert.Equal(t, "https://pub.example/a", out[0].ResolvedURL)
		assert.Equal(t, "https://pub.example/b", out[1].ResolvedURL)
		assert.Empty(t, out[0].ResolutionError)
		assert.Empty(t, out[1].ResolutionError)
		// The first article's priming navigation doubles as its resolution.
		assert.Equal(t, []string{"https://gnews.test/a", "https://gnews.test/b"}, session.navigations)
		assert.True(t, session.closed)
	})

	t.Run("consent interstitial is cleared once", func(t *testing.T) {
		session := &fakeSession{
			consentOK: true,
			results: map[string][]navResult{
				"https://gnews.test/a": {
					{url: "https://consent.gnews.test/ml?continue=x"},
					{url: "https://pub.example/a"},
				},
			},
		}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{linkStub("https://gnews.test/a")})

		require.Len(t, out, 1)
		assert.Equal(t, "https://pub.example/a", out[0].ResolvedURL)
		assert.Equal(t, 1, session.consentCalled)
	})

	t.Run("unclearable consent fails the whole batch", func(t *testing.T) {
		session := &fakeSession{
			consentOK: false,
			results: map[string][]navResult{
				"https://gnews.test/a": {{url: "https://consent.gnews.test/ml"}},
			},
		}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{
			linkStub("https://gnews.test/a"),
			linkStub("https://gnews.test/b"),
		})

		require.Len(t, out, 2)
		for _, a := range out {
			assert.Equal(t, entity.ResolveErrConsent, a.ResolutionError)
			assert.Empty(t, a.ResolvedURL)
		}
		// No further navigation after the failed consent attempt.
		assert.Equal(t, []string{"https://gnews.test/a"}, session.navigations)
	})

	t.Run("launch failure fails the whole batch", func(t *testing.T) {
		r := NewResolver(&fakeLauncher{err: fmt.Errorf("chrome not found")}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{
			linkStub("https://gnews.test/a"),
			linkStub("https://gnews.test/b"),
		})

		require.Len(t, out, 2)
		for _, a := range out {
			assert.Equal(t, entity.ResolveErrBrowser, a.ResolutionError)
		}
	})

	t.Run("timeout still on indirection host", func(t *testing.T) {
		session := &fakeSession{results: map[string][]navResult{
			"https://gnews.test/a": {{url: "https://gnews.test/a", err: repository.ErrNavigationTimeout}},
		}}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{linkStub("https://gnews.test/a")})

		require.Len(t, out, 1)
		assert.Equal(t, entity.ResolveErrTimeout, out[0].ResolutionError)
		assert.Empty(t, out[0].ResolvedURL)
	})

	t.Run("timeout off the indirection host is accepted", func(t *testing.T) {
		session := &fakeSession{results: map[string][]navResult{
			"https://gnews.test/a": {{url: "https://slow-publisher.example/a", err: repository.ErrNavigationTimeout}},
		}}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{linkStub("https://gnews.test/a")})

		require.Len(t, out, 1)
		assert.Equal(t, "https://slow-publisher.example/a", out[0].ResolvedURL)
		assert.Empty(t, out[0].ResolutionError)
	})

	t.Run("navigation error message is recorded", func(t *testing.T) {
		session := &fakeSession{results: map[string][]navResult{
			"https://gnews.test/a": {{url: "", err: fmt.Errorf("net::ERR_NAME_NOT_RESOLVED")}},
		}}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{linkStub("https://gnews.test/a")})

		require.Len(t, out, 1)
		assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", out[0].ResolutionError)
	})

	t.Run("missing links are marked without navigating", func(t *testing.T) {
		session := &fakeSession{results: map[string][]navResult{
			"https://gnews.test/b": {{url: "https://pub.example/b"}},
		}}
		r := NewResolver(&fakeLauncher{session: session}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{
			{Title: "no link"},
			linkStub("https://gnews.test/b"),
		})

		require.Len(t, out, 2)
		assert.Equal(t, entity.ResolveErrMissingLink, out[0].ResolutionError)
		assert.Equal(t, "https://pub.example/b", out[1].ResolvedURL)
	})

	t.Run("batch with no links never launches a browser", func(t *testing.T) {
		r := NewResolver(&fakeLauncher{err: fmt.Errorf("should not launch")}, testResolverConfig)

		out := r.Resolve(context.Background(), []entity.ArticleStub{{Title: "a"}, {Title: "b"}})

		require.Len(t, out, 2)
		for _, a := range out {
			assert.Equal(t, entity.ResolveErrMissingLink, a.ResolutionError)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		r := NewResolver(&fakeLauncher{}, testResolverConfig)
		assert.Nil(t, r.Resolve(context.Background(), nil))
	})
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/digest-service/internal/delivery/http/response"
	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/usecase"
)

type fakeDigest struct {
	result *usecase.DigestResult
	err    error
	query  entity.FeedQuery
}

func (f *fakeDigest) Run(_ context.Context, query entity.FeedQuery) (*usecase.DigestResult, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var defaultQuery = entity.FeedQuery{Term: "real madrid", DaysBack: 1, LanguageCode: "en", CountryCode: "US"}

func TestHandleRunDigest(t *testing.T) {
	t.Run("success with defaults", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{
			RunID:        "run-1",
			QueryTerm:    "real madrid",
			ArticleCount: 3,
			ArchiveURL:   "https://archive.example/d.html",
			EmailSent:    true,
		}}
		h := NewHandler(digest, defaultQuery)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader("{}"))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp response.RunDigestResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "run-1", resp.RunID)
		assert.Equal(t, 3, resp.ArticleCount)
		assert.True(t, resp.EmailSent)
		assert.Equal(t, defaultQuery, digest.query)
	})

	t.Run("empty body falls back to defaults", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{RunID: "run-2"}}
		h := NewHandler(digest, defaultQuery)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", nil)
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultQuery, digest.query)
	})

	t.Run("request overrides defaults", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{RunID: "run-3"}}
		h := NewHandler(digest, defaultQuery)

		body := `{"query_term": "tottenham", "days_back": 3, "country_code": "GB"}`
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader(body))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tottenham", digest.query.Term)
		assert.Equal(t, 3, digest.query.DaysBack)
		assert.Equal(t, "GB", digest.query.CountryCode)
		assert.Equal(t, "en", digest.query.LanguageCode)
	})

	t.Run("days_back zero override is honored", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{RunID: "run-4"}}
		h := NewHandler(digest, defaultQuery)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader(`{"days_back": 0}`))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, digest.query.DaysBack)
	})

	t.Run("missing term without default", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{}}
		h := NewHandler(digest, entity.FeedQuery{})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader("{}"))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		digest := &fakeDigest{result: &usecase.DigestResult{}}
		h := NewHandler(digest, defaultQuery)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader("{not json"))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pipeline failure is a 500 with failure payload", func(t *testing.T) {
		digest := &fakeDigest{err: fmt.Errorf("no usable articles found for \"real madrid\"")}
		h := NewHandler(digest, defaultQuery)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/digest", strings.NewReader("{}"))
		h.HandleRunDigest(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var resp response.RunDigestResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "failure", resp.Status)
		assert.Contains(t, resp.Message, "no usable articles")
	})
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewHandler(&fakeDigest{}, defaultQuery)
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

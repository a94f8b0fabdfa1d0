package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/user/digest-service/internal/delivery/http/request"
	"github.com/user/digest-service/internal/delivery/http/response"
	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/usecase"
)

// DigestRunner is the slice of the digest usecase the HTTP layer needs.
type DigestRunner interface {
	Run(ctx context.Context, query entity.FeedQuery) (*usecase.DigestResult, error)
}

type Handler struct {
	digest       DigestRunner
	defaultQuery entity.FeedQuery
}

func NewHandler(digest DigestRunner, defaultQuery entity.FeedQuery) *Handler {
	return &Handler{
		digest:       digest,
		defaultQuery: defaultQuery,
	}
}

func (h *Handler) HandleRunDigest(w http.ResponseWriter, r *http.Request) {
	var req request.RunDigestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	query := h.defaultQuery
	if req.QueryTerm != "" {
		query.Term = req.QueryTerm
	}
	if req.LanguageCode != "" {
		query.LanguageCode = req.LanguageCode
	}
	if req.CountryCode != "" {
		query.CountryCode = req.CountryCode
	}
	if req.DaysBack != nil {
		query.DaysBack = *req.DaysBack
	}
	if query.Term == "" {
		h.writeJSONError(w, "query_term is required", http.StatusBadRequest)
		return
	}

	result, err := h.digest.Run(r.Context(), query)
	if err != nil {
		slog.Error("Digest run failed", "query", query.Term, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, response.RunDigestResponse{
			Status:  "failure",
			Message: err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, response.RunDigestResponse{
		Status:       "success",
		Message:      "Digest generated and distributed.",
		RunID:        result.RunID,
		ArticleCount: result.ArticleCount,
		ArchiveURL:   result.ArchiveURL,
		EmailSent:    result.EmailSent,
		ForumPostURL: result.ForumPostURL,
	})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/digest-service/internal/entity"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) *Sender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewSender("key", "digest@example.com", 5*time.Second)
	s.apiURL = srv.URL
	return s
}

func TestSend(t *testing.T) {
	email := entity.Email{
		Recipients: []string{"a@example.com", "b@example.com"},
		Subject:    "Daily Digest",
		HTML:       "<html><body><h1>Digest</h1></body></html>",
		FromName:   "real madrid Daily",
		Preview:    "Three stories today",
	}

	t.Run("builds v3 payload", func(t *testing.T) {
		var got sendPayload
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		})

		require.NoError(t, s.Send(context.Background(), email))

		require.Len(t, got.Personalizations, 1)
		require.Len(t, got.Personalizations[0].To, 2)
		assert.Equal(t, "a@example.com", got.Personalizations[0].To[0].Email)
		assert.Equal(t, "digest@example.com", got.From.Email)
		assert.Equal(t, "real madrid Daily", got.From.Name)
		assert.Equal(t, "Daily Digest", got.Subject)
		require.Len(t, got.Content, 1)
		assert.Equal(t, "text/html", got.Content[0].Type)
		assert.Contains(t, got.Content[0].Value, "Three stories today")
		assert.Contains(t, got.Content[0].Value, "<h1>Digest</h1>")
	})

	t.Run("error status", func(t *testing.T) {
		s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"errors":[{"message":"bad key"}]}`, http.StatusUnauthorized)
		})
		err := s.Send(context.Background(), email)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("no recipients", func(t *testing.T) {
		s := NewSender("key", "digest@example.com", time.Second)
		err := s.Send(context.Background(), entity.Email{Subject: "x", HTML: "y"})
		assert.Error(t, err)
	})

	t.Run("unconfigured sender", func(t *testing.T) {
		s := NewSender("", "", time.Second)
		err := s.Send(context.Background(), email)
		assert.Error(t, err)
	})
}

func TestWithPreheader(t *testing.T) {
	t.Run("inserted after body tag", func(t *testing.T) {
		out := withPreheader(`<html><body class="x"><p>hi</p></body></html>`, "preview")
		assert.Contains(t, out, `<body class="x"><span`)
		assert.Contains(t, out, "preview")
	})

	t.Run("prepended when no body tag", func(t *testing.T) {
		out := withPreheader("<p>hi</p>", "preview")
		assert.True(t, len(out) > len("<p>hi</p>"))
		assert.Contains(t, out, "preview")
	})

	t.Run("empty preview leaves html untouched", func(t *testing.T) {
		assert.Equal(t, "<p>hi</p>", withPreheader("<p>hi</p>", ""))
	})

	t.Run("preview text is escaped", func(t *testing.T) {
		out := withPreheader("<p>hi</p>", `<script>`)
		assert.NotContains(t, out, "<script>")
	})
}

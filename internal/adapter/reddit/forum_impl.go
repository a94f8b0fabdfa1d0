// Package reddit implements the forum poster port against the Reddit OAuth
// API, caching access tokens between pipeline runs.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/pkg/utils"
)

const (
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultSubmitURL = "https://oauth.reddit.com/api/submit"

	// tokenTTLSlack is shaved off the reported expiry so a cached token is
	// never used in its final seconds.
	tokenTTLSlack = 60 * time.Second
)

type Poster struct {
	clientID     string
	clientSecret string
	refreshToken string
	userAgent    string
	tokenURL     string
	submitURL    string
	tokens       repository.TokenCache
	httpClient   *http.Client
}

var _ repository.ForumPoster = (*Poster)(nil)

func NewPoster(clientID, clientSecret, refreshToken, userAgent string, tokens repository.TokenCache, timeout time.Duration) *Poster {
	return &Poster{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		userAgent:    userAgent,
		tokenURL:     defaultTokenURL,
		submitURL:    defaultSubmitURL,
		tokens:       tokens,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Submit posts a self-post and returns its URL when the API reports one.
func (p *Poster) Submit(ctx context.Context, post entity.ForumPost) (string, error) {
	if post.Subreddit == "" {
		return "", fmt.Errorf("forum post has no subreddit")
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain access token: %w", err)
	}

	form := url.Values{
		"sr":       {post.Subreddit},
		"title":    {post.Title},
		"kind":     {"self"},
		"text":     {post.Body},
		"api_type": {"json"},
	}
	if post.FlairID != "" {
		form.Set("flair_id", post.FlairID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.submitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("submit status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		JSON struct {
			Errors [][]any `json:"errors"`
			Data   struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if len(parsed.JSON.Errors) > 0 {
		return "", fmt.Errorf("submit rejected: %v", parsed.JSON.Errors)
	}
	return parsed.JSON.Data.URL, nil
}

// accessToken returns a cached token when one is still valid and otherwise
// refreshes it. A cache outage degrades to refreshing on every run.
func (p *Poster) accessToken(ctx context.Context) (string, error) {
	key := p.cacheKey()
	if p.tokens != nil {
		token, err := p.tokens.Get(ctx, key)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, repository.ErrCacheMiss) {
			slog.Warn("token cache read failed, refreshing", "error", err)
		}
	}

	token, ttl, err := p.refreshAccessToken(ctx)
	if err != nil {
		return "", err
	}
	if p.tokens != nil && ttl > 0 {
		if err := p.tokens.Set(ctx, key, token, ttl); err != nil {
			slog.Warn("token cache write failed", "error", err)
		}
	}
	return token, nil
}

func (p *Poster) cacheKey() string {
	return "reddit:token:" + utils.HashURL(p.refreshToken)[:16]
}

func (p *Poster) refreshAccessToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("new token request: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", 0, fmt.Errorf("token status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("token response has no access_token")
	}

	ttl := time.Duration(parsed.ExpiresIn)*time.Second - tokenTTLSlack
	return parsed.AccessToken, ttl, nil
}

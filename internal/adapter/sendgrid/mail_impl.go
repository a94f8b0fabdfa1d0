// Package sendgrid implements the mail sender port against the SendGrid v3
// mail send API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
)

const defaultAPIURL = "https://api.sendgrid.com/v3/mail/send"

type Sender struct {
	apiURL      string
	apiKey      string
	senderEmail string
	httpClient  *http.Client
}

var _ repository.MailSender = (*Sender)(nil)

func NewSender(apiKey, senderEmail string, timeout time.Duration) *Sender {
	return &Sender{
		apiURL:      defaultAPIURL,
		apiKey:      apiKey,
		senderEmail: senderEmail,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type sendPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

// Send delivers the digest to every recipient in a single API call.
func (s *Sender) Send(ctx context.Context, email entity.Email) error {
	if s.apiKey == "" || s.senderEmail == "" {
		return fmt.Errorf("mail sender is not configured")
	}
	if len(email.Recipients) == 0 {
		return fmt.Errorf("email has no recipients")
	}

	to := make([]address, 0, len(email.Recipients))
	for _, r := range email.Recipients {
		to = append(to, address{Email: r})
	}

	payload := sendPayload{
		Personalizations: []personalization{{To: to}},
		From:             address{Email: s.senderEmail, Name: email.FromName},
		Subject:          email.Subject,
	}
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: withPreheader(email.HTML, email.Preview)})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mail API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// withPreheader prepends a hidden preview-text span so inbox clients show
// the chosen snippet instead of the first rendered line.
func withPreheader(htmlBody, preview string) string {
	if preview == "" {
		return htmlBody
	}
	span := fmt.Sprintf(
		`<span style="display:none;font-size:1px;color:#ffffff;line-height:1px;max-height:0px;max-width:0px;opacity:0;overflow:hidden;">%s</span>`,
		html.EscapeString(preview),
	)
	if idx := strings.Index(strings.ToLower(htmlBody), "<body"); idx >= 0 {
		if end := strings.Index(htmlBody[idx:], ">"); end >= 0 {
			insert := idx + end + 1
			return htmlBody[:insert] + span + htmlBody[insert:]
		}
	}
	return span + htmlBody
}

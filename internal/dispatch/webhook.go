package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Embed struct {
	Fields []EmbedField `json:"fields"`
}

// WebhookPayload is the Discord webhook body: a summary embed followed by one
// embed holding every answer.
type WebhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// BuildWebhookPayload renders a submission as Discord embeds.
func BuildWebhookPayload(s *models.Submission) WebhookPayload {
	identity := "User ID is `" + s.UserID + "`\n"
	if s.Anonymous {
		identity = "User chose to remain anonymous\n"
	}
	platforms := strings.Join(s.Platforms, ", ")
	if platforms == "" {
		platforms = "None selected"
	}

	answers := make([]EmbedField, len(s.Answers))
	for i, a := range s.Answers {
		answers[i] = EmbedField{Name: a.Label, Value: Mark(a.Value), Inline: true}
	}

	return WebhookPayload{Embeds: []Embed{
		{Fields: []EmbedField{
			{Name: "User Information", Value: identity, Inline: true},
			{Name: "Flags", Value: s.FlagsString(), Inline: true},
			{Name: "Uses Platforms", Value: platforms, Inline: true},
		}},
		{Fields: answers},
	}}
}

// Mark is the display form of a yes/no answer.
func Mark(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

// WebhookNotifier posts submissions to a Discord webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

func (n *WebhookNotifier) Name() string { return SinkWebhook }

// Deliver performs one POST. 4xx answers other than 429 are permanent.
func (n *WebhookNotifier) Deliver(ctx context.Context, s *models.Submission) error {
	body, err := json.Marshal(BuildWebhookPayload(s))
	if err != nil {
		return Permanent(fmt.Errorf("marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("POST webhook: status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookChannel posts notifications as JSON to a plain chat webhook.
// Webhooks carry no editable message identity, so SendMessage returns an
// empty id and status edits are never attempted against them.
type WebhookChannel struct {
	client *http.Client
}

func NewWebhookChannel() *WebhookChannel {
	return &WebhookChannel{
		client: &http.Client{},
	}
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description"`
	Color       int                 `json:"color,omitempty"`
	Footer      *webhookEmbedFooter `json:"footer,omitempty"`
}

type webhookEmbedFooter struct {
	Text string `json:"text"`
}

func (w *WebhookChannel) SendMessage(ctx context.Context, destination string, msg *Message) (string, error) {
	embed := webhookEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
	}
	if msg.Footer != "" {
		embed.Footer = &webhookEmbedFooter{Text: msg.Footer}
	}

	b, err := json.Marshal(webhookPayload{Embeds: []webhookEmbed{embed}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return "", nil
}

func (w *WebhookChannel) EditMessage(ctx context.Context, destination, messageID string, msg *Message) error {
	// Plain webhooks cannot edit previously delivered messages.
	return nil
}

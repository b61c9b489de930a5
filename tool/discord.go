package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Notifier delivers progress updates to a human channel. Notifications are
// best effort; callers log failures and continue.
type Notifier interface {
	Notify(ctx context.Context, content string) error
}

// DiscordWebhook implements Notifier by posting to a Discord webhook URL.
type DiscordWebhook struct {
	webhookURL string
	client     *http.Client
}

var _ Notifier = (*DiscordWebhook)(nil)

// NewDiscordWebhook creates the notifier. An empty URL yields a notifier
// that silently drops everything, so callers never need a nil check.
func NewDiscordWebhook(webhookURL string, client *http.Client) *DiscordWebhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &DiscordWebhook{webhookURL: webhookURL, client: client}
}

// Notify posts the content to the webhook. Discord caps message content at
// 2000 characters; longer payloads are truncated.
func (d *DiscordWebhook) Notify(ctx context.Context, content string) error {
	if d.webhookURL == "" {
		return nil
	}
	if len(content) > 2000 {
		content = content[:1997] + "..."
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status: %d", resp.StatusCode)
	}
	return nil
}

// FollowupSender posts followup messages to a deferred Discord interaction,
// keyed by the per-run interaction token carried on the state.
type FollowupSender struct {
	appID   string
	baseURL string
	client  *http.Client
}

// NewFollowupSender creates the sender for an application id.
func NewFollowupSender(appID string, client *http.Client) *FollowupSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &FollowupSender{
		appID:   appID,
		baseURL: "https://discord.com/api/v10",
		client:  client,
	}
}

// WithBaseURL overrides the API base, for tests.
func (f *FollowupSender) WithBaseURL(baseURL string) *FollowupSender {
	f.baseURL = baseURL
	return f
}

// Send posts content as a followup for the interaction token. Like webhook
// notifications it is best effort; an empty token drops the message.
func (f *FollowupSender) Send(ctx context.Context, token, content string) error {
	if token == "" || f.appID == "" {
		return nil
	}
	if len(content) > 2000 {
		content = content[:1997] + "..."
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("failed to marshal followup payload: %w", err)
	}

	url := fmt.Sprintf("%s/webhooks/%s/%s", f.baseURL, f.appID, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create followup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post followup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("followup returned status: %d", resp.StatusCode)
	}
	return nil
}

// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package alert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomfr/radar/internal/config"
)

// webhookPayload is the JSON body posted to the configured webhook.
type webhookPayload struct {
	EventID    string    `json:"event_id"`
	Transition string    `json:"transition"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     string    `json:"source"`
}

// WebhookNotifier posts alerts to a single configured webhook endpoint.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier builds a WebhookNotifier from its configuration.
func NewWebhookNotifier(cfg config.AlertConfig) *WebhookNotifier {
	headers := make(map[string]string, len(cfg.WebhookHeaders))
	for k, v := range cfg.WebhookHeaders {
		headers[k] = v
	}
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		headers: headers,
		enabled: cfg.Enabled,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert as a JSON body. A disabled or unconfigured notifier
// is a silent no-op.
func (n *WebhookNotifier) Send(ctx context.Context, p Payload) error {
	if !n.enabled || n.url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		EventID:    p.EventID,
		Transition: p.Transition,
		Reason:     p.Reason,
		OccurredAt: p.OccurredAt,
		Source:     "radar",
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload for %s: %w", p.EventID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request for %s: %w", p.EventID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook for %s: %w", p.EventID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook for %s returned status %d", p.EventID, resp.StatusCode)
	}
	return nil
}

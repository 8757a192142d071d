// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/config"
)

func TestWebhookNotifier_Send_PostsJSON(t *testing.T) {
	var gotMethod, gotContentType, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.AlertConfig{
		WebhookURL:     server.URL,
		WebhookHeaders: map[string]string{"Authorization": "Bearer test-token"},
		Enabled:        true,
	})

	err := n.Send(context.Background(), Payload{EventID: "evt-1", Transition: "HYDRATING->HOT", Reason: "score_threshold", OccurredAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestWebhookNotifier_Send_DisabledIsNoop(t *testing.T) {
	n := NewWebhookNotifier(config.AlertConfig{WebhookURL: "http://unreachable.invalid", Enabled: false})
	err := n.Send(context.Background(), Payload{EventID: "evt-1"})
	assert.NoError(t, err)
}

func TestWebhookNotifier_Send_ErrorStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.AlertConfig{WebhookURL: server.URL, Enabled: true})
	err := n.Send(context.Background(), Payload{EventID: "evt-1"})
	assert.Error(t, err)
}

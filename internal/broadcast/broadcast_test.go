// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient mimics the subset of Client the hub touches, without an
// actual websocket connection.
func newTestClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 4)}
}

func TestHub_PublishFansOutToAllClients(t *testing.T) {
	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Serve(ctx)

	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.Register <- c1
	hub.Register <- c2

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, time.Millisecond)

	hub.PublishEventUpsert(EventUpsertData{EventID: "evt-1", Status: "HOT"})

	select {
	case msg := <-c1.send:
		assert.Equal(t, KindEventUpsert, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("client 1 never received message")
	}
	select {
	case msg := <-c2.send:
		assert.Equal(t, KindEventUpsert, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("client 2 never received message")
	}
}

func TestHub_UnregisterRemovesClient(t *testing.T) {
	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Serve(ctx)

	c1 := newTestClient(hub)
	hub.Register <- c1
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)

	hub.Unregister <- c1
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_ServeExitsOnContextCancel(t *testing.T) {
	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve never returned after cancel")
	}
}

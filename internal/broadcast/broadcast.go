// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package broadcast fans Event updates out to connected editorial clients
// over WebSocket. Delivery is best-effort at-most-once per connection;
// clients reconnect and re-fetch on drop. All publishes funnel through one
// goroutine's channel, which incidentally also satisfies the requirement
// that messages for a single event_id are never reordered relative to
// each other.
package broadcast

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Message kinds, per the live-stream wire contract.
const (
	KindEventUpsert       = "EVENT_UPSERT"
	KindEventStateChanged = "EVENT_STATE_CHANGED"
	KindEventMerged       = "EVENT_MERGED"
)

// Message is the envelope written to every connected client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventUpsertData carries an Event's full current projection.
type EventUpsertData struct {
	EventID         string             `json:"event_id"`
	Status          model.EventState   `json:"status"`
	Headline        string             `json:"headline"`
	ScorePlantao    float64            `json:"score_plantao"`
	PlantaoReasons  []model.ScoreReason `json:"plantao_reasons"`
	ScoreOceanoAzul float64            `json:"score_oceano_azul"`
	OceanoReasons   []model.ScoreReason `json:"oceano_reasons"`
	Anchors         []model.Anchor     `json:"anchors"`
	DocCount        int                `json:"doc_count"`
	SourceCount     int                `json:"source_count"`
	FirstSeen       time.Time          `json:"first_seen"`
	LastSeen        time.Time          `json:"last_seen"`
	UnverifiedViral bool               `json:"unverified_viral"`
}

// EventStateChangedData carries one state machine transition.
type EventStateChangedData struct {
	EventID        string           `json:"event_id"`
	PreviousStatus model.EventState `json:"previous_status"`
	NewStatus      model.EventState `json:"new_status"`
	Reason         string           `json:"reason"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

// EventMergedData is the tombstone broadcast: clients retire from_event_id
// and highlight to_event_id.
type EventMergedData struct {
	FromEventID string            `json:"from_event_id"`
	ToEventID   string            `json:"to_event_id"`
	Reason      model.MergeReason `json:"reason"`
}

// Hub maintains the set of connected clients and fans out Messages to all
// of them, in deterministic client-ID order.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub builds a Hub with the given outbound buffer size.
func NewHub(sendBufferSize int) *Hub {
	if sendBufferSize <= 0 {
		sendBufferSize = 256
	}
	return &Hub{
		broadcast:  make(chan Message, sendBufferSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// String satisfies suture.Service / fmt.Stringer.
func (h *Hub) String() string { return "broadcast-hub" }

// Serve runs the hub's single dispatch loop until ctx is canceled. Register
// and Unregister are drained ahead of broadcast so client bookkeeping is
// always current before a message fan-out runs.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.BroadcastClients.Set(float64(n))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.BroadcastClients.Set(float64(n))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.BroadcastClients.Set(0)
}

func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			toRemove = append(toRemove, c)
		}
	}
	for _, c := range toRemove {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) publish(kind string, data interface{}) {
	message := Message{Type: kind, Data: data}
	select {
	case h.broadcast <- message:
		metrics.BroadcastMessagesTotal.WithLabelValues(kind).Inc()
	default:
		logging.Warn().Str("kind", kind).Msg("broadcast: buffer full, dropping message")
	}
}

// PublishEventUpsert broadcasts an Event's full current projection.
func (h *Hub) PublishEventUpsert(data EventUpsertData) { h.publish(KindEventUpsert, data) }

// PublishEventStateChanged broadcasts one state machine transition.
func (h *Hub) PublishEventStateChanged(data EventStateChangedData) {
	h.publish(KindEventStateChanged, data)
}

// PublishEventMerged broadcasts the tombstone for a canonicalisation merge.
func (h *Hub) PublishEventMerged(data EventMergedData) { h.publish(KindEventMerged, data) }

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Package events fans live updates out to browser clients over server-sent events.
package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/thesavant42/scorekeeper/internal/models"
)

const (
	outboundBuffer    = 32
	heartbeatInterval = 15 * time.Second
)

// Client is one connected event stream
type Client struct {
	ID       uuid.UUID
	Outbound chan models.Event
	done     chan struct{}
	once     sync.Once
}

// Hub broadcasts events to every subscribed client. A client whose buffer is
// full misses the event rather than stalling the publisher.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	logger    *log.Logger
	heartbeat time.Duration
}

// NewHub creates an empty hub
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		logger:    logger.WithPrefix("events"),
		heartbeat: heartbeatInterval,
	}
}

// Subscribe registers a new client
func (h *Hub) Subscribe() *Client {
	c := &Client{
		ID:       uuid.New(),
		Outbound: make(chan models.Event, outboundBuffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client subscribed", "client", c.ID, "clients", n)
	return c
}

// Unsubscribe removes a client and stops its stream. Safe to call twice.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.once.Do(func() { close(c.done) })
	h.logger.Debug("client unsubscribed", "client", c.ID)
}

// ClientCount returns the number of subscribed clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers an event to every client in publish order
func (h *Hub) Publish(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.Outbound <- ev:
		default:
			h.logger.Warn("dropping event; outbound buffer full", "client", c.ID, "type", ev.Type)
		}
	}
}

// ServeHTTP streams events to the caller until the request ends
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := h.Subscribe()
	defer h.Unsubscribe(client)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-client.Outbound:
			if err := writeEvent(w, ev); err != nil {
				h.logger.Warn("failed to write event", "client", client.ID, "err", err)
				continue
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one event frame: the event name then its JSON payload
func writeEvent(w http.ResponseWriter, ev models.Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

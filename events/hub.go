/*
Package events is the in-process change feed.

PURPOSE:
  Dashboards refresh when tenants or installments change. Writers publish an
  Event after every successful mutation; the websocket endpoint fans events
  out to connected browsers, filtered by table.

DELIVERY:
  Publish never blocks the writer. Each subscriber owns a buffered channel;
  when it is full the event is dropped for that subscriber and counted via
  the OnDrop hook. A dropped event only means a dashboard refreshes later.

SEE ALSO:
  - ws.go: websocket endpoint
  - api/handlers.go: publishes after each mutation
*/
package events

import (
	"sync"
	"time"
)

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Table names published by the API.
const (
	TableTenants      = "tenants"
	TableInstallments = "installments"
	TableDrafts       = "drafts"
)

// Event describes one row-level change.
type Event struct {
	Table  string    `json:"table"`
	Action Action    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber struct {
	table string
	ch    chan Event
}

// Hub fans events out to subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
	buffer int

	// OnDrop is called once per event dropped for a slow subscriber.
	OnDrop func(Event)
}

func NewHub() *Hub {
	return NewHubWithBuffer(DefaultBuffer)
}

func NewHubWithBuffer(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[int]*subscriber), buffer: buffer}
}

// Subscribe returns a channel receiving events for table ("" = all tables)
// and a cancel func that unsubscribes and closes the channel. Subscribing to
// a closed hub returns an already-closed channel.
func (h *Hub) Subscribe(table string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{table: table, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub.ch)
			}
		})
	}
}

// Publish delivers e to every matching subscriber without blocking.
// A zero At is stamped with the current time.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for _, sub := range h.subs {
		if sub.table != "" && sub.table != e.Table {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			if h.OnDrop != nil {
				h.OnDrop(e)
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

package handlers

import (
	"sync"
	"time"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/controller"
)

// UpdateNotification is one server-sent event.
type UpdateNotification struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Event types pushed to subscribers.
const (
	EventReport       = "report"
	EventBatches      = "batches"
	EventNotification = "notification"
	EventProgress     = "progress"
	EventError        = "error"
	EventConnected    = "connected"
)

// ReportData is the payload of a report event.
type ReportData struct {
	Records []batch.Record `json:"records"`
	Strikes []bool         `json:"groupStrikes"`
}

const subscriberBuffer = 16

// Hub fans controller output out to the SSE streams of one session. It
// implements controller.Renderer and controller.Notifier. Slow subscribers
// miss events rather than block the controller.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan UpdateNotification
	nextID int
	now    func() time.Time
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan UpdateNotification), now: time.Now}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel.
func (h *Hub) Subscribe() (<-chan UpdateNotification, func()) {
	ch := make(chan UpdateNotification, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) publish(eventType string, data interface{}) {
	ev := UpdateNotification{Type: eventType, Timestamp: h.now(), Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) RenderReport(records []batch.Record, strikes []bool) {
	h.publish(EventReport, ReportData{Records: records, Strikes: strikes})
}

func (h *Hub) RenderBatches(batches []batch.Batch) {
	if batches == nil {
		batches = []batch.Batch{}
	}
	h.publish(EventBatches, batches)
}

func (h *Hub) Notify(n controller.Notification) {
	h.publish(EventNotification, n)
}

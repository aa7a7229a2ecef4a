package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const heartbeatInterval = 30 * time.Second

// RealtimeHandler streams session events as Server-Sent Events.
type RealtimeHandler struct {
	Sessions *Sessions
}

func wantsEventStream(r *http.Request) bool {
	return r.Header.Get("Accept") == "text/event-stream"
}

func startEventStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// sendSSEEvent sends a Server-Sent Event
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev UpdateNotification) {
	jsonData, err := json.Marshal(ev)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", ev.Type)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

// BatchesStream sends the current batch list, then every snapshot and
// notification of the session until the client disconnects.
func (h *RealtimeHandler) BatchesStream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	events, unsubscribe := sess.Hub.Subscribe()
	defer unsubscribe()

	flusher, ok := startEventStream(w)
	if !ok {
		return
	}

	sendSSEEvent(w, flusher, UpdateNotification{
		Type:      EventConnected,
		Timestamp: time.Now(),
		Data:      map[string]string{"user": sess.Controller.Identity().UserID},
	})
	sendSSEEvent(w, flusher, UpdateNotification{
		Type:      EventBatches,
		Timestamp: time.Now(),
		Data:      sess.Controller.Batches(),
	})

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, ev)
		case <-ticker.C:
			sendSSEEvent(w, flusher, UpdateNotification{Type: "heartbeat", Timestamp: time.Now()})
		}
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cardinal-lookup/internal/engine"
)

// LookupHandler runs lookups for the request's session.
type LookupHandler struct {
	Sessions *Sessions
}

// LookupRequest is the body of POST /api/lookup.
type LookupRequest struct {
	Text   string `json:"text"`
	Strict bool   `json:"strict"`
}

// LookupResponse is the JSON reply of a completed lookup.
type LookupResponse struct {
	Stats  engine.Stats `json:"stats"`
	Report interface{}  `json:"report"`
}

// Run handles POST /api/lookup. With "Accept: text/event-stream" progress
// events are streamed and the final report is the last event; otherwise the
// reply is sent once the run completes.
func (h *LookupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}

	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !wantsEventStream(r) {
		res, err := sess.Controller.RunLookup(r.Context(), req.Text, engine.Options{Strict: req.Strict})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		var stats engine.Stats
		if res != nil {
			stats = res.Stats
		}
		writeJSON(w, http.StatusOK, LookupResponse{Stats: stats, Report: sess.Controller.Report()})
		return
	}

	flusher, ok := startEventStream(w)
	if !ok {
		return
	}

	opts := engine.Options{
		Strict: req.Strict,
		OnProgress: func(p engine.Progress) {
			sendSSEEvent(w, flusher, UpdateNotification{Type: EventProgress, Timestamp: time.Now(), Data: p})
		},
	}
	res, err := sess.Controller.RunLookup(r.Context(), req.Text, opts)
	if err != nil {
		sendSSEEvent(w, flusher, UpdateNotification{
			Type:      EventError,
			Timestamp: time.Now(),
			Data:      ErrorResponse{Error: err.Error()},
		})
		return
	}
	var stats engine.Stats
	if res != nil {
		stats = res.Stats
	}
	sendSSEEvent(w, flusher, UpdateNotification{
		Type:      EventReport,
		Timestamp: time.Now(),
		Data:      LookupResponse{Stats: stats, Report: sess.Controller.Report()},
	})
}

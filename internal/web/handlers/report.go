package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cardinal-lookup/internal/batch"
)

// ReportHandler serves the current report of the request's session.
type ReportHandler struct {
	Sessions *Sessions
	Config   *Config
}

// Get handles GET /api/report.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Report())
}

// StrikeResponse is the reply of a strike toggle.
type StrikeResponse struct {
	Index  int  `json:"index"`
	Struck bool `json:"struck"`
}

// ToggleStrike handles POST /api/report/groups/{index}/strike.
func (h *ReportHandler) ToggleStrike(w http.ResponseWriter, r *http.Request) {
	idx, ok := intVar(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid group index")
		return
	}
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	struck, err := sess.Controller.ToggleStrike(idx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StrikeResponse{Index: idx, Struck: struck})
}

// SaveRequest is the optional body of POST /api/report/save.
type SaveRequest struct {
	Name string `json:"name"`
}

// Save handles POST /api/report/save: create, or update the active batch.
func (h *ReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := sess.Controller.SaveOrUpdate(r.Context(), req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Report())
}

// ExportCSV handles GET /api/report/export.csv.
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if !h.Config.Features.ExportEnabled {
		writeError(w, http.StatusForbidden, "Export feature disabled")
		return
	}
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rep := sess.Controller.Report()
	filename := fmt.Sprintf("owners-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := batch.WriteCSV(w, rep.Records, rep.Strikes); err != nil {
		h.Sessions.Log.WithError(err).Warn("csv export failed")
	}
}

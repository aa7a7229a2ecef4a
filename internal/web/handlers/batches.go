package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// BatchesHandler serves the saved batches of the request's session.
type BatchesHandler struct {
	Sessions *Sessions
}

// List handles GET /api/batches.
func (h *BatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Batches())
}

// Load handles POST /api/batches/{index}/load; index is into the list
// returned by List.
func (h *BatchesHandler) Load(w http.ResponseWriter, r *http.Request) {
	idx, ok := intVar(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid batch index")
		return
	}
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := sess.Controller.LoadBatch(idx); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Report())
}

// Delete handles DELETE /api/batches/{id}.
func (h *BatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.ForRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := sess.Controller.DeleteBatch(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

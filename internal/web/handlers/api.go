package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cardinal-lookup/internal/batch"
	"github.com/cardinal-lookup/internal/controller"
	"github.com/cardinal-lookup/internal/store"
)

// Config carries the feature toggles the handlers need.
type Config struct {
	Features struct {
		ExportEnabled bool `json:"export_enabled"`
	} `json:"features"`
}

// APIHandler serves health and other general endpoints.
type APIHandler struct {
	Config  *Config
	Started time.Time
	Store   string
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Uptime string `json:"uptime"`
}

// Health reports that the server is up.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Store:  h.Store,
		Uptime: time.Since(h.Started).Round(time.Second).String(),
	})
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var perr *controller.PersistenceError
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, batch.ErrGroupOutOfRange),
		errors.Is(err, controller.ErrBatchOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, controller.ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

// intVar reads a non-negative integer path variable.
func intVar(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

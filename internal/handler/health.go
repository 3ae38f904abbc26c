// Package handler implements the ops HTTP endpoints.
package handler

import (
	"net/http"
)

// Readiness reports whether a dependency is usable.
type Readiness interface {
	Ready() bool
}

// ReadyFunc adapts a function to Readiness.
type ReadyFunc func() bool

func (f ReadyFunc) Ready() bool { return f() }

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	transport Readiness
	nats      Readiness
}

// NewHealthHandler creates a health handler. nats may be nil when job
// publishing is disabled.
func NewHealthHandler(transport, nats Readiness) *HealthHandler {
	return &HealthHandler{
		transport: transport,
		nats:      nats,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.transport == nil || !h.transport.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "chat transport not polling",
		})
		return
	}

	if h.nats != nil && !h.nats.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

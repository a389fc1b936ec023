package handlers

import (
	"net/http"

	"guardline-hq/bastion/pkg/detector"
	"guardline-hq/bastion/pkg/rules/source"
)

// HealthHandler answers liveness probes. It reports healthy unconditionally;
// readiness is a separate endpoint.
type HealthHandler struct{}

// NewHealthHandler creates the /status/healthz handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyHandler answers readiness probes. The service is ready when detectors
// are registered and, if a default ruleset source is configured, the ruleset
// has been loaded.
type ReadyHandler struct {
	registry       *detector.Registry
	store          *source.Store
	requireRuleset bool
}

// NewReadyHandler creates the /status/readyz handler. requireRuleset should
// be true when a file or git ruleset source is configured.
func NewReadyHandler(registry *detector.Registry, store *source.Store, requireRuleset bool) *ReadyHandler {
	return &ReadyHandler{
		registry:       registry,
		store:          store,
		requireRuleset: requireRuleset,
	}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ready := h.registry != nil && h.registry.Len() > 0
	if ready && h.requireRuleset {
		ready = h.store != nil && h.store.Ready()
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"detectors": h.registryLen(),
	})
}

func (h *ReadyHandler) registryLen() int {
	if h.registry == nil {
		return 0
	}
	return h.registry.Len()
}

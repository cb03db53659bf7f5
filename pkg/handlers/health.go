package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
)

// pingTimeout bounds the partition checks of one health request.
const pingTimeout = 5 * time.Second

// BreakerStateReader reports the generation provider's circuit state.
type BreakerStateReader interface {
	State() llm.CircuitState
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	GoVersion  string            `json:"go_version"`
	Provider   string            `json:"provider,omitempty"`
	Partitions map[string]string `json:"partitions,omitempty"`
}

// HealthHandler reports whether the partitions and the provider are usable.
type HealthHandler struct {
	store   partition.Store
	breaker BreakerStateReader
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a HealthHandler. breaker may be nil.
func NewHealthHandler(store partition.Store, breaker BreakerStateReader, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, breaker: breaker, version: version, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. It returns 503 when any partition backing
// fails its ping or the provider circuit is open.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		GoVersion: runtime.Version(),
	}
	statusCode := http.StatusOK

	if failures := h.store.Ping(ctx); len(failures) > 0 {
		response.Partitions = make(map[string]string, len(failures))
		for key, err := range failures {
			response.Partitions[key] = err.Error()
		}
		response.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	if h.breaker != nil {
		state := h.breaker.State()
		response.Provider = state.String()
		if state == llm.CircuitOpen {
			response.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	if err := writeJSON(w, statusCode, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping. It does not touch any backing store.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// SystemService exposes the operational hooks of the service layer
type SystemService interface {
	Ping(ctx context.Context) error
	ClearCache() int
	CacheSize() int
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// SystemHandler serves health, index and cache administration endpoints
type SystemHandler struct {
	svc    SystemService
	build  BuildInfo
	logger *zap.Logger
}

func NewSystemHandler(svc SystemService, build BuildInfo) *SystemHandler {
	return &SystemHandler{svc: svc, build: build, logger: zap.NewNop()}
}

// RegisterRoutes registers the routes for this handler
func (h *SystemHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("system_handler")

	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/cache", h.handleClearCache).Methods(http.MethodDelete)
}

func (h *SystemHandler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, "Organization insights service", map[string]interface{}{
		"build": h.build,
		"endpoints": map[string]string{
			"health":        "GET /health",
			"organizations": "GET /organizations",
			"organization":  "GET /organizations/{id}",
			"posts":         "GET /organizations/{id}/posts",
			"employees":     "GET /organizations/{id}/employees",
			"followers":     "GET /organizations/{id}/followers",
			"scrape":        "POST /organizations/{id}/scrape",
			"delete":        "DELETE /organizations/{id}",
			"clear_cache":   "DELETE /cache",
			"metrics":       "GET /metrics",
		},
	})
}

func (h *SystemHandler) handleHealth(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, h.logger, http.StatusServiceUnavailable, "storage unavailable", map[string]string{"storage": "down"})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, "healthy", map[string]interface{}{
		"storage":       "up",
		"cache_entries": h.svc.CacheSize(),
	})
}

func (h *SystemHandler) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	n := h.svc.ClearCache()
	writeJSON(w, h.logger, http.StatusOK, "Cache cleared", map[string]int{"cleared": n})
}

// ABOUTME: Health endpoint for the web client
// ABOUTME: Probes the backend with a one-item catalog read and reports the session store

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/markalston/artfolio-web/models"
	"github.com/markalston/artfolio-web/services"
)

const healthProbeTimeout = 3 * time.Second

// Health reports whether this server and its backend are usable. It answers
// 200 even when degraded so load balancers keep serving the offline pages.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Backend: "ok"}
	if h.cfg != nil {
		resp.SessionStore = h.cfg.SessionStore
	}

	if _, err := h.gallery.Artworks(ctx, "", 0, 1); err != nil {
		resp.Status = "degraded"
		resp.Backend = "error"
		if !services.IsBackendReachable(err) {
			resp.Backend = "unreachable"
		}
		slog.Warn("Backend health probe failed", "error", err)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

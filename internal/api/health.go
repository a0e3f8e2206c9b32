package api

import (
	"net/http"

	"github.com/nextdomen/mextdomen/internal/events"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	hub *events.Hub
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(hub *events.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"audit_subscribers"`
}

// Get handles GET /health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.hub != nil {
		resp.Subscribers = h.hub.SubscriberCount()
	}
	Ok(w, resp)
}

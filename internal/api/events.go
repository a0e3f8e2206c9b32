package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/events"
)

// EventsHandler serves the websocket audit-event tap.
type EventsHandler struct {
	hub    *events.Hub
	logger *zap.Logger
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *events.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger.Named("events_handler")}
}

// ServeWS handles GET /api/events/ws, upgrading the connection and relaying
// every audit event until the client disconnects.
func (h *EventsHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if err := events.ServeWS(h.hub, w, r, h.logger); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

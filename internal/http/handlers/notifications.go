package handlers

import (
	"net/http"

	"service-dispatch/internal/logx"
)

// NotificationHandler exposes courier inboxes.
type NotificationHandler struct {
	dispatcher Dispatcher
	logger     logx.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(logger logx.Logger, d Dispatcher) *NotificationHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &NotificationHandler{dispatcher: d, logger: logger}
}

// List handles GET /couriers/{id}/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.dispatcher.Notifications(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, notificationsToDTO(list))
}

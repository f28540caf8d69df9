package handlers

import (
	"net/http"

	"task-app/backend/task-service/middleware"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/services"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	notifications, err := h.service.GetNotifications(principal.Username)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	vars := mux.Vars(r)
	createdAt := r.URL.Query().Get("createdAt")
	if createdAt == "" {
		respondError(w, &models.ValidationError{Message: "createdAt query parameter is required"})
		return
	}

	if err := h.service.MarkNotificationAsRead(principal.Username, vars["id"], createdAt); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Notification marked as read"})
}

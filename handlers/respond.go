package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/models"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError mapira tipizirane greške servisa na HTTP status kodove.
// Neočekivane greške se loguju i vraćaju kao generički 500 odgovor.
func respondError(w http.ResponseWriter, err error) {
	var (
		validationErr   *models.ValidationError
		notFoundErr     *models.NotFoundError
		forbiddenErr    *models.ForbiddenError
		conflictErr     *models.ConflictError
		unauthorizedErr *models.UnauthorizedError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Message: validationErr.Message})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Message: conflictErr.Message})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Message: notFoundErr.Message})
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResponse{Success: false, Message: forbiddenErr.Message})
	case errors.As(err, &unauthorizedErr):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Success: false, Message: unauthorizedErr.Message})
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: Unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Message: "Something went wrong"})
	}
}

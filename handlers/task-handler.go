package handlers

import (
	"encoding/json"
	"net/http"

	"task-app/backend/task-service/middleware"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskHandler pokriva operacije izvršioca nad sopstvenim zadacima.
type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func taskIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	vars := mux.Vars(r)
	taskID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		return primitive.NilObjectID, &models.ValidationError{Message: "invalid task ID format"}
	}
	return taskID, nil
}

func (h *TaskHandler) GetMyTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	tasks, err := h.service.GetMyTasks(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.CompleteTask(r.Context(), taskID, principal.UserID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task completed successfully"})
}

func (h *TaskHandler) SubmitExcuse(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Excuse string `json:"excuse"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	if err := h.service.SubmitExcuse(r.Context(), taskID, principal.UserID, req.Excuse); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Excuse submitted successfully"})
}

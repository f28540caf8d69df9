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

// AdminHandler pokriva administratorsku stranu: kreiranje i održavanje
// zadataka, odluke o opravdanjima, dashboard i upravljanje korisnicima.
type AdminHandler struct {
	taskService *services.TaskService
	userService *services.UserService
}

func NewAdminHandler(taskService *services.TaskService, userService *services.UserService) *AdminHandler {
	return &AdminHandler{taskService: taskService, userService: userService}
}

func (h *AdminHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, &models.UnauthorizedError{Message: "authentication required"})
		return
	}

	var req services.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), req, principal.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *AdminHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.TaskFilter{
		Search:     query.Get("search"),
		Status:     models.TaskStatus(query.Get("status")),
		Priority:   models.TaskPriority(query.Get("priority")),
		AssignedTo: query.Get("assignedTo"),
	}

	tasks, err := h.taskService.SearchTasks(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(tasks), "tasks": tasks})
}

func (h *AdminHandler) GetTasksWithExcuses(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.GetTasksWithPendingExcuses(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(tasks), "tasks": tasks})
}

func (h *AdminHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.GetDashboardStats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	task, err := h.taskService.GetTaskByID(r.Context(), taskID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *AdminHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req services.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *AdminHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), taskID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

func (h *AdminHandler) ReassignTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		AssignedTo string `json:"assignedTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	task, err := h.taskService.ReassignTask(r.Context(), taskID, req.AssignedTo)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Task reassigned successfully", "task": task})
}

func (h *AdminHandler) RespondExcuse(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Response models.ExcuseResponse `json:"response"`
		Message  string                `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	if err := h.taskService.RespondExcuse(r.Context(), taskID, req.Response, req.Message); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Excuse reviewed successfully"})
}

func (h *AdminHandler) UnlockTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := taskIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.taskService.UnlockTask(r.Context(), taskID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task unlocked successfully"})
}

func (h *AdminHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	users, err := h.userService.SearchUsers(r.Context(), query.Get("search"), query.Get("role"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(users), "users": users})
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, &models.ValidationError{Message: "invalid request body"})
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "User created successfully", "user": user})
}

func (h *AdminHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

func userIDFromRequest(r *http.Request) (primitive.ObjectID, error) {
	vars := mux.Vars(r)
	userID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		return primitive.NilObjectID, &models.ValidationError{Message: "invalid user ID format"}
	}
	return userID, nil
}

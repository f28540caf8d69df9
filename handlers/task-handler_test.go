package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-app/backend/task-service/middleware"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/repositories"
	"task-app/backend/task-service/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type handlerTestEnv struct {
	tasks       *repositories.InMemoryTaskRepository
	users       *repositories.InMemoryUserRepository
	taskHandler *TaskHandler
	user        *models.User
}

func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()
	tasks := repositories.NewInMemoryTaskRepository()
	users := repositories.NewInMemoryUserRepository()

	user, err := users.Create(context.Background(), &models.User{
		Username: "pera",
		Email:    "pera@example.com",
		Role:     models.RoleUser,
		IsActive: true,
	})
	require.NoError(t, err)

	taskService := services.NewTaskService(tasks, users, nil)
	return &handlerTestEnv{
		tasks:       tasks,
		users:       users,
		taskHandler: NewTaskHandler(taskService),
		user:        user,
	}
}

func (e *handlerTestEnv) seedTask(t *testing.T, dueDate time.Time) *models.Task {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), &models.Task{
		Title:      "Write report",
		Status:     models.StatusTodo,
		Priority:   models.PriorityMedium,
		DueDate:    dueDate,
		AssignedTo: e.user.ID,
	})
	require.NoError(t, err)
	return task
}

func authenticatedRequest(method, target string, body string, principal middleware.Principal, vars map[string]string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCompleteTaskHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	task := env.seedTask(t, time.Now().Add(24*time.Hour))
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	req := authenticatedRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/complete", "", principal, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.taskHandler.CompleteTask(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestCompleteTaskHandler_Overdue(t *testing.T) {
	env := newHandlerTestEnv(t)
	task := env.seedTask(t, time.Now().Add(-time.Hour))
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	req := authenticatedRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/complete", "", principal, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.taskHandler.CompleteTask(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestCompleteTaskHandler_NotFound(t *testing.T) {
	env := newHandlerTestEnv(t)
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	missing := primitive.NewObjectID().Hex()
	req := authenticatedRequest(http.MethodPatch, "/api/tasks/"+missing+"/complete", "", principal, map[string]string{"id": missing})
	rec := httptest.NewRecorder()
	env.taskHandler.CompleteTask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteTaskHandler_InvalidID(t *testing.T) {
	env := newHandlerTestEnv(t)
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	req := authenticatedRequest(http.MethodPatch, "/api/tasks/not-an-id/complete", "", principal, map[string]string{"id": "not-an-id"})
	rec := httptest.NewRecorder()
	env.taskHandler.CompleteTask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteTaskHandler_NoPrincipal(t *testing.T) {
	env := newHandlerTestEnv(t)
	task := env.seedTask(t, time.Now().Add(24*time.Hour))

	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/complete", strings.NewReader("{}"))
	req = mux.SetURLVars(req, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.taskHandler.CompleteTask(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitExcuseHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	task := env.seedTask(t, time.Now().Add(24*time.Hour))
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	body := `{"excuse": "` + strings.Repeat("x", models.MinExcuseLength) + `"}`
	req := authenticatedRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/excuse", body, principal, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.taskHandler.SubmitExcuse(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitExcuseHandler_TooShort(t *testing.T) {
	env := newHandlerTestEnv(t)
	task := env.seedTask(t, time.Now().Add(24*time.Hour))
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	req := authenticatedRequest(http.MethodPatch, "/api/tasks/"+task.ID.Hex()+"/excuse", `{"excuse": "too short"}`, principal, map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.taskHandler.SubmitExcuse(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMyTasksHandler(t *testing.T) {
	env := newHandlerTestEnv(t)
	env.seedTask(t, time.Now().Add(24*time.Hour))
	env.seedTask(t, time.Now().Add(48*time.Hour))
	principal := middleware.Principal{UserID: env.user.ID, Username: env.user.Username, Role: env.user.Role}

	req := authenticatedRequest(http.MethodGet, "/api/tasks/my", "", principal, nil)
	rec := httptest.NewRecorder()
	env.taskHandler.GetMyTasks(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var tasks []models.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tasks))
	assert.Len(t, tasks, 2)
}

func TestRequireAdmin(t *testing.T) {
	handler := middleware.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{
		UserID: primitive.NewObjectID(), Username: "pera", Role: models.RoleUser,
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{
		UserID: primitive.NewObjectID(), Username: "admin", Role: models.RoleAdmin,
	}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

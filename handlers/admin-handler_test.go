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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type adminTestEnv struct {
	tasks   *repositories.InMemoryTaskRepository
	users   *repositories.InMemoryUserRepository
	handler *AdminHandler
	admin   *models.User
	user    *models.User
}

func newAdminTestEnv(t *testing.T) *adminTestEnv {
	t.Helper()
	tasks := repositories.NewInMemoryTaskRepository()
	users := repositories.NewInMemoryUserRepository()

	admin, err := users.Create(context.Background(), &models.User{
		Username: "admin",
		Email:    "admin@example.com",
		Role:     models.RoleAdmin,
		IsActive: true,
	})
	require.NoError(t, err)
	user, err := users.Create(context.Background(), &models.User{
		Username: "pera",
		Email:    "pera@example.com",
		Role:     models.RoleUser,
		IsActive: true,
	})
	require.NoError(t, err)

	taskService := services.NewTaskService(tasks, users, nil)
	userService := services.NewUserService(users, tasks, &services.JWTService{}, map[string]bool{})
	return &adminTestEnv{
		tasks:   tasks,
		users:   users,
		handler: NewAdminHandler(taskService, userService),
		admin:   admin,
		user:    user,
	}
}

func (e *adminTestEnv) principal() middleware.Principal {
	return middleware.Principal{UserID: e.admin.ID, Username: e.admin.Username, Role: e.admin.Role}
}

func (e *adminTestEnv) seedTask(t *testing.T, dueDate time.Time) *models.Task {
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

func TestAdminCreateTask(t *testing.T) {
	env := newAdminTestEnv(t)

	body := `{"title": "Write report", "assignedTo": "` + env.user.ID.Hex() + `", "dueDate": "` +
		time.Now().Add(24*time.Hour).Format(time.RFC3339) + `", "priority": "High"}`
	req := authenticatedRequest(http.MethodPost, "/api/admin/tasks", body, env.principal(), nil)
	rec := httptest.NewRecorder()
	env.handler.CreateTask(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var task models.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&task))
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, env.user.ID, task.AssignedTo)
	assert.Equal(t, env.admin.ID, task.CreatedBy)
}

func TestAdminCreateTask_PastDueDate(t *testing.T) {
	env := newAdminTestEnv(t)

	body := `{"title": "Write report", "assignedTo": "` + env.user.ID.Hex() + `", "dueDate": "` +
		time.Now().Add(-time.Hour).Format(time.RFC3339) + `"}`
	req := authenticatedRequest(http.MethodPost, "/api/admin/tasks", body, env.principal(), nil)
	rec := httptest.NewRecorder()
	env.handler.CreateTask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRespondExcuse(t *testing.T) {
	env := newAdminTestEnv(t)
	ctx := context.Background()
	task := env.seedTask(t, time.Now().Add(24*time.Hour))

	taskService := services.NewTaskService(env.tasks, env.users, nil)
	require.NoError(t, taskService.SubmitExcuse(ctx, task.ID, env.user.ID, strings.Repeat("x", models.MinExcuseLength)))

	req := authenticatedRequest(http.MethodPatch, "/api/admin/tasks/"+task.ID.Hex()+"/respond",
		`{"response": "accepted", "message": "get well soon"}`, env.principal(), map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.handler.RespondExcuse(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExcused, stored.Status)
}

func TestAdminRespondExcuse_NoExcuse(t *testing.T) {
	env := newAdminTestEnv(t)
	task := env.seedTask(t, time.Now().Add(24*time.Hour))

	req := authenticatedRequest(http.MethodPatch, "/api/admin/tasks/"+task.ID.Hex()+"/respond",
		`{"response": "accepted"}`, env.principal(), map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.handler.RespondExcuse(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUnlockTask(t *testing.T) {
	env := newAdminTestEnv(t)
	ctx := context.Background()
	task := env.seedTask(t, time.Now().Add(-time.Hour))

	req := authenticatedRequest(http.MethodPatch, "/api/admin/tasks/"+task.ID.Hex()+"/unlock", "",
		env.principal(), map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.handler.UnlockTask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.UnlockedByAdmin)
	assert.False(t, stored.Locked)
}

func TestAdminUnlockTask_NotFound(t *testing.T) {
	env := newAdminTestEnv(t)

	missing := primitive.NewObjectID().Hex()
	req := authenticatedRequest(http.MethodPatch, "/api/admin/tasks/"+missing+"/unlock", "",
		env.principal(), map[string]string{"id": missing})
	rec := httptest.NewRecorder()
	env.handler.UnlockTask(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminReassignTask(t *testing.T) {
	env := newAdminTestEnv(t)
	ctx := context.Background()
	task := env.seedTask(t, time.Now().Add(24*time.Hour))
	other, err := env.users.Create(ctx, &models.User{
		Username: "mika", Email: "mika@example.com", Role: models.RoleUser, IsActive: true,
	})
	require.NoError(t, err)

	req := authenticatedRequest(http.MethodPatch, "/api/admin/tasks/"+task.ID.Hex()+"/reassign",
		`{"assignedTo": "`+other.ID.Hex()+`"}`, env.principal(), map[string]string{"id": task.ID.Hex()})
	rec := httptest.NewRecorder()
	env.handler.ReassignTask(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, stored.AssignedTo)
}

func TestAdminSearchTasks(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedTask(t, time.Now().Add(24*time.Hour))
	env.seedTask(t, time.Now().Add(48*time.Hour))

	req := authenticatedRequest(http.MethodGet, "/api/admin/tasks?status=Todo", "", env.principal(), nil)
	rec := httptest.NewRecorder()
	env.handler.SearchTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int           `json:"count"`
		Tasks []models.Task `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Tasks, 2)
}

func TestAdminGetDashboardStats(t *testing.T) {
	env := newAdminTestEnv(t)
	env.seedTask(t, time.Now().Add(-time.Hour))
	env.seedTask(t, time.Now().Add(24*time.Hour))

	req := authenticatedRequest(http.MethodGet, "/api/admin/dashboard", "", env.principal(), nil)
	rec := httptest.NewRecorder()
	env.handler.GetDashboardStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.DashboardStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.TotalTasks)
	assert.Equal(t, int64(1), stats.OverdueTasks)
	assert.Equal(t, int64(1), stats.TotalUsers)
}

func TestAdminDeleteUser_CascadesTasks(t *testing.T) {
	env := newAdminTestEnv(t)
	ctx := context.Background()
	env.seedTask(t, time.Now().Add(24*time.Hour))

	req := authenticatedRequest(http.MethodDelete, "/api/admin/users/"+env.user.ID.Hex(), "",
		env.principal(), map[string]string{"id": env.user.ID.Hex()})
	rec := httptest.NewRecorder()
	env.handler.DeleteUser(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	remaining, err := env.tasks.Search(ctx, models.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestAdminCreateUser_Duplicate(t *testing.T) {
	env := newAdminTestEnv(t)

	req := authenticatedRequest(http.MethodPost, "/api/admin/users",
		`{"username": "pera", "email": "pera@example.com", "password": "Str0ng!Pass"}`, env.principal(), nil)
	rec := httptest.NewRecorder()
	env.handler.CreateUser(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

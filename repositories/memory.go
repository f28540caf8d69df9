package repositories

import (
	"context"
	"strings"
	"sync"
	"time"

	"task-app/backend/task-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory implementacije repozitorijuma, sa istom uslovnom semantikom kao
// Mongo implementacije. Koriste ih testovi servisnog sloja.

type InMemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[primitive.ObjectID]*models.Task
}

func NewInMemoryTaskRepository() *InMemoryTaskRepository {
	return &InMemoryTaskRepository{tasks: make(map[primitive.ObjectID]*models.Task)}
}

func copyTask(t *models.Task) *models.Task {
	c := *t
	return &c
}

func (r *InMemoryTaskRepository) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = copyTask(task)

	return copyTask(task), nil
}

func (r *InMemoryTaskRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(task), nil
}

func (r *InMemoryTaskRepository) Search(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var assignee primitive.ObjectID
	if filter.AssignedTo != "" {
		var err error
		assignee, err = primitive.ObjectIDFromHex(filter.AssignedTo)
		if err != nil {
			return nil, &models.ValidationError{Message: "invalid assignedTo ID format"}
		}
	}

	results := []models.Task{}
	for _, task := range r.tasks {
		if filter.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.AssignedTo != "" && task.AssignedTo != assignee {
			continue
		}
		results = append(results, *copyTask(task))
	}
	return results, nil
}

func (r *InMemoryTaskRepository) ListByAssignee(_ context.Context, assignee primitive.ObjectID) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := []models.Task{}
	for _, task := range r.tasks {
		if task.AssignedTo == assignee {
			results = append(results, *copyTask(task))
		}
	}
	return results, nil
}

func (r *InMemoryTaskRepository) ListPendingExcuses(_ context.Context) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := []models.Task{}
	for _, task := range r.tasks {
		if task.HasPendingExcuse() {
			results = append(results, *copyTask(task))
		}
	}
	return results, nil
}

func (r *InMemoryTaskRepository) Update(_ context.Context, id primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.AssignedTo != nil {
		task.AssignedTo = *update.AssignedTo
	}
	if update.DueDate != nil {
		task.DueDate = *update.DueDate
	}
	task.UpdatedAt = time.Now()

	return copyTask(task), nil
}

func (r *InMemoryTaskRepository) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return false, nil
	}
	delete(r.tasks, id)
	return true, nil
}

func (r *InMemoryTaskRepository) DeleteByAssignee(_ context.Context, assignee primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, task := range r.tasks {
		if task.AssignedTo == assignee {
			delete(r.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *InMemoryTaskRepository) LockIfOverdue(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || !task.ShouldLock(now) {
		return false, nil
	}
	task.Locked = true
	task.UpdatedAt = now
	return true, nil
}

func (r *InMemoryTaskRepository) CompleteIfUnlocked(_ context.Context, id, assignee primitive.ObjectID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || !transitionAllowed(task, assignee, now) {
		return false, nil
	}
	task.Status = models.StatusCompleted
	task.UpdatedAt = now
	return true, nil
}

func (r *InMemoryTaskRepository) SetExcuseIfUnlocked(_ context.Context, id, assignee primitive.ObjectID, excuse string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || !transitionAllowed(task, assignee, now) {
		return false, nil
	}
	task.Excuse = excuse
	task.AdminResponse = ""
	task.AdminResponseMessage = ""
	task.UpdatedAt = now
	return true, nil
}

// transitionAllowed je in-memory ekvivalent uslovnog Mongo filtera za
// korisničke tranzicije.
func transitionAllowed(task *models.Task, assignee primitive.ObjectID, now time.Time) bool {
	if task.AssignedTo != assignee || task.Status != models.StatusTodo || task.Locked {
		return false
	}
	return !task.DueDate.Before(now) || task.UnlockedByAdmin
}

func (r *InMemoryTaskRepository) SetAdminResponse(_ context.Context, id primitive.ObjectID, response models.ExcuseResponse, message string, status models.TaskStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	task.AdminResponse = response
	task.AdminResponseMessage = message
	task.Status = status
	task.UpdatedAt = time.Now()
	return true, nil
}

func (r *InMemoryTaskRepository) Unlock(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return false, nil
	}
	task.Locked = false
	task.UnlockedByAdmin = true
	task.UpdatedAt = time.Now()
	return true, nil
}

func (r *InMemoryTaskRepository) Stats(_ context.Context, now time.Time) (models.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats models.DashboardStats
	assignees := make(map[primitive.ObjectID]bool)
	for _, task := range r.tasks {
		stats.TotalTasks++
		switch task.Status {
		case models.StatusCompleted:
			stats.CompletedTasks++
		case models.StatusTodo:
			stats.TodoTasks++
			assignees[task.AssignedTo] = true
			if task.DueDate.Before(now) {
				stats.OverdueTasks++
			}
		}
		if task.HasPendingExcuse() {
			stats.PendingExcuses++
		}
	}
	stats.UsersWithTodoTasks = int64(len(assignees))

	return stats, nil
}

type InMemoryUserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{users: make(map[primitive.ObjectID]*models.User)}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *InMemoryUserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	r.users[user.ID] = copyUser(user)

	return copyUser(user), nil
}

func (r *InMemoryUserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(user), nil
}

func (r *InMemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == username {
			return copyUser(user), nil
		}
	}
	return nil, nil
}

func (r *InMemoryUserRepository) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryUserRepository) Search(_ context.Context, search, role string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := []models.User{}
	for _, user := range r.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Username), strings.ToLower(search)) &&
			!strings.Contains(strings.ToLower(user.Email), strings.ToLower(search)) {
			continue
		}
		if role != "" && user.Role != role {
			continue
		}
		results = append(results, *copyUser(user))
	}
	return results, nil
}

func (r *InMemoryUserRepository) Update(_ context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Password != nil {
		user.Password = *update.Password
	}
	if update.SecurityQuestion != nil {
		user.SecurityQuestion = *update.SecurityQuestion
	}
	if update.Answer != nil {
		user.Answer = *update.Answer
	}
	return copyUser(user), nil
}

func (r *InMemoryUserRepository) SetPassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		user.Password = passwordHash
	}
	return nil
}

func (r *InMemoryUserRepository) Activate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user, ok := r.users[id]; ok {
		user.IsActive = true
		user.VerificationCode = ""
	}
	return nil
}

func (r *InMemoryUserRepository) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *InMemoryUserRepository) CountByRole(_ context.Context, role string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, user := range r.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryUserRepository) DeleteExpiredUnverified(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, user := range r.users {
		if !user.IsActive && !user.VerificationExpiry.IsZero() && user.VerificationExpiry.Before(now) {
			delete(r.users, id)
			deleted++
		}
	}
	return deleted, nil
}

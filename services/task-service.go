package services

import (
	"context"
	"fmt"
	"time"

	"task-app/backend/task-service/logging"
	"task-app/backend/task-service/models"
	"task-app/backend/task-service/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskService sprovodi pravila životnog ciklusa zadatka: kreiranje, dodelu,
// završavanje, lenjo zaključavanje po isteku roka, opravdanja i odluke
// administratora.
type TaskService struct {
	tasks    repositories.TaskRepository
	users    repositories.UserRepository
	notifier *NotificationService
}

func NewTaskService(tasks repositories.TaskRepository, users repositories.UserRepository, notifier *NotificationService) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		notifier: notifier,
	}
}

type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	AssignedTo  string              `json:"assignedTo"`
	DueDate     time.Time           `json:"dueDate"`
}

// UpdateTaskRequest nosi parcijalno ažuriranje; izostavljeno polje (nil)
// ostaje netaknuto.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	AssignedTo  *string              `json:"assignedTo"`
	DueDate     *time.Time           `json:"dueDate"`
}

func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest, createdBy primitive.ObjectID) (*models.Task, error) {
	if req.Title == "" || req.AssignedTo == "" || req.DueDate.IsZero() {
		return nil, &models.ValidationError{Message: "title, assignedTo and dueDate are required"}
	}
	if !req.DueDate.After(time.Now()) {
		return nil, &models.ValidationError{Message: "due date must be in the future"}
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	} else if !models.ValidPriority(req.Priority) {
		return nil, &models.ValidationError{Message: "invalid priority"}
	}

	assigneeID, err := primitive.ObjectIDFromHex(req.AssignedTo)
	if err != nil {
		return nil, &models.ValidationError{Message: "invalid assignedTo ID format"}
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		return nil, &models.ValidationError{Message: "assigned user not found"}
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusTodo,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Locked:      false,
		AssignedTo:  assigneeID,
		CreatedBy:   createdBy,
	}

	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task '%s' created and assigned to '%s'.", created.Title, assignee.Username)
	s.notify(assignee, "New task assigned",
		fmt.Sprintf("You have been assigned a new task: '%s', due %s.", created.Title, created.DueDate.Format("2006-01-02 15:04")))

	return created, nil
}

func (s *TaskService) GetMyTasks(ctx context.Context, callerID primitive.ObjectID) ([]models.Task, error) {
	return s.tasks.ListByAssignee(ctx, callerID)
}

func (s *TaskService) GetTaskByID(ctx context.Context, taskID primitive.ObjectID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, &models.NotFoundError{Message: "task not found"}
	}
	return task, nil
}

func (s *TaskService) SearchTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	return s.tasks.Search(ctx, filter)
}

func (s *TaskService) GetTasksWithPendingExcuses(ctx context.Context) ([]models.Task, error) {
	return s.tasks.ListPendingExcuses(ctx)
}

// CompleteTask prebacuje zadatak iz Todo u Completed, u ime izvršioca.
// Zaključavanje i tranzicija su jedan uslovni upis u skladištu; dva
// istovremena zahteva ne mogu oba da prođu proveru locked=false.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, callerID primitive.ObjectID) error {
	now := time.Now()
	s.applyAutoLock(ctx, taskID, now)

	done, err := s.tasks.CompleteIfUnlocked(ctx, taskID, callerID, now)
	if err != nil {
		return err
	}
	if done {
		logging.Logger.Infof("Event ID: TASK_COMPLETED, Description: Task %s completed by assignee.", taskID.Hex())
		return nil
	}

	return s.classifyTransitionFailure(ctx, taskID, callerID, now, "task cannot be completed")
}

// SubmitExcuse upisuje opravdanje izvršioca i briše eventualni prethodni
// odgovor administratora, da ponovljena molba ne bi nosila zastareli komentar.
// Status ostaje Todo dok administrator ne odluči.
func (s *TaskService) SubmitExcuse(ctx context.Context, taskID, callerID primitive.ObjectID, excuse string) error {
	now := time.Now()
	s.applyAutoLock(ctx, taskID, now)

	if len(excuse) < models.MinExcuseLength {
		return &models.ValidationError{Message: fmt.Sprintf("excuse must be at least %d characters", models.MinExcuseLength)}
	}

	submitted, err := s.tasks.SetExcuseIfUnlocked(ctx, taskID, callerID, excuse, now)
	if err != nil {
		return err
	}
	if submitted {
		logging.Logger.Infof("Event ID: EXCUSE_SUBMITTED, Description: Excuse submitted for task %s.", taskID.Hex())
		return nil
	}

	return s.classifyTransitionFailure(ctx, taskID, callerID, now, "cannot submit excuse")
}

// RespondExcuse je odluka administratora: prihvaćeno opravdanje vodi u
// Excused, odbijeno vraća zadatak u Todo.
func (s *TaskService) RespondExcuse(ctx context.Context, taskID primitive.ObjectID, response models.ExcuseResponse, message string) error {
	if !models.ValidResponse(response) {
		return &models.ValidationError{Message: "invalid response"}
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return &models.NotFoundError{Message: "task not found"}
	}
	if task.Excuse == "" {
		return &models.ValidationError{Message: "no excuse to respond to"}
	}

	status := models.StatusTodo
	if response == models.ResponseAccepted {
		status = models.StatusExcused
	}

	updated, err := s.tasks.SetAdminResponse(ctx, taskID, response, message, status)
	if err != nil {
		return err
	}
	if !updated {
		return &models.NotFoundError{Message: "task not found"}
	}

	logging.Logger.Infof("Event ID: EXCUSE_REVIEWED, Description: Excuse for task %s %s.", taskID.Hex(), response)
	s.notifyByID(ctx, task.AssignedTo, "Excuse reviewed",
		fmt.Sprintf("Your excuse for task '%s' was %s.", task.Title, response))

	return nil
}

// UnlockTask skida zaključavanje i trajno isključuje automatsko zaključavanje
// za taj zadatak.
func (s *TaskService) UnlockTask(ctx context.Context, taskID primitive.ObjectID) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return &models.NotFoundError{Message: "task not found"}
	}

	if _, err := s.tasks.Unlock(ctx, taskID); err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: TASK_UNLOCKED, Description: Task %s unlocked by admin.", taskID.Hex())
	s.notifyByID(ctx, task.AssignedTo, "Task unlocked",
		fmt.Sprintf("Task '%s' has been unlocked by an administrator.", task.Title))

	return nil
}

func (s *TaskService) ReassignTask(ctx context.Context, taskID primitive.ObjectID, newAssignee string) (*models.Task, error) {
	if newAssignee == "" {
		return nil, &models.ValidationError{Message: "assignedTo is required"}
	}
	assigneeID, err := primitive.ObjectIDFromHex(newAssignee)
	if err != nil {
		return nil, &models.ValidationError{Message: "invalid assignedTo ID format"}
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		return nil, &models.NotFoundError{Message: "assigned user not found"}
	}

	updated, err := s.tasks.Update(ctx, taskID, repositories.TaskUpdate{AssignedTo: &assigneeID})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &models.NotFoundError{Message: "task not found"}
	}

	logging.Logger.Infof("Event ID: TASK_REASSIGNED, Description: Task %s reassigned to '%s'.", taskID.Hex(), assignee.Username)
	s.notify(assignee, "Task assigned to you",
		fmt.Sprintf("Task '%s' has been reassigned to you, due %s.", updated.Title, updated.DueDate.Format("2006-01-02 15:04")))

	return updated, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, taskID primitive.ObjectID, req UpdateTaskRequest) (*models.Task, error) {
	update := repositories.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}

	if req.Title != nil && *req.Title == "" {
		return nil, &models.ValidationError{Message: "title must not be empty"}
	}
	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		return nil, &models.ValidationError{Message: "invalid priority"}
	}
	if req.DueDate != nil && !req.DueDate.After(time.Now()) {
		return nil, &models.ValidationError{Message: "due date must be in the future"}
	}
	if req.AssignedTo != nil {
		assigneeID, err := primitive.ObjectIDFromHex(*req.AssignedTo)
		if err != nil {
			return nil, &models.ValidationError{Message: "invalid assignedTo ID format"}
		}
		assignee, err := s.users.GetByID(ctx, assigneeID)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, &models.NotFoundError{Message: "assigned user not found"}
		}
		update.AssignedTo = &assigneeID
	}

	updated, err := s.tasks.Update(ctx, taskID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &models.NotFoundError{Message: "task not found"}
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, taskID primitive.ObjectID) error {
	deleted, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return &models.NotFoundError{Message: "task not found"}
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted.", taskID.Hex())
	return nil
}

func (s *TaskService) GetDashboardStats(ctx context.Context) (models.DashboardStats, error) {
	stats, err := s.tasks.Stats(ctx, time.Now())
	if err != nil {
		return stats, err
	}
	stats.TotalUsers, err = s.users.CountByRole(ctx, models.RoleUser)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// applyAutoLock upisuje locked=true ako je rok prošao. Neuspeh upisa ne obara
// zahtev: odluka u nastavku ionako tretira prekoračeni rok kao zaključan, a
// greška se loguje radi naknadnog usklađivanja.
func (s *TaskService) applyAutoLock(ctx context.Context, taskID primitive.ObjectID, now time.Time) {
	locked, err := s.tasks.LockIfOverdue(ctx, taskID, now)
	if err != nil {
		logging.Logger.Errorf("Event ID: LOCK_PERSIST_FAILED, Description: Failed to persist lock for task %s: %v", taskID.Hex(), err)
		return
	}
	if locked {
		logging.Logger.Infof("Event ID: TASK_AUTO_LOCKED, Description: Task %s locked due to overdue.", taskID.Hex())
	}
}

// classifyTransitionFailure ponovo čita zadatak da bi neuspeli uslovni upis
// preveo u odgovarajuću grešku za pozivaoca.
func (s *TaskService) classifyTransitionFailure(ctx context.Context, taskID, callerID primitive.ObjectID, now time.Time, badStatusMessage string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil || task.AssignedTo != callerID {
		return &models.NotFoundError{Message: "task not found"}
	}
	if task.Locked || task.ShouldLock(now) {
		return &models.ForbiddenError{Message: "task is locked due to overdue"}
	}
	if task.Status != models.StatusTodo {
		return &models.ValidationError{Message: badStatusMessage}
	}
	// Uslovni upis nije prošao, a stanje sada izgleda validno: u međuvremenu
	// je pisao neko drugi.
	return &models.ConflictError{Message: "task was modified concurrently, please retry"}
}

func (s *TaskService) notify(user *models.User, subject, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(user, subject, message)
}

func (s *TaskService) notifyByID(ctx context.Context, userID primitive.ObjectID, subject, message string) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	s.notifier.NotifyUser(user, subject, message)
}

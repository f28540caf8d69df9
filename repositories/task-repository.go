package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-app/backend/task-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// TaskUpdate su opciona polja za parcijalno ažuriranje; nil polje ostaje netaknuto.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	AssignedTo  *primitive.ObjectID
	DueDate     *time.Time
}

// TaskRepository je apstrakcija nad skladištem zadataka. Metode koje vraćaju
// (*models.Task, error) vraćaju (nil, nil) kada zadatak ne postoji; uslovne
// metode vraćaju false kada nijedan dokument nije odgovarao filteru.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	Search(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListByAssignee(ctx context.Context, assignee primitive.ObjectID) ([]models.Task, error)
	ListPendingExcuses(ctx context.Context) ([]models.Task, error)
	Update(ctx context.Context, id primitive.ObjectID, update TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByAssignee(ctx context.Context, assignee primitive.ObjectID) (int64, error)

	// LockIfOverdue upisuje locked=true samo ako je zadatak još Todo, nije
	// trajno otključan od administratora i rok mu je prošao.
	LockIfOverdue(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)

	// CompleteIfUnlocked i SetExcuseIfUnlocked kombinuju proveru zaključavanja
	// i samu tranziciju u jedan uslovni upis, da dva istovremena zahteva ne bi
	// oba videla locked=false.
	CompleteIfUnlocked(ctx context.Context, id, assignee primitive.ObjectID, now time.Time) (bool, error)
	SetExcuseIfUnlocked(ctx context.Context, id, assignee primitive.ObjectID, excuse string, now time.Time) (bool, error)

	SetAdminResponse(ctx context.Context, id primitive.ObjectID, response models.ExcuseResponse, message string, status models.TaskStatus) (bool, error)
	Unlock(ctx context.Context, id primitive.ObjectID) (bool, error)
	Stats(ctx context.Context, now time.Time) (models.DashboardStats, error)
}

type MongoTaskRepository struct {
	tasksCollection *mongo.Collection
}

func NewMongoTaskRepository(tasksCollection *mongo.Collection) *MongoTaskRepository {
	return &MongoTaskRepository{tasksCollection: tasksCollection}
}

// notLockableFilter propušta samo zadatke koji ne podležu zaključavanju:
// rok još nije prošao, ili ih je administrator trajno otključao.
func notLockableFilter(now time.Time) bson.A {
	return bson.A{
		bson.M{"dueDate": bson.M{"$gte": now}},
		bson.M{"unlockedByAdmin": true},
	}
}

func pendingExcuseFilter() bson.M {
	return bson.M{
		"excuse": bson.M{"$exists": true, "$ne": ""},
		"$or": bson.A{
			bson.M{"adminResponse": bson.M{"$exists": false}},
			bson.M{"adminResponse": ""},
		},
	}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.tasksCollection.InsertOne(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}
	task.ID = result.InsertedID.(primitive.ObjectID)

	return task, nil
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.tasksCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %v", err)
	}
	return &task, nil
}

func (r *MongoTaskRepository) Search(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	query := bson.M{}
	if filter.Search != "" {
		query["title"] = bson.M{"$regex": filter.Search, "$options": "i"}
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.AssignedTo != "" {
		assigneeID, err := primitive.ObjectIDFromHex(filter.AssignedTo)
		if err != nil {
			return nil, &models.ValidationError{Message: "invalid assignedTo ID format"}
		}
		query["assignedTo"] = assigneeID
	}

	return r.findTasks(ctx, query)
}

func (r *MongoTaskRepository) ListByAssignee(ctx context.Context, assignee primitive.ObjectID) ([]models.Task, error) {
	return r.findTasks(ctx, bson.M{"assignedTo": assignee})
}

func (r *MongoTaskRepository) ListPendingExcuses(ctx context.Context) ([]models.Task, error) {
	return r.findTasks(ctx, pendingExcuseFilter())
}

func (r *MongoTaskRepository) findTasks(ctx context.Context, query bson.M) ([]models.Task, error) {
	cursor, err := r.tasksCollection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}
	return tasks, nil
}

func (r *MongoTaskRepository) Update(ctx context.Context, id primitive.ObjectID, update TaskUpdate) (*models.Task, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Priority != nil {
		set["priority"] = *update.Priority
	}
	if update.AssignedTo != nil {
		set["assignedTo"] = *update.AssignedTo
	}
	if update.DueDate != nil {
		set["dueDate"] = *update.DueDate
	}

	result, err := r.tasksCollection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %v", err)
	}
	if result.MatchedCount == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.tasksCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %v", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *MongoTaskRepository) DeleteByAssignee(ctx context.Context, assignee primitive.ObjectID) (int64, error) {
	result, err := r.tasksCollection.DeleteMany(ctx, bson.M{"assignedTo": assignee})
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks for user: %v", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoTaskRepository) LockIfOverdue(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":             id,
		"status":          models.StatusTodo,
		"unlockedByAdmin": false,
		"dueDate":         bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{"locked": true, "updatedAt": now}}

	result, err := r.tasksCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to lock overdue task: %v", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTaskRepository) CompleteIfUnlocked(ctx context.Context, id, assignee primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"assignedTo": assignee,
		"status":     models.StatusTodo,
		"locked":     false,
		"$or":        notLockableFilter(now),
	}
	update := bson.M{"$set": bson.M{"status": models.StatusCompleted, "updatedAt": now}}

	result, err := r.tasksCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %v", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTaskRepository) SetExcuseIfUnlocked(ctx context.Context, id, assignee primitive.ObjectID, excuse string, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":        id,
		"assignedTo": assignee,
		"status":     models.StatusTodo,
		"locked":     false,
		"$or":        notLockableFilter(now),
	}
	// Novo opravdanje uklanja i stari odgovor administratora, da odbijena pa
	// ponovo poslata molba ne bi nosila zastareli komentar.
	update := bson.M{
		"$set":   bson.M{"excuse": excuse, "updatedAt": now},
		"$unset": bson.M{"adminResponse": "", "adminResponseMessage": ""},
	}

	result, err := r.tasksCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to submit excuse: %v", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTaskRepository) SetAdminResponse(ctx context.Context, id primitive.ObjectID, response models.ExcuseResponse, message string, status models.TaskStatus) (bool, error) {
	update := bson.M{"$set": bson.M{
		"adminResponse":        response,
		"adminResponseMessage": message,
		"status":               status,
		"updatedAt":            time.Now(),
	}}

	result, err := r.tasksCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, fmt.Errorf("failed to save excuse response: %v", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTaskRepository) Unlock(ctx context.Context, id primitive.ObjectID) (bool, error) {
	update := bson.M{"$set": bson.M{
		"locked":          false,
		"unlockedByAdmin": true,
		"updatedAt":       time.Now(),
	}}

	result, err := r.tasksCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, fmt.Errorf("failed to unlock task: %v", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MongoTaskRepository) Stats(ctx context.Context, now time.Time) (models.DashboardStats, error) {
	var stats models.DashboardStats
	var err error

	if stats.TotalTasks, err = r.tasksCollection.CountDocuments(ctx, bson.M{}); err != nil {
		return stats, fmt.Errorf("failed to count tasks: %v", err)
	}
	if stats.CompletedTasks, err = r.tasksCollection.CountDocuments(ctx, bson.M{"status": models.StatusCompleted}); err != nil {
		return stats, fmt.Errorf("failed to count completed tasks: %v", err)
	}
	if stats.TodoTasks, err = r.tasksCollection.CountDocuments(ctx, bson.M{"status": models.StatusTodo}); err != nil {
		return stats, fmt.Errorf("failed to count todo tasks: %v", err)
	}
	// Broj prekoračenih rokova se računa iz dueDate, a ne iz locked polja.
	overdueFilter := bson.M{"status": models.StatusTodo, "dueDate": bson.M{"$lt": now}}
	if stats.OverdueTasks, err = r.tasksCollection.CountDocuments(ctx, overdueFilter); err != nil {
		return stats, fmt.Errorf("failed to count overdue tasks: %v", err)
	}
	if stats.PendingExcuses, err = r.tasksCollection.CountDocuments(ctx, pendingExcuseFilter()); err != nil {
		return stats, fmt.Errorf("failed to count pending excuses: %v", err)
	}

	assignees, err := r.tasksCollection.Distinct(ctx, "assignedTo", bson.M{"status": models.StatusTodo})
	if err != nil {
		return stats, fmt.Errorf("failed to count users with todo tasks: %v", err)
	}
	stats.UsersWithTodoTasks = int64(len(assignees))

	return stats, nil
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo      TaskStatus = "Todo"
	StatusCompleted TaskStatus = "Completed"
	StatusExcused   TaskStatus = "Excused"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

type ExcuseResponse string

const (
	ResponseAccepted ExcuseResponse = "accepted"
	ResponseDeclined ExcuseResponse = "declined"
)

// MinExcuseLength je minimalna dužina opravdanja koje korisnik može da pošalje.
const MinExcuseLength = 32

type Task struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title                string             `json:"title" bson:"title"`
	Description          string             `json:"description,omitempty" bson:"description,omitempty"`
	Status               TaskStatus         `json:"status" bson:"status"`
	Priority             TaskPriority       `json:"priority" bson:"priority"`
	DueDate              time.Time          `json:"dueDate" bson:"dueDate"`
	Locked               bool               `json:"locked" bson:"locked"`
	UnlockedByAdmin      bool               `json:"unlockedByAdmin" bson:"unlockedByAdmin"`
	AssignedTo           primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	CreatedBy            primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	Excuse               string             `json:"excuse,omitempty" bson:"excuse,omitempty"`
	AdminResponse        ExcuseResponse     `json:"adminResponse,omitempty" bson:"adminResponse,omitempty"`
	AdminResponseMessage string             `json:"adminResponseMessage,omitempty" bson:"adminResponseMessage,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ShouldLock proverava da li zadatak treba automatski zaključati.
// Zadatak se zaključava samo dok je još u Todo statusu; jednom otključan
// od strane administratora više se nikada ne zaključava.
func (t *Task) ShouldLock(now time.Time) bool {
	return t.Status == StatusTodo && !t.UnlockedByAdmin && t.DueDate.Before(now)
}

// HasPendingExcuse - opravdanje je poslato, a administrator još nije odgovorio.
func (t *Task) HasPendingExcuse() bool {
	return t.Excuse != "" && t.AdminResponse == ""
}

func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidResponse(r ExcuseResponse) bool {
	return r == ResponseAccepted || r == ResponseDeclined
}

// TaskFilter su opcioni kriterijumi za pretragu zadataka.
type TaskFilter struct {
	Search     string
	Status     TaskStatus
	Priority   TaskPriority
	AssignedTo string
}

// DashboardStats su agregirani brojevi za admin dashboard. Overdue se računa
// direktno iz dueDate i statusa, jer locked ne mora još biti upisan za
// zadatak koji niko nije dirao.
type DashboardStats struct {
	TotalTasks         int64 `json:"totalTasks"`
	TotalUsers         int64 `json:"totalUsers"`
	CompletedTasks     int64 `json:"completedTasks"`
	OverdueTasks       int64 `json:"overdueTasks"`
	TodoTasks          int64 `json:"todoTasks"`
	UsersWithTodoTasks int64 `json:"usersWithTodoTasksCount"`
	PendingExcuses     int64 `json:"excuseTasksCount"`
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldLock(t *testing.T) {
	now := time.Now()

	overdue := &Task{Status: StatusTodo, DueDate: now.Add(-time.Hour)}
	assert.True(t, overdue.ShouldLock(now))

	notDue := &Task{Status: StatusTodo, DueDate: now.Add(time.Hour)}
	assert.False(t, notDue.ShouldLock(now))

	// Rok je tačno sada: još nije prekoračen.
	exact := &Task{Status: StatusTodo, DueDate: now}
	assert.False(t, exact.ShouldLock(now))

	completed := &Task{Status: StatusCompleted, DueDate: now.Add(-time.Hour)}
	assert.False(t, completed.ShouldLock(now))

	excused := &Task{Status: StatusExcused, DueDate: now.Add(-time.Hour)}
	assert.False(t, excused.ShouldLock(now))

	unlocked := &Task{Status: StatusTodo, DueDate: now.Add(-time.Hour), UnlockedByAdmin: true}
	assert.False(t, unlocked.ShouldLock(now))
}

func TestHasPendingExcuse(t *testing.T) {
	assert.False(t, (&Task{}).HasPendingExcuse())
	assert.True(t, (&Task{Excuse: "I was sick for the whole week and could not work"}).HasPendingExcuse())
	assert.False(t, (&Task{Excuse: "I was sick for the whole week and could not work", AdminResponse: ResponseDeclined}).HasPendingExcuse())
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(PriorityLow))
	assert.True(t, ValidPriority(PriorityMedium))
	assert.True(t, ValidPriority(PriorityHigh))
	assert.False(t, ValidPriority("Urgent"))
	assert.False(t, ValidPriority(""))
}

func TestValidResponse(t *testing.T) {
	assert.True(t, ValidResponse(ResponseAccepted))
	assert.True(t, ValidResponse(ResponseDeclined))
	assert.False(t, ValidResponse("maybe"))
}

// Package store persists calendar tasks.
//
// The dialogue loop is the only caller, one operation at a time, so the
// interface is small and synchronous. Dates are "YYYY-MM-DD" strings and
// times "HH:MM" — the spoken-language layer produces exactly these forms.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no task.
var ErrNotFound = errors.New("task not found")

// Task is one calendar row.
type Task struct {
	ID          int64
	Title       string
	Description string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, may be empty
	Completed   bool
	CreatedAt   time.Time
}

// Store is the calendar persistence contract.
type Store interface {
	// AddTask inserts a new, uncompleted task and returns it with its ID.
	AddTask(ctx context.Context, title, description, date, timeOfDay string) (*Task, error)

	// DeleteTask removes a task by ID. Deleting a missing ID is ErrNotFound.
	DeleteTask(ctx context.Context, id int64) error

	// MarkTaskCompleted flags a task done. Missing ID is ErrNotFound.
	MarkTaskCompleted(ctx context.Context, id int64) error

	// GetTaskByDatetime finds the newest task at the given date and time.
	// A non-empty title narrows the match by case-insensitive substring.
	GetTaskByDatetime(ctx context.Context, date, timeOfDay, title string) (*Task, error)

	// GetLastTask returns the most recently inserted task.
	GetLastTask(ctx context.Context) (*Task, error)

	// GetAllTasksByDate lists every task on a date.
	GetAllTasksByDate(ctx context.Context, date string) ([]*Task, error)

	// GetMeetingsByDate lists tasks on a date whose title marks them as a
	// meeting.
	GetMeetingsByDate(ctx context.Context, date string) ([]*Task, error)

	// Close releases the underlying database.
	Close() error
}

// Package sqlite implements the task store on a local SQLite database via
// the pure-Go modernc.org/sqlite driver, so the binary stays CGO-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sudeakyildz/sesli-asistan/internal/store"
)

// DB implements store.Store.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the task database at path and runs the schema
// migration. Use ":memory:" for an ephemeral store.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One dialogue loop, one writer.
	db.SetMaxOpenConns(1)

	d := &DB{db: db}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			date TEXT NOT NULL,
			time TEXT,
			completed INTEGER DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("migrating tasks table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (d *DB) Close() error { return d.db.Close() }

const taskColumns = "id, title, description, date, time, completed, created_at"

func (d *DB) AddTask(ctx context.Context, title, description, date, timeOfDay string) (*store.Task, error) {
	stmt := `INSERT INTO tasks (title, description, date, time, completed)
		VALUES (?, ?, ?, ?, 0)
		RETURNING id, created_at`

	task := &store.Task{
		Title:       title,
		Description: description,
		Date:        date,
		Time:        timeOfDay,
	}
	var createdAt string
	if err := d.db.QueryRowContext(ctx, stmt, title, description, date, timeOfDay).Scan(
		&task.ID,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}
	task.CreatedAt = parseCreatedAt(createdAt)
	return task, nil
}

func (d *DB) DeleteTask(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) MarkTaskCompleted(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, `UPDATE tasks SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("completing task %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) GetTaskByDatetime(ctx context.Context, date, timeOfDay, title string) (*store.Task, error) {
	where, args := []string{"date = ?", "time = ?"}, []any{date, timeOfDay}
	if title != "" {
		where = append(where, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+title+"%")
	}

	stmt := `SELECT ` + taskColumns + ` FROM tasks
		WHERE ` + joinAnd(where) + `
		ORDER BY id DESC LIMIT 1`
	return d.queryOne(ctx, stmt, args...)
}

func (d *DB) GetLastTask(ctx context.Context) (*store.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks ORDER BY id DESC LIMIT 1`
	return d.queryOne(ctx, stmt)
}

func (d *DB) GetAllTasksByDate(ctx context.Context, date string) ([]*store.Task, error) {
	stmt := `SELECT ` + taskColumns + ` FROM tasks WHERE date = ? ORDER BY time ASC, id ASC`
	return d.queryAll(ctx, stmt, date)
}

func (d *DB) GetMeetingsByDate(ctx context.Context, date string) ([]*store.Task, error) {
	// Meetings are tasks titled "toplantı" by the add flow.
	stmt := `SELECT ` + taskColumns + ` FROM tasks
		WHERE date = ? AND title LIKE ?
		ORDER BY time ASC, id ASC`
	return d.queryAll(ctx, stmt, date, "%toplantı%")
}

func (d *DB) queryOne(ctx context.Context, stmt string, args ...any) (*store.Task, error) {
	task, err := scanTask(d.db.QueryRowContext(ctx, stmt, args...))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return task, nil
}

func (d *DB) queryAll(ctx context.Context, stmt string, args ...any) ([]*store.Task, error) {
	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*store.Task, error) {
	var (
		task        store.Task
		description sql.NullString
		timeOfDay   sql.NullString
		completed   int
		createdAt   string
	)
	if err := s.Scan(
		&task.ID,
		&task.Title,
		&description,
		&task.Date,
		&timeOfDay,
		&completed,
		&createdAt,
	); err != nil {
		return nil, err
	}
	task.Description = description.String
	task.Time = timeOfDay.String
	task.Completed = completed != 0
	task.CreatedAt = parseCreatedAt(createdAt)
	return &task, nil
}

func parseCreatedAt(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func joinAnd(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

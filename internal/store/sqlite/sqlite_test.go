package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudeakyildz/sesli-asistan/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddAndLookup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task, err := db.AddTask(ctx, "toplantı", "proje durumu", "2025-06-05", "14:00")
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Equal(t, "toplantı", task.Title)
	assert.False(t, task.Completed)

	got, err := db.GetTaskByDatetime(ctx, "2025-06-05", "14:00", "")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "proje durumu", got.Description)

	// Title narrows by case-insensitive substring. NOCASE only folds
	// ASCII, so the probe stops short of the trailing "ı".
	got, err = db.GetTaskByDatetime(ctx, "2025-06-05", "14:00", "TOPLANT")
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = db.GetTaskByDatetime(ctx, "2025-06-05", "15:00", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLookupPrefersNewest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, err := db.AddTask(ctx, "iş", "", "2025-06-05", "14:00")
	require.NoError(t, err)
	second, err := db.AddTask(ctx, "iş", "", "2025-06-05", "14:00")
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	got, err := db.GetTaskByDatetime(ctx, "2025-06-05", "14:00", "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestDeleteTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task, err := db.AddTask(ctx, "iş", "", "2025-06-05", "09:00")
	require.NoError(t, err)

	require.NoError(t, db.DeleteTask(ctx, task.ID))
	assert.ErrorIs(t, db.DeleteTask(ctx, task.ID), store.ErrNotFound)

	_, err = db.GetTaskByDatetime(ctx, "2025-06-05", "09:00", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkTaskCompleted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task, err := db.AddTask(ctx, "iş", "", "2025-06-05", "09:00")
	require.NoError(t, err)

	require.NoError(t, db.MarkTaskCompleted(ctx, task.ID))

	got, err := db.GetTaskByDatetime(ctx, "2025-06-05", "09:00", "")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	assert.ErrorIs(t, db.MarkTaskCompleted(ctx, 9999), store.ErrNotFound)
}

func TestGetLastTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.GetLastTask(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = db.AddTask(ctx, "iş", "", "2025-06-05", "09:00")
	require.NoError(t, err)
	last, err := db.AddTask(ctx, "toplantı", "", "2025-06-06", "10:00")
	require.NoError(t, err)

	got, err := db.GetLastTask(ctx)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)
}

func TestGetAllTasksByDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddTask(ctx, "iş", "", "2025-06-05", "15:00")
	require.NoError(t, err)
	_, err = db.AddTask(ctx, "toplantı", "", "2025-06-05", "09:00")
	require.NoError(t, err)
	_, err = db.AddTask(ctx, "iş", "", "2025-06-06", "09:00")
	require.NoError(t, err)

	tasks, err := db.GetAllTasksByDate(ctx, "2025-06-05")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	// Ordered by time of day.
	assert.Equal(t, "09:00", tasks[0].Time)
	assert.Equal(t, "15:00", tasks[1].Time)

	tasks, err = db.GetAllTasksByDate(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestGetMeetingsByDate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddTask(ctx, "toplantı", "", "2025-06-05", "09:00")
	require.NoError(t, err)
	_, err = db.AddTask(ctx, "iş", "", "2025-06-05", "10:00")
	require.NoError(t, err)

	meetings, err := db.GetMeetingsByDate(ctx, "2025-06-05")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "toplantı", meetings[0].Title)
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType: "upsert",
		OrderID:  "ord-100",
		Payload:  `{"id":"ord-100"}`,
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.Equal(t, SyncStatusPending, task.Status)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "ord-100", tasks[0].OrderID)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, SyncStatusCompleted, "", nil))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	errMsg := "some error"
	require.NoError(t, db.CreateSyncTask(ctx, &models.SyncTask{TaskType: "upsert", OrderID: "ord-101", Status: SyncStatusFailed, LastError: &errMsg}))
	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "some error", *failed[0].LastError)

	task2 := &models.SyncTask{TaskType: "upsert", OrderID: "ord-102"}
	require.NoError(t, db.CreateSyncTask(ctx, task2))

	nextRetry := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task2.ID, SyncStatusRetry, "temporary error", &nextRetry))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks, "task with future retry should not be pending")

	pastRetry := time.Now().Add(-time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task2.ID, SyncStatusRetry, "temporary error", &pastRetry))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task2.ID, tasks[0].ID)
	assert.Equal(t, 2, tasks[0].RetryCount)
}

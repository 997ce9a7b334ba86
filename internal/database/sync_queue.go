package database

import (
	"context"
	"fmt"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	sq "github.com/Masterminds/squirrel"
)

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

var syncColumns = []string{
	"id", "task_type", "order_id", "payload", "status", "retry_count", "last_error", "created_at", "processed_at", "next_retry_at",
}

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = SyncStatusPending
	}
	now := time.Now().UTC()

	query, args, err := db.sb.Insert("sync_queue").
		Columns("task_type", "order_id", "payload", "status", "retry_count", "last_error", "created_at", "next_retry_at").
		Values(task.TaskType, task.OrderID, task.Payload, task.Status, task.RetryCount, task.LastError, now, utc(task.NextRetryAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreateSyncTask: %v", ErrBuildQuery, err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingSyncTasks returns tasks that are due, oldest first.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query, args, err := db.sb.Select(syncColumns...).
		From("sync_queue").
		Where(sq.Eq{"status": []string{SyncStatusPending, SyncStatusRetry}}).
		Where(sq.Or{sq.Eq{"next_retry_at": nil}, sq.LtOrEq{"next_retry_at": time.Now().UTC()}}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetPendingSyncTasks: %v", ErrBuildQuery, err)
	}
	return db.querySyncTasks(ctx, query, args)
}

func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	query, args, err := db.sb.Select(syncColumns...).
		From("sync_queue").
		Where(sq.Eq{"status": SyncStatusFailed}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetFailedSyncTasks: %v", ErrBuildQuery, err)
	}
	return db.querySyncTasks(ctx, query, args)
}

func (db *DB) querySyncTasks(ctx context.Context, query string, args []interface{}) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		if err := rows.Scan(
			&t.ID, &t.TaskType, &t.OrderID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	upd := db.sb.Update("sync_queue").
		Set("status", status).
		Set("last_error", errMsg).
		Set("next_retry_at", utc(nextRetryAt)).
		Where(sq.Eq{"id": id})

	switch status {
	case SyncStatusRetry:
		upd = upd.Set("retry_count", sq.Expr("retry_count + 1"))
	case SyncStatusCompleted, SyncStatusFailed:
		upd = upd.Set("processed_at", time.Now().UTC())
	}

	query, args, err := upd.ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateSyncTaskStatus: %v", ErrBuildQuery, err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}

// utc normalises stored instants so text comparisons in sqlite order
// correctly.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

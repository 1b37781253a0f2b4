package repositories

import (
	"context"

	"seafarer/bosun/internal/models/entities"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SyncLogRepo appends and reads the append-only sync audit log.
type SyncLogRepo struct {
	db *sqlx.DB
}

func NewSyncLogRepo(db *sqlx.DB) *SyncLogRepo {
	return &SyncLogRepo{
		db: db,
	}
}

func (r *SyncLogRepo) Append(ctx context.Context, entry *entities.SyncLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	const query = `
		INSERT INTO sync_logs (
			id, user_id, entity_type, operation, status,
			items_fetched, items_created, items_updated, items_failed,
			started_at, completed_at, duration_ms, error_detail)
		VALUES (
			:id, :user_id, :entity_type, :operation, :status,
			:items_fetched, :items_created, :items_updated, :items_failed,
			:started_at, :completed_at, :duration_ms, :error_detail)
	`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	return err
}

func (r *SyncLogRepo) RecentRuns(ctx context.Context, userID string, limit int) ([]entities.SyncLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	const query = `
		SELECT id, user_id, entity_type, operation, status,
		       items_fetched, items_created, items_updated, items_failed,
		       started_at, completed_at, duration_ms, error_detail
		FROM sync_logs
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	var logs []entities.SyncLog
	if err := r.db.SelectContext(ctx, &logs, query, userID, limit); err != nil {
		return nil, err
	}
	return logs, nil
}

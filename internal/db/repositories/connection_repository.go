package repositories

import (
	"context"
	"errors"
	"time"

	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// ConnectionRepo handles upstream connection rows. Credential columns are
// written only through the token lifecycle manager.
type ConnectionRepo struct {
	db *gormlib.DB
}

func NewConnectionRepo(db *gormlib.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// GetByUserID returns the user's connection or nil when none exists.
func (r *ConnectionRepo) GetByUserID(ctx context.Context, userID string) (*gormModels.Connection, error) {
	var conn gormModels.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&conn).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Upsert writes the connection for its user, creating or replacing in
// place. At most one row per user.
func (r *ConnectionRepo) Upsert(ctx context.Context, conn *gormModels.Connection) error {
	existing, err := r.GetByUserID(ctx, conn.UserID)
	if err != nil {
		return err
	}

	if existing == nil {
		if conn.ID == "" {
			conn.ID = uuid.New().String()
		}
		return r.db.WithContext(ctx).Create(conn).Error
	}

	conn.ID = existing.ID
	conn.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(conn).Error
}

// UpdateCredentials persists freshly-encrypted tokens after a refresh.
func (r *ConnectionRepo) UpdateCredentials(ctx context.Context, userID, accessEnc, refreshEnc string, expiresAt time.Time) error {
	updates := map[string]interface{}{
		"access_token_enc": accessEnc,
		"token_expires_at": expiresAt,
	}
	if refreshEnc != "" {
		updates["refresh_token_enc"] = refreshEnc
	}

	return r.db.WithContext(ctx).
		Model(&gormModels.Connection{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

// Deactivate flags the connection unusable with a reason. The row is kept
// so the user sees why re-authorization is required.
func (r *ConnectionRepo) Deactivate(ctx context.Context, userID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&gormModels.Connection{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_active":           false,
			"deactivation_reason": reason,
		}).Error
}

// Delete removes the connection entirely (explicit disconnect).
func (r *ConnectionRepo) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&gormModels.Connection{}).Error
}

// TouchLastSync stamps a completed sync on the connection.
func (r *ConnectionRepo) TouchLastSync(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gormModels.Connection{}).
		Where("user_id = ?", userID).
		Update("last_sync_at", at).Error
}

// ListActiveUserIDs returns user ids with an active connection, for the
// scheduled reconciliation job.
func (r *ConnectionRepo) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&gormModels.Connection{}).
		Where("is_active = ?", true).
		Pluck("user_id", &ids).Error
	return ids, err
}

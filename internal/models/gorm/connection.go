package gorm

import "time"

// Connection is one user's delegated authorization to call the Pelagic
// platform. At most one row per user; reconnecting upserts in place.
// Credential columns hold vault-encrypted values and are written only by
// the token lifecycle manager.
type Connection struct {
	ID                 string     `gorm:"column:id;primaryKey;type:uuid"`
	UserID             string     `gorm:"column:user_id;uniqueIndex;not null"`
	PelagicUserID      string     `gorm:"column:pelagic_user_id"`
	PelagicEmail       string     `gorm:"column:pelagic_email"`
	AccessTokenEnc     string     `gorm:"column:access_token_enc;type:text"`
	RefreshTokenEnc    string     `gorm:"column:refresh_token_enc;type:text"`
	TokenExpiresAt     time.Time  `gorm:"column:token_expires_at"`
	Scopes             string     `gorm:"column:scopes"`
	IsActive           bool       `gorm:"column:is_active;default:true"`
	DeactivationReason string     `gorm:"column:deactivation_reason"`
	ConnectedAt        time.Time  `gorm:"column:connected_at"`
	DisconnectedAt     *time.Time `gorm:"column:disconnected_at"`
	LastSyncAt         *time.Time `gorm:"column:last_sync_at"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

package db

import (
	"fmt"

	"seafarer/bosun/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PgDB is the shared GORM handle used by the mirrored-record
// repositories. The sqlx handle in postgres.go serves the append-only
// sync log; both are built from the same PG_* DSN.
var PgDB *gorm.DB

func InitPostgresORM(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	PgDB = gdb
	logging.Debug("GORM handle initialized")
	return gdb, nil
}

package storage

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
)

// Open opens the SQLite database and migrates the schema.
// An empty DSN defaults to ./data/kouyu.db next to the binary.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dataDir := "./data"
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to create data directory", err)
		}
		dsn = filepath.Join(dataDir, "kouyu.db")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "failed to open database", err)
	}

	if err := db.AutoMigrate(&Attempt{}); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.migrate", "failed to migrate schema", err)
	}
	return db, nil
}

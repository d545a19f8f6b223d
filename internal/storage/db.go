package storage

import (
	"context"
	"errors"

	"github.com/nebari-dev/gatehouse/internal/db"
	"gorm.io/gorm"
)

// DBBackend keeps resources as rows of the stored_resources table
type DBBackend struct {
	db *gorm.DB
}

// NewDBBackend wraps an already migrated database
func NewDBBackend(gdb *gorm.DB) *DBBackend {
	return &DBBackend{db: gdb}
}

func (b *DBBackend) Read(ctx context.Context, name string) ([]byte, error) {
	res, err := db.GetResource(b.db.WithContext(ctx), name)
	if err != nil {
		if errors.Is(err, db.ErrResourceNotFound) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return []byte(res.Content), nil
}

func (b *DBBackend) Write(ctx context.Context, name string, data []byte) error {
	return db.PutResource(b.db.WithContext(ctx), name, string(data))
}

func (b *DBBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

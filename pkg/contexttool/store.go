package contexttool

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the GORM connection backing context_entries.
type Store struct {
	db *gorm.DB
}

// NewStore opens a Postgres connection at dsn and migrates the
// context_entries table.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("contexttool: connect: %w", err)
	}

	if err := db.AutoMigrate(&ContextEntry{}); err != nil {
		return nil, fmt.Errorf("contexttool: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an already-open *gorm.DB, for tests driving their
// own connection (e.g. against a testcontainers-go Postgres instance).
func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ContextEntry{}); err != nil {
		return nil, fmt.Errorf("contexttool: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Get fetches the entry for key. A missing row is reported via ok=false,
// not an error: RequestContext treats an absent entry as an empty result.
func (s *Store) Get(ctx context.Context, key string) (entry *ContextEntry, ok bool, err error) {
	var e ContextEntry
	if err := s.db.WithContext(ctx).Where("context_key = ?", key).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("contexttool: get %q: %w", key, err)
	}
	return &e, true, nil
}

// Put upserts an entry by context_key.
func (s *Store) Put(ctx context.Context, entry *ContextEntry) error {
	if err := s.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("contexttool: put %q: %w", entry.ContextKey, err)
	}
	return nil
}

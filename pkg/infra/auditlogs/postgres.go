package auditlogs

import (
	"context"
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/database"
)

// PostgresStore persists entries to the audit_logs table and serves the
// queryable side of the logs endpoint.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&audit.Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit log schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Name() string {
	return "postgres"
}

func (s *PostgresStore) Write(ctx context.Context, entry audit.Entry) error {
	return s.db.WithContext(ctx).Create(&entry).Error
}

func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]audit.Entry, error) {
	var entries []audit.Entry
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close is a no-op: the database connection is owned by the caller and
// outlives the audit queue.
func (s *PostgresStore) Close() {}

package namemap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the mapping in PostgreSQL so several processes can share it.
// The primary key on sanitized_name makes registration an atomic
// insert-if-absent.
//
//	CREATE TABLE IF NOT EXISTS kpi_name_mapping (
//	  sanitized_name TEXT PRIMARY KEY,
//	  original_name  TEXT NOT NULL
//	);
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to databaseURL and ensures the mapping table exists.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	const ddl = `
		CREATE TABLE IF NOT EXISTS kpi_name_mapping (
			sanitized_name TEXT PRIMARY KEY,
			original_name  TEXT NOT NULL
		)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create mapping table: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PGStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT sanitized_name, original_name FROM kpi_name_mapping`)
	if err != nil {
		return nil, fmt.Errorf("failed to query name mapping: %w", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var sanitized, original string
		if err := rows.Scan(&sanitized, &original); err != nil {
			return nil, fmt.Errorf("failed to scan name mapping: %w", err)
		}
		m[sanitized] = original
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read name mapping: %w", err)
	}
	return m, nil
}

func (s *PGStore) Insert(ctx context.Context, sanitized, original string) error {
	query := `
		INSERT INTO kpi_name_mapping (sanitized_name, original_name)
		VALUES ($1, $2)
		ON CONFLICT (sanitized_name) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, sanitized, original)
	if err != nil {
		return fmt.Errorf("failed to insert name mapping: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var existing string
	err = s.pool.QueryRow(ctx, `SELECT original_name FROM kpi_name_mapping WHERE sanitized_name = $1`, sanitized).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return fmt.Errorf("failed to read existing mapping: %w", err)
	}
	if existing != original {
		return ErrConflict
	}
	return nil
}

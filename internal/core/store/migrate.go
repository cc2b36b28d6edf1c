package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS check_history (
		check_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		available TEXT NOT NULL,
		taken TEXT NOT NULL,
		unknown TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_check_history_username ON check_history(username, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_check_history_created ON check_history(created_at);`,
	`CREATE TABLE IF NOT EXISTS platform_sets (
		name TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		is_builtin INTEGER DEFAULT 0,
		updated_at INTEGER
	);`,
}

// Migrate ensures the required database tables exist. All statements are
// additive and idempotent, so there is no schema version table to maintain.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	// elapsed_ms arrived after the first release; older databases need the
	// column added on upgrade.
	if err := s.ensureColumn(ctx, "check_history", "elapsed_ms", "INTEGER"); err != nil {
		return err
	}

	return nil
}

// ensureColumn backfills a column added after the table first shipped.
// SQLite has no ADD COLUMN IF NOT EXISTS, so probe table_info first.
func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	exists, err := s.columnExists(ctx, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)
	if _, err := s.DB.ExecContext(ctx, alter); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}
	return nil
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		// table_info yields cid, name, type, notnull, dflt_value, pk; only
		// the name matters here.
		var (
			name    string
			discard any
		)
		if err := rows.Scan(&discard, &name, &discard, &discard, &discard, &discard); err != nil {
			return false, fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("inspect %s columns: %w", table, err)
	}
	return false, nil
}

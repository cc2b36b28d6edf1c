package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/handlescan/handlescan/internal/core"
)

const (
	upsertSetSQL = `INSERT INTO platform_sets (name, config, is_builtin, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	config = excluded.config,
	is_builtin = excluded.is_builtin,
	updated_at = excluded.updated_at`

	getSetSQL  = `SELECT config, is_builtin, updated_at FROM platform_sets WHERE name = ?`
	listSetSQL = `SELECT name, config, is_builtin, updated_at FROM platform_sets ORDER BY name`
)

// SeedBuiltInSets writes the compiled-in platform sets, overwriting earlier
// copies so upgrades pick up membership changes.
func (s *Store) SeedBuiltInSets(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, set := range core.BuiltInSets {
		if err := s.UpsertSet(ctx, set, true, now); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSet inserts or replaces a platform set under its trimmed name.
func (s *Store) UpsertSet(ctx context.Context, set core.PlatformSet, isBuiltin bool, updatedAt time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	set.Name = strings.TrimSpace(set.Name)
	if set.Name == "" {
		return errors.New("platform set name is required")
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode platform set: %w", err)
	}

	builtin := 0
	if isBuiltin {
		builtin = 1
	}

	if _, err := s.DB.ExecContext(ctx, upsertSetSQL,
		set.Name, string(payload), builtin, updatedAt.UTC().Unix()); err != nil {
		return fmt.Errorf("store platform set: %w", err)
	}
	return nil
}

// GetSet fetches one platform set. A missing name returns (nil, nil).
func (s *Store) GetSet(ctx context.Context, name string) (*core.PlatformSetRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("platform set name is required")
	}

	var (
		configJSON string
		builtin    int
		updated    sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, getSetSQL, name).Scan(&configJSON, &builtin, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch platform set: %w", err)
	}

	record, err := decodeSetRecord(name, configJSON, builtin, updated)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSets returns every stored platform set ordered by name.
func (s *Store) ListSets(ctx context.Context) ([]core.PlatformSetRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	rows, err := s.DB.QueryContext(ctx, listSetSQL)
	if err != nil {
		return nil, fmt.Errorf("list platform sets: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.PlatformSetRecord
	for rows.Next() {
		var (
			name       string
			configJSON string
			builtin    int
			updated    sql.NullInt64
		)
		if err := rows.Scan(&name, &configJSON, &builtin, &updated); err != nil {
			return nil, fmt.Errorf("list platform sets: %w", err)
		}
		record, err := decodeSetRecord(name, configJSON, builtin, updated)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list platform sets: %w", err)
	}
	return records, nil
}

// decodeSetRecord rebuilds a record from its row. Rows written before the
// name moved into the JSON payload rely on the column value to backfill it.
func decodeSetRecord(name, configJSON string, builtin int, updated sql.NullInt64) (core.PlatformSetRecord, error) {
	var set core.PlatformSet
	if err := json.Unmarshal([]byte(configJSON), &set); err != nil {
		return core.PlatformSetRecord{}, fmt.Errorf("decode platform set: %w", err)
	}
	if set.Name == "" {
		set.Name = name
	}

	record := core.PlatformSetRecord{
		Set:       set,
		IsBuiltin: builtin == 1,
	}
	if updated.Valid {
		record.UpdatedAt = time.Unix(updated.Int64, 0).UTC()
	}
	return record, nil
}

// DeleteSet removes a user-defined platform set. Built-in and unknown names
// are errors.
func (s *Store) DeleteSet(ctx context.Context, name string) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("platform set name is required")
	}

	record, err := s.GetSet(ctx, name)
	if err != nil {
		return err
	}
	switch {
	case record == nil:
		return fmt.Errorf("platform set not found: %s", name)
	case record.IsBuiltin:
		return fmt.Errorf("platform set %s is built-in and cannot be deleted", name)
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM platform_sets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete platform set: %w", err)
	}
	return nil
}

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

// DefaultHistoryLimit caps ListHistory when the caller does not provide one.
const DefaultHistoryLimit = 20

// RecordCheck appends a completed check to the history table. History is an
// audit trail only; probe verdicts are never answered from stored rows.
func (s *Store) RecordCheck(ctx context.Context, result *core.CheckResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx = orBackground(ctx)

	if result == nil {
		return errors.New("check result is required")
	}

	checkID := strings.TrimSpace(result.CheckID)
	if checkID == "" {
		return errors.New("check id is required")
	}

	username := strings.TrimSpace(result.Username)
	if username == "" {
		return errors.New("username is required")
	}

	available, err := encodeIDList(result.Available)
	if err != nil {
		return err
	}
	taken, err := encodeIDList(result.Taken)
	if err != nil {
		return err
	}
	unknown, err := encodeIDList(result.Unknown)
	if err != nil {
		return err
	}

	createdAt := result.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO check_history (check_id, username, available, taken, unknown, created_at, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(check_id) DO NOTHING
	`, checkID, username, available, taken, unknown, createdAt.UTC().Unix(), result.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("store check result: %w", err)
	}

	return nil
}

// GetCheck returns one recorded check by id, or nil when no row matches.
func (s *Store) GetCheck(ctx context.Context, checkID string) (*core.CheckResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	checkID = strings.TrimSpace(checkID)
	if checkID == "" {
		return nil, errors.New("check id is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT check_id, username, available, taken, unknown, created_at, elapsed_ms
		FROM check_history
		WHERE check_id = ?
	`, checkID)

	result, err := scanCheckRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch check: %w", err)
	}

	return result, nil
}

// ListHistory returns recorded checks, newest first. An empty username lists
// checks for every username.
func (s *Store) ListHistory(ctx context.Context, username string, limit int) ([]core.CheckResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx = orBackground(ctx)

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT check_id, username, available, taken, unknown, created_at, elapsed_ms
		FROM check_history
	`
	args := []any{}

	if username = strings.TrimSpace(username); username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}

	query += ` ORDER BY created_at DESC, check_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check history: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var results []core.CheckResult
	for rows.Next() {
		result, err := scanCheckRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list check history: %w", err)
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list check history: %w", err)
	}

	return results, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckRow(row rowScanner) (*core.CheckResult, error) {
	var (
		checkID       string
		username      string
		availableJSON string
		takenJSON     string
		unknownJSON   string
		createdAt     int64
		elapsedMS     sql.NullInt64
	)

	if err := row.Scan(&checkID, &username, &availableJSON, &takenJSON, &unknownJSON, &createdAt, &elapsedMS); err != nil {
		return nil, err
	}

	available, err := decodeIDList(availableJSON)
	if err != nil {
		return nil, err
	}
	taken, err := decodeIDList(takenJSON)
	if err != nil {
		return nil, err
	}
	unknown, err := decodeIDList(unknownJSON)
	if err != nil {
		return nil, err
	}

	result := &core.CheckResult{
		Username:  username,
		Timestamp: time.Unix(createdAt, 0).UTC(),
		Available: available,
		Taken:     taken,
		Unknown:   unknown,
		CheckID:   checkID,
	}
	if elapsedMS.Valid {
		result.Elapsed = time.Duration(elapsedMS.Int64) * time.Millisecond
	}

	return result, nil
}

func encodeIDList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode platform list: %w", err)
	}
	return string(payload), nil
}

func decodeIDList(payload string) ([]string, error) {
	ids := []string{}
	if strings.TrimSpace(payload) == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(payload), &ids); err != nil {
		return nil, fmt.Errorf("decode platform list: %w", err)
	}
	return ids, nil
}

package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Entry is one journaled operation.
type Entry struct {
	ID         int64
	RequestID  string
	Role       string
	PackageIDs []string
	Succeeded  bool
	ErrorCode  string
	Detail     string
	StartedAt  time.Time
	Duration   time.Duration
}

// Package identifiers contain semicolons, so joined lists use newlines.
const packageIDSeparator = "\n"

func joinPackageIDs(ids []string) string {
	return strings.Join(ids, packageIDSeparator)
}

func splitPackageIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, packageIDSeparator)
}

// Record appends an entry to the journal and returns its row id.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO operations (request_id, role, package_ids, succeeded, error_code, detail, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.Role,
		joinPackageIDs(entry.PackageIDs),
		entry.Succeeded,
		entry.ErrorCode,
		entry.Detail,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("record history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read history entry id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns nothing.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, role, package_ids, succeeded, error_code, detail, started_at, duration_ms
		 FROM operations
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			packageIDs string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.Role,
			&packageIDs,
			&entry.Succeeded,
			&entry.ErrorCode,
			&entry.Detail,
			&startedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.PackageIDs = splitPackageIDs(packageIDs)
		ts, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp %q: %w", startedAt, err)
		}
		entry.StartedAt = ts
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}

// Prune deletes all but the newest keep entries. A non-positive keep leaves
// the journal untouched.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM operations
		 WHERE id NOT IN (SELECT id FROM operations ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned history entries: %w", err)
	}
	return removed, nil
}

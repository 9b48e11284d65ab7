package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertEvent appends an event to the journal and returns its ID.
// A zero CreatedAt is stamped with the current time.
func (s *Store) InsertEvent(e *Event) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO events (package, action, from_version, to_version, status, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		e.Package,
		e.Action,
		e.FromVersion,
		e.ToVersion,
		e.Status,
		e.Message,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, wrapErr(err, "failed to insert event for %s", e.Package)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get event ID: %w", err)
	}
	e.ID = id

	return id, nil
}

// ListEvents returns events newest first. An empty pkg matches every
// package; a limit <= 0 means no limit.
func (s *Store) ListEvents(pkg string, limit int) ([]*Event, error) {
	query := `
		SELECT id, package, action, from_version, to_version, status, message, created_at
		FROM events
		WHERE (? = '' OR package = ?)
		ORDER BY id DESC
	`
	args := []any{pkg, pkg}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr(err, "failed to list events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// LastEvent returns the most recent event for pkg, or nil if there is none.
func (s *Store) LastEvent(pkg string) (*Event, error) {
	query := `
		SELECT id, package, action, from_version, to_version, status, message, created_at
		FROM events
		WHERE package = ?
		ORDER BY id DESC
		LIMIT 1
	`

	e, err := scanEvent(s.db.QueryRow(query, pkg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get last event for %s", pkg)
	}
	return e, nil
}

// CountEvents returns the number of journal entries.
func (s *Store) CountEvents() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, wrapErr(err, "failed to count events")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var e Event
	var createdAt string

	err := row.Scan(
		&e.ID,
		&e.Package,
		&e.Action,
		&e.FromVersion,
		&e.ToVersion,
		&e.Status,
		&e.Message,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for event %d: %w", e.ID, err)
	}

	return &e, nil
}

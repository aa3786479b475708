package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const defaultSearchLimit = 100

// DBLogger records audit events in the account_audit_events table, which the
// accounts migrations create.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// Log inserts an audit event and sets its ID
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadata interface{}
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = encoded
	}

	query := `
		INSERT INTO account_audit_events (
			timestamp, event_type, status, username,
			ip_address, user_agent, request_id,
			method, path, status_code,
			message, error_message, metadata
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13
		) RETURNING id
	`

	err := l.db.QueryRowContext(ctx, query,
		event.Timestamp, event.EventType, event.Status, event.Username,
		event.IPAddress, event.UserAgent, event.RequestID,
		event.Method, event.Path, event.StatusCode,
		event.Message, event.ErrorMessage, metadata,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Search returns matching events, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Username != "" {
		where = append(where, "username = "+arg(filter.Username))
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, t := range filter.EventTypes {
			types[i] = string(t)
		}
		where = append(where, "event_type = ANY("+arg(pq.Array(types))+")")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= "+arg(*filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	query := `
		SELECT id, timestamp, event_type, status, username,
			ip_address, user_agent, request_id,
			method, path, status_code,
			message, error_message, metadata
		FROM account_audit_events`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY timestamp DESC, id DESC LIMIT " + arg(limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event    Event
			metadata []byte
		)
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.EventType, &event.Status, &event.Username,
			&event.IPAddress, &event.UserAgent, &event.RequestID,
			&event.Method, &event.Path, &event.StatusCode,
			&event.Message, &event.ErrorMessage, &metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Close is a no-op; the connection pool belongs to the caller
func (l *DBLogger) Close() error {
	return nil
}

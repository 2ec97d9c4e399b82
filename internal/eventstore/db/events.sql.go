package eventstoredb

import "context"

const eventColumns = `id, aggregate_id, aggregate_type, event_type, data, version, created_at`

const appendEvent = `
INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + eventColumns

type AppendEventParams struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Data          string
	Version       int64
}

func (q *Queries) AppendEvent(ctx context.Context, arg AppendEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, appendEvent,
		arg.ID,
		arg.AggregateID,
		arg.AggregateType,
		arg.EventType,
		arg.Data,
		arg.Version,
	)
	return scanEvent(row)
}

const getLatestVersion = `
SELECT CAST(COALESCE(MAX(version), 0) AS INTEGER) FROM events WHERE aggregate_id = ?`

func (q *Queries) GetLatestVersion(ctx context.Context, aggregateID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getLatestVersion, aggregateID)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const listAllEvents = `
SELECT ` + eventColumns + ` FROM events ORDER BY created_at ASC, rowid ASC`

func (q *Queries) ListAllEvents(ctx context.Context) ([]Event, error) {
	return q.listEvents(ctx, listAllEvents)
}

const listEventsByAggregateID = `
SELECT ` + eventColumns + ` FROM events WHERE aggregate_id = ? ORDER BY version ASC`

func (q *Queries) ListEventsByAggregateID(ctx context.Context, aggregateID string) ([]Event, error) {
	return q.listEvents(ctx, listEventsByAggregateID, aggregateID)
}

const listEventsByType = `
SELECT ` + eventColumns + ` FROM events WHERE event_type = ? ORDER BY created_at ASC, rowid ASC`

func (q *Queries) ListEventsByType(ctx context.Context, eventType string) ([]Event, error) {
	return q.listEvents(ctx, listEventsByType, eventType)
}

const listEventsByTypeSince = `
SELECT ` + eventColumns + ` FROM events WHERE event_type = ? AND created_at > ? ORDER BY created_at ASC, rowid ASC`

type ListEventsByTypeSinceParams struct {
	EventType string
	Since     string
}

func (q *Queries) ListEventsByTypeSince(ctx context.Context, arg ListEventsByTypeSinceParams) ([]Event, error) {
	return q.listEvents(ctx, listEventsByTypeSince, arg.EventType, arg.Since)
}

const listEventsSince = `
SELECT ` + eventColumns + ` FROM events WHERE created_at > ? ORDER BY created_at ASC, rowid ASC`

func (q *Queries) ListEventsSince(ctx context.Context, since string) ([]Event, error) {
	return q.listEvents(ctx, listEventsSince, since)
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (Event, error) {
	var i Event
	var createdAt string
	if err := row.Scan(
		&i.ID,
		&i.AggregateID,
		&i.AggregateType,
		&i.EventType,
		&i.Data,
		&i.Version,
		&createdAt,
	); err != nil {
		return i, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return i, err
	}
	i.CreatedAt = t
	return i, nil
}

func (q *Queries) listEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Event
	for rows.Next() {
		i, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package notificationdb

import "context"

const notificationColumns = `id, user_id, plugin_id, title, message, attributes, is_read, created_at`

const createNotification = `
INSERT INTO notifications (id, user_id, plugin_id, title, message, attributes)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateNotificationParams struct {
	ID         string
	UserID     string
	PluginID   string
	Title      string
	Message    string
	Attributes string
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	attributes := arg.Attributes
	if attributes == "" {
		attributes = "{}"
	}
	_, err := q.db.ExecContext(ctx, createNotification,
		arg.ID,
		arg.UserID,
		arg.PluginID,
		arg.Title,
		arg.Message,
		attributes,
	)
	return err
}

const getNotificationByID = `
SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

func (q *Queries) GetNotificationByID(ctx context.Context, id string) (Notification, error) {
	row := q.db.QueryRowContext(ctx, getNotificationByID, id)
	return scanNotification(row)
}

const listNotificationsByUserID = `
SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListNotificationsByUserID(ctx context.Context, userID string) ([]Notification, error) {
	return q.listNotifications(ctx, listNotificationsByUserID, userID)
}

const listUnreadNotifications = `
SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = ? AND is_read = 0
ORDER BY created_at DESC, rowid DESC`

func (q *Queries) ListUnreadNotifications(ctx context.Context, userID string) ([]Notification, error) {
	return q.listNotifications(ctx, listUnreadNotifications, userID)
}

const markAsRead = `
UPDATE notifications SET is_read = 1 WHERE id = ?`

func (q *Queries) MarkAsRead(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markAsRead, id)
	return err
}

const markAllAsRead = `
UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`

func (q *Queries) MarkAllAsRead(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, markAllAsRead, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var i Notification
	var createdAt string
	if err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PluginID,
		&i.Title,
		&i.Message,
		&i.Attributes,
		&i.IsRead,
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

func (q *Queries) listNotifications(ctx context.Context, query string, args ...interface{}) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		i, err := scanNotification(rows)
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

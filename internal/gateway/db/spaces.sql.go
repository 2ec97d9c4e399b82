package gatewaydb

import "context"

const upsertSpace = `
INSERT INTO spaces (id, display_name, avatar_url)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    display_name = excluded.display_name,
    avatar_url = excluded.avatar_url,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

type UpsertSpaceParams struct {
	ID          string
	DisplayName string
	AvatarUrl   string
}

func (q *Queries) UpsertSpace(ctx context.Context, arg UpsertSpaceParams) error {
	_, err := q.db.ExecContext(ctx, upsertSpace, arg.ID, arg.DisplayName, arg.AvatarUrl)
	return err
}

const getSpaceByID = `
SELECT id, display_name, avatar_url, created_at, updated_at
FROM spaces WHERE id = ?`

func (q *Queries) GetSpaceByID(ctx context.Context, id string) (Space, error) {
	row := q.db.QueryRowContext(ctx, getSpaceByID, id)
	var i Space
	var createdAt, updatedAt string
	if err := row.Scan(
		&i.ID,
		&i.DisplayName,
		&i.AvatarUrl,
		&createdAt,
		&updatedAt,
	); err != nil {
		return i, err
	}
	var err error
	if i.CreatedAt, err = parseTime(createdAt); err != nil {
		return i, err
	}
	if i.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return i, err
	}
	return i, nil
}

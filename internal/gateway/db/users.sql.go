package gatewaydb

import "context"

const createUser = `
INSERT INTO users (id, email, display_name, avatar_url)
VALUES (?, ?, ?, ?)`

type CreateUserParams struct {
	ID          string
	Email       string
	DisplayName string
	AvatarUrl   string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.DisplayName,
		arg.AvatarUrl,
	)
	return err
}

const getUserByID = `
SELECT id, email, display_name, avatar_url, created_at, last_login_at
FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	var createdAt, lastLoginAt string
	if err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.AvatarUrl,
		&createdAt,
		&lastLoginAt,
	); err != nil {
		return i, err
	}
	var err error
	if i.CreatedAt, err = parseTime(createdAt); err != nil {
		return i, err
	}
	if i.LastLoginAt, err = parseTime(lastLoginAt); err != nil {
		return i, err
	}
	return i, nil
}

const updateUserProfile = `
UPDATE users SET display_name = ?, avatar_url = ? WHERE id = ?`

type UpdateUserProfileParams struct {
	ID          string
	DisplayName string
	AvatarUrl   string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx, updateUserProfile, arg.DisplayName, arg.AvatarUrl, arg.ID)
	return err
}

const updateLastLogin = `
UPDATE users SET last_login_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`

func (q *Queries) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, updateLastLogin, id)
	return err
}

package db

import "context"

const createUser = `
INSERT INTO users (id, email, display_name, password_hash)
VALUES (?, ?, ?, ?)
RETURNING id, email, display_name, password_hash, created_at
`

type CreateUserParams struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Email, arg.DisplayName, arg.PasswordHash)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUser = `
SELECT id, email, display_name, password_hash, created_at
FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, display_name, password_hash, created_at
FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const grantPermission = `
INSERT INTO user_permissions (user_id, permission)
VALUES (?, ?)
ON CONFLICT (user_id, permission) DO NOTHING
`

func (q *Queries) GrantPermission(ctx context.Context, userID, permission string) error {
	_, err := q.db.ExecContext(ctx, grantPermission, userID, permission)
	return err
}

const revokePermission = `
DELETE FROM user_permissions WHERE user_id = ? AND permission = ?
`

func (q *Queries) RevokePermission(ctx context.Context, userID, permission string) error {
	_, err := q.db.ExecContext(ctx, revokePermission, userID, permission)
	return err
}

const userHasPermission = `
SELECT COUNT(*) FROM user_permissions WHERE user_id = ? AND permission = ?
`

func (q *Queries) UserHasPermission(ctx context.Context, userID, permission string) (int64, error) {
	row := q.db.QueryRowContext(ctx, userHasPermission, userID, permission)
	var count int64
	err := row.Scan(&count)
	return count, err
}

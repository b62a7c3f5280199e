package db

import "context"

const createTeam = `
INSERT INTO teams (id, name, invite_key)
VALUES (?, ?, ?)
RETURNING id, name, invite_key, created_at
`

type CreateTeamParams struct {
	ID        string
	Name      string
	InviteKey string
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	row := q.db.QueryRowContext(ctx, createTeam, arg.ID, arg.Name, arg.InviteKey)
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.InviteKey, &t.CreatedAt)
	return t, err
}

const getTeamByInviteKey = `
SELECT id, name, invite_key, created_at
FROM teams WHERE invite_key = ?
`

func (q *Queries) GetTeamByInviteKey(ctx context.Context, inviteKey string) (Team, error) {
	row := q.db.QueryRowContext(ctx, getTeamByInviteKey, inviteKey)
	var t Team
	err := row.Scan(&t.ID, &t.Name, &t.InviteKey, &t.CreatedAt)
	return t, err
}

const inviteKeyExists = `
SELECT COUNT(*) FROM teams WHERE invite_key = ?
`

func (q *Queries) InviteKeyExists(ctx context.Context, inviteKey string) (int64, error) {
	row := q.db.QueryRowContext(ctx, inviteKeyExists, inviteKey)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listTeams = `
SELECT id, name, invite_key, created_at FROM teams ORDER BY name
`

func (q *Queries) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := q.db.QueryContext(ctx, listTeams)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.InviteKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

const addTeamMember = `
INSERT INTO team_memberships (team_id, user_id)
VALUES (?, ?)
ON CONFLICT (team_id, user_id) DO NOTHING
`

func (q *Queries) AddTeamMember(ctx context.Context, teamID, userID string) error {
	_, err := q.db.ExecContext(ctx, addTeamMember, teamID, userID)
	return err
}

const removeTeamMember = `
DELETE FROM team_memberships WHERE team_id = ? AND user_id = ?
`

func (q *Queries) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	_, err := q.db.ExecContext(ctx, removeTeamMember, teamID, userID)
	return err
}

const listTeamMemberIDs = `
SELECT user_id FROM team_memberships WHERE team_id = ?
`

func (q *Queries) ListTeamMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listTeamMemberIDs, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

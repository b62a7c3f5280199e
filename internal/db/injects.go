package db

import "context"

const createInject = `
INSERT INTO injects (id, scenario_id, title, description, offset_minutes, status, created_by)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, scenario_id, title, description, offset_minutes, status, created_by, created_at, updated_at
`

type CreateInjectParams struct {
	ID            string
	ScenarioID    string
	Title         string
	Description   string
	OffsetMinutes int64
	Status        string
	CreatedBy     string
}

func (q *Queries) CreateInject(ctx context.Context, arg CreateInjectParams) (Inject, error) {
	row := q.db.QueryRowContext(ctx, createInject,
		arg.ID, arg.ScenarioID, arg.Title, arg.Description, arg.OffsetMinutes, arg.Status, arg.CreatedBy)
	return scanInject(row)
}

const getInject = `
SELECT id, scenario_id, title, description, offset_minutes, status, created_by, created_at, updated_at
FROM injects WHERE id = ?
`

func (q *Queries) GetInject(ctx context.Context, id string) (Inject, error) {
	return scanInject(q.db.QueryRowContext(ctx, getInject, id))
}

const listInjectsByScenario = `
SELECT id, scenario_id, title, description, offset_minutes, status, created_by, created_at, updated_at
FROM injects WHERE scenario_id = ?
ORDER BY offset_minutes, created_at
`

func (q *Queries) ListInjectsByScenario(ctx context.Context, scenarioID string) ([]Inject, error) {
	rows, err := q.db.QueryContext(ctx, listInjectsByScenario, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var injects []Inject
	for rows.Next() {
		var in Inject
		if err := rows.Scan(&in.ID, &in.ScenarioID, &in.Title, &in.Description,
			&in.OffsetMinutes, &in.Status, &in.CreatedBy, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, err
		}
		injects = append(injects, in)
	}
	return injects, rows.Err()
}

const updateInject = `
UPDATE injects
SET title = ?, description = ?, offset_minutes = ?, status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, scenario_id, title, description, offset_minutes, status, created_by, created_at, updated_at
`

type UpdateInjectParams struct {
	ID            string
	Title         string
	Description   string
	OffsetMinutes int64
	Status        string
}

func (q *Queries) UpdateInject(ctx context.Context, arg UpdateInjectParams) (Inject, error) {
	row := q.db.QueryRowContext(ctx, updateInject,
		arg.Title, arg.Description, arg.OffsetMinutes, arg.Status, arg.ID)
	return scanInject(row)
}

const deleteInject = `
DELETE FROM injects WHERE id = ?
`

func (q *Queries) DeleteInject(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteInject, id)
	return err
}

func scanInject(row rowScanner) (Inject, error) {
	var in Inject
	err := row.Scan(&in.ID, &in.ScenarioID, &in.Title, &in.Description,
		&in.OffsetMinutes, &in.Status, &in.CreatedBy, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

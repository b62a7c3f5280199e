package db

import "context"

const createScenario = `
INSERT INTO scenarios (id, name, description, status, is_template, created_by)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, description, status, is_template, created_by, created_at, updated_at
`

type CreateScenarioParams struct {
	ID          string
	Name        string
	Description string
	Status      string
	IsTemplate  bool
	CreatedBy   string
}

func (q *Queries) CreateScenario(ctx context.Context, arg CreateScenarioParams) (Scenario, error) {
	row := q.db.QueryRowContext(ctx, createScenario,
		arg.ID, arg.Name, arg.Description, arg.Status, arg.IsTemplate, arg.CreatedBy)
	return scanScenario(row)
}

const getScenario = `
SELECT id, name, description, status, is_template, created_by, created_at, updated_at
FROM scenarios WHERE id = ?
`

func (q *Queries) GetScenario(ctx context.Context, id string) (Scenario, error) {
	return scanScenario(q.db.QueryRowContext(ctx, getScenario, id))
}

const updateScenario = `
UPDATE scenarios
SET name = ?, description = ?, status = ?, is_template = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, name, description, status, is_template, created_by, created_at, updated_at
`

type UpdateScenarioParams struct {
	ID          string
	Name        string
	Description string
	Status      string
	IsTemplate  bool
}

func (q *Queries) UpdateScenario(ctx context.Context, arg UpdateScenarioParams) (Scenario, error) {
	row := q.db.QueryRowContext(ctx, updateScenario,
		arg.Name, arg.Description, arg.Status, arg.IsTemplate, arg.ID)
	return scanScenario(row)
}

const deleteScenario = `
DELETE FROM scenarios WHERE id = ?
`

func (q *Queries) DeleteScenario(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteScenario, id)
	return err
}

const linkScenarioTeam = `
INSERT INTO scenario_teams (scenario_id, team_id)
VALUES (?, ?)
ON CONFLICT (scenario_id, team_id) DO NOTHING
`

func (q *Queries) LinkScenarioTeam(ctx context.Context, scenarioID, teamID string) error {
	_, err := q.db.ExecContext(ctx, linkScenarioTeam, scenarioID, teamID)
	return err
}

const unlinkScenarioTeam = `
DELETE FROM scenario_teams WHERE scenario_id = ? AND team_id = ?
`

func (q *Queries) UnlinkScenarioTeam(ctx context.Context, scenarioID, teamID string) error {
	_, err := q.db.ExecContext(ctx, unlinkScenarioTeam, scenarioID, teamID)
	return err
}

// listActiveScenarioIDs returns every non-archived scenario id, the
// full-rights view of the platform.
const listActiveScenarioIDs = `
SELECT id FROM scenarios WHERE status != 'archived'
`

func (q *Queries) ListActiveScenarioIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listActiveScenarioIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// listVisibleScenarioIDs returns the non-archived scenarios a regular user
// can see: linked to one of their teams, created by them, or a template.
const listVisibleScenarioIDs = `
SELECT DISTINCT s.id
FROM scenarios s
LEFT JOIN scenario_teams st ON st.scenario_id = s.id
LEFT JOIN team_memberships tm ON tm.team_id = st.team_id AND tm.user_id = ?1
WHERE s.status != 'archived'
  AND (tm.user_id IS NOT NULL OR s.created_by = ?1 OR s.is_template = 1)
`

func (q *Queries) ListVisibleScenarioIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listVisibleScenarioIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

const listScenariosByIDs = `
SELECT id, name, description, status, is_template, created_by, created_at, updated_at
FROM scenarios WHERE id IN (SELECT value FROM json_each(?))
ORDER BY updated_at DESC
`

func (q *Queries) ListScenariosByIDs(ctx context.Context, idsJSON string) ([]Scenario, error) {
	rows, err := q.db.QueryContext(ctx, listScenariosByIDs, idsJSON)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []Scenario
	for rows.Next() {
		var s Scenario
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.IsTemplate,
			&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (Scenario, error) {
	var s Scenario
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.IsTemplate,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

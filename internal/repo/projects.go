package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ventureos/internal/domain"
)

const projectColumns = `id,client_id,contract_id,name,status,progress,is_frozen,created_at,updated_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var clientID, contractID sql.NullString
	var frozen int
	err := scan(&p.ID, &clientID, &contractID, &p.Name, &p.Status, &p.Progress, &frozen, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if clientID.Valid {
		p.ClientID = &clientID.String
	}
	if contractID.Valid {
		p.ContractID = &contractID.String
	}
	p.IsFrozen = frozen != 0
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, nullableStringPtr(p.ClientID), nullableStringPtr(p.ContractID), p.Name, p.Status, p.Progress, boolToInt(p.IsFrozen), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

type ProjectFilters struct {
	Statuses []string
	Limit    int
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY updated_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

type ProjectUpdate struct {
	Name       *string
	Status     *string
	Progress   *int
	IsFrozen   *bool
	ClientID   *string
	ContractID *string
}

func (r Repo) UpdateProject(ctx context.Context, id string, u ProjectUpdate, now string) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *u.Status)
	}
	if u.Progress != nil {
		fields = append(fields, "progress=?")
		args = append(args, *u.Progress)
	}
	if u.IsFrozen != nil {
		fields = append(fields, "is_frozen=?")
		args = append(args, boolToInt(*u.IsFrozen))
	}
	if u.ClientID != nil {
		fields = append(fields, "client_id=?")
		args = append(args, nullable(*u.ClientID))
	}
	if u.ContractID != nil {
		fields = append(fields, "contract_id=?")
		args = append(args, nullable(*u.ContractID))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProject(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ProjectContractEndDates returns contract end dates keyed by project id for
// the given candidate set.
func (r Repo) ProjectContractEndDates(ctx context.Context, projectIDs []string) (map[string]string, error) {
	res := map[string]string{}
	if len(projectIDs) == 0 {
		return res, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projectIDs)), ",")
	query := `SELECT p.id, c.end_date FROM projects p JOIN contracts c ON c.id=p.contract_id WHERE p.id IN (` + placeholders + `) AND c.end_date IS NOT NULL`
	args := make([]any, 0, len(projectIDs))
	for _, id := range projectIDs {
		args = append(args, id)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, end string
		if err := rows.Scan(&id, &end); err != nil {
			return nil, err
		}
		res[id] = end
	}
	return res, nil
}

// --- lifecycles ---

func (r Repo) InsertLifecycle(ctx context.Context, l domain.Lifecycle) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO lifecycles(id,project_id,current_stage,stage_history_json,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		l.ID, l.ProjectID, l.CurrentStage, nullable(l.StageHistoryJSON), l.CreatedAt, l.UpdatedAt)
	return err
}

func (r Repo) GetLifecycleByProject(ctx context.Context, projectID string) (domain.Lifecycle, error) {
	var l domain.Lifecycle
	var history sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,current_stage,stage_history_json,created_at,updated_at FROM lifecycles WHERE project_id=?`, projectID).
		Scan(&l.ID, &l.ProjectID, &l.CurrentStage, &history, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	if history.Valid {
		l.StageHistoryJSON = history.String
	}
	return l, nil
}

func (r Repo) UpdateLifecycleStage(ctx context.Context, id, stage, historyJSON, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE lifecycles SET current_stage=?, stage_history_json=?, updated_at=? WHERE id=?`, stage, nullable(historyJSON), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountProjectLifecycles(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM lifecycles WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

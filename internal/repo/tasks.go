package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ventureos/internal/domain"
)

const taskColumns = `id,project_id,sprint_id,title,description,status,priority,due_date,completed_at,is_current,story_points,time_spent_minutes,skip_count,subtasks_json,agent_context_json,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var projectID, sprintID, description, dueDate, completedAt, subtasks, agentCtx sql.NullString
	var current int
	err := scan(&t.ID, &projectID, &sprintID, &t.Title, &description, &t.Status, &t.Priority, &dueDate, &completedAt,
		&current, &t.StoryPoints, &t.TimeSpentMinutes, &t.SkipCount, &subtasks, &agentCtx, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if projectID.Valid {
		t.ProjectID = &projectID.String
	}
	if sprintID.Valid {
		t.SprintID = &sprintID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	if subtasks.Valid {
		t.SubtasksJSON = &subtasks.String
	}
	if agentCtx.Valid {
		t.AgentContextJSON = &agentCtx.String
	}
	t.IsCurrent = current != 0
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.ProjectID), nullableStringPtr(t.SprintID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.CompletedAt), boolToInt(t.IsCurrent), t.StoryPoints, t.TimeSpentMinutes,
		t.SkipCount, nullableStringPtr(t.SubtasksJSON), nullableStringPtr(t.AgentContextJSON), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET project_id=?, sprint_id=?, title=?, description=?, status=?, priority=?, due_date=?, completed_at=?, is_current=?, story_points=?, time_spent_minutes=?, skip_count=?, subtasks_json=?, agent_context_json=?, updated_at=? WHERE id=?`,
		nullableStringPtr(t.ProjectID), nullableStringPtr(t.SprintID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.DueDate), nullableStringPtr(t.CompletedAt), boolToInt(t.IsCurrent), t.StoryPoints, t.TimeSpentMinutes,
		t.SkipCount, nullableStringPtr(t.SubtasksJSON), nullableStringPtr(t.AgentContextJSON), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	ProjectID string
	SprintID  string
	Status    string
	Limit     int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.SprintID != "" {
		clauses = append(clauses, "sprint_id=?")
		args = append(args, f.SprintID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// OpenTasksByProject returns non-Done tasks for the candidate set, keyed by
// project id.
func (r Repo) OpenTasksByProject(ctx context.Context, projectIDs []string) (map[string][]domain.Task, error) {
	res := map[string][]domain.Task{}
	if len(projectIDs) == 0 {
		return res, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projectIDs)), ",")
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id IN (` + placeholders + `) AND status != ?`
	args := make([]any, 0, len(projectIDs)+1)
	for _, id := range projectIDs {
		args = append(args, id)
	}
	args = append(args, domain.TaskDone)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		if t.ProjectID != nil {
			res[*t.ProjectID] = append(res[*t.ProjectID], t)
		}
	}
	return res, nil
}

// ClearCurrentTasks clears is_current on every task in a project. Paired
// with a follow-up set on a single task; the two statements are not atomic.
func (r Repo) ClearCurrentTasks(ctx context.Context, projectID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE tasks SET is_current=0 WHERE project_id=?`, projectID)
	return err
}

func (r Repo) SetTaskCurrent(ctx context.Context, id string, current bool, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET is_current=?, updated_at=? WHERE id=?`, boolToInt(current), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sprints ---

const sprintColumns = `id,project_id,sprint_number,goal,status,started_at,planned_end_at,scope_changes,created_at`

func scanSprint(scan func(dest ...any) error) (domain.Sprint, error) {
	var s domain.Sprint
	var goal, plannedEnd sql.NullString
	err := scan(&s.ID, &s.ProjectID, &s.SprintNumber, &goal, &s.Status, &s.StartedAt, &plannedEnd, &s.ScopeChanges, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	if goal.Valid {
		s.Goal = goal.String
	}
	if plannedEnd.Valid {
		s.PlannedEndAt = &plannedEnd.String
	}
	return s, nil
}

func (r Repo) InsertSprint(ctx context.Context, s domain.Sprint) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sprints(`+sprintColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ProjectID, s.SprintNumber, nullable(s.Goal), s.Status, s.StartedAt, nullableStringPtr(s.PlannedEndAt), s.ScopeChanges, s.CreatedAt)
	return err
}

func (r Repo) GetSprint(ctx context.Context, id string) (domain.Sprint, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id=?`, id)
	s, err := scanSprint(row.Scan)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListSprints(ctx context.Context, projectID string) ([]domain.Sprint, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id=? ORDER BY sprint_number DESC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sprint
	for rows.Next() {
		s, err := scanSprint(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

// ActiveSprint returns the most recently started active sprint for a project,
// or nil when none is running.
func (r Repo) ActiveSprint(ctx context.Context, projectID string) (*domain.Sprint, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id=? AND status=? ORDER BY started_at DESC LIMIT 1`, projectID, domain.SprintActive)
	s, err := scanSprint(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r Repo) UpdateSprintStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE sprints SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) IncrementScopeChanges(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE sprints SET scope_changes=scope_changes+1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) NextSprintNumber(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(sprint_number),0)+1 FROM sprints WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

// --- focus sessions ---

func (r Repo) InsertFocusSession(ctx context.Context, s domain.FocusSession) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO focus_sessions(id,project_id,task_id,started_at,ended_at,duration_minutes) VALUES (?,?,?,?,?,?)`,
		s.ID, s.ProjectID, nullableStringPtr(s.TaskID), s.StartedAt, nullableStringPtr(s.EndedAt), s.DurationMinutes)
	return err
}

func (r Repo) GetFocusSession(ctx context.Context, id string) (domain.FocusSession, error) {
	var s domain.FocusSession
	var taskID, endedAt sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,task_id,started_at,ended_at,duration_minutes FROM focus_sessions WHERE id=?`, id).
		Scan(&s.ID, &s.ProjectID, &taskID, &s.StartedAt, &endedAt, &s.DurationMinutes)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if taskID.Valid {
		s.TaskID = &taskID.String
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.String
	}
	return s, nil
}

func (r Repo) EndFocusSession(ctx context.Context, id, endedAt string, durationMinutes int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE focus_sessions SET ended_at=?, duration_minutes=? WHERE id=?`, endedAt, durationMinutes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestFocusSessions returns the most recent session start per project for
// the candidate set.
func (r Repo) LatestFocusSessions(ctx context.Context, projectIDs []string) (map[string]string, error) {
	res := map[string]string{}
	if len(projectIDs) == 0 {
		return res, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projectIDs)), ",")
	query := fmt.Sprintf(`SELECT project_id, MAX(started_at) FROM focus_sessions WHERE project_id IN (%s) GROUP BY project_id`, placeholders)
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
		var id, started string
		if err := rows.Scan(&id, &started); err != nil {
			return nil, err
		}
		res[id] = started
	}
	return res, nil
}

package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ventureos/internal/domain"
)

// --- deployments ---

func scanDeployment(scan func(dest ...any) error) (domain.Deployment, error) {
	var d domain.Deployment
	var url, deployedAt sql.NullString
	err := scan(&d.ID, &d.ProjectID, &d.Name, &d.Environment, &d.Status, &url, &deployedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	if url.Valid {
		d.URL = url.String
	}
	if deployedAt.Valid {
		d.DeployedAt = &deployedAt.String
	}
	return d, nil
}

func (r Repo) InsertDeployment(ctx context.Context, d domain.Deployment) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO deployments(id,project_id,name,environment,status,url,deployed_at,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		d.ID, d.ProjectID, d.Name, d.Environment, d.Status, nullable(d.URL), nullableStringPtr(d.DeployedAt), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDeployment(ctx context.Context, id string) (domain.Deployment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,project_id,name,environment,status,url,deployed_at,created_at,updated_at FROM deployments WHERE id=?`, id)
	d, err := scanDeployment(row.Scan)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) ListDeployments(ctx context.Context, projectID string) ([]domain.Deployment, error) {
	query := `SELECT id,project_id,name,environment,status,url,deployed_at,created_at,updated_at FROM deployments`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	query += ` ORDER BY updated_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}

func (r Repo) UpdateDeploymentStatus(ctx context.Context, id, status string, deployedAt *string, now string) error {
	var (
		fields = []string{"status=?"}
		args   = []any{status}
	)
	if deployedAt != nil {
		fields = append(fields, "deployed_at=?")
		args = append(args, *deployedAt)
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE deployments SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- agent reports ---

func (r Repo) InsertAgentReport(ctx context.Context, rep domain.AgentReport) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO agent_reports(id,client_id,title,body,severity,created_at) VALUES (?,?,?,?,?,?)`,
		rep.ID, nullableStringPtr(rep.ClientID), rep.Title, nullable(rep.Body), rep.Severity, rep.CreatedAt)
	return err
}

func (r Repo) ListAgentReports(ctx context.Context, limit int) ([]domain.AgentReport, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,client_id,title,body,severity,created_at FROM agent_reports ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AgentReport
	for rows.Next() {
		var rep domain.AgentReport
		var clientID, body sql.NullString
		if err := rows.Scan(&rep.ID, &clientID, &rep.Title, &body, &rep.Severity, &rep.CreatedAt); err != nil {
			return nil, err
		}
		if clientID.Valid {
			rep.ClientID = &clientID.String
		}
		if body.Valid {
			rep.Body = body.String
		}
		res = append(res, rep)
	}
	return res, nil
}

// --- audit logs ---

type AuditFilters struct {
	EntityKind string
	EntityID   string
	Severity   string
	Limit      int
	Cursor     int64
}

func (r Repo) ListAuditLogs(ctx context.Context, f AuditFilters) ([]domain.AuditLog, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, f.Severity)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,entity_kind,entity_id,action,severity,message,actor_id,created_at FROM audit_logs %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryAuditLogs(ctx, query, args...)
}

// AuditLogsAfter returns rows with IDs greater than the cursor in ascending
// order, for webhook tailing.
func (r Repo) AuditLogsAfter(ctx context.Context, limit int, cursor int64) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryAuditLogs(ctx, `SELECT id,entity_kind,entity_id,action,severity,message,actor_id,created_at FROM audit_logs WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LatestAuditLogID returns the most recent audit log ID.
func (r Repo) LatestAuditLogID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM audit_logs`).Scan(&id)
	return id, err
}

func (r Repo) queryAuditLogs(ctx context.Context, query string, args ...any) ([]domain.AuditLog, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var entityID, message sql.NullString
		if err := rows.Scan(&a.ID, &a.EntityKind, &entityID, &a.Action, &a.Severity, &message, &a.ActorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		if entityID.Valid {
			a.EntityID = entityID.String
		}
		if message.Valid {
			a.Message = message.String
		}
		res = append(res, a)
	}
	return res, nil
}

// --- system config ---

func (r Repo) UpsertSystemConfig(ctx context.Context, key, valueJSON, now string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO system_config(key,value_json,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value_json=excluded.value_json, updated_at=excluded.updated_at`, key, valueJSON, now)
	return err
}

func (r Repo) GetSystemConfig(ctx context.Context, key string) (domain.SystemConfig, error) {
	var c domain.SystemConfig
	err := r.DB.QueryRowContext(ctx, `SELECT key,value_json,updated_at FROM system_config WHERE key=?`, key).
		Scan(&c.Key, &c.ValueJSON, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListSystemConfig(ctx context.Context) ([]domain.SystemConfig, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key,value_json,updated_at FROM system_config ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SystemConfig
	for rows.Next() {
		var c domain.SystemConfig
		if err := rows.Scan(&c.Key, &c.ValueJSON, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ventureos/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// --- clients ---

func (r Repo) InsertClient(ctx context.Context, c domain.Client) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO clients(id,name,company,email,health_score,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Company), nullable(c.Email), c.HealthScore, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	var c domain.Client
	var company, email sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,company,email,health_score,created_at,updated_at FROM clients WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &company, &email, &c.HealthScore, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if company.Valid {
		c.Company = company.String
	}
	if email.Valid {
		c.Email = email.String
	}
	return c, nil
}

func (r Repo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,company,email,health_score,created_at,updated_at FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		var c domain.Client
		var company, email sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &company, &email, &c.HealthScore, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if company.Valid {
			c.Company = company.String
		}
		if email.Valid {
			c.Email = email.String
		}
		res = append(res, c)
	}
	return res, nil
}

type ClientUpdate struct {
	Name        *string
	Company     *string
	Email       *string
	HealthScore *int
}

func (r Repo) UpdateClient(ctx context.Context, id string, u ClientUpdate, now string) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Company != nil {
		fields = append(fields, "company=?")
		args = append(args, nullable(*u.Company))
	}
	if u.Email != nil {
		fields = append(fields, "email=?")
		args = append(args, nullable(*u.Email))
	}
	if u.HealthScore != nil {
		fields = append(fields, "health_score=?")
		args = append(args, *u.HealthScore)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE clients SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetClientHealth writes the score clamped to [0,100].
func (r Repo) SetClientHealth(ctx context.Context, id string, score int, now string) error {
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE clients SET health_score=?, updated_at=? WHERE id=?`, score, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteClient(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

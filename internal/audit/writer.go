package audit

import (
	"context"
	"database/sql"
	"time"
)

const (
	SeverityCritical = "Critical"
	SeverityWarning  = "Warning"
	SeverityInfo     = "Info"
)

// Writer appends audit log rows. Entries are append-only; nothing in the
// system updates or deletes them.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Entry struct {
	EntityKind string
	EntityID   string
	Action     string
	Severity   string
	Message    string
	ActorID    string
}

func (w Writer) Append(ctx context.Context, e Entry) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if e.ActorID == "" {
		e.ActorID = "system"
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := w.DB.ExecContext(ctx, `INSERT INTO audit_logs(entity_kind,entity_id,action,severity,message,actor_id,created_at) VALUES (?,?,?,?,?,?,?)`,
		e.EntityKind, nullable(e.EntityID), e.Action, e.Severity, nullable(e.Message), e.ActorID, ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

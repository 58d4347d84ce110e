package migrate

import (
	"testing"

	"ventureos/internal/db"
)

func TestMigrateIsRerunnable(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("second run: %v", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected embedded migrations")
	}
	want := migrations[len(migrations)-1].version

	var got int
	if err := conn.QueryRow(`SELECT version FROM schema_version`).Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("expected schema version %d, got %d", want, got)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		t.Fatalf("expected tasks table: %v", err)
	}
}

package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteCreateAndPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	later := New("42", "100", "stretch", time.Hour, now)
	sooner := New("43", "100", "drink water", time.Minute, now)
	for _, r := range []Reminder{later, sooner} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := store.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(pending))
	}
	if pending[0].ID != sooner.ID {
		t.Fatalf("expected soonest first, got %q", pending[0].Text)
	}
	if !pending[1].TriggerTime.Equal(later.TriggerTime) {
		t.Fatalf("trigger time changed: %s vs %s", pending[1].TriggerTime, later.TriggerTime)
	}
}

func TestSQLitePopDue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store.Create(ctx, New("1", "c", "past", -time.Minute, now))
	store.Create(ctx, New("2", "c", "exact", 0, now))
	store.Create(ctx, New("3", "c", "future", time.Minute, now))

	due, err := store.PopDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due, got %d", len(due))
	}
	if due[0].Text != "past" || due[1].Text != "exact" {
		t.Fatalf("unexpected order: %q, %q", due[0].Text, due[1].Text)
	}

	again, err := store.PopDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("expected drained store, got %d", len(again))
	}

	pending, _ := store.Pending(ctx)
	if len(pending) != 1 || pending[0].Text != "future" {
		t.Fatalf("expected only future reminder left, got %+v", pending)
	}
}

func TestSQLiteReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	store.Create(ctx, New("7", "9", "persist me", time.Hour, time.Now()))
	store.Close()

	store, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pending, err := store.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Text != "persist me" {
		t.Fatalf("expected reminder to survive reopen, got %+v", pending)
	}

	v, err := store.schemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Fatalf("schema version = %d, want %d", v, len(migrations))
	}
	var rows int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != len(migrations) {
		t.Fatalf("reopen should not re-record migrations, got %d rows", rows)
	}
}

func TestSQLiteMigratesFromOlderVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`DROP INDEX idx_reminders_trigger`,
		`DELETE FROM schema_version WHERE version > 1`,
	} {
		if _, err := store.db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	store, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var n int
	if err := store.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_reminders_trigger'`,
	).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatal("index migration was not reapplied")
	}
	if v, _ := store.schemaVersion(); v != len(migrations) {
		t.Fatalf("schema version = %d", v)
	}
}

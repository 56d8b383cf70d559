package reminder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. PopDue runs in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// One writer at a time; the poller and creators serialize here.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate applies the migrations newer than the recorded schema version.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return err
	}
	current, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}

func (s *SQLiteStore) Create(ctx context.Context, r Reminder) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, channel_id, reminder_text, trigger_us) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.ChannelID, r.Text, r.TriggerTime.UnixMicro(),
	)
	return err
}

func (s *SQLiteStore) PopDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cutoff := now.UnixMicro()
	due, err := queryReminders(ctx, tx,
		`SELECT id, user_id, channel_id, reminder_text, trigger_us FROM reminders
		WHERE trigger_us <= ? ORDER BY trigger_us ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	if len(due) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE trigger_us <= ?`, cutoff); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return due, nil
}

func (s *SQLiteStore) Pending(ctx context.Context) ([]Reminder, error) {
	return queryReminders(ctx, s.db,
		`SELECT id, user_id, channel_id, reminder_text, trigger_us FROM reminders ORDER BY trigger_us ASC`)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryReminders(ctx context.Context, q querier, query string, args ...any) ([]Reminder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		var triggerUS int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChannelID, &r.Text, &triggerUS); err != nil {
			return nil, err
		}
		r.TriggerTime = time.UnixMicro(triggerUS).UTC()
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

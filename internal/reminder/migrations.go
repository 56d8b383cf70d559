package reminder

// migrations is the ordered list of SQL migration statements. Migration i
// brings the schema to version i+1; append new ones, never edit old ones.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		reminder_text TEXT NOT NULL,
		trigger_us INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_trigger ON reminders(trigger_us)`,
}

const schemaVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
)`

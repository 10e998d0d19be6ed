package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations holds the ordered schema migrations per dialect.
// Each migration's version must be sequential starting from 1.
var migrations = map[string][]migration{
	dialectSQLite: {
		{
			version: 1,
			sql: `
CREATE TABLE IF NOT EXISTS waste_templates (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	hazard_level TEXT NOT NULL DEFAULT 'low',
	category     TEXT NOT NULL DEFAULT '',
	color        TEXT NOT NULL DEFAULT '',
	icon         TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS waste_items (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	template_id TEXT REFERENCES waste_templates(id) ON DELETE SET NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS disposal_schedules (
	id                  TEXT PRIMARY KEY,
	waste_item_id       TEXT NOT NULL REFERENCES waste_items(id) ON DELETE CASCADE,
	scheduled_date      DATETIME NOT NULL,
	actual_date         DATETIME,
	completed_at        DATETIME,
	completed_by        TEXT REFERENCES users(id) ON DELETE SET NULL,
	assigned_to         TEXT REFERENCES users(id) ON DELETE SET NULL,
	status              TEXT NOT NULL DEFAULT 'scheduled'
		CHECK(status IN ('scheduled', 'rescheduled', 'completed', 'cancelled', 'overdue')),
	priority            TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	is_recurring        INTEGER NOT NULL DEFAULT 0 CHECK(is_recurring IN (0, 1)),
	recurrence_pattern  TEXT
		CHECK(recurrence_pattern IS NULL OR recurrence_pattern IN
			('daily', 'weekly', 'biweekly', 'monthly', 'quarterly', 'yearly')),
	recurrence_end_date DATETIME,
	reminder_dates      TEXT NOT NULL DEFAULT '[]',
	notes               TEXT,
	disposal_method     TEXT,
	quantity            REAL,
	unit                TEXT,
	created_by          TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL,
	CHECK ((is_recurring = 1) = (recurrence_pattern IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_schedules_scheduled_date ON disposal_schedules(scheduled_date);
CREATE INDEX IF NOT EXISTS idx_schedules_status ON disposal_schedules(status);
CREATE INDEX IF NOT EXISTS idx_schedules_waste_item ON disposal_schedules(waste_item_id);
CREATE INDEX IF NOT EXISTS idx_schedules_assigned_to ON disposal_schedules(assigned_to);
CREATE INDEX IF NOT EXISTS idx_waste_items_template ON waste_items(template_id);

INSERT INTO schema_version (version) VALUES (1);
`,
		},
		{
			version: 2,
			sql: `
CREATE INDEX IF NOT EXISTS idx_schedules_status_date
	ON disposal_schedules(status, scheduled_date);

INSERT INTO schema_version (version) VALUES (2);
`,
		},
	},
	dialectPostgres: {
		{
			version: 1,
			sql: `
CREATE TABLE IF NOT EXISTS waste_templates (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	hazard_level TEXT NOT NULL DEFAULT 'low',
	category     TEXT NOT NULL DEFAULT '',
	color        TEXT NOT NULL DEFAULT '',
	icon         TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS waste_items (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	template_id TEXT REFERENCES waste_templates(id) ON DELETE SET NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS disposal_schedules (
	id                  TEXT PRIMARY KEY,
	waste_item_id       TEXT NOT NULL REFERENCES waste_items(id) ON DELETE CASCADE,
	scheduled_date      TIMESTAMPTZ NOT NULL,
	actual_date         TIMESTAMPTZ,
	completed_at        TIMESTAMPTZ,
	completed_by        TEXT REFERENCES users(id) ON DELETE SET NULL,
	assigned_to         TEXT REFERENCES users(id) ON DELETE SET NULL,
	status              TEXT NOT NULL DEFAULT 'scheduled'
		CHECK(status IN ('scheduled', 'rescheduled', 'completed', 'cancelled', 'overdue')),
	priority            TEXT NOT NULL DEFAULT 'medium'
		CHECK(priority IN ('low', 'medium', 'high', 'critical')),
	is_recurring        INTEGER NOT NULL DEFAULT 0 CHECK(is_recurring IN (0, 1)),
	recurrence_pattern  TEXT
		CHECK(recurrence_pattern IS NULL OR recurrence_pattern IN
			('daily', 'weekly', 'biweekly', 'monthly', 'quarterly', 'yearly')),
	recurrence_end_date TIMESTAMPTZ,
	reminder_dates      TEXT NOT NULL DEFAULT '[]',
	notes               TEXT,
	disposal_method     TEXT,
	quantity            DOUBLE PRECISION,
	unit                TEXT,
	created_by          TEXT REFERENCES users(id) ON DELETE SET NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	CHECK ((is_recurring = 1) = (recurrence_pattern IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_schedules_scheduled_date ON disposal_schedules(scheduled_date);
CREATE INDEX IF NOT EXISTS idx_schedules_status ON disposal_schedules(status);
CREATE INDEX IF NOT EXISTS idx_schedules_waste_item ON disposal_schedules(waste_item_id);
CREATE INDEX IF NOT EXISTS idx_schedules_assigned_to ON disposal_schedules(assigned_to);
CREATE INDEX IF NOT EXISTS idx_waste_items_template ON waste_items(template_id);

INSERT INTO schema_version (version) VALUES (1);
`,
		},
		{
			version: 2,
			sql: `
CREATE INDEX IF NOT EXISTS idx_schedules_status_date
	ON disposal_schedules(status, scheduled_date);

INSERT INTO schema_version (version) VALUES (2);
`,
		},
	},
}

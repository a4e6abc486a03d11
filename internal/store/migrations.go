package store

// migrations are applied in order; each entry is one schema version.
// Never edit an applied migration, append a new one instead.
var migrations = []string{
	// v1: initial schema
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	CREATE TABLE groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE group_members (
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		PRIMARY KEY (group_id, user_id)
	);

	CREATE TABLE tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		vicinity TEXT NOT NULL DEFAULT '',
		latitude REAL,
		longitude REAL,
		description TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		group_id TEXT REFERENCES groups(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		CHECK ((user_id IS NULL) != (group_id IS NULL))
	);

	CREATE INDEX idx_tasks_user ON tasks(user_id);
	CREATE INDEX idx_tasks_group ON tasks(group_id);
	CREATE INDEX idx_members_user ON group_members(user_id);`,
}

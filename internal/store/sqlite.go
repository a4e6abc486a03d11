package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, zero CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
// The database file is created with 0600 permissions and its parent directory
// with 0700. Pass ":memory:" for an ephemeral database (tests).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return nil, fmt.Errorf("creating database file: %w", err)
			}
			_ = f.Close()
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		slog.Info("applying migration", "version", i+1)
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *SQLiteStore) CreateUser() (*UserRecord, error) {
	u := &UserRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.Exec("INSERT INTO users (id, created_at) VALUES (?, ?)",
		u.ID, formatTime(u.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(id string) (*UserRecord, error) {
	var u UserRecord
	var createdAt string
	err := s.db.QueryRow("SELECT id, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// GetUserGraph returns the user's full view: direct tasks plus every group
// membership hydrated with that group's tasks and member list. This is the
// shape pushed to subscribers, so a client never needs a follow-up fetch.
func (s *SQLiteStore) GetUserGraph(id string) (*MemberSnapshot, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.ListUserTasks(u.ID)
	if err != nil {
		return nil, err
	}

	groups, err := s.ListUserGroups(u.ID)
	if err != nil {
		return nil, err
	}

	graphs := make([]GroupGraph, 0, len(groups))
	for _, g := range groups {
		gg, err := s.GetGroupGraph(g.ID)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, *gg)
	}

	return &MemberSnapshot{UserID: u.ID, Tasks: tasks, Groups: graphs}, nil
}

// --- Tasks ---

func (s *SQLiteStore) CreateTask(t *TaskRecord) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	_, err := s.db.Exec(`INSERT INTO tasks (id, name, location, vicinity, latitude, longitude,
		description, completed, user_id, group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Location, t.Vicinity, nullFloat(t.Latitude), nullFloat(t.Longitude),
		t.Description, boolToInt(t.Completed), nullString(t.UserID), nullString(t.GroupID),
		formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(id string) (*TaskRecord, error) {
	row := s.db.QueryRow(`SELECT id, name, location, vicinity, latitude, longitude,
		description, completed, user_id, group_id, created_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTask(t *TaskRecord) error {
	res, err := s.db.Exec(`UPDATE tasks SET
		name = ?, location = ?, vicinity = ?, latitude = ?, longitude = ?,
		description = ?, completed = ?
		WHERE id = ?`,
		t.Name, t.Location, t.Vicinity, nullFloat(t.Latitude), nullFloat(t.Longitude),
		t.Description, boolToInt(t.Completed), t.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %q: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListUserTasks(userID string) ([]TaskRecord, error) {
	return s.listTasks("user_id", userID)
}

func (s *SQLiteStore) ListGroupTasks(groupID string) ([]TaskRecord, error) {
	return s.listTasks("group_id", groupID)
}

func (s *SQLiteStore) listTasks(ownerCol, ownerID string) ([]TaskRecord, error) {
	rows, err := s.db.Query(`SELECT id, name, location, vicinity, latitude, longitude,
		description, completed, user_id, group_id, created_at
		FROM tasks WHERE `+ownerCol+` = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []TaskRecord{}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// --- Groups ---

func (s *SQLiteStore) CreateGroup(name, creatorID string) (*GroupRecord, error) {
	if _, err := s.GetUser(creatorID); err != nil {
		return nil, err
	}

	g := &GroupRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.Exec("INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)",
		g.ID, g.Name, formatTime(g.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting group: %w", err)
	}

	if err := s.AddMember(g.ID, creatorID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SQLiteStore) AddMember(groupID, userID string) error {
	if _, err := s.GetGroup(groupID); err != nil {
		return err
	}
	if _, err := s.GetUser(userID); err != nil {
		return err
	}

	// Re-joining is a no-op rather than an error.
	_, err := s.db.Exec("INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID)
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGroup(id string) (*GroupRecord, error) {
	var g GroupRecord
	var createdAt string
	err := s.db.QueryRow("SELECT id, name, created_at FROM groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting group: %w", err)
	}
	g.CreatedAt = parseTime(createdAt)
	return &g, nil
}

// GetGroupGraph returns the group with its task and member lists hydrated.
// Members come back in join order so repeated fetches are structurally equal.
func (s *SQLiteStore) GetGroupGraph(id string) (*GroupGraph, error) {
	g, err := s.GetGroup(id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.ListGroupTasks(g.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT u.id, u.created_at FROM users u
		JOIN group_members gm ON gm.user_id = u.id
		WHERE gm.group_id = ? ORDER BY gm.rowid`, g.ID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	members := []UserRecord{}
	for rows.Next() {
		var u UserRecord
		var createdAt string
		if err := rows.Scan(&u.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		u.CreatedAt = parseTime(createdAt)
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &GroupGraph{GroupRecord: *g, Tasks: tasks, Members: members}, nil
}

func (s *SQLiteStore) ListUserGroups(userID string) ([]GroupRecord, error) {
	rows, err := s.db.Query(`SELECT g.id, g.name, g.created_at FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ? ORDER BY gm.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	groups := []GroupRecord{}
	for rows.Next() {
		var g GroupRecord
		var createdAt string
		if err := rows.Scan(&g.ID, &g.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.CreatedAt = parseTime(createdAt)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// --- Helpers ---

func scanTask(scan func(dest ...any) error) (*TaskRecord, error) {
	var t TaskRecord
	var completed int
	var lat, lng sql.NullFloat64
	var userID, groupID sql.NullString
	var createdAt string

	err := scan(&t.ID, &t.Name, &t.Location, &t.Vicinity, &lat, &lng,
		&t.Description, &completed, &userID, &groupID, &createdAt)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	if lat.Valid {
		t.Latitude = &lat.Float64
	}
	if lng.Valid {
		t.Longitude = &lng.Float64
	}
	t.UserID = userID.String
	t.GroupID = groupID.String
	t.CreatedAt = parseTime(createdAt)

	return &t, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

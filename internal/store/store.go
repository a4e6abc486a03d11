package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced user, task, or group does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for Taskhive.
// Defined at the consumer side per Go conventions. Every call is atomic;
// callers never compose multi-step transactions across them.
type Store interface {
	// Users
	CreateUser() (*UserRecord, error)
	GetUser(id string) (*UserRecord, error)
	GetUserGraph(id string) (*MemberSnapshot, error)

	// Tasks
	CreateTask(t *TaskRecord) error
	GetTask(id string) (*TaskRecord, error)
	UpdateTask(t *TaskRecord) error
	DeleteTask(id string) error
	ListUserTasks(userID string) ([]TaskRecord, error)
	ListGroupTasks(groupID string) ([]TaskRecord, error)

	// Groups
	CreateGroup(name, creatorID string) (*GroupRecord, error)
	AddMember(groupID, userID string) error
	GetGroup(id string) (*GroupRecord, error)
	GetGroupGraph(id string) (*GroupGraph, error)
	ListUserGroups(userID string) ([]GroupRecord, error)

	Close() error
}

// UserRecord represents a persisted user. Users carry no attributes beyond
// their opaque identifier; everything else hangs off tasks and groups.
type UserRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskRecord represents a persisted task. Exactly one of UserID or GroupID
// is set: a task is personal or group-scoped, never both.
type TaskRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Vicinity    string   `json:"vicinity,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Description string   `json:"description,omitempty"`
	Completed   bool     `json:"completed"`

	UserID  string `json:"user_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// GroupRecord represents a persisted group without its relations hydrated.
type GroupRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupGraph is a group with its tasks and member list hydrated.
type GroupGraph struct {
	GroupRecord
	Tasks   []TaskRecord `json:"tasks"`
	Members []UserRecord `json:"members"`
}

// MemberSnapshot is the fully hydrated view of one user: direct tasks plus
// every group membership with that group's tasks and members. Built on
// demand for notification fan-out and the one-shot graph fetch; never
// persisted.
type MemberSnapshot struct {
	UserID string       `json:"user_id"`
	Tasks  []TaskRecord `json:"tasks"`
	Groups []GroupGraph `json:"groups"`
}

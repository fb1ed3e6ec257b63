// Package store provides the durable task/chat/user store on SQLite.
// Every exported operation is a single statement (or a single implicit
// transaction), so callers never span a lock-release boundary with a
// half-applied write.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a task or chat row does not exist.
var ErrNotFound = errors.New("store: not found")

// Status is the task lifecycle state.
type Status string

const (
	StatusNew    Status = "new"    // awaiting manual activation
	StatusOpen   Status = "open"   // active
	StatusClosed Status = "closed" // terminal until reopened
)

// Mode controls how inbound messages become tasks.
type Mode string

const (
	ModeManual Mode = "manual" // tasks start as "new" with a create button
	ModeAuto   Mode = "auto"   // tasks open immediately
)

// Task is one tracked unit of work derived from an inbound message.
type Task struct {
	ID        int64
	ChatID    int64
	UserID    int64
	Username  string
	Text      string
	Status    Status
	CreatedAt time.Time
	ClosedAt  *time.Time // set iff Status == StatusClosed
	MessageID *int       // bot-authored card representing the task
	TopicID   *int       // dedicated forum thread, when topic mode is on
}

// ChatSettings is the per-chat configuration row.
type ChatSettings struct {
	ChatID       int64
	Mode         Mode
	TopicEnabled bool
	PinMessageID *int // nil: no pin exists yet or the stored one went stale
	InfoText     string
	CurrentInfo  string
}

// ChatUser is a directory entry cached for building mention lists.
type ChatUser struct {
	ChatID      int64
	UserID      int64
	Username    string
	DisplayName string
	LastSeen    time.Time
}

// Stats is the per-chat aggregate the summary renders from.
type Stats struct {
	Open      int
	Closed    int
	OpenTasks []Task // ascending id order
}

// PeriodStats counts task activity since a point in time.
type PeriodStats struct {
	Created int
	Closed  int
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and initializes
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'new',
		created_at TEXT NOT NULL,
		closed_at TEXT,
		message_id INTEGER,
		topic_id INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_chat_status ON tasks(chat_id, status);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(chat_id, created_at);

	CREATE TABLE IF NOT EXISTS chats (
		chat_id INTEGER PRIMARY KEY,
		mode TEXT NOT NULL DEFAULT 'manual',
		topic_enabled INTEGER NOT NULL DEFAULT 0,
		pin_message_id INTEGER,
		info_text TEXT NOT NULL DEFAULT '',
		current_info TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS chat_users (
		chat_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		last_seen TEXT NOT NULL,
		PRIMARY KEY (chat_id, user_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t := parseTime(raw.String)
	return &t
}

func optionalInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

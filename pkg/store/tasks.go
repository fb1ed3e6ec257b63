package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateTask inserts a task with status "new" and returns its id.
func (s *Store) CreateTask(ctx context.Context, chatID, userID int64, username, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (chat_id, user_id, username, text, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chatID, userID, username, text, StatusNew, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return res.LastInsertId()
}

// Task reads a full task row.
func (s *Store) Task(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, user_id, username, text, status, created_at, closed_at, message_id, topic_id
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t         Task
		createdAt string
		closedAt  sql.NullString
		messageID sql.NullInt64
		topicID   sql.NullInt64
		status    string
	)
	err := row.Scan(&t.ID, &t.ChatID, &t.UserID, &t.Username, &t.Text,
		&status, &createdAt, &closedAt, &messageID, &topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Status = Status(status)
	t.CreatedAt = parseTime(createdAt)
	t.ClosedAt = parseOptionalTime(closedAt)
	t.MessageID = optionalInt(messageID)
	t.TopicID = optionalInt(topicID)
	return &t, nil
}

// TaskStatus reads just the lifecycle state.
func (s *Store) TaskStatus(ctx context.Context, id int64) (Status, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("task status: %w", err)
	}
	return Status(status), nil
}

// OpenTask marks a task open and clears its closing timestamp.
func (s *Store) OpenTask(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, closed_at = NULL WHERE id = ?`, StatusOpen, id)
	if err != nil {
		return fmt.Errorf("open task: %w", err)
	}
	return nil
}

// CloseTask marks a task closed and stamps closed_at.
func (s *Store) CloseTask(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, closed_at = ? WHERE id = ?`,
		StatusClosed, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("close task: %w", err)
	}
	return nil
}

// SetTaskMessageID records the bot-authored card message for a task.
func (s *Store) SetTaskMessageID(ctx context.Context, id int64, messageID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET message_id = ? WHERE id = ?`, messageID, id)
	if err != nil {
		return fmt.Errorf("set task message id: %w", err)
	}
	return nil
}

// SetTaskTopicID records (or clears, with nil) the task's forum thread.
func (s *Store) SetTaskTopicID(ctx context.Context, id int64, topicID *int) error {
	var v interface{}
	if topicID != nil {
		v = *topicID
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET topic_id = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("set task topic id: %w", err)
	}
	return nil
}

// ChatStats aggregates the open/closed counts and the ordered open list
// for one chat.
func (s *Store) ChatStats(ctx context.Context, chatID int64) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN status = 'open' THEN 1 END),
			COUNT(CASE WHEN status = 'closed' THEN 1 END)
		 FROM tasks WHERE chat_id = ?`, chatID).Scan(&stats.Open, &stats.Closed)
	if err != nil {
		return Stats{}, fmt.Errorf("chat stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, user_id, username, text, status, created_at, closed_at, message_id, topic_id
		 FROM tasks WHERE chat_id = ? AND status = 'open' ORDER BY id ASC`, chatID)
	if err != nil {
		return Stats{}, fmt.Errorf("open tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return Stats{}, err
		}
		stats.OpenTasks = append(stats.OpenTasks, *t)
	}
	return stats, rows.Err()
}

// PeriodStats counts tasks created and closed in this chat since the
// given point in time.
func (s *Store) PeriodStats(ctx context.Context, chatID int64, since time.Time) (PeriodStats, error) {
	var ps PeriodStats
	cutoff := since.UTC().Format(time.RFC3339)
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN created_at >= ? THEN 1 END),
			COUNT(CASE WHEN closed_at IS NOT NULL AND closed_at >= ? THEN 1 END)
		 FROM tasks WHERE chat_id = ?`, cutoff, cutoff, chatID).Scan(&ps.Created, &ps.Closed)
	if err != nil {
		return PeriodStats{}, fmt.Errorf("period stats: %w", err)
	}
	return ps, nil
}

// ChatsWithOpenTasks lists every chat that has at least one open task.
func (s *Store) ChatsWithOpenTasks(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT chat_id FROM tasks WHERE status = 'open'`)
	if err != nil {
		return nil, fmt.Errorf("chats with open tasks: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllChatIDs lists every chat the bot has ever seen: chats with settings
// rows plus chats that only appear in the tasks table.
func (s *Store) AllChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id FROM chats UNION SELECT DISTINCT chat_id FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("all chat ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ResetChat deletes every task and the settings row for one chat,
// returning how many tasks were removed.
func (s *Store) ResetChat(ctx context.Context, chatID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("reset tasks: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?`, chatID); err != nil {
		return deleted, fmt.Errorf("reset chat settings: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_users WHERE chat_id = ?`, chatID); err != nil {
		return deleted, fmt.Errorf("reset chat users: %w", err)
	}
	return deleted, nil
}

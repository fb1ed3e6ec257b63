package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Chat reads the settings row for a chat. A chat that was never
// configured gets the defaults back; no row is inserted.
func (s *Store) Chat(ctx context.Context, chatID int64) (*ChatSettings, error) {
	var (
		cs           ChatSettings
		mode         string
		topicEnabled int
		pinID        sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, mode, topic_enabled, pin_message_id, info_text, current_info
		 FROM chats WHERE chat_id = ?`, chatID).
		Scan(&cs.ChatID, &mode, &topicEnabled, &pinID, &cs.InfoText, &cs.CurrentInfo)
	if errors.Is(err, sql.ErrNoRows) {
		return &ChatSettings{ChatID: chatID, Mode: ModeManual}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat settings: %w", err)
	}
	cs.Mode = Mode(mode)
	cs.TopicEnabled = topicEnabled != 0
	cs.PinMessageID = optionalInt(pinID)
	return &cs, nil
}

// upsertChatField writes one settings column through a single
// insert-or-update, so missing rows get created with schema defaults in
// the same statement.
func (s *Store) upsertChatField(ctx context.Context, chatID int64, column string, value interface{}) error {
	// column is always one of our own literals, never user input.
	query := fmt.Sprintf(
		`INSERT INTO chats (chat_id, %s) VALUES (?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET %s = excluded.%s`,
		column, column, column)
	if _, err := s.db.ExecContext(ctx, query, chatID, value); err != nil {
		return fmt.Errorf("set chat %s: %w", column, err)
	}
	return nil
}

// SetChatMode switches a chat between manual and auto task creation.
func (s *Store) SetChatMode(ctx context.Context, chatID int64, mode Mode) error {
	return s.upsertChatField(ctx, chatID, "mode", string(mode))
}

// SetTopicEnabled toggles per-task forum topics for a chat.
func (s *Store) SetTopicEnabled(ctx context.Context, chatID int64, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	return s.upsertChatField(ctx, chatID, "topic_enabled", v)
}

// SetPinMessageID records (or clears, with nil) the chat's pinned
// summary message.
func (s *Store) SetPinMessageID(ctx context.Context, chatID int64, messageID *int) error {
	var v interface{}
	if messageID != nil {
		v = *messageID
	}
	return s.upsertChatField(ctx, chatID, "pin_message_id", v)
}

// SetInfoText stores the chat's informational text.
func (s *Store) SetInfoText(ctx context.Context, chatID int64, text string) error {
	return s.upsertChatField(ctx, chatID, "info_text", text)
}

// SetCurrentInfo stores the chat's "current status" text.
func (s *Store) SetCurrentInfo(ctx context.Context, chatID int64, text string) error {
	return s.upsertChatField(ctx, chatID, "current_info", text)
}

// UpsertChatUser refreshes the directory entry for a user observed in a
// chat. Entries are never deleted by the tracker.
func (s *Store) UpsertChatUser(ctx context.Context, chatID, userID int64, username, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_users (chat_id, user_id, username, display_name, last_seen)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id, user_id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			last_seen = excluded.last_seen`,
		chatID, userID, username, displayName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert chat user: %w", err)
	}
	return nil
}

// ChatUsers lists the directory entries for a chat, most recently seen
// first.
func (s *Store) ChatUsers(ctx context.Context, chatID int64) ([]ChatUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, user_id, username, display_name, last_seen
		 FROM chat_users WHERE chat_id = ? ORDER BY last_seen DESC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("chat users: %w", err)
	}
	defer rows.Close()
	var users []ChatUser
	for rows.Next() {
		var (
			u        ChatUser
			lastSeen string
		)
		if err := rows.Scan(&u.ChatID, &u.UserID, &u.Username, &u.DisplayName, &lastSeen); err != nil {
			return nil, err
		}
		u.LastSeen = parseTime(lastSeen)
		users = append(users, u)
	}
	return users, rows.Err()
}

package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform"
	"github.com/sipeed/taskpin/pkg/store"
)

// Inbound is a user message observed in a tracked chat.
type Inbound struct {
	ChatID      int64
	UserID      int64
	Username    string
	DisplayName string
	Text        string
	MessageID   int
	ThreadID    int // non-zero: sent inside a forum topic
	FromBot     bool
	HasMedia    bool
}

// HandleInbound converts a user message into a task: persists it,
// reposts it as a bot-authored card with the mode-appropriate button,
// deletes the original, and in auto mode opens the task immediately and
// schedules a summary refresh.
func (e *Engine) HandleInbound(ctx context.Context, msg Inbound) error {
	if msg.FromBot || msg.ThreadID != 0 {
		// Bot traffic and topic discussion are not new work items.
		return nil
	}
	if !e.throttle.Allow(throttleKey("msg", msg.ChatID, msg.UserID), e.opts.MessageThrottle) {
		return nil
	}

	if err := e.st.UpsertChatUser(ctx, msg.ChatID, msg.UserID, msg.Username, msg.DisplayName); err != nil {
		logger.WarnCF("tracker", "Directory upsert failed", map[string]interface{}{
			"chat_id": msg.ChatID,
			"user_id": msg.UserID,
			"error":   err.Error(),
		})
	}

	username := msg.Username
	if username == "" {
		username = msg.DisplayName
	}
	text := msg.Text
	if text == "" {
		text = "(media without text)"
	}
	msg.Text = text

	taskID, err := e.st.CreateTask(ctx, msg.ChatID, msg.UserID, username, text)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	logger.InfoCF("tracker", "Task created", map[string]interface{}{
		"task_id": taskID,
		"chat_id": msg.ChatID,
		"author":  username,
	})

	chat, err := e.st.Chat(ctx, msg.ChatID)
	if err != nil {
		return fmt.Errorf("read chat settings: %w", err)
	}
	auto := chat.Mode == store.ModeAuto

	var kb platform.Keyboard
	if auto {
		if err := e.st.OpenTask(ctx, taskID); err != nil {
			return fmt.Errorf("auto-open task: %w", err)
		}
		kb = closeButton(taskID)
	} else {
		kb = createButton(taskID)
	}

	cardID, err := e.postCard(ctx, msg, kb)
	if err != nil {
		logger.ErrorCF("tracker", "Task card not posted", map[string]interface{}{
			"task_id": taskID,
			"chat_id": msg.ChatID,
			"error":   err.Error(),
		})
	} else if err := e.st.SetTaskMessageID(ctx, taskID, cardID); err != nil {
		logger.WarnCF("tracker", "Card message id not persisted", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}

	// The user's original message is replaced by the card; removing it
	// needs admin rights and may legitimately fail.
	e.spawn(func() {
		if err := e.client.DeleteMessage(context.Background(), msg.ChatID, msg.MessageID); err != nil &&
			!errors.Is(err, platform.ErrNotFound) {
			logger.DebugCF("tracker", "Original message not deleted", map[string]interface{}{
				"chat_id":    msg.ChatID,
				"message_id": msg.MessageID,
				"error":      err.Error(),
			})
		}
	})

	if auto {
		e.ScheduleRefresh(msg.ChatID)
		if chat.TopicEnabled && cardID != 0 {
			e.spawn(func() {
				e.createTaskTopic(context.Background(), msg.ChatID, taskID, cardID)
			})
		}
	}
	return nil
}

// postCard publishes the bot-authored message representing the task.
// Text messages become a fresh message; media is copied so the
// attachment survives, with the author caption attached.
func (e *Engine) postCard(ctx context.Context, msg Inbound, kb platform.Keyboard) (int, error) {
	body := cardText(msg.Username, msg.DisplayName, msg.Text)
	if msg.HasMedia {
		return e.client.CopyMessage(ctx, msg.ChatID, msg.MessageID, 0, body, kb)
	}
	return e.client.SendMessage(ctx, msg.ChatID, body, kb)
}

// AllowCallback applies the anti-spam throttle for button presses.
func (e *Engine) AllowCallback(chatID, userID int64) bool {
	return e.throttle.Allow(throttleKey("cb", chatID, userID), e.opts.CallbackThrottle)
}

func throttleKey(kind string, chatID, userID int64) string {
	return fmt.Sprintf("%s:%d:%d", kind, chatID, userID)
}

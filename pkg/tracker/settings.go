package tracker

import (
	"context"
	"html"
	"strings"

	"github.com/sipeed/taskpin/pkg/store"
)

// SetMode switches the chat's task-creation mode.
func (e *Engine) SetMode(ctx context.Context, chatID int64, mode store.Mode) error {
	return e.st.SetChatMode(ctx, chatID, mode)
}

// SetTopicMode toggles per-task forum topics.
func (e *Engine) SetTopicMode(ctx context.Context, chatID int64, enabled bool) error {
	return e.st.SetTopicEnabled(ctx, chatID, enabled)
}

// SetInfoText stores the chat's informational text.
func (e *Engine) SetInfoText(ctx context.Context, chatID int64, text string) error {
	return e.st.SetInfoText(ctx, chatID, text)
}

// SetCurrentInfo stores the chat's "current status" text.
func (e *Engine) SetCurrentInfo(ctx context.Context, chatID int64, text string) error {
	return e.st.SetCurrentInfo(ctx, chatID, text)
}

// InfoText renders the chat's informational texts for display.
func (e *Engine) InfoText(ctx context.Context, chatID int64) (string, error) {
	chat, err := e.st.Chat(ctx, chatID)
	if err != nil {
		return "", err
	}
	var parts []string
	if chat.InfoText != "" {
		parts = append(parts, "<b>ℹ️ Info</b>\n"+html.EscapeString(chat.InfoText))
	}
	if chat.CurrentInfo != "" {
		parts = append(parts, "<b>📍 Current</b>\n"+html.EscapeString(chat.CurrentInfo))
	}
	if len(parts) == 0 {
		return "No info texts set for this chat.", nil
	}
	return strings.Join(parts, "\n\n"), nil
}

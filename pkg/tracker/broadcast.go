package tracker

import (
	"context"
	"errors"
	"html"

	"github.com/google/uuid"

	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform"
)

// Broadcast sends an announcement to every chat the bot has seen.
// Returns the number of chats reached and a job id for correlating the
// per-chat log lines.
func (e *Engine) Broadcast(ctx context.Context, text string) (int, string, error) {
	jobID := uuid.NewString()
	chats, err := e.st.AllChatIDs(ctx)
	if err != nil {
		return 0, jobID, err
	}

	body := "📢 " + html.EscapeString(text)
	sent := 0
	for _, chatID := range chats {
		if _, err := e.client.SendMessage(ctx, chatID, body, nil); err != nil {
			if errors.Is(err, platform.ErrForbidden) || errors.Is(err, platform.ErrNotFound) {
				// Kicked from the chat or it is gone; skip quietly.
				continue
			}
			logger.WarnCF("broadcast", "Announcement delivery failed", map[string]interface{}{
				"job_id":  jobID,
				"chat_id": chatID,
				"error":   err.Error(),
			})
			continue
		}
		sent++
	}
	logger.InfoCF("broadcast", "Announcement delivered", map[string]interface{}{
		"job_id": jobID,
		"chats":  sent,
		"total":  len(chats),
	})
	return sent, jobID, nil
}

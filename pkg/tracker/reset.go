package tracker

import (
	"context"
	"time"

	"github.com/sipeed/taskpin/pkg/logger"
)

// RequestReset implements the guarded two-step chat wipe. The first call
// records a confirmation that expires after the configured window; a
// second call from the same user inside the window performs the reset:
// the pinned summary is unpinned and deleted (best effort) and every
// task, settings row, and directory entry for the chat is removed.
func (e *Engine) RequestReset(ctx context.Context, chatID, userID int64) (confirmed bool, tasksDeleted int64, err error) {
	key := resetKey{ChatID: chatID, UserID: userID}

	e.resetMu.Lock()
	requested, pending := e.resetPending[key]
	if !pending || time.Since(requested) > e.opts.ResetWindow {
		e.resetPending[key] = time.Now()
		e.resetMu.Unlock()

		time.AfterFunc(e.opts.ResetWindow, func() {
			e.resetMu.Lock()
			if at, ok := e.resetPending[key]; ok && time.Since(at) >= e.opts.ResetWindow {
				delete(e.resetPending, key)
			}
			e.resetMu.Unlock()
		})
		return false, 0, nil
	}
	delete(e.resetPending, key)
	e.resetMu.Unlock()

	// Serialize with summary rewrites so a debounced refresh cannot
	// resurrect the pin mid-wipe.
	lk := e.locks.Get(chatKey(chatID))
	lk.Lock()
	defer lk.Unlock()

	chat, err := e.st.Chat(ctx, chatID)
	if err == nil && chat.PinMessageID != nil {
		pinID := *chat.PinMessageID
		if err := e.client.UnpinMessage(ctx, chatID, pinID); err != nil {
			logger.WarnCF("tracker", "Unpin during reset failed", map[string]interface{}{
				"chat_id": chatID,
				"pin_id":  pinID,
				"error":   err.Error(),
			})
		}
		if err := e.client.DeleteMessage(ctx, chatID, pinID); err != nil {
			logger.WarnCF("tracker", "Pin deletion during reset failed", map[string]interface{}{
				"chat_id": chatID,
				"pin_id":  pinID,
				"error":   err.Error(),
			})
		}
	}

	deleted, err := e.st.ResetChat(ctx, chatID)
	if err != nil {
		return true, deleted, err
	}
	logger.InfoCF("tracker", "Chat reset", map[string]interface{}{
		"chat_id":       chatID,
		"tasks_deleted": deleted,
		"user_id":       userID,
	})
	return true, deleted, nil
}

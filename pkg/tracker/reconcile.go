package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform"
)

// reconcile brings the chat's pinned summary in line with the store.
// Callers must hold the chat lock.
//
// The invariant defended here: the bot never has two live pinned
// summaries for one chat. A new message is created only when the stored
// pin id is known to be unusable (absent, or the platform says the
// target is gone); every ambiguous edit failure aborts instead.
func (e *Engine) reconcile(ctx context.Context, chatID int64) error {
	ok, err := e.client.CanManagePins(ctx, chatID)
	if err != nil || !ok {
		// Not fatal: retried on the next trigger.
		fields := map[string]interface{}{"chat_id": chatID}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.WarnCF("reconcile", "Skipping summary rewrite, missing pin permissions", fields)
		return nil
	}

	chat, err := e.st.Chat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("read chat settings: %w", err)
	}
	pinID := chat.PinMessageID

	// Cross-check against the platform's live pin. A bot-authored live
	// pin with a different id means we missed a write; adopt it. A
	// foreign live pin means the pin slot was taken over: forget the
	// stored id and maintain our own summary message without touching
	// the foreign pin.
	if live, err := e.client.LivePin(ctx, chatID); err == nil && live != nil {
		switch {
		case live.FromBot && (pinID == nil || *pinID != live.MessageID):
			id := live.MessageID
			pinID = &id
			if err := e.st.SetPinMessageID(ctx, chatID, pinID); err != nil {
				logger.WarnCF("reconcile", "Adopted pin id not persisted", map[string]interface{}{
					"chat_id": chatID,
					"error":   err.Error(),
				})
			}
		case !live.FromBot && pinID != nil:
			logger.InfoCF("reconcile", "Pin slot taken over, dropping stored id", map[string]interface{}{
				"chat_id": chatID,
				"old_pin": *pinID,
			})
			pinID = nil
			if err := e.st.SetPinMessageID(ctx, chatID, nil); err != nil {
				logger.WarnCF("reconcile", "Stale pin id not cleared", map[string]interface{}{
					"chat_id": chatID,
					"error":   err.Error(),
				})
			}
		}
	}

	stats, err := e.st.ChatStats(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat stats: %w", err)
	}
	text := RenderSummary(chatID, stats, e.opts.PreviewLength)

	if pinID != nil {
		err := e.client.EditMessageText(ctx, chatID, *pinID, text)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, platform.ErrNotModified):
			// Content already matches; no-op edit avoided.
			return nil
		case errors.Is(err, platform.ErrNotFound):
			logger.WarnCF("reconcile", "Stored pin unusable, recreating", map[string]interface{}{
				"chat_id": chatID,
				"pin_id":  *pinID,
			})
			pinID = nil
			if err := e.st.SetPinMessageID(ctx, chatID, nil); err != nil {
				logger.WarnCF("reconcile", "Stale pin id not cleared", map[string]interface{}{
					"chat_id": chatID,
					"error":   err.Error(),
				})
			}
		default:
			if wait, ok := platform.AsRateLimited(err); ok {
				e.armPinRetry(chatID, wait)
				return nil
			}
			// Unknown failure: do not create a replacement, a duplicate
			// pin is worse than a stale one.
			return fmt.Errorf("edit pinned summary: %w", err)
		}
	}

	msgID, err := e.client.SendMessage(ctx, chatID, text, nil)
	if err != nil {
		if wait, ok := platform.AsRateLimited(err); ok {
			e.armPinRetry(chatID, wait)
			return nil
		}
		return fmt.Errorf("send pinned summary: %w", err)
	}
	if err := e.client.PinMessage(ctx, chatID, msgID); err != nil {
		// The message exists either way; persist it so the next pass
		// edits instead of sending another.
		logger.WarnCF("reconcile", "Pinning failed", map[string]interface{}{
			"chat_id":    chatID,
			"message_id": msgID,
			"error":      err.Error(),
		})
	}
	if err := e.st.SetPinMessageID(ctx, chatID, &msgID); err != nil {
		return fmt.Errorf("persist pin id: %w", err)
	}
	logger.InfoCF("reconcile", "Pinned summary created", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": msgID,
	})
	return nil
}

func (e *Engine) armPinRetry(chatID int64, wait time.Duration) {
	e.retry.Arm(chatRetryKey(chatID), wait, func() {
		if err := e.Refresh(context.Background(), chatID); err != nil {
			logger.WarnCF("reconcile", "Backoff retry failed", map[string]interface{}{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	})
}

// InitPins re-renders the pinned summary for every chat that has open
// tasks but no stored pin. Run at startup: in-memory state is gone, the
// store is the only truth.
func (e *Engine) InitPins(ctx context.Context) {
	chats, err := e.st.ChatsWithOpenTasks(ctx)
	if err != nil {
		logger.ErrorCF("reconcile", "Startup pin scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	for _, chatID := range chats {
		chat, err := e.st.Chat(ctx, chatID)
		if err != nil {
			continue
		}
		if chat.PinMessageID != nil {
			continue
		}
		if err := e.Refresh(ctx, chatID); err != nil {
			logger.WarnCF("reconcile", "Startup pin refresh failed", map[string]interface{}{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	}
}

package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sipeed/taskpin/pkg/logger"
)

// PeriodReport renders created/closed counts for the last day and the
// last week in one chat.
func (e *Engine) PeriodReport(ctx context.Context, chatID int64) (string, error) {
	now := time.Now()
	day, err := e.st.PeriodStats(ctx, chatID, now.Add(-24*time.Hour))
	if err != nil {
		return "", err
	}
	week, err := e.st.PeriodStats(ctx, chatID, now.Add(-7*24*time.Hour))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"<b>📈 Task activity</b>\n\nLast 24h: %d created, %d closed\nLast 7 days: %d created, %d closed",
		day.Created, day.Closed, week.Created, week.Closed), nil
}

// RunDigest sends the period report to every known chat on the given
// cron schedule. Blocks until ctx is cancelled.
func (e *Engine) RunDigest(ctx context.Context, cronExpr string) error {
	gron := gronx.New()
	if !gron.IsValid(cronExpr) {
		return fmt.Errorf("invalid digest cron expression %q", cronExpr)
	}
	logger.InfoCF("digest", "Digest schedule armed", map[string]interface{}{
		"cron": cronExpr,
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick := <-ticker.C:
			due, err := gron.IsDue(cronExpr, tick)
			if err != nil || !due {
				continue
			}
			e.sendDigests(ctx)
		}
	}
}

func (e *Engine) sendDigests(ctx context.Context) {
	chats, err := e.st.AllChatIDs(ctx)
	if err != nil {
		logger.WarnCF("digest", "Chat scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	for _, chatID := range chats {
		report, err := e.PeriodReport(ctx, chatID)
		if err != nil {
			continue
		}
		if _, err := e.client.SendMessage(ctx, chatID, report, nil); err != nil {
			logger.DebugCF("digest", "Digest delivery failed", map[string]interface{}{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	}
}

// Package bot wires Telegram updates to the tracker engine. Handlers
// are thin: parse the update, apply the anti-spam throttle, delegate,
// answer the actor.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/store"
	"github.com/sipeed/taskpin/pkg/tracker"
)

// Bot binds the engine to a telego handler group.
type Bot struct {
	engine *tracker.Engine
}

// New creates the handler layer.
func New(engine *tracker.Engine) *Bot {
	return &Bot{engine: engine}
}

// Register attaches all command, callback, and message handlers.
// Registration order matters: the catch-all message handler must come
// last so commands are not swallowed into tasks.
func (b *Bot) Register(bh *th.BotHandler) {
	bh.HandleMessage(b.startCmd, th.CommandEqual("start"))
	bh.HandleMessage(b.refreshCmd, th.CommandEqual("refresh"))
	bh.HandleMessage(b.modeCmd(store.ModeManual, "🛠️ Mode set: manual. Tasks open via the \"Create task\" button."), th.CommandEqual("mode_manual"))
	bh.HandleMessage(b.modeCmd(store.ModeAuto, "⚡ Mode set: auto. New messages immediately become open tasks."), th.CommandEqual("mode_auto"))
	bh.HandleMessage(b.topicCmd(true), th.CommandEqual("topic_on"))
	bh.HandleMessage(b.topicCmd(true), th.CommandEqual("mode_topic"))
	bh.HandleMessage(b.topicCmd(false), th.CommandEqual("topic_off"))
	bh.HandleMessage(b.infoCmd, th.CommandEqual("info"))
	bh.HandleMessage(b.setInfoCmd, th.CommandEqual("set_info"))
	bh.HandleMessage(b.setCurrentCmd, th.CommandEqual("set_current"))
	bh.HandleMessage(b.statsCmd, th.CommandEqual("stats"))
	bh.HandleMessage(b.broadcastCmd, th.CommandEqual("broadcast"))
	bh.HandleMessage(b.resetCmd, th.CommandEqual("reset"))

	bh.HandleCallbackQuery(b.transitionCallback(tracker.CallbackCreate, b.engine.Activate),
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(tracker.CallbackCreate))
	bh.HandleCallbackQuery(b.transitionCallback(tracker.CallbackClose, b.engine.Close),
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(tracker.CallbackClose))
	bh.HandleCallbackQuery(b.transitionCallback(tracker.CallbackReopen, b.engine.Reopen),
		th.AnyCallbackQueryWithMessage(), th.CallbackDataPrefix(tracker.CallbackReopen))
	bh.HandleCallbackQuery(b.noneCallback,
		th.AnyCallbackQueryWithMessage(), th.CallbackDataEqual("none"))

	bh.HandleMessage(b.inboundMessage, notCommand)
}

func notCommand(_ context.Context, update telego.Update) bool {
	return update.Message != nil && !strings.HasPrefix(update.Message.Text, "/")
}

func (b *Bot) startCmd(ctx *th.Context, message telego.Message) error {
	_, err := ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID),
		"✅ TaskPin is running.\nWrite a message and I will add a task button.\n\n📌 Commands:\n/refresh — rewrite the pinned summary\n/mode_manual /mode_auto — task creation mode\n/topic_on /topic_off — per-task topics\n/stats — period counts\n/info — chat info texts"))
	return err
}

func (b *Bot) refreshCmd(ctx *th.Context, message telego.Message) error {
	if err := b.engine.Refresh(ctx, message.Chat.ID); err != nil {
		logger.WarnCF("bot", "Forced refresh failed", map[string]interface{}{
			"chat_id": message.Chat.ID,
			"error":   err.Error(),
		})
	}
	b.deleteCommand(ctx, message)
	return nil
}

func (b *Bot) modeCmd(mode store.Mode, reply string) th.MessageHandler {
	return func(ctx *th.Context, message telego.Message) error {
		if err := b.engine.SetMode(ctx, message.Chat.ID, mode); err != nil {
			return err
		}
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), reply))
		b.deleteCommand(ctx, message)
		return nil
	}
}

func (b *Bot) topicCmd(enabled bool) th.MessageHandler {
	return func(ctx *th.Context, message telego.Message) error {
		if err := b.engine.SetTopicMode(ctx, message.Chat.ID, enabled); err != nil {
			return err
		}
		reply := "🧵 Topic mode: off"
		if enabled {
			reply = "🧵 Topic mode: on. Every task gets its own topic with a copy of the message."
		}
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), reply))
		b.deleteCommand(ctx, message)
		return nil
	}
}

func (b *Bot) infoCmd(ctx *th.Context, message telego.Message) error {
	text, err := b.engine.InfoText(ctx, message.Chat.ID)
	if err != nil {
		return err
	}
	return b.sendHTML(ctx, message.Chat.ID, text)
}

func (b *Bot) setInfoCmd(ctx *th.Context, message telego.Message) error {
	text := commandPayload(message.Text)
	if err := b.engine.SetInfoText(ctx, message.Chat.ID, text); err != nil {
		return err
	}
	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), "ℹ️ Info text updated."))
	b.deleteCommand(ctx, message)
	return nil
}

func (b *Bot) setCurrentCmd(ctx *th.Context, message telego.Message) error {
	text := commandPayload(message.Text)
	if err := b.engine.SetCurrentInfo(ctx, message.Chat.ID, text); err != nil {
		return err
	}
	_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), "📍 Current info updated."))
	b.deleteCommand(ctx, message)
	return nil
}

func (b *Bot) statsCmd(ctx *th.Context, message telego.Message) error {
	report, err := b.engine.PeriodReport(ctx, message.Chat.ID)
	if err != nil {
		return err
	}
	return b.sendHTML(ctx, message.Chat.ID, report)
}

func (b *Bot) broadcastCmd(ctx *th.Context, message telego.Message) error {
	text := commandPayload(message.Text)
	if text == "" {
		_, _ = ctx.Bot().SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), "Usage: /broadcast <text>"))
		return nil
	}
	sent, jobID, err := b.engine.Broadcast(ctx, text)
	if err != nil {
		return err
	}
	logger.InfoCF("bot", "Broadcast requested", map[string]interface{}{
		"job_id":  jobID,
		"chat_id": message.Chat.ID,
		"sent":    sent,
	})
	b.deleteCommand(ctx, message)
	return nil
}

func (b *Bot) resetCmd(ctx *th.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	confirmed, deleted, err := b.engine.RequestReset(ctx, message.Chat.ID, message.From.ID)
	if err != nil {
		return err
	}
	if !confirmed {
		_ = b.sendHTML(ctx, message.Chat.ID,
			"⚠️ <b>Warning!</b>\n\nThis removes every task, the pinned summary, and the chat settings.\nSend /reset again within 30 seconds to confirm.")
	} else {
		_ = b.sendHTML(ctx, message.Chat.ID,
			"✅ Reset done.\n🗑️ Tasks removed: "+strconv.FormatInt(deleted, 10))
	}
	b.deleteCommand(ctx, message)
	return nil
}

// transitionCallback builds the handler for one lifecycle button.
func (b *Bot) transitionCallback(prefix string, transition func(context.Context, tracker.Action) (tracker.Outcome, error)) th.CallbackQueryHandler {
	return func(ctx *th.Context, query telego.CallbackQuery) error {
		msg, ok := query.Message.(*telego.Message)
		if !ok {
			return b.answer(ctx, query.ID, "Message unavailable", true)
		}
		chatID := msg.Chat.ID
		if !b.engine.AllowCallback(chatID, query.From.ID) {
			return b.answer(ctx, query.ID, "Too fast, wait a moment…", true)
		}
		taskID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, prefix), 10, 64)
		if err != nil {
			return b.answer(ctx, query.ID, "Malformed button payload", true)
		}

		outcome, err := transition(ctx, tracker.Action{
			TaskID:    taskID,
			ChatID:    chatID,
			MessageID: msg.MessageID,
			InTopic:   msg.MessageThreadID != 0,
			ActorID:   query.From.ID,
			ActorName: query.From.Username,
		})
		if err != nil {
			logger.ErrorCF("bot", "Lifecycle transition failed", map[string]interface{}{
				"task_id": taskID,
				"chat_id": chatID,
				"error":   err.Error(),
			})
			return b.answer(ctx, query.ID, "❌ Something went wrong", true)
		}
		switch outcome {
		case tracker.OutcomeApplied:
			return b.answer(ctx, query.ID, "Done ✅", false)
		case tracker.OutcomeAlreadyOpen:
			return b.answer(ctx, query.ID, "Already open", true)
		case tracker.OutcomeAlreadyClosed:
			return b.answer(ctx, query.ID, "Already closed", true)
		default:
			return b.answer(ctx, query.ID, "Unknown task", true)
		}
	}
}

func (b *Bot) noneCallback(ctx *th.Context, query telego.CallbackQuery) error {
	return b.answer(ctx, query.ID, "This task is already closed", false)
}

func (b *Bot) inboundMessage(ctx *th.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	text := message.Text
	if text == "" {
		text = message.Caption
	}
	display := strings.TrimSpace(message.From.FirstName + " " + message.From.LastName)
	return b.engine.HandleInbound(ctx, tracker.Inbound{
		ChatID:      message.Chat.ID,
		UserID:      message.From.ID,
		Username:    message.From.Username,
		DisplayName: display,
		Text:        text,
		MessageID:   message.MessageID,
		ThreadID:    message.MessageThreadID,
		FromBot:     message.From.IsBot,
		HasMedia:    hasMedia(&message),
	})
}

func hasMedia(m *telego.Message) bool {
	return len(m.Photo) > 0 || m.Video != nil || m.Document != nil ||
		m.Animation != nil || m.Audio != nil || m.Voice != nil ||
		m.Sticker != nil || m.VideoNote != nil
}

func commandPayload(text string) string {
	_, rest, found := strings.Cut(text, " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

func (b *Bot) answer(ctx *th.Context, queryID, text string, alert bool) error {
	params := tu.CallbackQuery(queryID).WithText(text)
	if alert {
		params = params.WithShowAlert()
	}
	return ctx.Bot().AnswerCallbackQuery(ctx, params)
}

func (b *Bot) deleteCommand(ctx *th.Context, message telego.Message) {
	_ = ctx.Bot().DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(message.Chat.ID),
		MessageID: message.MessageID,
	})
}

func (b *Bot) sendHTML(ctx *th.Context, chatID int64, text string) error {
	_, err := ctx.Bot().SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    tu.ID(chatID),
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

// Package telegram implements the platform.Client contract on top of the
// Telegram Bot API via telego.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/sipeed/taskpin/pkg/platform"
)

// Client wraps a telego bot and its own identity.
type Client struct {
	bot   *telego.Bot
	botID int64
}

// New creates a Telegram client and resolves the bot's own id.
func New(ctx context.Context, bot *telego.Bot) (*Client, error) {
	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &Client{bot: bot, botID: me.ID}, nil
}

// Bot exposes the underlying telego bot for handler wiring.
func (c *Client) Bot() *telego.Bot { return c.bot }

func (c *Client) BotID() int64 { return c.botID }

func markup(kb platform.Keyboard) *telego.InlineKeyboardMarkup {
	if kb == nil {
		return nil
	}
	rows := make([][]telego.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(b.Text).WithCallbackData(b.Data))
		}
		rows = append(rows, buttons)
	}
	return tu.InlineKeyboard(rows...)
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb platform.Keyboard) (int, error) {
	params := &telego.SendMessageParams{
		ChatID:             tu.ID(chatID),
		Text:               text,
		ParseMode:          telego.ModeHTML,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if m := markup(kb); m != nil {
		params.ReplyMarkup = m
	}
	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, mapError(err)
	}
	return msg.MessageID, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:             tu.ID(chatID),
		MessageID:          messageID,
		Text:               text,
		ParseMode:          telego.ModeHTML,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	})
	return mapError(err)
}

func (c *Client) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, kb platform.Keyboard) error {
	_, err := c.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		ReplyMarkup: markup(kb),
	})
	return mapError(err)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return mapError(c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	}))
}

func (c *Client) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	return mapError(c.bot.PinChatMessage(ctx, &telego.PinChatMessageParams{
		ChatID:              tu.ID(chatID),
		MessageID:           messageID,
		DisableNotification: true,
	}))
}

func (c *Client) UnpinMessage(ctx context.Context, chatID int64, messageID int) error {
	return mapError(c.bot.UnpinChatMessage(ctx, &telego.UnpinChatMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	}))
}

func (c *Client) CopyMessage(ctx context.Context, chatID int64, fromMessageID, threadID int, caption string, kb platform.Keyboard) (int, error) {
	params := &telego.CopyMessageParams{
		ChatID:          tu.ID(chatID),
		FromChatID:      tu.ID(chatID),
		MessageID:       fromMessageID,
		MessageThreadID: threadID,
		Caption:         caption,
		ParseMode:       telego.ModeHTML,
	}
	if m := markup(kb); m != nil {
		params.ReplyMarkup = m
	}
	id, err := c.bot.CopyMessage(ctx, params)
	if err != nil && caption != "" {
		// Some message kinds cannot carry a caption; retry bare.
		params.Caption = ""
		params.ParseMode = ""
		id, err = c.bot.CopyMessage(ctx, params)
	}
	if err != nil {
		return 0, mapError(err)
	}
	return id.MessageID, nil
}

func (c *Client) CreateTopic(ctx context.Context, chatID int64, name string) (int, error) {
	topic, err := c.bot.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID: tu.ID(chatID),
		Name:   name,
	})
	if err != nil {
		return 0, mapError(err)
	}
	return topic.MessageThreadID, nil
}

func (c *Client) DeleteTopic(ctx context.Context, chatID int64, threadID int) error {
	return mapError(c.bot.DeleteForumTopic(ctx, &telego.DeleteForumTopicParams{
		ChatID:          tu.ID(chatID),
		MessageThreadID: threadID,
	}))
}

func (c *Client) CanManagePins(ctx context.Context, chatID int64) (bool, error) {
	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: c.botID,
	})
	if err != nil {
		return false, mapError(err)
	}
	switch m := member.(type) {
	case *telego.ChatMemberOwner:
		return true, nil
	case *telego.ChatMemberAdministrator:
		return m.CanPinMessages && m.CanDeleteMessages, nil
	default:
		return false, nil
	}
}

func (c *Client) LivePin(ctx context.Context, chatID int64) (*platform.PinInfo, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatID)})
	if err != nil {
		return nil, mapError(err)
	}
	if chat.PinnedMessage == nil {
		return nil, nil
	}
	pinned := chat.PinnedMessage
	fromBot := pinned.From != nil && pinned.From.ID == c.botID
	return &platform.PinInfo{MessageID: pinned.MessageID, FromBot: fromBot}, nil
}

var _ platform.Client = (*Client)(nil)

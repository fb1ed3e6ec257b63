// Package platform defines the chat-platform client contract the tracker
// core is written against, together with the structured error taxonomy
// the core needs to distinguish: rate-limited, stale-reference,
// not-modified, and permission-denied failures. Concrete transports live
// in subpackages (see platform/telegram).
package platform

import "context"

// Button is one inline button under a bot message.
type Button struct {
	Text string
	Data string // callback payload
}

// Keyboard is rows of buttons. A nil keyboard means no buttons.
type Keyboard [][]Button

// Row builds a single-row keyboard, the common case here.
func Row(buttons ...Button) Keyboard {
	return Keyboard{buttons}
}

// PinInfo describes the platform's live notion of the current pin.
type PinInfo struct {
	MessageID int
	FromBot   bool // authored by this bot
}

// Client is everything the tracker needs from the messaging platform.
// All text is HTML-formatted; callers pass pre-escaped markup and
// implementations escape nothing.
type Client interface {
	// BotID is the platform user id of the bot itself.
	BotID() int64

	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (messageID int, err error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, kb Keyboard) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	PinMessage(ctx context.Context, chatID int64, messageID int) error
	UnpinMessage(ctx context.Context, chatID int64, messageID int) error

	// CopyMessage re-posts an existing message (media included) into the
	// chat, optionally into a topic thread (threadID 0 = main thread).
	CopyMessage(ctx context.Context, chatID int64, fromMessageID, threadID int, caption string, kb Keyboard) (messageID int, err error)

	CreateTopic(ctx context.Context, chatID int64, name string) (threadID int, err error)
	DeleteTopic(ctx context.Context, chatID int64, threadID int) error

	// CanManagePins reports whether the bot holds the chat privileges
	// required to rewrite the pinned summary (pin + delete messages).
	CanManagePins(ctx context.Context, chatID int64) (bool, error)

	// LivePin returns the chat's current pinned message, or nil if the
	// chat has none (or the platform does not expose it).
	LivePin(ctx context.Context, chatID int64) (*PinInfo, error)
}

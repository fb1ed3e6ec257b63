package bot

import (
	"context"

	"github.com/mymmrac/telego"

	"github.com/sipeed/taskpin/pkg/logger"
)

// RegisterCommands publishes the command menu so clients show the list
// when the user types "/". Failure is cosmetic and only logged.
func RegisterCommands(ctx context.Context, bot *telego.Bot) {
	commands := []telego.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "refresh", Description: "Rewrite the pinned summary"},
		{Command: "mode_manual", Description: "Mode: manual task creation"},
		{Command: "mode_auto", Description: "Mode: auto task creation"},
		{Command: "topic_on", Description: "Enable per-task topics"},
		{Command: "topic_off", Description: "Disable per-task topics"},
		{Command: "info", Description: "Show chat info texts"},
		{Command: "stats", Description: "Task activity counts"},
		{Command: "reset", Description: "Wipe chat state (asks to confirm)"},
	}

	scopes := []telego.BotCommandScope{
		nil, // default scope
		&telego.BotCommandScopeAllPrivateChats{Type: telego.ScopeTypeAllPrivateChats},
		&telego.BotCommandScopeAllGroupChats{Type: telego.ScopeTypeAllGroupChats},
		&telego.BotCommandScopeAllChatAdministrators{Type: telego.ScopeTypeAllChatAdministrators},
	}
	for _, scope := range scopes {
		err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands: commands,
			Scope:    scope,
		})
		if err != nil {
			logger.WarnCF("bot", "Command menu registration failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}
}

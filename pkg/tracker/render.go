package tracker

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sipeed/taskpin/pkg/store"
)

// RenderSummary is the pure function mapping chat stats to the pinned
// message text (Telegram HTML). Open tasks render as enumerated lines
// with a truncated preview, author handle, and a deep link when the task
// has a card message; closed tasks are only counted.
func RenderSummary(chatID int64, stats store.Stats, previewLen int) string {
	var b strings.Builder
	b.WriteString("<b>📋 Task summary</b>\n\n")
	fmt.Fprintf(&b, "🔴 Open: %d | ✅ Closed: %d\n", stats.Open, stats.Closed)

	if len(stats.OpenTasks) == 0 {
		return b.String()
	}

	b.WriteString("\n<b>🧾 Open tasks:</b>\n\n")
	for i, t := range stats.OpenTasks {
		author := t.Username
		if author == "" {
			author = "anonymous"
		}
		preview := html.EscapeString(truncate(t.Text, previewLen))
		if preview == "" {
			preview = "(empty)"
		}
		if t.MessageID != nil {
			fmt.Fprintf(&b, "• %d. <a href=\"%s\"><i>%s</i></a> — @%s\n",
				i+1, MessageLink(chatID, *t.MessageID), preview, html.EscapeString(author))
		} else {
			fmt.Fprintf(&b, "• %d. <i>%s</i> — @%s\n",
				i+1, preview, html.EscapeString(author))
		}
	}
	return b.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// MessageLink builds a t.me deep link to a message. Supergroup ids carry
// a -100 prefix that the link format drops.
func MessageLink(chatID int64, messageID int) string {
	s := strconv.FormatInt(chatID, 10)
	if strings.HasPrefix(s, "-100") {
		s = s[4:]
	} else {
		s = strings.TrimPrefix(s, "-")
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", s, messageID)
}

// cardText is the body of a bot-authored task card.
func cardText(username, displayName, text string) string {
	author := "Anonymous"
	if username != "" {
		author = "@" + html.EscapeString(username)
	} else if displayName != "" {
		author = html.EscapeString(displayName)
	}
	return fmt.Sprintf("👤 <b>Message from</b> %s:\n\n%s", author, html.EscapeString(text))
}

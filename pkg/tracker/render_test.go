package tracker

import (
	"strings"
	"testing"

	"github.com/sipeed/taskpin/pkg/store"
)

func TestRenderSummaryEmpty(t *testing.T) {
	text := RenderSummary(-100123, store.Stats{}, 60)

	if !strings.Contains(text, "Open: 0 | Closed: 0") {
		t.Fatalf("empty summary missing zero counts:\n%s", text)
	}
	if strings.Contains(text, "Open tasks") {
		t.Fatalf("empty summary must not list tasks:\n%s", text)
	}
}

func TestRenderSummaryListsOpenTasksOnly(t *testing.T) {
	msgID := 555
	stats := store.Stats{
		Open:   2,
		Closed: 3,
		OpenTasks: []store.Task{
			{ID: 1, Username: "alice", Text: "fix the door", MessageID: &msgID},
			{ID: 2, Username: "bob", Text: "water plants"},
		},
	}
	text := RenderSummary(-1001234567, stats, 60)

	if !strings.Contains(text, "Open: 2 | Closed: 3") {
		t.Fatalf("counts missing:\n%s", text)
	}
	if !strings.Contains(text, `<a href="https://t.me/c/1234567/555">`) {
		t.Fatalf("deep link missing for task with message id:\n%s", text)
	}
	if !strings.Contains(text, "@alice") || !strings.Contains(text, "@bob") {
		t.Fatalf("author handles missing:\n%s", text)
	}
	if !strings.Contains(text, "• 1.") || !strings.Contains(text, "• 2.") {
		t.Fatalf("enumeration missing:\n%s", text)
	}
}

func TestRenderSummaryEscapesUserText(t *testing.T) {
	stats := store.Stats{
		Open: 1,
		OpenTasks: []store.Task{
			{ID: 1, Username: "eve<i>", Text: `<b onload="x">&pwn`},
		},
	}
	text := RenderSummary(-1, stats, 60)

	if strings.Contains(text, `<b onload`) {
		t.Fatalf("user markup leaked into summary:\n%s", text)
	}
	if !strings.Contains(text, "&lt;b onload=&#34;x&#34;&gt;&amp;pwn") {
		t.Fatalf("expected escaped body:\n%s", text)
	}
	if !strings.Contains(text, "eve&lt;i&gt;") {
		t.Fatalf("expected escaped author:\n%s", text)
	}
}

func TestRenderSummaryTruncatesPreview(t *testing.T) {
	long := strings.Repeat("я", 100) // multibyte on purpose
	stats := store.Stats{
		Open:      1,
		OpenTasks: []store.Task{{ID: 1, Username: "a", Text: long}},
	}
	text := RenderSummary(-1, stats, 60)

	if strings.Contains(text, long) {
		t.Fatal("preview was not truncated")
	}
	if !strings.Contains(text, strings.Repeat("я", 60)) {
		t.Fatal("truncation cut at the wrong length")
	}
}

func TestMessageLink(t *testing.T) {
	tests := []struct {
		name   string
		chatID int64
		msgID  int
		want   string
	}{
		{"supergroup", -1001234567890, 7, "https://t.me/c/1234567890/7"},
		{"plain group", -4321, 8, "https://t.me/c/4321/8"},
		{"private", 99, 9, "https://t.me/c/99/9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageLink(tt.chatID, tt.msgID); got != tt.want {
				t.Fatalf("MessageLink(%d, %d) = %q, want %q", tt.chatID, tt.msgID, got, tt.want)
			}
		})
	}
}

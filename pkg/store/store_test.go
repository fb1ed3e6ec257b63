package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTaskLifecycleFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateTask(ctx, -100500, 42, "alice", "fix the door")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	task, err := s.Task(ctx, id)
	if err != nil {
		t.Fatalf("read task: %v", err)
	}
	if task.Status != StatusNew {
		t.Fatalf("new task status = %q, want %q", task.Status, StatusNew)
	}
	if task.ClosedAt != nil {
		t.Fatal("new task must have nil closed_at")
	}
	if task.CreatedAt.IsZero() {
		t.Fatal("created_at not recorded")
	}

	if err := s.OpenTask(ctx, id); err != nil {
		t.Fatalf("open task: %v", err)
	}
	if err := s.CloseTask(ctx, id); err != nil {
		t.Fatalf("close task: %v", err)
	}
	task, _ = s.Task(ctx, id)
	if task.Status != StatusClosed || task.ClosedAt == nil {
		t.Fatalf("closed task = %q closed_at=%v, want closed with timestamp", task.Status, task.ClosedAt)
	}

	if err := s.OpenTask(ctx, id); err != nil {
		t.Fatalf("reopen task: %v", err)
	}
	task, _ = s.Task(ctx, id)
	if task.Status != StatusOpen || task.ClosedAt != nil {
		t.Fatalf("reopened task = %q closed_at=%v, want open with nil closed_at", task.Status, task.ClosedAt)
	}
}

func TestTaskNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Task(ctx, 999); err != ErrNotFound {
		t.Fatalf("Task on missing id = %v, want ErrNotFound", err)
	}
	if _, err := s.TaskStatus(ctx, 999); err != ErrNotFound {
		t.Fatalf("TaskStatus on missing id = %v, want ErrNotFound", err)
	}
}

func TestTaskMessageAndTopicIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateTask(ctx, -1, 1, "bob", "x")
	if err := s.SetTaskMessageID(ctx, id, 777); err != nil {
		t.Fatalf("set message id: %v", err)
	}
	topic := 33
	if err := s.SetTaskTopicID(ctx, id, &topic); err != nil {
		t.Fatalf("set topic id: %v", err)
	}

	task, _ := s.Task(ctx, id)
	if task.MessageID == nil || *task.MessageID != 777 {
		t.Fatalf("message id = %v, want 777", task.MessageID)
	}
	if task.TopicID == nil || *task.TopicID != 33 {
		t.Fatalf("topic id = %v, want 33", task.TopicID)
	}

	if err := s.SetTaskTopicID(ctx, id, nil); err != nil {
		t.Fatalf("clear topic id: %v", err)
	}
	task, _ = s.Task(ctx, id)
	if task.TopicID != nil {
		t.Fatalf("topic id = %v after clear, want nil", task.TopicID)
	}
}

func TestChatStatsOrderAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	chatID := int64(-100)

	first, _ := s.CreateTask(ctx, chatID, 1, "a", "first")
	second, _ := s.CreateTask(ctx, chatID, 2, "b", "second")
	third, _ := s.CreateTask(ctx, chatID, 3, "c", "third")
	_ = s.OpenTask(ctx, first)
	_ = s.OpenTask(ctx, second)
	_ = s.OpenTask(ctx, third)
	_ = s.CloseTask(ctx, second)

	// Another chat's tasks must not leak in.
	other, _ := s.CreateTask(ctx, -200, 9, "z", "noise")
	_ = s.OpenTask(ctx, other)

	stats, err := s.ChatStats(ctx, chatID)
	if err != nil {
		t.Fatalf("chat stats: %v", err)
	}
	if stats.Open != 2 || stats.Closed != 1 {
		t.Fatalf("counts = %d open / %d closed, want 2/1", stats.Open, stats.Closed)
	}
	if len(stats.OpenTasks) != 2 || stats.OpenTasks[0].ID != first || stats.OpenTasks[1].ID != third {
		t.Fatalf("open list order wrong: %+v", stats.OpenTasks)
	}
}

func TestChatSettingsDefaultsAndUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	chatID := int64(-5)

	// Unseen chat reads back defaults without creating a row.
	chat, err := s.Chat(ctx, chatID)
	if err != nil {
		t.Fatalf("chat defaults: %v", err)
	}
	if chat.Mode != ModeManual || chat.TopicEnabled || chat.PinMessageID != nil {
		t.Fatalf("unexpected defaults: %+v", chat)
	}

	// A single setter on an unseen chat must create the row with
	// defaults for everything else.
	pin := 123
	if err := s.SetPinMessageID(ctx, chatID, &pin); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	chat, _ = s.Chat(ctx, chatID)
	if chat.PinMessageID == nil || *chat.PinMessageID != 123 {
		t.Fatalf("pin id = %v, want 123", chat.PinMessageID)
	}
	if chat.Mode != ModeManual {
		t.Fatalf("mode = %q after pin upsert, want default manual", chat.Mode)
	}

	// Later setters must not clobber earlier fields.
	if err := s.SetChatMode(ctx, chatID, ModeAuto); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := s.SetTopicEnabled(ctx, chatID, true); err != nil {
		t.Fatalf("set topic: %v", err)
	}
	if err := s.SetInfoText(ctx, chatID, "house rules"); err != nil {
		t.Fatalf("set info: %v", err)
	}
	if err := s.SetCurrentInfo(ctx, chatID, "sprint 12"); err != nil {
		t.Fatalf("set current: %v", err)
	}
	chat, _ = s.Chat(ctx, chatID)
	if chat.Mode != ModeAuto || !chat.TopicEnabled ||
		chat.PinMessageID == nil || *chat.PinMessageID != 123 ||
		chat.InfoText != "house rules" || chat.CurrentInfo != "sprint 12" {
		t.Fatalf("settings lost across upserts: %+v", chat)
	}

	// Clearing the pin keeps the rest.
	if err := s.SetPinMessageID(ctx, chatID, nil); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	chat, _ = s.Chat(ctx, chatID)
	if chat.PinMessageID != nil || chat.Mode != ModeAuto {
		t.Fatalf("clear pin clobbered settings: %+v", chat)
	}
}

func TestChatUsersDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertChatUser(ctx, -1, 10, "alice", "Alice A"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertChatUser(ctx, -1, 10, "alice_new", "Alice B"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := s.UpsertChatUser(ctx, -1, 11, "bob", "Bob"); err != nil {
		t.Fatalf("upsert bob: %v", err)
	}

	users, err := s.ChatUsers(ctx, -1)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 directory entries, got %d", len(users))
	}
	for _, u := range users {
		if u.UserID == 10 && u.Username != "alice_new" {
			t.Fatalf("upsert did not refresh username: %+v", u)
		}
	}
}

func TestPeriodStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	chatID := int64(-7)

	a, _ := s.CreateTask(ctx, chatID, 1, "a", "one")
	b, _ := s.CreateTask(ctx, chatID, 1, "a", "two")
	_ = s.OpenTask(ctx, a)
	_ = s.OpenTask(ctx, b)
	_ = s.CloseTask(ctx, b)

	ps, err := s.PeriodStats(ctx, chatID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("period stats: %v", err)
	}
	if ps.Created != 2 || ps.Closed != 1 {
		t.Fatalf("period = %+v, want 2 created / 1 closed", ps)
	}

	ps, _ = s.PeriodStats(ctx, chatID, time.Now().Add(time.Hour))
	if ps.Created != 0 || ps.Closed != 0 {
		t.Fatalf("future cutoff = %+v, want zeros", ps)
	}
}

func TestChatScans(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	open, _ := s.CreateTask(ctx, -1, 1, "a", "open one")
	_ = s.OpenTask(ctx, open)
	closedOnly, _ := s.CreateTask(ctx, -2, 1, "a", "closed one")
	_ = s.CloseTask(ctx, closedOnly)
	_ = s.SetChatMode(ctx, -3, ModeAuto) // settings row, no tasks

	withOpen, err := s.ChatsWithOpenTasks(ctx)
	if err != nil {
		t.Fatalf("chats with open tasks: %v", err)
	}
	if len(withOpen) != 1 || withOpen[0] != -1 {
		t.Fatalf("chats with open tasks = %v, want [-1]", withOpen)
	}

	all, err := s.AllChatIDs(ctx)
	if err != nil {
		t.Fatalf("all chat ids: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all chat ids = %v, want 3 chats", all)
	}
}

func TestResetChat(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	chatID := int64(-9)

	_, _ = s.CreateTask(ctx, chatID, 1, "a", "x")
	_, _ = s.CreateTask(ctx, chatID, 2, "b", "y")
	_ = s.SetChatMode(ctx, chatID, ModeAuto)
	_ = s.UpsertChatUser(ctx, chatID, 1, "a", "A")
	keep, _ := s.CreateTask(ctx, -10, 3, "c", "keep")

	deleted, err := s.ResetChat(ctx, chatID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	stats, _ := s.ChatStats(ctx, chatID)
	if stats.Open != 0 || stats.Closed != 0 {
		t.Fatalf("chat not empty after reset: %+v", stats)
	}
	chat, _ := s.Chat(ctx, chatID)
	if chat.Mode != ModeManual {
		t.Fatalf("settings survived reset: %+v", chat)
	}
	if _, err := s.Task(ctx, keep); err != nil {
		t.Fatalf("reset leaked into another chat: %v", err)
	}
}

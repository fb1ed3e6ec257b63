package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform"
	"github.com/sipeed/taskpin/pkg/store"
)

// Callback data prefixes shared with the handler layer.
const (
	CallbackCreate = "create_"
	CallbackClose  = "close_"
	CallbackReopen = "reopen_"
)

// Outcome reports how a lifecycle transition resolved. The store
// mutation happened only for OutcomeApplied; the rejections are
// idempotency guards and cause no side effects.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyOpen
	OutcomeAlreadyClosed
	OutcomeUnknownTask
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyOpen:
		return "already open"
	case OutcomeAlreadyClosed:
		return "already closed"
	case OutcomeUnknownTask:
		return "unknown task"
	default:
		return "unknown outcome"
	}
}

// Action carries the context of a button press invoking a transition.
type Action struct {
	TaskID    int64
	ChatID    int64
	MessageID int  // the message carrying the pressed button
	InTopic   bool // the press happened inside a task's forum thread
	ActorID   int64
	ActorName string
}

func createButton(taskID int64) platform.Keyboard {
	return platform.Row(platform.Button{Text: "📝 Create task", Data: CallbackCreate + strconv.FormatInt(taskID, 10)})
}

func closeButton(taskID int64) platform.Keyboard {
	return platform.Row(platform.Button{Text: "✅ Close task", Data: CallbackClose + strconv.FormatInt(taskID, 10)})
}

func reopenButton(taskID int64) platform.Keyboard {
	return platform.Row(platform.Button{Text: "♻️ Reopen", Data: CallbackReopen + strconv.FormatInt(taskID, 10)})
}

// Activate moves a task from new to open. The status check and mutation
// run under the task lock; platform side effects run after release.
func (e *Engine) Activate(ctx context.Context, act Action) (Outcome, error) {
	lk := e.locks.Get(taskKey(act.TaskID))
	lk.Lock()

	status, err := e.st.TaskStatus(ctx, act.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		lk.Unlock()
		return OutcomeUnknownTask, nil
	}
	if err != nil {
		lk.Unlock()
		return 0, err
	}
	switch status {
	case store.StatusOpen:
		lk.Unlock()
		return OutcomeAlreadyOpen, nil
	case store.StatusClosed:
		lk.Unlock()
		return OutcomeAlreadyClosed, nil
	}

	if err := e.st.OpenTask(ctx, act.TaskID); err != nil {
		lk.Unlock()
		return 0, err
	}
	lk.Unlock()

	logger.InfoCF("tracker", "Task activated", map[string]interface{}{
		"task_id": act.TaskID,
		"chat_id": act.ChatID,
		"actor":   act.ActorName,
	})

	e.editMarkup(ctx, act.ChatID, act.MessageID, closeButton(act.TaskID))
	e.ScheduleRefresh(act.ChatID)

	chat, err := e.st.Chat(ctx, act.ChatID)
	if err == nil && chat.TopicEnabled {
		// Topic creation talks to the platform; keep it off the hot path
		// and outside any lock.
		e.spawn(func() {
			e.createTaskTopic(context.Background(), act.ChatID, act.TaskID, act.MessageID)
		})
	}
	return OutcomeApplied, nil
}

// Close moves a task to closed. The five post-conditions (both button
// edits, topic deletion, acknowledgment, summary refresh) are attempted
// independently; one failing never blocks the rest.
func (e *Engine) Close(ctx context.Context, act Action) (Outcome, error) {
	lk := e.locks.Get(taskKey(act.TaskID))
	lk.Lock()

	task, err := e.st.Task(ctx, act.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		lk.Unlock()
		return OutcomeUnknownTask, nil
	}
	if err != nil {
		lk.Unlock()
		return 0, err
	}
	if task.Status == store.StatusClosed {
		lk.Unlock()
		return OutcomeAlreadyClosed, nil
	}

	if err := e.st.CloseTask(ctx, act.TaskID); err != nil {
		lk.Unlock()
		return 0, err
	}
	lk.Unlock()

	logger.InfoCF("tracker", "Task closed", map[string]interface{}{
		"task_id": act.TaskID,
		"chat_id": act.ChatID,
		"actor":   act.ActorName,
	})

	e.editMarkup(ctx, act.ChatID, act.MessageID, reopenButton(act.TaskID))
	if act.InTopic && task.MessageID != nil && *task.MessageID != act.MessageID {
		e.editMarkup(ctx, act.ChatID, *task.MessageID, reopenButton(act.TaskID))
	}
	if task.TopicID != nil {
		e.deleteTaskTopic(ctx, act.ChatID, act.TaskID, *task.TopicID)
	}
	e.ScheduleRefresh(act.ChatID)
	return OutcomeApplied, nil
}

// Reopen moves a closed task back to open and clears closed_at.
func (e *Engine) Reopen(ctx context.Context, act Action) (Outcome, error) {
	lk := e.locks.Get(taskKey(act.TaskID))
	lk.Lock()

	task, err := e.st.Task(ctx, act.TaskID)
	if errors.Is(err, store.ErrNotFound) {
		lk.Unlock()
		return OutcomeUnknownTask, nil
	}
	if err != nil {
		lk.Unlock()
		return 0, err
	}
	if task.Status != store.StatusClosed {
		lk.Unlock()
		return OutcomeAlreadyOpen, nil
	}

	if err := e.st.OpenTask(ctx, act.TaskID); err != nil {
		lk.Unlock()
		return 0, err
	}
	lk.Unlock()

	logger.InfoCF("tracker", "Task reopened", map[string]interface{}{
		"task_id": act.TaskID,
		"chat_id": act.ChatID,
		"actor":   act.ActorName,
	})

	e.editMarkup(ctx, act.ChatID, act.MessageID, closeButton(act.TaskID))
	if task.MessageID != nil && *task.MessageID != act.MessageID {
		e.editMarkup(ctx, act.ChatID, *task.MessageID, closeButton(act.TaskID))
	}
	e.ScheduleRefresh(act.ChatID)

	chat, err := e.st.Chat(ctx, act.ChatID)
	if err == nil && chat.TopicEnabled && task.MessageID != nil {
		source := *task.MessageID
		e.spawn(func() {
			e.createTaskTopic(context.Background(), act.ChatID, act.TaskID, source)
		})
	}
	return OutcomeApplied, nil
}

// editMarkup updates a message's buttons, arming a per-message backoff
// retry when the platform throttles the edit.
func (e *Engine) editMarkup(ctx context.Context, chatID int64, messageID int, kb platform.Keyboard) {
	err := e.client.EditReplyMarkup(ctx, chatID, messageID, kb)
	if err == nil || errors.Is(err, platform.ErrNotModified) {
		return
	}
	if wait, ok := platform.AsRateLimited(err); ok {
		e.retry.Arm(markupRetryKey(chatID, messageID), wait, func() {
			e.editMarkup(context.Background(), chatID, messageID, kb)
		})
		return
	}
	logger.WarnCF("tracker", "Button update failed", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"error":      err.Error(),
	})
}

func (e *Engine) createTaskTopic(ctx context.Context, chatID, taskID int64, sourceMessageID int) {
	threadID, err := e.client.CreateTopic(ctx, chatID, fmt.Sprintf("Task #%d", taskID))
	if err != nil {
		logger.WarnCF("tracker", "Topic creation failed", map[string]interface{}{
			"task_id": taskID,
			"chat_id": chatID,
			"error":   err.Error(),
		})
		return
	}
	if err := e.st.SetTaskTopicID(ctx, taskID, &threadID); err != nil {
		logger.WarnCF("tracker", "Topic id not persisted", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}

	caption := ""
	if task, err := e.st.Task(ctx, taskID); err == nil {
		caption = cardText(task.Username, "", task.Text)
	}
	if _, err := e.client.CopyMessage(ctx, chatID, sourceMessageID, threadID, caption, closeButton(taskID)); err != nil {
		logger.WarnCF("tracker", "Copy into topic failed", map[string]interface{}{
			"task_id":   taskID,
			"thread_id": threadID,
			"error":     err.Error(),
		})
		return
	}
	logger.InfoCF("tracker", "Topic created for task", map[string]interface{}{
		"task_id":   taskID,
		"thread_id": threadID,
	})
}

func (e *Engine) deleteTaskTopic(ctx context.Context, chatID, taskID int64, threadID int) {
	if err := e.client.DeleteTopic(ctx, chatID, threadID); err != nil {
		// Stale thread ids are normal (someone removed the topic by
		// hand); anything else is logged and skipped.
		if !errors.Is(err, platform.ErrNotFound) {
			logger.WarnCF("tracker", "Topic deletion failed", map[string]interface{}{
				"task_id":   taskID,
				"thread_id": threadID,
				"error":     err.Error(),
			})
		}
	}
	if err := e.st.SetTaskTopicID(ctx, taskID, nil); err != nil {
		logger.WarnCF("tracker", "Topic id not cleared", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
}

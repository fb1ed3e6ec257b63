// Package tracker implements the core of the bot: the task lifecycle
// state machine, the debounced pinned-summary reconciler, the summary
// renderer, and the supporting flows (reset, broadcast, digest).
//
// Concurrency model: inbound events run in parallel, but every state
// transition for a task happens under that task's lock and every
// pinned-summary rewrite for a chat happens under that chat's lock.
// There is deliberately no ordering across different tasks or chats.
package tracker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sipeed/taskpin/pkg/debounce"
	"github.com/sipeed/taskpin/pkg/keylock"
	"github.com/sipeed/taskpin/pkg/logger"
	"github.com/sipeed/taskpin/pkg/platform"
	"github.com/sipeed/taskpin/pkg/store"
)

// Options tune the engine. Zero values fall back to sane defaults.
type Options struct {
	RefreshDelay     time.Duration // debounce window for summary rewrites
	RetryMargin      time.Duration // pad on top of platform retry-after hints
	MessageThrottle  time.Duration // min interval per chat+user for messages
	CallbackThrottle time.Duration // min interval per chat+user for button presses
	PreviewLength    int           // rune budget for task previews in the summary
	ResetWindow      time.Duration // how long a reset confirmation stays valid
}

func (o *Options) fill() {
	if o.RefreshDelay <= 0 {
		o.RefreshDelay = 700 * time.Millisecond
	}
	if o.RetryMargin <= 0 {
		o.RetryMargin = time.Second
	}
	if o.MessageThrottle <= 0 {
		o.MessageThrottle = 800 * time.Millisecond
	}
	if o.CallbackThrottle <= 0 {
		o.CallbackThrottle = 500 * time.Millisecond
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = 60
	}
	if o.ResetWindow <= 0 {
		o.ResetWindow = 30 * time.Second
	}
}

// Engine wires the store, the platform client, and the in-memory
// coordination state together.
type Engine struct {
	st     *store.Store
	client platform.Client
	opts   Options

	locks    *keylock.Map
	refresh  *debounce.Scheduler[int64]
	retry    *debounce.Retry[string]
	throttle *Throttle

	resetMu      sync.Mutex
	resetPending map[resetKey]time.Time

	// background tracks fire-and-forget side effects (topic creation,
	// message deletion) so Stop and tests can wait them out.
	background sync.WaitGroup
}

type resetKey struct {
	ChatID int64
	UserID int64
}

// NewEngine creates a fully wired engine.
func NewEngine(st *store.Store, client platform.Client, opts Options) *Engine {
	opts.fill()
	e := &Engine{
		st:           st,
		client:       client,
		opts:         opts,
		locks:        keylock.New(),
		retry:        debounce.NewRetry[string](opts.RetryMargin),
		throttle:     NewThrottle(),
		resetPending: make(map[resetKey]time.Time),
	}
	e.refresh = debounce.NewScheduler(opts.RefreshDelay, func(chatID int64) {
		if err := e.Refresh(context.Background(), chatID); err != nil {
			logger.WarnCF("tracker", "Deferred summary refresh failed", map[string]interface{}{
				"chat_id": chatID,
				"error":   err.Error(),
			})
		}
	})
	return e
}

// Stop cancels pending timers and waits for in-flight background side
// effects. Pending refreshes are abandoned; the store is re-reconciled
// on the next start.
func (e *Engine) Stop() {
	e.refresh.Stop()
	e.retry.Stop()
	e.background.Wait()
}

// Wait blocks until background side effects settle. Test hook.
func (e *Engine) Wait() {
	e.background.Wait()
}

// ScheduleRefresh arms (or re-arms) the debounced summary rewrite for a
// chat. Bursts inside the delay window collapse into one execution.
func (e *Engine) ScheduleRefresh(chatID int64) {
	e.refresh.Trigger(chatID)
}

// Refresh rewrites the pinned summary immediately, serialized per chat.
func (e *Engine) Refresh(ctx context.Context, chatID int64) error {
	lk := e.locks.Get(chatKey(chatID))
	lk.Lock()
	defer lk.Unlock()
	return e.reconcile(ctx, chatID)
}

func (e *Engine) spawn(fn func()) {
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		fn()
	}()
}

func taskKey(id int64) string { return "task:" + strconv.FormatInt(id, 10) }
func chatKey(id int64) string { return "chat:" + strconv.FormatInt(id, 10) }

// Retry keys: one per chat for summary rewrites, one per message for
// button edits, so a throttled chat never starves an unrelated message.
func chatRetryKey(chatID int64) string {
	return "pin:" + strconv.FormatInt(chatID, 10)
}

func markupRetryKey(chatID int64, messageID int) string {
	return fmt.Sprintf("markup:%d:%d", chatID, messageID)
}

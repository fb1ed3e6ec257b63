package telegram

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mymmrac/telego/telegoapi"

	"github.com/sipeed/taskpin/pkg/platform"
)

func apiErr(code int, desc string) *telegoapi.Error {
	return &telegoapi.Error{ErrorCode: code, Description: desc}
}

func TestMapErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil passes through", nil, nil},
		{
			"not modified",
			apiErr(400, "Bad Request: message is not modified"),
			platform.ErrNotModified,
		},
		{
			"edit target gone",
			apiErr(400, "Bad Request: message to edit not found"),
			platform.ErrNotFound,
		},
		{
			"delete target gone",
			apiErr(400, "Bad Request: message to delete not found"),
			platform.ErrNotFound,
		},
		{
			"uneditable message",
			apiErr(400, "Bad Request: message can't be edited"),
			platform.ErrNotFound,
		},
		{
			"dead topic thread",
			apiErr(400, "Bad Request: TOPIC_DELETED"),
			platform.ErrNotFound,
		},
		{
			"chat gone",
			apiErr(400, "Bad Request: chat not found"),
			platform.ErrNotFound,
		},
		{
			"kicked from chat",
			apiErr(403, "Forbidden: bot was kicked from the supergroup chat"),
			platform.ErrForbidden,
		},
		{
			"missing rights",
			apiErr(400, "Bad Request: not enough rights to manage pinned messages in the chat"),
			platform.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("mapError = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("mapError(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapErrorRateLimit(t *testing.T) {
	in := &telegoapi.Error{
		ErrorCode:   429,
		Description: "Too Many Requests: retry after 17",
		Parameters:  &telegoapi.ResponseParameters{RetryAfter: 17},
	}
	got := mapError(in)
	wait, ok := platform.AsRateLimited(got)
	if !ok {
		t.Fatalf("mapError(429) = %v, want rate limit", got)
	}
	if wait != 17*time.Second {
		t.Fatalf("retry after = %s, want 17s", wait)
	}
}

func TestMapErrorRateLimitWithoutHint(t *testing.T) {
	got := mapError(apiErr(429, "Too Many Requests"))
	wait, ok := platform.AsRateLimited(got)
	if !ok {
		t.Fatalf("mapError(429) = %v, want rate limit", got)
	}
	if wait != time.Second {
		t.Fatalf("default retry after = %s, want 1s", wait)
	}
}

func TestMapErrorWrappedAndUnknown(t *testing.T) {
	wrapped := fmt.Errorf("call editMessageText: %w", apiErr(400, "Bad Request: message is not modified"))
	if got := mapError(wrapped); !errors.Is(got, platform.ErrNotModified) {
		t.Fatalf("wrapped api error not unwrapped: %v", got)
	}

	unknown := apiErr(400, "Bad Request: reply markup is too long")
	if got := mapError(unknown); !errors.Is(got, unknown) {
		t.Fatalf("unknown api error must pass through, got %v", got)
	}

	plain := errors.New("dial tcp: connection refused")
	if got := mapError(plain); got != plain {
		t.Fatalf("non-api error must pass through untouched, got %v", got)
	}
}

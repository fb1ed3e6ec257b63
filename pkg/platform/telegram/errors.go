package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego/telegoapi"

	"github.com/sipeed/taskpin/pkg/platform"
)

// mapError translates a raw Bot API error into the platform taxonomy.
// Telegram reports most edit failures only through the description text,
// so the prose matching is confined to this one place.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *telegoapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.ErrorCode == 429 {
		wait := time.Second
		if apiErr.Parameters != nil && apiErr.Parameters.RetryAfter > 0 {
			wait = time.Duration(apiErr.Parameters.RetryAfter) * time.Second
		}
		return &platform.RateLimitedError{RetryAfter: wait}
	}

	desc := strings.ToLower(apiErr.Description)
	switch {
	case strings.Contains(desc, "message is not modified"):
		return platform.ErrNotModified
	case strings.Contains(desc, "message to edit not found"),
		strings.Contains(desc, "message to delete not found"),
		strings.Contains(desc, "message to copy not found"),
		strings.Contains(desc, "message can't be edited"),
		strings.Contains(desc, "message not found"),
		strings.Contains(desc, "topic_deleted"),
		strings.Contains(desc, "message thread not found"),
		strings.Contains(desc, "chat not found"):
		return fmt.Errorf("%w: %s", platform.ErrNotFound, apiErr.Description)
	}

	if apiErr.ErrorCode == 403 ||
		strings.Contains(desc, "not enough rights") ||
		strings.Contains(desc, "can't be pinned") {
		return fmt.Errorf("%w: %s", platform.ErrForbidden, apiErr.Description)
	}

	return err
}

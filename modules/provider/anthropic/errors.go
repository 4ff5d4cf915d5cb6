package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/ytclab/ytcbot/internal/provider"
)

// statusKinds maps HTTP statuses onto provider sentinels. 529 is the
// Anthropic "overloaded" status.
var statusKinds = map[int]error{
	http.StatusTooManyRequests:     provider.ErrRateLimit,
	http.StatusUnauthorized:        provider.ErrAuth,
	http.StatusForbidden:           provider.ErrAuth,
	http.StatusInternalServerError: provider.ErrProviderDown,
	http.StatusBadGateway:          provider.ErrProviderDown,
	http.StatusServiceUnavailable:  provider.ErrProviderDown,
	http.StatusGatewayTimeout:      provider.ErrProviderDown,
	529:                            provider.ErrProviderDown,
}

// classifyError tags an SDK error with the matching provider sentinel.
// Errors that did not come from the API, such as a cancelled context,
// are returned unchanged.
func classifyError(err error) error {
	var apiErr *sdkanthropic.Error
	if err == nil || !errors.As(err, &apiErr) {
		return err
	}
	if kind, ok := statusKinds[apiErr.StatusCode]; ok {
		return errors.Join(kind, err)
	}
	if apiErr.StatusCode == http.StatusBadRequest && promptTooLong(apiErr.RawJSON()) {
		return errors.Join(provider.ErrContextLength, err)
	}
	return fmt.Errorf("%s: HTTP %d: %w", moduleID, apiErr.StatusCode, err)
}

var overflowHints = []string{"prompt is too long", "context length", "too many tokens", "token limit"}

// promptTooLong inspects an error body such as
// {"type":"error","error":{"type":"invalid_request_error","message":"..."}}.
func promptTooLong(raw string) bool {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := raw
	if json.Unmarshal([]byte(raw), &body) == nil {
		if body.Error.Type != "invalid_request_error" {
			return false
		}
		msg = body.Error.Message
	}
	msg = strings.ToLower(msg)
	for _, hint := range overflowHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ytclab/ytcbot/internal/provider"
	"google.golang.org/genai"
)

// mapError translates SDK errors onto the provider sentinels.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("gemini: %w", err)
		}
		apiErr = *ptr
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, apiErr.Message)
	case apiErr.Code >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, apiErr.Code, apiErr.Message)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrAuth, apiErr.Code, apiErr.Message)
	case apiErr.Code == http.StatusBadRequest && isContextLength(apiErr.Message):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, apiErr.Message)
	case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key"):
		return fmt.Errorf("%w: %s", provider.ErrAuth, apiErr.Message)
	default:
		return fmt.Errorf("gemini error (HTTP %d): %s", apiErr.Code, apiErr.Message)
	}
}

func isContextLength(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "token count") ||
		strings.Contains(lower, "exceeds the maximum") ||
		strings.Contains(lower, "context length")
}

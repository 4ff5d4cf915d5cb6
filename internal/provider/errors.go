package provider

import "errors"

// Provider failures are classified with these sentinels so the failover
// set and the metrics can act on the kind of failure without knowing the
// vendor. Adapters wrap them around the vendor error.
var (
	ErrRateLimit     = errors.New("provider rate limited")
	ErrContextLength = errors.New("context length exceeded")
	ErrProviderDown  = errors.New("provider unavailable")
	ErrAuth          = errors.New("provider authentication failed")

	// ErrAllProviders is returned by Failover once no entry could answer.
	ErrAllProviders = errors.New("all providers failed")
	ErrNoProvider   = errors.New("no provider configured")
)

// IsRetryable reports whether another provider, or the same one later,
// may succeed where this call failed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}

var reasons = []struct {
	sentinel error
	label    string
}{
	{ErrRateLimit, "rate_limited"},
	{ErrProviderDown, "unavailable"},
	{ErrAuth, "auth"},
	{ErrContextLength, "context_length"},
	{ErrAllProviders, "exhausted"},
}

// Reason maps err to a short label for logs and metrics. Errors outside
// the sentinels above are reported as "error".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.sentinel) {
			return r.label
		}
	}
	return "error"
}

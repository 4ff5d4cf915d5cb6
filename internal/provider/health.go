package provider

import (
	"sync"
	"time"
)

// Cooldown sets how long a provider is skipped after transient failures.
// The wait starts at Initial and doubles with each consecutive failure up
// to Max. Zero values mean 1s and 60s.
type Cooldown struct {
	Initial time.Duration `yaml:"initial"`
	Max     time.Duration `yaml:"max"`
}

func (c Cooldown) withDefaults() Cooldown {
	if c.Initial <= 0 {
		c.Initial = time.Second
	}
	if c.Max <= 0 {
		c.Max = time.Minute
	}
	return c
}

// backoff tracks one provider's failure streak. There is no open state:
// once the wait has elapsed the provider gets the next request again.
type backoff struct {
	policy Cooldown
	clock  func() time.Time

	// onChange fires outside the lock when the provider starts cooling
	// down (true) or recovers (false).
	onChange func(coolingDown bool)

	mu     sync.Mutex
	streak int
	wait   time.Duration
	until  time.Time
}

func newBackoff(policy Cooldown) *backoff {
	return &backoff{policy: policy.withDefaults(), clock: time.Now}
}

func (b *backoff) available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.clock().Before(b.until)
}

func (b *backoff) succeeded() {
	b.mu.Lock()
	wasFailing := b.streak > 0
	b.streak, b.wait, b.until = 0, 0, time.Time{}
	b.mu.Unlock()

	if wasFailing && b.onChange != nil {
		b.onChange(false)
	}
}

func (b *backoff) failed() {
	b.mu.Lock()
	b.streak++
	b.wait = min(max(b.wait*2, b.policy.Initial), b.policy.Max)
	b.until = b.clock().Add(b.wait)
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(true)
	}
}

// state returns the failure streak and the current wait.
func (b *backoff) state() (int, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streak, b.wait
}

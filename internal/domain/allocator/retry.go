package allocator

import (
	"context"
	"time"
)

// Config bounds retries of the reservation transaction.
type Config struct {
	// MaxAttempts is how many times a transaction that hit a lock timeout or
	// serialization conflict is tried before the sequence is reported
	// unavailable.
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// MaxSequenceHops caps how many different sequences one request may try
	// after refusals or number conflicts.
	MaxSequenceHops int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     4,
		BaseBackoff:     25 * time.Millisecond,
		MaxBackoff:      400 * time.Millisecond,
		MaxSequenceHops: 3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = max(d.MaxBackoff, c.BaseBackoff)
	}
	if c.MaxSequenceHops <= 0 {
		c.MaxSequenceHops = d.MaxSequenceHops
	}
	return c
}

// backoff doubles per attempt and is capped at MaxBackoff.
func (c Config) backoff(attempt int) time.Duration {
	d := c.BaseBackoff << (attempt - 1)
	if d <= 0 || d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

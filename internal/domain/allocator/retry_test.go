package allocator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	c := Config{BaseBackoff: 10 * time.Millisecond, MaxBackoff: 50 * time.Millisecond}.withDefaults()

	assert.Equal(t, 10*time.Millisecond, c.backoff(1))
	assert.Equal(t, 20*time.Millisecond, c.backoff(2))
	assert.Equal(t, 40*time.Millisecond, c.backoff(3))
	assert.Equal(t, 50*time.Millisecond, c.backoff(4))
	assert.Equal(t, 50*time.Millisecond, c.backoff(70))
}

func TestWithDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), c)
}

package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstPerClient(t *testing.T) {
	l := NewLimiter(1, 3)

	for range 3 {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Clients())
}

func TestLimiterMinimumBurst(t *testing.T) {
	l := NewLimiter(1, 0)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "rl:ip:10.0.0.1:auth", Key("10.0.0.1", ClassAuth))
	assert.Equal(t, "rl:ip:__1:api", Key("::1", ClassAPI))
	assert.NotEqual(t, Key("a:auth", ClassAPI), Key("a", ClassAuth))
}

func TestNewResult(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limit := Limit{Max: 5, Window: time.Minute}
	reset := now.Add(40 * time.Second)

	t.Run("last admission", func(t *testing.T) {
		r := NewResult(limit, Window{Count: 5, ResetAt: reset}, now)
		assert.True(t, r.Allowed)
		assert.Equal(t, 0, r.Remaining)
		assert.Zero(t, r.RetryAfter)
	})

	t.Run("over the limit", func(t *testing.T) {
		r := NewResult(limit, Window{Count: 6, ResetAt: reset}, now)
		assert.False(t, r.Allowed)
		assert.Equal(t, 0, r.Remaining)
		assert.Equal(t, 40*time.Second, r.RetryAfter)
	})

	t.Run("retry after never rounds to zero", func(t *testing.T) {
		r := NewResult(limit, Window{Count: 6, ResetAt: now}, now)
		assert.Equal(t, time.Second, r.RetryAfter)
	})
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	assert.Equal(t, Limit{Max: 100, Window: 15 * time.Minute}, limits[ClassAPI])
	assert.Equal(t, Limit{Max: 20, Window: 15 * time.Minute}, limits[ClassAuth])
	assert.Equal(t, Limit{Max: 12, Window: time.Minute}, limits[ClassTelemetry])

	limits[ClassAPI] = Limit{Max: 1, Window: time.Second}
	assert.Equal(t, 100, DefaultLimits()[ClassAPI].Max, "callers get a copy")
}

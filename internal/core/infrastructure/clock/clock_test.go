package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/executive/internal/core/infrastructure/clock"
)

func TestManualClock(t *testing.T) {
	// Arrange
	base := time.Unix(1_700_000_000, 0)
	c := clock.NewManualClock(base)

	// Act
	c.Advance(6 * time.Second)

	// Assert
	assert.Equal(t, base.Add(6*time.Second), c.Now())
	assert.Equal(t, 6*time.Second, c.Since(base))

	c.Set(base)
	assert.Equal(t, base, c.Now())
}

func TestNowFunc(t *testing.T) {
	t.Run("空时钟", func(t *testing.T) {
		assert.Nil(t, clock.NowFunc(nil))
	})

	t.Run("手动时钟", func(t *testing.T) {
		base := time.Unix(42, 0)
		now := clock.NowFunc(clock.NewManualClock(base))
		assert.Equal(t, base, now())
	})

	t.Run("系统时钟", func(t *testing.T) {
		before := time.Now()
		got := clock.NewSystemClock().Now()
		assert.False(t, got.Before(before))
	})
}

// Package clock 提供系统时钟与可手动推进的时钟
package clock

import (
	"sync"
	"time"

	"go.uber.org/fx"

	clockif "github.com/weisyn/executive/pkg/interfaces/infrastructure/clock"
)

// SystemClock 使用系统真实时间
type SystemClock struct{}

// NewSystemClock 创建系统时钟
func NewSystemClock() clockif.Clock { return SystemClock{} }

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// ManualClock 时间只在调用 Advance / Set 时变化
type ManualClock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewManualClock 创建手动时钟
func NewManualClock(initial time.Time) *ManualClock {
	return &ManualClock{current: initial}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *ManualClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// Advance 推进时间
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// Set 直接设置当前时间
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

var (
	_ clockif.Clock = SystemClock{}
	_ clockif.Clock = (*ManualClock)(nil)
)

// NowFunc 把时钟转换为 func() time.Time，nil 时返回 nil
func NowFunc(c clockif.Clock) func() time.Time {
	if c == nil {
		return nil
	}
	return c.Now
}

// Module 提供系统时钟
func Module() fx.Option {
	return fx.Module("clock",
		fx.Provide(NewSystemClock),
	)
}

package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/executive/internal/config/event"
	"github.com/weisyn/executive/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("默认配置", func(t *testing.T) {
		options := event.New(nil).GetOptions()

		assert.True(t, options.Enabled)
		assert.True(t, options.Transactional)
		assert.Equal(t, 64, options.MaxSubscribers)
	})

	t.Run("用户配置覆盖默认值", func(t *testing.T) {
		cfg := event.New(&types.UserEventConfig{
			Enabled:        types.BoolPtr(false),
			MaxSubscribers: types.IntPtr(0),
		})

		assert.False(t, cfg.IsEnabled())
		assert.True(t, cfg.GetOptions().Transactional)
		assert.Zero(t, cfg.GetOptions().MaxSubscribers)
	})

	t.Run("负数上限被忽略", func(t *testing.T) {
		cfg := event.New(&types.UserEventConfig{MaxSubscribers: types.IntPtr(-1)})

		assert.Equal(t, 64, cfg.GetOptions().MaxSubscribers)
	})
}

// 基于 asaskevich/EventBus 的事件总线实现

package event

import (
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	eventconfig "github.com/weisyn/executive/internal/config/event"
	eventiface "github.com/weisyn/executive/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// EventBus 对 asaskevich/EventBus 的封装
//
// 在底层总线之上增加：
// - 配置开关（未启用时订阅静默成功、发布直接丢弃）
// - 单主题订阅者上限
// - 发布计数
type EventBus struct {
	bus     evbus.Bus
	options *eventconfig.EventOptions
	logger  log.Logger

	subMu       sync.Mutex
	subscribers map[eventiface.EventType]int

	published atomic.Uint64
}

var _ eventiface.EventBus = (*EventBus)(nil)

// New 创建事件总线；options 为 nil 时使用默认配置
func New(options *eventconfig.EventOptions, logger log.Logger) *EventBus {
	if options == nil {
		options = eventconfig.New(nil).GetOptions()
	}
	return &EventBus{
		bus:         evbus.New(),
		options:     options,
		logger:      logger,
		subscribers: make(map[eventiface.EventType]int),
	}
}

func (eb *EventBus) reserve(eventType eventiface.EventType) error {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()
	if limit := eb.options.MaxSubscribers; limit > 0 && eb.subscribers[eventType] >= limit {
		return fmt.Errorf("主题 %s 订阅者已达上限 %d", eventType, limit)
	}
	eb.subscribers[eventType]++
	return nil
}

func (eb *EventBus) release(eventType eventiface.EventType) {
	eb.subMu.Lock()
	defer eb.subMu.Unlock()
	if eb.subscribers[eventType] > 0 {
		eb.subscribers[eventType]--
	}
}

func (eb *EventBus) subscribe(eventType eventiface.EventType, register func() error) error {
	if !eb.options.Enabled {
		return nil
	}
	if err := eb.reserve(eventType); err != nil {
		return err
	}
	if err := register(); err != nil {
		eb.release(eventType)
		return err
	}
	return nil
}

// Subscribe 实现订阅
func (eb *EventBus) Subscribe(eventType eventiface.EventType, handler interface{}) error {
	return eb.subscribe(eventType, func() error {
		return eb.bus.Subscribe(string(eventType), handler)
	})
}

// SubscribeAsync 实现异步订阅；配置要求串行时忽略 transactional=false
func (eb *EventBus) SubscribeAsync(eventType eventiface.EventType, handler interface{}, transactional bool) error {
	return eb.subscribe(eventType, func() error {
		return eb.bus.SubscribeAsync(string(eventType), handler, transactional || eb.options.Transactional)
	})
}

// SubscribeOnce 实现一次性订阅；不计入订阅者上限
func (eb *EventBus) SubscribeOnce(eventType eventiface.EventType, handler interface{}) error {
	if !eb.options.Enabled {
		return nil
	}
	return eb.bus.SubscribeOnce(string(eventType), handler)
}

// Publish 实现发布
func (eb *EventBus) Publish(eventType eventiface.EventType, args ...interface{}) {
	if !eb.options.Enabled {
		return
	}
	eb.published.Add(1)
	if eb.logger != nil {
		eb.logger.Debugf("发布事件: %s", eventType)
	}
	eb.bus.Publish(string(eventType), args...)
}

// PublishEvent 发布 Event 接口类型事件
func (eb *EventBus) PublishEvent(e eventiface.Event) {
	eb.Publish(e.Type(), e.Data())
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType eventiface.EventType, handler interface{}) error {
	if !eb.options.Enabled {
		return nil
	}
	if err := eb.bus.Unsubscribe(string(eventType), handler); err != nil {
		return err
	}
	eb.release(eventType)
	return nil
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType eventiface.EventType) bool {
	if !eb.options.Enabled {
		return false
	}
	return eb.bus.HasCallback(string(eventType))
}

// Published 已发布事件总数
func (eb *EventBus) Published() uint64 {
	return eb.published.Load()
}

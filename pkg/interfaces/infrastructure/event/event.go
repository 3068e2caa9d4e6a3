// Package event 事件总线接口定义
//
// 🎯 **事件总线 (Event Bus)**
//
// 主题为字符串形式的 EventType；处理器是任意函数，参数与 Publish 的 args 一一对应。
// 业务事件类型由各业务模块定义，基础设施只保留系统级事件。
package event

// EventType 事件主题
type EventType string

// Event 自描述事件
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Data 返回事件数据
	Data() interface{}
}

// EventBus 事件总线接口
//
// 注意：事件总线由 DI 容器管理生命周期，停止时等待异步处理完成。
type EventBus interface {
	// Subscribe 同步订阅，处理器在 Publish 的调用方 goroutine 中执行
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅；transactional 为 true 时同一处理器串行执行
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// SubscribeOnce 一次性订阅
	SubscribeOnce(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// PublishEvent 发布 Event 接口类型事件，处理器接收 Data()
	PublishEvent(event Event)
	// Unsubscribe 取消订阅
	Unsubscribe(eventType EventType, handler interface{}) error
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有订阅者
	HasCallback(eventType EventType) bool
}

// Package clock 定义出块时间戳使用的时间源接口
package clock

import "time"

// Clock 时间源
//
// 链服务与 timestamp 模块只通过该接口取时间，测试可替换为手动时钟。
type Clock interface {
	// Now 获取当前时间
	Now() time.Time

	// Since 计算从指定时间到现在的持续时间
	Since(t time.Time) time.Duration
}

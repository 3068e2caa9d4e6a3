// Package log 定义执行器使用的日志记录接口
//
// 所有组件只依赖该接口，具体实现基于 zap（见 internal/core/infrastructure/log）。
// 组件构造时日志记录器为可选依赖，使用前需判空。
package log

import "go.uber.org/zap"

// Logger 定义日志记录器接口
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	Fatal(msg string)
	Fatalf(format string, args ...interface{})

	// With 返回一个带有额外字段的 Logger（键值对）
	With(args ...interface{}) Logger

	// Sync 同步日志缓冲区到输出
	Sync() error

	// GetZapLogger 获取原始的 zap 日志记录器
	GetZapLogger() *zap.Logger
}

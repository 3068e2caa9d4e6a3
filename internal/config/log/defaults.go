package log

import (
	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	// defaultLogLevel 默认日志级别
	defaultLogLevel = "info"

	// defaultToConsole 默认输出到控制台
	defaultToConsole = true

	// defaultLogFileName 数据目录下的日志文件名
	defaultLogFileName = "executive.log"

	// === 轮转配置 ===

	// defaultMaxSize 单个日志文件最大 100MB
	defaultMaxSize = 100

	// defaultMaxBackups 最多保留 10 个备份
	defaultMaxBackups = 10

	// defaultMaxAge 保留 30 天
	defaultMaxAge = 30

	// defaultCompress 压缩历史日志
	defaultCompress = true

	// === 调试配置 ===

	defaultEnableCaller     = true
	defaultEnableStacktrace = true
)

// 默认的日志级别映射
var defaultLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}

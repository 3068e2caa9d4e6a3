// Package testutil 提供执行器测试的辅助工具
//
// 🧪 **测试辅助工具包**
//
// 本包提供测试所需的 Mock 对象、开发账户与完整运行时环境，用于简化测试代码编写。
package testutil

import (
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/executive/pkg/types"
)

// ==================== Mock 对象 ====================

// MockLogger 统一的日志Mock实现
//
// ✅ **设计原则**：最小实现，所有方法返回空值，不记录日志
type MockLogger struct{}

func (m *MockLogger) Debug(msg string)                          {}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Info(msg string)                           {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warn(msg string)                           {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Error(msg string)                          {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) Fatal(msg string)                          {}
func (m *MockLogger) Fatalf(format string, args ...interface{}) {}
func (m *MockLogger) With(args ...interface{}) log.Logger       { return m }
func (m *MockLogger) Sync() error                               { return nil }
func (m *MockLogger) GetZapLogger() *zap.Logger                 { return zap.NewNop() }

// MockMetrics 记录执行器上报的指标，便于断言
type MockMetrics struct {
	mu          sync.Mutex
	Blocks      map[types.ExecutionMode][]bool
	Outcomes    map[types.OutcomeKind]int
	Dropped     map[types.ValidityErrorKind]int
	Validations map[bool]int
	Weights     map[types.DispatchClass]types.Weight
}

// NewMockMetrics 创建指标记录 Mock
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Blocks:      make(map[types.ExecutionMode][]bool),
		Outcomes:    make(map[types.OutcomeKind]int),
		Dropped:     make(map[types.ValidityErrorKind]int),
		Validations: make(map[bool]int),
		Weights:     make(map[types.DispatchClass]types.Weight),
	}
}

func (m *MockMetrics) ObserveBlock(mode types.ExecutionMode, ok bool, _ float64, _ types.Weight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Blocks[mode] = append(m.Blocks[mode], ok)
}

func (m *MockMetrics) ObserveOutcome(kind types.OutcomeKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[kind]++
}

func (m *MockMetrics) ObserveDropped(kind types.ValidityErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dropped[kind]++
}

func (m *MockMetrics) ObserveValidation(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Validations[ok]++
}

func (m *MockMetrics) ObserveWeight(class types.DispatchClass, weight types.Weight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Weights[class] += weight
}

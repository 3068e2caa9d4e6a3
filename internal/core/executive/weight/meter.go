// Package weight 实现区块权重计量
package weight

import (
	"fmt"

	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/pkg/types"
)

// Meter 区块权重计量器
//
// 每个执行上下文持有独立的 Meter，非并发安全。
type Meter struct {
	limits   types.WeightLimits
	consumed types.Weight
	perClass [3]types.Weight
}

var _ interfaces.WeightMeter = (*Meter)(nil)

// NewMeter 创建计量器
func NewMeter(limits types.WeightLimits) *Meter {
	m := &Meter{}
	m.Reset(limits)
	return m
}

// Reset 清空已消耗权重并设置新上限
func (m *Meter) Reset(limits types.WeightLimits) {
	if limits.Operational < limits.Soft {
		limits.Operational = limits.Soft
	}
	if limits.Hard < limits.Operational {
		limits.Hard = limits.Operational
	}
	m.limits = limits
	m.consumed = 0
	m.perClass = [3]types.Weight{}
}

// Check 判断 amount 能否计入，不修改计量器
func (m *Meter) Check(amount types.Weight, class types.DispatchClass) error {
	next := types.SaturatingAdd(m.consumed, amount)
	limit := m.limits.For(class)
	if next > limit {
		return fmt.Errorf("%w: %s 类已消耗 %d + %d > 上限 %d", types.ErrOverweight, class, m.consumed, amount, limit)
	}
	return nil
}

// Add 计入权重；超限时返回 ErrOverweight 且不计入
func (m *Meter) Add(amount types.Weight, class types.DispatchClass) error {
	if err := m.Check(amount, class); err != nil {
		return err
	}
	m.consumed = types.SaturatingAdd(m.consumed, amount)
	if int(class) < len(m.perClass) {
		m.perClass[class] = types.SaturatingAdd(m.perClass[class], amount)
	}
	return nil
}

func (m *Meter) Consumed() types.Weight { return m.consumed }

// ConsumedBy 指定类别累计消耗
func (m *Meter) ConsumedBy(class types.DispatchClass) types.Weight {
	if int(class) >= len(m.perClass) {
		return 0
	}
	return m.perClass[class]
}

func (m *Meter) Limits() types.WeightLimits { return m.limits }

// Remaining 指定类别的剩余额度
func (m *Meter) Remaining(class types.DispatchClass) types.Weight {
	return types.SaturatingSub(m.limits.For(class), m.consumed)
}

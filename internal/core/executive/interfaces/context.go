// Package interfaces 定义执行器内部组件之间的接口与共享的执行上下文
//
// 🎯 **执行上下文**
// 每次 ExecuteBlock / AuthorBlock 调用创建一个 ExecutionContext，
// 在初始化、交易应用、终结三个阶段之间传递。执行器服务本身不保存任何区块级状态。
package interfaces

import (
	"time"

	"github.com/google/uuid"

	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ExecutionContext 单个区块的执行上下文，实现 executive.Env
type ExecutionContext struct {
	// ID 执行关联 ID，用于日志
	ID string

	Mode   types.ExecutionMode
	Parent types.ChainHead

	// Header 校验模式为待校验的区块头，出块模式为骨架区块头
	Header *types.Header

	Storage storage.State
	Meter   WeightMeter

	// BaseWeight 区块固定开销 + 初始化钩子权重
	BaseWeight types.Weight

	// Transactions 已应用（Applied）的交易，按应用顺序
	Transactions []*types.Transaction
	Outcomes     []types.Outcome
	Events       []types.EventRecord

	// Digest 摘要累加器，初始化时带入 PreRuntime 条目
	Digest []types.DigestItem

	StartedAt time.Time

	phase           types.EventPhase
	txIndex         int
	seenNonInherent bool
}

var _ executiveif.Env = (*ExecutionContext)(nil)

// NewExecutionContext 创建执行上下文
func NewExecutionContext(mode types.ExecutionMode, parent types.ChainHead, header *types.Header, state storage.State, meter WeightMeter) *ExecutionContext {
	return &ExecutionContext{
		ID:        uuid.NewString(),
		Mode:      mode,
		Parent:    parent,
		Header:    header,
		Storage:   state,
		Meter:     meter,
		StartedAt: time.Now(),
		phase:     types.PhaseInitialization,
	}
}

// BlockNumber 实现 Env
func (c *ExecutionContext) BlockNumber() types.BlockNumber { return c.Header.Number }

// ParentHash 实现 Env
func (c *ExecutionContext) ParentHash() types.Hash { return c.Header.ParentHash }

// State 实现 Env
func (c *ExecutionContext) State() storage.State { return c.Storage }

// DepositEvent 按当前阶段记录事件
func (c *ExecutionContext) DepositEvent(event types.Event) {
	rec := types.EventRecord{Phase: c.phase, Event: event}
	if c.phase == types.PhaseApplyTransaction {
		rec.TransactionIndex = c.txIndex
	}
	c.Events = append(c.Events, rec)
}

// DepositLog 追加摘要条目
func (c *ExecutionContext) DepositLog(item types.DigestItem) {
	c.Digest = append(c.Digest, item)
}

// EnterPhase 切换事件阶段；txIndex 仅在 PhaseApplyTransaction 下有意义
func (c *ExecutionContext) EnterPhase(phase types.EventPhase, txIndex int) {
	c.phase = phase
	c.txIndex = txIndex
}

// Phase 当前阶段
func (c *ExecutionContext) Phase() types.EventPhase { return c.phase }

// TruncateEvents 丢弃 n 之后的事件（分发失败时撤销模块已写入的事件）
func (c *ExecutionContext) TruncateEvents(n int) {
	if n < len(c.Events) {
		c.Events = c.Events[:n]
	}
}

// SeenNonInherent 是否已应用过非固有交易
func (c *ExecutionContext) SeenNonInherent() bool { return c.seenNonInherent }

// MarkNonInherent 记录已应用非固有交易
func (c *ExecutionContext) MarkNonInherent() { c.seenNonInherent = true }

// WeightConsumed 区块总权重 = 固定开销 + 交易消耗
func (c *ExecutionContext) WeightConsumed() types.Weight {
	if c.Meter == nil {
		return c.BaseWeight
	}
	return types.SaturatingAdd(c.BaseWeight, c.Meter.Consumed())
}

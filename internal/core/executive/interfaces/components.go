package interfaces

import (
	"context"

	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// WeightMeter 区块权重计量
//
// - Normal 类：consumed+amount ≤ Soft
// - Operational 类：consumed+amount ≤ Operational
// - Mandatory 类：可越过软上限，consumed+amount ≤ Hard
// 累加饱和，不会溢出回绕。
type WeightMeter interface {
	Reset(limits types.WeightLimits)

	// Add 记录权重，超出对应类别上限时返回 ErrOverweight 且不记录
	Add(amount types.Weight, class types.DispatchClass) error

	// Check 与 Add 相同的判断，但不记录
	Check(amount types.Weight, class types.DispatchClass) error

	Consumed() types.Weight
	ConsumedBy(class types.DispatchClass) types.Weight
	Limits() types.WeightLimits

	// Remaining 指定类别剩余可用权重
	Remaining(class types.DispatchClass) types.Weight
}

// TransactionValidator 交易池校验
type TransactionValidator interface {
	// Validate 在 number 高度的上下文中校验交易，永不修改 state
	Validate(ctx context.Context, state storage.State, number types.BlockNumber, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error)
}

// TransactionApplicator 区块内交易应用
type TransactionApplicator interface {
	// Apply 应用一笔交易
	//
	// 返回错误时（有效性错误或 ErrOverweight）状态与上下文均未被修改；
	// 模块错误不返回 error，记录为 ModuleFailed。
	Apply(ctx context.Context, ectx *ExecutionContext, tx *types.Transaction, index int) (types.Outcome, error)
}

// BlockInitializer 区块初始化
type BlockInitializer interface {
	Initialize(ctx context.Context, state storage.State, parent types.ChainHead, header *types.Header, mode types.ExecutionMode) (*ExecutionContext, error)
}

// BlockFinalizer 区块终结
type BlockFinalizer interface {
	// Finalize 运行终结钩子并计算/校验根，返回最终区块头
	Finalize(ctx context.Context, ectx *ExecutionContext) (*types.Header, error)
}

// MetricsRecorder 执行指标记录（可选依赖）
type MetricsRecorder interface {
	ObserveBlock(mode types.ExecutionMode, ok bool, seconds float64, weight types.Weight)
	ObserveOutcome(kind types.OutcomeKind)
	ObserveDropped(kind types.ValidityErrorKind)
	ObserveValidation(ok bool)
	ObserveWeight(class types.DispatchClass, weight types.Weight)
}

package executive

import (
	"context"

	"github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// TransactionSupplier 出块模式下的交易来源
type TransactionSupplier interface {
	// Next 返回下一笔交易；ok=false 表示已耗尽
	Next(ctx context.Context) (tx *types.Transaction, ok bool)
}

// DropReporter 可选：交易因有效性错误被排除时通知来源
type DropReporter interface {
	Dropped(tx *types.Transaction, err *types.ValidityError)
}

// Executive 区块执行器
//
// 实例不持有区块级可变状态：每次调用构建独立的执行上下文，
// 不同候选区块可在各自的状态视图上并行执行。
type Executive interface {
	// CheckInherents 导入前按本地策略检查区块中的固有交易，不读写状态
	//
	// 结果取决于节点本地环境（时钟），因此不属于 ExecuteBlock 的确定性判定。
	CheckInherents(ctx context.Context, block *types.Block) error

	// ExecuteBlock 校验模式执行区块：全部成功或全部回滚
	ExecuteBlock(ctx context.Context, state storage.State, parent types.ChainHead, block *types.Block) (*types.BlockResult, error)

	// AuthorBlock 出块模式：从 supplier 拉取交易直到耗尽或权重用尽
	AuthorBlock(ctx context.Context, state storage.State, parent types.ChainHead, skeleton *types.Header, supplier TransactionSupplier) (*types.AuthoredBlock, error)

	// ValidateTransaction 交易池校验，不影响链状态
	ValidateTransaction(ctx context.Context, state storage.State, parent types.ChainHead, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error)

	// OffchainWorker 区块提交后的链下任务，只读，失败只记录日志
	OffchainWorker(ctx context.Context, state storage.Reader, header *types.Header)
}

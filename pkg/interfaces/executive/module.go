// Package executive 定义区块执行器对外暴露的操作及其协作者接口
//
// 🎯 **协作者**
// - Module：注册到运行时的业务模块（生命周期钩子 + 可选能力）
// - Dispatcher：按 Call.Module 路由业务调用
// - Codec：交易/区块头的确定性编码与交易根
// - NonceKeeper / FeeCharger / SignatureVerifier：账户相关检查
// - TransactionSupplier：出块模式下的交易来源
package executive

import (
	"context"

	"github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Env 模块在钩子与分发期间可见的区块环境
type Env interface {
	// BlockNumber 正在执行的区块高度
	BlockNumber() types.BlockNumber

	// ParentHash 父区块哈希
	ParentHash() types.Hash

	// State 当前状态视图
	State() storage.State

	// DepositEvent 写入区块内事件日志（钩子阶段使用；分发阶段通过返回值上报事件）
	DepositEvent(event types.Event)

	// DepositLog 写入区块头摘要
	DepositLog(item types.DigestItem)
}

// Module 运行时模块
//
// OnInitialize 按注册顺序调用，OnFinalize 按注册顺序的严格逆序调用。
// 钩子失败被视为运行时不变量被破坏，区块执行随即失败。
type Module interface {
	Name() string

	// OnInitialize 返回钩子消耗的权重
	OnInitialize(ctx context.Context, env Env) (types.Weight, error)

	OnFinalize(ctx context.Context, env Env) error
}

// Dispatchable 提供可分发调用的模块
type Dispatchable interface {
	Module

	// CallInfo 返回调用的静态分发信息；未知函数返回 UnknownModule 有效性错误
	CallInfo(call types.Call) (types.DispatchInfo, error)

	// Dispatch 执行业务逻辑；业务失败返回 *types.DispatchError
	Dispatch(ctx context.Context, env Env, origin types.Origin, call types.Call) ([]types.Event, error)
}

// CallValidator 模块特定的静态可接受性检查（签名交易）
type CallValidator interface {
	ValidateCall(ctx context.Context, state storage.Reader, origin types.Origin, call types.Call) error
}

// UnsignedValidator 无签名交易的校验能力
type UnsignedValidator interface {
	ValidateUnsigned(ctx context.Context, state storage.Reader, number types.BlockNumber, call types.Call) (*types.ValidTransaction, error)
}

// InherentChecker 固有交易的本地策略检查（如时钟偏移）
//
// 检查依赖节点本地环境，不在 ExecuteBlock 内执行，由导入方在执行前调用。
type InherentChecker interface {
	CheckInherent(ctx context.Context, call types.Call) error
}

// OffchainWorker 区块提交后运行的链下任务，只读
type OffchainWorker interface {
	OffchainWorker(ctx context.Context, state storage.Reader, header *types.Header) error
}

// Dispatcher 调用路由
type Dispatcher interface {
	CallInfo(call types.Call) (types.DispatchInfo, error)
	Dispatch(ctx context.Context, env Env, origin types.Origin, call types.Call) ([]types.Event, error)
}

// Registry 有序模块注册表
type Registry interface {
	Dispatcher

	// Hooks 返回初始化顺序的模块列表
	Hooks() []Module

	// ReverseHooks 返回严格逆序的模块列表（用于 OnFinalize）
	ReverseHooks() []Module

	// Module 按名称查找模块
	Module(name string) (Module, bool)
}

// BlockContextRecorder 初始化阶段记录区块高度与父哈希（system 模块）
type BlockContextRecorder interface {
	RecordBlockContext(state storage.State, number types.BlockNumber, parentHash types.Hash) error
}

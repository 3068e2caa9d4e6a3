package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// MockModuleName 模拟模块名
const MockModuleName = "mock"

// 模拟模块的调用
const (
	MockCallOK    = "ok"    // 写入 mock:touched 并返回事件
	MockCallFail  = "fail"  // 写入 mock:touched、写入事件后返回模块错误
	MockCallHeavy = "heavy" // 参数为权重，Normal 类
	MockCallOps   = "ops"   // 参数为权重，Operational 类
	MockCallForce = "force" // 强制类，分发时失败
	MockCallRaw   = "raw"   // 返回非 DispatchError 的错误
)

// MockTouchedKey 模拟分发写入的键
var MockTouchedKey = []byte("mock:touched")

// ErrMock 模拟模块错误
var ErrMock = types.NewDispatchError(MockModuleName, 1, "模拟失败")

// MockModule 可配置行为的测试模块
type MockModule struct {
	InitWeight   types.Weight
	InitErr      error
	FinalizeErr  error
	InitDigest   *types.DigestItem
	WorkerErr    error
	WorkerPanic  bool
	WorkerCalls  atomic.Int32
	WorkerWrites atomic.Int32
}

var (
	_ executiveif.Dispatchable   = (*MockModule)(nil)
	_ executiveif.OffchainWorker = (*MockModule)(nil)
)

func (m *MockModule) Name() string { return MockModuleName }

func (m *MockModule) OnInitialize(_ context.Context, env executiveif.Env) (types.Weight, error) {
	if m.InitErr != nil {
		return 0, m.InitErr
	}
	if m.InitDigest != nil {
		env.DepositLog(*m.InitDigest)
	}
	env.DepositEvent(types.Event{Module: MockModuleName, Name: "Initialized"})
	return m.InitWeight, nil
}

func (m *MockModule) OnFinalize(_ context.Context, env executiveif.Env) error {
	if m.FinalizeErr != nil {
		return m.FinalizeErr
	}
	env.DepositEvent(types.Event{Module: MockModuleName, Name: "Finalized"})
	return nil
}

func (m *MockModule) CallInfo(call types.Call) (types.DispatchInfo, error) {
	switch call.Function {
	case MockCallOK, MockCallFail, MockCallRaw:
		return types.DispatchInfo{Weight: 1_000, Class: types.ClassNormal, PaysFee: types.PaysYes}, nil
	case MockCallHeavy, MockCallOps:
		var w uint64
		if err := rlp.DecodeBytes(call.Args, &w); err != nil {
			return types.DispatchInfo{}, types.NewValidityError(types.InvalidCall, "参数错误: %v", err)
		}
		class := types.ClassNormal
		if call.Function == MockCallOps {
			class = types.ClassOperational
		}
		return types.DispatchInfo{Weight: w, Class: class, PaysFee: types.PaysYes}, nil
	case MockCallForce:
		return types.DispatchInfo{Weight: 1_000, Class: types.ClassMandatory, PaysFee: types.PaysNo}, nil
	default:
		return types.DispatchInfo{}, types.NewValidityError(types.UnknownModule, "未知调用 %s", call)
	}
}

func (m *MockModule) Dispatch(_ context.Context, env executiveif.Env, _ types.Origin, call types.Call) ([]types.Event, error) {
	if err := env.State().Set(MockTouchedKey, []byte(call.Function)); err != nil {
		return nil, err
	}
	switch call.Function {
	case MockCallFail, MockCallForce:
		env.DepositEvent(types.Event{Module: MockModuleName, Name: "Touched"})
		return nil, ErrMock
	case MockCallRaw:
		return nil, errors.New("模拟原始错误")
	default:
		return []types.Event{{Module: MockModuleName, Name: "Done"}}, nil
	}
}

// OffchainWorker 记录调用次数，并尝试写入只读视图
func (m *MockModule) OffchainWorker(_ context.Context, state storage.Reader, _ *types.Header) error {
	m.WorkerCalls.Add(1)
	if m.WorkerPanic {
		panic("模拟链下任务 panic")
	}
	if w, ok := state.(storage.State); ok {
		if err := w.Set(MockTouchedKey, []byte("offchain")); err == nil {
			m.WorkerWrites.Add(1)
		}
	}
	return m.WorkerErr
}

// MockCall 构造模拟调用
func MockCall(function string) types.Call {
	return types.Call{Module: MockModuleName, Function: function}
}

// MockWeightCall 构造带权重参数的模拟调用
func MockWeightCall(function string, weight types.Weight) types.Call {
	args, _ := rlp.EncodeToBytes(weight)
	return types.Call{Module: MockModuleName, Function: function, Args: args}
}

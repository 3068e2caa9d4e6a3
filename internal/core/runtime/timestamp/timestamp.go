// Package timestamp 时间戳固有交易模块
//
// 出块方在每个区块开头注入 timestamp.set(now)：
// - 每个区块至多一次
// - 必须严格大于上一区块的时间戳
// - 导入前的本地检查（CheckInherent）要求不超前本地时钟 MaxDrift，
//   该检查不属于区块执行
package timestamp

import (
	"context"
	"time"

	"github.com/weisyn/executive/internal/core/runtime/support"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ModuleName 模块名
const ModuleName = "timestamp"

// CallSet 唯一的调用
const CallSet = "set"

// EventSet 时间戳更新事件
const EventSet = "Set"

// MaxDrift 允许的时钟超前量
const MaxDrift = 30 * time.Second

const setWeight types.Weight = 10_000

// 模块错误
var (
	ErrAlreadySet   = types.NewDispatchError(ModuleName, 1, "本区块时间戳已设置")
	ErrNotIncreased = types.NewDispatchError(ModuleName, 2, "时间戳必须递增")
)

// SetArgs set 参数，单位毫秒
type SetArgs struct {
	Now uint64
}

// Module 时间戳模块
type Module struct {
	clock func() time.Time
}

var (
	_ executive.Dispatchable    = (*Module)(nil)
	_ executive.InherentChecker = (*Module)(nil)
)

// New 创建时间戳模块；clock 为 nil 时使用系统时钟
func New(clock func() time.Time) *Module {
	if clock == nil {
		clock = time.Now
	}
	return &Module{clock: clock}
}

func (m *Module) Name() string { return ModuleName }

func nowKey() []byte       { return support.Key(ModuleName, "now") }
func didUpdateKey() []byte { return support.Key(ModuleName, "did_update") }

// Now 最近一次设置的时间戳（毫秒）
func (m *Module) Now(state storage.Reader) (uint64, error) {
	return support.GetUint64(state, nowKey())
}

func (m *Module) OnInitialize(context.Context, executive.Env) (types.Weight, error) { return 0, nil }

// OnFinalize 清除本区块的更新标记
func (m *Module) OnFinalize(_ context.Context, env executive.Env) error {
	return env.State().Delete(didUpdateKey())
}

// CallInfo 强制类、免手续费
func (m *Module) CallInfo(call types.Call) (types.DispatchInfo, error) {
	if call.Function != CallSet {
		return types.DispatchInfo{}, support.UnknownCall(call)
	}
	return types.DispatchInfo{Weight: setWeight, Class: types.ClassMandatory, PaysFee: types.PaysNo}, nil
}

// CheckInherent 检查时间戳不超前本地时钟
func (m *Module) CheckInherent(_ context.Context, call types.Call) error {
	var args SetArgs
	if err := support.DecodeArgs(call, &args); err != nil {
		return err
	}
	limit := uint64(m.clock().Add(MaxDrift).UnixMilli())
	if args.Now > limit {
		return types.NewValidityError(types.InvalidCall, "时间戳 %d 超前本地时钟", args.Now)
	}
	return nil
}

// Dispatch 实现 Dispatchable
func (m *Module) Dispatch(_ context.Context, env executive.Env, origin types.Origin, call types.Call) ([]types.Event, error) {
	if call.Function != CallSet {
		return nil, support.UnknownCall(call)
	}
	if err := support.EnsureNone(ModuleName, origin, types.OriginInherent); err != nil {
		return nil, err
	}
	var args SetArgs
	if err := support.DecodeArgs(call, &args); err != nil {
		return nil, err
	}

	state := env.State()
	updated, err := support.Has(state, didUpdateKey())
	if err != nil {
		return nil, err
	}
	if updated {
		return nil, ErrAlreadySet
	}
	prev, err := m.Now(state)
	if err != nil {
		return nil, err
	}
	if args.Now <= prev {
		return nil, ErrNotIncreased
	}
	if err := support.PutUint64(state, nowKey(), args.Now); err != nil {
		return nil, err
	}
	if err := state.Set(didUpdateKey(), []byte{1}); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventSet, args)}, nil
}

// SetCall 构造 set 调用
func SetCall(nowMillis uint64) (types.Call, error) {
	return support.NewCall(ModuleName, CallSet, SetArgs{Now: nowMillis})
}

// Inherent 构造时间戳固有交易
func Inherent(nowMillis uint64) (*types.Transaction, error) {
	call, err := SetCall(nowMillis)
	if err != nil {
		return nil, err
	}
	return &types.Transaction{Call: call, Origin: types.Inherent()}, nil
}

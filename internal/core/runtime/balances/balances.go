// Package balances 余额模块：可用余额、保留余额、转账与手续费扣除
//
// 🎯 **存储**
// - balances:free:<account>      可用余额
// - balances:reserved:<account>  保留余额（staking 绑定）
// - balances:total_issuance      总发行量
// - balances:fee_pot             累计手续费
//
// 可用余额低于存在性押金（ED）的账户在转账后被回收，剩余的尘埃从总发行量中扣除。
package balances

import (
	"context"
	"fmt"

	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/runtime/support"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ModuleName 模块名
const ModuleName = "balances"

// 调用函数名
const (
	CallTransfer          = "transfer"
	CallTransferKeepAlive = "transfer_keep_alive"
)

// 事件名
const (
	EventTransfer = "Transfer"
	EventDustLost = "DustLost"
)

const (
	transferWeight          types.Weight = 200_000
	transferKeepAliveWeight types.Weight = 150_000
)

// 模块错误
var (
	ErrInsufficientBalance = types.NewDispatchError(ModuleName, 1, "余额不足")
	ErrExistentialDeposit  = types.NewDispatchError(ModuleName, 2, "余额低于存在性押金")
	ErrOverflow            = types.NewDispatchError(ModuleName, 3, "余额溢出")
)

// TransferArgs 转账参数
type TransferArgs struct {
	Dest  types.AccountID
	Value types.Balance
}

// TransferEvent 转账事件数据
type TransferEvent struct {
	From  types.AccountID
	To    types.AccountID
	Value types.Balance
}

// DustLostEvent 账户回收事件数据
type DustLostEvent struct {
	Account types.AccountID
	Amount  types.Balance
}

// Module 余额模块
type Module struct {
	existentialDeposit types.Balance
	logger             log.Logger
}

var (
	_ executive.Dispatchable  = (*Module)(nil)
	_ executive.CallValidator = (*Module)(nil)
	_ executive.FeeCharger    = (*Module)(nil)
)

// New 创建余额模块
func New(existentialDeposit types.Balance, logger log.Logger) *Module {
	return &Module{existentialDeposit: existentialDeposit, logger: logger}
}

func (m *Module) Name() string { return ModuleName }

// ExistentialDeposit 存在性押金
func (m *Module) ExistentialDeposit() types.Balance { return m.existentialDeposit }

func freeKey(who types.AccountID) []byte     { return support.Key(ModuleName, "free", who.Bytes()) }
func reservedKey(who types.AccountID) []byte { return support.Key(ModuleName, "reserved", who.Bytes()) }
func issuanceKey() []byte                    { return support.Key(ModuleName, "total_issuance") }
func feePotKey() []byte                      { return support.Key(ModuleName, "fee_pot") }

// FreeBalance 可用余额
func (m *Module) FreeBalance(state storage.Reader, who types.AccountID) (types.Balance, error) {
	return support.GetUint64(state, freeKey(who))
}

// ReservedBalance 保留余额
func (m *Module) ReservedBalance(state storage.Reader, who types.AccountID) (types.Balance, error) {
	return support.GetUint64(state, reservedKey(who))
}

// TotalIssuance 总发行量
func (m *Module) TotalIssuance(state storage.Reader) (types.Balance, error) {
	return support.GetUint64(state, issuanceKey())
}

// FeePot 累计收取的手续费
func (m *Module) FeePot(state storage.Reader) (types.Balance, error) {
	return support.GetUint64(state, feePotKey())
}

// Genesis 写入创世余额并累计总发行量
func (m *Module) Genesis(state storage.State, accounts []genesisconfig.Account) error {
	for _, acc := range accounts {
		if acc.Balance < m.existentialDeposit {
			return fmt.Errorf("创世账户 %s 余额 %d 低于存在性押金 %d", acc.Address.Hex(), acc.Balance, m.existentialDeposit)
		}
		if err := m.deposit(state, acc.Address, acc.Balance); err != nil {
			return err
		}
	}
	return nil
}

// deposit 铸造新余额
func (m *Module) deposit(state storage.State, who types.AccountID, amount types.Balance) error {
	free, err := m.FreeBalance(state, who)
	if err != nil {
		return err
	}
	issuance, err := m.TotalIssuance(state)
	if err != nil {
		return err
	}
	if free+amount < free || issuance+amount < issuance {
		return ErrOverflow
	}
	if err := support.PutUint64(state, freeKey(who), free+amount); err != nil {
		return err
	}
	return support.PutUint64(state, issuanceKey(), issuance+amount)
}

// CanWithdrawFee 实现 FeeCharger；扣费后余额不得落在 (0, ED) 区间
func (m *Module) CanWithdrawFee(state storage.Reader, who types.AccountID, fee types.Balance) error {
	free, err := m.FreeBalance(state, who)
	if err != nil {
		return err
	}
	if free < fee {
		return types.NewValidityError(types.InvalidPayment, "余额 %d 不足以支付手续费 %d", free, fee)
	}
	if rest := free - fee; rest != 0 && rest < m.existentialDeposit {
		return types.NewValidityError(types.InvalidPayment, "扣费后余额 %d 低于存在性押金 %d", rest, m.existentialDeposit)
	}
	return nil
}

// WithdrawFee 实现 FeeCharger；手续费计入 fee_pot，总发行量不变
func (m *Module) WithdrawFee(state storage.State, who types.AccountID, fee types.Balance) error {
	if err := m.CanWithdrawFee(state, who, fee); err != nil {
		return err
	}
	free, err := m.FreeBalance(state, who)
	if err != nil {
		return err
	}
	pot, err := m.FeePot(state)
	if err != nil {
		return err
	}
	if err := support.PutUint64(state, freeKey(who), free-fee); err != nil {
		return err
	}
	return support.PutUint64(state, feePotKey(), types.SaturatingAdd(pot, fee))
}

// Reserve 可用余额转入保留余额
func (m *Module) Reserve(state storage.State, who types.AccountID, amount types.Balance) error {
	free, err := m.FreeBalance(state, who)
	if err != nil {
		return err
	}
	if free < amount {
		return ErrInsufficientBalance
	}
	reserved, err := m.ReservedBalance(state, who)
	if err != nil {
		return err
	}
	if err := support.PutUint64(state, freeKey(who), free-amount); err != nil {
		return err
	}
	return support.PutUint64(state, reservedKey(who), types.SaturatingAdd(reserved, amount))
}

// Unreserve 保留余额转回可用余额，返回实际转回的数量
func (m *Module) Unreserve(state storage.State, who types.AccountID, amount types.Balance) (types.Balance, error) {
	reserved, err := m.ReservedBalance(state, who)
	if err != nil {
		return 0, err
	}
	if amount > reserved {
		amount = reserved
	}
	free, err := m.FreeBalance(state, who)
	if err != nil {
		return 0, err
	}
	if err := support.PutUint64(state, reservedKey(who), reserved-amount); err != nil {
		return 0, err
	}
	return amount, support.PutUint64(state, freeKey(who), types.SaturatingAdd(free, amount))
}

func (m *Module) OnInitialize(context.Context, executive.Env) (types.Weight, error) { return 0, nil }

func (m *Module) OnFinalize(context.Context, executive.Env) error { return nil }

// CallInfo 实现 Dispatchable
func (m *Module) CallInfo(call types.Call) (types.DispatchInfo, error) {
	switch call.Function {
	case CallTransfer:
		return types.DispatchInfo{Weight: transferWeight, Class: types.ClassNormal, PaysFee: types.PaysYes}, nil
	case CallTransferKeepAlive:
		return types.DispatchInfo{Weight: transferKeepAliveWeight, Class: types.ClassNormal, PaysFee: types.PaysYes}, nil
	default:
		return types.DispatchInfo{}, support.UnknownCall(call)
	}
}

// ValidateCall 参数可解码
func (m *Module) ValidateCall(_ context.Context, _ storage.Reader, _ types.Origin, call types.Call) error {
	switch call.Function {
	case CallTransfer, CallTransferKeepAlive:
		var args TransferArgs
		return support.DecodeArgs(call, &args)
	default:
		return support.UnknownCall(call)
	}
}

// Dispatch 实现 Dispatchable
func (m *Module) Dispatch(_ context.Context, env executive.Env, origin types.Origin, call types.Call) ([]types.Event, error) {
	from, err := support.EnsureSigned(ModuleName, origin)
	if err != nil {
		return nil, err
	}
	var args TransferArgs
	if err := support.DecodeArgs(call, &args); err != nil {
		return nil, err
	}
	switch call.Function {
	case CallTransfer:
		return m.transfer(env.State(), from, args.Dest, args.Value, false)
	case CallTransferKeepAlive:
		return m.transfer(env.State(), from, args.Dest, args.Value, true)
	default:
		return nil, support.UnknownCall(call)
	}
}

func (m *Module) transfer(state storage.State, from, to types.AccountID, value types.Balance, keepAlive bool) ([]types.Event, error) {
	transferred := support.NewEvent(ModuleName, EventTransfer, TransferEvent{From: from, To: to, Value: value})
	if from == to {
		return []types.Event{transferred}, nil
	}

	fromFree, err := m.FreeBalance(state, from)
	if err != nil {
		return nil, err
	}
	if fromFree < value {
		return nil, ErrInsufficientBalance
	}
	toFree, err := m.FreeBalance(state, to)
	if err != nil {
		return nil, err
	}
	toNew := toFree + value
	if toNew < toFree {
		return nil, ErrOverflow
	}
	if toNew < m.existentialDeposit {
		return nil, ErrExistentialDeposit
	}

	rest := fromFree - value
	var dust types.Balance
	if rest != 0 && rest < m.existentialDeposit {
		if keepAlive {
			return nil, ErrExistentialDeposit
		}
		reserved, err := m.ReservedBalance(state, from)
		if err != nil {
			return nil, err
		}
		if reserved == 0 {
			dust, rest = rest, 0
		}
	}

	if err := support.PutUint64(state, freeKey(from), rest); err != nil {
		return nil, err
	}
	if err := support.PutUint64(state, freeKey(to), toNew); err != nil {
		return nil, err
	}

	events := []types.Event{transferred}
	if dust > 0 {
		issuance, err := m.TotalIssuance(state)
		if err != nil {
			return nil, err
		}
		if err := support.PutUint64(state, issuanceKey(), types.SaturatingSub(issuance, dust)); err != nil {
			return nil, err
		}
		events = append(events, support.NewEvent(ModuleName, EventDustLost, DustLostEvent{Account: from, Amount: dust}))
		if m.logger != nil {
			m.logger.Debugf("账户 %s 被回收，尘埃 %d", from.Hex(), dust)
		}
	}
	return events, nil
}

// TransferCall 构造转账调用
func TransferCall(dest types.AccountID, value types.Balance) (types.Call, error) {
	return support.NewCall(ModuleName, CallTransfer, TransferArgs{Dest: dest, Value: value})
}

// TransferKeepAliveCall 构造保活转账调用
func TransferKeepAliveCall(dest types.AccountID, value types.Balance) (types.Call, error) {
	return support.NewCall(ModuleName, CallTransferKeepAlive, TransferArgs{Dest: dest, Value: value})
}

// Package staking 质押模块：绑定、解绑、验证人与提名人意向、纪元轮换
//
// 🎯 **纪元**
// 高度 1、1+B、1+2B ...（B = BlocksPerEra）的 OnInitialize 开启新纪元：
// 按支持额（自身活跃绑定额 + 提名人分摊的绑定额）选出验证人集合，
// 写入 Consensus 摘要（纪元序号 + 集合哈希）。
// 纪元起始区块在同一区块的 OnFinalize 中记录。
//
// 🎯 **资金**
// 绑定资金从可用余额转入保留余额；解绑后需等待 BondingDuration 个纪元，
// 再由 withdraw_unbonded 转回可用余额。
//
// 🎯 **意向**
// 同一资金账户要么是验证人候选，要么是提名人：validate 清除提名，nominate 清除验证人意向，
// chill 两者都清除。意向在下一纪元生效。
package staking

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/weisyn/executive/internal/core/runtime/support"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ModuleName 模块名
const ModuleName = "staking"

// EngineID 共识摘要引擎标识
var EngineID = types.NewEngineID("stak")

// 调用函数名
const (
	CallBond             = "bond"
	CallBondExtra        = "bond_extra"
	CallUnbond           = "unbond"
	CallWithdrawUnbonded = "withdraw_unbonded"
	CallValidate         = "validate"
	CallChill            = "chill"
	CallRebond           = "rebond"
	CallHeartbeat        = "heartbeat"
	CallNominate         = "nominate"
	CallSetPayee         = "set_payee"
	CallSetController    = "set_controller"
)

// 事件名
const (
	EventBonded          = "Bonded"
	EventUnbonded        = "Unbonded"
	EventWithdrawn       = "Withdrawn"
	EventValidating      = "Validating"
	EventChilled         = "Chilled"
	EventNominating      = "Nominating"
	EventHeartbeat       = "Heartbeat"
	EventStakingElection = "StakingElection"
)

// historyDepth 保留的历史纪元验证人集合数量
const historyDepth = 84

// MaxNominations 单个提名人最多提名的验证人数量，超出部分被截断
const MaxNominations = 16

var callWeights = map[string]types.Weight{
	CallBond:             500_000,
	CallBondExtra:        500_000,
	CallUnbond:           400_000,
	CallWithdrawUnbonded: 400_000,
	CallValidate:         750_000,
	CallChill:            500_000,
	CallRebond:           500_000,
	CallHeartbeat:        100_000,
	CallNominate:         750_000,
	CallSetPayee:         500_000,
	CallSetController:    750_000,
}

const (
	idleInitializeWeight types.Weight = 1_000
	eraRotationWeight    types.Weight = 1_000_000
	perValidatorWeight   types.Weight = 10_000
	heartbeatPriority    uint64       = 1 << 20
)

// 模块错误
var (
	ErrNotController      = types.NewDispatchError(ModuleName, 1, "不是控制账户")
	ErrNotStash           = types.NewDispatchError(ModuleName, 2, "不是资金账户")
	ErrAlreadyBonded      = types.NewDispatchError(ModuleName, 3, "资金账户已绑定")
	ErrAlreadyPaired      = types.NewDispatchError(ModuleName, 4, "控制账户已配对")
	ErrInsufficientValue  = types.NewDispatchError(ModuleName, 5, "绑定金额低于最小值")
	ErrNoMoreChunks       = types.NewDispatchError(ModuleName, 6, "解绑分块已达上限")
	ErrNoUnlockChunk      = types.NewDispatchError(ModuleName, 7, "没有可重新绑定的解绑分块")
	ErrDuplicateHeartbeat = types.NewDispatchError(ModuleName, 8, "本纪元已提交心跳")
	ErrInvalidCommission  = types.NewDispatchError(ModuleName, 9, "佣金超过100%")
	ErrNoActiveEra        = types.NewDispatchError(ModuleName, 10, "没有活跃纪元")
	ErrEmptyTargets       = types.NewDispatchError(ModuleName, 11, "提名目标为空")
)

// Currency 绑定资金的余额操作（balances 模块）
type Currency interface {
	FreeBalance(state storage.Reader, who types.AccountID) (types.Balance, error)
	Reserve(state storage.State, who types.AccountID, amount types.Balance) error
	Unreserve(state storage.State, who types.AccountID, amount types.Balance) (types.Balance, error)
}

// Options 质押参数
type Options struct {
	BlocksPerEra    uint64
	BondingDuration uint64
	MinimumBond     types.Balance
	// MaxValidators 每个纪元最多选出的验证人，0 表示不限
	MaxValidators int
}

// 调用参数
type (
	BondArgs struct {
		Controller types.AccountID
		Value      types.Balance
	}
	ValueArgs struct {
		Value types.Balance
	}
	ValidateArgs struct {
		Commission uint64
	}
	HeartbeatArgs struct {
		Era EraIndex
	}
	NominateArgs struct {
		Targets []types.AccountID
	}
	PayeeArgs struct {
		Payee RewardDestination
	}
	ControllerArgs struct {
		Controller types.AccountID
	}
)

// 事件数据
type (
	AmountEvent struct {
		Stash  types.AccountID
		Amount types.Balance
	}
	StashEvent struct {
		Stash types.AccountID
	}
	HeartbeatEvent struct {
		Era   EraIndex
		Block types.BlockNumber
	}
	ElectionEvent struct {
		Era        EraIndex
		Validators uint64
	}
)

// Module 质押模块
type Module struct {
	options  Options
	currency Currency
	logger   log.Logger
}

var (
	_ executive.Dispatchable      = (*Module)(nil)
	_ executive.CallValidator     = (*Module)(nil)
	_ executive.UnsignedValidator = (*Module)(nil)
	_ executive.OffchainWorker    = (*Module)(nil)
)

// New 创建质押模块
func New(options Options, currency Currency, logger log.Logger) (*Module, error) {
	if currency == nil {
		return nil, fmt.Errorf("余额模块不能为空")
	}
	if options.BlocksPerEra == 0 {
		return nil, fmt.Errorf("blocks_per_era 必须大于0")
	}
	return &Module{options: options, currency: currency, logger: logger}, nil
}

func (m *Module) Name() string { return ModuleName }

// ==================== 存储 ====================

func bondedKey(stash types.AccountID) []byte      { return support.Key(ModuleName, "bonded", stash.Bytes()) }
func ledgerKey(controller types.AccountID) []byte { return support.Key(ModuleName, "ledger", controller.Bytes()) }
func prefsKey(stash types.AccountID) []byte       { return support.Key(ModuleName, "validators", stash.Bytes()) }
func nominationsKey(stash types.AccountID) []byte { return support.Key(ModuleName, "nominators", stash.Bytes()) }
func payeeKey(stash types.AccountID) []byte       { return support.Key(ModuleName, "payee", stash.Bytes()) }
func validatorListKey() []byte                    { return support.Key(ModuleName, "validator_list") }
func nominatorListKey() []byte                    { return support.Key(ModuleName, "nominator_list") }
func activeEraKey() []byte                        { return support.Key(ModuleName, "active_era") }

func electedKey(era EraIndex) []byte {
	return support.Key(ModuleName, "elected", support.Uint64Bytes(era))
}

func heartbeatKey(era EraIndex) []byte {
	return support.Key(ModuleName, "heartbeat", support.Uint64Bytes(era))
}

// Bonded 资金账户对应的控制账户
func (m *Module) Bonded(state storage.Reader, stash types.AccountID) (types.AccountID, bool, error) {
	var controller types.AccountID
	found, err := support.Get(state, bondedKey(stash), &controller)
	return controller, found, err
}

// Ledger 控制账户的账本
func (m *Module) Ledger(state storage.Reader, controller types.AccountID) (*Ledger, bool, error) {
	var l Ledger
	found, err := support.Get(state, ledgerKey(controller), &l)
	if err != nil || !found {
		return nil, found, err
	}
	return &l, true, nil
}

// ActiveEra 当前纪元；尚未开始时返回 false
func (m *Module) ActiveEra(state storage.Reader) (*ActiveEra, bool, error) {
	var era ActiveEra
	found, err := support.Get(state, activeEraKey(), &era)
	if err != nil || !found {
		return nil, found, err
	}
	return &era, true, nil
}

// Validators 有意向成为验证人的资金账户（按地址排序）
func (m *Module) Validators(state storage.Reader) ([]types.AccountID, error) {
	return accountList(state, validatorListKey())
}

// Nominators 提名人资金账户（按地址排序）
func (m *Module) Nominators(state storage.Reader) ([]types.AccountID, error) {
	return accountList(state, nominatorListKey())
}

// Nominations 资金账户当前的提名
func (m *Module) Nominations(state storage.Reader, stash types.AccountID) (*Nominations, bool, error) {
	var n Nominations
	found, err := support.Get(state, nominationsKey(stash), &n)
	if err != nil || !found {
		return nil, found, err
	}
	return &n, true, nil
}

// Payee 资金账户的收益去向；未设置时为 RewardStaked
func (m *Module) Payee(state storage.Reader, stash types.AccountID) (RewardDestination, error) {
	var payee RewardDestination
	if _, err := support.Get(state, payeeKey(stash), &payee); err != nil {
		return 0, err
	}
	return payee, nil
}

func accountList(state storage.Reader, key []byte) ([]types.AccountID, error) {
	var list []types.AccountID
	if _, err := support.Get(state, key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Elected 指定纪元选出的验证人集合
func (m *Module) Elected(state storage.Reader, era EraIndex) ([]types.AccountID, error) {
	var set []types.AccountID
	if _, err := support.Get(state, electedKey(era), &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (m *Module) currentEra(state storage.Reader) (EraIndex, error) {
	era, found, err := m.ActiveEra(state)
	if err != nil || !found {
		return 0, err
	}
	return era.Index, nil
}

func (m *Module) putLedger(state storage.State, controller types.AccountID, l *Ledger) error {
	return support.Put(state, ledgerKey(controller), l)
}

func (m *Module) setValidator(state storage.State, stash types.AccountID, prefs *ValidatorPrefs) error {
	if prefs == nil {
		return setEntry(state, validatorListKey(), prefsKey(stash), stash, nil)
	}
	return setEntry(state, validatorListKey(), prefsKey(stash), stash, prefs)
}

func (m *Module) setNominations(state storage.State, stash types.AccountID, n *Nominations) error {
	if n == nil {
		return setEntry(state, nominatorListKey(), nominationsKey(stash), stash, nil)
	}
	return setEntry(state, nominatorListKey(), nominationsKey(stash), stash, n)
}

// setEntry 写入（entry 非 nil）或删除 stash 的条目，并维护按地址排序的索引列表
func setEntry(state storage.State, listKey, entryKey []byte, stash types.AccountID, entry interface{}) error {
	list, err := accountList(state, listKey)
	if err != nil {
		return err
	}
	idx := sort.Search(len(list), func(i int) bool { return bytes.Compare(list[i][:], stash[:]) >= 0 })
	present := idx < len(list) && list[idx] == stash

	if entry != nil {
		if err := support.Put(state, entryKey, entry); err != nil {
			return err
		}
		if !present {
			list = append(list, types.AccountID{})
			copy(list[idx+1:], list[idx:])
			list[idx] = stash
		}
	} else {
		if err := state.Delete(entryKey); err != nil {
			return err
		}
		if !present {
			return nil
		}
		list = append(list[:idx], list[idx+1:]...)
	}
	if len(list) == 0 {
		return state.Delete(listKey)
	}
	return support.Put(state, listKey, list)
}

// chillStash 清除验证人与提名意向
func (m *Module) chillStash(state storage.State, stash types.AccountID) error {
	if err := m.setValidator(state, stash, nil); err != nil {
		return err
	}
	return m.setNominations(state, stash, nil)
}

// isEraStart 高度 1+k*BlocksPerEra 开启新纪元
func (m *Module) isEraStart(number types.BlockNumber) bool {
	return number >= 1 && (number-1)%m.options.BlocksPerEra == 0
}

// ==================== 生命周期钩子 ====================

// OnInitialize 在纪元边界轮换验证人集合
func (m *Module) OnInitialize(_ context.Context, env executive.Env) (types.Weight, error) {
	if !m.isEraStart(env.BlockNumber()) {
		return idleInitializeWeight, nil
	}
	state := env.State()

	prev, hadEra, err := m.ActiveEra(state)
	if err != nil {
		return 0, err
	}
	var index EraIndex
	if hadEra {
		index = prev.Index + 1
		if err := state.Delete(heartbeatKey(prev.Index)); err != nil {
			return 0, err
		}
	}

	elected, err := m.elect(state)
	if err != nil {
		return 0, fmt.Errorf("选举验证人失败: %w", err)
	}
	encoded, err := rlp.EncodeToBytes(elected)
	if err != nil {
		return 0, err
	}
	if err := state.Set(electedKey(index), encoded); err != nil {
		return 0, err
	}
	if index > historyDepth {
		if err := state.Delete(electedKey(index - historyDepth - 1)); err != nil {
			return 0, err
		}
	}
	if err := support.Put(state, activeEraKey(), &ActiveEra{Index: index}); err != nil {
		return 0, err
	}

	digest, err := rlp.EncodeToBytes(EraDigest{Era: index, SetHash: crypto.Keccak256Hash(encoded)})
	if err != nil {
		return 0, err
	}
	env.DepositLog(types.DigestItem{Kind: types.DigestConsensus, Engine: EngineID, Data: digest})
	env.DepositEvent(support.NewEvent(ModuleName, EventStakingElection, ElectionEvent{Era: index, Validators: uint64(len(elected))}))

	if m.logger != nil {
		m.logger.Infof("新纪元 %d 开始于区块 %d，验证人 %d 个", index, env.BlockNumber(), len(elected))
	}
	weight := types.SaturatingAdd(eraRotationWeight, types.SaturatingMul(uint64(len(elected)), perValidatorWeight))
	return weight, nil
}

// elect 按支持额降序选出验证人，相同支持额按地址升序
//
// 支持额 = 候选人自身活跃绑定额 + 提名人活跃绑定额在其有效目标间的均分（余数计入第一个目标）。
// 有效目标是绑定额不低于 MinimumBond 的候选人。
func (m *Module) elect(state storage.Reader) ([]types.AccountID, error) {
	candidates, err := m.Validators(state)
	if err != nil {
		return nil, err
	}
	backing := make(map[types.AccountID]types.Balance, len(candidates))
	eligible := make([]types.AccountID, 0, len(candidates))
	for _, stash := range candidates {
		active, err := m.activeStake(state, stash)
		if err != nil {
			return nil, err
		}
		if active < m.options.MinimumBond {
			continue
		}
		backing[stash] = active
		eligible = append(eligible, stash)
	}

	nominators, err := m.Nominators(state)
	if err != nil {
		return nil, err
	}
	for _, stash := range nominators {
		active, err := m.activeStake(state, stash)
		if err != nil {
			return nil, err
		}
		if active == 0 {
			continue
		}
		n, found, err := m.Nominations(state, stash)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		var targets []types.AccountID
		for _, target := range n.Targets {
			if _, ok := backing[target]; ok {
				targets = append(targets, target)
			}
		}
		if len(targets) == 0 {
			continue
		}
		share := active / types.Balance(len(targets))
		remainder := active % types.Balance(len(targets))
		for i, target := range targets {
			add := share
			if i == 0 {
				add += remainder
			}
			backing[target] = types.SaturatingAdd(backing[target], add)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := backing[eligible[i]], backing[eligible[j]]
		if a != b {
			return a > b
		}
		return bytes.Compare(eligible[i][:], eligible[j][:]) < 0
	})
	if m.options.MaxValidators > 0 && len(eligible) > m.options.MaxValidators {
		eligible = eligible[:m.options.MaxValidators]
	}
	return eligible, nil
}

// activeStake 资金账户账本中的活跃绑定额；未绑定时为 0
func (m *Module) activeStake(state storage.Reader, stash types.AccountID) (types.Balance, error) {
	controller, found, err := m.Bonded(state, stash)
	if err != nil || !found {
		return 0, err
	}
	l, found, err := m.Ledger(state, controller)
	if err != nil || !found {
		return 0, err
	}
	return l.Active, nil
}

// OnFinalize 记录新纪元的起始区块
func (m *Module) OnFinalize(_ context.Context, env executive.Env) error {
	state := env.State()
	era, found, err := m.ActiveEra(state)
	if err != nil || !found || era.Started {
		return err
	}
	era.Start = env.BlockNumber()
	era.Started = true
	return support.Put(state, activeEraKey(), era)
}

// OffchainWorker 记录选举状态；只读
func (m *Module) OffchainWorker(_ context.Context, state storage.Reader, header *types.Header) error {
	era, found, err := m.ActiveEra(state)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	elected, err := m.Elected(state, era.Index)
	if err != nil {
		return err
	}
	candidates, err := m.Validators(state)
	if err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Infof("区块 %d: 纪元 %d，已选验证人 %d 个，候选 %d 个", header.Number, era.Index, len(elected), len(candidates))
		if header.Number%m.options.BlocksPerEra == 0 {
			m.logger.Infof("纪元 %d 即将结束，下一区块进行选举", era.Index)
		}
	}
	return nil
}

// ==================== 调用 ====================

// CallInfo 固定权重
func (m *Module) CallInfo(call types.Call) (types.DispatchInfo, error) {
	w, ok := callWeights[call.Function]
	if !ok {
		return types.DispatchInfo{}, support.UnknownCall(call)
	}
	info := types.DispatchInfo{Weight: w, Class: types.ClassNormal, PaysFee: types.PaysYes}
	if call.Function == CallHeartbeat {
		info.PaysFee = types.PaysNo
	}
	return info, nil
}

func decodeCallArgs(call types.Call) (interface{}, error) {
	var args interface{}
	switch call.Function {
	case CallBond:
		args = &BondArgs{}
	case CallBondExtra, CallUnbond, CallRebond:
		args = &ValueArgs{}
	case CallValidate:
		args = &ValidateArgs{}
	case CallHeartbeat:
		args = &HeartbeatArgs{}
	case CallNominate:
		args = &NominateArgs{}
	case CallSetPayee:
		args = &PayeeArgs{}
	case CallSetController:
		args = &ControllerArgs{}
	case CallWithdrawUnbonded, CallChill:
		return nil, nil
	default:
		return nil, support.UnknownCall(call)
	}
	if err := support.DecodeArgs(call, args); err != nil {
		return nil, err
	}
	if a, ok := args.(*PayeeArgs); ok && a.Payee > RewardController {
		return nil, types.NewValidityError(types.InvalidCall, "未知收益去向: %d", a.Payee)
	}
	return args, nil
}

// ValidateCall 签名交易：参数可解码，且心跳只能以无签名交易提交
func (m *Module) ValidateCall(_ context.Context, _ storage.Reader, _ types.Origin, call types.Call) error {
	if call.Function == CallHeartbeat {
		return types.NewValidityError(types.InvalidCall, "心跳必须是无签名交易")
	}
	_, err := decodeCallArgs(call)
	return err
}

// ValidateUnsigned 心跳：只接受当前纪元，每个纪元一次
func (m *Module) ValidateUnsigned(_ context.Context, state storage.Reader, _ types.BlockNumber, call types.Call) (*types.ValidTransaction, error) {
	if call.Function != CallHeartbeat {
		return nil, types.NewValidityError(types.InvalidCall, "%s 不接受无签名交易", call)
	}
	var args HeartbeatArgs
	if err := support.DecodeArgs(call, &args); err != nil {
		return nil, err
	}
	era, found, err := m.ActiveEra(state)
	if err != nil {
		return nil, err
	}
	if !found || args.Era > era.Index {
		return nil, types.NewValidityError(types.InvalidFuture, "纪元 %d 尚未开始", args.Era)
	}
	if args.Era < era.Index {
		return nil, types.NewValidityError(types.InvalidStale, "纪元 %d 已结束", args.Era)
	}
	seen, err := support.Has(state, heartbeatKey(args.Era))
	if err != nil {
		return nil, err
	}
	if seen {
		return nil, types.NewValidityError(types.InvalidStale, "纪元 %d 已提交心跳", args.Era)
	}
	return &types.ValidTransaction{
		Priority:  heartbeatPriority,
		Provides:  []types.TransactionTag{heartbeatKey(args.Era)},
		Longevity: m.options.BlocksPerEra,
		Propagate: true,
	}, nil
}

// Dispatch 实现 Dispatchable
func (m *Module) Dispatch(_ context.Context, env executive.Env, origin types.Origin, call types.Call) ([]types.Event, error) {
	args, err := decodeCallArgs(call)
	if err != nil {
		return nil, err
	}
	state := env.State()

	if call.Function == CallHeartbeat {
		if err := support.EnsureNone(ModuleName, origin, types.OriginUnsigned); err != nil {
			return nil, err
		}
		return m.heartbeat(state, env.BlockNumber(), args.(*HeartbeatArgs).Era)
	}

	who, err := support.EnsureSigned(ModuleName, origin)
	if err != nil {
		return nil, err
	}
	switch call.Function {
	case CallBond:
		a := args.(*BondArgs)
		return m.bond(state, who, a.Controller, a.Value)
	case CallBondExtra:
		return m.bondExtra(state, who, args.(*ValueArgs).Value)
	case CallUnbond:
		return m.unbond(state, who, args.(*ValueArgs).Value)
	case CallWithdrawUnbonded:
		return m.withdrawUnbonded(state, who)
	case CallValidate:
		return m.validate(state, who, args.(*ValidateArgs).Commission)
	case CallChill:
		return m.chill(state, who)
	case CallRebond:
		return m.rebondCall(state, who, args.(*ValueArgs).Value)
	case CallNominate:
		return m.nominate(state, who, args.(*NominateArgs).Targets)
	case CallSetPayee:
		return nil, m.setPayee(state, who, args.(*PayeeArgs).Payee)
	case CallSetController:
		return nil, m.setController(state, who, args.(*ControllerArgs).Controller)
	default:
		return nil, support.UnknownCall(call)
	}
}

func (m *Module) bond(state storage.State, stash, controller types.AccountID, value types.Balance) ([]types.Event, error) {
	if found, err := support.Has(state, bondedKey(stash)); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyBonded
	}
	if found, err := support.Has(state, ledgerKey(controller)); err != nil {
		return nil, err
	} else if found {
		return nil, ErrAlreadyPaired
	}
	if value < m.options.MinimumBond {
		return nil, ErrInsufficientValue
	}
	free, err := m.currency.FreeBalance(state, stash)
	if err != nil {
		return nil, err
	}
	if value > free {
		value = free
	}
	if value < m.options.MinimumBond {
		return nil, ErrInsufficientValue
	}
	if err := m.currency.Reserve(state, stash, value); err != nil {
		return nil, err
	}
	if err := support.Put(state, bondedKey(stash), controller); err != nil {
		return nil, err
	}
	if err := m.putLedger(state, controller, &Ledger{Stash: stash, Total: value, Active: value}); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventBonded, AmountEvent{Stash: stash, Amount: value})}, nil
}

func (m *Module) bondExtra(state storage.State, stash types.AccountID, maxAdditional types.Balance) ([]types.Event, error) {
	controller, found, err := m.Bonded(state, stash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotStash
	}
	l, found, err := m.Ledger(state, controller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotController
	}
	free, err := m.currency.FreeBalance(state, stash)
	if err != nil {
		return nil, err
	}
	extra := maxAdditional
	if extra > free {
		extra = free
	}
	if extra == 0 {
		return nil, nil
	}
	if err := m.currency.Reserve(state, stash, extra); err != nil {
		return nil, err
	}
	l.Total = types.SaturatingAdd(l.Total, extra)
	l.Active = types.SaturatingAdd(l.Active, extra)
	if err := m.putLedger(state, controller, l); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventBonded, AmountEvent{Stash: stash, Amount: extra})}, nil
}

func (m *Module) controllerLedger(state storage.Reader, controller types.AccountID) (*Ledger, error) {
	l, found, err := m.Ledger(state, controller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotController
	}
	return l, nil
}

func (m *Module) unbond(state storage.State, controller types.AccountID, value types.Balance) ([]types.Event, error) {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	if len(l.Unlocking) >= MaxUnlockingChunks {
		return nil, ErrNoMoreChunks
	}
	if value > l.Active {
		value = l.Active
	}
	if value == 0 {
		return nil, nil
	}
	l.Active -= value
	// 剩余绑定额低于最小值时全部解绑
	if l.Active < m.options.MinimumBond {
		value += l.Active
		l.Active = 0
	}
	current, err := m.currentEra(state)
	if err != nil {
		return nil, err
	}
	l.Unlocking = append(l.Unlocking, UnlockChunk{Value: value, Era: current + m.options.BondingDuration})
	if err := m.putLedger(state, controller, l); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventUnbonded, AmountEvent{Stash: l.Stash, Amount: value})}, nil
}

func (m *Module) withdrawUnbonded(state storage.State, controller types.AccountID) ([]types.Event, error) {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	current, err := m.currentEra(state)
	if err != nil {
		return nil, err
	}
	released := l.consolidateUnlocked(current)

	if len(l.Unlocking) == 0 && l.Active == 0 {
		// 账本清空：移除全部质押信息
		released = types.SaturatingAdd(released, l.Total)
		if err := state.Delete(bondedKey(l.Stash)); err != nil {
			return nil, err
		}
		if err := state.Delete(ledgerKey(controller)); err != nil {
			return nil, err
		}
		if err := state.Delete(payeeKey(l.Stash)); err != nil {
			return nil, err
		}
		if err := m.chillStash(state, l.Stash); err != nil {
			return nil, err
		}
	} else if err := m.putLedger(state, controller, l); err != nil {
		return nil, err
	}

	if released == 0 {
		return nil, nil
	}
	amount, err := m.currency.Unreserve(state, l.Stash, released)
	if err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventWithdrawn, AmountEvent{Stash: l.Stash, Amount: amount})}, nil
}

func (m *Module) validate(state storage.State, controller types.AccountID, commission uint64) ([]types.Event, error) {
	if commission > MaxCommission {
		return nil, ErrInvalidCommission
	}
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	if err := m.setNominations(state, l.Stash, nil); err != nil {
		return nil, err
	}
	if err := m.setValidator(state, l.Stash, &ValidatorPrefs{Commission: commission}); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventValidating, StashEvent{Stash: l.Stash})}, nil
}

func (m *Module) chill(state storage.State, controller types.AccountID) ([]types.Event, error) {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	if err := m.chillStash(state, l.Stash); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventChilled, StashEvent{Stash: l.Stash})}, nil
}

// nominate 目标去重并截断到 MaxNominations；不要求目标当前是验证人候选
func (m *Module) nominate(state storage.State, controller types.AccountID, targets []types.AccountID) ([]types.Event, error) {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrEmptyTargets
	}
	if len(targets) > MaxNominations {
		targets = targets[:MaxNominations]
	}
	unique := append([]types.AccountID(nil), targets...)
	sort.Slice(unique, func(i, j int) bool { return bytes.Compare(unique[i][:], unique[j][:]) < 0 })
	unique = slices.Compact(unique)

	current, err := m.currentEra(state)
	if err != nil {
		return nil, err
	}
	if err := m.setValidator(state, l.Stash, nil); err != nil {
		return nil, err
	}
	if err := m.setNominations(state, l.Stash, &Nominations{Targets: unique, SubmittedIn: current}); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventNominating, StashEvent{Stash: l.Stash})}, nil
}

func (m *Module) setPayee(state storage.State, controller types.AccountID, payee RewardDestination) error {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return err
	}
	return support.Put(state, payeeKey(l.Stash), payee)
}

// setController 由资金账户签名，把账本迁移到新的控制账户
func (m *Module) setController(state storage.State, stash, controller types.AccountID) error {
	old, found, err := m.Bonded(state, stash)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotStash
	}
	if paired, err := support.Has(state, ledgerKey(controller)); err != nil {
		return err
	} else if paired {
		return ErrAlreadyPaired
	}
	l, found, err := m.Ledger(state, old)
	if err != nil {
		return err
	}
	if err := support.Put(state, bondedKey(stash), controller); err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := state.Delete(ledgerKey(old)); err != nil {
		return err
	}
	return m.putLedger(state, controller, l)
}

func (m *Module) rebondCall(state storage.State, controller types.AccountID, value types.Balance) ([]types.Event, error) {
	l, err := m.controllerLedger(state, controller)
	if err != nil {
		return nil, err
	}
	if len(l.Unlocking) == 0 {
		return nil, ErrNoUnlockChunk
	}
	rebonded := l.rebond(value)
	if err := m.putLedger(state, controller, l); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventBonded, AmountEvent{Stash: l.Stash, Amount: rebonded})}, nil
}

func (m *Module) heartbeat(state storage.State, number types.BlockNumber, era EraIndex) ([]types.Event, error) {
	current, found, err := m.ActiveEra(state)
	if err != nil {
		return nil, err
	}
	if !found || current.Index != era {
		return nil, ErrNoActiveEra
	}
	if seen, err := support.Has(state, heartbeatKey(era)); err != nil {
		return nil, err
	} else if seen {
		return nil, ErrDuplicateHeartbeat
	}
	if err := support.PutUint64(state, heartbeatKey(era), number); err != nil {
		return nil, err
	}
	return []types.Event{support.NewEvent(ModuleName, EventHeartbeat, HeartbeatEvent{Era: era, Block: number})}, nil
}

// ==================== 调用构造 ====================

// BondCall 构造 bond 调用
func BondCall(controller types.AccountID, value types.Balance) (types.Call, error) {
	return support.NewCall(ModuleName, CallBond, BondArgs{Controller: controller, Value: value})
}

// ValueCall 构造 bond_extra / unbond / rebond 调用
func ValueCall(function string, value types.Balance) (types.Call, error) {
	return support.NewCall(ModuleName, function, ValueArgs{Value: value})
}

// NewValidateCall 构造 validate 调用
func NewValidateCall(commission uint64) (types.Call, error) {
	return support.NewCall(ModuleName, CallValidate, ValidateArgs{Commission: commission})
}

// NominateCall 构造 nominate 调用
func NominateCall(targets ...types.AccountID) (types.Call, error) {
	return support.NewCall(ModuleName, CallNominate, NominateArgs{Targets: targets})
}

// SetPayeeCall 构造 set_payee 调用
func SetPayeeCall(payee RewardDestination) (types.Call, error) {
	return support.NewCall(ModuleName, CallSetPayee, PayeeArgs{Payee: payee})
}

// SetControllerCall 构造 set_controller 调用，由资金账户签名
func SetControllerCall(controller types.AccountID) (types.Call, error) {
	return support.NewCall(ModuleName, CallSetController, ControllerArgs{Controller: controller})
}

// SimpleCall 构造无参数调用（withdraw_unbonded / chill）
func SimpleCall(function string) types.Call {
	return types.Call{Module: ModuleName, Function: function}
}

// HeartbeatTransaction 构造心跳无签名交易
func HeartbeatTransaction(era EraIndex) (*types.Transaction, error) {
	call, err := support.NewCall(ModuleName, CallHeartbeat, HeartbeatArgs{Era: era})
	if err != nil {
		return nil, err
	}
	return &types.Transaction{Call: call, Origin: types.Unsigned()}, nil
}

// Package system 系统模块：账户 nonce、区块上下文与区块哈希历史
//
// 🎯 **存储**
// - system:number               当前执行的区块高度
// - system:parent_hash          当前区块的父哈希
// - system:block_hash:<n>       高度 n 的区块哈希（保留最近 BlockHashCount 个）
// - system:nonce:<account>      账户下一个可用 nonce
package system

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/weisyn/executive/internal/core/runtime/support"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// ModuleName 模块名
const ModuleName = types.SystemModule

// BlockHashCount 保留的区块哈希历史数量
const BlockHashCount = 256

// GenesisHashPlaceholder 创世状态中区块 0 的哈希占位
//
// 创世区块头的哈希依赖状态根，状态里无法存放真实值；区块 1 初始化时以父哈希覆盖。
var GenesisHashPlaceholder = types.BytesToHash(bytes.Repeat([]byte{0x45}, 32))

const (
	initializeWeight   types.Weight = 5_000
	remarkBaseWeight   types.Weight = 10_000
	remarkWeightPerKiB types.Weight = 1_000
)

// 调用函数名
const (
	CallRemark = "remark"
)

// 事件名
const (
	EventRemarked = "Remarked"
)

// RemarkArgs remark 调用参数
type RemarkArgs struct {
	Remark []byte
}

// RemarkedEvent remark 事件数据
type RemarkedEvent struct {
	Sender types.AccountID
	Hash   types.Hash
}

// Module 系统模块
type Module struct {
	logger log.Logger
}

var (
	_ executive.Dispatchable         = (*Module)(nil)
	_ executive.NonceKeeper          = (*Module)(nil)
	_ executive.BlockContextRecorder = (*Module)(nil)
)

// New 创建系统模块，logger 可为 nil
func New(logger log.Logger) *Module {
	return &Module{logger: logger}
}

func (m *Module) Name() string { return ModuleName }

func numberKey() []byte     { return support.Key(ModuleName, "number") }
func parentHashKey() []byte { return support.Key(ModuleName, "parent_hash") }

func blockHashKey(n types.BlockNumber) []byte {
	return support.Key(ModuleName, "block_hash", support.Uint64Bytes(n))
}

func nonceKey(who types.AccountID) []byte {
	return support.Key(ModuleName, "nonce", who.Bytes())
}

// RecordBlockContext 记录当前区块高度、父哈希，并把父哈希写入区块哈希历史
func (m *Module) RecordBlockContext(state storage.State, number types.BlockNumber, parentHash types.Hash) error {
	if err := support.PutUint64(state, numberKey(), number); err != nil {
		return err
	}
	if err := support.Put(state, parentHashKey(), parentHash); err != nil {
		return err
	}
	if number > 0 {
		if err := support.Put(state, blockHashKey(number-1), parentHash); err != nil {
			return err
		}
	}
	return nil
}

// BlockNumber 存储中记录的当前区块高度
func (m *Module) BlockNumber(state storage.Reader) (types.BlockNumber, error) {
	return support.GetUint64(state, numberKey())
}

// ParentHash 存储中记录的父哈希
func (m *Module) ParentHash(state storage.Reader) (types.Hash, error) {
	var h types.Hash
	_, err := support.Get(state, parentHashKey(), &h)
	return h, err
}

// BlockHash 高度 n 的区块哈希；超出保留窗口或尚未记录时返回 false
func (m *Module) BlockHash(state storage.Reader, n types.BlockNumber) (types.Hash, bool, error) {
	var h types.Hash
	found, err := support.Get(state, blockHashKey(n), &h)
	return h, found, err
}

// SetBlockHash 直接写入区块哈希
func (m *Module) SetBlockHash(state storage.State, n types.BlockNumber, hash types.Hash) error {
	return support.Put(state, blockHashKey(n), hash)
}

// Genesis 写入创世状态：区块 0 的哈希占位
//
// 必须在计算创世状态根之前调用，提交后的状态与区块头的状态根一致。
func (m *Module) Genesis(state storage.State) error {
	return m.SetBlockHash(state, 0, GenesisHashPlaceholder)
}

// AccountNonce 实现 NonceKeeper
func (m *Module) AccountNonce(state storage.Reader, who types.AccountID) (types.Nonce, error) {
	return support.GetUint64(state, nonceKey(who))
}

// IncAccountNonce 实现 NonceKeeper
func (m *Module) IncAccountNonce(state storage.State, who types.AccountID) error {
	n, err := m.AccountNonce(state, who)
	if err != nil {
		return err
	}
	if n == ^types.Nonce(0) {
		return fmt.Errorf("账户 %s nonce 溢出", who.Hex())
	}
	return support.PutUint64(state, nonceKey(who), n+1)
}

// OnInitialize 区块上下文已由初始化器记录，这里只报告读写开销
func (m *Module) OnInitialize(_ context.Context, _ executive.Env) (types.Weight, error) {
	return initializeWeight, nil
}

// OnFinalize 清理超出保留窗口的区块哈希
func (m *Module) OnFinalize(_ context.Context, env executive.Env) error {
	number := env.BlockNumber()
	if number <= BlockHashCount {
		return nil
	}
	return env.State().Delete(blockHashKey(number - 1 - BlockHashCount))
}

// CallInfo 实现 Dispatchable
func (m *Module) CallInfo(call types.Call) (types.DispatchInfo, error) {
	switch call.Function {
	case CallRemark:
		kib := types.Weight(len(call.Args)+1023) / 1024
		return types.DispatchInfo{
			Weight:  types.SaturatingAdd(remarkBaseWeight, types.SaturatingMul(kib, remarkWeightPerKiB)),
			Class:   types.ClassNormal,
			PaysFee: types.PaysYes,
		}, nil
	default:
		return types.DispatchInfo{}, support.UnknownCall(call)
	}
}

// ValidateCall 参数必须可解码
func (m *Module) ValidateCall(_ context.Context, _ storage.Reader, _ types.Origin, call types.Call) error {
	switch call.Function {
	case CallRemark:
		var args RemarkArgs
		return support.DecodeArgs(call, &args)
	default:
		return support.UnknownCall(call)
	}
}

// Dispatch 实现 Dispatchable
func (m *Module) Dispatch(_ context.Context, _ executive.Env, origin types.Origin, call types.Call) ([]types.Event, error) {
	switch call.Function {
	case CallRemark:
		sender, err := support.EnsureSigned(ModuleName, origin)
		if err != nil {
			return nil, err
		}
		var args RemarkArgs
		if err := support.DecodeArgs(call, &args); err != nil {
			return nil, err
		}
		hash := crypto.Keccak256Hash(args.Remark)
		if m.logger != nil {
			m.logger.Debugf("remark: sender=%s hash=%s", sender.Hex(), hash.Hex())
		}
		return []types.Event{support.NewEvent(ModuleName, EventRemarked, RemarkedEvent{Sender: sender, Hash: hash})}, nil
	default:
		return nil, support.UnknownCall(call)
	}
}

// RemarkCall 构造 remark 调用
func RemarkCall(remark []byte) (types.Call, error) {
	return support.NewCall(ModuleName, CallRemark, RemarkArgs{Remark: remark})
}

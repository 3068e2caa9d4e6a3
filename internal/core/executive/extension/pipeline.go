// Package extension 实现交易的签名扩展检查流水线
//
// 🎯 **检查顺序**
//  1. 来源与签名格式
//  2. nonce（仅签名交易）
//  3. 权重与手续费可支付性
//  4. 模块特定的静态可接受性
//
// 交易池校验（ModeValidate / ModeValidateInBlock）与区块内预分发（ModePreDispatch）
// 共用同一流水线，区别在于 nonce 窗口与是否真正推进 nonce、扣除手续费。
package extension

import (
	"context"
	"encoding/binary"
	"fmt"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Mode 检查模式
type Mode uint8

const (
	// ModeValidate 交易池校验：允许未来 nonce 窗口，不修改状态
	ModeValidate Mode = iota + 1
	// ModePreDispatch 区块内预分发：nonce 必须严格相等，推进 nonce 并扣除手续费
	ModePreDispatch
	// ModeValidateInBlock 以区块内来源校验：nonce 必须严格相等，不修改状态
	ModeValidateInBlock
)

// ModeFor 交易池校验来源对应的检查模式
//
// 来自区块的交易不享有未来 nonce 窗口。
func ModeFor(source types.TransactionSource) Mode {
	if source == types.SourceInBlock {
		return ModeValidateInBlock
	}
	return ModeValidate
}

// validating 是否为不修改状态的校验模式
func (m Mode) validating() bool {
	return m == ModeValidate || m == ModeValidateInBlock
}

// priorityScale 优先级中手续费分量的缩放：每百万权重单位的手续费
const priorityScale = 1_000_000

// Checked 通过检查的交易信息
type Checked struct {
	Info   types.DispatchInfo
	Weight types.Weight // 调用权重 + 交易基础权重 + 长度权重
	Fee    types.Balance
	Length int
	Valid  *types.ValidTransaction
}

// Pipeline 检查流水线，无可变状态，可并发使用
type Pipeline struct {
	options  *executiveconfig.ExecutiveOptions
	codec    executive.Codec
	registry executive.Registry
	nonces   executive.NonceKeeper
	fees     executive.FeeCharger
	verifier executive.SignatureVerifier
}

// New 创建检查流水线
func New(
	options *executiveconfig.ExecutiveOptions,
	codec executive.Codec,
	registry executive.Registry,
	nonces executive.NonceKeeper,
	fees executive.FeeCharger,
	verifier executive.SignatureVerifier,
) (*Pipeline, error) {
	if options == nil {
		return nil, fmt.Errorf("执行器配置不能为空")
	}
	if codec == nil {
		return nil, fmt.Errorf("编解码器不能为空")
	}
	if registry == nil {
		return nil, fmt.Errorf("模块注册表不能为空")
	}
	if nonces == nil {
		return nil, fmt.Errorf("nonce 管理不能为空")
	}
	if fees == nil {
		return nil, fmt.Errorf("手续费扣除不能为空")
	}
	if verifier == nil {
		return nil, fmt.Errorf("签名校验器不能为空")
	}
	return &Pipeline{
		options:  options,
		codec:    codec,
		registry: registry,
		nonces:   nonces,
		fees:     fees,
		verifier: verifier,
	}, nil
}

// Check 对交易运行完整检查
//
// limits 为当前适用的权重上限：交易池校验使用空块上限，区块内使用计量器上限。
// ModePreDispatch 下检查全部通过后才推进 nonce 与扣费，失败时状态未被修改。
func (p *Pipeline) Check(ctx context.Context, state storage.State, number types.BlockNumber, tx *types.Transaction, mode Mode, limits types.WeightLimits) (*Checked, error) {
	if tx == nil {
		return nil, types.NewValidityError(types.InvalidBadProof, "交易为空")
	}
	encoded, err := p.codec.EncodeTransaction(tx)
	if err != nil {
		return nil, types.NewValidityError(types.InvalidBadProof, "交易编码失败: %v", err)
	}

	// 1. 来源与签名
	if err := p.checkOrigin(tx, mode); err != nil {
		return nil, err
	}
	info, err := p.registry.CallInfo(tx.Call)
	if err != nil {
		return nil, asValidity(err, types.UnknownModule)
	}
	if info.Class == types.ClassMandatory && !tx.IsInherent() {
		return nil, types.NewValidityError(types.InvalidBadMandatory, "强制类调用 %s 只能作为固有交易", tx.Call)
	}
	if tx.IsInherent() && info.Class != types.ClassMandatory {
		return nil, types.NewValidityError(types.InvalidBadMandatory, "固有交易 %s 必须是强制类调用", tx.Call)
	}

	valid := &types.ValidTransaction{
		Longevity: p.options.TransactionLongevity,
		Propagate: true,
	}

	// 2. nonce
	if tx.IsSigned() {
		if err := p.checkNonce(state, tx, mode, valid); err != nil {
			return nil, err
		}
	}

	// 3. 权重与手续费
	total := p.TransactionWeight(info, len(encoded))
	if tx.Extra.WeightHint != 0 && total > tx.Extra.WeightHint {
		return nil, types.NewValidityError(types.InvalidExhaustsResources, "权重 %d 超过声明上限 %d", total, tx.Extra.WeightHint)
	}
	if limit := limits.For(info.Class); total > limit {
		return nil, types.NewValidityError(types.InvalidExhaustsResources, "权重 %d 超过区块上限 %d", total, limit)
	}
	var fee types.Balance
	if tx.IsSigned() {
		fee = p.Fee(info, len(encoded), tx.Extra.Tip)
		if fee > 0 {
			if err := p.fees.CanWithdrawFee(state, tx.Origin.Account, fee); err != nil {
				return nil, asValidity(err, types.InvalidPayment)
			}
		}
		valid.Priority = priority(tx.Extra.Tip, fee, total)
	}

	// 4. 模块特定检查
	if err := p.checkModule(ctx, state, number, tx, valid); err != nil {
		return nil, err
	}

	if mode == ModePreDispatch && tx.IsSigned() {
		if err := p.nonces.IncAccountNonce(state, tx.Origin.Account); err != nil {
			return nil, fmt.Errorf("推进 nonce 失败: %w", err)
		}
		if fee > 0 {
			if err := p.fees.WithdrawFee(state, tx.Origin.Account, fee); err != nil {
				return nil, asValidity(err, types.InvalidPayment)
			}
		}
	}

	return &Checked{
		Info:   info,
		Weight: total,
		Fee:    fee,
		Length: len(encoded),
		Valid:  valid,
	}, nil
}

// TransactionWeight 交易总权重
func (p *Pipeline) TransactionWeight(info types.DispatchInfo, length int) types.Weight {
	w := types.SaturatingAdd(info.Weight, p.options.BaseTransactionWeight)
	return types.SaturatingAdd(w, types.SaturatingMul(uint64(length), p.options.WeightPerByte))
}

// Fee 手续费 = 基础费 + 权重费 + 长度费 + 小费；PaysNo 时只收小费
func (p *Pipeline) Fee(info types.DispatchInfo, length int, tip types.Balance) types.Balance {
	if info.PaysFee == types.PaysNo {
		return tip
	}
	total := p.TransactionWeight(info, length)
	fee := p.options.BaseFee
	fee = types.SaturatingAdd(fee, types.SaturatingMul(total, p.options.FeePerWeight))
	fee = types.SaturatingAdd(fee, types.SaturatingMul(uint64(length), p.options.FeePerByte))
	return types.SaturatingAdd(fee, tip)
}

func (p *Pipeline) checkOrigin(tx *types.Transaction, mode Mode) error {
	switch tx.Origin.Kind {
	case types.OriginSigned:
		if len(tx.Signature) == 0 {
			return types.NewValidityError(types.InvalidBadProof, "签名交易缺少签名")
		}
		payload, err := p.codec.SigningPayload(tx)
		if err != nil {
			return types.NewValidityError(types.InvalidBadProof, "计算签名摘要失败: %v", err)
		}
		if err := p.verifier.Verify(payload, tx.Signature, tx.Origin.Account); err != nil {
			return types.NewValidityError(types.InvalidBadProof, "%v", err)
		}
	case types.OriginUnsigned:
		if len(tx.Signature) != 0 {
			return types.NewValidityError(types.InvalidBadProof, "无签名交易不能携带签名")
		}
	case types.OriginInherent:
		if mode.validating() {
			return types.NewValidityError(types.InvalidBadMandatory, "固有交易不能通过交易池校验")
		}
		if len(tx.Signature) != 0 {
			return types.NewValidityError(types.InvalidBadProof, "固有交易不能携带签名")
		}
	default:
		return types.NewValidityError(types.InvalidBadProof, "未知来源类型 %s", tx.Origin.Kind)
	}
	return nil
}

func (p *Pipeline) checkNonce(state storage.Reader, tx *types.Transaction, mode Mode, valid *types.ValidTransaction) error {
	who := tx.Origin.Account
	expected, err := p.nonces.AccountNonce(state, who)
	if err != nil {
		return fmt.Errorf("读取账户 nonce 失败: %w", err)
	}
	nonce := tx.Extra.Nonce

	switch {
	case nonce < expected:
		return types.NewValidityError(types.InvalidStale, "nonce %d 小于期望值 %d", nonce, expected)
	case nonce == expected:
	case mode == ModeValidate && nonce-expected <= p.options.FutureNonceWindow:
		valid.Requires = append(valid.Requires, NonceTag(who, nonce-1))
	default:
		return types.NewValidityError(types.InvalidFuture, "nonce %d 超前于期望值 %d", nonce, expected)
	}
	valid.Provides = append(valid.Provides, NonceTag(who, nonce))
	return nil
}

func (p *Pipeline) checkModule(ctx context.Context, state storage.Reader, number types.BlockNumber, tx *types.Transaction, valid *types.ValidTransaction) error {
	m, ok := p.registry.Module(tx.Call.Module)
	if !ok {
		return types.NewValidityError(types.UnknownModule, "模块 %s 未注册", tx.Call.Module)
	}

	switch tx.Origin.Kind {
	case types.OriginSigned:
		cv, ok := m.(executive.CallValidator)
		if !ok {
			return nil
		}
		if err := cv.ValidateCall(ctx, state, tx.Origin, tx.Call); err != nil {
			return asValidity(err, types.InvalidCall)
		}
	case types.OriginUnsigned:
		uv, ok := m.(executive.UnsignedValidator)
		if !ok {
			return types.NewValidityError(types.UnknownNoUnsignedValidator, "模块 %s 不接受无签名交易", tx.Call.Module)
		}
		mv, err := uv.ValidateUnsigned(ctx, state, number, tx.Call)
		if err != nil {
			return asValidity(err, types.InvalidCall)
		}
		if mv != nil {
			valid.Priority = mv.Priority
			valid.Requires = mv.Requires
			valid.Provides = mv.Provides
			valid.Propagate = mv.Propagate
			if mv.Longevity != 0 && mv.Longevity < valid.Longevity {
				valid.Longevity = mv.Longevity
			}
		}
	}
	return nil
}

// NonceTag (账户, nonce) 依赖标签：20字节地址 + 8字节大端 nonce
func NonceTag(who types.AccountID, nonce types.Nonce) types.TransactionTag {
	tag := make([]byte, len(who)+8)
	copy(tag, who[:])
	binary.BigEndian.PutUint64(tag[len(who):], nonce)
	return tag
}

func priority(tip, fee types.Balance, weight types.Weight) uint64 {
	if weight == 0 {
		weight = 1
	}
	return types.SaturatingAdd(tip, types.SaturatingMul(fee, priorityScale)/weight)
}

// asValidity 保留已有的有效性错误，其他错误归为 kind
func asValidity(err error, kind types.ValidityErrorKind) error {
	if ve, ok := types.AsValidityError(err); ok {
		return ve
	}
	return types.NewValidityError(kind, "%v", err)
}

package types

import (
	"errors"
	"fmt"
)

// ==================== 执行器错误分类 ====================

var (
	// ErrInvalidBlock 区块被整体拒绝（所有 ExecuteBlock 失败都包装此错误）
	ErrInvalidBlock = errors.New("无效区块")

	// ErrOverweight 权重超过区块上限
	ErrOverweight = errors.New("区块权重超限")

	// ErrIntegrity 状态根 / 交易根 / 摘要与区块头不一致
	ErrIntegrity = errors.New("区块完整性校验失败")

	// ErrHook 生命周期钩子失败（运行时不变量被破坏，不可恢复）
	ErrHook = errors.New("生命周期钩子执行失败")

	// ErrForkOrOrphan 区块高度或父哈希与当前链头不匹配
	ErrForkOrOrphan = errors.New("区块不是当前链头的直接后继")

	// ErrReadOnly 只读视图上的写操作
	ErrReadOnly = errors.New("只读存储视图不允许写入")
)

// ValidityErrorKind 交易有效性错误类型
type ValidityErrorKind uint8

const (
	// InvalidBadProof 签名或来源格式不正确
	InvalidBadProof ValidityErrorKind = iota + 1
	// InvalidStale nonce 已被使用
	InvalidStale
	// InvalidFuture nonce 超出可接受的未来窗口（区块内则任何未来 nonce 都无效）
	InvalidFuture
	// InvalidPayment 无法支付手续费
	InvalidPayment
	// InvalidExhaustsResources 交易自身权重超过声明上限或区块上限
	InvalidExhaustsResources
	// InvalidCall 模块静态检查拒绝该调用
	InvalidCall
	// InvalidBadMandatory 固有交易不能经交易池校验，或强制调用来源不正确
	InvalidBadMandatory
	// InvalidBadInherentPosition 固有交易出现在普通交易之后
	InvalidBadInherentPosition
	// UnknownNoUnsignedValidator 无签名交易没有对应的校验能力
	UnknownNoUnsignedValidator
	// UnknownModule 调用的模块或函数不存在
	UnknownModule
)

// String 返回错误类型名称
func (k ValidityErrorKind) String() string {
	switch k {
	case InvalidBadProof:
		return "bad_proof"
	case InvalidStale:
		return "stale"
	case InvalidFuture:
		return "future"
	case InvalidPayment:
		return "payment"
	case InvalidExhaustsResources:
		return "exhausts_resources"
	case InvalidCall:
		return "call"
	case InvalidBadMandatory:
		return "bad_mandatory"
	case InvalidBadInherentPosition:
		return "bad_inherent_position"
	case UnknownNoUnsignedValidator:
		return "no_unsigned_validator"
	case UnknownModule:
		return "unknown_module"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ValidityError 交易结构性缺陷，与模块状态无关地不可接受
type ValidityError struct {
	Kind   ValidityErrorKind `json:"kind"`
	Reason string            `json:"reason,omitempty"`
}

// NewValidityError 构造有效性错误
func NewValidityError(kind ValidityErrorKind, format string, args ...interface{}) *ValidityError {
	return &ValidityError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Error 实现 error 接口
func (e *ValidityError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("交易无效: %s", e.Kind)
	}
	return fmt.Sprintf("交易无效: %s: %s", e.Kind, e.Reason)
}

// Is 同类型错误视为相等，便于 errors.Is(err, &ValidityError{Kind: InvalidStale})
func (e *ValidityError) Is(target error) bool {
	t, ok := target.(*ValidityError)
	if !ok {
		return false
	}
	return t.Kind == 0 || t.Kind == e.Kind
}

// AsValidityError 从错误链中提取有效性错误
func AsValidityError(err error) (*ValidityError, bool) {
	var ve *ValidityError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// DispatchError 业务逻辑失败（模块错误），在交易粒度可恢复
type DispatchError struct {
	Module  string `json:"module"`
	Code    uint8  `json:"code"`
	Message string `json:"message"`
}

// NewDispatchError 构造模块错误
func NewDispatchError(module string, code uint8, message string) *DispatchError {
	return &DispatchError{Module: module, Code: code, Message: message}
}

// Error 实现 error 接口
func (e *DispatchError) Error() string {
	return fmt.Sprintf("模块 %s 调用失败(code=%d): %s", e.Module, e.Code, e.Message)
}

// Is 同模块同错误码视为相等
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	if !ok {
		return false
	}
	return t.Module == e.Module && t.Code == e.Code
}

// AsDispatchError 从错误链中提取模块错误
func AsDispatchError(err error) (*DispatchError, bool) {
	var de *DispatchError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

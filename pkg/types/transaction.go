package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OriginKind 交易来源类型
type OriginKind uint8

const (
	// OriginSigned 由账户签名的交易
	OriginSigned OriginKind = iota + 1
	// OriginUnsigned 无签名交易，由模块的 ValidateUnsigned 能力决定是否可接受
	OriginUnsigned
	// OriginInherent 出块方注入的固有交易（如时间戳），强制执行类
	OriginInherent
)

// String 返回来源类型名称
func (k OriginKind) String() string {
	switch k {
	case OriginSigned:
		return "signed"
	case OriginUnsigned:
		return "unsigned"
	case OriginInherent:
		return "inherent"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Origin 交易来源
type Origin struct {
	Kind    OriginKind `json:"kind"`
	Account AccountID  `json:"account"` // 仅 Signed 有意义
}

// SignedBy 构造签名来源
func SignedBy(account AccountID) Origin {
	return Origin{Kind: OriginSigned, Account: account}
}

// Unsigned 无签名来源
func Unsigned() Origin { return Origin{Kind: OriginUnsigned} }

// Inherent 固有交易来源
func Inherent() Origin { return Origin{Kind: OriginInherent} }

// Call 可分发的业务调用（对执行器不透明）
type Call struct {
	Module   string        `json:"module"`
	Function string        `json:"function"`
	Args     hexutil.Bytes `json:"args"`
}

// String 返回 module.function
func (c Call) String() string {
	return c.Module + "." + c.Function
}

// Extra 交易附加字段
type Extra struct {
	Nonce      Nonce   `json:"nonce"`
	WeightHint Weight  `json:"weight_hint"` // 0 表示不声明上限
	Tip        Balance `json:"tip"`
}

// Transaction 已解码的交易，构造后不可变
type Transaction struct {
	Call      Call          `json:"call"`
	Origin    Origin        `json:"origin"`
	Extra     Extra         `json:"extra"`
	Signature hexutil.Bytes `json:"signature,omitempty"`
}

// IsSigned 是否为签名交易
func (t *Transaction) IsSigned() bool { return t.Origin.Kind == OriginSigned }

// IsInherent 是否为固有交易
func (t *Transaction) IsInherent() bool { return t.Origin.Kind == OriginInherent }

// String 返回交易简要描述
func (t *Transaction) String() string {
	if t.IsSigned() {
		return fmt.Sprintf("%s from %s nonce=%d", t.Call, t.Origin.Account.Hex(), t.Extra.Nonce)
	}
	return fmt.Sprintf("%s (%s)", t.Call, t.Origin.Kind)
}

// TransactionSource 交易校验来源
type TransactionSource uint8

const (
	// SourceExternal 来自网络的交易
	SourceExternal TransactionSource = iota + 1
	// SourceLocal 本地提交的交易
	SourceLocal
	// SourceInBlock 已包含在区块中的交易
	SourceInBlock
)

// String 返回来源描述
func (s TransactionSource) String() string {
	switch s {
	case SourceExternal:
		return "external"
	case SourceLocal:
		return "local"
	case SourceInBlock:
		return "in_block"
	default:
		return "unknown"
	}
}

package executive

import (
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// NonceKeeper 账户 nonce 管理（system 模块）
type NonceKeeper interface {
	AccountNonce(state storage.Reader, who types.AccountID) (types.Nonce, error)
	IncAccountNonce(state storage.State, who types.AccountID) error
}

// FeeCharger 手续费扣除（balances 模块）
type FeeCharger interface {
	// CanWithdrawFee 余额不足时返回错误，不修改状态
	CanWithdrawFee(state storage.Reader, who types.AccountID, fee types.Balance) error

	// WithdrawFee 扣除手续费
	WithdrawFee(state storage.State, who types.AccountID, fee types.Balance) error
}

// SignatureVerifier 签名校验
type SignatureVerifier interface {
	// Verify 校验 signature 是 signer 对 payload 的签名
	Verify(payload, signature []byte, signer types.AccountID) error
}

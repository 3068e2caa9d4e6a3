// Package crypto 提供执行器使用的密码学服务
//
// - signature: secp256k1 签名与恢复校验
// - hash: blake2b-256 / keccak256
// - merkle: 二叉默克尔根
package crypto

import (
	"go.uber.org/fx"

	"github.com/weisyn/executive/internal/core/infrastructure/crypto/hash"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	log "github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// CryptoParams 加密模块的依赖参数
type CryptoParams struct {
	fx.In

	Logger log.Logger `optional:"true"`
}

// CryptoOutput 加密模块的输出
type CryptoOutput struct {
	fx.Out

	SignatureVerifier executiveif.SignatureVerifier
	HeaderHasher      hash.Hasher `name:"header_hasher"`
}

// Module 返回加密模块
func Module() fx.Option {
	return fx.Module("crypto",
		fx.Provide(ProvideCryptoServices),
	)
}

// ProvideCryptoServices 提供加密服务
func ProvideCryptoServices(params CryptoParams) CryptoOutput {
	if params.Logger != nil {
		params.Logger.Debug("加密服务已创建: secp256k1 + blake2b")
	}
	return CryptoOutput{
		SignatureVerifier: signature.NewVerifier(),
		HeaderHasher:      hash.Blake2bHasher,
	}
}

// Package signature 提供基于 secp256k1 的交易签名与校验
//
// 签名为 65 字节可恢复格式 [R || S || V]；校验时从签名恢复公钥并比对派生地址。
package signature

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/weisyn/executive/internal/core/infrastructure/crypto/hash"
	"github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// 错误定义
var (
	ErrInvalidSignature  = errors.New("无效的签名")
	ErrInvalidHashLength = errors.New("无效的哈希长度")
	ErrSignerMismatch    = errors.New("签名者与声明账户不一致")
)

const (
	// SignatureLength 可恢复签名长度 r+s+v
	SignatureLength = crypto.SignatureLength
	// HashLength 签名载荷长度
	HashLength = 32

	devKeyDomain = "executive/dev-account/"
)

// Verifier 实现 executive.SignatureVerifier
type Verifier struct{}

var _ executive.SignatureVerifier = Verifier{}

// NewVerifier 创建签名校验器
func NewVerifier() Verifier { return Verifier{} }

// Verify 校验 signature 是 signer 对 payload 的签名
func (Verifier) Verify(payload, signature []byte, signer types.AccountID) error {
	if len(payload) != HashLength {
		return fmt.Errorf("%w: %d", ErrInvalidHashLength, len(payload))
	}
	if len(signature) != SignatureLength {
		return fmt.Errorf("%w: 长度 %d", ErrInvalidSignature, len(signature))
	}
	pub, err := crypto.SigToPub(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	// 拒绝高 S 值，避免签名可塑性
	if !crypto.ValidateSignatureValues(signature[64], new(big.Int).SetBytes(signature[:32]), new(big.Int).SetBytes(signature[32:64]), true) {
		return fmt.Errorf("%w: 签名值超出范围", ErrInvalidSignature)
	}
	if crypto.PubkeyToAddress(*pub) != signer {
		return ErrSignerMismatch
	}
	return nil
}

// Sign 使用私钥对32字节载荷签名
func Sign(payload []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	if len(payload) != HashLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHashLength, len(payload))
	}
	return crypto.Sign(payload, key)
}

// Address 私钥对应的账户地址
func Address(key *ecdsa.PrivateKey) types.AccountID {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// GenerateKey 生成新的私钥
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// DevKey 由名称确定性派生开发账户私钥（仅用于开发链与测试）
func DevKey(name string) *ecdsa.PrivateKey {
	seed := hash.Keccak256([]byte(devKeyDomain + name))
	key, err := crypto.ToECDSA(seed[:])
	if err != nil {
		// keccak 输出落在曲线阶之外的概率可以忽略
		panic(fmt.Sprintf("派生开发账户私钥失败: %v", err))
	}
	return key
}

// KeyToHex 私钥编码为十六进制
func KeyToHex(key *ecdsa.PrivateKey) string {
	return fmt.Sprintf("%x", crypto.FromECDSA(key))
}

// HexToKey 从十六进制解析私钥
func HexToKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}
	return key, nil
}

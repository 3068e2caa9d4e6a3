// Package types 定义区块执行器共享的数据结构
//
// 🎯 **核心类型**
// - Block / Header / DigestItem：区块与区块头
// - Transaction / Origin / Call / Extra：交易
// - Outcome / Event / ValidTransaction：执行结果与校验结果
// - Weight / DispatchClass / DispatchInfo：资源权重
// - ValidityError / DispatchError：错误分类
//
// 所有参与共识的结构都通过 RLP 编码，编码结果必须在所有节点上逐字节一致。
package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Hash 32字节哈希（区块哈希、状态根、交易根）
type Hash = common.Hash

// AccountID 账户标识（secp256k1 公钥派生的20字节地址）
type AccountID = common.Address

// BlockNumber 区块高度
type BlockNumber = uint64

// Balance 账户余额 / 手续费金额
type Balance = uint64

// Nonce 账户交易序号
type Nonce = uint64

// ZeroHash 全零哈希
var ZeroHash = Hash{}

// SaturatingAdd 饱和加法，溢出时返回最大值
func SaturatingAdd(a, b uint64) uint64 {
	c := a + b
	if c < a {
		return ^uint64(0)
	}
	return c
}

// SaturatingSub 饱和减法，不足时返回0
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// SaturatingMul 饱和乘法
func SaturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	c := a * b
	if c/b != a {
		return ^uint64(0)
	}
	return c
}

// BytesToHash 将字节转换为哈希（超过32字节时取后32字节）
func BytesToHash(b []byte) Hash { return common.BytesToHash(b) }

// HexToHash 解析十六进制哈希
func HexToHash(s string) Hash { return common.HexToHash(s) }

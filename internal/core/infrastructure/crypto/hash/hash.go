// Package hash 提供执行器使用的哈希函数
//
// - Blake2b256：区块头哈希、二叉默克尔树节点
// - Keccak256：状态 trie 路径、签名载荷
package hash

import (
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"

	"github.com/weisyn/executive/pkg/types"
)

// Blake2b256 计算 blake2b-256 摘要
func Blake2b256(data ...[]byte) types.Hash {
	h, _ := blake2b.New256(nil) // 无 key 时不会返回错误
	for _, d := range data {
		h.Write(d)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256 计算 keccak256 摘要
func Keccak256(data ...[]byte) types.Hash {
	return crypto.Keccak256Hash(data...)
}

// Hasher 可替换的32字节哈希函数
type Hasher interface {
	Hash(data []byte) ([]byte, error)
}

// HasherFunc 函数适配为 Hasher
type HasherFunc func(data []byte) types.Hash

// Hash 实现 Hasher
func (f HasherFunc) Hash(data []byte) ([]byte, error) {
	h := f(data)
	return h[:], nil
}

// Blake2bHasher blake2b-256 Hasher
var Blake2bHasher Hasher = HasherFunc(func(data []byte) types.Hash { return Blake2b256(data) })

// KeccakHasher keccak256 Hasher
var KeccakHasher Hasher = HasherFunc(func(data []byte) types.Hash { return Keccak256(data) })

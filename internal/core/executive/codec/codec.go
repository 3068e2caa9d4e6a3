// Package codec 提供交易、区块头与区块的 RLP 编码及交易根计算
//
// 🎯 **确定性要求**
// 编码结果参与交易根和区块头哈希计算，必须在所有节点上逐字节一致：
// - 结构体字段按声明顺序编码
// - 签名载荷 = keccak256(rlp(call, origin, extra))，不含签名本身
// - 区块头哈希 = blake2b-256(rlp(header))
package codec

import (
	"bytes"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/hash"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/merkle"
	"github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// RLPCodec 实现 executive.Codec
type RLPCodec struct {
	rootScheme string
}

var _ executive.Codec = (*RLPCodec)(nil)

// New 创建编解码器；rootScheme 为 trie 或 merkle
func New(rootScheme string) (*RLPCodec, error) {
	switch rootScheme {
	case "":
		rootScheme = executiveconfig.RootSchemeTrie
	case executiveconfig.RootSchemeTrie, executiveconfig.RootSchemeMerkle:
	default:
		return nil, fmt.Errorf("未知的交易根方案: %q", rootScheme)
	}
	return &RLPCodec{rootScheme: rootScheme}, nil
}

// Default 使用以太坊有序 trie 交易根的编解码器
func Default() *RLPCodec {
	return &RLPCodec{rootScheme: executiveconfig.RootSchemeTrie}
}

// unsignedPayload 签名覆盖的交易字段
type unsignedPayload struct {
	Call   types.Call
	Origin types.Origin
	Extra  types.Extra
}

// EncodeTransaction 编码交易
func (c *RLPCodec) EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("交易不能为空")
	}
	data, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return nil, fmt.Errorf("编码交易失败: %w", err)
	}
	return data, nil
}

// DecodeTransaction 解码交易，拒绝尾随字节
func (c *RLPCodec) DecodeTransaction(data []byte) (*types.Transaction, error) {
	var tx types.Transaction
	if err := rlp.DecodeBytes(data, &tx); err != nil {
		return nil, fmt.Errorf("解码交易失败: %w", err)
	}
	return &tx, nil
}

// EncodeHeader 编码区块头
func (c *RLPCodec) EncodeHeader(header *types.Header) ([]byte, error) {
	if header == nil {
		return nil, fmt.Errorf("区块头不能为空")
	}
	data, err := rlp.EncodeToBytes(header)
	if err != nil {
		return nil, fmt.Errorf("编码区块头失败: %w", err)
	}
	return data, nil
}

// DecodeHeader 解码区块头
func (c *RLPCodec) DecodeHeader(data []byte) (*types.Header, error) {
	var header types.Header
	if err := rlp.DecodeBytes(data, &header); err != nil {
		return nil, fmt.Errorf("解码区块头失败: %w", err)
	}
	return &header, nil
}

// EncodeBlock 编码完整区块
func (c *RLPCodec) EncodeBlock(block *types.Block) ([]byte, error) {
	if block == nil || block.Header == nil {
		return nil, fmt.Errorf("区块或区块头不能为空")
	}
	data, err := rlp.EncodeToBytes(block)
	if err != nil {
		return nil, fmt.Errorf("编码区块失败: %w", err)
	}
	return data, nil
}

// DecodeBlock 解码完整区块
func (c *RLPCodec) DecodeBlock(data []byte) (*types.Block, error) {
	var block types.Block
	if err := rlp.DecodeBytes(data, &block); err != nil {
		return nil, fmt.Errorf("解码区块失败: %w", err)
	}
	if block.Header == nil {
		return nil, fmt.Errorf("解码区块失败: 缺少区块头")
	}
	return &block, nil
}

// SigningPayload 返回交易签名载荷
func (c *RLPCodec) SigningPayload(tx *types.Transaction) ([]byte, error) {
	data, err := rlp.EncodeToBytes(&unsignedPayload{Call: tx.Call, Origin: tx.Origin, Extra: tx.Extra})
	if err != nil {
		return nil, fmt.Errorf("编码签名载荷失败: %w", err)
	}
	h := hash.Keccak256(data)
	return h[:], nil
}

// HeaderHash 区块头哈希
func (c *RLPCodec) HeaderHash(header *types.Header) (types.Hash, error) {
	data, err := c.EncodeHeader(header)
	if err != nil {
		return types.Hash{}, err
	}
	return hash.Blake2b256(data), nil
}

// TransactionsRoot 对有序交易序列计算交易根
func (c *RLPCodec) TransactionsRoot(txs []*types.Transaction) (types.Hash, error) {
	encoded := make(encodedList, len(txs))
	for i, tx := range txs {
		data, err := c.EncodeTransaction(tx)
		if err != nil {
			return types.Hash{}, fmt.Errorf("编码第%d笔交易失败: %w", i, err)
		}
		encoded[i] = data
	}

	if c.rootScheme == executiveconfig.RootSchemeMerkle {
		return merkle.Root(hash.Blake2bHasher, encoded)
	}
	return gethtypes.DeriveSha(encoded, trie.NewStackTrie(nil)), nil
}

// RootScheme 当前交易根方案
func (c *RLPCodec) RootScheme() string {
	return c.rootScheme
}

// encodedList 实现 gethtypes.DerivableList
type encodedList [][]byte

func (l encodedList) Len() int { return len(l) }

func (l encodedList) EncodeIndex(i int, w *bytes.Buffer) {
	w.Write(l[i])
}

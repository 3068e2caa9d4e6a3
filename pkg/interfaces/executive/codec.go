package executive

import "github.com/weisyn/executive/pkg/types"

// Codec 交易与区块头的确定性编码
type Codec interface {
	EncodeTransaction(tx *types.Transaction) ([]byte, error)
	DecodeTransaction(data []byte) (*types.Transaction, error)

	EncodeHeader(header *types.Header) ([]byte, error)
	DecodeHeader(data []byte) (*types.Header, error)

	EncodeBlock(block *types.Block) ([]byte, error)
	DecodeBlock(data []byte) (*types.Block, error)

	// SigningPayload 返回签名交易需要签名的32字节摘要
	SigningPayload(tx *types.Transaction) ([]byte, error)

	// TransactionsRoot 对有序交易序列计算交易根
	TransactionsRoot(txs []*types.Transaction) (types.Hash, error)

	// HeaderHash 区块头哈希
	HeaderHash(header *types.Header) (types.Hash, error)
}

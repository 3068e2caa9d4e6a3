package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/weisyn/executive/internal/core/infrastructure/storage/badger"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// maxBlockBytes 解压后区块体的上限，超出时拒绝解码
const maxBlockBytes = 64 << 20

// 链键空间（位于 badger.ChainPrefix 之下）
//
//	head            -> rlp(ChainHead)
//	header/<n>      -> rlp(Header)
//	body/<n>        -> snappy(codec.EncodeBlock)
//	number/<hash>   -> 大端 uint64
var headKey = []byte("head")

func numberBytes(n types.BlockNumber) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

func headerKey(n types.BlockNumber) []byte { return append([]byte("header/"), numberBytes(n)...) }
func bodyKey(n types.BlockNumber) []byte   { return append([]byte("body/"), numberBytes(n)...) }
func hashKey(h types.Hash) []byte          { return append([]byte("number/"), h.Bytes()...) }

// blockStore 读写链数据；写入只生成变更，由调用方与状态变更合并提交
type blockStore struct {
	kv    *badger.Prefixed
	codec executiveif.Codec
}

func (s *blockStore) head() (*types.ChainHead, error) {
	raw, found, err := s.kv.Get(headKey)
	if err != nil || !found {
		return nil, err
	}
	var head types.ChainHead
	if err := rlp.DecodeBytes(raw, &head); err != nil {
		return nil, fmt.Errorf("解码链头失败: %w", err)
	}
	return &head, nil
}

func (s *blockStore) header(n types.BlockNumber) (*types.Header, error) {
	raw, found, err := s.kv.Get(headerKey(n))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: #%d", ErrBlockNotFound, n)
	}
	return s.codec.DecodeHeader(raw)
}

func (s *blockStore) block(n types.BlockNumber) (*types.Block, error) {
	raw, found, err := s.kv.Get(bodyKey(n))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: #%d", ErrBlockNotFound, n)
	}
	size, err := snappy.DecodedLen(raw)
	if err != nil {
		return nil, fmt.Errorf("区块体 #%d 损坏: %w", n, err)
	}
	if size > maxBlockBytes {
		return nil, fmt.Errorf("区块体 #%d 过大: %d > %d", n, size, maxBlockBytes)
	}
	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("解压区块体 #%d 失败: %w", n, err)
	}
	return s.codec.DecodeBlock(decoded)
}

func (s *blockStore) number(hash types.Hash) (types.BlockNumber, bool, error) {
	raw, found, err := s.kv.Get(hashKey(hash))
	if err != nil || !found {
		return 0, found, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("区块哈希索引损坏: %s", hash.Hex())
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// changes 新区块成为链头所需的全部链数据变更
func (s *blockStore) changes(block *types.Block, hash types.Hash) ([]storage.Change, error) {
	n := block.Header.Number
	header, err := s.codec.EncodeHeader(block.Header)
	if err != nil {
		return nil, err
	}
	body, err := s.codec.EncodeBlock(block)
	if err != nil {
		return nil, err
	}
	head, err := rlp.EncodeToBytes(types.ChainHead{Number: n, Hash: hash})
	if err != nil {
		return nil, err
	}
	return []storage.Change{
		{Key: headerKey(n), Value: header},
		{Key: bodyKey(n), Value: snappy.Encode(nil, body)},
		{Key: hashKey(hash), Value: numberBytes(n)},
		{Key: headKey, Value: head},
	}, nil
}

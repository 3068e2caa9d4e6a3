package executive

import (
	"context"
	"sync"

	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// SliceSupplier 按顺序提供固定交易列表，并记录被丢弃的交易
type SliceSupplier struct {
	mu      sync.Mutex
	txs     []*types.Transaction
	pos     int
	dropped []types.DroppedTransaction
}

var (
	_ executiveif.TransactionSupplier = (*SliceSupplier)(nil)
	_ executiveif.DropReporter        = (*SliceSupplier)(nil)
)

// NewSliceSupplier 创建交易来源
func NewSliceSupplier(txs ...*types.Transaction) *SliceSupplier {
	return &SliceSupplier{txs: txs}
}

// Next 实现 TransactionSupplier
func (s *SliceSupplier) Next(ctx context.Context) (*types.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil || s.pos >= len(s.txs) {
		return nil, false
	}
	tx := s.txs[s.pos]
	s.pos++
	return tx, true
}

// Dropped 实现 DropReporter
func (s *SliceSupplier) Dropped(tx *types.Transaction, err *types.ValidityError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = append(s.dropped, types.DroppedTransaction{Transaction: tx, Error: err})
}

// DroppedTransactions 已被丢弃的交易
func (s *SliceSupplier) DroppedTransactions() []types.DroppedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.DroppedTransaction(nil), s.dropped...)
}

// Remaining 尚未被拉取的交易（权重耗尽时留待下一个区块）
//
// 权重耗尽时最后被拉取的那笔交易没有被包含，也计入剩余。
func (s *SliceSupplier) Remaining(exhausted bool) []*types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := s.pos
	if exhausted && pos > 0 {
		pos--
	}
	return append([]*types.Transaction(nil), s.txs[pos:]...)
}

// Package chain 链服务：创世、区块导入、出块与链数据查询
//
// 🔗 **Chain 服务**
//
// - 运行时状态与链数据共享同一个 KVStore，分别位于 badger.StatePrefix 与 badger.ChainPrefix
// - 每个区块在独立的 Overlay 上执行，成功后状态变更与链数据在一次 Apply 中原子写入
// - 导入与出块串行执行；查询只读已提交数据
// - 提交后发布 EventBlockImported，链下工作者异步订阅该事件
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/executive"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	"github.com/weisyn/executive/internal/core/runtime"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

var (
	// ErrNoGenesis 链尚未初始化
	ErrNoGenesis = errors.New("链尚未初始化创世区块")

	// ErrBlockNotFound 区块不存在
	ErrBlockNotFound = errors.New("区块不存在")
)

// EventBlockImported 区块提交后发布，参数为 *BlockImported
const EventBlockImported event.EventType = "chain:block_imported"

// BlockImported 区块已提交事件
type BlockImported struct {
	Header *types.Header
	Hash   types.Hash
	// State 该区块提交时的状态快照，之后的导入对其不可见
	State storage.Reader

	snapshot storage.Snapshot
}

// Release 释放状态快照；链下工作者结束后调用
func (e *BlockImported) Release() {
	if e.snapshot != nil {
		e.snapshot.Release()
	}
}

// Metrics 链服务指标（可选依赖）
type Metrics interface {
	SetHead(number types.BlockNumber)
	ObserveImport(ok bool)
}

// AccountInfo 账户状态
type AccountInfo struct {
	Address  types.AccountID `json:"address"`
	Free     types.Balance   `json:"free"`
	Reserved types.Balance   `json:"reserved"`
	Nonce    types.Nonce     `json:"nonce"`
}

// Dependencies 链服务依赖
type Dependencies struct {
	Store     storage.KVStore
	Executive executiveif.Executive
	Codec     executiveif.Codec
	Runtime   *runtime.Runtime
	Genesis   *genesisconfig.GenesisOptions

	EventBus event.EventBus   // 可选
	Metrics  Metrics          // 可选
	Logger   log.Logger       // 可选
	Clock    func() time.Time // 可选，出块时间戳来源
}

// Service 链服务
type Service struct {
	exec    executiveif.Executive
	codec   executiveif.Codec
	rt      *runtime.Runtime
	genesis *genesisconfig.GenesisOptions
	bus     event.EventBus
	metrics Metrics
	logger  log.Logger
	clock   func() time.Time

	store   storage.KVStore
	stateKV *badger.Prefixed
	blocks  *blockStore

	// importMu 串行化导入与出块
	importMu sync.Mutex

	headMu sync.RWMutex
	head   *types.ChainHead
}

// New 创建链服务并加载已持久化的链头
func New(deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("存储不能为空")
	}
	if deps.Executive == nil {
		return nil, fmt.Errorf("执行器不能为空")
	}
	if deps.Codec == nil {
		return nil, fmt.Errorf("编解码器不能为空")
	}
	if deps.Runtime == nil {
		return nil, fmt.Errorf("运行时不能为空")
	}
	if deps.Genesis == nil {
		return nil, fmt.Errorf("创世配置不能为空")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Service{
		exec:    deps.Executive,
		codec:   deps.Codec,
		rt:      deps.Runtime,
		genesis: deps.Genesis,
		bus:     deps.EventBus,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		clock:   clock,
		store:   deps.Store,
		stateKV: badger.NewPrefixed(deps.Store, badger.StatePrefix),
		blocks:  &blockStore{kv: badger.NewPrefixed(deps.Store, badger.ChainPrefix), codec: deps.Codec},
	}

	head, err := s.blocks.head()
	if err != nil {
		return nil, err
	}
	s.head = head
	if head != nil && s.metrics != nil {
		s.metrics.SetHead(head.Number)
	}

	if s.bus != nil {
		if err := s.bus.SubscribeAsync(EventBlockImported, s.runOffchain, true); err != nil {
			return nil, fmt.Errorf("订阅区块导入事件失败: %w", err)
		}
	}
	return s, nil
}

// ==================== 创世 ====================

// Genesis 初始化创世区块；链已初始化时直接返回已有的创世区块头
func (s *Service) Genesis(ctx context.Context) (*types.Header, error) {
	s.importMu.Lock()
	defer s.importMu.Unlock()

	if s.currentHead() != nil {
		return s.blocks.header(0)
	}

	state := overlay.New(s.stateKV)
	if err := s.rt.Balances.Genesis(state, s.genesis.Accounts); err != nil {
		return nil, fmt.Errorf("写入创世余额失败: %w", err)
	}
	if err := s.rt.System.Genesis(state); err != nil {
		return nil, fmt.Errorf("写入创世系统状态失败: %w", err)
	}
	root, err := state.Root()
	if err != nil {
		return nil, err
	}
	header := &types.Header{Number: 0, StateRoot: root}
	hash, err := s.codec.HeaderHash(header)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, state, &types.Block{Header: header}, hash); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Infof("✅ 创世区块已写入: hash=%s accounts=%d", hash.Hex(), len(s.genesis.Accounts))
	}
	return header, nil
}

// ==================== 导入与出块 ====================

// ImportBlock 校验模式执行区块并提交
//
// 执行失败时没有任何写入，链头不变。
func (s *Service) ImportBlock(ctx context.Context, block *types.Block) (*types.BlockResult, error) {
	s.importMu.Lock()
	defer s.importMu.Unlock()

	head, err := s.requireHead()
	if err != nil {
		return nil, err
	}
	// 本地时钟等策略检查在执行之前，执行结果本身只取决于区块与父状态
	if err := s.exec.CheckInherents(ctx, block); err != nil {
		s.observeImport(false)
		return nil, err
	}
	state := overlay.New(s.stateKV)
	result, err := s.exec.ExecuteBlock(ctx, state, head, block)
	if err != nil {
		s.observeImport(false)
		return nil, err
	}
	if err := s.commit(ctx, state, block, result.Hash); err != nil {
		s.observeImport(false)
		return nil, err
	}
	s.observeImport(true)
	s.notify(block.Header, result.Hash)
	return result, nil
}

// ProduceBlock 以当前时间戳固有交易开头出块并提交
//
// txs 中被丢弃的交易记录在结果的 Dropped 中。
func (s *Service) ProduceBlock(ctx context.Context, txs []*types.Transaction, preRuntime []types.DigestItem) (*types.AuthoredBlock, error) {
	s.importMu.Lock()
	defer s.importMu.Unlock()

	head, err := s.requireHead()
	if err != nil {
		return nil, err
	}
	state := overlay.New(s.stateKV)
	inherent, err := s.timestampInherent(state)
	if err != nil {
		return nil, err
	}

	skeleton := &types.Header{ParentHash: head.Hash, Number: head.Number + 1}
	for _, item := range preRuntime {
		if item.Kind != types.DigestPreRuntime {
			return nil, fmt.Errorf("出块前只能写入 PreRuntime 摘要，得到 kind=%d", item.Kind)
		}
		skeleton.Digest = append(skeleton.Digest, item)
	}

	supplier := executive.NewSliceSupplier(append([]*types.Transaction{inherent}, txs...)...)
	authored, err := s.exec.AuthorBlock(ctx, state, head, skeleton, supplier)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, state, authored.Block, authored.Hash); err != nil {
		return nil, err
	}
	s.observeImport(true)
	if s.logger != nil {
		s.logger.Infof("出块 #%d hash=%s txs=%d dropped=%d weight=%d",
			authored.Block.Header.Number, authored.Hash.TerminalString(),
			len(authored.Block.Transactions), len(authored.Dropped), authored.WeightConsumed)
	}
	s.notify(authored.Block.Header, authored.Hash)
	return authored, nil
}

// timestampInherent 当前时钟的时间戳，不早于上一区块时间戳 + 1ms
func (s *Service) timestampInherent(state storage.Reader) (*types.Transaction, error) {
	prev, err := s.rt.Timestamp.Now(state)
	if err != nil {
		return nil, err
	}
	now := uint64(s.clock().UnixMilli())
	if now <= prev {
		now = prev + 1
	}
	return timestamp.Inherent(now)
}

// ValidateTransaction 在当前链头状态上校验交易，结果不影响链状态
func (s *Service) ValidateTransaction(ctx context.Context, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error) {
	head, err := s.requireHead()
	if err != nil {
		return nil, err
	}
	return s.exec.ValidateTransaction(ctx, overlay.New(s.stateKV), head, tx, source)
}

// commit 把状态变更与链数据合并为一次原子写入，然后推进链头
func (s *Service) commit(ctx context.Context, state *overlay.Overlay, block *types.Block, hash types.Hash) error {
	chainChanges, err := s.blocks.changes(block, hash)
	if err != nil {
		return fmt.Errorf("编码区块失败: %w", err)
	}
	changes := s.stateKV.Changes(state.Changes())
	changes = append(changes, s.blocks.kv.Changes(chainChanges)...)
	if err := s.store.Apply(ctx, changes); err != nil {
		return fmt.Errorf("提交区块 #%d 失败: %w", block.Header.Number, err)
	}

	s.headMu.Lock()
	s.head = &types.ChainHead{Number: block.Header.Number, Hash: hash}
	s.headMu.Unlock()
	if s.metrics != nil {
		s.metrics.SetHead(block.Header.Number)
	}
	return nil
}

// notify 在已提交状态上打开快照并发布导入事件；没有订阅者时同步运行链下工作者
//
// 调用方持有 importMu，快照恰好对应刚提交的区块。
func (s *Service) notify(header *types.Header, hash types.Hash) {
	snap, err := s.stateKV.Snapshot()
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("打开区块 #%d 状态快照失败，跳过链下任务: %v", header.Number, err)
		}
		return
	}
	imported := &BlockImported{Header: header, Hash: hash, State: snap, snapshot: snap}
	if s.bus != nil && s.bus.HasCallback(EventBlockImported) {
		s.bus.Publish(EventBlockImported, imported)
		return
	}
	s.runOffchain(imported)
}

func (s *Service) runOffchain(imported *BlockImported) {
	defer imported.Release()
	s.exec.OffchainWorker(context.Background(), imported.State, imported.Header)
}

func (s *Service) observeImport(ok bool) {
	if s.metrics != nil {
		s.metrics.ObserveImport(ok)
	}
}

// ==================== 查询 ====================

func (s *Service) currentHead() *types.ChainHead {
	s.headMu.RLock()
	defer s.headMu.RUnlock()
	return s.head
}

func (s *Service) requireHead() (types.ChainHead, error) {
	head := s.currentHead()
	if head == nil {
		return types.ChainHead{}, ErrNoGenesis
	}
	return *head, nil
}

// Head 当前链头
func (s *Service) Head(_ context.Context) (types.ChainHead, error) {
	return s.requireHead()
}

// HeaderByNumber 按高度查询区块头
func (s *Service) HeaderByNumber(_ context.Context, n types.BlockNumber) (*types.Header, error) {
	return s.blocks.header(n)
}

// BlockByNumber 按高度查询区块
func (s *Service) BlockByNumber(_ context.Context, n types.BlockNumber) (*types.Block, error) {
	return s.blocks.block(n)
}

// NumberByHash 按区块哈希查询高度
func (s *Service) NumberByHash(_ context.Context, hash types.Hash) (types.BlockNumber, error) {
	n, found, err := s.blocks.number(hash)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrBlockNotFound, hash.Hex())
	}
	return n, nil
}

// Account 查询已提交状态中的账户
func (s *Service) Account(_ context.Context, who types.AccountID) (*AccountInfo, error) {
	free, err := s.rt.Balances.FreeBalance(s.stateKV, who)
	if err != nil {
		return nil, err
	}
	reserved, err := s.rt.Balances.ReservedBalance(s.stateKV, who)
	if err != nil {
		return nil, err
	}
	nonce, err := s.rt.System.AccountNonce(s.stateKV, who)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{Address: who, Free: free, Reserved: reserved, Nonce: nonce}, nil
}

// Codec 链使用的编解码器
func (s *Service) Codec() executiveif.Codec { return s.codec }

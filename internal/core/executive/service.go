// Package executive 区块执行器编排服务
//
// 🎯 **两种模式共用一套流程**
//
//	ExecuteBlock (ModeVerify): 检查点 → 初始化 → 逐笔应用 → 终结并校验 → 提交
//	AuthorBlock  (ModeAuthor): 检查点 → 初始化 → 拉取并应用 → 终结并生成区块头 → 提交
//
// 任何致命错误回滚本次调用的检查点，调用方的状态视图与调用前逐位一致。
// Service 不持有区块级可变状态，不同候选区块可在各自的 Overlay.Fork 上并行执行。
package executive

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/executive/applicator"
	"github.com/weisyn/executive/internal/core/executive/extension"
	"github.com/weisyn/executive/internal/core/executive/finalizer"
	"github.com/weisyn/executive/internal/core/executive/initializer"
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/internal/core/executive/validator"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Service 区块执行器
type Service struct {
	// ========== 组件 ==========
	codec       executiveif.Codec
	registry    executiveif.Registry
	validator   interfaces.TransactionValidator
	applicator  interfaces.TransactionApplicator
	initializer interfaces.BlockInitializer
	finalizer   interfaces.BlockFinalizer

	// ========== 可选依赖 ==========
	logger  log.Logger
	metrics interfaces.MetricsRecorder
}

var _ executiveif.Executive = (*Service)(nil)

// Dependencies 执行器外部协作者
type Dependencies struct {
	Options  *executiveconfig.ExecutiveOptions
	Codec    executiveif.Codec
	Registry executiveif.Registry
	Nonces   executiveif.NonceKeeper
	Fees     executiveif.FeeCharger
	Verifier executiveif.SignatureVerifier
	Recorder executiveif.BlockContextRecorder
	Logger   log.Logger                 // 可选
	Metrics  interfaces.MetricsRecorder // 可选
}

// NewService 由协作者构建全部内部组件
func NewService(deps Dependencies) (*Service, error) {
	pipeline, err := extension.New(deps.Options, deps.Codec, deps.Registry, deps.Nonces, deps.Fees, deps.Verifier)
	if err != nil {
		return nil, fmt.Errorf("创建检查流水线失败: %w", err)
	}
	txValidator, err := validator.NewService(pipeline, deps.Options, deps.Logger, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("创建交易校验服务失败: %w", err)
	}
	txApplicator, err := applicator.NewService(pipeline, deps.Registry, deps.Logger, deps.Metrics)
	if err != nil {
		return nil, fmt.Errorf("创建交易应用服务失败: %w", err)
	}
	blockInitializer, err := initializer.NewService(deps.Options, deps.Registry, deps.Recorder, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("创建区块初始化服务失败: %w", err)
	}
	blockFinalizer, err := finalizer.NewService(deps.Registry, deps.Codec, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("创建区块终结服务失败: %w", err)
	}
	return NewServiceFromComponents(deps.Codec, deps.Registry, txValidator, txApplicator, blockInitializer, blockFinalizer, deps.Logger, deps.Metrics)
}

// NewServiceFromComponents 使用现成的内部组件构建执行器
func NewServiceFromComponents(
	codec executiveif.Codec,
	registry executiveif.Registry,
	txValidator interfaces.TransactionValidator,
	txApplicator interfaces.TransactionApplicator,
	blockInitializer interfaces.BlockInitializer,
	blockFinalizer interfaces.BlockFinalizer,
	logger log.Logger,
	metrics interfaces.MetricsRecorder,
) (*Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("编解码器不能为空")
	}
	if registry == nil {
		return nil, fmt.Errorf("模块注册表不能为空")
	}
	if txValidator == nil {
		return nil, fmt.Errorf("交易校验服务不能为空")
	}
	if txApplicator == nil {
		return nil, fmt.Errorf("交易应用服务不能为空")
	}
	if blockInitializer == nil {
		return nil, fmt.Errorf("区块初始化服务不能为空")
	}
	if blockFinalizer == nil {
		return nil, fmt.Errorf("区块终结服务不能为空")
	}
	return &Service{
		codec:       codec,
		registry:    registry,
		validator:   txValidator,
		applicator:  txApplicator,
		initializer: blockInitializer,
		finalizer:   blockFinalizer,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// ============================================================================
//                              校验模式
// ============================================================================

// CheckInherents 按模块的本地策略检查区块中的固有交易
//
// 固有交易只能位于区块开头，遇到第一笔非固有交易即停止。
func (s *Service) CheckInherents(ctx context.Context, block *types.Block) error {
	if block == nil {
		return fmt.Errorf("%w: 区块为空", types.ErrInvalidBlock)
	}
	for i, tx := range block.Transactions {
		if tx == nil || !tx.IsInherent() {
			break
		}
		m, ok := s.registry.Module(tx.Call.Module)
		if !ok {
			continue
		}
		checker, ok := m.(executiveif.InherentChecker)
		if !ok {
			continue
		}
		if err := checker.CheckInherent(ctx, tx.Call); err != nil {
			if _, isValidity := types.AsValidityError(err); !isValidity {
				err = types.NewValidityError(types.InvalidCall, "固有交易检查失败: %v", err)
			}
			return fmt.Errorf("%w: 固有交易 %d 未通过本地检查: %w", types.ErrInvalidBlock, i, err)
		}
	}
	return nil
}

// ExecuteBlock 执行并校验区块：全部成功后提交，否则回滚
func (s *Service) ExecuteBlock(ctx context.Context, state storage.State, parent types.ChainHead, block *types.Block) (*types.BlockResult, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: 状态视图不能为空", types.ErrInvalidBlock)
	}
	if block == nil || block.Header == nil {
		return nil, fmt.Errorf("%w: 区块或区块头为空", types.ErrInvalidBlock)
	}
	start := time.Now()

	cp := state.Checkpoint()
	result, err := s.executeBlock(ctx, state, parent, block)
	if err == nil {
		if commitErr := state.Commit(cp); commitErr != nil {
			err = fmt.Errorf("提交区块检查点失败: %w", commitErr)
		}
	}
	if err != nil {
		s.rollback(state, cp)
		s.observeBlock(types.ModeVerify, false, start, 0)
		if s.logger != nil {
			s.logger.Warnf("区块 #%d 执行失败: %v", block.Header.Number, err)
		}
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidBlock, err)
	}

	result.Duration = time.Since(start)
	s.observeBlock(types.ModeVerify, true, start, result.WeightConsumed)
	if s.logger != nil {
		s.logger.Infof("区块 #%d 执行完成: hash=%s txs=%d weight=%d", block.Header.Number, result.Hash.Hex(), len(block.Transactions), result.WeightConsumed)
	}
	return result, nil
}

func (s *Service) executeBlock(ctx context.Context, state storage.State, parent types.ChainHead, block *types.Block) (*types.BlockResult, error) {
	ectx, err := s.initializer.Initialize(ctx, state, parent, block.Header, types.ModeVerify)
	if err != nil {
		return nil, err
	}
	for i, tx := range block.Transactions {
		if _, err := s.applicator.Apply(ctx, ectx, tx, i); err != nil {
			return nil, fmt.Errorf("交易 %d 应用失败: %w", i, err)
		}
	}
	header, err := s.finalizer.Finalize(ctx, ectx)
	if err != nil {
		return nil, err
	}
	hash, err := s.codec.HeaderHash(block.Header)
	if err != nil {
		return nil, fmt.Errorf("计算区块哈希失败: %w", err)
	}
	return &types.BlockResult{
		Header:         header,
		Hash:           hash,
		Outcomes:       ectx.Outcomes,
		Events:         ectx.Events,
		WeightConsumed: ectx.WeightConsumed(),
	}, nil
}

// ============================================================================
//                              出块模式
// ============================================================================

// AuthorBlock 从 supplier 拉取交易生成新区块
//
// - 有效性错误：丢弃该交易（通过 DropReporter 通知来源），继续下一笔
// - 模块错误：交易保留在区块中
// - 权重不足：停止拉取，已包含的交易保留
// - ctx 取消：在两笔交易之间生效，整个出块回滚
func (s *Service) AuthorBlock(ctx context.Context, state storage.State, parent types.ChainHead, skeleton *types.Header, supplier executiveif.TransactionSupplier) (*types.AuthoredBlock, error) {
	if state == nil {
		return nil, fmt.Errorf("状态视图不能为空")
	}
	if supplier == nil {
		return nil, fmt.Errorf("交易来源不能为空")
	}
	header := &types.Header{ParentHash: parent.Hash, Number: parent.Number + 1}
	if skeleton != nil {
		header.ParentHash = skeleton.ParentHash
		header.Number = skeleton.Number
		header.Digest = skeleton.Copy().PreRuntimeDigest()
	}
	start := time.Now()

	cp := state.Checkpoint()
	authored, err := s.authorBlock(ctx, state, parent, header, supplier)
	if err == nil {
		if commitErr := state.Commit(cp); commitErr != nil {
			err = fmt.Errorf("提交出块检查点失败: %w", commitErr)
		}
	}
	if err != nil {
		s.rollback(state, cp)
		s.observeBlock(types.ModeAuthor, false, start, 0)
		if s.logger != nil {
			s.logger.Warnf("区块 #%d 出块失败: %v", header.Number, err)
		}
		return nil, err
	}

	s.observeBlock(types.ModeAuthor, true, start, authored.WeightConsumed)
	if s.logger != nil {
		s.logger.Infof("区块 #%d 出块完成: hash=%s txs=%d dropped=%d exhausted=%v",
			header.Number, authored.Hash.Hex(), len(authored.Block.Transactions), len(authored.Dropped), authored.Exhausted)
	}
	return authored, nil
}

func (s *Service) authorBlock(ctx context.Context, state storage.State, parent types.ChainHead, skeleton *types.Header, supplier executiveif.TransactionSupplier) (*types.AuthoredBlock, error) {
	ectx, err := s.initializer.Initialize(ctx, state, parent, skeleton, types.ModeAuthor)
	if err != nil {
		return nil, err
	}
	reporter, _ := supplier.(executiveif.DropReporter)

	var dropped []types.DroppedTransaction
	exhausted := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("出块被取消: %w", err)
		}
		tx, ok := supplier.Next(ctx)
		if !ok {
			break
		}
		_, err := s.applicator.Apply(ctx, ectx, tx, len(ectx.Transactions))
		if err == nil {
			continue
		}
		if errors.Is(err, types.ErrOverweight) {
			exhausted = true
			break
		}
		ve, ok := types.AsValidityError(err)
		if !ok {
			return nil, err
		}
		dropped = append(dropped, types.DroppedTransaction{Transaction: tx, Error: ve})
		if reporter != nil {
			reporter.Dropped(tx, ve)
		}
		if s.metrics != nil {
			s.metrics.ObserveDropped(ve.Kind)
		}
		if s.logger != nil {
			s.logger.Debugf("出块丢弃交易 %s: %v", tx, ve)
		}
	}

	header, err := s.finalizer.Finalize(ctx, ectx)
	if err != nil {
		return nil, err
	}
	hash, err := s.codec.HeaderHash(header)
	if err != nil {
		return nil, fmt.Errorf("计算区块哈希失败: %w", err)
	}
	return &types.AuthoredBlock{
		Block:          &types.Block{Header: header, Transactions: ectx.Transactions},
		Hash:           hash,
		Outcomes:       ectx.Outcomes,
		Events:         ectx.Events,
		Dropped:        dropped,
		WeightConsumed: ectx.WeightConsumed(),
		Exhausted:      exhausted,
	}, nil
}

// ============================================================================
//                              交易池校验与链下任务
// ============================================================================

// ValidateTransaction 在 parent 之后的区块上下文中校验交易
func (s *Service) ValidateTransaction(ctx context.Context, state storage.State, parent types.ChainHead, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error) {
	return s.validator.Validate(ctx, state, parent.Number+1, tx, source)
}

// OffchainWorker 对每个实现链下任务的模块启动一个 goroutine，等待全部结束
//
// 模块只能看到只读视图；错误与 panic 只记录日志。
func (s *Service) OffchainWorker(ctx context.Context, state storage.Reader, header *types.Header) {
	if state == nil || header == nil {
		return
	}
	view := overlay.WrapReadOnly(state)

	var wg sync.WaitGroup
	for _, m := range s.registry.Hooks() {
		worker, ok := m.(executiveif.OffchainWorker)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, worker executiveif.OffchainWorker) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil && s.logger != nil {
					s.logger.Errorf("模块 %s 链下任务 panic: %v\n%s", name, r, debug.Stack())
				}
			}()
			if err := worker.OffchainWorker(ctx, view, header); err != nil && s.logger != nil {
				s.logger.Warnf("模块 %s 链下任务失败: 区块 #%d: %v", name, header.Number, err)
			}
		}(m.Name(), worker)
	}
	wg.Wait()
}

func (s *Service) rollback(state storage.State, cp storage.Handle) {
	if err := state.Rollback(cp); err != nil && s.logger != nil {
		s.logger.Errorf("回滚检查点失败: %v", err)
	}
}

func (s *Service) observeBlock(mode types.ExecutionMode, ok bool, start time.Time, weight types.Weight) {
	if s.metrics != nil {
		s.metrics.ObserveBlock(mode, ok, time.Since(start).Seconds(), weight)
	}
}

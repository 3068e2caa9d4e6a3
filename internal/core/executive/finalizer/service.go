// Package finalizer 区块终结服务
package finalizer

import (
	"context"
	"fmt"

	"github.com/weisyn/executive/internal/core/executive/interfaces"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/executive/pkg/types"
)

// Service 区块终结服务
type Service struct {
	registry executive.Registry // ReverseHooks 提供终结顺序
	codec    executive.Codec    // 交易根
	logger   log.Logger         // 日志记录器（可选）
}

var _ interfaces.BlockFinalizer = (*Service)(nil)

// NewService 创建区块终结服务
func NewService(registry executive.Registry, codec executive.Codec, logger log.Logger) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("模块注册表不能为空")
	}
	if codec == nil {
		return nil, fmt.Errorf("编解码器不能为空")
	}
	return &Service{registry: registry, codec: codec, logger: logger}, nil
}

// Finalize 逆序运行 OnFinalize，计算交易根与状态根
//
// 校验模式：根与摘要（不含 Seal）必须与区块头一致，否则返回 ErrIntegrity。
// 出块模式：返回新生成的区块头。
func (s *Service) Finalize(ctx context.Context, ectx *interfaces.ExecutionContext) (*types.Header, error) {
	ectx.EnterPhase(types.PhaseFinalization, 0)
	for _, m := range s.registry.ReverseHooks() {
		if err := m.OnFinalize(ctx, ectx); err != nil {
			return nil, fmt.Errorf("%w: 模块 %s OnFinalize: %w", types.ErrHook, m.Name(), err)
		}
	}

	txRoot, err := s.codec.TransactionsRoot(ectx.Transactions)
	if err != nil {
		return nil, fmt.Errorf("计算交易根失败: %w", err)
	}
	stateRoot, err := ectx.State().Root()
	if err != nil {
		return nil, fmt.Errorf("计算状态根失败: %w", err)
	}

	if ectx.Mode == types.ModeAuthor {
		header := &types.Header{
			ParentHash:       ectx.Header.ParentHash,
			Number:           ectx.Header.Number,
			StateRoot:        stateRoot,
			TransactionsRoot: txRoot,
			Digest:           ectx.Digest,
		}
		return header.Copy(), nil
	}

	expected := ectx.Header
	if expected.TransactionsRoot != txRoot {
		return nil, fmt.Errorf("%w: 交易根不一致: 区块头 %s，计算 %s", types.ErrIntegrity, expected.TransactionsRoot.Hex(), txRoot.Hex())
	}
	if expected.StateRoot != stateRoot {
		return nil, fmt.Errorf("%w: 状态根不一致: 区块头 %s，计算 %s", types.ErrIntegrity, expected.StateRoot.Hex(), stateRoot.Hex())
	}
	if !types.DigestEqual(expected.UnsealedDigest(), ectx.Digest) {
		return nil, fmt.Errorf("%w: 摘要不一致: 区块头 %d 条，执行产生 %d 条", types.ErrIntegrity, len(expected.UnsealedDigest()), len(ectx.Digest))
	}
	if s.logger != nil {
		s.logger.Debugf("区块 #%d 校验通过: state_root=%s", expected.Number, stateRoot.Hex())
	}
	return expected.Copy(), nil
}

// Package initializer 区块初始化服务
package initializer

import (
	"context"
	"fmt"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/internal/core/executive/weight"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Service 区块初始化服务
type Service struct {
	options  *executiveconfig.ExecutiveOptions // 权重上限
	registry executive.Registry                 // 注册顺序即钩子顺序
	recorder executive.BlockContextRecorder     // system 模块
	logger   log.Logger                         // 日志记录器（可选）
}

var _ interfaces.BlockInitializer = (*Service)(nil)

// NewService 创建区块初始化服务
func NewService(options *executiveconfig.ExecutiveOptions, registry executive.Registry, recorder executive.BlockContextRecorder, logger log.Logger) (*Service, error) {
	if options == nil {
		return nil, fmt.Errorf("执行器配置不能为空")
	}
	if registry == nil {
		return nil, fmt.Errorf("模块注册表不能为空")
	}
	if recorder == nil {
		return nil, fmt.Errorf("区块上下文记录器不能为空")
	}
	return &Service{options: options, registry: registry, recorder: recorder, logger: logger}, nil
}

// Initialize 校验链头衔接、运行初始化钩子并设置权重上限
//
// 流程：
// 1. 高度与父哈希必须衔接当前链头
// 2. 带入 PreRuntime 摘要，记录区块上下文
// 3. 按注册顺序调用 OnInitialize，累计钩子权重
// 4. 以 (固定开销 + 钩子权重) 扣减后的上限重置计量器
func (s *Service) Initialize(ctx context.Context, state storage.State, parent types.ChainHead, header *types.Header, mode types.ExecutionMode) (*interfaces.ExecutionContext, error) {
	if state == nil {
		return nil, fmt.Errorf("状态视图不能为空")
	}
	if header == nil {
		return nil, fmt.Errorf("区块头不能为空")
	}
	if header.Number != parent.Number+1 {
		return nil, fmt.Errorf("%w: 高度 %d，链头 %s", types.ErrForkOrOrphan, header.Number, parent)
	}
	if header.ParentHash != parent.Hash {
		return nil, fmt.Errorf("%w: 父哈希 %s，链头 %s", types.ErrForkOrOrphan, header.ParentHash.Hex(), parent)
	}

	meter := weight.NewMeter(types.WeightLimits{})
	ectx := interfaces.NewExecutionContext(mode, parent, header, state, meter)
	ectx.Digest = header.Copy().PreRuntimeDigest()

	if err := s.recorder.RecordBlockContext(state, header.Number, header.ParentHash); err != nil {
		return nil, fmt.Errorf("%w: 记录区块上下文失败: %w", types.ErrHook, err)
	}

	ectx.EnterPhase(types.PhaseInitialization, 0)
	var hookWeight types.Weight
	for _, m := range s.registry.Hooks() {
		w, err := m.OnInitialize(ctx, ectx)
		if err != nil {
			return nil, fmt.Errorf("%w: 模块 %s OnInitialize: %w", types.ErrHook, m.Name(), err)
		}
		hookWeight = types.SaturatingAdd(hookWeight, w)
	}

	overhead := types.SaturatingAdd(s.options.BaseBlockWeight, hookWeight)
	if overhead > s.options.MaxBlockWeight {
		return nil, fmt.Errorf("%w: 区块开销 %d 超过上限 %d", types.ErrHook, overhead, s.options.MaxBlockWeight)
	}
	meter.Reset(s.options.BlockLimits(overhead))
	ectx.BaseWeight = overhead

	if s.logger != nil {
		s.logger.Debugf("区块 #%d 初始化完成: mode=%s exec_id=%s overhead=%d", header.Number, mode, ectx.ID, overhead)
	}
	return ectx, nil
}

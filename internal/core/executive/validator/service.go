// Package validator 交易池校验服务
//
// 校验在检查点内运行并总是回滚：重复校验同一交易、状态不变时结果相同。
package validator

import (
	"context"
	"fmt"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/executive/extension"
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/executive/pkg/types"
)

// Service 交易校验服务
type Service struct {
	pipeline *extension.Pipeline               // 检查流水线
	options  *executiveconfig.ExecutiveOptions // 权重上限
	logger   log.Logger                        // 日志记录器（可选）
	metrics  interfaces.MetricsRecorder        // 指标（可选）
}

var _ interfaces.TransactionValidator = (*Service)(nil)

// NewService 创建交易校验服务
func NewService(pipeline *extension.Pipeline, options *executiveconfig.ExecutiveOptions, logger log.Logger, metrics interfaces.MetricsRecorder) (*Service, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("检查流水线不能为空")
	}
	if options == nil {
		return nil, fmt.Errorf("执行器配置不能为空")
	}
	return &Service{pipeline: pipeline, options: options, logger: logger, metrics: metrics}, nil
}

// Validate 校验交易；拒绝原因以 *types.ValidityError 返回
//
// source 为 SourceInBlock 时 nonce 必须等于账户当前 nonce。
func (s *Service) Validate(ctx context.Context, state storage.State, number types.BlockNumber, tx *types.Transaction, source types.TransactionSource) (*types.ValidTransaction, error) {
	if state == nil {
		return nil, fmt.Errorf("状态视图不能为空")
	}
	switch source {
	case types.SourceExternal, types.SourceLocal, types.SourceInBlock:
	default:
		return nil, fmt.Errorf("未知交易来源: %d", source)
	}
	cp := state.Checkpoint()
	defer func() {
		if err := state.Rollback(cp); err != nil && s.logger != nil {
			s.logger.Warnf("回滚校验检查点失败: %v", err)
		}
	}()

	// 空块上限：扣除区块固定开销后的可用权重
	limits := s.options.BlockLimits(s.options.BaseBlockWeight)
	checked, err := s.pipeline.Check(ctx, state, number, tx, extension.ModeFor(source), limits)
	if s.metrics != nil {
		s.metrics.ObserveValidation(err == nil)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Debugf("交易校验未通过: source=%s tx=%s err=%v", source, tx, err)
		}
		return nil, err
	}

	valid := *checked.Valid
	if s.logger != nil {
		s.logger.Debugf("交易校验通过: source=%s tx=%s priority=%d", source, tx, valid.Priority)
	}
	return &valid, nil
}

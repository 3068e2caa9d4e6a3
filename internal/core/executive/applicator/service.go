// Package applicator 区块内交易应用服务
//
// 🎯 **检查点嵌套**
//
//	外层检查点: 预分发检查（推进 nonce、扣费）+ 权重计量
//	  内层检查点: 模块分发
//
// 有效性错误或权重超限回滚外层检查点，交易不留任何痕迹；
// 模块错误只回滚内层检查点，nonce、手续费与权重保留。
package applicator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/weisyn/executive/internal/core/executive/extension"
	"github.com/weisyn/executive/internal/core/executive/interfaces"
	executive "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/executive/pkg/types"
)

// ErrCodeUnclassified 非 DispatchError 的分发失败使用的错误码
const ErrCodeUnclassified uint8 = 255

// ExtrinsicSuccessData ExtrinsicSuccess 事件数据
type ExtrinsicSuccessData struct {
	Info types.DispatchInfo
}

// ExtrinsicFailedData ExtrinsicFailed 事件数据
type ExtrinsicFailedData struct {
	Error types.DispatchError
	Info  types.DispatchInfo
}

// Service 交易应用服务
type Service struct {
	pipeline *extension.Pipeline
	registry executive.Registry
	logger   log.Logger
	metrics  interfaces.MetricsRecorder
}

var _ interfaces.TransactionApplicator = (*Service)(nil)

// NewService 创建交易应用服务
func NewService(pipeline *extension.Pipeline, registry executive.Registry, logger log.Logger, metrics interfaces.MetricsRecorder) (*Service, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("检查流水线不能为空")
	}
	if registry == nil {
		return nil, fmt.Errorf("模块注册表不能为空")
	}
	return &Service{pipeline: pipeline, registry: registry, logger: logger, metrics: metrics}, nil
}

// Apply 应用一笔交易
func (s *Service) Apply(ctx context.Context, ectx *interfaces.ExecutionContext, tx *types.Transaction, index int) (types.Outcome, error) {
	if tx == nil {
		err := types.NewValidityError(types.InvalidBadProof, "交易为空")
		return unapplied(index, err), err
	}
	if tx.IsInherent() && ectx.SeenNonInherent() {
		err := types.NewValidityError(types.InvalidBadInherentPosition, "固有交易 %s 位于普通交易之后", tx.Call)
		return unapplied(index, err), err
	}

	state := ectx.State()
	outer := state.Checkpoint()
	abort := func(err error) (types.Outcome, error) {
		if rbErr := state.Rollback(outer); rbErr != nil {
			return types.Outcome{Index: index}, fmt.Errorf("回滚交易检查点失败: %w", rbErr)
		}
		if ve, ok := types.AsValidityError(err); ok {
			return unapplied(index, ve), err
		}
		return types.Outcome{Index: index}, err
	}

	// 1. 预分发检查：推进 nonce、扣除手续费
	checked, err := s.pipeline.Check(ctx, state, ectx.BlockNumber(), tx, extension.ModePreDispatch, ectx.Meter.Limits())
	if err != nil {
		return abort(err)
	}

	// 2. 权重
	if err := ectx.Meter.Check(checked.Weight, checked.Info.Class); err != nil {
		return abort(err)
	}

	// 3. 分发
	ectx.EnterPhase(types.PhaseApplyTransaction, index)
	eventMark := len(ectx.Events)
	outcome := types.Outcome{Index: index, Weight: checked.Weight, Fee: checked.Fee}

	inner := state.Checkpoint()
	events, dispatchErr := s.registry.Dispatch(ctx, ectx, tx.Origin, tx.Call)
	if dispatchErr != nil {
		if err := state.Rollback(inner); err != nil {
			return abort(fmt.Errorf("回滚分发检查点失败: %w", err))
		}
		ectx.TruncateEvents(eventMark)

		de := toDispatchError(tx.Call.Module, dispatchErr)
		// 强制类调用不允许失败
		if checked.Info.Class == types.ClassMandatory {
			return abort(types.NewValidityError(types.InvalidBadMandatory, "强制调用 %s 执行失败: %s", tx.Call, de.Message))
		}
		outcome.Kind = types.OutcomeModuleFailed
		outcome.ModuleErr = de
		ectx.DepositEvent(systemEvent(types.EventExtrinsicFailed, ExtrinsicFailedData{Error: *de, Info: checked.Info}))
	} else {
		if err := state.Commit(inner); err != nil {
			return abort(fmt.Errorf("提交分发检查点失败: %w", err))
		}
		for _, ev := range events {
			ectx.DepositEvent(ev)
		}
		outcome.Kind = types.OutcomeSucceeded
		ectx.DepositEvent(systemEvent(types.EventExtrinsicSuccess, ExtrinsicSuccessData{Info: checked.Info}))
	}

	if err := state.Commit(outer); err != nil {
		ectx.TruncateEvents(eventMark)
		return abort(fmt.Errorf("提交交易检查点失败: %w", err))
	}
	if err := ectx.Meter.Add(checked.Weight, checked.Info.Class); err != nil {
		return types.Outcome{Index: index}, err
	}

	// 4. 记录
	outcome.EventCount = len(ectx.Events) - eventMark
	if !tx.IsInherent() {
		ectx.MarkNonInherent()
	}
	ectx.Transactions = append(ectx.Transactions, tx)
	ectx.Outcomes = append(ectx.Outcomes, outcome)

	if s.metrics != nil {
		s.metrics.ObserveOutcome(outcome.Kind)
		s.metrics.ObserveWeight(checked.Info.Class, checked.Weight)
	}
	if s.logger != nil && outcome.Kind == types.OutcomeModuleFailed {
		s.logger.Debugf("交易 %d 模块执行失败: %s: %v", index, tx.Call, outcome.ModuleErr)
	}
	return outcome, nil
}

func unapplied(index int, ve *types.ValidityError) types.Outcome {
	return types.Outcome{Index: index, Kind: types.OutcomeUnapplied, Validity: ve}
}

func toDispatchError(module string, err error) *types.DispatchError {
	if de, ok := types.AsDispatchError(err); ok {
		return de
	}
	return types.NewDispatchError(module, ErrCodeUnclassified, err.Error())
}

func systemEvent(name string, data interface{}) types.Event {
	ev := types.Event{Module: types.SystemModule, Name: name}
	if encoded, err := rlp.EncodeToBytes(data); err == nil {
		ev.Data = encoded
	}
	return ev
}

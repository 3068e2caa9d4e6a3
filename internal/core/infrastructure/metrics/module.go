package metrics

import (
	"go.uber.org/fx"

	"github.com/weisyn/executive/internal/core/executive/interfaces"
	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// ModuleInput metrics 模块的输入依赖
type ModuleInput struct {
	fx.In

	Logger log.Logger `optional:"true"`
}

// ModuleOutput metrics 模块的输出
type ModuleOutput struct {
	fx.Out

	Recorder *Recorder
	Metrics  interfaces.MetricsRecorder
}

// Module 返回 metrics 模块的 fx.Option
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideRecorder),
	)
}

// ProvideRecorder 创建带运行时采集器的记录器
func ProvideRecorder(input ModuleInput) (ModuleOutput, error) {
	recorder, err := NewRecorder(true)
	if err != nil {
		return ModuleOutput{}, err
	}
	if logger := logimpl.WithModule(input.Logger, "metrics"); logger != nil {
		logger.Info("✅ 指标注册表已创建")
	}
	return ModuleOutput{Recorder: recorder, Metrics: recorder}, nil
}

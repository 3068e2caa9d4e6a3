// Package event 提供事件管理功能
package event

import (
	"context"

	"go.uber.org/fx"

	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/pkg/interfaces/config"
	eventiface "github.com/weisyn/executive/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Provider  config.Provider // 配置提供者
	Logger    log.Logger      `optional:"true"` // 日志记录器（可选）
	Lifecycle fx.Lifecycle    // 生命周期管理
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventiface.EventBus
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 创建事件总线，并在停止时等待异步处理器退出
func ProvideEventBus(input ModuleInput) ModuleOutput {
	logger := logimpl.WithModule(input.Logger, "event")
	bus := New(input.Provider.GetEvent(), logger)

	input.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			bus.Publish(SystemStarted)
			return nil
		},
		OnStop: func(context.Context) error {
			bus.Publish(SystemStopped)
			bus.WaitAsync()
			if logger != nil {
				logger.Infof("事件总线已停止，共发布 %d 个事件", bus.Published())
			}
			return nil
		},
	})
	return ModuleOutput{EventBus: bus}
}

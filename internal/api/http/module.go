package http

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/executive/internal/core/chain"
	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/pkg/interfaces/config"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// ModuleInput HTTP 模块输入依赖
type ModuleInput struct {
	fx.In

	Config   config.Provider
	Chain    *chain.Service
	Recorder *metrics.Recorder `optional:"true"`
	Logger   log.Logger        `optional:"true"`

	Lifecycle fx.Lifecycle
}

// Module 返回 HTTP API 模块
//
// API 被配置禁用时不创建服务器。
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建服务器并注册生命周期钩子
func ProvideServer(input ModuleInput) (*Server, error) {
	options := input.Config.GetAPI()
	logger := logimpl.WithModule(input.Logger, "http")

	server, err := NewServer(options, input.Chain, input.Recorder, logger)
	if err != nil {
		return nil, err
	}
	if !options.Enabled {
		if logger != nil {
			logger.Info("HTTP API 已禁用")
		}
		return server, nil
	}
	input.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server, nil
}

package log

import (
	"fmt"

	logconfig "github.com/weisyn/executive/internal/config/log"
	"github.com/weisyn/executive/pkg/interfaces/config"
	logInterface "github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ModuleParams 定义日志模块的依赖参数
type ModuleParams struct {
	fx.In

	Provider config.Provider
}

// ModuleOutput 定义日志模块的输出结构
type ModuleOutput struct {
	fx.Out

	Logger    logInterface.Logger
	ZapLogger *zap.Logger
}

// Module 返回日志模块
func Module() fx.Option {
	return fx.Module("log",
		fx.Provide(ProvideServices),
	)
}

// ProvideServices 根据配置初始化日志记录器，并替换全局日志器
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	logger, err := New(logconfig.New(params.Provider.GetLog()))
	if err != nil {
		return ModuleOutput{}, fmt.Errorf("根据用户配置创建日志记录器失败: %w", err)
	}
	SetLogger(logger)

	return ModuleOutput{
		Logger:    logger,
		ZapLogger: logger.GetZapLogger(),
	}, nil
}

// WithModule 为 logger 添加 module 字段；logger 为 nil 时返回 nil
func WithModule(logger logInterface.Logger, module string) logInterface.Logger {
	if logger == nil {
		return nil
	}
	return logger.With("module", module)
}

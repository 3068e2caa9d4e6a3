package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/weisyn/executive/internal/api"
	config "github.com/weisyn/executive/internal/config"
	"github.com/weisyn/executive/internal/core/chain"
	"github.com/weisyn/executive/internal/core/executive"
	"github.com/weisyn/executive/internal/core/infrastructure/clock"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto"
	"github.com/weisyn/executive/internal/core/infrastructure/event"
	log "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/internal/core/infrastructure/storage"
	"github.com/weisyn/executive/internal/core/runtime"
	configiface "github.com/weisyn/executive/pkg/interfaces/config"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 通信与数据层
	LayerCommunication = "communication"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts  *options
	fxApp *fx.App
	chain *chain.Service
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{
		opts: opts,
	}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),  // 1. 配置(不依赖其他)
		log.Module(),     // 2. 日志(依赖配置)
		metrics.Module(), // 3. 指标(依赖日志)
		crypto.Module(),  // 4. 密码学
		clock.Module(),   // 5. 时钟
	}
}

// SetupCommunicationLayer 设置通信与数据层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),   // 事件(依赖配置)
		storage.Module(), // 存储(依赖配置)
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
//
// 加载顺序遵循依赖关系：运行时 → 执行器 → 链服务
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		runtime.Module(),
		executive.Module(),
		chain.Module(),
		fx.Populate(&b.chain),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{api.Module()}
}

// SetupModules 按层次顺序组装所有模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupCommunicationLayer()...)
	allModules = append(allModules, b.SetupBusinessLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		fx.NopLogger,
	)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("装配依赖失败: %w", err)
	}
	return nil
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// BootstrapApp 执行完整的引导过程并返回应用实例
func BootstrapApp(opts *options) (App, error) {
	bootstrap := NewBootstrap(opts)
	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}
	return &internalApp{bootstrap: bootstrap}, nil
}

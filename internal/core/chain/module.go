package chain

import (
	"context"

	"go.uber.org/fx"

	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/infrastructure/clock"
	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/internal/core/runtime"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	clockif "github.com/weisyn/executive/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storage "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
)

// ModuleInput 定义 chain 模块的输入依赖
type ModuleInput struct {
	fx.In

	// ========== 基础设施组件 ==========
	Logger   log.Logger        `optional:"true"`
	EventBus event.EventBus    `optional:"true"`
	Metrics  *metrics.Recorder `optional:"true"`
	Clock    clockif.Clock     `optional:"true"`

	// ========== 存储与执行 ==========
	Store     storage.KVStore
	Executive executiveif.Executive
	Codec     executiveif.Codec
	Runtime   *runtime.Runtime
	Genesis   *genesisconfig.GenesisOptions

	Lifecycle fx.Lifecycle
}

// Module 返回 chain 模块
//
// 应用启动时写入（或加载）创世区块。
func Module() fx.Option {
	return fx.Module("chain",
		fx.Provide(ProvideService),
	)
}

// ProvideService 创建链服务
func ProvideService(input ModuleInput) (*Service, error) {
	deps := Dependencies{
		Store:     input.Store,
		Executive: input.Executive,
		Codec:     input.Codec,
		Runtime:   input.Runtime,
		Genesis:   input.Genesis,
		EventBus:  input.EventBus,
		Logger:    logimpl.WithModule(input.Logger, "chain"),
		Clock:     clock.NowFunc(input.Clock),
	}
	if input.Metrics != nil {
		deps.Metrics = input.Metrics
	}
	service, err := New(deps)
	if err != nil {
		return nil, err
	}
	input.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := service.Genesis(ctx)
			return err
		},
		// 存储关闭前等待链下工作者处理完已发布的区块
		OnStop: func(context.Context) error {
			if input.EventBus != nil {
				input.EventBus.WaitAsync()
			}
			return nil
		},
	})
	return service, nil
}

package config

import (
	"github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/pkg/interfaces/config"
	"github.com/weisyn/executive/pkg/types"
	"go.uber.org/fx"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	Provider config.Provider
}

// Module 返回配置模块
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			func(provider config.Provider) *executive.ExecutiveOptions {
				return provider.GetExecutive()
			},
			func(provider config.Provider) *genesis.GenesisOptions {
				return provider.GetGenesis()
			},
		),
	)
}

// ProvideConfigServices 提供配置服务
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}

	provider, err := NewProvider(appConfig)
	if err != nil {
		return ConfigOutput{}, err
	}
	return ConfigOutput{Provider: provider}, nil
}

// staticAppOptions 固定的应用配置
type staticAppOptions struct {
	appConfig *types.AppConfig
}

// NewAppOptions 包装已加载的应用配置
func NewAppOptions(appConfig *types.AppConfig) config.AppOptions {
	return &staticAppOptions{appConfig: appConfig}
}

func (o *staticAppOptions) GetAppConfig() *types.AppConfig {
	return o.appConfig
}

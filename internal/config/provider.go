// Package config 提供应用配置管理功能
//
// 配置来源为 JSON 文件（types.AppConfig），每个组件的 Options 由其子包的
// New(userConfig) 在默认值之上覆盖用户配置得到。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weisyn/executive/internal/config/api"
	"github.com/weisyn/executive/internal/config/event"
	"github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/config/log"
	"github.com/weisyn/executive/internal/config/storage/badger"
	"github.com/weisyn/executive/internal/config/storage/memory"
	"github.com/weisyn/executive/pkg/interfaces/config"
	"github.com/weisyn/executive/pkg/types"
)

const (
	defaultAppName     = "executive"
	defaultDataDir     = "./data"
	defaultEnvironment = "prod"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
	genesis   *genesis.GenesisOptions
}

// NewProvider 创建配置提供者；配置不一致时返回错误
func NewProvider(appConfig *types.AppConfig) (config.Provider, error) {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	if err := ValidateAppConfig(appConfig); err != nil {
		return nil, err
	}
	genesisCfg, err := genesis.New(appConfig.Genesis)
	if err != nil {
		return nil, &ValidationError{Field: "genesis", Message: err.Error()}
	}
	return &Provider{appConfig: appConfig, genesis: genesisCfg.GetOptions()}, nil
}

// LoadAppConfig 从 JSON 文件加载应用配置；path 为空时返回空配置
func LoadAppConfig(path string) (*types.AppConfig, error) {
	appConfig := &types.AppConfig{}
	if path == "" {
		return appConfig, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败 %s: %w", path, err)
	}
	if err := json.Unmarshal(data, appConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败 %s: %w", path, err)
	}
	return appConfig, nil
}

// GetAppName 应用名
func (p *Provider) GetAppName() string {
	if p.appConfig.AppName != nil && *p.appConfig.AppName != "" {
		return *p.appConfig.AppName
	}
	return defaultAppName
}

// GetDataDir 数据根目录
func (p *Provider) GetDataDir() string {
	if p.appConfig.DataDir != nil && *p.appConfig.DataDir != "" {
		return *p.appConfig.DataDir
	}
	return defaultDataDir
}

// GetEnvironment 运行环境，未配置或无效值时为 prod
func (p *Provider) GetEnvironment() string {
	if p.appConfig.Environment != nil {
		switch *p.appConfig.Environment {
		case "dev", "test", "prod":
			return *p.appConfig.Environment
		}
	}
	return defaultEnvironment
}

// GetLog 日志配置，默认写入 {data_dir}/logs
func (p *Provider) GetLog() *log.LogOptions {
	return log.NewWithDataDir(p.appConfig.Log, p.GetDataDir()).GetOptions()
}

// GetExecutive 执行器配置
func (p *Provider) GetExecutive() *executive.ExecutiveOptions {
	return executive.New(p.appConfig.Executive).GetOptions()
}

// GetBadger BadgerDB 配置；未配置 data_root 时使用 {data_dir}/badger
func (p *Provider) GetBadger() *badger.BadgerOptions {
	storage := p.appConfig.Storage
	if storage == nil || storage.DataRoot == nil {
		dataRoot := p.GetDataDir()
		merged := types.UserStorageConfig{DataRoot: &dataRoot}
		if storage != nil {
			merged.InMemory = storage.InMemory
			merged.SyncWrites = storage.SyncWrites
		}
		storage = &merged
	}
	options := badger.New(storage).GetOptions()
	options.Path = filepath.Clean(options.Path)
	return options
}

// GetMemory 状态读缓存配置
func (p *Provider) GetMemory() *memory.MemoryOptions {
	return memory.New(p.appConfig.Storage).GetOptions()
}

// GetAPI HTTP API 配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetEvent 事件系统配置
func (p *Provider) GetEvent() *event.EventOptions {
	return event.New(p.appConfig.Event).GetOptions()
}

// GetGenesis 创世配置
func (p *Provider) GetGenesis() *genesis.GenesisOptions {
	return p.genesis
}

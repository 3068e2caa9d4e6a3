// Package storage 提供存储管理功能
//
// 对外只暴露一个 KVStore：BadgerDB 后端，按配置在前面叠加 BigCache 读缓存。
// 链数据与运行时状态通过 badger.Prefixed 划分键空间，但共享同一个后端，
// 以便一次 Apply 原子地写入两者。
package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	badgerconfig "github.com/weisyn/executive/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/executive/internal/config/storage/memory"
	logimpl "github.com/weisyn/executive/internal/core/infrastructure/log"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/executive/pkg/interfaces/config"
	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/executive/pkg/interfaces/infrastructure/storage"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Provider  config.Provider // 配置提供者
	Logger    log.Logger      `optional:"true"` // 日志记录器
	Lifecycle fx.Lifecycle
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	Store storageInterface.KVStore
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStore),
	)
}

// Open 根据配置打开后端；cacheOptions 为 nil 或未启用时不加读缓存
func Open(badgerOptions *badgerconfig.BadgerOptions, cacheOptions *memoryconfig.MemoryOptions, logger log.Logger) (storageInterface.KVStore, error) {
	store, err := badger.New(badgerconfig.NewFromOptions(badgerOptions), logimpl.WithModule(logger, "badger"))
	if err != nil {
		return nil, err
	}
	if cacheOptions == nil || !cacheOptions.Enabled {
		return store, nil
	}
	cached, err := memory.New(context.Background(), store, memoryconfig.NewFromOptions(cacheOptions), logimpl.WithModule(logger, "state_cache"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("创建状态读缓存失败: %w", err)
	}
	return cached, nil
}

// ProvideStore 打开存储并在应用停止时关闭
func ProvideStore(params ModuleParams) (ModuleOutput, error) {
	logger := logimpl.WithModule(params.Logger, "storage")
	store, err := Open(params.Provider.GetBadger(), params.Provider.GetMemory(), logger)
	if err != nil {
		return ModuleOutput{}, err
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if logger != nil {
				logger.Info("关闭存储")
			}
			return store.Close()
		},
	})
	return ModuleOutput{Store: store}, nil
}

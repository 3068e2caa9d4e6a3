// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/executive/internal/config/api"
	eventconfig "github.com/weisyn/executive/internal/config/event"
	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	logconfig "github.com/weisyn/executive/internal/config/log"
	badgerconfig "github.com/weisyn/executive/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/executive/internal/config/storage/memory"
)

// Provider 配置提供者接口
type Provider interface {
	// === 应用信息 ===

	GetAppName() string
	// GetDataDir 数据根目录
	GetDataDir() string
	// GetEnvironment 运行环境 (dev | test | prod)
	GetEnvironment() string

	// === 组件配置 ===

	GetLog() *logconfig.LogOptions
	GetExecutive() *executiveconfig.ExecutiveOptions
	GetBadger() *badgerconfig.BadgerOptions
	GetMemory() *memoryconfig.MemoryOptions
	GetAPI() *apiconfig.APIOptions
	GetEvent() *eventconfig.EventOptions
	GetGenesis() *genesisconfig.GenesisOptions
}

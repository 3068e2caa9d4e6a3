package badger

import (
	"path/filepath"

	configtypes "github.com/weisyn/executive/pkg/types"
)

// BadgerOptions BadgerDB存储配置选项
type BadgerOptions struct {
	Path       string `json:"path"`        // 数据库存储路径
	InMemory   bool   `json:"in_memory"`   // 纯内存模式（测试、临时链）
	SyncWrites bool   `json:"sync_writes"` // 是否同步写入

	MemTableSize int64 `json:"mem_table_size"` // 内存表大小
}

// Config BadgerDB配置实现
type Config struct {
	options *BadgerOptions
}

// New 创建BadgerDB配置，userConfig 为 *types.UserStorageConfig
//
// 路径规则：配置了 storage.data_root 时使用 {data_root}/badger，否则 ./data/badger
func New(userConfig interface{}) *Config {
	options := createDefaultBadgerOptions()
	if storageConfig, ok := userConfig.(*configtypes.UserStorageConfig); ok && storageConfig != nil {
		if storageConfig.DataRoot != nil {
			options.Path = filepath.Join(*storageConfig.DataRoot, "badger")
		}
		if storageConfig.InMemory != nil {
			options.InMemory = *storageConfig.InMemory
		}
		if storageConfig.SyncWrites != nil {
			options.SyncWrites = *storageConfig.SyncWrites
		}
	}
	return &Config{options: options}
}

// NewFromOptions 从BadgerOptions创建配置实现
func NewFromOptions(options *BadgerOptions) *Config {
	return &Config{options: options}
}

// NewInMemory 纯内存配置
func NewInMemory() *Config {
	options := createDefaultBadgerOptions()
	options.InMemory = true
	options.Path = ""
	options.MemTableSize = inMemoryMemTableSize
	return &Config{options: options}
}

func createDefaultBadgerOptions() *BadgerOptions {
	return &BadgerOptions{
		Path:         defaultPath,
		InMemory:     defaultInMemory,
		SyncWrites:   defaultSyncWrites,
		MemTableSize: defaultMemTableSize,
	}
}

// GetOptions 获取完整的BadgerDB配置选项
func (c *Config) GetOptions() *BadgerOptions {
	return c.options
}

func (c *Config) GetPath() string { return c.options.Path }

func (c *Config) IsInMemory() bool { return c.options.InMemory }

func (c *Config) IsSyncWritesEnabled() bool { return c.options.SyncWrites }

func (c *Config) GetMemTableSize() int64 { return c.options.MemTableSize }

package memory

import (
	"time"

	configtypes "github.com/weisyn/executive/pkg/types"
)

// MemoryOptions 状态读缓存（BigCache）配置选项
type MemoryOptions struct {
	Enabled      bool          `json:"enabled"`
	MaxMemoryMB  int           `json:"max_memory_mb"`  // 缓存硬上限(MB)
	Shards       int           `json:"shards"`         // 分片数，必须是2的幂
	LifeWindow   time.Duration `json:"life_window"`    // 条目存活时间
	CleanWindow  time.Duration `json:"clean_window"`   // 过期清理间隔
	MaxEntrySize int           `json:"max_entry_size"` // 预估单条目大小(字节)
	MaxEntries   int           `json:"max_entries"`    // 窗口内预估条目数
}

// Config 内存缓存配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建缓存配置，userConfig 为 *types.UserStorageConfig
func New(userConfig interface{}) *Config {
	options := &MemoryOptions{
		Enabled:      defaultEnabled,
		MaxMemoryMB:  defaultMaxMemoryMB,
		Shards:       defaultShards,
		LifeWindow:   defaultLifeWindow,
		CleanWindow:  defaultCleanWindow,
		MaxEntrySize: defaultMaxEntrySize,
		MaxEntries:   defaultMaxEntries,
	}
	if storageConfig, ok := userConfig.(*configtypes.UserStorageConfig); ok && storageConfig != nil {
		if storageConfig.CacheEnabled != nil {
			options.Enabled = *storageConfig.CacheEnabled
		}
		if storageConfig.ReadCacheMB != nil {
			options.MaxMemoryMB = *storageConfig.ReadCacheMB
		}
	}
	return &Config{options: options}
}

// NewFromOptions 从完整选项创建配置
func NewFromOptions(options *MemoryOptions) *Config {
	return &Config{options: options}
}

// GetOptions 获取完整配置选项
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

package event

import "github.com/weisyn/executive/pkg/types"

// EventOptions 事件系统配置选项
type EventOptions struct {
	Enabled bool `json:"enabled"` // 是否启用事件系统

	// Transactional 异步订阅者是否逐个串行处理同一主题的事件
	Transactional bool `json:"transactional"`

	// MaxSubscribers 单个主题的最大订阅者数量，0 表示不限制
	MaxSubscribers int `json:"max_subscribers"`
}

// Config 事件配置实现
type Config struct {
	options *EventOptions
}

// New 在默认值之上覆盖用户配置
func New(userConfig *types.UserEventConfig) *Config {
	options := &EventOptions{
		Enabled:        defaultEnabled,
		Transactional:  defaultTransactional,
		MaxSubscribers: defaultMaxSubscribers,
	}
	if userConfig != nil {
		if userConfig.Enabled != nil {
			options.Enabled = *userConfig.Enabled
		}
		if userConfig.Transactional != nil {
			options.Transactional = *userConfig.Transactional
		}
		if userConfig.MaxSubscribers != nil && *userConfig.MaxSubscribers >= 0 {
			options.MaxSubscribers = *userConfig.MaxSubscribers
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *EventOptions {
	return c.options
}

// IsEnabled 事件系统是否启用
func (c *Config) IsEnabled() bool {
	return c.options.Enabled
}

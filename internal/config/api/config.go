package api

import (
	"github.com/weisyn/executive/pkg/types"
)

// APIOptions HTTP API 配置选项
type APIOptions struct {
	Enabled    bool   `json:"enabled"`     // 是否启动 HTTP 服务
	ListenAddr string `json:"listen_addr"` // 监听地址 host:port

	// EnableMetrics 是否暴露 /metrics
	EnableMetrics bool `json:"enable_metrics"`
	// EnableProduce 是否开放 POST /v1/blocks/produce（开发节点使用）
	EnableProduce bool `json:"enable_produce"`
	// GinMode gin 运行模式 (debug | release | test)
	GinMode string `json:"gin_mode"`
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置
func New(userConfig *types.UserAPIConfig) *Config {
	options := &APIOptions{
		Enabled:       defaultEnabled,
		ListenAddr:    defaultListenAddr,
		EnableMetrics: defaultEnableMetrics,
		EnableProduce: defaultEnableProduce,
		GinMode:       defaultGinMode,
	}
	if userConfig != nil {
		if userConfig.Enabled != nil {
			options.Enabled = *userConfig.Enabled
		}
		if userConfig.ListenAddr != nil {
			options.ListenAddr = *userConfig.ListenAddr
		}
		if userConfig.EnableMetrics != nil {
			options.EnableMetrics = *userConfig.EnableMetrics
		}
		if userConfig.EnableProduce != nil {
			options.EnableProduce = *userConfig.EnableProduce
		}
		if userConfig.GinMode != nil && *userConfig.GinMode != "" {
			options.GinMode = *userConfig.GinMode
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *APIOptions {
	return c.options
}

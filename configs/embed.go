// Package configs 嵌入各环境的示例配置文件
package configs

import (
	_ "embed"
	"fmt"
	"slices"
)

//go:embed development/config.json
var developmentConfig []byte

//go:embed production/config.json
var productionConfig []byte

var embedded = map[string][]byte{
	"development": developmentConfig,
	"production":  productionConfig,
}

// Environments 已嵌入配置的环境名（有序）
func Environments() []string {
	names := make([]string, 0, len(embedded))
	for name := range embedded {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get 返回指定环境的配置文件内容副本
func Get(env string) ([]byte, error) {
	data, ok := embedded[env]
	if !ok {
		return nil, fmt.Errorf("未知环境 %q，可选: %v", env, Environments())
	}
	return slices.Clone(data), nil
}

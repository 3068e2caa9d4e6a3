package config

import (
	"fmt"

	"github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/pkg/types"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// ValidateAppConfig 在启动时验证配置的一致性
func ValidateAppConfig(appConfig *types.AppConfig) error {
	if err := executive.New(appConfig.Executive).GetOptions().Validate(); err != nil {
		return &ValidationError{Field: "executive", Message: err.Error()}
	}
	if s := appConfig.Storage; s != nil && s.ReadCacheMB != nil && *s.ReadCacheMB < 0 {
		return &ValidationError{Field: "storage.read_cache_mb", Message: "不能为负数"}
	}
	if a := appConfig.API; a != nil && a.ListenAddr != nil && *a.ListenAddr == "" {
		return &ValidationError{Field: "api.listen_addr", Message: "不能为空"}
	}
	return nil
}

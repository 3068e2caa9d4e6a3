// Package version provides version information for the application.
package version

import (
	"fmt"
	"runtime"
)

// 构建时注入的变量，通过ldflags设置
var (
	Version   = "v0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown" // RFC3339

	GoVersion = runtime.Version()
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion 获取版本号
func GetVersion() string {
	return Version
}

// GetBuildInfo 获取完整构建信息
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// GetFullVersion 获取完整版本信息（用于 version 命令输出）
func GetFullVersion() string {
	info := GetBuildInfo()
	return fmt.Sprintf("executive %s (commit %s, built %s, %s %s)",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
}

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/weisyn/executive/internal/config"
	"github.com/weisyn/executive/internal/core/chain"
	"github.com/weisyn/executive/pkg/types"
)

// 环境变量 EXECUTIVE_CONFIG_PATH 的优先级高于 WithConfigFile
const configPathEnv = "EXECUTIVE_CONFIG_PATH"

// resolveConfig 按 显式配置 > 环境变量 > 配置文件路径 的顺序确定配置
func resolveConfig(opts *options) error {
	if opts.appConfig != nil {
		return nil
	}
	path := opts.configFilePath
	if envPath := os.Getenv(configPathEnv); envPath != "" {
		path = envPath
	}
	appConfig, err := config.LoadAppConfig(path)
	if err != nil {
		return err
	}
	opts.appConfig = appConfig
	return createDataDirectories(appConfig)
}

// createDataDirectories 根据配置创建数据目录与日志目录
func createDataDirectories(appConfig *types.AppConfig) error {
	var directories []string
	if appConfig.Storage != nil && appConfig.Storage.DataRoot != nil &&
		(appConfig.Storage.InMemory == nil || !*appConfig.Storage.InMemory) {
		directories = append(directories, *appConfig.Storage.DataRoot)
	}
	if appConfig.Log != nil && appConfig.Log.FilePath != nil && *appConfig.Log.FilePath != "" {
		directories = append(directories, filepath.Dir(*appConfig.Log.FilePath))
	}
	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// App 应用对外接口
type App interface {
	// Chain 链服务
	Chain() *chain.Service

	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait() error
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Chain 链服务
func (a *internalApp) Chain() *chain.Service {
	return a.bootstrap.chain
}

// Stop 停止应用
//
// 留足时间让存储完成同步与关闭。
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待 SIGINT / SIGTERM
func (a *internalApp) Wait() error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	<-signals
	return a.Stop()
}

// Start 装配并启动应用
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)
	if err := resolveConfig(opts); err != nil {
		return nil, err
	}
	return BootstrapApp(opts)
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/executive/internal/app"
	"github.com/weisyn/executive/internal/app/version"
	"github.com/weisyn/executive/internal/config"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/pkg/types"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath   string // 配置文件
	DataDir      string // 覆盖配置中的 data_dir
	OutputFormat string // 输出格式
	Silent       bool   // 静默模式
}

// cli 命令共享的状态
type cli struct {
	flags     GlobalFlags
	formatter *Formatter
}

// newRootCmd 根命令
func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "executive",
		Short: "区块执行器节点",
		Long: `executive - 账户模型区块执行器

离线命令（genesis/head/block/account/tx validate）直接打开本地数据目录，
不能与正在运行的 serve 共享同一数据目录。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format := Format(c.flags.OutputFormat)
			if !cmd.Flags().Changed("output") && isTerminal(cmd.OutOrStdout()) {
				format = FormatPretty
			}
			formatter, err := NewFormatter(format, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			formatter.SetSilent(c.flags.Silent)
			c.formatter = formatter
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.flags.ConfigPath, "config", "c", "", "配置文件路径 (JSON)")
	root.PersistentFlags().StringVar(&c.flags.DataDir, "data-dir", "", "数据目录（覆盖配置文件）")
	root.PersistentFlags().StringVarP(&c.flags.OutputFormat, "output", "o", string(FormatJSON), "输出格式: json|pretty|table")
	root.PersistentFlags().BoolVar(&c.flags.Silent, "silent", false, "静默模式 (仅输出结果)")

	root.AddCommand(
		newServeCmd(c),
		newGenesisCmd(c),
		newHeadCmd(c),
		newBlockCmd(c),
		newAccountCmd(c),
		newTxCmd(c),
		newKeyCmd(c),
		newConfigCmd(c),
		newVersionCmd(c),
	)

	// 错误统一由 pterm 输出
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	wrapErrors(root, c)
	return root
}

// isTerminal 输出目标是否为终端；未显式指定 --output 时终端使用缩进 JSON
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// wrapErrors 让每个命令的错误经 Formatter 输出一次
func wrapErrors(cmd *cobra.Command, c *cli) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil && c.formatter != nil {
				c.formatter.PrintError(err)
			}
			return err
		}
	}
	for _, child := range cmd.Commands() {
		wrapErrors(child, c)
	}
}

// loadConfig 读取配置并应用命令行覆盖
func (c *cli) loadConfig() (*types.AppConfig, error) {
	path := c.flags.ConfigPath
	if path == "" {
		path = os.Getenv("EXECUTIVE_CONFIG_PATH")
	}
	appConfig, err := config.LoadAppConfig(path)
	if err != nil {
		return nil, err
	}
	if c.flags.DataDir != "" {
		appConfig.DataDir = types.StringPtr(c.flags.DataDir)
	}
	return appConfig, nil
}

// openNode 启动不含 HTTP API 的节点，用于离线命令
func (c *cli) openNode() (app.App, error) {
	appConfig, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Start(app.WithAppConfig(appConfig), app.WithoutAPI())
}

// withNode 打开节点执行 fn，然后关闭
func (c *cli) withNode(fn func(node app.App) error) error {
	node, err := c.openNode()
	if err != nil {
		return err
	}
	runErr := fn(node)
	if err := node.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// readHexInput 解析 0x 十六进制参数；参数是 @path 时从文件读取
//
// 文件内容可以是十六进制文本，也可以是原始字节。
func readHexInput(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text := strings.TrimSpace(string(data))
		if strings.HasPrefix(text, "0x") {
			return hexutil.Decode(text)
		}
		return data, nil
	}
	return hexutil.Decode(strings.TrimSpace(arg))
}

// parseAccount 解析地址；也接受开发账户名（如 alice）
func parseAccount(s string) (types.AccountID, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	if s == "" || strings.HasPrefix(s, "0x") {
		return types.AccountID{}, fmt.Errorf("地址格式不正确: %q", s)
	}
	return signature.Address(signature.DevKey(s)), nil
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.formatter.Print(version.GetBuildInfo())
		},
	}
}

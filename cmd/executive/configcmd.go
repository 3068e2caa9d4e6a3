package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weisyn/executive/configs"
)

func newConfigCmd(c *cli) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "示例配置文件",
	}

	var out string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <development|production>",
		Short: "输出指定环境的示例配置",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := configs.Get(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if !force {
				if _, err := os.Stat(out); err == nil {
					return fmt.Errorf("文件已存在: %s（使用 --force 覆盖）", out)
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("写入配置失败: %w", err)
			}
			c.formatter.Success("配置已写入 %s", out)
			return nil
		},
	}
	initCmd.Flags().StringVar(&out, "out", "", "写入文件而不是标准输出")
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的文件")

	configCmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "list",
			Short: "列出内置的环境",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.formatter.Print(map[string]interface{}{"environments": configs.Environments()})
			},
		},
	)
	return configCmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/weisyn/executive/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动节点与 HTTP API，直到收到退出信号",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := c.loadConfig()
			if err != nil {
				return err
			}
			node, err := app.Start(app.WithAppConfig(appConfig))
			if err != nil {
				return err
			}
			head, err := node.Chain().Head(cmd.Context())
			if err != nil {
				_ = node.Stop()
				return err
			}
			c.formatter.Success("节点已启动，链头 %s，按 Ctrl+C 停止", head)
			if err := node.Wait(); err != nil {
				return err
			}
			c.formatter.Info("节点已停止")
			return nil
		},
	}
}

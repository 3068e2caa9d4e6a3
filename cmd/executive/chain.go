package main

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/weisyn/executive/internal/app"
	"github.com/weisyn/executive/pkg/types"
)

func newGenesisCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "初始化创世区块（已初始化时输出已有的创世区块）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withNode(func(node app.App) error {
				header, err := node.Chain().HeaderByNumber(cmd.Context(), 0)
				if err != nil {
					return err
				}
				hash, err := node.Chain().Codec().HeaderHash(header)
				if err != nil {
					return err
				}
				c.formatter.Success("创世区块 %s", hash.Hex())
				return c.formatter.Print(map[string]interface{}{
					"hash":   hash,
					"header": header,
				})
			})
		},
	}
}

func newHeadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "head",
		Short: "显示当前链头",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withNode(func(node app.App) error {
				head, err := node.Chain().Head(cmd.Context())
				if err != nil {
					return err
				}
				return c.formatter.Print(head)
			})
		},
	}
}

func newAccountCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "account <address|dev-name>",
		Short: "查询账户余额与 nonce",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return c.withNode(func(node app.App) error {
				info, err := node.Chain().Account(cmd.Context(), who)
				if err != nil {
					return err
				}
				return c.formatter.Print(info)
			})
		},
	}
}

// blockView 区块输出
type blockView struct {
	Hash    types.Hash    `json:"hash"`
	Header  *types.Header `json:"header"`
	TxCount int           `json:"tx_count"`
	Encoded hexutil.Bytes `json:"encoded,omitempty"`
}

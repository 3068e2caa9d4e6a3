package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/weisyn/executive/internal/app"
	"github.com/weisyn/executive/pkg/types"
)

func newBlockCmd(c *cli) *cobra.Command {
	blockCmd := &cobra.Command{
		Use:   "block",
		Short: "区块查询、导入与出块",
	}
	blockCmd.AddCommand(newBlockGetCmd(c), newBlockImportCmd(c), newBlockAuthorCmd(c))
	return blockCmd
}

func newBlockGetCmd(c *cli) *cobra.Command {
	var withEncoded bool
	cmd := &cobra.Command{
		Use:   "get <number|hash>",
		Short: "按高度或哈希获取区块",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withNode(func(node app.App) error {
				ctx := cmd.Context()
				chain := node.Chain()

				var number types.BlockNumber
				if strings.HasPrefix(args[0], "0x") {
					n, err := chain.NumberByHash(ctx, types.HexToHash(args[0]))
					if err != nil {
						return err
					}
					number = n
				} else {
					n, err := strconv.ParseUint(args[0], 10, 64)
					if err != nil {
						return fmt.Errorf("区块高度不正确: %s", args[0])
					}
					number = n
				}

				block, err := chain.BlockByNumber(ctx, number)
				if err != nil {
					return err
				}
				hash, err := chain.Codec().HeaderHash(block.Header)
				if err != nil {
					return err
				}
				view := &blockView{Hash: hash, Header: block.Header, TxCount: len(block.Transactions)}
				if withEncoded {
					if view.Encoded, err = chain.Codec().EncodeBlock(block); err != nil {
						return err
					}
				}
				return c.formatter.Print(view)
			})
		},
	}
	cmd.Flags().BoolVar(&withEncoded, "encoded", false, "输出 RLP 编码的区块")
	return cmd
}

func newBlockImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <0x-block|@file>",
		Short: "校验并导入区块",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readHexInput(args[0])
			if err != nil {
				return fmt.Errorf("读取区块失败: %w", err)
			}
			return c.withNode(func(node app.App) error {
				block, err := node.Chain().Codec().DecodeBlock(raw)
				if err != nil {
					return err
				}
				result, err := node.Chain().ImportBlock(cmd.Context(), block)
				if err != nil {
					return err
				}
				c.formatter.Success("已导入区块 #%d %s", result.Header.Number, result.Hash.Hex())
				return c.formatter.Print(map[string]interface{}{
					"hash":            result.Hash,
					"number":          result.Header.Number,
					"outcomes":        result.Outcomes,
					"weight_consumed": result.WeightConsumed,
				})
			})
		},
	}
}

func newBlockAuthorCmd(c *cli) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "author [0x-tx|@file]...",
		Short: "以给定交易出块并提交（自动注入时间戳）",
		RunE: func(cmd *cobra.Command, args []string) error {
			raws := make([][]byte, 0, len(args))
			for _, arg := range args {
				raw, err := readHexInput(arg)
				if err != nil {
					return fmt.Errorf("读取交易 %s 失败: %w", arg, err)
				}
				raws = append(raws, raw)
			}
			return c.withNode(func(node app.App) error {
				codec := node.Chain().Codec()
				txs := make([]*types.Transaction, 0, len(raws))
				for i, raw := range raws {
					tx, err := codec.DecodeTransaction(raw)
					if err != nil {
						return fmt.Errorf("交易 %d 解码失败: %w", i, err)
					}
					txs = append(txs, tx)
				}

				authored, err := node.Chain().ProduceBlock(cmd.Context(), txs, nil)
				if err != nil {
					return err
				}
				encoded, err := codec.EncodeBlock(authored.Block)
				if err != nil {
					return err
				}
				for _, dropped := range authored.Dropped {
					c.formatter.Warning("交易被丢弃: %s: %v", dropped.Transaction, dropped.Error)
				}
				if outPath != "" {
					if err := os.WriteFile(outPath, []byte(hexutil.Encode(encoded)), 0o644); err != nil {
						return fmt.Errorf("写入区块文件失败: %w", err)
					}
				}
				c.formatter.Success("已出块 #%d %s（%d 笔交易）",
					authored.Block.Header.Number, authored.Hash.Hex(), len(authored.Block.Transactions))
				return c.formatter.Print(&blockView{
					Hash:    authored.Hash,
					Header:  authored.Block.Header,
					TxCount: len(authored.Block.Transactions),
					Encoded: encoded,
				})
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "把编码后的区块写入文件")
	return cmd
}

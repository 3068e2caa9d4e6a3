package main

import (
	"crypto/ecdsa"

	"github.com/spf13/cobra"

	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/pkg/types"
)

// keyView 密钥输出
type keyView struct {
	Address    types.AccountID `json:"address"`
	PrivateKey string          `json:"private_key"`
}

func newKeyView(key *ecdsa.PrivateKey) *keyView {
	return &keyView{Address: signature.Address(key), PrivateKey: signature.KeyToHex(key)}
}

func newKeyCmd(c *cli) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "secp256k1 密钥工具",
	}
	keyCmd.AddCommand(
		&cobra.Command{
			Use:   "new",
			Short: "生成随机密钥",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				key, err := signature.GenerateKey()
				if err != nil {
					return err
				}
				c.formatter.Warning("请妥善保管私钥")
				return c.formatter.Print(newKeyView(key))
			},
		},
		&cobra.Command{
			Use:   "dev <name>",
			Short: "显示由名称派生的开发账户密钥（仅限测试链）",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.formatter.Print(newKeyView(signature.DevKey(args[0])))
			},
		},
	)
	return keyCmd
}

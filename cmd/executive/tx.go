package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/executive/internal/app"
	"github.com/weisyn/executive/internal/core/executive/codec"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/internal/core/runtime/staking"
	"github.com/weisyn/executive/pkg/types"
)

// signFlags 签名交易的公共标志
type signFlags struct {
	key   string // 0x 私钥、开发账户名或 "-"（从终端读取）
	nonce uint64
	tip   uint64
	hint  uint64
}

func (f *signFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "key", "", "签名私钥（0x 十六进制）、开发账户名（如 alice），或 - 从终端读取")
	cmd.Flags().Uint64Var(&f.nonce, "nonce", 0, "交易 nonce（缺省时从本地链状态读取）")
	cmd.Flags().Uint64Var(&f.tip, "tip", 0, "小费")
	cmd.Flags().Uint64Var(&f.hint, "weight-hint", 0, "声明的权重上限，0 表示不声明")
	_ = cmd.MarkFlagRequired("key")
}

func (f *signFlags) privateKey() (*ecdsa.PrivateKey, error) {
	if f.key == "-" {
		secret, err := promptSecret("私钥 (0x...)")
		if err != nil {
			return nil, err
		}
		return signature.HexToKey(strings.TrimSpace(secret))
	}
	if strings.HasPrefix(f.key, "0x") {
		return signature.HexToKey(f.key)
	}
	if f.key == "" {
		return nil, fmt.Errorf("缺少签名私钥")
	}
	return signature.DevKey(f.key), nil
}

// promptSecret 提示输入私钥（不回显）
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--key - 需要在终端中使用")
	}
	fmt.Fprint(os.Stderr, prompt+": ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("读取私钥失败: %w", err)
	}
	return string(secret), nil
}

// txView 已签名交易输出
type txView struct {
	From    types.AccountID `json:"from"`
	Call    string          `json:"call"`
	Nonce   types.Nonce     `json:"nonce"`
	Encoded hexutil.Bytes   `json:"encoded"`
}

// signAndPrint 签名调用并输出编码后的交易
func (c *cli) signAndPrint(cmd *cobra.Command, flags *signFlags, call types.Call) error {
	key, err := flags.privateKey()
	if err != nil {
		return err
	}
	from := signature.Address(key)

	nonce := flags.nonce
	if !cmd.Flags().Changed("nonce") {
		err := c.withNode(func(node app.App) error {
			info, err := node.Chain().Account(cmd.Context(), from)
			if err != nil {
				return err
			}
			nonce = info.Nonce
			return nil
		})
		if err != nil {
			return fmt.Errorf("读取账户 nonce 失败: %w", err)
		}
	}

	rlp := codec.Default()
	tx := &types.Transaction{
		Call:   call,
		Origin: types.SignedBy(from),
		Extra:  types.Extra{Nonce: nonce, Tip: flags.tip, WeightHint: flags.hint},
	}
	payload, err := rlp.SigningPayload(tx)
	if err != nil {
		return err
	}
	if tx.Signature, err = signature.Sign(payload, key); err != nil {
		return err
	}
	encoded, err := rlp.EncodeTransaction(tx)
	if err != nil {
		return err
	}
	return c.formatter.Print(&txView{From: from, Call: call.String(), Nonce: nonce, Encoded: encoded})
}

func newTxCmd(c *cli) *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "构造、签名与校验交易",
	}
	txCmd.AddCommand(newTransferCmd(c), newBondCmd(c), newStakingCmd(c), newTxValidateCmd(c))
	return txCmd
}

func newTransferCmd(c *cli) *cobra.Command {
	var (
		flags     signFlags
		to        string
		value     uint64
		keepAlive bool
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "签名转账交易",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := parseAccount(to)
			if err != nil {
				return err
			}
			build := balances.TransferCall
			if keepAlive {
				build = balances.TransferKeepAliveCall
			}
			call, err := build(dest, value)
			if err != nil {
				return err
			}
			return c.signAndPrint(cmd, &flags, call)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "收款地址或开发账户名")
	cmd.Flags().Uint64Var(&value, "value", 0, "转账金额")
	cmd.Flags().BoolVar(&keepAlive, "keep-alive", false, "转账后发送方余额不得低于存在性押金")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newBondCmd(c *cli) *cobra.Command {
	var (
		flags      signFlags
		controller string
		value      uint64
	)
	cmd := &cobra.Command{
		Use:   "bond",
		Short: "签名质押交易",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := flags.privateKey()
			if err != nil {
				return err
			}
			ctrl := signature.Address(key)
			if controller != "" {
				if ctrl, err = parseAccount(controller); err != nil {
					return err
				}
			}
			call, err := staking.BondCall(ctrl, value)
			if err != nil {
				return err
			}
			return c.signAndPrint(cmd, &flags, call)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&controller, "controller", "", "控制账户（缺省为签名账户）")
	cmd.Flags().Uint64Var(&value, "value", 0, "质押金额")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

// newStakingCmd 其余质押操作
func newStakingCmd(c *cli) *cobra.Command {
	var (
		flags      signFlags
		value      uint64
		commission uint64
		targets    []string
		payee      string
		controller string
	)
	cmd := &cobra.Command{
		Use:       "staking <bond_extra|unbond|rebond|withdraw_unbonded|validate|chill|nominate|set_payee|set_controller>",
		Short:     "签名质押管理交易",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{staking.CallBondExtra, staking.CallUnbond, staking.CallRebond, staking.CallWithdrawUnbonded, staking.CallValidate, staking.CallChill, staking.CallNominate, staking.CallSetPayee, staking.CallSetController},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				call types.Call
				err  error
			)
			switch fn := args[0]; fn {
			case staking.CallBondExtra, staking.CallUnbond, staking.CallRebond:
				call, err = staking.ValueCall(fn, value)
			case staking.CallValidate:
				call, err = staking.NewValidateCall(commission)
			case staking.CallWithdrawUnbonded, staking.CallChill:
				call = staking.SimpleCall(fn)
			case staking.CallNominate:
				accounts := make([]types.AccountID, len(targets))
				for i, target := range targets {
					if accounts[i], err = parseAccount(target); err != nil {
						return err
					}
				}
				call, err = staking.NominateCall(accounts...)
			case staking.CallSetPayee:
				dest, perr := parsePayee(payee)
				if perr != nil {
					return perr
				}
				call, err = staking.SetPayeeCall(dest)
			case staking.CallSetController:
				ctrl, perr := parseAccount(controller)
				if perr != nil {
					return perr
				}
				call, err = staking.SetControllerCall(ctrl)
			default:
				return fmt.Errorf("未知的质押操作: %s", fn)
			}
			if err != nil {
				return err
			}
			return c.signAndPrint(cmd, &flags, call)
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint64Var(&value, "value", 0, "金额（bond_extra / unbond / rebond）")
	cmd.Flags().Uint64Var(&commission, "commission", 0, "佣金，单位为十亿分之一（validate）")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "提名的验证人资金账户（nominate）")
	cmd.Flags().StringVar(&payee, "payee", "staked", "收益去向 staked|stash|controller（set_payee）")
	cmd.Flags().StringVar(&controller, "controller", "", "新的控制账户（set_controller）")
	return cmd
}

func newTxValidateCmd(c *cli) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "validate <0x-tx|@file>",
		Short: "在本地链头状态上校验交易",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseSource(source)
			if err != nil {
				return err
			}
			raw, err := readHexInput(args[0])
			if err != nil {
				return fmt.Errorf("读取交易失败: %w", err)
			}
			return c.withNode(func(node app.App) error {
				tx, err := node.Chain().Codec().DecodeTransaction(raw)
				if err != nil {
					return err
				}
				valid, err := node.Chain().ValidateTransaction(cmd.Context(), tx, src)
				if err != nil {
					return err
				}
				c.formatter.Success("交易有效: %s", tx)
				return c.formatter.Print(valid)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "external", "交易来源: external|local|in_block")
	return cmd
}

func parsePayee(s string) (staking.RewardDestination, error) {
	switch s {
	case "staked":
		return staking.RewardStaked, nil
	case "stash":
		return staking.RewardStash, nil
	case "controller":
		return staking.RewardController, nil
	default:
		return 0, fmt.Errorf("未知收益去向: %s", s)
	}
}

func parseSource(s string) (types.TransactionSource, error) {
	switch s {
	case "external":
		return types.SourceExternal, nil
	case "local":
		return types.SourceLocal, nil
	case "in_block":
		return types.SourceInBlock, nil
	default:
		return 0, fmt.Errorf("未知的交易来源: %s", s)
	}
}

// Package genesis 提供创世状态配置：初始余额与 staking 参数
package genesis

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/weisyn/executive/pkg/types"
)

// Account 创世账户
type Account struct {
	Address types.AccountID `json:"address"`
	Balance types.Balance   `json:"balance"`
}

// GenesisOptions 创世配置选项
type GenesisOptions struct {
	// Accounts 显式配置的创世账户
	Accounts []Account `json:"accounts"`

	// DevAccounts 开发账户名（私钥由名称确定性派生），每个账户获得 DevBalance
	DevAccounts []string      `json:"dev_accounts"`
	DevBalance  types.Balance `json:"dev_balance"`

	// === balances ===
	ExistentialDeposit types.Balance `json:"existential_deposit"`

	// === staking ===
	BlocksPerEra    uint64        `json:"blocks_per_era"`
	BondingDuration uint64        `json:"bonding_duration"` // 解绑需要等待的纪元数
	MinimumBond     types.Balance `json:"minimum_bond"`
}

// Config 创世配置实现
type Config struct {
	options *GenesisOptions
}

// New 创建创世配置；显式配置了账户时不再注入开发账户
func New(userConfig *types.UserGenesisConfig) (*Config, error) {
	options := Default()
	if userConfig != nil {
		if len(userConfig.Accounts) > 0 {
			options.DevAccounts = nil
			for _, acc := range userConfig.Accounts {
				if !common.IsHexAddress(acc.Address) {
					return nil, fmt.Errorf("创世账户地址格式错误: %q", acc.Address)
				}
				options.Accounts = append(options.Accounts, Account{
					Address: common.HexToAddress(acc.Address),
					Balance: acc.Balance,
				})
			}
		}
		if userConfig.ExistentialDeposit != nil {
			options.ExistentialDeposit = *userConfig.ExistentialDeposit
		}
		if userConfig.BlocksPerEra != nil {
			options.BlocksPerEra = *userConfig.BlocksPerEra
		}
		if userConfig.BondingDuration != nil {
			options.BondingDuration = *userConfig.BondingDuration
		}
		if userConfig.MinimumBond != nil {
			options.MinimumBond = *userConfig.MinimumBond
		}
	}
	if options.BlocksPerEra == 0 {
		return nil, fmt.Errorf("blocks_per_era 必须大于0")
	}
	return &Config{options: options}, nil
}

// Default 默认创世配置
func Default() *GenesisOptions {
	return &GenesisOptions{
		DevAccounts:        append([]string(nil), defaultDevAccounts...),
		DevBalance:         defaultDevBalance,
		ExistentialDeposit: defaultExistentialDeposit,
		BlocksPerEra:       defaultBlocksPerEra,
		BondingDuration:    defaultBondingDuration,
		MinimumBond:        defaultMinimumBond,
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *GenesisOptions {
	return c.options
}

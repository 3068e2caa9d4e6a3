// Package executive 提供区块执行器的配置：权重上限、手续费参数与交易校验参数
package executive

import (
	"fmt"

	configtypes "github.com/weisyn/executive/pkg/types"
)

// 交易根计算方案
const (
	RootSchemeTrie   = "trie"   // 以太坊有序 trie（DeriveSha + StackTrie）
	RootSchemeMerkle = "merkle" // blake2b 二叉默克尔树
)

// ExecutiveOptions 执行器配置选项
type ExecutiveOptions struct {
	// === 权重配置 ===
	MaxBlockWeight        uint64 `json:"max_block_weight"`        // 普通交易可用的区块权重上限（含基础开销）
	MandatoryHardLimit    uint64 `json:"mandatory_hard_limit"`    // 强制类调用的绝对上限
	OperationalReserve    uint64 `json:"operational_reserve"`     // 运维类调用在软上限之上的预留额度
	BaseBlockWeight       uint64 `json:"base_block_weight"`       // 每个区块固定开销
	BaseTransactionWeight uint64 `json:"base_transaction_weight"` // 每笔交易固定开销
	WeightPerByte         uint64 `json:"weight_per_byte"`         // 交易编码长度折算权重

	// === 手续费配置 ===
	BaseFee      uint64 `json:"base_fee"`
	FeePerWeight uint64 `json:"fee_per_weight"`
	FeePerByte   uint64 `json:"fee_per_byte"`

	// === 交易池校验 ===
	FutureNonceWindow    uint64 `json:"future_nonce_window"`   // 可接受的未来 nonce 数量
	TransactionLongevity uint64 `json:"transaction_longevity"` // 校验结果的有效区块数

	// === 根计算 ===
	TransactionsRootScheme string `json:"transactions_root_scheme"`
}

// Config 执行器配置实现
type Config struct {
	options *ExecutiveOptions
}

// New 创建执行器配置，userConfig 为 *types.UserExecutiveConfig
func New(userConfig interface{}) *Config {
	options := createDefaultExecutiveOptions()
	if cfg, ok := userConfig.(*configtypes.UserExecutiveConfig); ok && cfg != nil {
		applyUserConfig(options, cfg)
	}
	return &Config{options: options}
}

// NewFromOptions 直接使用给定选项（测试与嵌入使用）
func NewFromOptions(options *ExecutiveOptions) *Config {
	return &Config{options: options}
}

// Default 返回默认选项的副本
func Default() *ExecutiveOptions {
	return createDefaultExecutiveOptions()
}

func createDefaultExecutiveOptions() *ExecutiveOptions {
	return &ExecutiveOptions{
		MaxBlockWeight:         defaultMaxBlockWeight,
		MandatoryHardLimit:     defaultMandatoryHardLimit,
		OperationalReserve:     defaultOperationalReserve,
		BaseBlockWeight:        defaultBaseBlockWeight,
		BaseTransactionWeight:  defaultBaseTransactionWeight,
		WeightPerByte:          defaultWeightPerByte,
		BaseFee:                defaultBaseFee,
		FeePerWeight:           defaultFeePerWeight,
		FeePerByte:             defaultFeePerByte,
		FutureNonceWindow:      defaultFutureNonceWindow,
		TransactionLongevity:   defaultTransactionLongevity,
		TransactionsRootScheme: defaultTransactionsRootScheme,
	}
}

func applyUserConfig(o *ExecutiveOptions, c *configtypes.UserExecutiveConfig) {
	setUint := func(dst *uint64, src *uint64) {
		if src != nil {
			*dst = *src
		}
	}
	setUint(&o.MaxBlockWeight, c.MaxBlockWeight)
	setUint(&o.MandatoryHardLimit, c.MandatoryHardLimit)
	setUint(&o.OperationalReserve, c.OperationalReserve)
	setUint(&o.BaseBlockWeight, c.BaseBlockWeight)
	setUint(&o.BaseTransactionWeight, c.BaseTransactionWeight)
	setUint(&o.WeightPerByte, c.WeightPerByte)
	setUint(&o.BaseFee, c.BaseFee)
	setUint(&o.FeePerWeight, c.FeePerWeight)
	setUint(&o.FeePerByte, c.FeePerByte)
	setUint(&o.FutureNonceWindow, c.FutureNonceWindow)
	setUint(&o.TransactionLongevity, c.TransactionLongevity)
	if c.TransactionsRootScheme != nil {
		o.TransactionsRootScheme = *c.TransactionsRootScheme
	}
}

// Validate 检查配置的一致性
func (o *ExecutiveOptions) Validate() error {
	if o.MaxBlockWeight == 0 {
		return fmt.Errorf("max_block_weight 必须大于0")
	}
	if o.MandatoryHardLimit < o.MaxBlockWeight {
		return fmt.Errorf("mandatory_hard_limit(%d) 不能小于 max_block_weight(%d)", o.MandatoryHardLimit, o.MaxBlockWeight)
	}
	if o.BaseBlockWeight >= o.MaxBlockWeight {
		return fmt.Errorf("base_block_weight(%d) 必须小于 max_block_weight(%d)", o.BaseBlockWeight, o.MaxBlockWeight)
	}
	switch o.TransactionsRootScheme {
	case RootSchemeTrie, RootSchemeMerkle:
	default:
		return fmt.Errorf("未知的交易根方案: %q", o.TransactionsRootScheme)
	}
	return nil
}

// GetOptions 获取完整配置选项
func (c *Config) GetOptions() *ExecutiveOptions {
	return c.options
}

// BlockLimits 扣除区块开销 overhead 后的权重上限
//
// Operational 上限为软上限加运维预留，且不超过硬上限。
func (o *ExecutiveOptions) BlockLimits(overhead uint64) configtypes.WeightLimits {
	operational := configtypes.SaturatingAdd(o.MaxBlockWeight, o.OperationalReserve)
	if operational > o.MandatoryHardLimit {
		operational = o.MandatoryHardLimit
	}
	return configtypes.WeightLimits{
		Soft:        configtypes.SaturatingSub(o.MaxBlockWeight, overhead),
		Operational: configtypes.SaturatingSub(operational, overhead),
		Hard:        configtypes.SaturatingSub(o.MandatoryHardLimit, overhead),
	}
}

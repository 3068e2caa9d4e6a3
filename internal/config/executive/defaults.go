package executive

// 执行器默认配置值
const (
	// defaultMaxBlockWeight 区块权重上限（约 2 秒执行时间，1 weight = 1ns）
	defaultMaxBlockWeight = 2_000_000_000

	// defaultMandatoryHardLimit 强制类调用可越过软上限，但不得越过此值
	defaultMandatoryHardLimit = 2_500_000_000

	// defaultOperationalReserve 运维类调用预留 10%
	defaultOperationalReserve = 200_000_000

	defaultBaseBlockWeight       = 5_000_000
	defaultBaseTransactionWeight = 100_000
	defaultWeightPerByte         = 1_000

	defaultBaseFee      = 1
	defaultFeePerWeight = 0
	defaultFeePerByte   = 1

	// defaultFutureNonceWindow 交易池最多接受领先 16 个 nonce 的交易
	defaultFutureNonceWindow = 16

	// defaultTransactionLongevity 校验结果 64 个区块内有效
	defaultTransactionLongevity = 64

	defaultTransactionsRootScheme = RootSchemeTrie
)

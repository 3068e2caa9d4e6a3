package genesis

var defaultDevAccounts = []string{"alice", "bob", "charlie"}

const (
	defaultDevBalance = 1_000_000_000_000

	// defaultExistentialDeposit 低于此余额的账户被回收
	defaultExistentialDeposit = 500

	defaultBlocksPerEra    = 10
	defaultBondingDuration = 3
	defaultMinimumBond     = 1_000
)

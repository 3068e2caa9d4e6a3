package types

// AppConfig 应用配置文件结构
//
// 🔧 零值陷阱处理说明：
// 所有字段使用指针类型，以区分"用户未设置"和"用户设置为零值"：
// - nil: 用户未在配置文件中设置该字段，使用系统默认值
// - &value: 用户明确设置了该值，即使是零值也会被采用
type AppConfig struct {
	AppName     *string `json:"app_name,omitempty"`
	DataDir     *string `json:"data_dir,omitempty"`
	Environment *string `json:"environment,omitempty"` // dev | test | prod

	Log       *UserLogConfig       `json:"log,omitempty"`
	Executive *UserExecutiveConfig `json:"executive,omitempty"`
	Storage   *UserStorageConfig   `json:"storage,omitempty"`
	API       *UserAPIConfig       `json:"api,omitempty"`
	Event     *UserEventConfig     `json:"event,omitempty"`
	Genesis   *UserGenesisConfig   `json:"genesis,omitempty"`
}

// UserLogConfig 用户日志配置
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`
	FilePath  *string `json:"file_path,omitempty"`
	ToConsole *bool   `json:"to_console,omitempty"`
}

// UserExecutiveConfig 用户执行器配置
type UserExecutiveConfig struct {
	MaxBlockWeight         *uint64 `json:"max_block_weight,omitempty"`
	MandatoryHardLimit     *uint64 `json:"mandatory_hard_limit,omitempty"`
	OperationalReserve     *uint64 `json:"operational_reserve,omitempty"`
	BaseBlockWeight        *uint64 `json:"base_block_weight,omitempty"`
	BaseTransactionWeight  *uint64 `json:"base_transaction_weight,omitempty"`
	WeightPerByte          *uint64 `json:"weight_per_byte,omitempty"`
	BaseFee                *uint64 `json:"base_fee,omitempty"`
	FeePerWeight           *uint64 `json:"fee_per_weight,omitempty"`
	FeePerByte             *uint64 `json:"fee_per_byte,omitempty"`
	FutureNonceWindow      *uint64 `json:"future_nonce_window,omitempty"`
	TransactionLongevity   *uint64 `json:"transaction_longevity,omitempty"`
	TransactionsRootScheme *string `json:"transactions_root_scheme,omitempty"` // trie | merkle
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	DataRoot     *string `json:"data_root,omitempty"`
	InMemory     *bool   `json:"in_memory,omitempty"`
	SyncWrites   *bool   `json:"sync_writes,omitempty"`
	ReadCacheMB  *int    `json:"read_cache_mb,omitempty"`
	CacheEnabled *bool   `json:"cache_enabled,omitempty"`
}

// UserAPIConfig 用户 HTTP API 配置
type UserAPIConfig struct {
	Enabled       *bool   `json:"enabled,omitempty"`
	ListenAddr    *string `json:"listen_addr,omitempty"`
	EnableMetrics *bool   `json:"enable_metrics,omitempty"`
	EnableProduce *bool   `json:"enable_produce,omitempty"`
	GinMode       *string `json:"gin_mode,omitempty"`
}

// UserEventConfig 用户事件系统配置
type UserEventConfig struct {
	Enabled        *bool `json:"enabled,omitempty"`
	Transactional  *bool `json:"transactional,omitempty"`
	MaxSubscribers *int  `json:"max_subscribers,omitempty"`
}

// UserGenesisAccount 创世账户
type UserGenesisAccount struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// UserGenesisConfig 用户创世配置
type UserGenesisConfig struct {
	Accounts           []UserGenesisAccount `json:"accounts,omitempty"`
	ExistentialDeposit *uint64              `json:"existential_deposit,omitempty"`
	BlocksPerEra       *uint64              `json:"blocks_per_era,omitempty"`
	BondingDuration    *uint64              `json:"bonding_duration,omitempty"`
	MinimumBond        *uint64              `json:"minimum_bond,omitempty"`
}

// StringPtr 返回字符串指针（构造配置使用）
func StringPtr(s string) *string { return &s }

// BoolPtr 返回布尔指针
func BoolPtr(b bool) *bool { return &b }

// Uint64Ptr 返回 uint64 指针
func Uint64Ptr(v uint64) *uint64 { return &v }

// IntPtr 返回 int 指针
func IntPtr(v int) *int { return &v }

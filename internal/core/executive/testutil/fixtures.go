package testutil

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/executive"
	"github.com/weisyn/executive/internal/core/executive/codec"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	"github.com/weisyn/executive/internal/core/runtime"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	executiveif "github.com/weisyn/executive/pkg/interfaces/executive"
	"github.com/weisyn/executive/pkg/types"
)

// ==================== 测试数据 ====================

// InitialBalance 开发账户的初始余额
const InitialBalance types.Balance = 1_000_000_000

// ExistentialDeposit 测试运行时的存在性押金
const ExistentialDeposit types.Balance = 500

// GenesisTime 测试时钟的固定时间
var GenesisTime = time.UnixMilli(1_700_000_000_000)

// Account 开发账户
type Account struct {
	Name    string
	Key     *ecdsa.PrivateKey
	Address types.AccountID
}

// DevAccount 按名称派生确定性开发账户
func DevAccount(name string) Account {
	key := signature.DevKey(name)
	return Account{Name: name, Key: key, Address: signature.Address(key)}
}

var (
	Alice   = DevAccount("alice")
	Bob     = DevAccount("bob")
	Charlie = DevAccount("charlie")
)

// TestOptions 测试用执行器配置：手续费按权重计费，便于断言
func TestOptions() *executiveconfig.ExecutiveOptions {
	o := executiveconfig.Default()
	o.BaseFee = 10
	o.FeePerWeight = 0
	o.FeePerByte = 1
	return o
}

// TestGenesis 测试用创世配置：alice、bob、charlie 各持有 InitialBalance
func TestGenesis() *genesisconfig.GenesisOptions {
	g := genesisconfig.Default()
	g.DevAccounts = nil
	g.ExistentialDeposit = ExistentialDeposit
	g.BlocksPerEra = 3
	g.BondingDuration = 2
	g.MinimumBond = 1_000
	for _, acc := range []Account{Alice, Bob, Charlie} {
		g.Accounts = append(g.Accounts, genesisconfig.Account{Address: acc.Address, Balance: InitialBalance})
	}
	return g
}

// ==================== 运行时环境 ====================

// Env 完整执行器环境：运行时模块 + 执行器 + 已写入创世余额的状态视图
type Env struct {
	Options *executiveconfig.ExecutiveOptions
	Codec   *codec.RLPCodec
	Runtime *runtime.Runtime
	Exec    *executive.Service
	Metrics *MockMetrics
	Store   *badger.Store
	State   *overlay.Overlay

	// Head 当前链头（创世区块为 #0）
	Head types.ChainHead
	// Now 下一个时间戳固有交易使用的毫秒时间
	Now uint64
}

// NewEnv 创建测试环境
func NewEnv(t *testing.T) *Env {
	t.Helper()
	return NewEnvWith(t, TestOptions(), TestGenesis())
}

// NewMockEnv 创建带模拟模块的测试环境
func NewMockEnv(t *testing.T) (*Env, *MockModule) {
	t.Helper()
	mock := &MockModule{}
	return NewEnvWith(t, TestOptions(), TestGenesis(), mock), mock
}

// NewEnvWith 使用指定配置创建测试环境
//
// extra 中的模块注册在内置模块之后。
func NewEnvWith(t *testing.T, options *executiveconfig.ExecutiveOptions, genesis *genesisconfig.GenesisOptions, extra ...executiveif.Module) *Env {
	t.Helper()
	logger := &MockLogger{}

	store, err := badger.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rt, err := runtime.New(genesis, func() time.Time { return GenesisTime }, logger, extra...)
	require.NoError(t, err)

	c, err := codec.New(options.TransactionsRootScheme)
	require.NoError(t, err)

	metrics := NewMockMetrics()
	exec, err := executive.NewService(executive.Dependencies{
		Options:  options,
		Codec:    c,
		Registry: rt.Registry,
		Nonces:   rt.System,
		Fees:     rt.Balances,
		Verifier: signature.NewVerifier(),
		Recorder: rt.System,
		Logger:   logger,
		Metrics:  metrics,
	})
	require.NoError(t, err)

	state := overlay.New(store)
	require.NoError(t, rt.Balances.Genesis(state, genesis.Accounts))
	require.NoError(t, rt.System.Genesis(state))

	genesisHeader := &types.Header{Number: 0}
	genesisHeader.StateRoot, err = state.Root()
	require.NoError(t, err)
	genesisHash, err := c.HeaderHash(genesisHeader)
	require.NoError(t, err)

	return &Env{
		Options: options,
		Codec:   c,
		Runtime: rt,
		Exec:    exec,
		Metrics: metrics,
		Store:   store,
		State:   state,
		Head:    types.ChainHead{Number: 0, Hash: genesisHash},
		Now:     uint64(GenesisTime.UnixMilli()) - 600_000,
	}
}

// ==================== 交易构造 ====================

// Sign 对交易签名（原地修改）
func (e *Env) Sign(t *testing.T, tx *types.Transaction, key *ecdsa.PrivateKey) *types.Transaction {
	t.Helper()
	payload, err := e.Codec.SigningPayload(tx)
	require.NoError(t, err)
	sig, err := signature.Sign(payload, key)
	require.NoError(t, err)
	tx.Signature = sig
	return tx
}

// Signed 构造并签名交易
func (e *Env) Signed(t *testing.T, from Account, call types.Call, nonce types.Nonce) *types.Transaction {
	t.Helper()
	return e.SignedWithExtra(t, from, call, types.Extra{Nonce: nonce})
}

// SignedWithExtra 使用完整附加字段构造并签名交易
func (e *Env) SignedWithExtra(t *testing.T, from Account, call types.Call, extra types.Extra) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{Call: call, Origin: types.SignedBy(from.Address), Extra: extra}
	return e.Sign(t, tx, from.Key)
}

// Transfer 构造 balances.transfer 签名交易
func (e *Env) Transfer(t *testing.T, from, to Account, value types.Balance, nonce types.Nonce) *types.Transaction {
	t.Helper()
	call, err := balances.TransferCall(to.Address, value)
	require.NoError(t, err)
	return e.Signed(t, from, call, nonce)
}

// Timestamp 返回下一个递增的时间戳固有交易
func (e *Env) Timestamp(t *testing.T) *types.Transaction {
	t.Helper()
	e.Now += 6_000
	tx, err := timestamp.Inherent(e.Now)
	require.NoError(t, err)
	return tx
}

// ==================== 区块驱动 ====================

// Author 在当前链头之上出块并推进链头
func (e *Env) Author(t *testing.T, txs ...*types.Transaction) *types.AuthoredBlock {
	t.Helper()
	authored, err := e.Exec.AuthorBlock(context.Background(), e.State, e.Head, nil, executive.NewSliceSupplier(txs...))
	require.NoError(t, err)
	e.Head = types.ChainHead{Number: authored.Block.Header.Number, Hash: authored.Hash}
	return authored
}

// Fork 返回当前状态的独立副本
func (e *Env) Fork() *overlay.Overlay {
	return e.State.Fork()
}

// Free 读取账户可用余额
func (e *Env) Free(t *testing.T, acc Account) types.Balance {
	t.Helper()
	return e.FreeIn(t, e.State, acc)
}

// FreeIn 在指定状态上读取账户可用余额
func (e *Env) FreeIn(t *testing.T, state *overlay.Overlay, acc Account) types.Balance {
	t.Helper()
	b, err := e.Runtime.Balances.FreeBalance(state, acc.Address)
	require.NoError(t, err)
	return b
}

// Nonce 读取账户 nonce
func (e *Env) Nonce(t *testing.T, acc Account) types.Nonce {
	t.Helper()
	n, err := e.Runtime.System.AccountNonce(e.State, acc.Address)
	require.NoError(t, err)
	return n
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/pkg/types"
)

// TestGetEnvironment 测试 GetEnvironment() 方法
func TestGetEnvironment(t *testing.T) {
	t.Run("显式配置 dev", func(t *testing.T) {
		provider, err := NewProvider(&types.AppConfig{Environment: types.StringPtr("dev")})
		require.NoError(t, err)
		assert.Equal(t, "dev", provider.GetEnvironment())
	})

	t.Run("未配置时默认为 prod", func(t *testing.T) {
		provider, err := NewProvider(nil)
		require.NoError(t, err)
		assert.Equal(t, "prod", provider.GetEnvironment())
	})

	t.Run("无效值默认为 prod", func(t *testing.T) {
		provider, err := NewProvider(&types.AppConfig{Environment: types.StringPtr("invalid")})
		require.NoError(t, err)
		assert.Equal(t, "prod", provider.GetEnvironment())
	})
}

// TestGetExecutive_Overlay 用户配置只覆盖出现的字段
func TestGetExecutive_Overlay(t *testing.T) {
	provider, err := NewProvider(&types.AppConfig{
		Executive: &types.UserExecutiveConfig{
			MaxBlockWeight:         types.Uint64Ptr(3_000_000_000),
			MandatoryHardLimit:     types.Uint64Ptr(4_000_000_000),
			TransactionsRootScheme: types.StringPtr(executive.RootSchemeMerkle),
		},
	})
	require.NoError(t, err)

	opts := provider.GetExecutive()
	defaults := executive.Default()
	assert.Equal(t, uint64(3_000_000_000), opts.MaxBlockWeight)
	assert.Equal(t, uint64(4_000_000_000), opts.MandatoryHardLimit)
	assert.Equal(t, executive.RootSchemeMerkle, opts.TransactionsRootScheme)
	assert.Equal(t, defaults.BaseTransactionWeight, opts.BaseTransactionWeight)
	assert.Equal(t, defaults.FutureNonceWindow, opts.FutureNonceWindow)
}

// TestNewProvider_RejectsInconsistentWeights 硬上限小于软上限时拒绝
func TestNewProvider_RejectsInconsistentWeights(t *testing.T) {
	_, err := NewProvider(&types.AppConfig{
		Executive: &types.UserExecutiveConfig{
			MaxBlockWeight:     types.Uint64Ptr(100),
			MandatoryHardLimit: types.Uint64Ptr(50),
		},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "executive", verr.Field)
}

// TestGetBadger_DataDir 未配置 data_root 时存储位于数据目录下
func TestGetBadger_DataDir(t *testing.T) {
	provider, err := NewProvider(&types.AppConfig{
		DataDir: types.StringPtr("/tmp/exec-node"),
		Storage: &types.UserStorageConfig{InMemory: types.BoolPtr(true)},
	})
	require.NoError(t, err)

	opts := provider.GetBadger()
	assert.Equal(t, filepath.Join("/tmp/exec-node", "badger"), opts.Path)
	assert.True(t, opts.InMemory)
}

// TestGetGenesis_ExplicitAccounts 显式账户替换开发账户
func TestGetGenesis_ExplicitAccounts(t *testing.T) {
	provider, err := NewProvider(&types.AppConfig{
		Genesis: &types.UserGenesisConfig{
			Accounts: []types.UserGenesisAccount{
				{Address: "0x00000000000000000000000000000000000000aa", Balance: 42},
			},
			BlocksPerEra: types.Uint64Ptr(5),
		},
	})
	require.NoError(t, err)

	g := provider.GetGenesis()
	require.Len(t, g.Accounts, 1)
	assert.Equal(t, types.Balance(42), g.Accounts[0].Balance)
	assert.Empty(t, g.DevAccounts)
	assert.Equal(t, uint64(5), g.BlocksPerEra)
}

// TestGetGenesis_BadAddress 地址格式错误
func TestGetGenesis_BadAddress(t *testing.T) {
	_, err := NewProvider(&types.AppConfig{
		Genesis: &types.UserGenesisConfig{
			Accounts: []types.UserGenesisAccount{{Address: "not-an-address"}},
		},
	})
	require.Error(t, err)
}

// TestLoadAppConfig 从 JSON 文件加载
func TestLoadAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app_name":"devnet","log":{"level":"debug"},"api":{"listen_addr":"0.0.0.0:9000"}}`), 0o600))

	appConfig, err := LoadAppConfig(path)
	require.NoError(t, err)

	provider, err := NewProvider(appConfig)
	require.NoError(t, err)
	assert.Equal(t, "devnet", provider.GetAppName())
	assert.Equal(t, "debug", provider.GetLog().Level)
	assert.Equal(t, "0.0.0.0:9000", provider.GetAPI().ListenAddr)
}

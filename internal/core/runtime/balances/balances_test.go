package balances_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genesisconfig "github.com/weisyn/executive/internal/config/genesis"
	"github.com/weisyn/executive/internal/core/executive/testutil"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/pkg/types"
)

const ed = 500

func setup(t *testing.T, accounts ...genesisconfig.Account) (*balances.Module, *overlay.Overlay) {
	t.Helper()
	m := balances.New(ed, &testutil.MockLogger{})
	state := overlay.New(nil)
	require.NoError(t, m.Genesis(state, accounts))
	return m, state
}

func fund(acc testutil.Account, balance types.Balance) genesisconfig.Account {
	return genesisconfig.Account{Address: acc.Address, Balance: balance}
}

func dispatch(t *testing.T, m *balances.Module, state *overlay.Overlay, from testutil.Account, call types.Call) ([]types.Event, error) {
	t.Helper()
	return m.Dispatch(context.Background(), testutil.ModuleEnv(state, 1), types.SignedBy(from.Address), call)
}

func free(t *testing.T, m *balances.Module, state *overlay.Overlay, acc testutil.Account) types.Balance {
	t.Helper()
	b, err := m.FreeBalance(state, acc.Address)
	require.NoError(t, err)
	return b
}

func TestGenesis_MintsAndRejectsDust(t *testing.T) {
	m, state := setup(t, fund(testutil.Alice, 10_000), fund(testutil.Bob, 5_000))

	issuance, err := m.TotalIssuance(state)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(15_000), issuance)
	assert.Equal(t, types.Balance(10_000), free(t, m, state, testutil.Alice))

	err = m.Genesis(overlay.New(nil), []genesisconfig.Account{fund(testutil.Charlie, ed-1)})
	assert.Error(t, err)
}

func TestTransfer(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		// Arrange
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Bob.Address, 3_000)
		require.NoError(t, err)

		// Act
		events, err := dispatch(t, m, state, testutil.Alice, call)

		// Assert
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, balances.EventTransfer, events[0].Name)
		assert.Equal(t, types.Balance(7_000), free(t, m, state, testutil.Alice))
		assert.Equal(t, types.Balance(3_000), free(t, m, state, testutil.Bob))
	})

	t.Run("余额不足", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Bob.Address, 10_001)
		require.NoError(t, err)

		_, err = dispatch(t, m, state, testutil.Alice, call)

		assert.ErrorIs(t, err, balances.ErrInsufficientBalance)
		assert.Equal(t, types.Balance(10_000), free(t, m, state, testutil.Alice))
	})

	t.Run("新账户低于存在性押金", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Bob.Address, ed-1)
		require.NoError(t, err)

		_, err = dispatch(t, m, state, testutil.Alice, call)

		assert.ErrorIs(t, err, balances.ErrExistentialDeposit)
	})

	t.Run("转给自己不改变余额", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Alice.Address, 20_000)
		require.NoError(t, err)

		events, err := dispatch(t, m, state, testutil.Alice, call)

		require.NoError(t, err)
		assert.Len(t, events, 1)
		assert.Equal(t, types.Balance(10_000), free(t, m, state, testutil.Alice))
	})

	t.Run("发送方余额低于押金被回收", func(t *testing.T) {
		// Arrange
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Bob.Address, 9_900)
		require.NoError(t, err)

		// Act
		events, err := dispatch(t, m, state, testutil.Alice, call)

		// Assert
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, balances.EventDustLost, events[1].Name)
		assert.Zero(t, free(t, m, state, testutil.Alice))
		issuance, err := m.TotalIssuance(state)
		require.NoError(t, err)
		assert.Equal(t, types.Balance(9_900), issuance)
	})

	t.Run("保活转账拒绝回收", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferKeepAliveCall(testutil.Bob.Address, 9_900)
		require.NoError(t, err)

		_, err = dispatch(t, m, state, testutil.Alice, call)

		assert.ErrorIs(t, err, balances.ErrExistentialDeposit)
		assert.Equal(t, types.Balance(10_000), free(t, m, state, testutil.Alice))
	})

	t.Run("有保留余额时不回收", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		require.NoError(t, m.Reserve(state, testutil.Alice.Address, 1_000))
		call, err := balances.TransferCall(testutil.Bob.Address, 8_900)
		require.NoError(t, err)

		events, err := dispatch(t, m, state, testutil.Alice, call)

		require.NoError(t, err)
		assert.Len(t, events, 1)
		assert.Equal(t, types.Balance(100), free(t, m, state, testutil.Alice))
	})

	t.Run("无签名来源", func(t *testing.T) {
		m, state := setup(t, fund(testutil.Alice, 10_000))
		call, err := balances.TransferCall(testutil.Bob.Address, 1_000)
		require.NoError(t, err)

		_, err = m.Dispatch(context.Background(), testutil.ModuleEnv(state, 1), types.Unsigned(), call)

		_, ok := types.AsDispatchError(err)
		assert.True(t, ok)
	})
}

func TestCanWithdrawFee(t *testing.T) {
	m, state := setup(t, fund(testutil.Alice, 10_000))

	assert.NoError(t, m.CanWithdrawFee(state, testutil.Alice.Address, 100))
	assert.NoError(t, m.CanWithdrawFee(state, testutil.Alice.Address, 10_000), "扣光余额是允许的")

	err := m.CanWithdrawFee(state, testutil.Alice.Address, 10_001)
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.InvalidPayment})

	err = m.CanWithdrawFee(state, testutil.Alice.Address, 9_800)
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.InvalidPayment}, "剩余余额落在 (0, ED)")
}

func TestWithdrawFee_CreditsFeePot(t *testing.T) {
	m, state := setup(t, fund(testutil.Alice, 10_000))

	require.NoError(t, m.WithdrawFee(state, testutil.Alice.Address, 250))

	assert.Equal(t, types.Balance(9_750), free(t, m, state, testutil.Alice))
	pot, err := m.FeePot(state)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(250), pot)
	issuance, err := m.TotalIssuance(state)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(10_000), issuance)
}

func TestReserveUnreserve(t *testing.T) {
	m, state := setup(t, fund(testutil.Alice, 10_000))

	require.NoError(t, m.Reserve(state, testutil.Alice.Address, 4_000))
	assert.ErrorIs(t, m.Reserve(state, testutil.Alice.Address, 6_001), balances.ErrInsufficientBalance)

	got, err := m.Unreserve(state, testutil.Alice.Address, 5_000)
	require.NoError(t, err)
	assert.Equal(t, types.Balance(4_000), got, "最多转回已保留的数量")

	reserved, err := m.ReservedBalance(state, testutil.Alice.Address)
	require.NoError(t, err)
	assert.Zero(t, reserved)
	assert.Equal(t, types.Balance(10_000), free(t, m, state, testutil.Alice))
}

func TestCallInfo(t *testing.T) {
	m := balances.New(ed, nil)

	info, err := m.CallInfo(types.Call{Module: balances.ModuleName, Function: balances.CallTransfer})
	require.NoError(t, err)
	assert.Equal(t, types.ClassNormal, info.Class)
	assert.Equal(t, types.PaysYes, info.PaysFee)

	_, err = m.CallInfo(types.Call{Module: balances.ModuleName, Function: "mint"})
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.UnknownModule})
}

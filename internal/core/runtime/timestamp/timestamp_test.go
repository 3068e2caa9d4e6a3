package timestamp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/executive/testutil"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	"github.com/weisyn/executive/pkg/types"
)

var now = time.UnixMilli(1_700_000_000_000)

func newModule() *timestamp.Module {
	return timestamp.New(func() time.Time { return now })
}

func set(t *testing.T, m *timestamp.Module, state *overlay.Overlay, millis uint64) error {
	t.Helper()
	call, err := timestamp.SetCall(millis)
	require.NoError(t, err)
	_, err = m.Dispatch(context.Background(), testutil.ModuleEnv(state, 1), types.Inherent(), call)
	return err
}

func TestSet_OncePerBlock(t *testing.T) {
	// Arrange
	m := newModule()
	state := overlay.New(nil)

	// Act & Assert
	require.NoError(t, set(t, m, state, 1_000))
	assert.ErrorIs(t, set(t, m, state, 2_000), timestamp.ErrAlreadySet)

	got, err := m.Now(state)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), got)

	// 下一个区块可以再次设置
	require.NoError(t, m.OnFinalize(context.Background(), testutil.ModuleEnv(state, 1)))
	assert.NoError(t, set(t, m, state, 2_000))
}

func TestSet_MustIncrease(t *testing.T) {
	m := newModule()
	state := overlay.New(nil)
	require.NoError(t, set(t, m, state, 5_000))
	require.NoError(t, m.OnFinalize(context.Background(), testutil.ModuleEnv(state, 1)))

	assert.ErrorIs(t, set(t, m, state, 5_000), timestamp.ErrNotIncreased)
}

func TestSet_RequiresInherentOrigin(t *testing.T) {
	m := newModule()
	call, err := timestamp.SetCall(1_000)
	require.NoError(t, err)

	_, err = m.Dispatch(context.Background(), testutil.ModuleEnv(overlay.New(nil), 1), types.SignedBy(testutil.Alice.Address), call)

	de, ok := types.AsDispatchError(err)
	require.True(t, ok)
	assert.Equal(t, timestamp.ModuleName, de.Module)
}

func TestCheckInherent_Drift(t *testing.T) {
	m := newModule()
	limit := uint64(now.Add(timestamp.MaxDrift).UnixMilli())

	ok, err := timestamp.SetCall(limit)
	require.NoError(t, err)
	assert.NoError(t, m.CheckInherent(context.Background(), ok))

	ahead, err := timestamp.SetCall(limit + 1)
	require.NoError(t, err)
	err = m.CheckInherent(context.Background(), ahead)
	assert.ErrorIs(t, err, &types.ValidityError{Kind: types.InvalidCall})
}

func TestCallInfo_MandatoryFree(t *testing.T) {
	call, err := timestamp.SetCall(1)
	require.NoError(t, err)

	info, err := newModule().CallInfo(call)

	require.NoError(t, err)
	assert.Equal(t, types.ClassMandatory, info.Class)
	assert.Equal(t, types.PaysNo, info.PaysFee)
}

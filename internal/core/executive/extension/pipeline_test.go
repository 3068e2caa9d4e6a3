package extension_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/executive/extension"
	"github.com/weisyn/executive/internal/core/executive/testutil"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	"github.com/weisyn/executive/pkg/types"
)

func newPipeline(t *testing.T, env *testutil.Env) *extension.Pipeline {
	t.Helper()
	p, err := extension.New(env.Options, env.Codec, env.Runtime.Registry, env.Runtime.System, env.Runtime.Balances, signature.NewVerifier())
	require.NoError(t, err)
	return p
}

func requireValidity(t *testing.T, err error, kind types.ValidityErrorKind) {
	t.Helper()
	require.Error(t, err)
	ve, ok := types.AsValidityError(err)
	require.True(t, ok, "期望有效性错误，实际: %v", err)
	assert.Equal(t, kind, ve.Kind, "错误: %v", err)
}

func emptyLimits(env *testutil.Env) types.WeightLimits {
	return env.Options.BlockLimits(env.Options.BaseBlockWeight)
}

func TestCheck_ValidSignedTransfer(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)

	// Act
	checked, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, emptyLimits(env))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []types.TransactionTag{extension.NonceTag(testutil.Alice.Address, 0)}, checked.Valid.Provides)
	assert.Empty(t, checked.Valid.Requires)
	assert.Equal(t, env.Options.TransactionLongevity, checked.Valid.Longevity)
	assert.True(t, checked.Valid.Propagate)
	assert.Equal(t, p.Fee(checked.Info, checked.Length, 0), checked.Fee)
	assert.Equal(t, p.TransactionWeight(checked.Info, checked.Length), checked.Weight)
	assert.Greater(t, checked.Valid.Priority, uint64(0))
}

func TestCheck_ValidateDoesNotTouchState(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
	before, err := env.State.Root()
	require.NoError(t, err)

	// Act
	_, err = p.Check(context.Background(), env.State, 1, tx, extension.ModeValidate, emptyLimits(env))

	// Assert
	require.NoError(t, err)
	after, err := env.State.Root()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCheck_PreDispatchIncrementsNonceAndChargesFee(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	tx := env.SignedWithExtra(t, testutil.Alice, mustTransfer(t, testutil.Bob, 1_000), types.Extra{Nonce: 0, Tip: 7})

	// Act
	checked, err := p.Check(context.Background(), env.State, 1, tx, extension.ModePreDispatch, emptyLimits(env))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, types.Nonce(1), env.Nonce(t, testutil.Alice))
	assert.Equal(t, testutil.InitialBalance-checked.Fee, env.Free(t, testutil.Alice))
	assert.Equal(t, env.Options.BaseFee+uint64(checked.Length)*env.Options.FeePerByte+7, checked.Fee)
	pot, err := env.Runtime.Balances.FeePot(env.State)
	require.NoError(t, err)
	assert.Equal(t, checked.Fee, pot)
}

func TestCheck_Nonce(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	require.NoError(t, env.Runtime.System.IncAccountNonce(env.State, testutil.Alice.Address))
	require.NoError(t, env.Runtime.System.IncAccountNonce(env.State, testutil.Alice.Address))
	limits := emptyLimits(env)

	t.Run("过期nonce", func(t *testing.T) {
		_, err := p.Check(context.Background(), env.Fork(), 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 1), extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidStale)
	})

	t.Run("窗口内的未来nonce依赖前一个nonce", func(t *testing.T) {
		checked, err := p.Check(context.Background(), env.Fork(), 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 5), extension.ModeValidate, limits)
		require.NoError(t, err)
		assert.Equal(t, []types.TransactionTag{extension.NonceTag(testutil.Alice.Address, 4)}, checked.Valid.Requires)
		assert.Equal(t, []types.TransactionTag{extension.NonceTag(testutil.Alice.Address, 5)}, checked.Valid.Provides)
	})

	t.Run("超出窗口", func(t *testing.T) {
		nonce := 2 + env.Options.FutureNonceWindow + 1
		_, err := p.Check(context.Background(), env.Fork(), 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, nonce), extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidFuture)
	})

	t.Run("区块内不接受未来nonce", func(t *testing.T) {
		_, err := p.Check(context.Background(), env.Fork(), 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 3), extension.ModePreDispatch, limits)
		requireValidity(t, err, types.InvalidFuture)
	})

	t.Run("区块内来源校验要求nonce相等", func(t *testing.T) {
		_, err := p.Check(context.Background(), env.Fork(), 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 5), extension.ModeValidateInBlock, limits)
		requireValidity(t, err, types.InvalidFuture)

		fork := env.Fork()
		checked, err := p.Check(context.Background(), fork, 1, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 2), extension.ModeValidateInBlock, limits)
		require.NoError(t, err)
		assert.Empty(t, checked.Valid.Requires)
		nonce, err := env.Runtime.System.AccountNonce(fork, testutil.Alice.Address)
		require.NoError(t, err)
		assert.Equal(t, types.Nonce(2), nonce)
	})
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, extension.ModeValidateInBlock, extension.ModeFor(types.SourceInBlock))
	assert.Equal(t, extension.ModeValidate, extension.ModeFor(types.SourceExternal))
	assert.Equal(t, extension.ModeValidate, extension.ModeFor(types.SourceLocal))
}

func TestCheck_BadProof(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	limits := emptyLimits(env)

	t.Run("签名者不匹配", func(t *testing.T) {
		tx := &types.Transaction{Call: mustTransfer(t, testutil.Bob, 1_000), Origin: types.SignedBy(testutil.Alice.Address)}
		env.Sign(t, tx, testutil.Charlie.Key)
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidBadProof)
	})

	t.Run("缺少签名", func(t *testing.T) {
		tx := &types.Transaction{Call: mustTransfer(t, testutil.Bob, 1_000), Origin: types.SignedBy(testutil.Alice.Address)}
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidBadProof)
	})

	t.Run("签名后篡改", func(t *testing.T) {
		tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
		tx.Extra.Tip = 99
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidBadProof)
	})

	t.Run("无签名交易携带签名", func(t *testing.T) {
		tx := &types.Transaction{Call: mustTransfer(t, testutil.Bob, 1_000), Origin: types.Unsigned(), Signature: []byte{1}}
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidBadProof)
	})
}

func TestCheck_Payment(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	pauper := testutil.DevAccount("dave")
	tx := env.Transfer(t, pauper, testutil.Bob, 1_000, 0)

	// Act
	_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, emptyLimits(env))

	// Assert
	requireValidity(t, err, types.InvalidPayment)
}

func TestCheck_ExhaustsResources(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)

	t.Run("超过声明上限", func(t *testing.T) {
		tx := env.SignedWithExtra(t, testutil.Alice, mustTransfer(t, testutil.Bob, 1_000), types.Extra{WeightHint: 1})
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, emptyLimits(env))
		requireValidity(t, err, types.InvalidExhaustsResources)
	})

	t.Run("超过区块上限", func(t *testing.T) {
		tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, types.WeightLimits{Soft: 10, Operational: 10, Hard: 10})
		requireValidity(t, err, types.InvalidExhaustsResources)
	})
}

func TestCheck_OriginClassMismatch(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	limits := emptyLimits(env)

	t.Run("固有交易不能进入交易池", func(t *testing.T) {
		tx, err := timestamp.Inherent(1)
		require.NoError(t, err)
		_, err = p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.InvalidBadMandatory)
	})

	t.Run("签名交易不能调用强制类函数", func(t *testing.T) {
		call, err := timestamp.SetCall(1)
		require.NoError(t, err)
		_, err = p.Check(context.Background(), env.Fork(), 1, env.Signed(t, testutil.Alice, call, 0), extension.ModePreDispatch, limits)
		requireValidity(t, err, types.InvalidBadMandatory)
	})

	t.Run("固有交易不能调用普通函数", func(t *testing.T) {
		tx := &types.Transaction{Call: mustTransfer(t, testutil.Bob, 1), Origin: types.Inherent()}
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModePreDispatch, limits)
		requireValidity(t, err, types.InvalidBadMandatory)
	})
}

func TestCheck_UnsignedAndUnknown(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)
	limits := emptyLimits(env)

	t.Run("模块不接受无签名交易", func(t *testing.T) {
		tx := &types.Transaction{Call: mustTransfer(t, testutil.Bob, 1_000), Origin: types.Unsigned()}
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.UnknownNoUnsignedValidator)
	})

	t.Run("未知模块", func(t *testing.T) {
		tx := env.Signed(t, testutil.Alice, types.Call{Module: "nope", Function: "x"}, 0)
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.UnknownModule)
	})

	t.Run("未知函数", func(t *testing.T) {
		tx := env.Signed(t, testutil.Alice, types.Call{Module: balances.ModuleName, Function: "mint"}, 0)
		_, err := p.Check(context.Background(), env.Fork(), 1, tx, extension.ModeValidate, limits)
		requireValidity(t, err, types.UnknownModule)
	})
}

func TestFee_PaysNoChargesTipOnly(t *testing.T) {
	env := testutil.NewEnv(t)
	p := newPipeline(t, env)

	fee := p.Fee(types.DispatchInfo{Weight: 1_000, PaysFee: types.PaysNo}, 100, 5)
	assert.Equal(t, types.Balance(5), fee)

	fee = p.Fee(types.DispatchInfo{Weight: 1_000, PaysFee: types.PaysYes}, 100, 5)
	assert.Equal(t, env.Options.BaseFee+100*env.Options.FeePerByte+5, fee)
}

func TestNonceTag_Layout(t *testing.T) {
	tag := extension.NonceTag(testutil.Alice.Address, 0x0102)
	require.Len(t, tag, 28)
	assert.Equal(t, testutil.Alice.Address.Bytes(), []byte(tag[:20]))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, []byte(tag[20:]))
}

func mustTransfer(t *testing.T, to testutil.Account, value types.Balance) types.Call {
	t.Helper()
	call, err := balances.TransferCall(to.Address, value)
	require.NoError(t, err)
	return call
}

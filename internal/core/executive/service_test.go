package executive_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/executive"
	"github.com/weisyn/executive/internal/core/executive/applicator"
	"github.com/weisyn/executive/internal/core/executive/testutil"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/overlay"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/internal/core/runtime/timestamp"
	"github.com/weisyn/executive/pkg/types"
)

// ==================== 辅助函数 ====================

func requireRoot(t *testing.T, s *overlay.Overlay) types.Hash {
	t.Helper()
	root, err := s.Root()
	require.NoError(t, err)
	return root
}

func requireValidity(t *testing.T, err error, kind types.ValidityErrorKind) {
	t.Helper()
	require.Error(t, err)
	ve, ok := types.AsValidityError(err)
	require.True(t, ok, "期望有效性错误，实际: %v", err)
	assert.Equal(t, kind, ve.Kind, "错误: %v", err)
}

func nextHeader(env *testutil.Env) *types.Header {
	return &types.Header{ParentHash: env.Head.Hash, Number: env.Head.Number + 1}
}

// ==================== 出块与校验往返 ====================

func TestAuthorThenExecute_RoundTrip(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	authorState, verifyState := env.Fork(), env.Fork()
	txs := []*types.Transaction{
		env.Timestamp(t),
		env.Transfer(t, testutil.Alice, testutil.Bob, 10_000, 0),
		env.Transfer(t, testutil.Bob, testutil.Charlie, 5_000, 0),
		env.Transfer(t, testutil.Alice, testutil.Charlie, 1_000, 1),
	}

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), authorState, env.Head, nil, executive.NewSliceSupplier(txs...))
	require.NoError(t, err)
	result, err := env.Exec.ExecuteBlock(context.Background(), verifyState, env.Head, authored.Block)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, authored.Hash, result.Hash)
	assert.Equal(t, authored.Block.Header, result.Header)
	assert.Equal(t, requireRoot(t, authorState), requireRoot(t, verifyState))
	assert.Equal(t, authored.Outcomes, result.Outcomes)
	assert.Equal(t, authored.Events, result.Events)
	assert.Equal(t, authored.WeightConsumed, result.WeightConsumed)
	assert.Empty(t, authored.Dropped)
	assert.False(t, authored.Exhausted)
	assert.Equal(t, txs, authored.Block.Transactions)
	assert.Equal(t, []bool{true}, env.Metrics.Blocks[types.ModeVerify])
	assert.Equal(t, []bool{true}, env.Metrics.Blocks[types.ModeAuthor])
}

func TestAuthorBlock_ChainOfBlocks(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)

	// Act
	for i := 0; i < 5; i++ {
		env.Author(t, env.Timestamp(t), env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, types.Nonce(i)))
	}

	// Assert
	assert.Equal(t, types.BlockNumber(5), env.Head.Number)
	assert.Equal(t, types.Nonce(5), env.Nonce(t, testutil.Alice))
	assert.Equal(t, testutil.InitialBalance+5_000, env.Free(t, testutil.Bob))
	hash, found, err := env.Runtime.System.BlockHash(env.State, 4)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEqual(t, types.Hash{}, hash)
}

func TestAuthorBlock_SkeletonPreRuntimeDigestCarried(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	pre := types.DigestItem{Kind: types.DigestPreRuntime, Engine: types.NewEngineID("slot"), Data: []byte{7}}
	seal := types.DigestItem{Kind: types.DigestSeal, Engine: types.NewEngineID("slot"), Data: []byte{9}}
	skeleton := nextHeader(env)
	skeleton.Digest = []types.DigestItem{pre, seal}

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, skeleton, executive.NewSliceSupplier())

	// Assert
	require.NoError(t, err)
	digest := authored.Block.Header.Digest
	require.NotEmpty(t, digest)
	assert.True(t, pre.Equal(digest[0]))
	for _, item := range digest {
		assert.NotEqual(t, types.DigestSeal, item.Kind)
	}

	// 附加 Seal 后仍可校验通过
	sealed := authored.Block.Header.Copy()
	sealed.Digest = append(sealed.Digest, seal)
	_, err = env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, &types.Block{Header: sealed})
	assert.NoError(t, err)
}

// ==================== 原子性 ====================

func TestExecuteBlock_AtomicOnIntegrityFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil,
		executive.NewSliceSupplier(env.Timestamp(t), env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)))
	require.NoError(t, err)

	cases := map[string]func(h *types.Header){
		"状态根": func(h *types.Header) { h.StateRoot[0] ^= 0xff },
		"交易根": func(h *types.Header) { h.TransactionsRoot[0] ^= 0xff },
		"摘要": func(h *types.Header) {
			h.Digest = append(h.Digest, types.DigestItem{Kind: types.DigestOther, Data: []byte{1}})
		},
	}
	for name, tamper := range cases {
		t.Run(name, func(t *testing.T) {
			// Arrange
			state := env.Fork()
			before := requireRoot(t, state)
			header := authored.Block.Header.Copy()
			tamper(header)

			// Act
			_, err := env.Exec.ExecuteBlock(context.Background(), state, env.Head, &types.Block{Header: header, Transactions: authored.Block.Transactions})

			// Assert
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidBlock)
			assert.ErrorIs(t, err, types.ErrIntegrity)
			assert.Equal(t, before, requireRoot(t, state))
			assert.Zero(t, state.Depth())
		})
	}
}

func TestExecuteBlock_ForkOrOrphan(t *testing.T) {
	env := testutil.NewEnv(t)

	wrongNumber := nextHeader(env)
	wrongNumber.Number = 7
	_, err := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, &types.Block{Header: wrongNumber})
	assert.ErrorIs(t, err, types.ErrForkOrOrphan)
	assert.ErrorIs(t, err, types.ErrInvalidBlock)

	wrongParent := nextHeader(env)
	wrongParent.ParentHash[0] ^= 0xff
	_, err = env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, &types.Block{Header: wrongParent})
	assert.ErrorIs(t, err, types.ErrForkOrOrphan)
}

// ==================== 有效性错误 ====================

func TestStaleNonce_ExecuteRejectsAuthorDrops(t *testing.T) {
	env := testutil.NewEnv(t)
	first := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
	replay := env.Transfer(t, testutil.Alice, testutil.Charlie, 2_000, 0)
	next := env.Transfer(t, testutil.Alice, testutil.Bob, 3_000, 1)

	t.Run("校验模式整块拒绝", func(t *testing.T) {
		// Arrange
		state := env.Fork()
		before := requireRoot(t, state)
		block := &types.Block{Header: nextHeader(env), Transactions: []*types.Transaction{first, replay, next}}

		// Act
		_, err := env.Exec.ExecuteBlock(context.Background(), state, env.Head, block)

		// Assert
		assert.ErrorIs(t, err, types.ErrInvalidBlock)
		requireValidity(t, err, types.InvalidStale)
		assert.Equal(t, before, requireRoot(t, state))
		assert.Equal(t, testutil.InitialBalance, env.FreeIn(t, state, testutil.Bob))
	})

	t.Run("出块模式丢弃第二笔并保留第三笔", func(t *testing.T) {
		// Arrange
		state := env.Fork()
		supplier := executive.NewSliceSupplier(first, replay, next)

		// Act
		authored, err := env.Exec.AuthorBlock(context.Background(), state, env.Head, nil, supplier)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []*types.Transaction{first, next}, authored.Block.Transactions)
		require.Len(t, authored.Dropped, 1)
		assert.Same(t, replay, authored.Dropped[0].Transaction)
		assert.Equal(t, types.InvalidStale, authored.Dropped[0].Error.Kind)
		assert.Equal(t, authored.Dropped, supplier.DroppedTransactions())
		assert.Equal(t, testutil.InitialBalance, env.FreeIn(t, state, testutil.Charlie))
		assert.Equal(t, 1, env.Metrics.Dropped[types.InvalidStale])

		// 出块结果可被重新执行
		fresh := env.Fork()
		result, err := env.Exec.ExecuteBlock(context.Background(), fresh, env.Head, authored.Block)
		require.NoError(t, err)
		assert.Equal(t, authored.Hash, result.Hash)
		assert.Equal(t, authored.Block.Header.StateRoot, result.Header.StateRoot)
		assert.Equal(t, env.FreeIn(t, state, testutil.Bob), env.FreeIn(t, fresh, testutil.Bob))
	})
}

func TestInherentPosition(t *testing.T) {
	env := testutil.NewEnv(t)
	transfer := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
	inherent := env.Timestamp(t)

	_, err := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head,
		&types.Block{Header: nextHeader(env), Transactions: []*types.Transaction{transfer, inherent}})
	requireValidity(t, err, types.InvalidBadInherentPosition)

	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, executive.NewSliceSupplier(transfer, inherent))
	require.NoError(t, err)
	assert.Equal(t, []*types.Transaction{transfer}, authored.Block.Transactions)
	require.Len(t, authored.Dropped, 1)
	assert.Equal(t, types.InvalidBadInherentPosition, authored.Dropped[0].Error.Kind)
}

func TestTimestampInherent_AuthoredBlockAlwaysReexecutes(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	future, err := timestamp.Inherent(uint64(testutil.GenesisTime.Add(timestamp.MaxDrift).UnixMilli()) + 1)
	require.NoError(t, err)
	transfer := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, executive.NewSliceSupplier(future, transfer))
	require.NoError(t, err)
	result, verifyErr := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, authored.Block)

	// Assert
	require.NoError(t, verifyErr, "区块执行不依赖本地时钟")
	assert.Len(t, authored.Block.Transactions, 2)
	assert.Equal(t, authored.Hash, result.Hash)
	assert.Equal(t, authored.Block.Header.StateRoot, result.Header.StateRoot)
}

func TestCheckInherents_LocalClockPolicy(t *testing.T) {
	env := testutil.NewEnv(t)

	t.Run("时间戳在允许偏移内", func(t *testing.T) {
		block := &types.Block{Header: &types.Header{Number: 1}, Transactions: []*types.Transaction{env.Timestamp(t)}}
		assert.NoError(t, env.Exec.CheckInherents(context.Background(), block))
	})

	t.Run("时间戳超前本地时钟", func(t *testing.T) {
		future, err := timestamp.Inherent(uint64(testutil.GenesisTime.Add(timestamp.MaxDrift).UnixMilli()) + 1)
		require.NoError(t, err)
		block := &types.Block{Header: &types.Header{Number: 1}, Transactions: []*types.Transaction{future}}

		err = env.Exec.CheckInherents(context.Background(), block)

		assert.ErrorIs(t, err, types.ErrInvalidBlock)
		requireValidity(t, err, types.InvalidCall)
	})

	t.Run("只检查开头的固有交易", func(t *testing.T) {
		transfer := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
		block := &types.Block{Header: &types.Header{Number: 1}, Transactions: []*types.Transaction{transfer}}
		assert.NoError(t, env.Exec.CheckInherents(context.Background(), block))
	})
}

// ==================== 模块错误 ====================

func TestModuleError_Isolation(t *testing.T) {
	// Arrange
	env, _ := testutil.NewMockEnv(t)
	state := env.Fork()
	failing := env.Signed(t, testutil.Alice, testutil.MockCall(testutil.MockCallFail), 0)
	transfer := env.Transfer(t, testutil.Bob, testutil.Charlie, 1_000, 0)

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), state, env.Head, nil,
		executive.NewSliceSupplier(env.Timestamp(t), failing, transfer))

	// Assert
	require.NoError(t, err)
	require.Len(t, authored.Outcomes, 3)
	failed := authored.Outcomes[1]
	assert.Equal(t, types.OutcomeModuleFailed, failed.Kind)
	require.NotNil(t, failed.ModuleErr)
	assert.ErrorIs(t, failed.ModuleErr, testutil.ErrMock)
	assert.Equal(t, types.OutcomeSucceeded, authored.Outcomes[2].Kind)

	// 分发写入被撤销，nonce 与手续费保留
	_, found, err := state.Get(testutil.MockTouchedKey)
	require.NoError(t, err)
	assert.False(t, found)
	nonce, err := env.Runtime.System.AccountNonce(state, testutil.Alice.Address)
	require.NoError(t, err)
	assert.Equal(t, types.Nonce(1), nonce)
	assert.Equal(t, testutil.InitialBalance-failed.Fee, env.FreeIn(t, state, testutil.Alice))

	// 模块已写入的事件被撤销，只留下 ExtrinsicFailed
	assert.Zero(t, testutil.CountEvents(authored.Events, testutil.MockModuleName, "Touched"))
	assert.Equal(t, 1, testutil.CountEvents(authored.Events, types.SystemModule, types.EventExtrinsicFailed))
	assert.Equal(t, 2, testutil.CountEvents(authored.Events, types.SystemModule, types.EventExtrinsicSuccess))
	for _, rec := range authored.Events {
		if rec.Event.Name != types.EventExtrinsicFailed {
			continue
		}
		assert.Equal(t, types.PhaseApplyTransaction, rec.Phase)
		assert.Equal(t, 1, rec.TransactionIndex)
		var data applicator.ExtrinsicFailedData
		require.NoError(t, rlp.DecodeBytes(rec.Event.Data, &data))
		assert.Equal(t, *testutil.ErrMock, data.Error)
	}
	assert.Equal(t, 1, failed.EventCount)

	// 校验模式得到相同结果
	result, err := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, authored.Block)
	require.NoError(t, err)
	assert.Equal(t, authored.Outcomes, result.Outcomes)
}

func TestModuleError_UnclassifiedError(t *testing.T) {
	env, _ := testutil.NewMockEnv(t)

	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil,
		executive.NewSliceSupplier(env.Signed(t, testutil.Alice, testutil.MockCall(testutil.MockCallRaw), 0)))

	require.NoError(t, err)
	require.Len(t, authored.Outcomes, 1)
	require.NotNil(t, authored.Outcomes[0].ModuleErr)
	assert.Equal(t, testutil.MockModuleName, authored.Outcomes[0].ModuleErr.Module)
	assert.Equal(t, applicator.ErrCodeUnclassified, authored.Outcomes[0].ModuleErr.Code)
}

func TestOverBalanceTransfer(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	state := env.Fork()
	tx := env.Transfer(t, testutil.Alice, testutil.Charlie, testutil.InitialBalance*2, 0)

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), state, env.Head, nil, executive.NewSliceSupplier(tx))

	// Assert
	require.NoError(t, err)
	require.Len(t, authored.Outcomes, 1)
	outcome := authored.Outcomes[0]
	assert.Equal(t, types.OutcomeModuleFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.ModuleErr, balances.ErrInsufficientBalance)
	nonce, err := env.Runtime.System.AccountNonce(state, testutil.Alice.Address)
	require.NoError(t, err)
	assert.Equal(t, types.Nonce(1), nonce)
	assert.Greater(t, outcome.Fee, types.Balance(0))
	assert.Equal(t, testutil.InitialBalance-outcome.Fee, env.FreeIn(t, state, testutil.Alice))
	assert.Equal(t, testutil.InitialBalance, env.FreeIn(t, state, testutil.Charlie))
}

func TestMandatoryDispatchFailure(t *testing.T) {
	env, _ := testutil.NewMockEnv(t)
	force := &types.Transaction{Call: testutil.MockCall(testutil.MockCallForce), Origin: types.Inherent()}

	_, err := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head,
		&types.Block{Header: nextHeader(env), Transactions: []*types.Transaction{force}})
	assert.ErrorIs(t, err, types.ErrInvalidBlock)
	requireValidity(t, err, types.InvalidBadMandatory)

	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, executive.NewSliceSupplier(force))
	require.NoError(t, err)
	assert.Empty(t, authored.Block.Transactions)
	require.Len(t, authored.Dropped, 1)
	assert.Equal(t, types.InvalidBadMandatory, authored.Dropped[0].Error.Kind)
}

// ==================== 钩子 ====================

func TestHookFailure_IsFatal(t *testing.T) {
	t.Run("OnInitialize", func(t *testing.T) {
		env, mock := testutil.NewMockEnv(t)
		mock.InitErr = errors.New("broken")
		state := env.Fork()
		before := requireRoot(t, state)

		_, err := env.Exec.AuthorBlock(context.Background(), state, env.Head, nil, executive.NewSliceSupplier())

		assert.ErrorIs(t, err, types.ErrHook)
		assert.Equal(t, before, requireRoot(t, state))
	})

	t.Run("OnFinalize", func(t *testing.T) {
		env, mock := testutil.NewMockEnv(t)
		mock.FinalizeErr = errors.New("broken")

		_, err := env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head, &types.Block{Header: nextHeader(env)})

		assert.ErrorIs(t, err, types.ErrHook)
		assert.ErrorIs(t, err, types.ErrInvalidBlock)
	})

	t.Run("钩子权重超过区块上限", func(t *testing.T) {
		env, mock := testutil.NewMockEnv(t)
		mock.InitWeight = env.Options.MaxBlockWeight

		_, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, executive.NewSliceSupplier())

		assert.ErrorIs(t, err, types.ErrHook)
	})
}

func TestHookEvents_PhasesAndOrder(t *testing.T) {
	// Arrange
	env, mock := testutil.NewMockEnv(t)
	mock.InitDigest = &types.DigestItem{Kind: types.DigestOther, Engine: types.NewEngineID("mock"), Data: []byte("x")}

	// Act
	authored := env.Author(t, env.Timestamp(t))

	// Assert
	assert.Equal(t, []string{
		"staking.StakingElection",
		"mock.Initialized",
		"timestamp.Set",
		"system.ExtrinsicSuccess",
		"mock.Finalized",
	}, testutil.EventNames(authored.Events))
	first, last := authored.Events[0], authored.Events[len(authored.Events)-1]
	assert.Equal(t, types.PhaseInitialization, first.Phase)
	assert.Equal(t, types.PhaseFinalization, last.Phase)

	var found bool
	for _, item := range authored.Block.Header.Digest {
		if item.Equal(*mock.InitDigest) {
			found = true
		}
	}
	assert.True(t, found)
}

// ==================== 权重 ====================

func TestAuthorBlock_WeightExhaustion(t *testing.T) {
	// Arrange
	options := testutil.TestOptions()
	options.MaxBlockWeight = 20_000_000
	mock := &testutil.MockModule{}
	env := testutil.NewEnvWith(t, options, testutil.TestGenesis(), mock)
	heavy := func(nonce types.Nonce) *types.Transaction {
		return env.Signed(t, testutil.Alice, testutil.MockWeightCall(testutil.MockCallHeavy, 5_000_000), nonce)
	}
	oversized := env.Signed(t, testutil.Bob, testutil.MockWeightCall(testutil.MockCallHeavy, 50_000_000), 0)
	txs := []*types.Transaction{oversized, heavy(0), heavy(1), heavy(2), heavy(3)}
	supplier := executive.NewSliceSupplier(txs...)

	// Act
	authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, supplier)

	// Assert
	require.NoError(t, err)
	assert.True(t, authored.Exhausted)
	assert.Equal(t, txs[1:3], authored.Block.Transactions)
	require.Len(t, authored.Dropped, 1)
	assert.Equal(t, types.InvalidExhaustsResources, authored.Dropped[0].Error.Kind)
	assert.Equal(t, txs[3:], supplier.Remaining(authored.Exhausted))
	assert.LessOrEqual(t, authored.WeightConsumed, options.MaxBlockWeight)

	// 同样的交易在校验模式下是致命错误
	_, err = env.Exec.ExecuteBlock(context.Background(), env.Fork(), env.Head,
		&types.Block{Header: nextHeader(env), Transactions: txs[1:4]})
	assert.ErrorIs(t, err, types.ErrInvalidBlock)
	assert.ErrorIs(t, err, types.ErrOverweight)
}

func TestWeightConsumed_Monotonic(t *testing.T) {
	env := testutil.NewEnv(t)

	var prev types.Weight
	txs := []*types.Transaction{env.Timestamp(t)}
	for i := 0; i < 4; i++ {
		if i > 0 {
			txs = append(txs, env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, types.Nonce(i-1)))
		}
		authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil, executive.NewSliceSupplier(txs...))
		require.NoError(t, err)

		var sum types.Weight
		for _, o := range authored.Outcomes {
			sum += o.Weight
		}
		assert.Greater(t, authored.WeightConsumed, sum, "包含区块固定开销")
		assert.Greater(t, authored.WeightConsumed, prev)
		prev = authored.WeightConsumed
	}
}

// ==================== 取消 ====================

type cancellingSupplier struct {
	txs    []*types.Transaction
	cancel context.CancelFunc
	calls  int
}

func (s *cancellingSupplier) Next(context.Context) (*types.Transaction, bool) {
	if s.calls >= len(s.txs) {
		return nil, false
	}
	tx := s.txs[s.calls]
	s.calls++
	if s.calls == 1 {
		s.cancel()
	}
	return tx, true
}

func TestAuthorBlock_CancelledBetweenTransactions(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	state := env.Fork()
	before := requireRoot(t, state)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	supplier := &cancellingSupplier{
		txs:    []*types.Transaction{env.Transfer(t, testutil.Alice, testutil.Bob, 1, 0), env.Transfer(t, testutil.Alice, testutil.Bob, 1, 1)},
		cancel: cancel,
	}

	// Act
	_, err := env.Exec.AuthorBlock(ctx, state, env.Head, nil, supplier)

	// Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, supplier.calls)
	assert.Equal(t, before, requireRoot(t, state))
}

// ==================== 交易池校验 ====================

func TestValidateTransaction_Idempotent(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 2)
	before := requireRoot(t, env.State)

	// Act
	first, err1 := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, tx, types.SourceExternal)
	second, err2 := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, tx, types.SourceExternal)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Requires)
	assert.Equal(t, before, requireRoot(t, env.State))
	assert.Zero(t, env.State.Depth())
	assert.Equal(t, 2, env.Metrics.Validations[true])
}

func TestValidateTransaction_RejectsWithoutSideEffects(t *testing.T) {
	env := testutil.NewEnv(t)
	before := requireRoot(t, env.State)

	_, err := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, env.Timestamp(t), types.SourceLocal)

	requireValidity(t, err, types.InvalidBadMandatory)
	assert.Equal(t, before, requireRoot(t, env.State))
	assert.Equal(t, 1, env.Metrics.Validations[false])
}

func TestValidateTransaction_SourceSemantics(t *testing.T) {
	env := testutil.NewEnv(t)
	tx := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 3)

	t.Run("网络来源接受窗口内未来nonce", func(t *testing.T) {
		valid, err := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, tx, types.SourceExternal)
		require.NoError(t, err)
		assert.NotEmpty(t, valid.Requires)
	})

	t.Run("区块内来源拒绝未来nonce", func(t *testing.T) {
		_, err := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, tx, types.SourceInBlock)
		requireValidity(t, err, types.InvalidFuture)
	})

	t.Run("区块内来源接受当前nonce", func(t *testing.T) {
		current := env.Transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
		valid, err := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, current, types.SourceInBlock)
		require.NoError(t, err)
		assert.Empty(t, valid.Requires)
	})

	t.Run("未知来源", func(t *testing.T) {
		_, err := env.Exec.ValidateTransaction(context.Background(), env.State, env.Head, tx, types.TransactionSource(0))
		require.Error(t, err)
	})
}

// ==================== 并发与链下任务 ====================

func TestExecuteBlock_ParallelCandidates(t *testing.T) {
	// Arrange
	env := testutil.NewEnv(t)
	blocks := make([]*types.AuthoredBlock, 4)
	for i := range blocks {
		authored, err := env.Exec.AuthorBlock(context.Background(), env.Fork(), env.Head, nil,
			executive.NewSliceSupplier(env.Transfer(t, testutil.Alice, testutil.Bob, types.Balance(1_000+i), 0)))
		require.NoError(t, err)
		blocks[i] = authored
	}

	// Act
	errs := make([]error, len(blocks))
	roots := make([]types.Hash, len(blocks))
	var wg sync.WaitGroup
	for i, b := range blocks {
		wg.Add(1)
		go func(i int, b *types.AuthoredBlock) {
			defer wg.Done()
			state := env.Fork()
			_, errs[i] = env.Exec.ExecuteBlock(context.Background(), state, env.Head, b.Block)
			roots[i], _ = state.Root()
		}(i, b)
	}
	wg.Wait()

	// Assert
	for i := range blocks {
		require.NoError(t, errs[i])
		assert.Equal(t, blocks[i].Block.Header.StateRoot, roots[i])
	}
	assert.NotEqual(t, roots[0], roots[1])
}

func TestOffchainWorker_ReadOnlyAndIsolated(t *testing.T) {
	// Arrange
	env, mock := testutil.NewMockEnv(t)
	authored := env.Author(t, env.Timestamp(t))
	before := requireRoot(t, env.State)

	// Act
	env.Exec.OffchainWorker(context.Background(), env.State, authored.Block.Header)
	mock.WorkerPanic = true
	env.Exec.OffchainWorker(context.Background(), env.State, authored.Block.Header)

	// Assert
	assert.Equal(t, int32(2), mock.WorkerCalls.Load())
	assert.Zero(t, mock.WorkerWrites.Load())
	assert.Equal(t, before, requireRoot(t, env.State))
}

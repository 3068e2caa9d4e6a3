package codec_test

import (
	"testing"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	executiveconfig "github.com/weisyn/executive/internal/config/executive"
	"github.com/weisyn/executive/internal/core/executive/codec"
	"github.com/weisyn/executive/pkg/types"
)

func sampleTx(nonce uint64) *types.Transaction {
	return &types.Transaction{
		Call:      types.Call{Module: "balances", Function: "transfer", Args: []byte{1, 2, 3}},
		Origin:    types.SignedBy(types.AccountID{0xaa}),
		Extra:     types.Extra{Nonce: nonce, Tip: 5},
		Signature: make([]byte, 65),
	}
}

func TestTransaction_RoundTrip(t *testing.T) {
	c := codec.Default()
	tx := sampleTx(3)

	data, err := c.EncodeTransaction(tx)
	require.NoError(t, err)
	decoded, err := c.DecodeTransaction(data)
	require.NoError(t, err)

	assert.Equal(t, tx.Call.Module, decoded.Call.Module)
	assert.Equal(t, tx.Origin, decoded.Origin)
	assert.Equal(t, tx.Extra, decoded.Extra)

	again, err := c.EncodeTransaction(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDecodeTransaction_Garbage(t *testing.T) {
	_, err := codec.Default().DecodeTransaction([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestHeader_RoundTripAndHash(t *testing.T) {
	c := codec.Default()
	h := &types.Header{
		ParentHash: types.Hash{1},
		Number:     7,
		StateRoot:  types.Hash{2},
		Digest: []types.DigestItem{
			{Kind: types.DigestPreRuntime, Engine: types.NewEngineID("aura"), Data: []byte{9}},
		},
	}

	data, err := c.EncodeHeader(h)
	require.NoError(t, err)
	decoded, err := c.DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, h.Number, decoded.Number)
	assert.True(t, types.DigestEqual(h.Digest, decoded.Digest))

	h1, err := c.HeaderHash(h)
	require.NoError(t, err)
	h2, err := c.HeaderHash(decoded)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	changed := h.Copy()
	changed.Number = 8
	h3, err := c.HeaderHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestBlock_RoundTrip(t *testing.T) {
	c := codec.Default()
	block := &types.Block{
		Header:       &types.Header{Number: 1},
		Transactions: []*types.Transaction{sampleTx(0), sampleTx(1)},
	}
	data, err := c.EncodeBlock(block)
	require.NoError(t, err)
	decoded, err := c.DecodeBlock(data)
	require.NoError(t, err)
	require.Len(t, decoded.Transactions, 2)
	assert.Equal(t, uint64(1), decoded.Transactions[1].Extra.Nonce)

	_, err = c.EncodeBlock(&types.Block{})
	assert.Error(t, err)
}

// 签名载荷不包含签名本身
func TestSigningPayload_ExcludesSignature(t *testing.T) {
	c := codec.Default()
	a := sampleTx(1)
	b := sampleTx(1)
	b.Signature = []byte{1}

	pa, err := c.SigningPayload(a)
	require.NoError(t, err)
	pb, err := c.SigningPayload(b)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Len(t, pa, 32)

	b.Extra.Nonce = 2
	pc, err := c.SigningPayload(b)
	require.NoError(t, err)
	assert.NotEqual(t, pa, pc)
}

func TestTransactionsRoot_PureFunctionOfOrderedSequence(t *testing.T) {
	for _, scheme := range []string{executiveconfig.RootSchemeTrie, executiveconfig.RootSchemeMerkle} {
		t.Run(scheme, func(t *testing.T) {
			c, err := codec.New(scheme)
			require.NoError(t, err)

			txs := []*types.Transaction{sampleTx(0), sampleTx(1), sampleTx(2)}
			r1, err := c.TransactionsRoot(txs)
			require.NoError(t, err)
			r2, err := c.TransactionsRoot([]*types.Transaction{sampleTx(0), sampleTx(1), sampleTx(2)})
			require.NoError(t, err)
			assert.Equal(t, r1, r2)

			swapped, err := c.TransactionsRoot([]*types.Transaction{sampleTx(1), sampleTx(0), sampleTx(2)})
			require.NoError(t, err)
			assert.NotEqual(t, r1, swapped)
		})
	}
}

func TestTransactionsRoot_EmptyTrie(t *testing.T) {
	root, err := codec.Default().TransactionsRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, gethtypes.EmptyRootHash, root)
}

func TestNew_UnknownScheme(t *testing.T) {
	_, err := codec.New("sha1")
	assert.Error(t, err)
	c, err := codec.New("")
	require.NoError(t, err)
	assert.Equal(t, executiveconfig.RootSchemeTrie, c.RootScheme())
}

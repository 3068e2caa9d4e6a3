package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/weisyn/executive/internal/api/http"
	apitypes "github.com/weisyn/executive/internal/api/http/types"
	apiconfig "github.com/weisyn/executive/internal/config/api"
	"github.com/weisyn/executive/internal/core/chain"
	"github.com/weisyn/executive/internal/core/executive"
	"github.com/weisyn/executive/internal/core/executive/codec"
	"github.com/weisyn/executive/internal/core/executive/testutil"
	"github.com/weisyn/executive/internal/core/infrastructure/crypto/signature"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/executive/internal/core/runtime"
	"github.com/weisyn/executive/internal/core/runtime/balances"
	"github.com/weisyn/executive/pkg/types"
)

type apiNode struct {
	service *chain.Service
	codec   *codec.RLPCodec
	server  *apihttp.Server
}

func testOptions() *apiconfig.APIOptions {
	return &apiconfig.APIOptions{
		Enabled:       true,
		ListenAddr:    "127.0.0.1:0",
		EnableMetrics: true,
		EnableProduce: true,
		GinMode:       "test",
	}
}

func newAPINode(t *testing.T, options *apiconfig.APIOptions, withGenesis bool) *apiNode {
	t.Helper()
	logger := &testutil.MockLogger{}
	clock := func() time.Time { return testutil.GenesisTime }
	genesis := testutil.TestGenesis()
	execOptions := testutil.TestOptions()

	store, err := badger.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rt, err := runtime.New(genesis, clock, logger)
	require.NoError(t, err)
	c, err := codec.New(execOptions.TransactionsRootScheme)
	require.NoError(t, err)
	recorder, err := metrics.NewRecorder(false)
	require.NoError(t, err)

	exec, err := executive.NewService(executive.Dependencies{
		Options:  execOptions,
		Codec:    c,
		Registry: rt.Registry,
		Nonces:   rt.System,
		Fees:     rt.Balances,
		Verifier: signature.NewVerifier(),
		Recorder: rt.System,
		Metrics:  recorder,
		Logger:   logger,
	})
	require.NoError(t, err)

	service, err := chain.New(chain.Dependencies{
		Store:     store,
		Executive: exec,
		Codec:     c,
		Runtime:   rt,
		Genesis:   genesis,
		Metrics:   recorder,
		Logger:    logger,
		Clock:     clock,
	})
	require.NoError(t, err)
	if withGenesis {
		_, err = service.Genesis(context.Background())
		require.NoError(t, err)
	}

	server, err := apihttp.NewServer(options, service, recorder, logger)
	require.NoError(t, err)
	return &apiNode{service: service, codec: c, server: server}
}

func (n *apiNode) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (n *apiNode) transfer(t *testing.T, from, to testutil.Account, value types.Balance, nonce types.Nonce) hexutil.Bytes {
	t.Helper()
	call, err := balances.TransferCall(to.Address, value)
	require.NoError(t, err)
	tx := &types.Transaction{Call: call, Origin: types.SignedBy(from.Address), Extra: types.Extra{Nonce: nonce}}
	payload, err := n.codec.SigningPayload(tx)
	require.NoError(t, err)
	tx.Signature, err = signature.Sign(payload, from.Key)
	require.NoError(t, err)
	raw, err := n.codec.EncodeTransaction(tx)
	require.NoError(t, err)
	return raw
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		RequestID string `json:"requestId"`
		Details   struct {
			Kind types.ValidityErrorKind `json:"kind"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewServer_RejectsMissingDependencies(t *testing.T) {
	_, err := apihttp.NewServer(nil, nil, nil, nil)
	assert.Error(t, err)
	_, err = apihttp.NewServer(testOptions(), nil, nil, nil)
	assert.Error(t, err)
}

func TestChainHead(t *testing.T) {
	t.Run("创世后返回高度0", func(t *testing.T) {
		n := newAPINode(t, testOptions(), true)

		rec := n.do(t, http.MethodGet, "/v1/chain/head", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var head types.ChainHead
		decodeData(t, rec, &head)
		assert.Equal(t, types.BlockNumber(0), head.Number)
		expected, err := n.service.Head(context.Background())
		require.NoError(t, err)
		assert.Equal(t, expected.Hash, head.Hash)
	})

	t.Run("未初始化返回503", func(t *testing.T) {
		n := newAPINode(t, testOptions(), false)

		rec := n.do(t, http.MethodGet, "/v1/chain/head", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, apitypes.ErrChainNotInitialized, decodeError(t, rec).Error.Code)
	})
}

func TestRequestID(t *testing.T) {
	n := newAPINode(t, testOptions(), true)

	t.Run("沿用请求携带的ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/blocks/99", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		n.server.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-42", decodeError(t, rec).Error.RequestID)
	})

	t.Run("缺省时生成新ID", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/chain/head", nil)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestProduceAndQuery(t *testing.T) {
	// Arrange
	n := newAPINode(t, testOptions(), true)
	tx := n.transfer(t, testutil.Alice, testutil.Bob, 10_000, 0)
	stale := n.transfer(t, testutil.Alice, testutil.Bob, 1, 5)

	// Act
	rec := n.do(t, http.MethodPost, "/v1/blocks/produce", apitypes.ProduceBlockRequest{
		Transactions: []hexutil.Bytes{tx, stale},
	})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var produced apitypes.ProduceResponse
	decodeData(t, rec, &produced)
	assert.Equal(t, types.BlockNumber(1), produced.Number)
	require.Len(t, produced.Dropped, 1)
	assert.Equal(t, 1, produced.Dropped[0].Index)
	assert.Equal(t, types.InvalidFuture, produced.Dropped[0].Error.Kind)
	assert.NotEmpty(t, produced.Block)

	t.Run("按高度查询区块", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/blocks/1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var block apitypes.BlockResponse
		decodeData(t, rec, &block)
		assert.Equal(t, produced.Hash, block.Hash)
		assert.Equal(t, 2, block.TxCount) // 时间戳 + 转账
		assert.Equal(t, produced.Block, block.Encoded)
	})

	t.Run("按哈希查询区块", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/blocks/"+produced.Hash.Hex(), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var block apitypes.BlockResponse
		decodeData(t, rec, &block)
		assert.Equal(t, types.BlockNumber(1), block.Header.Number)
	})

	t.Run("区块不存在返回404", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/blocks/99", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apitypes.ErrBlockNotFound, decodeError(t, rec).Error.Code)

		rec = n.do(t, http.MethodGet, "/v1/blocks/"+types.HexToHash("0x01").Hex(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("非法区块标识返回400", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/blocks/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = n.do(t, http.MethodGet, "/v1/blocks/0x1234", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("查询账户", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/accounts/"+testutil.Bob.Address.Hex(), nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var info chain.AccountInfo
		decodeData(t, rec, &info)
		assert.Equal(t, testutil.InitialBalance+10_000, info.Free)

		rec = n.do(t, http.MethodGet, "/v1/accounts/"+testutil.Alice.Address.Hex(), nil)
		decodeData(t, rec, &info)
		assert.Equal(t, types.Nonce(1), info.Nonce)
	})

	t.Run("非法地址返回400", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/v1/accounts/not-an-address", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProduceDisabled(t *testing.T) {
	options := testOptions()
	options.EnableProduce = false
	n := newAPINode(t, options, true)

	rec := n.do(t, http.MethodPost, "/v1/blocks/produce", apitypes.ProduceBlockRequest{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateTransaction(t *testing.T) {
	n := newAPINode(t, testOptions(), true)

	t.Run("有效交易返回优先级与标签", func(t *testing.T) {
		rec := n.do(t, http.MethodPost, "/v1/transactions/validate", apitypes.ValidateTransactionRequest{
			Transaction: n.transfer(t, testutil.Alice, testutil.Bob, 1_000, 0),
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var valid types.ValidTransaction
		decodeData(t, rec, &valid)
		assert.Len(t, valid.Provides, 1)
		assert.Empty(t, valid.Requires)
		assert.True(t, valid.Propagate)
	})

	t.Run("签名错误返回422", func(t *testing.T) {
		raw := n.transfer(t, testutil.Alice, testutil.Bob, 1_000, 0)
		tx, err := n.codec.DecodeTransaction(raw)
		require.NoError(t, err)
		tx.Origin = types.SignedBy(testutil.Charlie.Address)
		forged, err := n.codec.EncodeTransaction(tx)
		require.NoError(t, err)

		rec := n.do(t, http.MethodPost, "/v1/transactions/validate", apitypes.ValidateTransactionRequest{
			Transaction: forged,
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, apitypes.ErrTxInvalid, body.Error.Code)
		assert.Equal(t, types.InvalidBadProof, body.Error.Details.Kind)
	})

	t.Run("未知来源返回400", func(t *testing.T) {
		rec := n.do(t, http.MethodPost, "/v1/transactions/validate", apitypes.ValidateTransactionRequest{
			Transaction: n.transfer(t, testutil.Alice, testutil.Bob, 1_000, 0),
			Source:      "gossip",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("无法解码返回400", func(t *testing.T) {
		rec := n.do(t, http.MethodPost, "/v1/transactions/validate", apitypes.ValidateTransactionRequest{
			Transaction: hexutil.Bytes{0xff, 0x00},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apitypes.ErrTxDecode, decodeError(t, rec).Error.Code)
	})

	t.Run("缺少交易字段返回400", func(t *testing.T) {
		rec := n.do(t, http.MethodPost, "/v1/transactions/validate", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apitypes.ErrInvalidArgument, decodeError(t, rec).Error.Code)
	})
}

func TestImportBlock(t *testing.T) {
	// Arrange
	author := newAPINode(t, testOptions(), true)
	follower := newAPINode(t, testOptions(), true)
	rec := author.do(t, http.MethodPost, "/v1/blocks/produce", apitypes.ProduceBlockRequest{
		Transactions: []hexutil.Bytes{author.transfer(t, testutil.Alice, testutil.Bob, 2_000, 0)},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var produced apitypes.ProduceResponse
	decodeData(t, rec, &produced)

	// Act
	rec = follower.do(t, http.MethodPost, "/v1/blocks/import", apitypes.ImportBlockRequest{Block: produced.Block})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var imported apitypes.ImportResponse
	decodeData(t, rec, &imported)
	assert.Equal(t, produced.Hash, imported.Hash)
	assert.Equal(t, types.BlockNumber(1), imported.Number)
	require.Len(t, imported.Outcomes, 2)
	assert.Equal(t, types.OutcomeSucceeded, imported.Outcomes[1].Kind)

	t.Run("重复导入被拒绝", func(t *testing.T) {
		rec := follower.do(t, http.MethodPost, "/v1/blocks/import", apitypes.ImportBlockRequest{Block: produced.Block})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, apitypes.ErrBlockRejected, decodeError(t, rec).Error.Code)
		head, err := follower.service.Head(context.Background())
		require.NoError(t, err)
		assert.Equal(t, produced.Hash, head.Hash)
	})

	t.Run("无法解码返回400", func(t *testing.T) {
		rec := follower.do(t, http.MethodPost, "/v1/blocks/import", apitypes.ImportBlockRequest{Block: hexutil.Bytes{0x01}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	n := newAPINode(t, testOptions(), true)

	t.Run("就绪检查包含链头", func(t *testing.T) {
		rec := n.do(t, http.MethodGet, "/health/ready", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var health apitypes.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health.Status)
		assert.True(t, strings.HasPrefix(health.Head, "#0"))
	})

	t.Run("未初始化时未就绪", func(t *testing.T) {
		fresh := newAPINode(t, testOptions(), false)
		assert.Equal(t, http.StatusOK, fresh.do(t, http.MethodGet, "/health/live", nil).Code)
		assert.Equal(t, http.StatusServiceUnavailable, fresh.do(t, http.MethodGet, "/health/ready", nil).Code)
	})

	t.Run("指标端点", func(t *testing.T) {
		n.do(t, http.MethodGet, "/v1/chain/head", nil)

		rec := n.do(t, http.MethodGet, "/metrics", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `executive_api_requests_total{method="GET",path="/v1/chain/head",status="200"}`)
		assert.Contains(t, body, "executive_chain_head_number 0")
	})

	t.Run("关闭指标时不注册端点", func(t *testing.T) {
		options := testOptions()
		options.EnableMetrics = false
		quiet := newAPINode(t, options, true)
		assert.Equal(t, http.StatusNotFound, quiet.do(t, http.MethodGet, "/metrics", nil).Code)
	})
}

func TestStartStop(t *testing.T) {
	n := newAPINode(t, testOptions(), true)

	require.NoError(t, n.server.Start())
	assert.NoError(t, n.server.Stop(context.Background()))
}

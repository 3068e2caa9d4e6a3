package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/executive/internal/core/executive/interfaces"
	"github.com/weisyn/executive/internal/core/infrastructure/metrics"
	"github.com/weisyn/executive/pkg/types"
)

var _ interfaces.MetricsRecorder = (*metrics.Recorder)(nil)

func TestRecorder_CountsBlocksAndOutcomes(t *testing.T) {
	// Arrange
	r, err := metrics.NewRecorder(false)
	require.NoError(t, err)

	// Act
	r.ObserveBlock(types.ModeAuthor, true, 0.01, 6_000_000)
	r.ObserveBlock(types.ModeVerify, false, 0.02, 0)
	r.ObserveOutcome(types.OutcomeSucceeded)
	r.ObserveOutcome(types.OutcomeSucceeded)
	r.ObserveOutcome(types.OutcomeModuleFailed)
	r.ObserveDropped(types.InvalidStale)
	r.ObserveValidation(true)
	r.ObserveWeight(types.ClassMandatory, 5_000)
	r.SetHead(42)
	r.ObserveImport(true)

	// Assert
	count, err := promtestutil.GatherAndCount(r.Registry(), "executive_block_executed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP executive_transaction_outcomes_total Transaction dispatch outcomes by kind
# TYPE executive_transaction_outcomes_total counter
executive_transaction_outcomes_total{kind="module_failed"} 1
executive_transaction_outcomes_total{kind="succeeded"} 2
`
	assert.NoError(t, promtestutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "executive_transaction_outcomes_total"))

	count, err = promtestutil.GatherAndCount(r.Registry(), "executive_block_weight_consumed")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "失败的区块不记录权重")
}

func TestRecorder_Handler(t *testing.T) {
	r, err := metrics.NewRecorder(false)
	require.NoError(t, err)
	r.SetHead(7)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "executive_chain_head_number 7")
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	_, err := metrics.NewRecorder(true)
	require.NoError(t, err)
	_, err = metrics.NewRecorder(true)
	assert.NoError(t, err, "每个记录器使用独立注册表")
}

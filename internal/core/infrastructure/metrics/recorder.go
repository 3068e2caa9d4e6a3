// Package metrics 区块执行与链服务的 Prometheus 指标
//
// 所有指标注册在独立的 Registry 上，不污染 prometheus 默认注册表，
// 并通过 Handler() 以 promhttp 暴露。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/executive/pkg/types"
)

const namespace = "executive"

// Recorder 执行指标记录器，实现 executive 的 MetricsRecorder
type Recorder struct {
	registry *prometheus.Registry

	blocksTotal      *prometheus.CounterVec
	blockDuration    *prometheus.HistogramVec
	blockWeight      *prometheus.HistogramVec
	outcomesTotal    *prometheus.CounterVec
	droppedTotal     *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	classWeight      *prometheus.CounterVec
	chainHead        prometheus.Gauge
	importsTotal     *prometheus.CounterVec
}

// NewRecorder 创建记录器；withRuntime 为 true 时同时注册 Go 运行时与进程采集器
func NewRecorder(withRuntime bool) (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.blocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "executed_total",
		Help:      "Total number of executed blocks",
	}, []string{"mode", "result"}) // mode: verify/author, result: ok/failed

	r.blockDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "duration_seconds",
		Help:      "Duration of block execution",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms ~ 2s
	}, []string{"mode"})

	r.blockWeight = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "block",
		Name:      "weight_consumed",
		Help:      "Weight consumed by successfully executed blocks",
		Buckets:   prometheus.ExponentialBuckets(1_000_000, 2, 12),
	}, []string{"mode"})

	r.outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transaction",
		Name:      "outcomes_total",
		Help:      "Transaction dispatch outcomes by kind",
	}, []string{"kind"})

	r.droppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transaction",
		Name:      "dropped_total",
		Help:      "Transactions dropped while authoring, by validity error",
	}, []string{"reason"})

	r.validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transaction",
		Name:      "validations_total",
		Help:      "Transaction pool validations",
	}, []string{"result"})

	r.classWeight = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "weight",
		Name:      "consumed_total",
		Help:      "Weight consumed by dispatch class",
	}, []string{"class"})

	r.chainHead = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "head_number",
		Help:      "Number of the current chain head",
	})

	r.importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain",
		Name:      "imports_total",
		Help:      "Block imports by result",
	}, []string{"result"})

	toRegister := []prometheus.Collector{
		r.blocksTotal, r.blockDuration, r.blockWeight,
		r.outcomesTotal, r.droppedTotal, r.validationsTotal, r.classWeight,
		r.chainHead, r.importsTotal,
	}
	if withRuntime {
		toRegister = append(toRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, c := range toRegister {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Registry 返回独立注册表
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler 返回 /metrics 的 HTTP 处理器
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ==================== 执行器指标 ====================

// ObserveBlock 记录一次区块执行
func (r *Recorder) ObserveBlock(mode types.ExecutionMode, ok bool, seconds float64, weight types.Weight) {
	r.blocksTotal.WithLabelValues(mode.String(), result(ok)).Inc()
	r.blockDuration.WithLabelValues(mode.String()).Observe(seconds)
	if ok {
		r.blockWeight.WithLabelValues(mode.String()).Observe(float64(weight))
	}
}

// ObserveOutcome 记录单笔交易结果
func (r *Recorder) ObserveOutcome(kind types.OutcomeKind) {
	r.outcomesTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveDropped 记录出块时被丢弃的交易
func (r *Recorder) ObserveDropped(kind types.ValidityErrorKind) {
	r.droppedTotal.WithLabelValues(kind.String()).Inc()
}

// ObserveValidation 记录交易池校验
func (r *Recorder) ObserveValidation(ok bool) {
	r.validationsTotal.WithLabelValues(result(ok)).Inc()
}

// ObserveWeight 按类别累计权重
func (r *Recorder) ObserveWeight(class types.DispatchClass, weight types.Weight) {
	r.classWeight.WithLabelValues(class.String()).Add(float64(weight))
}

// ==================== 链服务指标 ====================

// SetHead 更新链头高度
func (r *Recorder) SetHead(number types.BlockNumber) {
	r.chainHead.Set(float64(number))
}

// ObserveImport 记录区块导入结果
func (r *Recorder) ObserveImport(ok bool) {
	r.importsTotal.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

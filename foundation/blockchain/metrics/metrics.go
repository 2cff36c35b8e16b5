// Package metrics declares the prometheus collectors the node exposes. The
// collectors can be used before they are registered, so packages record
// into them freely and the node registers them once at startup.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "chaincore"

// Set of subsystems.
const (
	SubsystemChain   = "chain"
	SubsystemRuntime = "runtime"
	SubsystemMempool = "mempool"
	SubsystemWeb     = "web"
)

// Set of labels.
const (
	LabelChain  = "chain"
	LabelCode   = "code"
	LabelStage  = "stage"
	LabelRoute  = "route"
	LabelStatus = "status"
)

// DefBuckets are the latency buckets in seconds.
var DefBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// chain
var (
	ChainHeightGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemChain,
			Name:      "height",
			Help:      "Height of the last committed block.",
		},
		[]string{LabelChain})
	ChainBlockCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemChain,
			Name:      "blocks_total",
			Help:      "Total number of committed blocks.",
		},
		[]string{LabelChain})
	ChainTxCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemChain,
			Name:      "transactions_total",
			Help:      "Total number of executed transactions by result code.",
		},
		[]string{LabelChain, LabelCode})
	ChainRejectCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemChain,
			Name:      "rejected_blocks_total",
			Help:      "Total number of blocks rejected by ProcessBlock.",
		},
		[]string{LabelChain})
	ChainStageHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemChain,
			Name:      "stage_seconds",
			Help:      "Histogram of block lifecycle stage latency.",
			Buckets:   DefBuckets,
		},
		[]string{LabelChain, LabelStage})
)

// runtime
var (
	RuntimeGasHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRuntime,
			Name:      "gas_used",
			Help:      "Histogram of gas used per transaction.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{LabelChain})
	RuntimeTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRuntime,
			Name:      "tasks_total",
			Help:      "Total number of task runs by outcome.",
		},
		[]string{LabelChain, LabelStatus})
)

// mempool
var (
	MempoolGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemMempool,
			Name:      "pending",
			Help:      "Number of transactions waiting in the mempool.",
		},
		[]string{LabelChain})
)

// web
var (
	WebRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemWeb,
			Name:      "requests_total",
			Help:      "Total number of handled requests.",
		},
		[]string{LabelRoute, LabelStatus})
	WebRequestHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemWeb,
			Name:      "request_seconds",
			Help:      "Histogram of request latency.",
			Buckets:   DefBuckets,
		},
		[]string{LabelRoute})
	WebPanicCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemWeb,
			Name:      "panics_total",
			Help:      "Total number of recovered panics.",
		})
)

var once sync.Once

// Register adds every collector to the registerer. Calls after the first
// do nothing.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(
			ChainHeightGauge,
			ChainBlockCounter,
			ChainTxCounter,
			ChainRejectCounter,
			ChainStageHistogram,
			RuntimeGasHistogram,
			RuntimeTaskCounter,
			MempoolGauge,
			WebRequestCounter,
			WebRequestHistogram,
			WebPanicCounter,
		)
	})
}

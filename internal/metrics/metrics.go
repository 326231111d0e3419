package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// Recorder receives transfer engine outcomes.
type Recorder interface {
	TransactionRecorded(t ledger.Type, s ledger.Status)
	TransactionRejected(t ledger.Type, reason string)
	InternalConsistency(component string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) TransactionRecorded(ledger.Type, ledger.Status) {}
func (Nop) TransactionRejected(ledger.Type, string)        {}
func (Nop) InternalConsistency(string)                     {}

// Prometheus holds the service collectors.
type Prometheus struct {
	registry *prometheus.Registry

	TransactionsTotal    *prometheus.CounterVec
	TransactionsRejected *prometheus.CounterVec
	WalletsProvisioned   prometheus.Counter
	ConsistencyFailures  *prometheus.CounterVec
	RequestsTotal        *prometheus.CounterVec
	RequestLatency       *prometheus.HistogramVec
	WorkerQueueDepth     prometheus.Gauge
}

// New registers all collectors on a private registry.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transactions_total",
				Help: "Transactions appended to the ledger",
			},
			[]string{"type", "status"},
		),
		TransactionsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transactions_rejected_total",
				Help: "Engine operations refused before any mutation",
			},
			[]string{"type", "reason"},
		),
		WalletsProvisioned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_provisioned_total",
				Help: "Wallets created on first access",
			},
		),
		ConsistencyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_internal_consistency_total",
				Help: "Broken invariants detected at runtime",
			},
			[]string{"component"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_requests_latency_seconds",
				Help:    "Latency of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		WorkerQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "worker_queue_depth",
				Help: "Jobs waiting in the async worker pool",
			},
		),
	}
	p.registry.MustRegister(
		p.TransactionsTotal,
		p.TransactionsRejected,
		p.WalletsProvisioned,
		p.ConsistencyFailures,
		p.RequestsTotal,
		p.RequestLatency,
		p.WorkerQueueDepth,
	)
	return p
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) TransactionRecorded(t ledger.Type, s ledger.Status) {
	p.TransactionsTotal.WithLabelValues(string(t), string(s)).Inc()
}

func (p *Prometheus) TransactionRejected(t ledger.Type, reason string) {
	p.TransactionsRejected.WithLabelValues(string(t), reason).Inc()
}

func (p *Prometheus) InternalConsistency(component string) {
	p.ConsistencyFailures.WithLabelValues(component).Inc()
}

// WalletProvisioned implements wallet.ProvisionListener.
func (p *Prometheus) WalletProvisioned(context.Context, wallet.Snapshot) {
	p.WalletsProvisioned.Inc()
}

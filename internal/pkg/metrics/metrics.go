package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "x402gate_quotes_total",
		Help: "The total number of quotes served",
	}, []string{"status"})

	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "x402gate_orders_total",
		Help: "The total number of orders created",
	}, []string{"status", "execution_type"})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "x402gate_settlements_total",
		Help: "The total number of settlement executions",
	}, []string{"status"})

	SettlementSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "x402gate_settlement_steps_total",
		Help: "Settlement steps processed, by protocol kind and outcome",
	}, []string{"kind", "status"})

	PaymentRequired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "x402gate_payment_required_total",
		Help: "Requests rejected with HTTP 402",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "x402gate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

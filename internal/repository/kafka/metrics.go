// internal/repository/kafka/metrics.go
package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/defineus/nakadi/pkg/serviceid"
)

func init() {
	serviceid.Register(SetServiceLabel)
}

var serviceLabel = "unknown"

// SetServiceLabel задаёт имя сервиса для метрик; вызывается один раз
// через serviceid.InitServiceName при старте.
func SetServiceLabel(name string) { serviceLabel = name }

var repoMetrics = struct {
	PublishSuccess    *prometheus.CounterVec
	PublishErrors     *prometheus.CounterVec
	PublishLatency    *prometheus.HistogramVec
	MetadataErrors    *prometheus.CounterVec
	TopicCreateErrors *prometheus.CounterVec
	ScopedClientsOpen *prometheus.GaugeVec
}{
	PublishSuccess: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "publish_success_total",
			Help: "Events acknowledged by the cluster",
		},
		[]string{"service"},
	),
	PublishErrors: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "publish_errors_total",
			Help: "Publish calls that failed or timed out waiting for ack",
		},
		[]string{"service"},
	),
	PublishLatency: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "publish_latency_seconds",
			Help:    "Publish latency up to cluster ack (seconds)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	),
	MetadataErrors: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "metadata_errors_total",
			Help: "Failed partition metadata or offset lookup calls",
		},
		[]string{"service"},
	),
	TopicCreateErrors: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "topic_create_errors_total",
			Help: "Failed administrative create-topic commands",
		},
		[]string{"service"},
	),
	ScopedClientsOpen: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nakadi", Subsystem: "kafka_repository", Name: "scoped_clients_open",
			Help: "Per-call metadata clients currently open; returns to zero when idle",
		},
		[]string{"service"},
	),
}

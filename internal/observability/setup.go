package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

var (
	// Logger is the hot-path processing logger.
	Logger *zap.Logger

	messagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_processed_total",
			Help: "Total number of moderated messages by outcome",
		},
		[]string{"action"},
	)

	toxicMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toxic_messages_total",
			Help: "Total number of messages classified as toxic",
		},
	)

	blocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blocks_total",
			Help: "Total number of block windows opened",
		},
	)

	messageProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "message_processing_duration_seconds",
			Help:    "Time spent processing messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init(ctx context.Context, metricsAddr string) error {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		return err
	}

	prometheus.MustRegister(messagesProcessedTotal)
	prometheus.MustRegister(toxicMessagesTotal)
	prometheus.MustRegister(blocksTotal)
	prometheus.MustRegister(messageProcessingDuration)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

// RecordOutcome counts one processed message by its decided action.
func RecordOutcome(action string) {
	messagesProcessedTotal.WithLabelValues(action).Inc()
}

func RecordToxicMessage() {
	toxicMessagesTotal.Inc()
}

func RecordBlock() {
	blocksTotal.Inc()
}

// StartMessageProcessing returns a function to record message processing duration
func StartMessageProcessing() func(status string) {
	start := prometheus.NewTimer(messageProcessingDuration.WithLabelValues("processing"))
	return func(status string) {
		start.ObserveDuration()
	}
}

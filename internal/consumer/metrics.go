package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commit_push",
		Subsystem: "projection",
		Name:      "messages_processed_total",
		Help:      "Number of change events successfully projected.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commit_push",
		Subsystem: "projection",
		Name:      "handler_errors_total",
		Help:      "Number of projection failures grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commit_push",
		Subsystem: "projection",
		Name:      "decode_errors_total",
		Help:      "Records dropped before routing, labelled by topic and framing problem.",
	}, []string{"topic", "reason"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commit_push",
		Subsystem: "projection",
		Name:      "events_skipped_total",
		Help:      "Events acknowledged without a write, labelled by reason.",
	}, []string{"topic", "event_type", "reason"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "commit_push",
		Subsystem: "projection",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, skippedCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic, reason string) {
	decodeErrorCounter.WithLabelValues(topic, reason).Inc()
}

func recordSkipped(topic, eventType, reason string) {
	skippedCounter.WithLabelValues(topic, eventType, reason).Inc()
}

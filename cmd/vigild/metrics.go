package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("vigild")

var eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigild_stream_messages_received",
	Help: "Total message events received from the upstream stream",
})

var eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigild_stream_events_failed",
	Help: "Total stream events which failed processing",
})

var joinsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigild_stream_joins_received",
	Help: "Total membership-join events received from the upstream stream",
})

var currentSeq = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vigild_stream_current_seq",
	Help: "Most recently observed stream cursor sequence",
})

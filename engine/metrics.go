package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "vigil_event_duration_sec",
	Help: "Total duration of event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_alerts_raised",
	Help: "Number of alerts raised, by severity",
}, []string{"severity"})

var alertsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vigil_alert_failures",
	Help: "Number of alert side-effect failures, by stage",
}, []string{"stage"})

var historyFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_history_write_failures",
	Help: "Number of assessment history records which failed to persist",
})

var schedulerItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_scheduler_items_added",
	Help: "Number of work items enqueued on the author scheduler",
})

var schedulerItemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_scheduler_items_processed",
	Help: "Number of work items completed by the author scheduler",
})

var schedulerWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "vigil_scheduler_workers_active",
	Help: "Number of running scheduler workers",
})

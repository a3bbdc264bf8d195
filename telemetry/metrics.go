package telemetry

// Histogram bucket definitions
var (
	// StatementBuckets for remote DDL execution (network round trip + query planning)
	StatementBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

	// ReconnectBuckets for reconnect attempt counts per job
	ReconnectBuckets = []float64{1, 2, 3, 5, 10, 25, 50, 100}
)

// Event Intake Metrics
var (
	// EventsTotal counts catalog events by kind (create_table, drop_table,
	// add_partition, drop_partition) and verdict (queued, filtered)
	EventsTotal CounterVec = noopCounterVec{}

	// QueueDepth tracks the number of statements waiting for the worker
	QueueDepth Gauge = NoopStat{}
)

// Replication Metrics
var (
	// JobsTotal counts processed jobs by result (success, failed)
	JobsTotal CounterVec = noopCounterVec{}

	// StatementsTotal counts remote statement executions by result (success, error)
	StatementsTotal CounterVec = noopCounterVec{}

	// StatementDurationSeconds measures remote statement latency by result
	StatementDurationSeconds HistogramVec = noopHistogramVec{}

	// ReconnectsTotal counts reconnect attempts against the remote endpoint
	ReconnectsTotal Counter = NoopStat{}

	// ReconnectsPerJob measures how many reconnects a job needed before completing
	ReconnectsPerJob Histogram = NoopStat{}

	// CorrectionsTotal counts corrective statements by kind (drop_existing, create_database)
	CorrectionsTotal CounterVec = noopCounterVec{}
)

// Notification Metrics
var (
	// NotificationsTotal counts outcome notifications by result (success, failure)
	NotificationsTotal CounterVec = noopCounterVec{}

	// NotifyErrorsTotal counts notification deliveries that themselves failed
	NotifyErrorsTotal Counter = NoopStat{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	EventsTotal = NewCounterVec(
		"events_total",
		"Catalog events received by kind and verdict",
		[]string{"kind", "verdict"},
	)
	QueueDepth = NewGauge(
		"queue_depth",
		"Statements waiting for the replication worker",
	)

	JobsTotal = NewCounterVec(
		"jobs_total",
		"Replication jobs processed by result",
		[]string{"result"},
	)
	StatementsTotal = NewCounterVec(
		"statements_total",
		"Remote statement executions by result",
		[]string{"result"},
	)
	StatementDurationSeconds = NewHistogramVec(
		"statement_duration_seconds",
		"Remote statement execution latency",
		[]string{"result"},
		StatementBuckets,
	)
	ReconnectsTotal = NewCounter(
		"reconnects_total",
		"Reconnect attempts against the remote endpoint",
	)
	ReconnectsPerJob = NewHistogramWithBuckets(
		"reconnects_per_job",
		"Reconnects needed before a job completed",
		ReconnectBuckets,
	)
	CorrectionsTotal = NewCounterVec(
		"corrections_total",
		"Corrective statements issued by kind",
		[]string{"kind"},
	)

	NotificationsTotal = NewCounterVec(
		"notifications_total",
		"Outcome notifications by result",
		[]string{"result"},
	)
	NotifyErrorsTotal = NewCounter(
		"notify_errors_total",
		"Notification deliveries that failed",
	)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_webhook_updates_total",
		Help: "The total number of webhook updates by channel and classified event type",
	}, []string{"channel", "type"})

	WebhookRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_webhook_rejected_total",
		Help: "The total number of rejected webhook calls by reason",
	}, []string{"reason"})

	DuplicateRawMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpi_raw_messages_duplicate_total",
		Help: "Raw messages skipped because (chat_id, msg_id) was already stored",
	})

	DuplicateEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_events_duplicate_total",
		Help: "Events skipped because (correlation_id, type) was already stored",
	}, []string{"type"})

	PendingIdentities = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpi_identities_pending_created_total",
		Help: "Pending identities created for unresolved actors",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpi_ingest_duration_seconds",
		Help:    "Duration of one webhook ingestion",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	UnresolvedThreads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_unresolved_threads_total",
		Help: "Threads excluded from averages because the reply chain could not be walked",
	}, []string{"channel", "report"})

	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kpi_report_duration_seconds",
		Help:    "Duration of KPI aggregation by report kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	DispatchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_dispatch_results_total",
		Help: "Report dispatch outcomes by channel, kind and status",
	}, []string{"channel", "kind", "status"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kpi_job_duration_seconds",
		Help:    "Duration of scheduled jobs",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"job"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_job_runs_total",
		Help: "Scheduled job runs by job and status",
	}, []string{"job", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

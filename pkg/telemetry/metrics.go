package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── API ─────────────────────────────────────────────────────────────────────

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests, labelled by route pattern and status code.",
	}, []string{"route", "code"})

	// ─── Sections ────────────────────────────────────────────────────────────────

	SectionMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "sections",
		Name:      "mutations_total",
		Help:      "Committed section model mutations, labelled by operation.",
	}, []string{"op"})

	// ─── Tracker ─────────────────────────────────────────────────────────────────

	TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "tasks_created_total",
		Help:      "Total optimization tasks created.",
	})

	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "transitions_total",
		Help:      "Task status transitions, labelled by target status.",
	}, []string{"status"})

	TasksPolling = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "tasks_polling",
		Help:      "Tasks with an active status poller.",
	})

	PollAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "poll_attempts_total",
		Help:      "Remote status checks, labelled by outcome.",
	}, []string{"outcome"})

	OptimizationFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "optimization_fallbacks_total",
		Help:      "Optimization sub-calls that failed and fell back to the original section.",
	}, []string{"section"})

	OptimizationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "optimization_duration_seconds",
		Help:      "Time from the start of an optimization run to its completion.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	TasksCleanedUp = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "tracker",
		Name:      "tasks_cleaned_up_total",
		Help:      "Completed tasks removed by the age-based cleanup sweep.",
	})

	// ─── Notifier ────────────────────────────────────────────────────────────────

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "notifier",
		Name:      "sent_total",
		Help:      "Notifications delivered, labelled by sink and result.",
	}, []string{"sink", "result"})

	NotificationsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "notifier",
		Name:      "rate_limited_total",
		Help:      "Task events dropped by the per-job rate limiter.",
	})

	NotificationsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "resumeflow",
		Subsystem: "notifier",
		Name:      "dlq_total",
		Help:      "Task events sent to the dead-letter topic after every sink failed.",
	})
)

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BillsCalculatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billmanager_bills_calculated_total",
			Help: "Total number of bills calculated per category",
		},
		[]string{"category"},
	)

	CalculationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billmanager_calculation_duration_seconds",
			Help:    "Bill calculation duration in seconds per category",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billmanager_request_errors_total",
			Help: "Total number of error responses per path and code",
		},
		[]string{"path", "code"},
	)

	InputDefaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billmanager_input_defaults_total",
			Help: "Soft input conditions that were silently defaulted, by kind",
		},
		[]string{"kind"},
	)
)

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billmanager_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billmanager_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billmanager_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}

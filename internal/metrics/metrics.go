package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors of the radar service.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	RadarDuration prometheus.Histogram
	RadarRequests *prometheus.CounterVec

	DigestRuns     *prometheus.CounterVec
	DigestSent     prometheus.Counter
	DigestSkipped  *prometheus.CounterVec
	DigestFailures prometheus.Counter

	IngestItems *prometheus.CounterVec

	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewRegistry creates and registers every collector
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RadarDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "radar_rank_duration_seconds",
				Help:    "Duration of radar ranking in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),

		RadarRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_rank_total",
				Help: "Radar rankings by outcome",
			},
			[]string{"result"},
		),

		DigestRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_digest_runs_total",
				Help: "Digest job runs by result",
			},
			[]string{"result"},
		),

		DigestSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radar_digest_sent_total",
				Help: "Organizations that received a digest",
			},
		),

		DigestSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_digest_skipped_total",
				Help: "Organizations skipped by the digest job by reason",
			},
			[]string{"reason"},
		),

		DigestFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "radar_digest_org_failures_total",
				Help: "Organizations whose digest failed",
			},
		),

		IngestItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_ingest_items_total",
				Help: "RSS items processed by outcome",
			},
			[]string{"outcome"},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radar_job_runs_total",
				Help: "Scheduled job executions by job and status",
			},
			[]string{"job", "status"},
		),

		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radar_job_duration_seconds",
				Help:    "Scheduled job duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"job"},
		),
	}

	r.reg.MustRegister(
		r.RadarDuration,
		r.RadarRequests,
		r.DigestRuns,
		r.DigestSent,
		r.DigestSkipped,
		r.DigestFailures,
		r.IngestItems,
		r.JobRuns,
		r.JobDuration,
	)

	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRadar records one ranking
func (r *Registry) ObserveRadar(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.RadarDuration.Observe(d.Seconds())
	r.RadarRequests.WithLabelValues(result(err)).Inc()
}

// DigestRun records a finished digest run
func (r *Registry) DigestRun(sent, failures int, err error) {
	if r == nil {
		return
	}
	r.DigestRuns.WithLabelValues(result(err)).Inc()
	r.DigestSent.Add(float64(sent))
	r.DigestFailures.Add(float64(failures))
}

// DigestSkip records an organization skipped for reason
func (r *Registry) DigestSkip(reason string) {
	if r == nil {
		return
	}
	r.DigestSkipped.WithLabelValues(reason).Inc()
}

// IngestItem records one RSS item outcome (inserted, duplicate, error) or a
// feed level failure (feed_error)
func (r *Registry) IngestItem(outcome string) {
	if r == nil {
		return
	}
	r.IngestItems.WithLabelValues(outcome).Inc()
}

// JobRun records a scheduler execution
func (r *Registry) JobRun(job string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.JobRuns.WithLabelValues(job, result(err)).Inc()
	r.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

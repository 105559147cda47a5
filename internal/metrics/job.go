package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Jobs records runs of background jobs.
type Jobs struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewJobs registers the background job collectors on reg.
func NewJobs(reg prometheus.Registerer) *Jobs {
	if reg == nil {
		return &Jobs{}
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of background jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Background job runs by result.",
	}, []string{"job", "result"})

	reg.MustRegister(duration, runs)

	return &Jobs{duration: duration, runs: runs}
}

// Observe records one run of job.
func (j *Jobs) Observe(job string, d time.Duration, err error) {
	if j == nil || j.runs == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.duration.WithLabelValues(label(job)).Observe(d.Seconds())
	j.runs.WithLabelValues(label(job), result).Inc()
}

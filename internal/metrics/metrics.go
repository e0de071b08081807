package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backupmgr/internal/backup"
	"backupmgr/internal/executor"
)

const namespace = "backupmgr"

// Recorder exports run outcomes as Prometheus metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	outcomes      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	pruned        prometheus.Counter
	pruneFailures prometheus.Counter
	lastRun       prometheus.Gauge
	lastRunFailed prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Backup job outcomes by kind and status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of backup jobs that ran.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}, []string{"kind"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_entries_total",
			Help:      "Old backups removed by retention.",
		}),
		pruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_failures_total",
			Help:      "Old backups retention failed to remove.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastRunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_failed_jobs",
			Help:      "Jobs that failed in the last run.",
		}),
	}

	r.registry.MustRegister(r.outcomes, r.duration, r.pruned, r.pruneFailures, r.lastRun, r.lastRunFailed)
	return r
}

func (r *Recorder) Record(o backup.Outcome) {
	kind := o.Kind.String()
	r.outcomes.WithLabelValues(kind, o.Status.String()).Inc()
	if o.Status != backup.StatusSkipped {
		r.duration.WithLabelValues(kind).Observe(o.Duration.Seconds())
	}
	r.pruned.Add(float64(o.Pruned))
	r.pruneFailures.Add(float64(len(o.PruneErrors)))
}

func (r *Recorder) RunFinished(rep *executor.Report) {
	r.lastRun.Set(float64(rep.FinishedAt.Unix()))
	r.lastRunFailed.Set(float64(len(rep.Failed())))
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

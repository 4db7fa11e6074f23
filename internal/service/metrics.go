package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"auditexport/internal/model"
)

// ExportMetrics records export job outcomes. A nil *ExportMetrics is valid and
// records nothing.
type ExportMetrics struct {
	jobs         *prometheus.CounterVec
	duration     prometheus.Histogram
	archiveBytes prometheus.Histogram
}

// NewExportMetrics creates the collectors and registers them on reg.
func NewExportMetrics(reg prometheus.Registerer) (*ExportMetrics, error) {
	m := &ExportMetrics{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "export_jobs_total",
				Help: "Export jobs by the status they entered.",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "export_generation_seconds",
			Help:    "Wall time of archive generation, successful or not.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		archiveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "export_archive_bytes",
			Help:    "Size of finished archives.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
		}),
	}
	for _, c := range []prometheus.Collector{m.jobs, m.duration, m.archiveBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ExportMetrics) status(s model.ExportStatus) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(string(s)).Inc()
}

func (m *ExportMetrics) generated(elapsed time.Duration, size int64) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if size > 0 {
		m.archiveBytes.Observe(float64(size))
	}
}

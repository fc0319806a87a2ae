// Package exporter records statistics about a generation run in a
// prometheus registry, which can be dumped in the text exposition format.
package exporter

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/chain"
	"github.com/IPA-CyberLab/ekumatrix/consts"
	"github.com/IPA-CyberLab/ekumatrix/oracle"
	"github.com/IPA-CyberLab/ekumatrix/purpose"
	"github.com/IPA-CyberLab/ekumatrix/storage/issuedb"
)

const (
	promSubsystemDB       = "issuedb"
	promSubsystemGenerate = "generate"
)

type collector struct {
	db     *issuedb.IssueDB
	logger *zap.Logger

	entriesTotalDesc *prometheus.Desc
}

func NewCollector(db *issuedb.IssueDB, logger *zap.Logger) prometheus.Collector {
	return &collector{
		db:     db,
		logger: logger,

		entriesTotalDesc: prometheus.NewDesc(
			prometheus.BuildFQName(
				consts.PrometheusNamespace,
				promSubsystemDB,
				"entries_total",
			),
			"Number of serial numbers in the run's issue db with the status",
			[]string{"status"},
			nil,
		),
	}
}

var _ = prometheus.Collector(&collector{})

// Describe returns all descriptions of the collector.
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entriesTotalDesc
}

// Collect returns the current state of all metrics of the collector.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	m := make(map[issuedb.State]int)
	for _, e := range c.db.Entries() {
		m[e.State]++
	}
	for state := issuedb.State(0); state < issuedb.MaxState+1; state++ {
		count := m[state]
		ch <- prometheus.MustNewConstMetric(c.entriesTotalDesc, prometheus.GaugeValue, float64(count), state.String())
	}
}

// Stats is the set of metrics the emitter updates while it runs.
type Stats struct {
	Registry *prometheus.Registry

	vectors      *prometheus.CounterVec
	certificates *prometheus.CounterVec
	issueSeconds *prometheus.HistogramVec

	logger *zap.Logger
}

func NewStats(db *issuedb.IssueDB, logger *zap.Logger) *Stats {
	s := &Stats{
		Registry: prometheus.NewRegistry(),

		vectors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.PrometheusNamespace,
			Subsystem: promSubsystemGenerate,
			Name:      "vectors_total",
			Help:      "Number of assertion lines written, by purpose and expected outcome",
		}, []string{"purpose", "outcome"}),
		certificates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: consts.PrometheusNamespace,
			Subsystem: promSubsystemGenerate,
			Name:      "certificates_issued_total",
			Help:      "Number of certificates issued, by chain role",
		}, []string{"role"}),
		issueSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: consts.PrometheusNamespace,
			Subsystem: promSubsystemGenerate,
			Name:      "issue_duration_seconds",
			Help:      "Time spent issuing a single certificate",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"role"}),

		logger: logger,
	}

	s.Registry.MustRegister(s.vectors, s.certificates, s.issueSeconds)
	if db != nil {
		s.Registry.MustRegister(NewCollector(db, logger))
	}
	return s
}

func (s *Stats) ObserveVector(p purpose.Purpose, o oracle.Outcome) {
	s.vectors.WithLabelValues(p.String(), o.String()).Inc()
}

func (s *Stats) ObserveIssue(r chain.Role, took time.Duration) {
	s.certificates.WithLabelValues(r.String()).Inc()
	s.issueSeconds.WithLabelValues(r.String()).Observe(took.Seconds())
}

// WriteTextfile atomically writes the registry to path, in the format the
// node_exporter textfile collector reads.
func (s *Stats) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.Registry); err != nil {
		return fmt.Errorf("Failed to write metrics to %q: %w", path, err)
	}
	s.logger.Sugar().Infow("Wrote generation metrics.", "path", path)
	return nil
}

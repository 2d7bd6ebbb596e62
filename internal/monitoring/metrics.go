// Package monitoring keeps the bot's counters. Each counter is exported to
// Prometheus and mirrored in an atomic snapshot served as JSON.
package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Cycles         int64     `json:"cycles"`
	CycleErrors    int64     `json:"cycle_errors"`
	ItemsScanned   int64     `json:"items_scanned"`
	ItemsAdmitted  int64     `json:"items_admitted"`
	RepliesPosted  int64     `json:"replies_posted"`
	Duplicates     int64     `json:"duplicates"`
	Retries        int64     `json:"failures_retry"`
	Abandoned      int64     `json:"failures_abandon"`
	SelfDeleted    int64     `json:"self_deleted"`
	Expired        int64     `json:"own_posts_expired"`
	Vanished       int64     `json:"own_posts_vanished"`
	TrackedPosts   int64     `json:"tracked_own_posts"`
	LastCycleEnded time.Time `json:"last_cycle_ended"`
}

// Metrics records bot activity.
type Metrics struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	cycleErrors   prometheus.Counter
	cycleDuration prometheus.Histogram
	items         *prometheus.CounterVec
	replies       prometheus.Counter
	duplicates    prometheus.Counter
	failures      *prometheus.CounterVec
	sweep         *prometheus.CounterVec
	tracked       prometheus.Gauge

	n struct {
		cycles, cycleErrors, scanned, admitted, replies, duplicates atomic.Int64
		retries, abandoned, deleted, expired, vanished, tracked     atomic.Int64
		lastCycle                                                   atomic.Int64
	}
}

// NewMetrics registers the bot metrics on a fresh registry under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "cycles_total",
		Help: "Poll cycles completed.",
	})
	m.cycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "cycle_errors_total",
		Help: "Cycles aborted by a transport fault.",
	})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "cycle_duration_seconds",
		Help:    "Wall time of one poll cycle.",
		Buckets: prometheus.DefBuckets,
	})
	m.items = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "items_total",
		Help: "Fetched items by filter verdict.",
	}, []string{"verdict"})
	m.replies = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "replies_posted_total",
		Help: "Profile replies posted.",
	})
	m.duplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "duplicates_total",
		Help: "Matches skipped because the profile was already posted in the discussion.",
	})
	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "failures_total",
		Help: "Reply failures by decision.",
	}, []string{"decision"})
	m.sweep = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "own_posts_removed_total",
		Help: "Own replies dropped from tracking, by reason.",
	}, []string{"reason"})
	m.tracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "own_posts_tracked",
		Help: "Own replies currently watched for score.",
	})

	m.registry.MustRegister(m.cycles, m.cycleErrors, m.cycleDuration, m.items,
		m.replies, m.duplicates, m.failures, m.sweep, m.tracked)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ItemFiltered counts one fetched item under its verdict name.
func (m *Metrics) ItemFiltered(verdict string, admitted bool) {
	m.items.WithLabelValues(verdict).Inc()
	m.n.scanned.Add(1)
	if admitted {
		m.n.admitted.Add(1)
	}
}

func (m *Metrics) ReplyPosted() {
	m.replies.Inc()
	m.n.replies.Add(1)
}

func (m *Metrics) Duplicate() {
	m.duplicates.Inc()
	m.n.duplicates.Add(1)
}

// Failure counts a failure with its decision ("retry" or "abandon").
func (m *Metrics) Failure(decision string) {
	m.failures.WithLabelValues(decision).Inc()
	if decision == "abandon" {
		m.n.abandoned.Add(1)
	} else {
		m.n.retries.Add(1)
	}
}

// Swept records the outcome of one self-post sweep.
func (m *Metrics) Swept(deleted, expired, vanished int) {
	m.sweep.WithLabelValues("deleted").Add(float64(deleted))
	m.sweep.WithLabelValues("expired").Add(float64(expired))
	m.sweep.WithLabelValues("vanished").Add(float64(vanished))
	m.n.deleted.Add(int64(deleted))
	m.n.expired.Add(int64(expired))
	m.n.vanished.Add(int64(vanished))
}

func (m *Metrics) SetTracked(n int) {
	m.tracked.Set(float64(n))
	m.n.tracked.Store(int64(n))
}

// CycleDone records a finished cycle. A non-nil err counts as a fault.
func (m *Metrics) CycleDone(took time.Duration, err error) {
	m.cycleDuration.Observe(took.Seconds())
	if err != nil {
		m.cycleErrors.Inc()
		m.n.cycleErrors.Add(1)
		return
	}
	m.cycles.Inc()
	m.n.cycles.Add(1)
	m.n.lastCycle.Store(time.Now().UnixNano())
}

// Snapshot reads every counter. Safe from any goroutine.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Cycles:        m.n.cycles.Load(),
		CycleErrors:   m.n.cycleErrors.Load(),
		ItemsScanned:  m.n.scanned.Load(),
		ItemsAdmitted: m.n.admitted.Load(),
		RepliesPosted: m.n.replies.Load(),
		Duplicates:    m.n.duplicates.Load(),
		Retries:       m.n.retries.Load(),
		Abandoned:     m.n.abandoned.Load(),
		SelfDeleted:   m.n.deleted.Load(),
		Expired:       m.n.expired.Load(),
		Vanished:      m.n.vanished.Load(),
		TrackedPosts:  m.n.tracked.Load(),
	}
	if ns := m.n.lastCycle.Load(); ns != 0 {
		s.LastCycleEnded = time.Unix(0, ns).UTC()
	}
	return s
}

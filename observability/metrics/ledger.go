package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks instruction execution and emitted program events.
type LedgerMetrics struct {
	instructions *prometheus.CounterVec
	events       *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	tokensMoved  *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide metrics registered with the default
// Prometheus registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = NewLedgerMetrics(prometheus.DefaultRegisterer)
	})
	return ledgerRegistry
}

// NewLedgerMetrics builds and registers a metrics set on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeledger",
			Subsystem: "runtime",
			Name:      "instructions_total",
			Help:      "Executed instructions segmented by program, instruction and outcome.",
		}, []string{"program", "instruction", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeledger",
			Subsystem: "runtime",
			Name:      "events_total",
			Help:      "Committed program events segmented by type.",
		}, []string{"type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stakeledger",
			Subsystem: "runtime",
			Name:      "execute_duration_seconds",
			Help:      "Latency of atomic instruction batches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		tokensMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakeledger",
			Subsystem: "runtime",
			Name:      "event_amount_total",
			Help:      "Sum of the amount attribute of committed events segmented by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.instructions, m.events, m.latency, m.tokensMoved)
	}
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveInstruction records the outcome of one instruction.
func (m *LedgerMetrics) ObserveInstruction(program, instruction string, err error) {
	if m == nil {
		return
	}
	m.instructions.WithLabelValues(normalize(program), normalize(instruction), outcome(err)).Inc()
}

// ObserveExecute records the latency of an atomic batch.
func (m *LedgerMetrics) ObserveExecute(start time.Time, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}

// ObserveEvent records a committed event and, when present, its amount.
func (m *LedgerMetrics) ObserveEvent(kind string, amount uint64) {
	if m == nil {
		return
	}
	kind = normalize(kind)
	m.events.WithLabelValues(kind).Inc()
	if amount > 0 {
		m.tokensMoved.WithLabelValues(kind).Add(float64(amount))
	}
}

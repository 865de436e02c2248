// Package stats keeps rolling latency aggregates for pipeline stages.
package stats

import (
	"slices"
	"sync"
	"time"
)

// DefaultWindow is how long samples are kept when no window is given.
const DefaultWindow = time.Hour

// maxSamples bounds memory when a stage is hit very frequently.
const maxSamples = 4096

type sample struct {
	at time.Time
	ms int64
}

// Snapshot is a point-in-time aggregate of the samples in the window.
type Snapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Latency tracks durations recorded within a rolling window. Safe for
// concurrent use.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewLatency(window time.Duration) *Latency {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Latency{
		samples: make([]sample, 0, 64),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one duration. Negative durations count as zero.
func (l *Latency) Record(d time.Duration) {
	ms := max(d.Milliseconds(), 0)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	if len(l.samples) >= maxSamples {
		l.samples = slices.Delete(l.samples, 0, len(l.samples)-maxSamples+1)
	}
	l.samples = append(l.samples, sample{at: now, ms: ms})
}

// Since records the time elapsed from start.
func (l *Latency) Since(start time.Time) {
	l.Record(l.now().Sub(start))
}

func (l *Latency) Snapshot() Snapshot {
	now := l.now()

	l.mu.Lock()
	l.pruneLocked(now)
	values := make([]int64, len(l.samples))
	for i, s := range l.samples {
		values[i] = s.ms
	}
	l.mu.Unlock()

	if len(values) == 0 {
		return Snapshot{}
	}
	slices.Sort(values)

	var sum int64
	for _, v := range values {
		sum += v
	}
	return Snapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

func (l *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	l.samples = slices.DeleteFunc(l.samples, func(s sample) bool {
		return s.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	a, b := float64(sorted[lo]), float64(sorted[lo+1])
	return a + (b-a)*frac
}

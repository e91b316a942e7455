// Package monitoring collects in-process counters for source health,
// circuit activity, cache effectiveness, and cascade phase wins.
package monitoring

import (
	"sync"
	"time"
)

// SourceStats counts outcomes for one listing source.
type SourceStats struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// CircuitTransition records one breaker state change.
type CircuitTransition struct {
	Source string    `json:"source"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	At     time.Time `json:"at"`
}

// Snapshot is a point-in-time JSON-ready view of all counters.
type Snapshot struct {
	Sources      map[string]SourceStats `json:"sources"`
	Transitions  []CircuitTransition    `json:"circuit_transitions"`
	CacheHits    int                    `json:"cache_hits"`
	CacheMisses  int                    `json:"cache_misses"`
	CacheHitRate float64                `json:"cache_hit_rate"`
	PhaseWins    map[string]int         `json:"phase_wins"`
	EmailsFound  int                    `json:"emails_found"`
	EmailsMissed int                    `json:"emails_missed"`
}

// Metrics is a mutex-guarded counter set. All methods are safe on a nil
// receiver so instrumentation can be unconditional.
type Metrics struct {
	mu          sync.Mutex
	sources     map[string]SourceStats
	transitions []CircuitTransition
	cacheHits   int
	cacheMisses int
	phaseWins   map[string]int
	missed      int
	nowFunc     func() time.Time
}

// New creates an empty Metrics collector.
func New() *Metrics {
	return &Metrics{
		sources:   make(map[string]SourceStats),
		phaseWins: make(map[string]int),
		nowFunc:   time.Now,
	}
}

// SourceAttempt counts one call to a listing source.
func (m *Metrics) SourceAttempt(source string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sources[source]
	s.Attempts++
	m.sources[source] = s
}

// SourceSuccess counts one successful source call.
func (m *Metrics) SourceSuccess(source string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sources[source]
	s.Successes++
	m.sources[source] = s
}

// SourceFailure counts one failed source call.
func (m *Metrics) SourceFailure(source string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sources[source]
	s.Failures++
	m.sources[source] = s
}

// CircuitTransition records a breaker state change.
func (m *Metrics) CircuitTransition(source, from, to string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, CircuitTransition{
		Source: source, From: from, To: to, At: m.nowFunc(),
	})
}

// CacheHit counts one email-cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// CacheMiss counts one email-cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheMisses++
}

// PhaseWin records which cascade phase produced an accepted email.
func (m *Metrics) PhaseWin(phase string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phaseWins[phase]++
}

// EmailMissed counts a business the full cascade could not resolve.
func (m *Metrics) EmailMissed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missed++
}

// Snapshot copies the counters for serialization.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Sources: map[string]SourceStats{}, PhaseWins: map[string]int{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Sources:     make(map[string]SourceStats, len(m.sources)),
		Transitions: append([]CircuitTransition(nil), m.transitions...),
		CacheHits:   m.cacheHits,
		CacheMisses: m.cacheMisses,
		PhaseWins:   make(map[string]int, len(m.phaseWins)),
	}
	for k, v := range m.sources {
		snap.Sources[k] = v
	}
	found := 0
	for k, v := range m.phaseWins {
		snap.PhaseWins[k] = v
		found += v
	}
	snap.EmailsFound = found
	snap.EmailsMissed = m.missed

	if total := m.cacheHits + m.cacheMisses; total > 0 {
		snap.CacheHitRate = float64(m.cacheHits) / float64(total)
	}
	return snap
}

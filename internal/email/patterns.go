package email

import (
	"strings"
	"sync"
)

// Pattern is a (first,last) → local-part transform, e.g. "first.last".
type Pattern string

const (
	PatternFirstDotLast Pattern = "first.last"
	PatternFirstLast    Pattern = "firstlast"
	PatternFLast        Pattern = "flast"
	PatternFDotLast     Pattern = "f.last"
	PatternFirst        Pattern = "first"
	PatternFirstL       Pattern = "firstl"
	PatternLastDotFirst Pattern = "last.first"
	PatternLast         Pattern = "last"
)

// allPatterns is the permutation order tried when no pattern has been
// learned for a domain, most common convention first.
var allPatterns = []Pattern{
	PatternFirstDotLast,
	PatternFLast,
	PatternFirst,
	PatternFirstLast,
	PatternFDotLast,
	PatternFirstL,
	PatternLastDotFirst,
	PatternLast,
}

// Apply renders the pattern for a name. Empty when the pattern needs a
// name part that is missing.
func (p Pattern) Apply(first, last string) string {
	first = strings.ToLower(strings.TrimSpace(first))
	last = strings.ToLower(strings.TrimSpace(last))
	if first == "" {
		return ""
	}

	switch p {
	case PatternFirst:
		return first
	case PatternFirstL:
		if last == "" {
			return ""
		}
		return first + last[:1]
	}

	if last == "" {
		return ""
	}
	switch p {
	case PatternFirstDotLast:
		return first + "." + last
	case PatternFirstLast:
		return first + last
	case PatternFLast:
		return first[:1] + last
	case PatternFDotLast:
		return first[:1] + "." + last
	case PatternLastDotFirst:
		return last + "." + first
	case PatternLast:
		return last
	}
	return ""
}

// InferPattern reverse-matches a confirmed local-part against the known
// transforms so the convention can be recorded for the domain.
func InferPattern(local, first, last string) (Pattern, bool) {
	local = strings.ToLower(strings.TrimSpace(local))
	for _, p := range allPatterns {
		if p.Apply(first, last) == local {
			return p, true
		}
	}
	return "", false
}

// PatternStore records the confirmed email convention per domain.
// Injected rather than ambient so jobs can isolate their learning.
type PatternStore interface {
	Get(domain string) (Pattern, bool)
	Put(domain string, p Pattern)
}

// MemoryPatternStore is the default in-process PatternStore.
type MemoryPatternStore struct {
	mu       sync.RWMutex
	patterns map[string]Pattern
}

// NewMemoryPatternStore creates an empty store.
func NewMemoryPatternStore() *MemoryPatternStore {
	return &MemoryPatternStore{patterns: make(map[string]Pattern)}
}

func (s *MemoryPatternStore) Get(domain string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[strings.ToLower(domain)]
	return p, ok
}

func (s *MemoryPatternStore) Put(domain string, p Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[strings.ToLower(domain)] = p
}

// orderedPatterns returns the try order for a domain: the learned
// pattern first when one exists, then the rest.
func orderedPatterns(store PatternStore, domain string) ([]Pattern, Pattern) {
	learned, ok := store.Get(domain)
	if !ok {
		return allPatterns, ""
	}
	out := []Pattern{learned}
	for _, p := range allPatterns {
		if p != learned {
			out = append(out, p)
		}
	}
	return out, learned
}

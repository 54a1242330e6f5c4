package gtype

import "sync"

// Quark is a process-wide interned string identifier. Zero is no quark.
type Quark uint32

var quarks = struct {
	byName  map[string]Quark
	strings []string
	mu      sync.RWMutex
}{
	byName:  make(map[string]Quark),
	strings: []string{""},
}

// QuarkFromString interns s and returns its quark.
func QuarkFromString(s string) Quark {
	if s == "" {
		return 0
	}
	if q := QuarkTryString(s); q != 0 {
		return q
	}

	quarks.mu.Lock()
	defer quarks.mu.Unlock()
	if q, ok := quarks.byName[s]; ok {
		return q
	}
	q := Quark(len(quarks.strings))
	quarks.strings = append(quarks.strings, s)
	quarks.byName[s] = q
	return q
}

// QuarkTryString returns the quark for s without interning it.
func QuarkTryString(s string) Quark {
	quarks.mu.RLock()
	defer quarks.mu.RUnlock()
	return quarks.byName[s]
}

// String returns the interned string, or "" for unknown quarks.
func (q Quark) String() string {
	quarks.mu.RLock()
	defer quarks.mu.RUnlock()
	if int(q) < len(quarks.strings) {
		return quarks.strings[q]
	}
	return ""
}

package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ForeignError is a failure reported by a foreign callable through its
// error out-parameter. Domain and Code are preserved verbatim.
type ForeignError struct {
	Domain  string
	Message string
	Code    int32
}

func (e *ForeignError) Error() string {
	if e.Domain == "" {
		return fmt.Sprintf("foreign error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s error %d: %s", e.Domain, e.Code, e.Message)
}

// Matches reports whether the error carries the given domain and code
func (e *ForeignError) Matches(domain string, code int32) bool {
	return e.Domain == domain && e.Code == code
}

// Is matches any *ForeignError target with the same domain and code.
// A target with an empty domain matches every foreign error.
func (e *ForeignError) Is(target error) bool {
	t, ok := target.(*ForeignError)
	if !ok {
		return false
	}
	if t.Domain == "" {
		return true
	}
	return e.Matches(t.Domain, t.Code)
}

// MissingSymbol is a single callable whose symbol no library provides
type MissingSymbol struct {
	Namespace string // e.g., "GLib-2.0"
	Symbol    string // e.g., "g_strdup"
}

// MissingSymbolsError is returned when a namespace is checked against the
// loaded libraries and some of its callables cannot be resolved
type MissingSymbolsError struct {
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error from a list of "namespace#symbol" strings
func NewMissingSymbolsError(symbols []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Symbols: make([]MissingSymbol, 0, len(symbols)),
	}
	for _, s := range symbols {
		ns, sym := parseSymbolKey(s)
		result.Symbols = append(result.Symbols, MissingSymbol{
			Namespace: ns,
			Symbol:    sym,
		})
	}
	return result
}

func parseSymbolKey(key string) (namespace, symbol string) {
	ns, sym, found := strings.Cut(key, "#")
	if found {
		return ns, sym
	}
	return "", key
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[invoke] symbol_not_found: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d symbol(s):\n", len(e.Symbols)))

	// Group by namespace for cleaner output
	byNS := make(map[string][]string)
	var nsOrder []string
	for _, s := range e.Symbols {
		if _, exists := byNS[s.Namespace]; !exists {
			nsOrder = append(nsOrder, s.Namespace)
		}
		byNS[s.Namespace] = append(byNS[s.Namespace], s.Symbol)
	}

	for _, ns := range nsOrder {
		syms := byNS[ns]
		sort.Strings(syms)
		b.WriteString("\n  ")
		if ns == "" {
			b.WriteString("(no namespace)")
		} else {
			b.WriteString(ns)
		}
		b.WriteString(":\n")
		for _, sym := range syms {
			b.WriteString("    - ")
			b.WriteString(sym)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}

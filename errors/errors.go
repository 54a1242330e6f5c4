package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad   Phase = "load"   // namespace and typelib loading
	PhaseLookup Phase = "lookup" // repository and info queries
	PhaseDecode Phase = "decode" // typelib blob decoding
	PhaseEncode Phase = "encode" // typelib blob encoding
	PhaseParse  Phase = "parse"  // typelib source parsing
	PhaseField  Phase = "field"  // raw field access
	PhaseInvoke Phase = "invoke" // foreign calls
	PhaseType   Phase = "type"   // runtime type registry
	PhaseMemory Phase = "memory" // foreign memory access
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindLoadFailure            Kind = "load_failure"
	KindInvocationFailure      Kind = "invocation_failure"
	KindArgumentMismatch       Kind = "argument_mismatch"
	KindSymbolNotFound         Kind = "symbol_not_found"
	KindNotImplemented         Kind = "not_implemented"
	KindUnsupportedFieldAccess Kind = "unsupported_field_access"
	KindContractViolation      Kind = "contract_violation"
	KindTypeMismatch           Kind = "type_mismatch"
	KindOutOfBounds            Kind = "out_of_bounds"
	KindInvalidData            Kind = "invalid_data"
	KindInvalidInput           Kind = "invalid_input"
	KindInvalidUTF8            Kind = "invalid_utf8"
	KindAllocation             Kind = "allocation"
	KindNilPointer             Kind = "nil_pointer"
	KindUnsupported            Kind = "unsupported"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Info   string // "Namespace.Name" of the info the error concerns
	Symbol string // foreign symbol, when one is involved
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Info != "" || e.Symbol != "" {
		b.WriteString(": ")
		if e.Info != "" && e.Symbol != "" {
			b.WriteString(e.Info)
			b.WriteString(" (symbol ")
			b.WriteString(e.Symbol)
			b.WriteByte(')')
		} else if e.Info != "" {
			b.WriteString(e.Info)
		} else {
			b.WriteString("symbol ")
			b.WriteString(e.Symbol)
		}
	}

	if e.Detail != "" {
		if e.Info != "" || e.Symbol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Info sets the qualified name of the info involved
func (b *Builder) Info(name string) *Builder {
	b.err.Info = name
	return b
}

// Symbol sets the foreign symbol name
func (b *Builder) Symbol(s string) *Builder {
	b.err.Symbol = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Load creates a load failure for a present but unusable typelib
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// VersionConflict reports a require for a version other than the loaded one
func VersionConflict(namespace, loaded, requested string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLoadFailure,
		Info:   namespace,
		Detail: fmt.Sprintf("requiring version %s but version %s is already loaded", requested, loaded),
		Value:  requested,
	}
}

// SymbolNotFound creates an unresolved symbol error
func SymbolNotFound(info, symbol string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindSymbolNotFound,
		Info:   info,
		Symbol: symbol,
		Detail: "symbol not found in any library",
	}
}

// ArgumentMismatch creates an argument count precondition error
func ArgumentMismatch(info, detail string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindArgumentMismatch,
		Info:   info,
		Detail: detail,
	}
}

// Invocation wraps a failure raised by the foreign side of a call
func Invocation(info, symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvocationFailure,
		Info:   info,
		Symbol: symbol,
		Detail: "foreign call failed",
		Cause:  cause,
	}
}

// UnsupportedField reports a field that cannot be accessed as a raw value
func UnsupportedField(info, detail string) *Error {
	return &Error{
		Phase:  PhaseField,
		Kind:   KindUnsupportedFieldAccess,
		Info:   info,
		Detail: detail,
	}
}

// ContractViolation reports a query that is invalid for the receiver
func ContractViolation(phase Phase, info, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindContractViolation,
		Info:   info,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a null pointer error
func NilPointer(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Detail: fmt.Sprintf("%s must not be null", what),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: what,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

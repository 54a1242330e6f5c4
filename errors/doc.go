// Package errors provides structured error types for the girepository module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the qualified info name, the foreign symbol, a field path and
// a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindArgumentMismatch).
//		Info("GLib.strdup").
//		Symbol("g_strdup").
//		Detail("too few in arguments").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseLoad, "namespace", "Gtk")
//	err := errors.VersionConflict("GLib", "2.0", "3.0")
//
// Failures reported by foreign code through an error out-parameter are returned as
// *ForeignError so callers can match on domain and code:
//
//	var ferr *errors.ForeignError
//	if stderrors.As(err, &ferr) && ferr.Matches("g-file-error-quark", 4) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

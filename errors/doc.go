// Package errors provides structured error types for opcall.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the operation and argument names so a
// failure can be diagnosed without re-deriving the operation's schema.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Operation("linear").
//		Argument("a").
//		HostType("string").
//		EngType("[]float64").
//		Build()
//
// Or use convenience constructors for the call taxonomy:
//
//	err := errors.ArityMismatch("add", 2, 1)
//	err := errors.UnsupportedOption("min", "bogus")
//
// Match kinds with the sentinels:
//
//	if errors.Is(err, opcallerrors.ErrArityMismatch) { ... }
//
// Every kind except KindDeprecatedUsage is fatal to the call and is never
// retried internally.
package errors

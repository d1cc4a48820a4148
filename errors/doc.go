// Package errors provides structured error types for the indexbind library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the operation name, an optional path, the offending
// value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseIndex, errors.KindProtocolViolation).
//		Op("set").
//		Path("list", "position").
//		Detail("index %d out of bounds", 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ReadOnly("add")
//	err := errors.NegativeValue("position", -1)
//
// Callers branch on the category rather than the message:
//
//	switch {
//	case errors.IsProtocolViolation(err): // illegal operation on this handle
//	case errors.IsConversion(err):        // caller input could not be converted
//	case errors.IsFatal(err):             // resource exhaustion, do not retry
//	}
//
// A lookup that finds nothing is not an error; it is reported as an absent value.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

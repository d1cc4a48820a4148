package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConvert Phase = "convert" // caller values to native values
	PhaseHandle  Phase = "handle"  // handle table
	PhaseIndex   Phase = "index"   // list index operations
	PhaseStorage Phase = "storage" // views and database
	PhaseHost    Phase = "host"    // wasm host module
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindProtocolViolation Kind = "protocol_violation"
	KindConversion        Kind = "conversion"
	KindResourceExhausted Kind = "resource_exhausted"
	KindStaleHandle       Kind = "stale_handle"
	KindTypeMismatch      Kind = "type_mismatch"
	KindFault             Kind = "fault"
	KindClosed            Kind = "closed"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindInstantiation     Kind = "instantiation"
	KindIO                Kind = "io"
)

// Error is the structured error type used throughout indexbind
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
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

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
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

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error wrapping errs, or nil if every one is nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsProtocolViolation reports whether err is an illegal operation on a handle.
func IsProtocolViolation(err error) bool {
	return KindOf(err) == KindProtocolViolation
}

// IsConversion reports whether err is a failure to convert caller input.
func IsConversion(err error) bool {
	return KindOf(err) == KindConversion
}

// IsFatal reports whether err must not be retried. The process is expected
// to be restarted externally.
func IsFatal(err error) bool {
	return KindOf(err) == KindResourceExhausted
}

// Convenience constructors for common error patterns

// ReadOnly creates the error returned when a mutation targets a snapshot.
func ReadOnly(op string) *Error {
	return &Error{
		Phase:  PhaseIndex,
		Kind:   KindProtocolViolation,
		Op:     op,
		Detail: "unable to modify snapshot",
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindProtocolViolation,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Conversion creates a boundary conversion error
func Conversion(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindConversion,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindConversion,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// NegativeValue creates the error for a signed caller value that must be
// non-negative, such as a position or a length.
func NegativeValue(what string, v int64) *Error {
	return &Error{
		Phase:  PhaseConvert,
		Kind:   KindConversion,
		Path:   []string{what},
		Detail: fmt.Sprintf("negative %s %d", what, v),
		Value:  v,
	}
}

// StaleHandle creates an error for a token that is not live.
func StaleHandle(h uint64) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindStaleHandle,
		Detail: fmt.Sprintf("handle %#x is not live", h),
		Value:  h,
	}
}

// TypeMismatch creates an error for a live handle of another type.
func TypeMismatch(h uint64, want, got uint32) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("handle %#x has type %d, want %d", h, got, want),
		Value:  h,
	}
}

// ResourceExhausted creates the fatal handle allocation error.
func ResourceExhausted(limit int) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindResourceExhausted,
		Detail: fmt.Sprintf("handle table full (%d entries)", limit),
		Value:  limit,
	}
}

// Fault creates an error from a value recovered from a panic.
func Fault(op string, recovered any) *Error {
	e := &Error{
		Phase: PhaseIndex,
		Kind:  KindFault,
		Op:    op,
		Value: recovered,
	}
	if err, ok := recovered.(error); ok {
		e.Cause = err
		e.Detail = "panic"
	} else {
		e.Detail = fmt.Sprintf("panic: %v", recovered)
	}
	return e
}

// Closed creates an error for an operation on a closed object.
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindInstantiation,
		Detail: "instantiate host module",
		Cause:  cause,
	}
}

// IO creates a storage I/O error
func IO(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseStorage,
		Kind:   KindIO,
		Detail: detail,
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

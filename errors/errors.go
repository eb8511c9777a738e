package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode Phase = "encode" // object writer serialization
	PhaseLoad   Phase = "load"   // module fetch and compilation
	PhaseLink   Phase = "link"   // instantiation and memory/table sharing
	PhaseStage  Phase = "stage"  // native memory staging
	PhaseProbe  Phase = "probe"  // symbol resolution
)

// Kind categorizes the error
type Kind string

const (
	KindTransport     Kind = "transport"      // byte source rejected or response not ok
	KindFormat        Kind = "format"         // malformed or unexpected binary content
	KindAllocation    Kind = "allocation"     // native memory exhausted
	KindNotFound      Kind = "not_found"      // assembly path or export missing
	KindInvalidInput  Kind = "invalid_input"  // constructor guard violation
	KindInstantiation Kind = "instantiation"  // engine rejected the module
	KindOverflow      Kind = "overflow"       // value outside its encodable range
	KindReservedPath  Kind = "reserved_path"  // virtual path under a reserved directory
	KindAlreadyLinked Kind = "already_linked" // one-time capture attempted twice
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
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

// Convenience constructors for common error patterns

// TransportFailed creates a transport error for a failed byte source
func TransportFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindTransport,
		Detail: detail,
		Cause:  cause,
	}
}

// FormatMismatch creates a format error for unexpected binary content
func FormatMismatch(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFormat,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(size, align uint32, cause error) *Error {
	return &Error{
		Phase:  PhaseStage,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
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

// Overflow creates an overflow error for a value outside its range
func Overflow(path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
	}
}

// ReservedPath creates an error for a virtual path under a reserved directory
func ReservedPath(path, reserved string) *Error {
	return &Error{
		Phase:  PhaseStage,
		Kind:   KindReservedPath,
		Detail: fmt.Sprintf("virtual path %q is under reserved directory %q", path, reserved),
	}
}

// Instantiation creates an instantiation error
func Instantiation(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindInstantiation,
		Detail: fmt.Sprintf("instantiate module %q", name),
		Cause:  cause,
	}
}

// AlreadyLinked creates an error for a second main-module capture
func AlreadyLinked(name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindAlreadyLinked,
		Detail: fmt.Sprintf("main module already captured; cannot re-capture as %q", name),
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindFormat,
		Detail: detail,
		Cause:  cause,
	}
}

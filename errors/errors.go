package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in a call the error occurred
type Phase string

const (
	PhaseDescribe Phase = "describe" // schema introspection
	PhaseMarshal  Phase = "marshal"  // host value to engine value and back
	PhaseInvoke   Phase = "invoke"   // argument checks before build
	PhaseBuild    Phase = "build"    // engine build
	PhaseEngine   Phase = "engine"   // engine helpers and lookups
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownOperation Kind = "unknown_operation"
	KindArityMismatch    Kind = "arity_mismatch"
	KindUnsupportedOpt   Kind = "unsupported_option"
	KindInvalidOptions   Kind = "invalid_options"
	KindTypeMismatch     Kind = "type_mismatch"
	KindBuildFailed      Kind = "build_failed"
	KindDeprecatedUsage  Kind = "deprecated_usage"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindClosed           Kind = "closed"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrUnknownOperation  = &Error{Kind: KindUnknownOperation}
	ErrArityMismatch     = &Error{Kind: KindArityMismatch}
	ErrUnsupportedOption = &Error{Kind: KindUnsupportedOpt}
	ErrInvalidOptions    = &Error{Kind: KindInvalidOptions}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
	ErrBuildFailed       = &Error{Kind: KindBuildFailed}
	ErrDeprecatedUsage   = &Error{Kind: KindDeprecatedUsage}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrClosed            = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout opcall
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Operation string
	Argument  string
	HostType  string
	EngType   string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Operation != "" || e.Argument != "" {
		b.WriteString(" in ")
		b.WriteString(e.Operation)
		if e.Argument != "" {
			if e.Operation != "" {
				b.WriteByte('.')
			}
			b.WriteString(e.Argument)
		}
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.HostType != "" || e.EngType != "" {
		b.WriteString(": ")
		if e.HostType != "" && e.EngType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
			b.WriteString(", engine type ")
			b.WriteString(e.EngType)
		} else if e.HostType != "" {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		} else {
			b.WriteString("engine type ")
			b.WriteString(e.EngType)
		}
	}

	if e.Detail != "" {
		if e.HostType != "" || e.EngType != "" {
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

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Phase == "" || t.Phase == e.Phase
}

// Fatal reports whether the error ends the call. Only deprecation
// advisories are non-fatal.
func (e *Error) Fatal() bool {
	return e.Kind != KindDeprecatedUsage
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

// Operation sets the operation name
func (b *Builder) Operation(name string) *Builder {
	b.err.Operation = name
	return b
}

// Argument sets the argument name
func (b *Builder) Argument(name string) *Builder {
	b.err.Argument = name
	return b
}

// Path sets the position inside a nested value
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// HostType sets the host value kind
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// EngType sets the declared engine type
func (b *Builder) EngType(t string) *Builder {
	b.err.EngType = t
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

// Convenience constructors for the call taxonomy

// UnknownOperation creates an error for a name the engine does not know
func UnknownOperation(name string, cause error) *Error {
	return &Error{
		Phase:     PhaseDescribe,
		Kind:      KindUnknownOperation,
		Operation: name,
		Detail:    fmt.Sprintf("no such operation %s", name),
		Cause:     cause,
	}
}

// ArityMismatch creates an error for a wrong count of required inputs
func ArityMismatch(name string, expected, given int) *Error {
	return &Error{
		Phase:     PhaseInvoke,
		Kind:      KindArityMismatch,
		Operation: name,
		Detail:    fmt.Sprintf("%s needs %d arguments, but %d given", name, expected, given),
		Value:     given,
	}
}

// UnsupportedOption creates an error for a named argument outside the
// operation's optional sets
func UnsupportedOption(name, arg string) *Error {
	return &Error{
		Phase:     PhaseInvoke,
		Kind:      KindUnsupportedOpt,
		Operation: name,
		Argument:  arg,
		Detail:    fmt.Sprintf("%s does not support optional argument %s", name, arg),
	}
}

// InvalidOptions creates an error for an option string the engine rejected
func InvalidOptions(name, options string, cause error) *Error {
	return &Error{
		Phase:     PhaseInvoke,
		Kind:      KindInvalidOptions,
		Operation: name,
		Detail:    fmt.Sprintf("unable to apply options %q", options),
		Value:     options,
		Cause:     cause,
	}
}

// TypeMismatch creates a marshaling error
func TypeMismatch(arg, hostType, engType string) *Error {
	return &Error{
		Phase:    PhaseMarshal,
		Kind:     KindTypeMismatch,
		Argument: arg,
		HostType: hostType,
		EngType:  engType,
	}
}

// BuildFailed wraps an engine build failure
func BuildFailed(name string, cause error) *Error {
	return &Error{
		Phase:     PhaseBuild,
		Kind:      KindBuildFailed,
		Operation: name,
		Detail:    fmt.Sprintf("unable to call %s", name),
		Cause:     cause,
	}
}

// DeprecatedUsage creates a non-fatal advisory
func DeprecatedUsage(name, arg string) *Error {
	detail := fmt.Sprintf("%s argument %s is deprecated", name, arg)
	if arg == "" {
		detail = fmt.Sprintf("operation %s is deprecated", name)
	}
	return &Error{
		Phase:     PhaseInvoke,
		Kind:      KindDeprecatedUsage,
		Operation: name,
		Argument:  arg,
		Detail:    detail,
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

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

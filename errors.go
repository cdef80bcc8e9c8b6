package bind

import (
	"errors"
	"strings"
)

// Sentinel errors wrapped by UsageError.
var (
	// ErrInvalidContext is returned when an operation is called from an
	// execution phase that does not allow it.
	ErrInvalidContext = errors.New("bind: not allowed in the current execution phase")

	// ErrReentrantExecute is returned when ExecuteChanges is called while a
	// pass is already running.
	ErrReentrantExecute = errors.New("bind: ExecuteChanges is already running")

	// ErrDeadInstance is returned when a handle does not refer to a live instance.
	ErrDeadInstance = errors.New("bind: instance is not alive")

	// ErrInvalidOwner is returned when a property owner is not a live
	// dependency object or data source object.
	ErrInvalidOwner = errors.New("bind: owner must be a live dependency object or data source object")

	// ErrNilMethods is returned when a property is created without methods.
	ErrNilMethods = errors.New("bind: property methods are nil")

	// ErrDuplicateProperty is returned when an owner already has a property
	// with the same definition.
	ErrDuplicateProperty = errors.New("bind: owner already has a property with this definition")

	// ErrNotObservable is returned by Changed for instances that cannot send
	// change notifications.
	ErrNotObservable = errors.New("bind: instance is not observable")

	// ErrInvalidChangeReason is returned by Changed for an unknown reason.
	ErrInvalidChangeReason = errors.New("bind: invalid change reason")

	// ErrSelfBinding is returned when a binding names its own target as source.
	ErrSelfBinding = errors.New("bind: a property can not be bound to itself")

	// ErrCyclicBinding is returned when a binding would close a cycle.
	ErrCyclicBinding = errors.New("bind: binding would create a cycle")

	// ErrReadOnlyTarget is returned when a binding targets a read-only property.
	ErrReadOnlyTarget = errors.New("bind: binding target is read-only")

	// ErrIncompatibleProperties is returned when the instance kinds of a
	// binding's target and source can not be bound together.
	ErrIncompatibleProperties = errors.New("bind: incompatible binding target and source")

	// ErrIncompatibleTypes is returned when value types do not match.
	ErrIncompatibleTypes = errors.New("bind: incompatible value types")

	// ErrTwoWaySource is returned when the source of a two-way binding
	// breaks the two-way source rules.
	ErrTwoWaySource = errors.New("bind: invalid two-way binding source")

	// ErrTwoWayTarget is returned when a binding breaks the two-way target rules.
	ErrTwoWayTarget = errors.New("bind: invalid two-way binding target")

	// ErrUnsupportedBinding is returned for binding configurations the
	// target kind does not support.
	ErrUnsupportedBinding = errors.New("bind: unsupported binding")
)

// Errors reported through PropagationError.
var (
	// ErrSourceUnavailable is reported when a source can not produce a value.
	ErrSourceUnavailable = errors.New("bind: source value unavailable")

	// ErrValueType is returned by property methods handed a value of the wrong type.
	ErrValueType = errors.New("bind: unexpected value type")

	// ErrConvertBackUnsupported is returned by converters without a reverse conversion.
	ErrConvertBackUnsupported = errors.New("bind: converter does not support ConvertBack")

	// ErrPropertyPanic is reported when a property method or observer panics.
	ErrPropertyPanic = errors.New("bind: property method panicked")

	// ErrCorruptState is returned by SanityCheck when an invariant is broken.
	ErrCorruptState = errors.New("bind: corrupt binding state")
)

// Role names the part a handle plays in a failed operation.
type Role uint8

// Handle roles.
const (
	RoleInstance Role = iota
	RoleOwner
	RoleTarget
	RoleSource
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleTarget:
		return "target"
	case RoleSource:
		return "source"
	default:
		return "instance"
	}
}

// UsageError reports a programming error: the operation was rejected and
// left the service unchanged.
type UsageError struct {
	Op     string // operation name, e.g. "SetBinding"
	Role   Role   // role of Handle in the operation
	Handle Handle // offending handle, may be zero
	Err    error  // one of the sentinel errors
	Detail string // optional extra context
}

func (e *UsageError) Error() string {
	var b strings.Builder
	b.WriteString("bind: ")
	b.WriteString(e.Op)
	if e.Handle.IsValid() {
		b.WriteString(": ")
		b.WriteString(e.Role.String())
		b.WriteByte(' ')
		b.WriteString(e.Handle.String())
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimPrefix(e.Err.Error(), "bind: "))
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}
	return b.String()
}

func (e *UsageError) Unwrap() error { return e.Err }

// IsUsageError reports whether err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func usageError(op string, role Role, h Handle, err error, detail string) *UsageError {
	return &UsageError{Op: op, Role: role, Handle: h, Err: err, Detail: detail}
}

// Phase identifies a stage of ExecuteChanges.
type Phase uint8

// Execution phases, in the order they run within a pass.
const (
	PhaseDetermine Phase = iota
	PhaseTwoWay
	PhaseOneWay
	PhaseBindings
	PhaseObservers
	PhaseDestroy
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDetermine:
		return "determine"
	case PhaseTwoWay:
		return "two-way"
	case PhaseOneWay:
		return "one-way"
	case PhaseBindings:
		return "bindings"
	case PhaseObservers:
		return "observers"
	case PhaseDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// PropagationError reports a failure isolated to one instance during
// ExecuteChanges. The pass continued with the remaining instances.
type PropagationError struct {
	Phase  Phase
	Target Handle
	Source Handle
	Err    error
}

func (e *PropagationError) Error() string {
	return "bind: " + e.Phase.String() + " " + e.Source.String() + " -> " + e.Target.String() + ": " +
		strings.TrimPrefix(e.Err.Error(), "bind: ")
}

func (e *PropagationError) Unwrap() error { return e.Err }

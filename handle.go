package bind

import (
	"strconv"

	"github.com/gogpu/bind/internal/slotmap"
)

// Handle identifies an instance tracked by a Service.
// Handles are plain values; a handle whose instance was destroyed simply
// stops resolving. The zero Handle is never issued.
type Handle uint64

// IsValid reports whether h is non-zero. It does not check liveness;
// use Service.IsAlive for that.
func (h Handle) IsValid() bool { return h != 0 }

// String formats the handle as #index.generation.
func (h Handle) String() string {
	if h == 0 {
		return "#nil"
	}
	k := slotmap.Key(h)
	return "#" + strconv.FormatUint(uint64(k.Index()), 10) + "." + strconv.FormatUint(uint64(k.Generation()), 10)
}

// InstanceKind is the type tag of a tracked instance.
type InstanceKind uint8

// Instance kinds.
const (
	KindDataSourceObject InstanceKind = iota + 1
	KindDependencyObject
	KindDependencyProperty
	KindReadOnlyDependencyProperty
	KindObserverProperty
)

// String returns the kind name.
func (k InstanceKind) String() string {
	switch k {
	case KindDataSourceObject:
		return "DataSourceObject"
	case KindDependencyObject:
		return "DependencyObject"
	case KindDependencyProperty:
		return "DependencyProperty"
	case KindReadOnlyDependencyProperty:
		return "ReadOnlyDependencyProperty"
	case KindObserverProperty:
		return "ObserverProperty"
	default:
		return "InstanceKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsProperty reports whether k is one of the property kinds.
func (k InstanceKind) IsProperty() bool {
	return k == KindDependencyProperty || k == KindReadOnlyDependencyProperty || k == KindObserverProperty
}

// DataSourceFlags configures a data source object.
type DataSourceFlags uint8

const (
	// DataSourceObservable lets the object send change notifications.
	DataSourceObservable DataSourceFlags = 1 << iota
)

// ChangeReason tells the engine why a value changed.
// A stronger reason replaces a weaker one that is already pending.
type ChangeReason uint8

const (
	// ChangeRefresh asks the engine to re-propagate the current value.
	ChangeRefresh ChangeReason = iota + 1
	// ChangeModified reports that the value was modified by the application.
	ChangeModified
)

// String returns the reason name.
func (r ChangeReason) String() string {
	switch r {
	case ChangeRefresh:
		return "Refresh"
	case ChangeModified:
		return "Modified"
	default:
		return "ChangeReason(" + strconv.Itoa(int(r)) + ")"
	}
}

// BindingMode selects the direction values flow in a binding.
type BindingMode uint8

const (
	// OneWayMode copies the source value into the target.
	OneWayMode BindingMode = iota
	// TwoWayMode keeps source and target reconciled in both directions.
	TwoWayMode
)

// String returns the mode name.
func (m BindingMode) String() string {
	if m == TwoWayMode {
		return "TwoWay"
	}
	return "OneWay"
}

package bind

import "reflect"

// PropertyMethods is the capability a bindable property hands to the
// Service. The Service owns it for the lifetime of the property handle.
type PropertyMethods interface {
	// Type returns the value type of the property.
	Type() reflect.Type

	// TryGetAsSource returns the current value when the property acts as
	// a binding source. ok is false if no value is available.
	TryGetAsSource() (v any, ok bool)

	// TrySetFromSource stores a value pushed from a binding source and
	// reports whether the stored value changed. It must not call
	// Service.Changed for its own handle; the Service propagates the
	// change itself.
	TrySetFromSource(v any) (changed bool, err error)
}

// ObserverMethods receives notifications for an observer property.
type ObserverMethods interface {
	// OnChanged is called after the bound source changed. It runs once all
	// values of the pass have settled, so it may read any property and may
	// call Changed, SetBinding or DestroyInstance.
	OnChanged(source Handle) error
}

// PropertyDefinition identifies a property on its owner.
// Two definitions are the same key when all fields are equal.
type PropertyDefinition struct {
	Name      string
	OwnerType reflect.Type
	ValueType reflect.Type
}

// NewPropertyDefinition returns the definition of a property named name
// holding values of type T on owners of type Owner.
func NewPropertyDefinition[Owner, T any](name string) PropertyDefinition {
	return PropertyDefinition{
		Name:      name,
		OwnerType: reflect.TypeFor[Owner](),
		ValueType: reflect.TypeFor[T](),
	}
}

// String returns Owner.Name.
func (d PropertyDefinition) String() string {
	if d.OwnerType == nil {
		return d.Name
	}
	return d.OwnerType.String() + "." + d.Name
}

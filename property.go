package bind

import (
	"fmt"
	"reflect"
)

// Object is a dependency object with typed properties.
//
// Properties create their handle on first use, so unused bindable
// properties cost nothing in the Service.
type Object struct {
	svc *Service
	h   Handle
}

// NewObject creates a dependency object on svc.
func NewObject(svc *Service) (*Object, error) {
	h, err := svc.CreateDependencyObject()
	if err != nil {
		return nil, err
	}
	return &Object{svc: svc, h: h}, nil
}

// Handle returns the object handle.
func (o *Object) Handle() Handle { return o.h }

// Service returns the service the object lives in.
func (o *Object) Service() *Service { return o.svc }

// Close schedules the object and all of its properties for destroy.
func (o *Object) Close() bool { return o.svc.DestroyInstance(o.h) }

// Property is a typed value slot on an Object.
type Property[T comparable] struct {
	owner    *Object
	def      PropertyDefinition
	readOnly bool
	value    T
	h        Handle

	// OnChange, if set, is called after the value was replaced by a
	// binding. It runs during ExecuteChanges and must not call Set.
	OnChange func(old, value T)
}

// NewProperty declares a read-write property named name.
func NewProperty[T comparable](owner *Object, name string, initial T) *Property[T] {
	return &Property[T]{
		owner: owner,
		def:   NewPropertyDefinition[Object, T](name),
		value: initial,
	}
}

// NewReadOnlyProperty declares a property that can only be changed by its
// owner through Set. It can be a binding source but never a target.
func NewReadOnlyProperty[T comparable](owner *Object, name string, initial T) *Property[T] {
	p := NewProperty(owner, name, initial)
	p.readOnly = true
	return p
}

// Definition returns the property definition.
func (p *Property[T]) Definition() PropertyDefinition { return p.def }

// Get returns the current value.
func (p *Property[T]) Get() T { return p.value }

// Set stores v and queues a Modified change when the value differs.
func (p *Property[T]) Set(v T) error {
	if v == p.value {
		return nil
	}
	if p.h.IsValid() {
		if _, err := p.owner.svc.Changed(p.h, ChangeModified); err != nil {
			return err
		}
	}
	p.value = v
	return nil
}

// Handle returns the property handle, or the zero Handle if it was not
// created yet.
func (p *Property[T]) Handle() Handle { return p.h }

// HandleOnDemand returns the property handle, creating it if needed.
func (p *Property[T]) HandleOnDemand() (Handle, error) {
	if p.h.IsValid() && p.owner.svc.Contains(p.h) {
		return p.h, nil
	}
	var (
		h   Handle
		err error
	)
	m := propertyMethods[T]{p: p}
	if p.readOnly {
		h, err = p.owner.svc.CreateReadOnlyDependencyObjectProperty(p.owner.h, p.def, m)
	} else {
		h, err = p.owner.svc.CreateDependencyObjectProperty(p.owner.h, p.def, m)
	}
	if err != nil {
		return 0, err
	}
	p.h = h
	return h, nil
}

// SetBinding binds the property to b, creating its handle if needed.
func (p *Property[T]) SetBinding(b Binding) (bool, error) {
	h, err := p.HandleOnDemand()
	if err != nil {
		return false, err
	}
	return p.owner.svc.SetBinding(h, b)
}

// ClearBinding removes the binding of the property.
func (p *Property[T]) ClearBinding() bool {
	if !p.h.IsValid() {
		return false
	}
	return p.owner.svc.ClearBinding(p.h)
}

// IsReadOnly reports whether the property rejects bindings.
func (p *Property[T]) IsReadOnly() bool { return p.readOnly }

// IsEffectivelyReadOnly reports whether a Set would be overwritten by a
// one-way binding. Properties without a handle are never bound.
func (p *Property[T]) IsEffectivelyReadOnly() bool {
	if !p.h.IsValid() {
		return p.readOnly
	}
	return p.owner.svc.IsEffectivelyReadOnly(p.h)
}

// propertyMethods adapts a Property to PropertyMethods.
type propertyMethods[T comparable] struct {
	p *Property[T]
}

func (m propertyMethods[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

func (m propertyMethods[T]) TryGetAsSource() (any, bool) { return m.p.value, true }

func (m propertyMethods[T]) TrySetFromSource(v any) (bool, error) {
	t, ok := v.(T)
	if !ok {
		return false, fmt.Errorf("%w: got %T, want %v", ErrValueType, v, reflect.TypeFor[T]())
	}
	if t == m.p.value {
		return false, nil
	}
	old := m.p.value
	m.p.value = t
	if m.p.OnChange != nil {
		m.p.OnChange(old, t)
	}
	return true, nil
}

// Observer is an observer property on an Object. Its callback runs after
// the bound source changed.
type Observer struct {
	owner *Object
	def   PropertyDefinition
	fn    func(source Handle) error
	h     Handle
}

// NewObserver declares an observer property named name.
func NewObserver(owner *Object, name string, fn func(source Handle) error) *Observer {
	return &Observer{
		owner: owner,
		def:   PropertyDefinition{Name: name, OwnerType: reflect.TypeFor[Object]()},
		fn:    fn,
	}
}

// Handle returns the observer handle, or the zero Handle if it was not
// created yet.
func (o *Observer) Handle() Handle { return o.h }

// Bind observes source, creating the observer handle if needed.
func (o *Observer) Bind(source Handle) error {
	if !o.h.IsValid() || !o.owner.svc.Contains(o.h) {
		h, err := o.owner.svc.CreateDependencyObjectObserverProperty(o.owner.h, o.def, observerFunc(o.fn))
		if err != nil {
			return err
		}
		o.h = h
	}
	_, err := o.owner.svc.SetBinding(o.h, OneWay(source))
	return err
}

// Unbind stops observing.
func (o *Observer) Unbind() bool {
	if !o.h.IsValid() {
		return false
	}
	return o.owner.svc.ClearBinding(o.h)
}

type observerFunc func(source Handle) error

func (f observerFunc) OnChanged(source Handle) error { return f(source) }

// DataSource is an observable data source object. Observers bound to it
// run whenever Notify was called before a pass.
type DataSource struct {
	svc *Service
	h   Handle
}

// NewDataSource creates an observable data source on svc.
func NewDataSource(svc *Service) (*DataSource, error) {
	h, err := svc.CreateDataSourceObject(DataSourceObservable)
	if err != nil {
		return nil, err
	}
	return &DataSource{svc: svc, h: h}, nil
}

// Handle returns the data source handle.
func (d *DataSource) Handle() Handle { return d.h }

// Notify queues a Modified change.
func (d *DataSource) Notify() error {
	_, err := d.svc.Changed(d.h, ChangeModified)
	return err
}

// Close schedules the data source for destroy.
func (d *DataSource) Close() bool { return d.svc.DestroyInstance(d.h) }

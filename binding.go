package bind

import (
	"fmt"
	"reflect"
)

// Binding describes how a target property obtains its value.
// A Binding with an invalid Source clears the target's binding.
type Binding struct {
	Source    Handle
	Mode      BindingMode
	Converter Converter // optional
}

// OneWay returns a binding that copies the value of src into the target.
func OneWay(src Handle) Binding {
	return Binding{Source: src, Mode: OneWayMode}
}

// TwoWay returns a binding that keeps the target and src reconciled.
func TwoWay(src Handle) Binding {
	return Binding{Source: src, Mode: TwoWayMode}
}

// Convert returns a one-way binding that passes the value of src through c.
func Convert(src Handle, c Converter) Binding {
	return Binding{Source: src, Mode: OneWayMode, Converter: c}
}

// ConvertTwoWay returns a two-way binding through c.
// c must support ConvertBack.
func ConvertTwoWay(src Handle, c Converter) Binding {
	return Binding{Source: src, Mode: TwoWayMode, Converter: c}
}

// Converter translates values between a binding source and its target.
type Converter interface {
	// SourceType is the value type of the source property.
	SourceType() reflect.Type
	// TargetType is the value type of the target property.
	TargetType() reflect.Type
	// Convert maps a source value to a target value.
	Convert(v any) (any, error)
	// ConvertBack maps a target value back to a source value.
	ConvertBack(v any) (any, error)
	// CanConvertBack reports whether ConvertBack is supported.
	CanConvertBack() bool
}

// FuncConverter is a Converter built from typed functions.
type FuncConverter[S, T any] struct {
	to   func(S) (T, error)
	back func(T) (S, error)
}

// NewConverter returns a one-way converter.
func NewConverter[S, T any](to func(S) (T, error)) *FuncConverter[S, T] {
	return &FuncConverter[S, T]{to: to}
}

// NewTwoWayConverter returns a converter usable with ConvertTwoWay.
func NewTwoWayConverter[S, T any](to func(S) (T, error), back func(T) (S, error)) *FuncConverter[S, T] {
	return &FuncConverter[S, T]{to: to, back: back}
}

// SourceType implements Converter.
func (c *FuncConverter[S, T]) SourceType() reflect.Type { return reflect.TypeFor[S]() }

// TargetType implements Converter.
func (c *FuncConverter[S, T]) TargetType() reflect.Type { return reflect.TypeFor[T]() }

// CanConvertBack implements Converter.
func (c *FuncConverter[S, T]) CanConvertBack() bool { return c.back != nil }

// Convert implements Converter.
func (c *FuncConverter[S, T]) Convert(v any) (any, error) {
	s, ok := v.(S)
	if !ok {
		return nil, fmt.Errorf("%w: got %T, want %v", ErrValueType, v, reflect.TypeFor[S]())
	}
	return c.to(s)
}

// ConvertBack implements Converter.
func (c *FuncConverter[S, T]) ConvertBack(v any) (any, error) {
	if c.back == nil {
		return nil, ErrConvertBackUnsupported
	}
	t, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("%w: got %T, want %v", ErrValueType, v, reflect.TypeFor[T]())
	}
	return c.back(t)
}

// sameConverter reports whether a and b are known to be the same converter.
// Converters of non-comparable dynamic types are never considered equal.
func sameConverter(a, b Converter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

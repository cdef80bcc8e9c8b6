package scene

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/bind"
	"github.com/gogpu/bind/internal/color"
)

// ValueKind is the type of a scene property.
type ValueKind string

// Value kinds and their Go types.
const (
	KindInt    ValueKind = "int"    // int
	KindFloat  ValueKind = "float"  // float64
	KindString ValueKind = "string" // string
	KindBool   ValueKind = "bool"   // bool
	KindColor  ValueKind = "color"  // gputypes.Color, written as hex sRGB
)

// UnmarshalYAML implements yaml.Unmarshaler for ValueKind.
func (k *ValueKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	kind := ValueKind(strings.ToLower(s))
	if kind.Type() == nil {
		return fmt.Errorf("invalid value type %q", s)
	}
	*k = kind
	return nil
}

// Type returns the Go type of k, or nil for an unknown kind.
func (k ValueKind) Type() reflect.Type {
	switch k {
	case KindInt:
		return reflect.TypeFor[int]()
	case KindFloat:
		return reflect.TypeFor[float64]()
	case KindString:
		return reflect.TypeFor[string]()
	case KindBool:
		return reflect.TypeFor[bool]()
	case KindColor:
		return reflect.TypeFor[gputypes.Color]()
	}
	return nil
}

// Zero returns the zero value of k.
func (k ValueKind) Zero() any {
	switch k {
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	case KindString:
		return ""
	case KindBool:
		return false
	case KindColor:
		return gputypes.Color{}
	}
	return nil
}

// Decode converts a YAML scalar into a value of kind k. An empty node
// decodes to the zero value.
func (k ValueKind) Decode(n *yaml.Node) (any, error) {
	if n == nil || n.Kind == 0 {
		return k.Zero(), nil
	}
	var err error
	switch k {
	case KindInt:
		// yaml.v3 truncates floats decoded into an int.
		if tag := n.ShortTag(); n.Kind == yaml.ScalarNode && tag != "!!int" {
			return nil, fmt.Errorf("decoding %s value: %q is %s, want an integer", k, n.Value, tag)
		}
		var v int
		if err = n.Decode(&v); err == nil {
			return v, nil
		}
	case KindFloat:
		var v float64
		if err = n.Decode(&v); err == nil {
			return v, nil
		}
	case KindString:
		var v string
		if err = n.Decode(&v); err == nil {
			return v, nil
		}
	case KindBool:
		var v bool
		if err = n.Decode(&v); err == nil {
			return v, nil
		}
	case KindColor:
		var s string
		if err = n.Decode(&s); err == nil {
			return color.Hex(s)
		}
	default:
		return nil, fmt.Errorf("invalid value type %q", k)
	}
	return nil, fmt.Errorf("decoding %s value: %w", k, err)
}

// valueProp is the storage of one scene property. It implements
// bind.PropertyMethods for a single value kind.
type valueProp struct {
	kind  ValueKind
	typ   reflect.Type
	value any
}

var _ bind.PropertyMethods = (*valueProp)(nil)

func newValueProp(kind ValueKind, initial any) *valueProp {
	return &valueProp{kind: kind, typ: kind.Type(), value: initial}
}

func (p *valueProp) Type() reflect.Type { return p.typ }

func (p *valueProp) TryGetAsSource() (any, bool) { return p.value, p.value != nil }

func (p *valueProp) TrySetFromSource(v any) (bool, error) {
	if v == nil || reflect.TypeOf(v) != p.typ {
		return false, fmt.Errorf("%w: got %T, want %v", bind.ErrValueType, v, p.typ)
	}
	if v == p.value {
		return false, nil
	}
	p.value = v
	return true, nil
}

// asFloat converts numeric values for bar lengths.
func asFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

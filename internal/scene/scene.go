// Package scene drives a bind.Service from a YAML description.
//
// A scene declares dependency objects with typed properties, bindings
// between them (optionally through named converters), observers that
// record every change they see, and a script of steps that set values,
// clear bindings or destroy objects. Each step runs one ExecuteChanges
// and the resulting values can be turned into a frame.Layout.
package scene

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scene is a parsed scene file.
type Scene struct {
	Name   string `yaml:"name"`
	Locale string `yaml:"locale"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Background names a color property used as the frame clear color.
	Background string `yaml:"background"`

	Objects  []ObjectSpec  `yaml:"objects"`
	Bindings []BindingSpec `yaml:"bindings"`
	// Watch lists properties whose changes are recorded as events.
	Watch []string   `yaml:"watch"`
	Bars  []BarSpec  `yaml:"bars"`
	Steps []StepSpec `yaml:"steps"`
}

// ObjectSpec declares a dependency object.
type ObjectSpec struct {
	Name       string         `yaml:"name"`
	Properties []PropertySpec `yaml:"properties"`
}

// PropertySpec declares a property. Value is decoded according to Type.
type PropertySpec struct {
	Name     string    `yaml:"name"`
	Type     ValueKind `yaml:"type"`
	Value    yaml.Node `yaml:"value"`
	ReadOnly bool      `yaml:"readonly"`
}

// BindingSpec binds Target to Source. Both are "object.property" paths.
type BindingSpec struct {
	Target    string         `yaml:"target"`
	Source    string         `yaml:"source"`
	Mode      Mode           `yaml:"mode"`
	Converter *ConverterSpec `yaml:"converter"`
}

// ConverterSpec selects a converter by name. The remaining fields are
// parameters; each converter reads the ones it needs.
type ConverterSpec struct {
	Name   string  `yaml:"name"`
	Format string  `yaml:"format"`
	Factor float64 `yaml:"factor"`
	Max    float64 `yaml:"max"`
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
}

// BarSpec maps properties to a frame bar.
type BarSpec struct {
	Label string `yaml:"label"`
	// Value is a numeric property path.
	Value string `yaml:"value"`
	// Text is an optional property path shown right of the bar.
	Text string  `yaml:"text"`
	Max  float64 `yaml:"max"`
	// Color is a hex color or a color property path.
	Color string `yaml:"color"`
}

// StepSpec is one scripted step. Set is applied in key order.
type StepSpec struct {
	Set     map[string]yaml.Node `yaml:"set"`
	Unbind  []string             `yaml:"unbind"`
	Destroy []string             `yaml:"destroy"`
}

// Mode is a binding mode in a scene file.
type Mode string

// Binding modes.
const (
	ModeOneWay Mode = "one-way"
	ModeTwoWay Mode = "two-way"
)

// UnmarshalYAML implements yaml.Unmarshaler for Mode.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch Mode(strings.ToLower(s)) {
	case "", ModeOneWay:
		*m = ModeOneWay
	case ModeTwoWay:
		*m = ModeTwoWay
	default:
		return fmt.Errorf("invalid binding mode %q", s)
	}
	return nil
}

// Sentinel errors.
var (
	ErrUnknownObject   = errors.New("scene: unknown object")
	ErrUnknownProperty = errors.New("scene: unknown property")
	ErrDuplicateName   = errors.New("scene: duplicate name")
	ErrBadPath         = errors.New("scene: property path must be object.property")
	ErrUnknownConv     = errors.New("scene: unknown converter")
)

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scene and checks that names are unique and paths are
// well formed. It does not check that paths resolve; Build does.
func Parse(data []byte) (*Scene, error) {
	var sc Scene
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scene file: %w", err)
	}

	// Apply defaults
	if sc.Name == "" {
		sc.Name = "scene"
	}
	if sc.Locale == "" {
		sc.Locale = "en"
	}
	for i := range sc.Bindings {
		if sc.Bindings[i].Mode == "" {
			sc.Bindings[i].Mode = ModeOneWay
		}
	}

	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scene) validate() error {
	objects := make(map[string]bool, len(sc.Objects))
	for _, o := range sc.Objects {
		if o.Name == "" || strings.Contains(o.Name, ".") {
			return fmt.Errorf("%w: object name %q", ErrBadPath, o.Name)
		}
		if objects[o.Name] {
			return fmt.Errorf("%w: object %q", ErrDuplicateName, o.Name)
		}
		objects[o.Name] = true

		props := make(map[string]bool, len(o.Properties))
		for _, p := range o.Properties {
			if p.Name == "" {
				return fmt.Errorf("%w: empty property name on %q", ErrBadPath, o.Name)
			}
			if props[p.Name] {
				return fmt.Errorf("%w: property %s.%s", ErrDuplicateName, o.Name, p.Name)
			}
			props[p.Name] = true
			if p.Type == "" {
				return fmt.Errorf("property %s.%s: missing type", o.Name, p.Name)
			}
		}
	}

	var paths []string
	for _, b := range sc.Bindings {
		paths = append(paths, b.Target, b.Source)
	}
	paths = append(paths, sc.Watch...)
	for _, b := range sc.Bars {
		paths = append(paths, b.Value)
		if b.Text != "" {
			paths = append(paths, b.Text)
		}
	}
	if sc.Background != "" {
		paths = append(paths, sc.Background)
	}
	for _, st := range sc.Steps {
		for p := range st.Set {
			paths = append(paths, p)
		}
		paths = append(paths, st.Unbind...)
	}
	for _, p := range paths {
		if _, _, err := splitPath(p); err != nil {
			return err
		}
	}
	return nil
}

// splitPath splits "object.property".
func splitPath(p string) (object, property string, err error) {
	object, property, ok := strings.Cut(p, ".")
	if !ok || object == "" || property == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, p)
	}
	return object, property, nil
}

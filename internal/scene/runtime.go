package scene

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/gogpu/gputypes"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/bind"
	"github.com/gogpu/bind/internal/color"
	"github.com/gogpu/bind/internal/frame"
)

// ErrDestroyed is returned when a step uses a property whose object was
// destroyed by an earlier step.
var ErrDestroyed = errors.New("scene: property destroyed")

// defaultBarColor is used when a bar names no color.
const defaultBarColor = "#4a90d9"

// Owner types of scene properties and watchers.
type (
	sceneObject  struct{}
	sceneWatcher struct{}
)

var (
	objectType  = reflect.TypeFor[sceneObject]()
	watcherType = reflect.TypeFor[sceneWatcher]()
)

// Event is a change seen by a watched property.
type Event struct {
	// Step is 0 for the initial pass and i+1 for Steps[i].
	Step     int
	Property string
	Value    any
}

func (e Event) String() string {
	return fmt.Sprintf("step %d: %s = %v", e.Step, e.Property, e.Value)
}

type propEntry struct {
	path string
	h    bind.Handle
	kind ValueKind
	prop *valueProp
}

type barRef struct {
	label     string
	value     *propEntry
	text      *propEntry
	max       float64
	color     gputypes.Color
	colorProp *propEntry
}

// Runtime is a scene built on a Service.
// A Runtime is not safe for concurrent use.
type Runtime struct {
	svc     *bind.Service
	scene   *Scene
	printer *message.Printer

	objects    map[string]bind.Handle
	props      map[string]*propEntry
	watchers   bind.Handle
	bars       []barRef
	background *propEntry

	step   int
	events []Event
}

// Build creates the objects, properties, bindings and watchers of sc on
// svc and runs the initial ExecuteChanges so bound targets hold their
// source values.
//
// Propagation failures of the initial pass are returned together with a
// usable Runtime. Any other error releases what was created and returns a
// nil Runtime.
func Build(svc *bind.Service, sc *Scene) (*Runtime, error) {
	tag, err := language.Parse(sc.Locale)
	if err != nil {
		return nil, fmt.Errorf("scene %s: locale: %w", sc.Name, err)
	}
	r := &Runtime{
		svc:     svc,
		scene:   sc,
		printer: message.NewPrinter(tag),
		objects: make(map[string]bind.Handle, len(sc.Objects)),
		props:   make(map[string]*propEntry),
	}
	if err := r.build(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("scene %s: %w", sc.Name, err)
	}
	if err := svc.ExecuteChanges(); err != nil {
		return r, fmt.Errorf("scene %s: initial pass: %w", sc.Name, err)
	}
	return r, nil
}

func (r *Runtime) build() error {
	for _, o := range r.scene.Objects {
		h, err := r.svc.CreateDependencyObject()
		if err != nil {
			return err
		}
		r.objects[o.Name] = h
		for _, p := range o.Properties {
			if err := r.createProperty(o.Name, h, p); err != nil {
				return err
			}
		}
	}

	for _, b := range r.scene.Bindings {
		if err := r.bind(b); err != nil {
			return fmt.Errorf("binding %s <- %s: %w", b.Target, b.Source, err)
		}
	}

	if len(r.scene.Watch) > 0 {
		h, err := r.svc.CreateDependencyObject()
		if err != nil {
			return err
		}
		r.watchers = h
		for _, path := range r.scene.Watch {
			if err := r.watch(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
	}

	for _, b := range r.scene.Bars {
		ref, err := r.resolveBar(b)
		if err != nil {
			return fmt.Errorf("bar %q: %w", b.Label, err)
		}
		r.bars = append(r.bars, ref)
	}

	if r.scene.Background != "" {
		e, err := r.lookup(r.scene.Background)
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		if e.kind != KindColor {
			return fmt.Errorf("background: %s is %s, want color", e.path, e.kind)
		}
		r.background = e
	}
	return nil
}

func (r *Runtime) createProperty(object string, owner bind.Handle, p PropertySpec) error {
	path := object + "." + p.Name
	v, err := p.Type.Decode(&p.Value)
	if err != nil {
		return fmt.Errorf("property %s: %w", path, err)
	}
	prop := newValueProp(p.Type, v)
	def := bind.PropertyDefinition{Name: p.Name, OwnerType: objectType, ValueType: prop.Type()}

	var h bind.Handle
	if p.ReadOnly {
		h, err = r.svc.CreateReadOnlyDependencyObjectProperty(owner, def, prop)
	} else {
		h, err = r.svc.CreateDependencyObjectProperty(owner, def, prop)
	}
	if err != nil {
		return err
	}
	r.props[path] = &propEntry{path: path, h: h, kind: p.Type, prop: prop}
	return nil
}

func (r *Runtime) bind(spec BindingSpec) error {
	target, err := r.lookup(spec.Target)
	if err != nil {
		return err
	}
	source, err := r.lookup(spec.Source)
	if err != nil {
		return err
	}

	var b bind.Binding
	switch {
	case spec.Converter != nil:
		c, err := newConverter(*spec.Converter, r.printer)
		if err != nil {
			return err
		}
		if spec.Mode == ModeTwoWay {
			b = bind.ConvertTwoWay(source.h, c)
		} else {
			b = bind.Convert(source.h, c)
		}
	case spec.Mode == ModeTwoWay:
		b = bind.TwoWay(source.h)
	default:
		b = bind.OneWay(source.h)
	}
	_, err = r.svc.SetBinding(target.h, b)
	return err
}

// watcher records the value of its source after every change.
type watcher struct {
	r    *Runtime
	path string
}

func (w *watcher) OnChanged(source bind.Handle) error {
	v, ok := w.r.svc.Value(source)
	if !ok {
		return fmt.Errorf("%s has no value", w.path)
	}
	w.r.events = append(w.r.events, Event{Step: w.r.step, Property: w.path, Value: v})
	return nil
}

func (r *Runtime) watch(path string) error {
	e, err := r.lookup(path)
	if err != nil {
		return err
	}
	def := bind.PropertyDefinition{Name: path, OwnerType: watcherType}
	h, err := r.svc.CreateDependencyObjectObserverProperty(r.watchers, def, &watcher{r: r, path: path})
	if err != nil {
		return err
	}
	_, err = r.svc.SetBinding(h, bind.OneWay(e.h))
	return err
}

func (r *Runtime) resolveBar(b BarSpec) (barRef, error) {
	ref := barRef{label: b.Label, max: b.Max}
	var err error
	if ref.value, err = r.lookup(b.Value); err != nil {
		return ref, err
	}
	if _, ok := asFloat(ref.value.kind.Zero()); !ok {
		return ref, fmt.Errorf("value %s is %s, want a number", b.Value, ref.value.kind)
	}
	if b.Text != "" {
		if ref.text, err = r.lookup(b.Text); err != nil {
			return ref, err
		}
	}

	c := defaultString(b.Color, defaultBarColor)
	if c[0] == '#' {
		ref.color, err = color.Hex(c)
		return ref, err
	}
	if ref.colorProp, err = r.lookup(c); err != nil {
		return ref, err
	}
	if ref.colorProp.kind != KindColor {
		return ref, fmt.Errorf("color %s is %s, want color", c, ref.colorProp.kind)
	}
	return ref, nil
}

func (r *Runtime) lookup(path string) (*propEntry, error) {
	object, _, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if _, ok := r.objects[object]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownObject, object)
	}
	e, ok := r.props[path]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProperty, path)
	}
	return e, nil
}

// Service returns the service the scene was built on.
func (r *Runtime) Service() *bind.Service { return r.svc }

// Scene returns the scene description.
func (r *Runtime) Scene() *Scene { return r.scene }

// Steps returns the number of scripted steps.
func (r *Runtime) Steps() int { return len(r.scene.Steps) }

// Events returns the changes recorded by watchers so far.
func (r *Runtime) Events() []Event { return slices.Clone(r.events) }

// Value returns the current value of the property at path.
func (r *Runtime) Value(path string) (any, bool) {
	e, ok := r.props[path]
	if !ok || !r.svc.IsAlive(e.h) {
		return nil, false
	}
	return e.prop.value, true
}

// Step applies Steps[i] and runs ExecuteChanges.
//
// Errors from the step itself are returned as is. Propagation failures of
// the pass are returned wrapped; they can be told apart with errors.As
// and a *bind.PropagationError target.
func (r *Runtime) Step(i int) error {
	if i < 0 || i >= len(r.scene.Steps) {
		return fmt.Errorf("step %d out of range [0,%d)", i, len(r.scene.Steps))
	}
	st := r.scene.Steps[i]
	r.step = i + 1

	for _, path := range slices.Sorted(maps.Keys(st.Set)) {
		node := st.Set[path]
		if err := r.set(path, &node); err != nil {
			return fmt.Errorf("step %d: set %s: %w", r.step, path, err)
		}
	}
	for _, path := range st.Unbind {
		e, err := r.lookup(path)
		if err != nil {
			return fmt.Errorf("step %d: unbind: %w", r.step, err)
		}
		r.svc.ClearBinding(e.h)
	}
	for _, name := range st.Destroy {
		h, ok := r.objects[name]
		if !ok {
			return fmt.Errorf("step %d: destroy: %w %q", r.step, ErrUnknownObject, name)
		}
		r.svc.DestroyInstance(h)
	}

	if err := r.svc.ExecuteChanges(); err != nil {
		return fmt.Errorf("step %d: %w", r.step, err)
	}
	return nil
}

// set stores a new value the way a property owner does: report the change
// first, then replace the value.
func (r *Runtime) set(path string, node *yaml.Node) error {
	e, err := r.lookup(path)
	if err != nil {
		return err
	}
	if !r.svc.IsAlive(e.h) {
		return ErrDestroyed
	}
	v, err := e.kind.Decode(node)
	if err != nil {
		return err
	}
	if v == e.prop.value {
		return nil
	}
	if _, err := r.svc.Changed(e.h, bind.ChangeModified); err != nil {
		return err
	}
	e.prop.value = v
	return nil
}

// Run calls fn with the initial frame and then with the frame after every
// step. Propagation failures do not stop the run; they are returned joined
// at the end. Any other error stops the run.
func (r *Runtime) Run(ctx context.Context, fn func(step int, l frame.Layout) error) error {
	var failures []error
	for i := 0; i <= len(r.scene.Steps); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if err := r.Step(i - 1); err != nil {
				var perr *bind.PropagationError
				if !errors.As(err, &perr) {
					return err
				}
				failures = append(failures, err)
			}
		}
		if err := fn(i, r.Layout()); err != nil {
			return err
		}
	}
	return errors.Join(failures...)
}

// Layout returns a frame of the current values.
func (r *Runtime) Layout() frame.Layout {
	l := frame.Layout{
		Width:  r.scene.Width,
		Height: r.scene.Height,
		Title:  r.scene.Name,
	}
	if r.background != nil {
		if v, ok := r.Value(r.background.path); ok {
			l.Background = v.(gputypes.Color)
		}
	}
	for _, b := range r.bars {
		bar := frame.Bar{Label: b.label, Max: b.max, Color: b.color}
		if v, ok := r.Value(b.value.path); ok {
			bar.Value, _ = asFloat(v)
		}
		if b.text != nil {
			if v, ok := r.Value(b.text.path); ok {
				bar.Text = r.format(v)
			}
		}
		if b.colorProp != nil {
			if v, ok := r.Value(b.colorProp.path); ok {
				bar.Color = v.(gputypes.Color)
			}
		}
		l.Bars = append(l.Bars, bar)
	}
	return l
}

func (r *Runtime) format(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case gputypes.Color:
		return color.FormatHex(v)
	}
	return r.printer.Sprint(v)
}

// Close destroys every object of the scene and runs a final pass to
// release them.
func (r *Runtime) Close() error {
	for _, o := range r.scene.Objects {
		if h, ok := r.objects[o.Name]; ok {
			r.svc.DestroyInstance(h)
		}
	}
	if r.watchers.IsValid() {
		r.svc.DestroyInstance(r.watchers)
	}
	return r.svc.ExecuteChanges()
}

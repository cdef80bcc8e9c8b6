package bind

import (
	"log/slog"

	"github.com/gogpu/bind/internal/slotmap"
	"github.com/gogpu/bind/internal/twoway"
)

// Service owns the binding graph: every object, property and data source
// together with the bindings between them.
//
// Instances are created and destroyed through the Service and referred to
// by Handle. Changes are queued with Changed and propagated in phases by
// ExecuteChanges, normally once per update tick.
//
// Service is not safe for concurrent use. All calls must come from the
// goroutine that drives ExecuteChanges.
type Service struct {
	opts      serviceOptions
	instances *slotmap.Map[*record]
	groups    *twoway.Manager[Handle]
	ctx       callContext

	pending         []Handle // handles passed to Changed, in arrival order
	marked          []Handle // handles flagged stale
	oneWay          []Handle // roots queued for a one-way push
	observerCalls   []observerCall
	pendingBindings []pendingBinding
	scheduled       []Handle // handles waiting for physical destroy

	errs []error // isolated failures of the running ExecuteChanges
}

type observerCall struct {
	target Handle
	source Handle
}

type pendingBinding struct {
	target  Handle
	binding Binding
}

// NewService creates an empty Service.
func NewService(opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		opts:      o,
		instances: slotmap.New[*record](64),
		groups:    twoway.New[Handle](),
	}
}

func (s *Service) log() *slog.Logger {
	if s.opts.logger != nil {
		return s.opts.logger
	}
	return Logger()
}

// get returns the record of h, including instances scheduled for destroy.
func (s *Service) get(h Handle) (*record, bool) {
	return s.instances.Get(slotmap.Key(h))
}

// live returns the record of h unless it is gone or scheduled for destroy.
func (s *Service) live(h Handle) (*record, bool) {
	rec, ok := s.get(h)
	if !ok || !rec.alive() {
		return nil, false
	}
	return rec, true
}

func (s *Service) insert(rec *record) Handle {
	return Handle(s.instances.Insert(rec))
}

func (s *Service) checkCreateContext(op string) error {
	switch s.ctx.state {
	case stateIdle, stateExecutingObserverCallbacks:
		return nil
	}
	return usageError(op, RoleInstance, 0, ErrInvalidContext, s.ctx.state.String())
}

// CreateDataSourceObject creates a data source object. A data source holds
// no bindable value of its own; observer properties bound to it are
// notified whenever it reports a change. Only sources created with
// DataSourceObservable may report changes.
func (s *Service) CreateDataSourceObject(flags DataSourceFlags) (Handle, error) {
	if err := s.checkCreateContext("CreateDataSourceObject"); err != nil {
		return 0, err
	}
	rec := &record{kind: KindDataSourceObject}
	if flags&DataSourceObservable != 0 {
		rec.flags |= flagObservable
	}
	return s.insert(rec), nil
}

// CreateDependencyObject creates an object that can own properties.
func (s *Service) CreateDependencyObject() (Handle, error) {
	if err := s.checkCreateContext("CreateDependencyObject"); err != nil {
		return 0, err
	}
	return s.insert(&record{kind: KindDependencyObject}), nil
}

// CreateDependencyObjectProperty creates a read-write property on owner.
func (s *Service) CreateDependencyObjectProperty(owner Handle, def PropertyDefinition, m PropertyMethods) (Handle, error) {
	return s.createProperty("CreateDependencyObjectProperty", owner, def, &record{
		kind:    KindDependencyProperty,
		flags:   flagObservable,
		methods: m,
	})
}

// CreateReadOnlyDependencyObjectProperty creates a property that can be a
// binding source but never a binding target.
func (s *Service) CreateReadOnlyDependencyObjectProperty(owner Handle, def PropertyDefinition, m PropertyMethods) (Handle, error) {
	return s.createProperty("CreateReadOnlyDependencyObjectProperty", owner, def, &record{
		kind:    KindReadOnlyDependencyProperty,
		flags:   flagObservable | flagReadOnly,
		methods: m,
	})
}

// CreateDependencyObjectObserverProperty creates a property that is
// notified through m when its one-way source changes.
func (s *Service) CreateDependencyObjectObserverProperty(owner Handle, def PropertyDefinition, m ObserverMethods) (Handle, error) {
	return s.createProperty("CreateDependencyObjectObserverProperty", owner, def, &record{
		kind:     KindObserverProperty,
		observer: m,
	})
}

func (s *Service) createProperty(op string, owner Handle, def PropertyDefinition, rec *record) (Handle, error) {
	if err := s.checkCreateContext(op); err != nil {
		return 0, err
	}
	orec, ok := s.live(owner)
	if !ok || (orec.kind != KindDependencyObject && orec.kind != KindDataSourceObject) {
		return 0, usageError(op, RoleOwner, owner, ErrInvalidOwner, "")
	}
	if rec.kind == KindObserverProperty {
		if rec.observer == nil {
			return 0, usageError(op, RoleOwner, owner, ErrNilMethods, def.String())
		}
	} else {
		if rec.methods == nil {
			return 0, usageError(op, RoleOwner, owner, ErrNilMethods, def.String())
		}
		if def.ValueType != nil && def.ValueType != rec.methods.Type() {
			return 0, usageError(op, RoleOwner, owner, ErrIncompatibleTypes,
				def.String()+" declares "+def.ValueType.String()+", methods hold "+typeName(rec.methods.Type()))
		}
	}
	if _, dup := s.lookupProperty(orec, def); dup {
		return 0, usageError(op, RoleOwner, owner, ErrDuplicateProperty, def.String())
	}

	rec.owner = owner
	rec.def = def
	h := s.insert(rec)
	orec.properties = append(orec.properties, h)
	return h, nil
}

// DestroyProperty schedules the property h for destroy.
// Returns false if h is not a live property.
func (s *Service) DestroyProperty(h Handle) bool {
	rec, ok := s.live(h)
	if !ok || !rec.kind.IsProperty() {
		return false
	}
	s.scheduleDestroy(h, rec)
	return true
}

// DestroyInstance schedules h for destroy. Properties owned by h are
// destroyed with it. The handle stops being alive immediately, but its
// record is only released at the end of the next ExecuteChanges pass.
// Returns false if h is not alive.
func (s *Service) DestroyInstance(h Handle) bool {
	rec, ok := s.live(h)
	if !ok {
		return false
	}
	s.scheduleDestroy(h, rec)
	return true
}

func (s *Service) scheduleDestroy(h Handle, rec *record) {
	rec.flags |= flagDestroyScheduled
	for _, p := range rec.properties {
		if prec, ok := s.get(p); ok {
			prec.flags |= flagDestroyScheduled
		}
	}
	s.scheduled = append(s.scheduled, h)
}

// IsPropertyReadOnly reports whether h can not be a binding target.
// Handles that are not alive are reported read-only.
func (s *Service) IsPropertyReadOnly(h Handle) bool {
	rec, ok := s.live(h)
	if !ok {
		return true
	}
	return rec.has(flagReadOnly)
}

// IsEffectivelyReadOnly reports whether writing h from outside the engine
// would be overwritten or rejected: h is read-only, not alive, or the
// target of a one-way binding. Two-way targets stay writable. While
// ExecuteChanges is pushing values into targets a live property is
// reported writable so methods may store what the binding delivers.
func (s *Service) IsEffectivelyReadOnly(h Handle) bool {
	rec, ok := s.live(h)
	if !ok {
		return true
	}
	if rec.has(flagReadOnly) {
		return true
	}
	if s.ctx.state == stateExecutingChanges {
		return false
	}
	return rec.bound() && rec.mode == OneWayMode
}

// Changed queues h for propagation on the next ExecuteChanges pass and
// marks everything bound to it as stale. It returns true if h was newly
// queued and false if it was already pending or is not alive.
//
// A pending Refresh is upgraded by a later Modified. During change
// propagation Changed may only be called for the handle whose method is
// running, and is then ignored.
func (s *Service) Changed(h Handle, reason ChangeReason) (bool, error) {
	if reason != ChangeRefresh && reason != ChangeModified {
		return false, usageError("Changed", RoleInstance, h, ErrInvalidChangeReason, reason.String())
	}
	rec, ok := s.live(h)
	if !ok {
		return false, nil
	}
	if s.ctx.state == stateExecutingChanges {
		if s.ctx.contains(h) {
			return false, nil
		}
		return false, usageError("Changed", RoleInstance, h, ErrInvalidContext, s.ctx.state.String())
	}
	if !rec.has(flagObservable) {
		return false, usageError("Changed", RoleInstance, h, ErrNotObservable, rec.kind.String())
	}
	return s.scheduleChange(h, rec, reason), nil
}

func (s *Service) scheduleChange(h Handle, rec *record, reason ChangeReason) bool {
	if rec.change != 0 {
		if reason >= rec.change {
			// The latest change wins ties, so move h behind the others.
			rec.change = reason
			s.pending = append(removeHandle(s.pending, h), h)
		}
		return false
	}
	rec.change = reason
	s.pending = append(s.pending, h)
	s.markStale(s.treeRoot(h))
	return true
}

// treeRoot follows live binding sources up from h.
func (s *Service) treeRoot(h Handle) Handle {
	for {
		rec, ok := s.get(h)
		if !ok || !rec.bound() {
			return h
		}
		if _, ok := s.live(rec.source); !ok {
			return h
		}
		h = rec.source
	}
}

// markStale flags h and everything bound below it.
func (s *Service) markStale(h Handle) {
	rec, ok := s.get(h)
	if !ok || rec.has(flagStale) {
		return
	}
	rec.flags |= flagStale
	s.marked = append(s.marked, h)
	for _, d := range rec.dependents {
		s.markStale(d)
	}
}

// LookupProperty returns the live property of owner registered under def.
func (s *Service) LookupProperty(owner Handle, def PropertyDefinition) (Handle, bool) {
	orec, ok := s.live(owner)
	if !ok {
		return 0, false
	}
	return s.lookupProperty(orec, def)
}

func (s *Service) lookupProperty(orec *record, def PropertyDefinition) (Handle, bool) {
	for _, p := range orec.properties {
		if prec, ok := s.live(p); ok && prec.def == def {
			return p, true
		}
	}
	return 0, false
}

// Value returns the current value of the property h.
func (s *Service) Value(h Handle) (any, bool) {
	rec, ok := s.live(h)
	if !ok || rec.methods == nil {
		return nil, false
	}
	return rec.methods.TryGetAsSource()
}

// IsAlive reports whether h names an instance that is not scheduled for destroy.
func (s *Service) IsAlive(h Handle) bool {
	_, ok := s.live(h)
	return ok
}

// Contains reports whether the record of h is still held by the store.
// A destroyed handle stays contained until the end of the next pass.
func (s *Service) Contains(h Handle) bool {
	return s.instances.Contains(slotmap.Key(h))
}

// Kind returns the kind of a contained instance.
func (s *Service) Kind(h Handle) (InstanceKind, bool) {
	rec, ok := s.get(h)
	if !ok {
		return 0, false
	}
	return rec.kind, true
}

// InstanceCount returns the number of records in the store, including
// those scheduled for destroy.
func (s *Service) InstanceCount() int { return s.instances.Len() }

// PendingChanges returns the number of handles queued by Changed.
func (s *Service) PendingChanges() int { return len(s.pending) }

// PendingDestroys returns the number of scheduled destroys.
func (s *Service) PendingDestroys() int { return len(s.scheduled) }

// Close releases scheduled destroys and logs instances that are still
// alive. Close must not be called from inside ExecuteChanges.
func (s *Service) Close() {
	if s.ctx.state != stateIdle {
		s.log().Error("bind: Close called during ExecuteChanges", "state", s.ctx.state.String())
		return
	}
	s.destroyScheduledNow()
	if n := s.instances.Len(); n > 0 {
		s.log().Warn("bind: instances still alive at close", "count", n)
	}
}

func typeName(t interface{ String() string }) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

package bind

import (
	"fmt"

	"github.com/gogpu/bind/internal/slotmap"
)

// SetBinding binds target to b.Source. It returns true if the binding
// changed; binding a target again with the same source, mode and
// converter is a no-op.
//
// The binding is validated before anything is modified: on error the
// previous binding of target is left in place. A Binding with an invalid
// Source clears the binding of target.
//
// Called from a property method during ExecuteChanges, the binding is
// validated immediately and applied after the value phases of the
// current pass. Otherwise it is applied at once. The source receives a
// Refresh change so the target picks up its value on the next pass.
func (s *Service) SetBinding(target Handle, b Binding) (bool, error) {
	if !b.Source.IsValid() {
		return s.ClearBinding(target), nil
	}
	if err := s.validateBinding("SetBinding", target, b); err != nil {
		return false, err
	}
	if s.ctx.state == stateExecutingChanges {
		s.pendingBindings = append(s.pendingBindings, pendingBinding{target: target, binding: b})
		return true, nil
	}
	return s.setBindingNow(target, b), nil
}

// ClearBinding removes the binding of target. It returns false if target
// is not alive or not bound. During change propagation the removal is
// deferred like SetBinding.
func (s *Service) ClearBinding(target Handle) bool {
	rec, ok := s.live(target)
	if !ok {
		return false
	}
	if s.ctx.state == stateExecutingChanges {
		s.pendingBindings = append(s.pendingBindings, pendingBinding{target: target})
		return rec.bound()
	}
	return s.clearBindingNow(target, rec)
}

func (s *Service) validateBinding(op string, target Handle, b Binding) error {
	trec, ok := s.live(target)
	if !ok {
		return usageError(op, RoleTarget, target, ErrDeadInstance, "")
	}
	srec, ok := s.live(b.Source)
	if !ok {
		return usageError(op, RoleSource, b.Source, ErrDeadInstance, "")
	}
	if target == b.Source {
		return usageError(op, RoleTarget, target, ErrSelfBinding, "")
	}
	if b.Mode != OneWayMode && b.Mode != TwoWayMode {
		return usageError(op, RoleTarget, target, ErrUnsupportedBinding, fmt.Sprintf("mode %d", b.Mode))
	}

	switch trec.kind {
	case KindReadOnlyDependencyProperty:
		return usageError(op, RoleTarget, target, ErrReadOnlyTarget, trec.def.String())

	case KindObserverProperty:
		if b.Mode != OneWayMode || b.Converter != nil {
			return usageError(op, RoleTarget, target, ErrUnsupportedBinding,
				"observer properties only take plain one-way bindings")
		}
		if srec.kind == KindObserverProperty || srec.kind == KindDependencyObject {
			return usageError(op, RoleSource, b.Source, ErrIncompatibleProperties,
				srec.kind.String()+" can not be observed")
		}

	case KindDependencyProperty:
		if err := s.validatePropertyBinding(op, target, trec, srec, b); err != nil {
			return err
		}

	default:
		return usageError(op, RoleTarget, target, ErrIncompatibleProperties,
			trec.kind.String()+" can not be a binding target")
	}

	// Walk up from the source; reaching the target closes a cycle.
	limit := s.instances.Len()
	for h := b.Source; h.IsValid() && limit >= 0; limit-- {
		if h == target {
			return usageError(op, RoleSource, b.Source, ErrCyclicBinding, "")
		}
		rec, ok := s.get(h)
		if !ok {
			break
		}
		h = rec.source
	}
	return nil
}

func (s *Service) validatePropertyBinding(op string, target Handle, trec, srec *record, b Binding) error {
	switch srec.kind {
	case KindDependencyProperty, KindReadOnlyDependencyProperty:
	case KindObserverProperty:
		if b.Mode == TwoWayMode {
			return usageError(op, RoleSource, b.Source, ErrTwoWaySource, "observer properties hold no value")
		}
		return usageError(op, RoleSource, b.Source, ErrIncompatibleProperties, "observer properties hold no value")
	default:
		return usageError(op, RoleSource, b.Source, ErrIncompatibleProperties,
			srec.kind.String()+" can not be a property source")
	}

	st, tt := srec.methods.Type(), trec.methods.Type()
	if c := b.Converter; c != nil {
		if c.SourceType() != st || c.TargetType() != tt {
			return usageError(op, RoleSource, b.Source, ErrIncompatibleTypes,
				fmt.Sprintf("converter maps %v to %v, binding maps %v to %v", c.SourceType(), c.TargetType(), st, tt))
		}
		if b.Mode == TwoWayMode && !c.CanConvertBack() {
			return usageError(op, RoleTarget, target, ErrUnsupportedBinding, "two-way converter without ConvertBack")
		}
	} else if st != tt {
		return usageError(op, RoleSource, b.Source, ErrIncompatibleTypes, fmt.Sprintf("%v to %v", st, tt))
	}

	if b.Mode == TwoWayMode {
		if srec.kind == KindReadOnlyDependencyProperty {
			return usageError(op, RoleSource, b.Source, ErrTwoWaySource, "source is read-only")
		}
		if srec.bound() && srec.mode == OneWayMode {
			return usageError(op, RoleSource, b.Source, ErrTwoWaySource, "source is the target of a one-way binding")
		}
		return nil
	}
	for _, d := range trec.dependents {
		if drec, ok := s.get(d); ok && drec.mode == TwoWayMode {
			return usageError(op, RoleTarget, target, ErrTwoWayTarget, "target is the source of a two-way binding")
		}
	}
	return nil
}

// setBindingNow applies a validated binding.
func (s *Service) setBindingNow(target Handle, b Binding) bool {
	trec, ok := s.live(target)
	if !ok {
		return false
	}
	if trec.source == b.Source && trec.mode == b.Mode && sameConverter(trec.converter, b.Converter) {
		return false
	}
	s.clearBindingNow(target, trec)

	srec, ok := s.get(b.Source)
	if !ok {
		return false
	}
	trec.source = b.Source
	trec.mode = b.Mode
	trec.converter = b.Converter
	srec.dependents = append(srec.dependents, target)

	switch {
	case srec.has(flagStale):
		s.markStale(target)
	case trec.has(flagStale):
		s.markStale(s.treeRoot(b.Source))
	}
	if b.Mode == TwoWayMode {
		s.groups.Merge(target, b.Source)
	}
	if srec.has(flagObservable) {
		s.scheduleChange(b.Source, srec, ChangeRefresh)
	}
	return true
}

func (s *Service) clearBindingNow(target Handle, trec *record) bool {
	if !trec.bound() {
		return false
	}
	twoWay := trec.mode == TwoWayMode
	g := s.groups.Find(target)
	s.detachSource(target, trec)
	if twoWay && g != 0 {
		s.groups.Rebuild(g, s.twoWayNeighbors)
	}
	return true
}

func (s *Service) detachSource(h Handle, rec *record) {
	if srec, ok := s.get(rec.source); ok {
		srec.dependents = removeHandle(srec.dependents, h)
	}
	rec.source = 0
	rec.mode = OneWayMode
	rec.converter = nil
}

// twoWayNeighbors returns the handles joined to h by a two-way binding.
func (s *Service) twoWayNeighbors(h Handle) []Handle {
	rec, ok := s.get(h)
	if !ok {
		return nil
	}
	var out []Handle
	if rec.bound() && rec.mode == TwoWayMode {
		out = append(out, rec.source)
	}
	for _, d := range rec.dependents {
		if drec, ok := s.get(d); ok && drec.mode == TwoWayMode {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) destroyScheduledNow() {
	for len(s.scheduled) > 0 {
		list := s.scheduled
		s.scheduled = nil
		for _, h := range list {
			s.doDestroyNow(h)
		}
	}
}

// doDestroyNow removes h and its properties from the store together with
// every binding edge that touches them.
func (s *Service) doDestroyNow(h Handle) {
	rec, ok := s.get(h)
	if !ok {
		return
	}

	props := rec.properties
	rec.properties = nil
	for _, p := range props {
		s.doDestroyNow(p)
	}

	g := s.groups.Find(h)
	if rec.bound() {
		s.detachSource(h, rec)
	}
	for _, d := range rec.dependents {
		if drec, ok := s.get(d); ok {
			drec.source = 0
			drec.mode = OneWayMode
			drec.converter = nil
		}
	}
	rec.dependents = nil
	if g != 0 {
		s.groups.Remove(h)
		s.groups.Rebuild(g, s.twoWayNeighbors)
	}

	if orec, ok := s.get(rec.owner); ok {
		orec.properties = removeHandle(orec.properties, h)
	}
	s.instances.Remove(slotmap.Key(h))
	s.log().Debug("bind: destroyed instance", "handle", h.String(), "kind", rec.kind.String())
}

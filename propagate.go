package bind

import (
	"errors"
	"fmt"

	"github.com/gogpu/bind/internal/twoway"
)

// ExecuteChanges propagates every queued change through the binding graph.
//
// A pass runs these phases in order:
//  1. pending changes are sorted into two-way groups and one-way roots
//  2. each touched two-way group is reconciled from its originator
//  3. one-way roots push their values down to their targets
//  4. bindings requested during phases 1 to 3 are applied
//  5. observer callbacks run
//  6. scheduled destroys are released
//
// Passes repeat while callbacks queue new changes, up to the limit set by
// WithMaxExecuteLoops. A failure of a single property method does not stop
// the pass; all such failures are returned joined as *PropagationError
// values. Calling ExecuteChanges from inside a pass returns a *UsageError.
func (s *Service) ExecuteChanges() error {
	if s.ctx.state != stateIdle {
		return usageError("ExecuteChanges", RoleInstance, 0, ErrReentrantExecute, s.ctx.state.String())
	}
	s.errs = nil

	for loops := 1; ; loops++ {
		s.runPass()
		if len(s.pending) == 0 {
			break
		}
		if loops >= s.opts.maxExecuteLoops {
			s.log().Warn("bind: execute loop limit reached",
				"loops", loops, "pending", len(s.pending))
			break
		}
	}

	errs := s.errs
	s.errs = nil
	return errors.Join(errs...)
}

func (s *Service) runPass() {
	defer s.ctx.reset()

	s.ctx.state = stateExecutingChanges
	originators := s.determinePendingChanges()
	s.sanityAfter(PhaseDetermine)

	for _, o := range originators {
		s.reconcileTwoWay(o)
	}
	s.sanityAfter(PhaseTwoWay)

	for i := 0; i < len(s.oneWay); i++ {
		s.pushOneWay(s.oneWay[i])
	}
	s.clearPassMarks()
	s.sanityAfter(PhaseOneWay)

	s.ctx.state = stateExecutePendingBindings
	s.applyPendingBindings()
	s.sanityAfter(PhaseBindings)

	s.ctx.state = stateExecutingObserverCallbacks
	s.runObserverCallbacks()
	s.sanityAfter(PhaseObservers)

	s.destroyScheduledNow()
	s.ctx.state = stateIdle
	s.sanityAfter(PhaseDestroy)
}

type originator struct {
	group  twoway.GroupID
	h      Handle
	reason ChangeReason
}

// determinePendingChanges drains the pending queue. Two-way group members
// elect one originator per group: the strongest reason wins and ties go
// to the latest change. Everything else queues its one-way root.
func (s *Service) determinePendingChanges() []originator {
	pending := s.pending
	s.pending = nil

	var origins []originator
	for _, h := range pending {
		rec, ok := s.get(h)
		if !ok {
			continue
		}
		reason := rec.change
		rec.change = 0
		if !rec.alive() || reason == 0 {
			continue
		}

		if g := s.groups.Find(h); g != 0 {
			i := 0
			for i < len(origins) && origins[i].group != g {
				i++
			}
			switch {
			case i == len(origins):
				origins = append(origins, originator{group: g, h: h, reason: reason})
			case reason >= origins[i].reason:
				origins[i].h = h
				origins[i].reason = reason
			}
			continue
		}
		s.scheduleOneWay(s.oneWayRoot(h))
	}
	return origins
}

// oneWayRoot follows one-way bindings up from h. An explicit change of a
// one-way target is answered by pushing from its root, which restores
// the bound value.
func (s *Service) oneWayRoot(h Handle) Handle {
	for {
		rec, ok := s.get(h)
		if !ok || !rec.bound() || rec.mode != OneWayMode {
			return h
		}
		if _, ok := s.live(rec.source); !ok {
			return h
		}
		h = rec.source
	}
}

func (s *Service) scheduleOneWay(h Handle) {
	rec, ok := s.live(h)
	if !ok || rec.has(flagQueuedOneWay) || len(rec.dependents) == 0 {
		return
	}
	rec.flags |= flagQueuedOneWay
	s.oneWay = append(s.oneWay, h)
}

// reconcileTwoWay spreads the value of the originator through its group.
// Each member is reached over the tree of two-way bindings exactly once,
// never back towards the member it was reached from.
func (s *Service) reconcileTwoWay(o originator) {
	if _, ok := s.live(o.h); !ok {
		return
	}
	type step struct{ h, from Handle }
	queue := []step{{h: o.h}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		s.scheduleOneWay(cur.h)

		rec, ok := s.live(cur.h)
		if !ok {
			continue
		}
		if rec.bound() && rec.mode == TwoWayMode && rec.source != cur.from {
			if _, ok := s.reverseGetSet(rec.source, cur.h); ok {
				queue = append(queue, step{h: rec.source, from: cur.h})
			}
		}
		for _, d := range rec.dependents {
			if d == cur.from {
				continue
			}
			drec, ok := s.live(d)
			if !ok || drec.mode != TwoWayMode {
				continue
			}
			if _, ok := s.getSet(PhaseTwoWay, d, cur.h); ok {
				queue = append(queue, step{h: d, from: cur.h})
			}
		}
	}
}

// pushOneWay pushes the value of h into its one-way targets and on down
// the tree. Observer targets are queued for the callback phase.
func (s *Service) pushOneWay(h Handle) {
	rec, ok := s.live(h)
	if !ok {
		return
	}
	for _, d := range rec.dependents {
		drec, ok := s.live(d)
		if !ok || drec.mode != OneWayMode {
			continue
		}
		if drec.kind == KindObserverProperty {
			s.observerCalls = append(s.observerCalls, observerCall{target: d, source: h})
			continue
		}
		changed, ok := s.getSet(PhaseOneWay, d, h)
		if ok && (changed || drec.has(flagStale)) {
			s.pushOneWay(d)
		}
	}
}

// getSet copies the value of source into target through the converter of
// the target's binding.
func (s *Service) getSet(phase Phase, target, source Handle) (changed, ok bool) {
	trec, tok := s.get(target)
	srec, sok := s.get(source)
	if !tok || !sok || trec.methods == nil || srec.methods == nil {
		return false, false
	}
	var conv func(any) (any, error)
	if trec.converter != nil {
		conv = trec.converter.Convert
	}
	return s.invoke(phase, target, source, func() (bool, error) {
		return transfer(srec.methods, trec.methods, conv)
	})
}

// reverseGetSet copies the value of the two-way target back into its source.
func (s *Service) reverseGetSet(source, target Handle) (changed, ok bool) {
	trec, tok := s.get(target)
	srec, sok := s.get(source)
	if !tok || !sok || trec.methods == nil || srec.methods == nil {
		return false, false
	}
	var conv func(any) (any, error)
	if trec.converter != nil {
		conv = trec.converter.ConvertBack
	}
	return s.invoke(PhaseTwoWay, source, target, func() (bool, error) {
		return transfer(trec.methods, srec.methods, conv)
	})
}

func transfer(from, to PropertyMethods, conv func(any) (any, error)) (bool, error) {
	v, ok := from.TryGetAsSource()
	if !ok {
		return false, ErrSourceUnavailable
	}
	if conv != nil {
		var err error
		if v, err = conv(v); err != nil {
			return false, err
		}
	}
	return to.TrySetFromSource(v)
}

// invoke runs a property method with target and source marked in flight.
// Errors and panics are recorded against the target and reported as ok == false.
func (s *Service) invoke(phase Phase, target, source Handle, fn func() (bool, error)) (changed, ok bool) {
	pushedTarget := s.ctx.push(target)
	pushedSource := s.ctx.push(source)
	defer func() {
		if pushedSource {
			s.ctx.pop()
		}
		if pushedTarget {
			s.ctx.pop()
		}
		if r := recover(); r != nil {
			s.fail(phase, target, source, fmt.Errorf("%w: %v", ErrPropertyPanic, r))
			changed, ok = false, false
		}
	}()

	c, err := fn()
	if err != nil {
		s.fail(phase, target, source, err)
		return false, false
	}
	return c, true
}

func (s *Service) fail(phase Phase, target, source Handle, err error) {
	pe := &PropagationError{Phase: phase, Target: target, Source: source, Err: err}
	s.errs = append(s.errs, pe)
	s.log().Warn("bind: propagation failed",
		"phase", phase.String(),
		"target", target.String(),
		"source", source.String(),
		"error", err)
}

// clearPassMarks drops the stale and queued flags once the value phases
// are done.
func (s *Service) clearPassMarks() {
	for _, h := range s.marked {
		if rec, ok := s.get(h); ok {
			rec.flags &^= flagStale
		}
	}
	s.marked = s.marked[:0]
	for _, h := range s.oneWay {
		if rec, ok := s.get(h); ok {
			rec.flags &^= flagQueuedOneWay
		}
	}
	s.oneWay = s.oneWay[:0]
}

func (s *Service) applyPendingBindings() {
	list := s.pendingBindings
	s.pendingBindings = nil
	for _, pb := range list {
		if !pb.binding.Source.IsValid() {
			if rec, ok := s.live(pb.target); ok {
				s.clearBindingNow(pb.target, rec)
			}
			continue
		}
		// The graph may have changed since the request was validated.
		if err := s.validateBinding("SetBinding", pb.target, pb.binding); err != nil {
			s.fail(PhaseBindings, pb.target, pb.binding.Source, err)
			continue
		}
		s.setBindingNow(pb.target, pb.binding)
	}
}

func (s *Service) runObserverCallbacks() {
	calls := s.observerCalls
	s.observerCalls = nil
	for _, call := range calls {
		rec, ok := s.live(call.target)
		if !ok || rec.observer == nil {
			continue
		}
		obs := rec.observer
		s.invoke(PhaseObservers, call.target, call.source, func() (bool, error) {
			return false, obs.OnChanged(call.source)
		})
	}
}

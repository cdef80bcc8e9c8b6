package bind

import (
	"errors"
	"fmt"
	"slices"
)

// SanityCheck scans the whole graph and returns an error wrapping
// ErrCorruptState for every broken invariant. It must be called outside
// ExecuteChanges.
func (s *Service) SanityCheck() error {
	if s.ctx.state != stateIdle {
		return usageError("SanityCheck", RoleInstance, 0, ErrInvalidContext, s.ctx.state.String())
	}
	return s.checkInvariants(true)
}

func (s *Service) sanityAfter(phase Phase) {
	if !s.opts.sanityChecks {
		return
	}
	if err := s.checkInvariants(s.ctx.state == stateIdle); err != nil {
		s.log().Error("bind: sanity check failed", "phase", phase.String(), "error", err)
	}
}

// checkInvariants verifies the graph. idle adds the checks that only hold
// between passes.
func (s *Service) checkInvariants(idle bool) error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...)))
	}

	pending := make(map[Handle]struct{}, len(s.pending))
	for _, h := range s.pending {
		pending[h] = struct{}{}
	}

	for k, rec := range s.instances.All() {
		h := Handle(k)

		if rec.bound() {
			srec, ok := s.get(rec.source)
			switch {
			case !ok:
				bad("%v is bound to missing source %v", h, rec.source)
			case !slices.Contains(srec.dependents, h):
				bad("%v is bound to %v but not listed as its dependent", h, rec.source)
			default:
				if rec.mode == TwoWayMode {
					g := s.groups.Find(h)
					if g == 0 || g != s.groups.Find(rec.source) {
						bad("two-way binding %v -> %v is not inside one group", rec.source, h)
					}
					if srec.bound() && srec.mode == OneWayMode {
						bad("two-way source %v of %v is a one-way target", rec.source, h)
					}
				}
				if rec.has(flagStale) && srec.alive() && !srec.has(flagStale) {
					bad("%v is stale but its source %v is not", h, rec.source)
				}
			}
		}
		for _, d := range rec.dependents {
			if drec, ok := s.get(d); !ok || drec.source != h {
				bad("dependent %v of %v is not bound to it", d, h)
			}
		}

		if rec.kind.IsProperty() {
			if orec, ok := s.get(rec.owner); !ok || !slices.Contains(orec.properties, h) {
				bad("property %v is not listed by its owner %v", h, rec.owner)
			}
		}
		for _, p := range rec.properties {
			if prec, ok := s.get(p); !ok || prec.owner != h {
				bad("%v lists property %v it does not own", h, p)
			}
		}

		if rec.change != 0 {
			if _, ok := pending[h]; !ok {
				bad("%v has a %v change but is not pending", h, rec.change)
			}
		}
		if idle {
			if rec.has(flagStale) && len(s.pending) == 0 {
				bad("%v is stale with no pending changes", h)
			}
			if rec.has(flagQueuedOneWay) {
				bad("%v is still queued for a one-way push", h)
			}
		}
	}
	return errors.Join(errs...)
}

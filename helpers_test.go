package bind

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

// failOnErrorHandler fails the test for every error-level record, which is
// how sanity check violations surface during ExecuteChanges.
type failOnErrorHandler struct{ t testing.TB }

func (h failOnErrorHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= slog.LevelError
}

func (h failOnErrorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.String())
		return true
	})
	h.t.Errorf("unexpected error log: %s", b.String())
	return nil
}

func (h failOnErrorHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h failOnErrorHandler) WithGroup(string) slog.Handler      { return h }

// newTestService returns a Service that checks its invariants after every
// phase and once more when the test ends.
func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(failOnErrorHandler{t: t})),
		WithSanityChecks(true),
	}
	svc := NewService(append(base, opts...)...)
	t.Cleanup(func() {
		if svc.ctx.state != stateIdle {
			return
		}
		if err := svc.SanityCheck(); err != nil {
			t.Errorf("SanityCheck() at end of test: %v", err)
		}
	})
	return svc
}

type testOwner struct{}

// intProp is a PropertyMethods implementation that records every set.
type intProp struct {
	name  string
	v     int
	sets  int
	trace *[]string // optional shared set log

	fail     error
	panicMsg string
	onSet    func()
}

func (p *intProp) Type() reflect.Type { return reflect.TypeFor[int]() }

func (p *intProp) TryGetAsSource() (any, bool) { return p.v, true }

func (p *intProp) TrySetFromSource(v any) (bool, error) {
	p.sets++
	if p.trace != nil {
		*p.trace = append(*p.trace, p.name)
	}
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.fail != nil {
		return false, p.fail
	}
	i, ok := v.(int)
	if !ok {
		return false, ErrValueType
	}
	if p.onSet != nil {
		p.onSet()
	}
	if i == p.v {
		return false, nil
	}
	p.v = i
	return true, nil
}

func intDef(name string) PropertyDefinition {
	return NewPropertyDefinition[testOwner, int](name)
}

func mustObject(t *testing.T, svc *Service) Handle {
	t.Helper()
	h, err := svc.CreateDependencyObject()
	if err != nil {
		t.Fatalf("CreateDependencyObject() error = %v", err)
	}
	return h
}

func mustProp(t *testing.T, svc *Service, owner Handle, p *intProp) Handle {
	t.Helper()
	h, err := svc.CreateDependencyObjectProperty(owner, intDef(p.name), p)
	if err != nil {
		t.Fatalf("CreateDependencyObjectProperty(%s) error = %v", p.name, err)
	}
	return h
}

func mustBind(t *testing.T, svc *Service, target Handle, b Binding) {
	t.Helper()
	if _, err := svc.SetBinding(target, b); err != nil {
		t.Fatalf("SetBinding(%v, %v) error = %v", target, b.Source, err)
	}
}

func mustExecute(t *testing.T, svc *Service) {
	t.Helper()
	if err := svc.ExecuteChanges(); err != nil {
		t.Fatalf("ExecuteChanges() error = %v", err)
	}
}

func mustChanged(t *testing.T, svc *Service, h Handle) {
	t.Helper()
	if _, err := svc.Changed(h, ChangeModified); err != nil {
		t.Fatalf("Changed(%v) error = %v", h, err)
	}
}

// newProps creates one owner with an int property per name.
func newProps(t *testing.T, svc *Service, names ...string) ([]*intProp, []Handle) {
	t.Helper()
	owner := mustObject(t, svc)
	props := make([]*intProp, len(names))
	handles := make([]Handle, len(names))
	for i, name := range names {
		props[i] = &intProp{name: name}
		handles[i] = mustProp(t, svc, owner, props[i])
	}
	return props, handles
}

func resetSets(props ...*intProp) {
	for _, p := range props {
		p.sets = 0
	}
}

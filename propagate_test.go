package bind

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

func TestOneWayScenario(t *testing.T) {
	svc := newTestService(t)
	owner := mustObject(t, svc)
	p1 := &intProp{name: "P1"}
	p2 := &intProp{name: "P2"}
	h1 := mustProp(t, svc, owner, p1)
	h2 := mustProp(t, svc, owner, p2)

	mustBind(t, svc, h2, OneWay(h1))
	p1.v = 17
	mustChanged(t, svc, h1)
	mustExecute(t, svc)

	if p2.v != p1.v {
		t.Errorf("P2 = %d, want %d", p2.v, p1.v)
	}
	if svc.PendingChanges() != 0 {
		t.Errorf("PendingChanges() = %d, want 0", svc.PendingChanges())
	}
}

func TestChangedIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	_, hs := newProps(t, svc, "A", "B")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustExecute(t, svc)

	for _, reason := range []ChangeReason{ChangeRefresh, ChangeModified} {
		t.Run(reason.String(), func(t *testing.T) {
			ok, err := svc.Changed(hs[0], reason)
			if err != nil || !ok {
				t.Fatalf("first Changed() = %v, %v, want true, nil", ok, err)
			}
			n := svc.PendingChanges()
			for _, again := range []ChangeReason{ChangeRefresh, ChangeModified} {
				ok, err = svc.Changed(hs[0], again)
				if err != nil || ok {
					t.Errorf("repeated Changed(%v) = %v, %v, want false, nil", again, ok, err)
				}
				if got := svc.PendingChanges(); got != n {
					t.Errorf("PendingChanges() = %d, want %d", got, n)
				}
			}
			mustExecute(t, svc)
		})
	}
}

func TestChangedErrors(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	ds, _ := svc.CreateDataSourceObject(0)
	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error { return nil }))
	_, hs := newProps(t, svc, "A")

	tests := []struct {
		name   string
		h      Handle
		reason ChangeReason
		want   error
	}{
		{"object", obj, ChangeModified, ErrNotObservable},
		{"silent data source", ds, ChangeModified, ErrNotObservable},
		{"observer", ob, ChangeModified, ErrNotObservable},
		{"bad reason", hs[0], 0, ErrInvalidChangeReason},
		{"unknown reason", hs[0], 9, ErrInvalidChangeReason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.Changed(tt.h, tt.reason)
			if ok || !errors.Is(err, tt.want) {
				t.Errorf("Changed() = %v, %v, want false, %v", ok, err, tt.want)
			}
		})
	}

	if ok, err := svc.Changed(0, ChangeModified); ok || err != nil {
		t.Errorf("Changed(0) = %v, %v, want false, nil", ok, err)
	}
}

func TestTransitivePropagation(t *testing.T) {
	svc := newTestService(t)
	var trace []string
	props, hs := newProps(t, svc, "A", "B", "C")
	for _, p := range props {
		p.trace = &trace
	}
	a, b, c := hs[0], hs[1], hs[2]
	mustBind(t, svc, b, OneWay(a))
	mustBind(t, svc, c, OneWay(b))
	mustExecute(t, svc)

	resetSets(props...)
	trace = nil
	props[0].v = 3
	mustChanged(t, svc, a)
	mustExecute(t, svc)

	if props[1].sets != 1 || props[2].sets != 1 {
		t.Errorf("sets B, C = %d, %d, want 1, 1", props[1].sets, props[2].sets)
	}
	if !slices.Equal(trace, []string{"B", "C"}) {
		t.Errorf("set order = %v, want [B C]", trace)
	}
	if props[2].v != 3 {
		t.Errorf("C = %d, want 3", props[2].v)
	}
}

func TestFanOut(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "Root", "L", "R", "LL", "RR")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustBind(t, svc, hs[2], OneWay(hs[0]))
	mustBind(t, svc, hs[3], OneWay(hs[1]))
	mustBind(t, svc, hs[4], OneWay(hs[2]))
	mustExecute(t, svc)

	resetSets(props...)
	props[0].v = 6
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)
	for _, p := range props[1:] {
		if p.v != 6 || p.sets != 1 {
			t.Errorf("%s = %d after %d sets, want 6 after 1", p.name, p.v, p.sets)
		}
	}
}

func TestBindingRefreshesTarget(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B")
	props[0].v = 21

	mustBind(t, svc, hs[1], OneWay(hs[0]))
	if svc.PendingChanges() != 1 {
		t.Errorf("PendingChanges() after SetBinding = %d, want 1", svc.PendingChanges())
	}
	mustExecute(t, svc)
	if props[1].v != 21 {
		t.Errorf("B = %d, want 21", props[1].v)
	}
}

func TestOneWayTargetReverts(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B", "C")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustBind(t, svc, hs[2], OneWay(hs[1]))
	props[0].v = 2
	mustExecute(t, svc)

	props[2].v = 99
	mustChanged(t, svc, hs[2])
	mustExecute(t, svc)
	if props[2].v != 2 {
		t.Errorf("C = %d, want 2", props[2].v)
	}
}

func TestTwoWaySymmetry(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B")
	a, b := hs[0], hs[1]
	mustBind(t, svc, b, TwoWay(a))
	mustExecute(t, svc)

	resetSets(props...)
	props[0].v = 5
	mustChanged(t, svc, a)
	mustExecute(t, svc)
	if props[1].v != 5 {
		t.Errorf("B = %d, want 5", props[1].v)
	}
	if props[0].sets != 0 || props[1].sets != 1 {
		t.Errorf("sets A, B = %d, %d, want 0, 1", props[0].sets, props[1].sets)
	}

	resetSets(props...)
	props[1].v = 8
	mustChanged(t, svc, b)
	mustExecute(t, svc)
	if props[0].v != 8 {
		t.Errorf("A = %d, want 8", props[0].v)
	}
	if props[0].sets != 1 || props[1].sets != 0 {
		t.Errorf("sets A, B = %d, %d, want 1, 0", props[0].sets, props[1].sets)
	}
}

func TestTwoWayGroupReconciles(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B", "C", "D", "Out")
	a, b, c, d, out := hs[0], hs[1], hs[2], hs[3], hs[4]
	mustBind(t, svc, b, TwoWay(a))
	mustBind(t, svc, c, TwoWay(b))
	mustBind(t, svc, d, TwoWay(a))
	mustBind(t, svc, out, OneWay(c))
	mustExecute(t, svc)

	resetSets(props...)
	props[2].v = 12
	mustChanged(t, svc, c)
	mustExecute(t, svc)
	for _, p := range props {
		if p.v != 12 {
			t.Errorf("%s = %d, want 12", p.name, p.v)
		}
	}
	for _, p := range []*intProp{props[0], props[1], props[3], props[4]} {
		if p.sets != 1 {
			t.Errorf("%s sets = %d, want 1", p.name, p.sets)
		}
	}
	if props[2].sets != 0 {
		t.Errorf("originator C sets = %d, want 0", props[2].sets)
	}
}

func TestTwoWayOriginator(t *testing.T) {
	tests := []struct {
		name    string
		changes func(svc *Service, a, b Handle)
		want    int
	}{
		{
			name: "latest wins",
			changes: func(svc *Service, a, b Handle) {
				svc.Changed(a, ChangeModified)
				svc.Changed(b, ChangeModified)
			},
			want: 2,
		},
		{
			name: "repeat moves to back",
			changes: func(svc *Service, a, b Handle) {
				svc.Changed(a, ChangeModified)
				svc.Changed(b, ChangeModified)
				svc.Changed(a, ChangeModified)
			},
			want: 1,
		},
		{
			name: "modified beats refresh",
			changes: func(svc *Service, a, b Handle) {
				svc.Changed(b, ChangeModified)
				svc.Changed(a, ChangeRefresh)
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			props, hs := newProps(t, svc, "A", "B")
			mustBind(t, svc, hs[1], TwoWay(hs[0]))
			mustExecute(t, svc)

			props[0].v, props[1].v = 1, 2
			tt.changes(svc, hs[0], hs[1])
			mustExecute(t, svc)
			if props[0].v != tt.want || props[1].v != tt.want {
				t.Errorf("A, B = %d, %d, want %d", props[0].v, props[1].v, tt.want)
			}
		})
	}
}

func TestConverterBindings(t *testing.T) {
	svc := newTestService(t)
	obj, _ := NewObject(svc)
	num := NewProperty(obj, "Num", 7)
	text := NewProperty(obj, "Text", "")
	label := NewProperty(obj, "Label", "")

	src, _ := num.HandleOnDemand()
	conv := NewTwoWayConverter(
		func(i int) (string, error) { return strconv.Itoa(i), nil },
		strconv.Atoi,
	)
	if _, err := text.SetBinding(ConvertTwoWay(src, conv)); err != nil {
		t.Fatalf("SetBinding(text) error = %v", err)
	}
	oneWay := NewConverter(func(i int) (string, error) { return "#" + strconv.Itoa(i), nil })
	if _, err := label.SetBinding(Convert(src, oneWay)); err != nil {
		t.Fatalf("SetBinding(label) error = %v", err)
	}
	mustExecute(t, svc)
	if text.Get() != "7" || label.Get() != "#7" {
		t.Fatalf("text, label = %q, %q, want 7, #7", text.Get(), label.Get())
	}

	if err := text.Set("40"); err != nil {
		t.Fatal(err)
	}
	mustExecute(t, svc)
	if num.Get() != 40 {
		t.Errorf("num = %d, want 40", num.Get())
	}
	if label.Get() != "#40" {
		t.Errorf("label = %q, want #40", label.Get())
	}

	if err := text.Set("forty"); err != nil {
		t.Fatal(err)
	}
	err := svc.ExecuteChanges()
	var pe *PropagationError
	if !errors.As(err, &pe) {
		t.Fatalf("ExecuteChanges() error = %v, want *PropagationError", err)
	}
	if pe.Phase != PhaseTwoWay || pe.Target != src {
		t.Errorf("PropagationError = %+v, want two-way failure on %v", pe, src)
	}
	if num.Get() != 40 {
		t.Errorf("num = %d after failed conversion, want 40", num.Get())
	}
}

func TestErrorIsolation(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		prep func(p *intProp)
		want error
	}{
		{"error", func(p *intProp) { p.fail = boom }, boom},
		{"panic", func(p *intProp) { p.panicMsg = "kaboom" }, ErrPropertyPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			props, hs := newProps(t, svc, "A", "Bad", "Good", "Below")
			a, bad, good, below := hs[0], hs[1], hs[2], hs[3]
			mustBind(t, svc, bad, OneWay(a))
			mustBind(t, svc, good, OneWay(a))
			mustBind(t, svc, below, OneWay(bad))
			mustExecute(t, svc)
			resetSets(props...)

			tt.prep(props[1])
			props[0].v = 3
			mustChanged(t, svc, a)
			err := svc.ExecuteChanges()

			if !errors.Is(err, tt.want) {
				t.Fatalf("ExecuteChanges() error = %v, want %v", err, tt.want)
			}
			var pe *PropagationError
			if !errors.As(err, &pe) || pe.Target != bad || pe.Source != a || pe.Phase != PhaseOneWay {
				t.Errorf("PropagationError = %+v, want one-way %v -> %v", pe, a, bad)
			}
			if props[2].v != 3 {
				t.Errorf("Good = %d, want 3", props[2].v)
			}
			if props[3].sets != 0 {
				t.Errorf("Below sets = %d, want 0", props[3].sets)
			}
			if svc.ctx.state != stateIdle {
				t.Errorf("state = %v after failure, want Idle", svc.ctx.state)
			}

			// The next pass is clean.
			*props[1] = intProp{name: "Bad"}
			mustChanged(t, svc, a)
			mustExecute(t, svc)
			if props[3].v != 3 {
				t.Errorf("Below = %d, want 3", props[3].v)
			}
		})
	}
}

func TestChangedDuringPropagation(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B", "C")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustExecute(t, svc)

	var selfOK bool
	var selfErr, otherErr error
	props[1].onSet = func() {
		selfOK, selfErr = svc.Changed(hs[1], ChangeModified)
		_, otherErr = svc.Changed(hs[2], ChangeModified)
	}
	props[0].v = 1
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)

	if selfOK || selfErr != nil {
		t.Errorf("Changed(self) during set = %v, %v, want false, nil", selfOK, selfErr)
	}
	if !errors.Is(otherErr, ErrInvalidContext) {
		t.Errorf("Changed(other) during set error = %v, want ErrInvalidContext", otherErr)
	}
}

func TestDeferredBinding(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B", "C")
	a, b, c := hs[0], hs[1], hs[2]
	mustBind(t, svc, b, OneWay(a))
	mustExecute(t, svc)

	var setOK bool
	var setErr error
	props[1].onSet = func() {
		props[1].onSet = nil
		setOK, setErr = svc.SetBinding(c, OneWay(b))
		if rec, _ := svc.get(c); rec.bound() {
			t.Error("binding applied during propagation")
		}
	}
	props[0].v = 4
	mustChanged(t, svc, a)
	mustExecute(t, svc)

	if !setOK || setErr != nil {
		t.Fatalf("deferred SetBinding = %v, %v, want true, nil", setOK, setErr)
	}
	if rec, _ := svc.get(c); rec.source != b {
		t.Errorf("C source = %v, want %v", rec.source, b)
	}
	if props[2].v != 4 {
		t.Errorf("C = %d, want 4", props[2].v)
	}
}

func TestDeferredBindingValidatedEarly(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustExecute(t, svc)

	var setErr error
	props[1].onSet = func() {
		_, setErr = svc.SetBinding(hs[0], OneWay(hs[1]))
	}
	props[0].v = 1
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)
	if !errors.Is(setErr, ErrCyclicBinding) {
		t.Errorf("error = %v, want ErrCyclicBinding", setErr)
	}
}

func TestDeferredClearBinding(t *testing.T) {
	svc := newTestService(t)
	props, hs := newProps(t, svc, "A", "B", "C")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustBind(t, svc, hs[2], OneWay(hs[0]))
	mustExecute(t, svc)

	var cleared bool
	props[1].onSet = func() {
		props[1].onSet = nil
		cleared = svc.ClearBinding(hs[2])
	}
	props[0].v = 1
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)
	if !cleared {
		t.Error("deferred ClearBinding() = false")
	}
	if rec, _ := svc.get(hs[2]); rec.bound() {
		t.Error("C is still bound after the pass")
	}

	props[0].v = 2
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)
	if props[2].v == 2 {
		t.Error("C followed A after its binding was cleared")
	}
}

func TestObserverCallbacks(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	ds, _ := svc.CreateDataSourceObject(DataSourceObservable)
	props, hs := newProps(t, svc, "A", "B")
	mustBind(t, svc, hs[1], OneWay(hs[0]))

	var dsCalls []Handle
	var seen []any
	obDS, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "DS"}, observerFunc(func(src Handle) error {
		dsCalls = append(dsCalls, src)
		return nil
	}))
	obB, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "B"}, observerFunc(func(src Handle) error {
		v, _ := svc.Value(src)
		seen = append(seen, v)
		return nil
	}))
	mustBind(t, svc, obDS, OneWay(ds))
	mustBind(t, svc, obB, OneWay(hs[1]))

	// Binding an observer triggers an initial callback.
	mustExecute(t, svc)
	if len(dsCalls) != 1 || dsCalls[0] != ds {
		t.Errorf("data source callbacks = %v, want [%v]", dsCalls, ds)
	}
	if !slices.Equal(seen, []any{0}) {
		t.Errorf("B observer saw %v, want [0]", seen)
	}

	dsCalls, seen = nil, nil
	props[0].v = 9
	mustChanged(t, svc, hs[0])
	mustChanged(t, svc, ds)
	mustExecute(t, svc)
	if len(dsCalls) != 1 {
		t.Errorf("data source callbacks = %d, want 1", len(dsCalls))
	}
	if !slices.Equal(seen, []any{9}) {
		t.Errorf("B observer saw %v, want [9]", seen)
	}
}

func TestObserverCallbackMayChange(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	props, hs := newProps(t, svc, "A", "B", "Count")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustExecute(t, svc)

	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error {
		props[2].v++
		_, err := svc.Changed(hs[2], ChangeModified)
		return err
	}))
	mustBind(t, svc, ob, OneWay(hs[1]))
	mustExecute(t, svc)

	if props[2].v != 1 {
		t.Errorf("Count = %d, want 1", props[2].v)
	}
	if svc.PendingChanges() != 0 {
		t.Errorf("PendingChanges() = %d, want 0", svc.PendingChanges())
	}
}

func TestObserverErrorReported(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	ds, _ := svc.CreateDataSourceObject(DataSourceObservable)
	boom := errors.New("observer failed")
	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error {
		return boom
	}))
	mustBind(t, svc, ob, OneWay(ds))

	err := svc.ExecuteChanges()
	var pe *PropagationError
	if !errors.As(err, &pe) || pe.Phase != PhaseObservers || pe.Target != ob || !errors.Is(err, boom) {
		t.Errorf("ExecuteChanges() error = %v, want observer failure", err)
	}
}

func TestReentrantExecuteRejected(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	ds, _ := svc.CreateDataSourceObject(DataSourceObservable)

	var inner, sanity error
	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error {
		inner = svc.ExecuteChanges()
		sanity = svc.SanityCheck()
		return nil
	}))
	mustBind(t, svc, ob, OneWay(ds))
	mustExecute(t, svc)

	if !errors.Is(inner, ErrReentrantExecute) || !IsUsageError(inner) {
		t.Errorf("nested ExecuteChanges() error = %v, want ErrReentrantExecute", inner)
	}
	if !errors.Is(sanity, ErrInvalidContext) {
		t.Errorf("SanityCheck() inside pass error = %v, want ErrInvalidContext", sanity)
	}
}

func TestExecuteLoopLimit(t *testing.T) {
	svc := newTestService(t, WithMaxExecuteLoops(3))
	obj := mustObject(t, svc)
	ds, _ := svc.CreateDataSourceObject(DataSourceObservable)

	calls := 0
	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error {
		calls++
		_, err := svc.Changed(ds, ChangeModified)
		return err
	}))
	mustBind(t, svc, ob, OneWay(ds))
	mustExecute(t, svc)

	if calls != 3 {
		t.Errorf("callbacks = %d, want 3", calls)
	}
	if svc.PendingChanges() != 1 {
		t.Errorf("PendingChanges() = %d, want 1", svc.PendingChanges())
	}
}

func TestObserverDestroysDuringCallback(t *testing.T) {
	svc := newTestService(t)
	obj := mustObject(t, svc)
	props, hs := newProps(t, svc, "A", "B")
	mustBind(t, svc, hs[1], OneWay(hs[0]))
	mustExecute(t, svc)

	ob, _ := svc.CreateDependencyObjectObserverProperty(obj, PropertyDefinition{Name: "Ob"}, observerFunc(func(Handle) error {
		svc.DestroyInstance(hs[1])
		return nil
	}))
	mustBind(t, svc, ob, OneWay(hs[0]))
	props[0].v = 5
	mustChanged(t, svc, hs[0])
	mustExecute(t, svc)

	if svc.Contains(hs[1]) {
		t.Error("B is still contained after the pass")
	}
	if props[1].v != 5 {
		t.Errorf("B = %d, want 5", props[1].v)
	}
}

func BenchmarkPropagateChain(b *testing.B) {
	svc := NewService()
	owner, _ := svc.CreateDependencyObject()
	const n = 64
	props := make([]*intProp, n)
	hs := make([]Handle, n)
	for i := range props {
		props[i] = &intProp{name: strconv.Itoa(i)}
		hs[i], _ = svc.CreateDependencyObjectProperty(owner, intDef(props[i].name), props[i])
		if i > 0 {
			_, _ = svc.SetBinding(hs[i], OneWay(hs[i-1]))
		}
	}
	_ = svc.ExecuteChanges()

	b.ReportAllocs()
	for b.Loop() {
		props[0].v++
		_, _ = svc.Changed(hs[0], ChangeModified)
		_ = svc.ExecuteChanges()
	}
}

package bind

import (
	"testing"

	"github.com/gogpu/bind/internal/slotmap"
)

func TestHandleString(t *testing.T) {
	tests := []struct {
		h    Handle
		want string
	}{
		{0, "#nil"},
		{Handle(slotmap.Key(1<<32 | 3)), "#3.1"},
		{Handle(slotmap.Key(7<<32 | 0)), "#0.7"},
	}
	for _, tt := range tests {
		if got := tt.h.String(); got != tt.want {
			t.Errorf("Handle(%d).String() = %q, want %q", uint64(tt.h), got, tt.want)
		}
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	svc := newTestService(t)
	first := mustObject(t, svc)
	svc.DestroyInstance(first)
	mustExecute(t, svc)

	second := mustObject(t, svc)
	if second == first {
		t.Fatal("destroyed handle was reissued")
	}
	if svc.IsAlive(first) || svc.Contains(first) {
		t.Error("stale handle resolves to the new instance")
	}
	if svc.DestroyInstance(first) {
		t.Error("DestroyInstance(stale) = true")
	}
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		k        InstanceKind
		want     string
		property bool
	}{
		{KindDataSourceObject, "DataSourceObject", false},
		{KindDependencyObject, "DependencyObject", false},
		{KindDependencyProperty, "DependencyProperty", true},
		{KindReadOnlyDependencyProperty, "ReadOnlyDependencyProperty", true},
		{KindObserverProperty, "ObserverProperty", true},
		{InstanceKind(0), "InstanceKind(0)", false},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.k.IsProperty(); got != tt.property {
			t.Errorf("%v.IsProperty() = %v, want %v", tt.k, got, tt.property)
		}
	}
	if OneWayMode.String() != "OneWay" || TwoWayMode.String() != "TwoWay" {
		t.Error("unexpected BindingMode strings")
	}
}

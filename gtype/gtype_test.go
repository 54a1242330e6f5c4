package gtype

import (
	"errors"
	"testing"

	girerrors "github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/memory"
)

func TestFundamentals(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		typ  Type
		name string
	}{
		{None, "void"},
		{Boolean, "gboolean"},
		{Int, "gint"},
		{String, "gchararray"},
		{Object, "GObject"},
		{Interface, "GInterface"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.typ.IsFundamental() {
				t.Errorf("%d should be fundamental", tt.typ)
			}
			if got := r.Name(tt.typ); got != tt.name {
				t.Errorf("Name = %q, want %q", got, tt.name)
			}
			if got := r.FromName(tt.name); got != tt.typ {
				t.Errorf("FromName = %d, want %d", got, tt.typ)
			}
			if got := r.Fundamental(tt.typ); got != tt.typ {
				t.Errorf("Fundamental = %d, want %d", got, tt.typ)
			}
		})
	}

	if Invalid.IsFundamental() {
		t.Error("Invalid must not be fundamental")
	}
}

func TestRegister_Hierarchy(t *testing.T) {
	r := NewRegistry()

	widget, err := r.Register("GtkWidget", Object)
	if err != nil {
		t.Fatal(err)
	}
	button, err := r.Register("GtkButton", widget)
	if err != nil {
		t.Fatal(err)
	}

	if button.IsFundamental() {
		t.Error("derived type must not be fundamental")
	}
	if r.Parent(button) != widget {
		t.Errorf("Parent(button) = %d, want %d", r.Parent(button), widget)
	}
	if r.Fundamental(button) != Object {
		t.Errorf("Fundamental(button) = %d, want Object", r.Fundamental(button))
	}
	if r.Depth(button) != 3 {
		t.Errorf("Depth(button) = %d, want 3", r.Depth(button))
	}
	if !r.IsA(button, Object) || !r.IsA(button, widget) {
		t.Error("button should be a widget and an object")
	}
	if r.IsA(widget, button) {
		t.Error("widget must not be a button")
	}
	if r.Parent(Object) != Invalid {
		t.Error("fundamentals have no parent")
	}
}

func TestRegister_Errors(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register("", Object); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := r.Register("GObject", Object); err == nil {
		t.Error("expected error for duplicate name")
	}
	_, err := r.Register("Orphan", Type(9999<<2))
	if !errors.Is(err, &girerrors.Error{Phase: girerrors.PhaseType, Kind: girerrors.KindNotFound}) {
		t.Errorf("expected not_found for unknown parent, got %v", err)
	}
}

func TestInterfaces(t *testing.T) {
	r := NewRegistry()
	mem := memory.NewBuffer(64, 0)

	iface, err := r.RegisterInterface("GListModel", Object)
	if err != nil {
		t.Fatal(err)
	}
	store, _ := r.Register("GListStore", Object)
	sub, _ := r.Register("MyStore", store)

	vt := Vtable{Mem: mem, Addr: 16}
	if err := r.AddInterface(store, iface, vt); err != nil {
		t.Fatal(err)
	}
	if err := r.AddInterface(store, Object, vt); err == nil {
		t.Error("expected error adding a non-interface")
	}

	got, ok := r.InterfaceVtable(sub, iface)
	if !ok || got.Addr != 16 {
		t.Errorf("InterfaceVtable(sub) = %+v, %v; want inherited vtable", got, ok)
	}
	if _, ok := r.InterfaceVtable(Object, iface); ok {
		t.Error("GObject does not implement the interface")
	}
	if !r.IsA(sub, iface) {
		t.Error("subclass should satisfy IsA for inherited interface")
	}
	if pre := r.Prerequisites(iface); len(pre) != 1 || pre[0] != Object {
		t.Errorf("Prerequisites = %v", pre)
	}
}

func TestClass(t *testing.T) {
	r := NewRegistry()
	mem := memory.NewBuffer(64, 0)
	obj, _ := r.Register("Thing", Object)

	if _, ok := r.Class(obj); ok {
		t.Error("class should be unset")
	}
	if err := r.SetClass(obj, Vtable{Mem: mem, Addr: 8}); err != nil {
		t.Fatal(err)
	}
	if v, ok := r.Class(obj); !ok || v.Addr != 8 {
		t.Errorf("Class = %+v, %v", v, ok)
	}
	if err := r.SetClass(Type(12345<<2), Vtable{}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestQuark(t *testing.T) {
	if QuarkFromString("") != 0 {
		t.Error("empty string maps to zero quark")
	}
	if QuarkTryString("quark-test-never-interned") != 0 {
		t.Error("TryString must not intern")
	}

	q := QuarkFromString("g-file-error-quark")
	if q == 0 {
		t.Fatal("expected non-zero quark")
	}
	if again := QuarkFromString("g-file-error-quark"); again != q {
		t.Errorf("interning is not stable: %d != %d", again, q)
	}
	if QuarkTryString("g-file-error-quark") != q {
		t.Error("TryString should find interned quark")
	}
	if q.String() != "g-file-error-quark" {
		t.Errorf("String() = %q", q.String())
	}
	if Quark(1 << 30).String() != "" {
		t.Error("unknown quark should stringify empty")
	}
}

package gi

import (
	"math"
	"strings"
	"testing"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/memory"
	"github.com/wippyai/girepository/typelib"
)

func newInstance(t *testing.T, size uint32) (*memory.Buffer, uint32) {
	t.Helper()
	buf := memory.NewBuffer(256, 0)
	base, err := buf.Alloc(size, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return buf, base
}

func TestField_RoundTrip(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	sample := find[*StructInfo](t, repo, "Demo", "Sample")
	buf, base := newInstance(t, sample.Size())

	tests := []struct {
		field string
		value Argument
		tag   TypeTag
	}{
		{"b", NewBoolean(true), typelib.TagBoolean},
		{"i8", NewInt8(-7), typelib.TagInt8},
		{"u8", NewUInt8(250), typelib.TagUInt8},
		{"i16", NewInt16(-30000), typelib.TagInt16},
		{"u16", NewUInt16(65000), typelib.TagUInt16},
		{"i32", NewInt32(math.MinInt32), typelib.TagInt32},
		{"u32", NewUInt32(math.MaxUint32), typelib.TagUInt32},
		{"i64", NewInt64(math.MinInt64 + 1), typelib.TagInt64},
		{"u64", NewUInt64(math.MaxUint64 - 1), typelib.TagUInt64},
		{"f", NewFloat(1.25), typelib.TagFloat},
		{"d", NewDouble(-2.5e100), typelib.TagDouble},
		{"gt", NewGType(gtype.Object), typelib.TagGType},
		{"uc", NewUniChar('λ'), typelib.TagUniChar},
		{"p", NewPointer(0xdead), typelib.TagVoid},
		{"color", NewInt32(-1), typelib.TagInt32},
		{"mode", NewUInt8(3), typelib.TagUInt8},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, ok := sample.FindField(tt.field)
			if !ok {
				t.Fatal("field not found")
			}
			if err := f.Set(buf, base, tt.value); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := f.Get(buf, base)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Bits() != tt.value.Bits() || got.Tag() != tt.tag {
				t.Errorf("got %v (bits %#x), want %v (bits %#x)", got, got.Bits(), tt.value, tt.value.Bits())
			}
		})
	}

	// Neighbouring fields must be untouched by narrower writes.
	i8, _ := sample.FindField("i8")
	u8, _ := sample.FindField("u8")
	if err := i8.Set(buf, base, NewInt8(1)); err != nil {
		t.Fatal(err)
	}
	if v, _ := u8.Get(buf, base); v.UInt8() != 250 {
		t.Errorf("u8 clobbered: %v", v)
	}
}

func TestField_ReadPointer(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	sample := find[*StructInfo](t, repo, "Demo", "Sample")
	buf, base := newInstance(t, sample.Size())

	str, err := memory.WriteCString(buf, buf, "hi")
	if err != nil {
		t.Fatal(err)
	}
	s, _ := sample.FindField("s")
	if err := buf.WriteU32(base+s.Offset(), str); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get(buf, base)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.IsPointer() || v.Pointer() != str || v.Tag() != typelib.TagUTF8 {
		t.Errorf("s = %v", v)
	}
	if got, _ := memory.ReadCString(buf, v.Pointer()); got != "hi" {
		t.Errorf("string = %q", got)
	}

	cb, _ := sample.FindField("cb")
	if err := buf.WriteU32(base+cb.Offset(), 7); err != nil {
		t.Fatal(err)
	}
	if v, err := cb.Get(buf, base); err != nil || v.Pointer() != 7 {
		t.Errorf("cb = %v, %v", v, err)
	}
}

func TestField_Unsupported(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	sample := find[*StructInfo](t, repo, "Demo", "Sample")
	buf, base := newInstance(t, sample.Size())

	tests := []struct {
		field string
		write bool
		want  string
	}{
		{"bits", false, "bitfield"},
		{"bits", true, "bitfield"},
		{"pt", false, "not a scalar"},
		{"pt", true, "not a scalar"},
		{"s", true, "cannot store utf8 pointers"},
		{"cb", true, "cannot store callbacks"},
		{"ro", true, "not writable"},
		{"wo", false, "not readable"},
	}
	for _, tt := range tests {
		name := tt.field + "/get"
		if tt.write {
			name = tt.field + "/set"
		}
		t.Run(name, func(t *testing.T) {
			f, _ := sample.FindField(tt.field)
			var err error
			if tt.write {
				err = f.Set(buf, base, NewInt32(1))
			} else {
				_, err = f.Get(buf, base)
			}
			if errKind(err) != errors.KindUnsupportedFieldAccess {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	x, _ := find[*StructInfo](t, repo, "Demo", "Point").FindField("x")
	if _, err := x.Get(buf, 0); errKind(err) != errors.KindNilPointer {
		t.Errorf("null instance: %v", err)
	}
	if _, err := x.Get(buf, buf.Size()); err == nil {
		t.Error("out of bounds read succeeded")
	}
}

func TestField_SetTypeMismatch(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	sample := find[*StructInfo](t, repo, "Demo", "Sample")
	buf, base := newInstance(t, sample.Size())

	tests := []struct {
		field string
		value Argument
	}{
		{"i32", NewDouble(3.5)},
		{"b", NewPointer(0x40)},
		{"u16", NewInt16(1)},
		{"p", NewInt32(1)},
		{"color", NewUInt32(1)},
		{"mode", NewInt32(1)},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, _ := sample.FindField(tt.field)
			err := f.Set(buf, base, tt.value)
			if errKind(err) != errors.KindTypeMismatch {
				t.Fatalf("err = %v", err)
			}
			if got, err := f.Get(buf, base); err != nil || got.Bits() != 0 {
				t.Errorf("field written anyway: %v, %v", got, err)
			}
		})
	}
}

func TestUnion_Discriminator(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	value := find[*UnionInfo](t, repo, "Demo", "Value")

	if !value.IsDiscriminated() {
		t.Fatal("Value is discriminated")
	}
	if off, err := value.DiscriminatorOffset(); err != nil || off != 0 {
		t.Errorf("offset = %d, %v", off, err)
	}
	if dt, err := value.DiscriminatorType(); err != nil || dt.Tag() != typelib.TagInt32 {
		t.Errorf("type = %v, %v", dt, err)
	}
	for i, want := range []int32{1, 2} {
		c, err := value.Discriminator(i)
		if err != nil {
			t.Fatalf("Discriminator(%d): %v", i, err)
		}
		if c.Value().Int32() != want {
			t.Errorf("Discriminator(%d) = %v", i, c.Value())
		}
	}
	if _, err := value.Discriminator(2); errKind(err) != errors.KindOutOfBounds {
		t.Errorf("Discriminator(2): %v", err)
	}

	buf, base := newInstance(t, value.Size())
	for tag, want := range map[int32]int{1: 0, 2: 1} {
		if err := buf.WriteU32(base, uint32(tag)); err != nil {
			t.Fatal(err)
		}
		got, err := value.ActiveField(buf, base)
		if err != nil || got != want {
			t.Errorf("ActiveField with tag %d = %d, %v", tag, got, err)
		}
		if name := value.Fields().At(got).Name(); name != []string{"i", "d"}[want] {
			t.Errorf("active field %s", name)
		}
	}
	if err := buf.WriteU32(base, 9); err != nil {
		t.Fatal(err)
	}
	if _, err := value.ActiveField(buf, base); errKind(err) != errors.KindNotFound {
		t.Errorf("unknown tag: %v", err)
	}

	raw := find[*UnionInfo](t, repo, "Demo", "Raw")
	if raw.IsDiscriminated() {
		t.Fatal("Raw is not discriminated")
	}
	if _, err := raw.DiscriminatorOffset(); errKind(err) != errors.KindContractViolation {
		t.Errorf("DiscriminatorOffset: %v", err)
	}
	if _, err := raw.DiscriminatorType(); errKind(err) != errors.KindContractViolation {
		t.Errorf("DiscriminatorType: %v", err)
	}
	if _, err := raw.Discriminator(0); errKind(err) != errors.KindContractViolation {
		t.Errorf("Discriminator: %v", err)
	}
	if _, err := raw.ActiveField(buf, base); errKind(err) != errors.KindContractViolation {
		t.Errorf("ActiveField: %v", err)
	}
}

func TestVFunc_Address(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	reg := repo.TypeRegistry()
	buf := memory.NewBuffer(256, 0)

	widgetType, _ := reg.Register("DemoWidget", gtype.Object)
	buttonType, _ := reg.Register("DemoButton", widgetType)
	drawableType, _ := reg.RegisterInterface("DemoDrawable", gtype.Object)
	bareType, _ := reg.Register("DemoBare", widgetType)

	class, _ := buf.Alloc(20, 4)
	if err := buf.WriteU32(class+16, 77); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetClass(buttonType, gtype.Vtable{Mem: buf, Addr: class}); err != nil {
		t.Fatal(err)
	}
	emptyClass, _ := buf.Alloc(20, 4)
	if err := reg.SetClass(bareType, gtype.Vtable{Mem: buf, Addr: emptyClass}); err != nil {
		t.Fatal(err)
	}
	iface, _ := buf.Alloc(24, 4)
	if err := buf.WriteU32(iface+16, 55); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddInterface(buttonType, drawableType, gtype.Vtable{Mem: buf, Addr: iface}); err != nil {
		t.Fatal(err)
	}

	widget := find[*ObjectInfo](t, repo, "Demo", "Widget")
	show, _ := widget.FindVFunc("show")
	hide, _ := widget.FindVFunc("hide")
	draw, _ := find[*InterfaceInfo](t, repo, "Demo", "Drawable").FindVFunc("draw")

	if addr, err := show.Address(buttonType); err != nil || addr != 77 {
		t.Errorf("show.Address(Button) = %d, %v", addr, err)
	}
	if addr, err := draw.Address(buttonType); err != nil || addr != 55 {
		t.Errorf("draw.Address(Button) = %d, %v", addr, err)
	}

	tests := []struct {
		name string
		vf   *VFuncInfo
		impl gtype.Type
		kind errors.Kind
		msg  string
	}{
		{"no struct field", hide, buttonType, errors.KindSymbolNotFound, "no struct field"},
		{"no class", show, widgetType, errors.KindNotImplemented, "no vtable"},
		{"empty slot", show, bareType, errors.KindNotImplemented, "Class DemoBare doesn't implement show"},
		{"interface not implemented", draw, bareType, errors.KindNotImplemented, "no vtable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.vf.Address(tt.impl)
			if errKind(err) != tt.kind {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("err = %v, want %q", err, tt.msg)
			}
		})
	}
}

func TestInternalLookups_ReleaseInfos(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	reg := repo.TypeRegistry()
	buf := memory.NewBuffer(512, 0)

	widgetType, _ := reg.Register("DemoWidget", gtype.Object)
	buttonType, _ := reg.Register("DemoButton", widgetType)
	class, _ := buf.Alloc(20, 4)
	if err := buf.WriteU32(class+16, 77); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetClass(buttonType, gtype.Vtable{Mem: buf, Addr: class}); err != nil {
		t.Fatal(err)
	}

	sample := find[*StructInfo](t, repo, "Demo", "Sample")
	value := find[*UnionInfo](t, repo, "Demo", "Value")
	widget := find[*ObjectInfo](t, repo, "Demo", "Widget")
	button := find[*ObjectInfo](t, repo, "Demo", "Button")
	answer := find[*ConstantInfo](t, repo, "Demo", "ANSWER")
	greeting := find[*ConstantInfo](t, repo, "Demo", "GREETING")
	show, _ := widget.FindVFunc("show")
	label, _ := widget.Properties().Find("label")
	mode, _ := sample.FindField("mode")
	cb, _ := sample.FindField("cb")
	i32, _ := sample.FindField("i32")
	pt, _ := sample.FindField("pt")

	inst, _ := buf.Alloc(sample.Size(), 8)
	union, _ := buf.Alloc(value.Size(), 8)
	if err := buf.WriteU32(union, 2); err != nil {
		t.Fatal(err)
	}

	demo, _ := repo.Typelib("Demo")
	before := demo.LiveInfos()
	for range 10 {
		if err := mode.Set(buf, inst, NewUInt8(3)); err != nil {
			t.Fatal(err)
		}
		if _, err := mode.Get(buf, inst); err != nil {
			t.Fatal(err)
		}
		if _, err := cb.Get(buf, inst); err != nil {
			t.Fatal(err)
		}
		if err := i32.Set(buf, inst, NewDouble(1)); err == nil {
			t.Fatal("mismatched Set succeeded")
		}
		if _, err := pt.Get(buf, inst); err == nil {
			t.Fatal("embedded struct read succeeded")
		}
		if addr, err := show.Address(buttonType); err != nil || addr != 77 {
			t.Fatalf("Address = %d, %v", addr, err)
		}
		if i, err := value.ActiveField(buf, union); err != nil || i != 1 {
			t.Fatalf("ActiveField = %d, %v", i, err)
		}
		if ref, ok := button.FindRefFunction(); !ok || ref != "demo_widget_ref" {
			t.Fatalf("FindRefFunction = %q", ref)
		}
		getter, ok := label.Getter()
		if !ok {
			t.Fatal("label has no getter")
		}
		getter.Release()
		_ = answer.Value()
		_, _ = greeting.StringValue()
	}
	if after := demo.LiveInfos(); after != before {
		t.Errorf("LiveInfos = %d after lookups, want %d", after, before)
	}
}

func TestRuntimeType(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	point := find[*StructInfo](t, repo, "Demo", "Point")

	if got := point.RuntimeType(); got != gtype.Invalid {
		t.Errorf("unregistered type without initializer = %v", got)
	}
	if got := find[*StructInfo](t, repo, "Demo", "Sample").RuntimeType(); got != gtype.None {
		t.Errorf("plain struct = %v", got)
	}

	calls := 0
	repo.SetTypeInitializer(func(info Registered) (gtype.Type, error) {
		calls++
		if _, ok := info.(*StructInfo); !ok {
			t.Errorf("initializer got %T", info)
		}
		return repo.TypeRegistry().Register(info.TypeName(), gtype.Boxed)
	})
	first := point.RuntimeType()
	if first == gtype.Invalid || repo.TypeRegistry().Name(first) != "DemoPoint" {
		t.Fatalf("RuntimeType = %v", first)
	}
	if second := point.RuntimeType(); second != first || calls != 1 {
		t.Errorf("second call = %v after %d initializer calls", second, calls)
	}
	if got := find[*ObjectInfo](t, repo, "GObject", "Object").RuntimeType(); got != gtype.Object {
		t.Errorf("GObject = %v", got)
	}
}

func TestArgument(t *testing.T) {
	tests := []struct {
		name string
		arg  Argument
		str  string
	}{
		{"bool", NewBoolean(true), "boolean(true)"},
		{"int8", NewInt8(-1), "int8(-1)"},
		{"uint64", NewUInt64(7), "uint64(7)"},
		{"double", NewDouble(0.5), "double(0.5)"},
		{"unichar", NewUniChar('x'), "unichar('x')"},
		{"pointer", NewPointer(16), "void*(0x10)"},
		{"void", NewVoid(), "void"},
	}
	for _, tt := range tests {
		if got := tt.arg.String(); got != tt.str {
			t.Errorf("%s: String = %q, want %q", tt.name, got, tt.str)
		}
	}

	if NewInt8(-1).Int64() != -1 || NewInt32(-5).Int32() != -5 {
		t.Error("signed values must be sign-extended")
	}
	if !NewPointer(0).IsNull() || NewPointer(8).IsNull() || NewUInt32(0).IsNull() {
		t.Error("IsNull mismatch")
	}
	if NewFloat(1.5).Float() != 1.5 {
		t.Error("float round trip")
	}

	sizes := map[TypeTag]uint32{
		typelib.TagVoid:      0,
		typelib.TagBoolean:   4,
		typelib.TagInt8:      1,
		typelib.TagUInt16:    2,
		typelib.TagDouble:    8,
		typelib.TagGType:     4,
		typelib.TagInterface: 0,
	}
	for tag, want := range sizes {
		if got := TagSize(tag, false); got != want {
			t.Errorf("TagSize(%s) = %d, want %d", tag, got, want)
		}
	}
	if TagSize(typelib.TagInterface, true) != 4 {
		t.Error("pointers are 4 bytes")
	}
}

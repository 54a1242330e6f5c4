package typelib

import (
	"fmt"

	"github.com/wippyai/girepository/typelib/internal/binary"
)

// encodeEntry writes every field in a fixed order. Kind and Name come
// first so lazy loading can index entries without decoding them.
func encodeEntry(w *binary.Writer, e *Entry) {
	w.Byte(byte(e.Kind))
	w.WriteName(e.Name)
	writeIndexValue(w, e.Container)
	w.WriteBool(e.Deprecated)
	w.WriteU32(uint32(len(e.Attributes)))
	for _, a := range e.Attributes {
		w.WriteName(a.Name)
		w.WriteName(a.Value)
	}
	w.WriteU32(e.Flags)

	w.WriteName(e.TypeName)
	w.WriteName(e.TypeInit)

	w.WriteName(e.Symbol)
	writeIndexList(w, e.Args)
	writeIndexValue(w, e.Return)
	w.Byte(byte(e.ReturnTransfer))
	w.Byte(byte(e.InstanceTransfer))
	w.WriteBool(e.MayReturnNull)
	w.WriteBool(e.SkipReturn)
	writeIndexValue(w, e.Property)
	writeIndexValue(w, e.VFunc)
	writeIndexValue(w, e.Signal)
	writeIndexValue(w, e.Invoker)
	writeIndexValue(w, e.ClassClosure)
	w.WriteBool(e.TrueStopsEmit)

	w.Byte(byte(e.Direction))
	w.Byte(byte(e.Transfer))
	w.Byte(byte(e.Scope))
	w.WriteBool(e.Nullable)
	w.WriteBool(e.CallerAllocates)
	w.WriteBool(e.Optional)
	w.WriteBool(e.ReturnValue)
	w.WriteBool(e.Skip)
	writeIndexValue(w, e.Closure)
	writeIndexValue(w, e.Destroy)
	writeIndexValue(w, e.Type)

	w.Byte(byte(e.Tag))
	w.WriteBool(e.Pointer)
	writeRef(w, e.Interface)
	writeIndexList(w, e.Params)
	writeIndexValue(w, e.ArrayLength)
	writeIndexValue(w, e.ArrayFixedSize)
	w.WriteBool(e.ZeroTerminated)
	w.Byte(byte(e.ArrayType))

	w.WriteU32(e.Offset)
	w.WriteU32(e.Size)
	w.WriteU32(e.Alignment)

	w.WriteBool(e.GTypeStruct)
	w.WriteBool(e.Foreign)
	writeIndexList(w, e.Fields)
	writeIndexList(w, e.Methods)
	w.WriteBool(e.Discriminated)
	w.WriteU32(e.DiscriminatorOffset)
	writeIndexValue(w, e.DiscriminatorType)
	writeIndexList(w, e.Discriminators)

	writeIndexList(w, e.Values)
	w.Byte(byte(e.StorageType))
	w.WriteName(e.ErrorDomain)

	w.WriteBool(e.Abstract)
	w.WriteBool(e.Fundamental)
	w.WriteBool(e.Final)
	writeRef(w, e.Parent)
	writeRef(w, e.ClassStruct)
	writeRefs(w, e.Interfaces)
	writeRefs(w, e.Prerequisites)
	writeIndexList(w, e.Properties)
	writeIndexList(w, e.Signals)
	writeIndexList(w, e.VFuncs)
	writeIndexList(w, e.Constants)
	w.WriteName(e.RefFunction)
	w.WriteName(e.UnrefFunction)
	w.WriteName(e.SetValueFunction)
	w.WriteName(e.GetValueFunction)

	w.WriteName(e.Getter)
	w.WriteName(e.Setter)

	w.WriteU64(e.Value)
	w.WriteName(e.StringValue)
}

// fieldReader reads entry fields, keeping the first error.
type fieldReader struct {
	r   *binary.Reader
	err error
}

func (f *fieldReader) u8() byte {
	if f.err != nil {
		return 0
	}
	var b byte
	b, f.err = f.r.ReadByte()
	return b
}

func (f *fieldReader) flag() bool {
	if f.err != nil {
		return false
	}
	var v bool
	v, f.err = f.r.ReadBool()
	return v
}

func (f *fieldReader) u32() uint32 {
	if f.err != nil {
		return 0
	}
	var v uint32
	v, f.err = f.r.ReadU32()
	return v
}

func (f *fieldReader) u64() uint64 {
	if f.err != nil {
		return 0
	}
	var v uint64
	v, f.err = f.r.ReadU64()
	return v
}

func (f *fieldReader) name() string {
	if f.err != nil {
		return ""
	}
	var v string
	v, f.err = f.r.ReadName()
	return v
}

func (f *fieldReader) index() int {
	if f.err != nil {
		return None
	}
	var v int
	v, f.err = readIndexValue(f.r)
	return v
}

func (f *fieldReader) list() []int {
	if f.err != nil {
		return nil
	}
	var v []int
	v, f.err = readIndexList(f.r)
	return v
}

func (f *fieldReader) ref() Ref {
	if f.err != nil {
		return Ref{}
	}
	var v Ref
	v, f.err = readRef(f.r)
	return v
}

func (f *fieldReader) refs() []Ref {
	if f.err != nil {
		return nil
	}
	var v []Ref
	v, f.err = readRefs(f.r)
	return v
}

func decodeEntry(r *binary.Reader) (*Entry, error) {
	f := &fieldReader{r: r}
	e := &Entry{}

	e.Kind = InfoKind(f.u8())
	e.Name = f.name()
	e.Container = f.index()
	e.Deprecated = f.flag()
	if n := f.u32(); n > 0 && f.err == nil {
		e.Attributes = make([]Attribute, 0, min(int(n), r.Len()))
		for i := 0; i < int(n) && f.err == nil; i++ {
			e.Attributes = append(e.Attributes, Attribute{Name: f.name(), Value: f.name()})
		}
	}
	e.Flags = f.u32()

	e.TypeName = f.name()
	e.TypeInit = f.name()

	e.Symbol = f.name()
	e.Args = f.list()
	e.Return = f.index()
	e.ReturnTransfer = Transfer(f.u8())
	e.InstanceTransfer = Transfer(f.u8())
	e.MayReturnNull = f.flag()
	e.SkipReturn = f.flag()
	e.Property = f.index()
	e.VFunc = f.index()
	e.Signal = f.index()
	e.Invoker = f.index()
	e.ClassClosure = f.index()
	e.TrueStopsEmit = f.flag()

	e.Direction = Direction(f.u8())
	e.Transfer = Transfer(f.u8())
	e.Scope = ScopeType(f.u8())
	e.Nullable = f.flag()
	e.CallerAllocates = f.flag()
	e.Optional = f.flag()
	e.ReturnValue = f.flag()
	e.Skip = f.flag()
	e.Closure = f.index()
	e.Destroy = f.index()
	e.Type = f.index()

	e.Tag = TypeTag(f.u8())
	e.Pointer = f.flag()
	e.Interface = f.ref()
	e.Params = f.list()
	e.ArrayLength = f.index()
	e.ArrayFixedSize = f.index()
	e.ZeroTerminated = f.flag()
	e.ArrayType = ArrayType(f.u8())

	e.Offset = f.u32()
	e.Size = f.u32()
	e.Alignment = f.u32()

	e.GTypeStruct = f.flag()
	e.Foreign = f.flag()
	e.Fields = f.list()
	e.Methods = f.list()
	e.Discriminated = f.flag()
	e.DiscriminatorOffset = f.u32()
	e.DiscriminatorType = f.index()
	e.Discriminators = f.list()

	e.Values = f.list()
	e.StorageType = TypeTag(f.u8())
	e.ErrorDomain = f.name()

	e.Abstract = f.flag()
	e.Fundamental = f.flag()
	e.Final = f.flag()
	e.Parent = f.ref()
	e.ClassStruct = f.ref()
	e.Interfaces = f.refs()
	e.Prerequisites = f.refs()
	e.Properties = f.list()
	e.Signals = f.list()
	e.VFuncs = f.list()
	e.Constants = f.list()
	e.RefFunction = f.name()
	e.UnrefFunction = f.name()
	e.SetValueFunction = f.name()
	e.GetValueFunction = f.name()

	e.Getter = f.name()
	e.Setter = f.name()

	e.Value = f.u64()
	e.StringValue = f.name()

	if f.err == nil && r.Len() != 0 {
		f.err = fmt.Errorf("%d unread bytes", r.Len())
	}
	if f.err != nil {
		return nil, r.WrapError("entry", f.err)
	}
	return e, nil
}

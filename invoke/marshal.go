package invoke

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/memory"
	"github.com/wippyai/girepository/typelib"
)

// GError layout in foreign memory: quark domain, int32 code, message.
const (
	gerrorDomain  = 0
	gerrorCode    = 4
	gerrorMessage = 8
	GErrorSize    = 12
)

// frame holds the lowered words of one call and the foreign slots
// allocated for it.
type frame struct {
	mem     girepository.Memory
	alloc   girepository.Allocator
	info    string
	words   []uint64
	slots   []outSlot
	blocks  []block
	errSlot uint32
}

// outSlot is foreign storage receiving the value of out[index].
type outSlot struct {
	addr    uint32
	index   int
	tag     gi.TypeTag
	pointer bool
}

type block struct {
	addr, size, align uint32
}

func (f *frame) marshal(c gi.Callable, in, out []gi.Argument) error {
	var cur cursor
	if c.IsMethod() {
		self := in[0]
		if !self.IsPointer() {
			return errors.TypeMismatch(errors.PhaseInvoke, []string{c.String(), "self"}, "pointer", self.Tag().String())
		}
		if self.IsNull() {
			return errors.NilPointer(errors.PhaseInvoke, []string{c.String(), "self"}, "instance")
		}
		f.words = append(f.words, api.EncodeU32(self.Pointer()))
		cur.in = 1
	}

	for _, arg := range c.Args().All() {
		err := f.marshalArg(c, arg, in, out, &cur)
		arg.Release()
		if err != nil {
			return err
		}
	}

	if c.CanThrow() {
		addr, err := f.allocate(girepository.PointerSize, girepository.PointerSize)
		if err != nil {
			return err
		}
		f.errSlot = addr
		f.words = append(f.words, api.EncodeU32(addr))
	}
	return nil
}

// cursor tracks the next in and out argument consumed by marshal.
type cursor struct {
	in, out int
}

func (f *frame) marshalArg(c gi.Callable, arg *gi.ArgInfo, in, out []gi.Argument, cur *cursor) error {
	t := arg.Type()
	if t == nil {
		return errors.InvalidData(errors.PhaseInvoke, []string{c.String(), arg.Name()}, "argument has no type")
	}
	defer t.Release()
	tag, pointer := t.StorageTag(), t.IsPointer()

	switch arg.Direction() {
	case typelib.DirectionIn:
		v := in[cur.in]
		cur.in++
		if err := checkValue(c, arg, tag, pointer, v); err != nil {
			return err
		}
		w, err := lower(tag, pointer, v)
		if err != nil {
			return f.unsupported(arg, err)
		}
		f.words = append(f.words, w)

	case typelib.DirectionOut:
		if arg.IsCallerAllocates() {
			// The caller owns the storage and passes its address.
			v := out[cur.out]
			if !v.IsPointer() || v.IsNull() {
				return errors.NilPointer(errors.PhaseInvoke, []string{c.String(), arg.Name()}, "caller-allocated storage")
			}
			f.words = append(f.words, api.EncodeU32(v.Pointer()))
			cur.out++
			return nil
		}
		addr, err := f.slot(arg, tag, pointer, cur.out)
		if err != nil {
			return err
		}
		f.words = append(f.words, api.EncodeU32(addr))
		cur.out++

	case typelib.DirectionInOut:
		v := in[cur.in]
		cur.in++
		if err := checkValue(c, arg, tag, pointer, v); err != nil {
			return err
		}
		addr, err := f.slot(arg, tag, pointer, cur.out)
		if err != nil {
			return err
		}
		if err := gi.StoreArgument(f.mem, addr, tag, pointer, v); err != nil {
			return errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "store inout argument "+arg.Name())
		}
		f.words = append(f.words, api.EncodeU32(addr))
		cur.out++
	}
	return nil
}

// checkValue rejects values whose shape does not match the declared
// type: scalars need the storage tag, pointers any pointer value.
func checkValue(c gi.Callable, arg *gi.ArgInfo, tag gi.TypeTag, pointer bool, v gi.Argument) error {
	path := []string{c.String(), arg.Name()}
	if pointer {
		if !v.IsPointer() {
			return errors.TypeMismatch(errors.PhaseInvoke, path, "pointer", v.Tag().String())
		}
		if v.IsNull() && !arg.MayBeNull() && !arg.IsOptional() {
			return errors.NilPointer(errors.PhaseInvoke, path, "non-nullable argument")
		}
		return nil
	}
	if v.IsPointer() || v.Tag() != tag {
		return errors.TypeMismatch(errors.PhaseInvoke, path, tag.String(), v.String())
	}
	return nil
}

func (f *frame) unsupported(arg *gi.ArgInfo, cause error) error {
	return errors.New(errors.PhaseInvoke, errors.KindUnsupported).
		Info(f.info).
		Path(arg.Name()).
		Detail("cannot pass argument by value").
		Cause(cause).
		Build()
}

// slot allocates storage for an out value and records where it goes.
func (f *frame) slot(arg *gi.ArgInfo, tag gi.TypeTag, pointer bool, index int) (uint32, error) {
	size := gi.TagSize(tag, pointer)
	if size == 0 {
		return 0, errors.New(errors.PhaseInvoke, errors.KindUnsupported).
			Info(f.info).
			Path(arg.Name()).
			Detail("out argument of type %s has no scalar representation", tag).
			Build()
	}
	addr, err := f.allocate(size, size)
	if err != nil {
		return 0, err
	}
	f.slots = append(f.slots, outSlot{addr: addr, index: index, tag: tag, pointer: pointer})
	return addr, nil
}

func (f *frame) allocate(size, align uint32) (uint32, error) {
	if f.mem == nil || f.alloc == nil {
		return 0, errors.New(errors.PhaseInvoke, errors.KindAllocation).
			Info(f.info).
			Detail("library has no memory allocator for out arguments").
			Build()
	}
	addr, err := f.alloc.Alloc(size, align)
	if err != nil {
		aerr := errors.AllocationFailed(errors.PhaseInvoke, size, align)
		aerr.Info, aerr.Cause = f.info, err
		return 0, aerr
	}
	zero := make([]byte, size)
	if err := f.mem.Write(addr, zero); err != nil {
		f.alloc.Free(addr, size, align)
		return 0, errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "clear out slot")
	}
	f.blocks = append(f.blocks, block{addr: addr, size: size, align: align})
	return addr, nil
}

// collect reads every out slot into out.
func (f *frame) collect(out []gi.Argument) error {
	for _, s := range f.slots {
		v, err := gi.LoadArgument(f.mem, s.addr, s.tag, s.pointer)
		if err != nil {
			return errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "read out argument")
		}
		out[s.index] = v
	}
	return nil
}

// foreignError decodes the error stored through the error slot, or
// returns nil when none was set.
func (f *frame) foreignError() *errors.ForeignError {
	ptr, err := f.mem.ReadU32(f.errSlot)
	if err != nil || ptr == 0 {
		return nil
	}
	ferr, err := ReadGError(f.mem, ptr)
	if err != nil {
		return &errors.ForeignError{Message: err.Error()}
	}
	return ferr
}

// release frees slots in reverse allocation order. Values reached
// through them are owned by the caller per the transfer annotations.
func (f *frame) release() {
	for i := len(f.blocks) - 1; i >= 0; i-- {
		b := f.blocks[i]
		f.alloc.Free(b.addr, b.size, b.align)
	}
	f.blocks = nil
}

// ReadGError decodes a GError structure at ptr.
func ReadGError(mem girepository.Memory, ptr uint32) (*errors.ForeignError, error) {
	domain, err := mem.ReadU32(ptr + gerrorDomain)
	if err != nil {
		return nil, err
	}
	code, err := mem.ReadU32(ptr + gerrorCode)
	if err != nil {
		return nil, err
	}
	msgPtr, err := mem.ReadU32(ptr + gerrorMessage)
	if err != nil {
		return nil, err
	}
	msg, err := memory.ReadCString(mem, msgPtr)
	if err != nil {
		return nil, err
	}
	return &errors.ForeignError{
		Domain:  gtype.Quark(domain).String(),
		Code:    int32(code),
		Message: msg,
	}, nil
}

// WriteGError allocates a GError and its message in foreign memory and
// returns its address. It is what a foreign callable does before
// storing the address through its error out-parameter.
func WriteGError(mem girepository.Memory, alloc girepository.Allocator, domain string, code int32, message string) (uint32, error) {
	msg, err := memory.WriteCString(mem, alloc, message)
	if err != nil {
		return 0, err
	}
	ptr, err := alloc.Alloc(GErrorSize, girepository.PointerSize)
	if err != nil {
		return 0, err
	}
	if err := mem.WriteU32(ptr+gerrorDomain, uint32(gtype.QuarkFromString(domain))); err != nil {
		return 0, err
	}
	if err := mem.WriteU32(ptr+gerrorCode, uint32(code)); err != nil {
		return 0, err
	}
	if err := mem.WriteU32(ptr+gerrorMessage, msg); err != nil {
		return 0, err
	}
	return ptr, nil
}

// lower converts v to the word a foreign function receives.
func lower(tag gi.TypeTag, pointer bool, v gi.Argument) (uint64, error) {
	if pointer {
		return api.EncodeU32(v.Pointer()), nil
	}
	switch tag {
	case typelib.TagBoolean:
		if v.Boolean() {
			return 1, nil
		}
		return 0, nil
	case typelib.TagInt8, typelib.TagInt16, typelib.TagInt32:
		return api.EncodeI32(int32(v.Int64())), nil
	case typelib.TagUInt8, typelib.TagUInt16, typelib.TagUInt32, typelib.TagUniChar, typelib.TagGType:
		return api.EncodeU32(uint32(v.Bits())), nil
	case typelib.TagInt64:
		return api.EncodeI64(v.Int64()), nil
	case typelib.TagUInt64:
		return v.UInt64(), nil
	case typelib.TagFloat:
		return api.EncodeF32(v.Float()), nil
	case typelib.TagDouble:
		return api.EncodeF64(v.Double()), nil
	}
	return 0, errors.Unsupported(errors.PhaseInvoke, tag.String()+" by value")
}

// lift converts a returned word to an Argument of the declared type.
func lift(tag gi.TypeTag, pointer bool, w uint64) (gi.Argument, error) {
	if pointer {
		return gi.ArgumentFromBits(tag, true, uint64(api.DecodeU32(w))), nil
	}
	switch tag {
	case typelib.TagBoolean:
		return gi.NewBoolean(api.DecodeU32(w) != 0), nil
	case typelib.TagInt8:
		return gi.NewInt8(int8(api.DecodeI32(w))), nil
	case typelib.TagUInt8:
		return gi.NewUInt8(uint8(api.DecodeU32(w))), nil
	case typelib.TagInt16:
		return gi.NewInt16(int16(api.DecodeI32(w))), nil
	case typelib.TagUInt16:
		return gi.NewUInt16(uint16(api.DecodeU32(w))), nil
	case typelib.TagInt32:
		return gi.NewInt32(api.DecodeI32(w)), nil
	case typelib.TagUInt32:
		return gi.NewUInt32(api.DecodeU32(w)), nil
	case typelib.TagInt64:
		return gi.NewInt64(int64(w)), nil
	case typelib.TagUInt64:
		return gi.NewUInt64(w), nil
	case typelib.TagFloat:
		return gi.NewFloat(api.DecodeF32(w)), nil
	case typelib.TagDouble:
		return gi.NewDouble(api.DecodeF64(w)), nil
	case typelib.TagGType:
		return gi.NewGType(gtype.Type(api.DecodeU32(w))), nil
	case typelib.TagUniChar:
		return gi.NewUniChar(rune(api.DecodeU32(w))), nil
	}
	return gi.Argument{}, errors.Unsupported(errors.PhaseInvoke, tag.String()+" return by value")
}

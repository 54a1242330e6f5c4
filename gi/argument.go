package gi

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// Argument is a value crossing the foreign boundary, tagged with the
// type it was produced as. Signed integers are stored sign-extended,
// floats as their IEEE bits and pointers as 32-bit addresses.
type Argument struct {
	bits    uint64
	tag     TypeTag
	pointer bool
}

// ArgumentFromBits builds an argument from raw bits without conversion.
func ArgumentFromBits(tag TypeTag, pointer bool, bits uint64) Argument {
	return Argument{tag: tag, pointer: pointer, bits: bits}
}

func NewBoolean(v bool) Argument {
	var b uint64
	if v {
		b = 1
	}
	return Argument{tag: typelib.TagBoolean, bits: b}
}

func NewInt8(v int8) Argument         { return Argument{tag: typelib.TagInt8, bits: uint64(int64(v))} }
func NewUInt8(v uint8) Argument       { return Argument{tag: typelib.TagUInt8, bits: uint64(v)} }
func NewInt16(v int16) Argument       { return Argument{tag: typelib.TagInt16, bits: uint64(int64(v))} }
func NewUInt16(v uint16) Argument     { return Argument{tag: typelib.TagUInt16, bits: uint64(v)} }
func NewInt32(v int32) Argument       { return Argument{tag: typelib.TagInt32, bits: uint64(int64(v))} }
func NewUInt32(v uint32) Argument     { return Argument{tag: typelib.TagUInt32, bits: uint64(v)} }
func NewInt64(v int64) Argument       { return Argument{tag: typelib.TagInt64, bits: uint64(v)} }
func NewUInt64(v uint64) Argument     { return Argument{tag: typelib.TagUInt64, bits: v} }
func NewFloat(v float32) Argument     { return Argument{tag: typelib.TagFloat, bits: uint64(math.Float32bits(v))} }
func NewDouble(v float64) Argument    { return Argument{tag: typelib.TagDouble, bits: math.Float64bits(v)} }
func NewGType(t gtype.Type) Argument  { return Argument{tag: typelib.TagGType, bits: uint64(t)} }
func NewUniChar(r rune) Argument      { return Argument{tag: typelib.TagUniChar, bits: uint64(uint32(r))} }
func NewPointer(addr uint32) Argument { return Argument{tag: typelib.TagVoid, pointer: true, bits: uint64(addr)} }
func NewString(addr uint32) Argument  { return Argument{tag: typelib.TagUTF8, pointer: true, bits: uint64(addr)} }
func NewVoid() Argument               { return Argument{tag: typelib.TagVoid} }

func (a Argument) Tag() TypeTag    { return a.tag }
func (a Argument) IsPointer() bool { return a.pointer }
func (a Argument) Bits() uint64    { return a.bits }

// IsNull reports whether a pointer argument is the null pointer.
func (a Argument) IsNull() bool { return a.pointer && uint32(a.bits) == 0 }

func (a Argument) Boolean() bool     { return a.bits != 0 }
func (a Argument) Int8() int8        { return int8(a.bits) }
func (a Argument) UInt8() uint8      { return uint8(a.bits) }
func (a Argument) Int16() int16      { return int16(a.bits) }
func (a Argument) UInt16() uint16    { return uint16(a.bits) }
func (a Argument) Int32() int32      { return int32(a.bits) }
func (a Argument) UInt32() uint32    { return uint32(a.bits) }
func (a Argument) Int64() int64      { return int64(a.bits) }
func (a Argument) UInt64() uint64    { return a.bits }
func (a Argument) Float() float32    { return math.Float32frombits(uint32(a.bits)) }
func (a Argument) Double() float64   { return math.Float64frombits(a.bits) }
func (a Argument) GType() gtype.Type { return gtype.Type(a.bits) }
func (a Argument) UniChar() rune     { return rune(uint32(a.bits)) }
func (a Argument) Pointer() uint32   { return uint32(a.bits) }

func (a Argument) String() string {
	if a.pointer {
		return fmt.Sprintf("%s*(0x%x)", a.tag, uint32(a.bits))
	}
	var v string
	switch a.tag {
	case typelib.TagVoid:
		return "void"
	case typelib.TagBoolean:
		v = strconv.FormatBool(a.Boolean())
	case typelib.TagInt8, typelib.TagInt16, typelib.TagInt32, typelib.TagInt64:
		v = strconv.FormatInt(a.Int64(), 10)
	case typelib.TagFloat:
		v = strconv.FormatFloat(float64(a.Float()), 'g', -1, 32)
	case typelib.TagDouble:
		v = strconv.FormatFloat(a.Double(), 'g', -1, 64)
	case typelib.TagUniChar:
		v = strconv.QuoteRune(a.UniChar())
	default:
		v = strconv.FormatUint(a.bits, 10)
	}
	return a.tag.String() + "(" + v + ")"
}

// TagSize returns the in-memory size of a value of tag, or 0 when the
// tag has no fixed scalar representation.
func TagSize(tag TypeTag, pointer bool) uint32 {
	if pointer {
		return girepository.PointerSize
	}
	switch tag {
	case typelib.TagInt8, typelib.TagUInt8:
		return 1
	case typelib.TagInt16, typelib.TagUInt16:
		return 2
	case typelib.TagBoolean, typelib.TagInt32, typelib.TagUInt32, typelib.TagFloat, typelib.TagUniChar:
		return 4
	case typelib.TagInt64, typelib.TagUInt64, typelib.TagDouble:
		return 8
	case typelib.TagGType:
		return girepository.PointerSize
	}
	return 0
}

// LoadArgument reads a value of the given type from foreign memory.
func LoadArgument(mem girepository.Memory, addr uint32, tag TypeTag, pointer bool) (Argument, error) {
	size := TagSize(tag, pointer)
	if size == 0 {
		return Argument{}, errors.Unsupported(errors.PhaseField, fmt.Sprintf("load of %s value", tag))
	}
	var (
		bits uint64
		err  error
	)
	switch size {
	case 1:
		var v uint8
		v, err = mem.ReadU8(addr)
		bits = uint64(v)
	case 2:
		var v uint16
		v, err = mem.ReadU16(addr)
		bits = uint64(v)
	case 4:
		var v uint32
		v, err = mem.ReadU32(addr)
		bits = uint64(v)
	case 8:
		bits, err = mem.ReadU64(addr)
	}
	if err != nil {
		return Argument{}, err
	}
	if !pointer {
		bits = extend(tag, bits)
	}
	return Argument{tag: tag, pointer: pointer, bits: bits}, nil
}

// StoreArgument writes v to foreign memory as a value of the given type.
func StoreArgument(mem girepository.Memory, addr uint32, tag TypeTag, pointer bool, v Argument) error {
	switch TagSize(tag, pointer) {
	case 1:
		return mem.WriteU8(addr, uint8(v.bits))
	case 2:
		return mem.WriteU16(addr, uint16(v.bits))
	case 4:
		if tag == typelib.TagBoolean && !pointer && v.bits != 0 {
			return mem.WriteU32(addr, 1)
		}
		return mem.WriteU32(addr, uint32(v.bits))
	case 8:
		return mem.WriteU64(addr, v.bits)
	}
	return errors.Unsupported(errors.PhaseField, fmt.Sprintf("store of %s value", tag))
}

// extend widens raw little-endian bits of a signed tag to 64 bits.
func extend(tag TypeTag, bits uint64) uint64 {
	switch tag {
	case typelib.TagInt8:
		return uint64(int64(int8(bits)))
	case typelib.TagInt16:
		return uint64(int64(int16(bits)))
	case typelib.TagInt32:
		return uint64(int64(int32(bits)))
	case typelib.TagBoolean:
		if bits != 0 {
			return 1
		}
	}
	return bits
}

package gi

import (
	"fmt"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/typelib"
)

// FieldInfo describes a field of a struct, union or class.
type FieldInfo struct {
	BaseInfo
}

func (f *FieldInfo) Flags() FieldFlags { return FieldFlags(f.entry().Flags) }
func (f *FieldInfo) IsReadable() bool  { return f.Flags().Has(typelib.FieldReadable) }
func (f *FieldInfo) IsWritable() bool  { return f.Flags().Has(typelib.FieldWritable) }
func (f *FieldInfo) Offset() uint32    { return f.entry().Offset }

// Size returns the bit width of a bitfield, 0 for ordinary fields.
func (f *FieldInfo) Size() uint32 { return f.entry().Size }

func (f *FieldInfo) Type() *TypeInfo {
	t, _ := f.child(f.entry().Type).(*TypeInfo)
	return t
}

// Get reads the field of the instance at base. Enum and flags fields
// are returned as their storage type; pointer fields as the pointer.
// Bitfields and embedded composites are not supported.
func (f *FieldInfo) Get(mem girepository.Memory, base uint32) (Argument, error) {
	if !f.IsReadable() {
		return Argument{}, errors.UnsupportedField(f.String(), "field is not readable")
	}
	tag, pointer, err := f.layout(false)
	if err != nil {
		return Argument{}, err
	}
	if base == 0 {
		return Argument{}, errors.NilPointer(errors.PhaseField, []string{f.String()}, "instance")
	}
	v, err := LoadArgument(mem, base+f.Offset(), tag, pointer)
	if err != nil {
		return Argument{}, errors.Wrap(errors.PhaseField, errors.KindOutOfBounds, err, "read "+f.String())
	}
	return v, nil
}

// Set writes v into the field of the instance at base. Only untyped
// pointers may be stored in pointer fields, since the ownership of
// other pointers cannot be tracked.
func (f *FieldInfo) Set(mem girepository.Memory, base uint32, v Argument) error {
	if !f.IsWritable() {
		return errors.UnsupportedField(f.String(), "field is not writable")
	}
	tag, pointer, err := f.layout(true)
	if err != nil {
		return err
	}
	if base == 0 {
		return errors.NilPointer(errors.PhaseField, []string{f.String()}, "instance")
	}
	if v.IsPointer() != pointer || (!pointer && v.Tag() != tag) {
		want := tag.String()
		if pointer {
			want = "pointer"
		}
		return errors.TypeMismatch(errors.PhaseField, []string{f.String()}, want, v.String())
	}
	if err := StoreArgument(mem, base+f.Offset(), tag, pointer, v); err != nil {
		return errors.Wrap(errors.PhaseField, errors.KindOutOfBounds, err, "write "+f.String())
	}
	return nil
}

// layout returns the tag the field is accessed as.
func (f *FieldInfo) layout(write bool) (TypeTag, bool, error) {
	t := f.Type()
	if t == nil {
		return 0, false, errors.UnsupportedField(f.String(), "field has no type")
	}
	defer t.Release()
	tag, pointer := t.Tag(), t.IsPointer()

	switch {
	case pointer:
		if write && tag != typelib.TagVoid {
			return 0, false, errors.UnsupportedField(f.String(), fmt.Sprintf("cannot store %s pointers", tag))
		}
	case tag == typelib.TagInterface:
		ref := t.Interface()
		if ref != nil {
			defer ref.Release()
		}
		switch iface := ref.(type) {
		case *EnumInfo:
			tag = iface.StorageType()
		case *CallbackInfo:
			if write {
				return 0, false, errors.UnsupportedField(f.String(), "cannot store callbacks")
			}
			pointer = true
		default:
			return 0, false, errors.UnsupportedField(f.String(), fmt.Sprintf("embedded %s is not a scalar", t.InterfaceName()))
		}
	case TagSize(tag, false) == 0:
		return 0, false, errors.UnsupportedField(f.String(), fmt.Sprintf("%s fields are not scalars", tag))
	}

	if bits := f.Size(); bits != 0 && bits != TagSize(tag, pointer)*8 {
		return 0, false, errors.UnsupportedField(f.String(), fmt.Sprintf("bitfield of %d bits", bits))
	}
	return tag, pointer, nil
}

// DiscriminatorOffset returns the byte offset of the discriminator.
func (u *UnionInfo) DiscriminatorOffset() (uint32, error) {
	if err := u.requireDiscriminated(); err != nil {
		return 0, err
	}
	return u.entry().DiscriminatorOffset, nil
}

// DiscriminatorType returns the type of the discriminator.
func (u *UnionInfo) DiscriminatorType() (*TypeInfo, error) {
	if err := u.requireDiscriminated(); err != nil {
		return nil, err
	}
	t, _ := u.child(u.entry().DiscriminatorType).(*TypeInfo)
	return t, nil
}

// Discriminator returns the discriminator value selecting field n.
func (u *UnionInfo) Discriminator(n int) (*ConstantInfo, error) {
	if err := u.requireDiscriminated(); err != nil {
		return nil, err
	}
	discs := u.entry().Discriminators
	if n < 0 || n >= len(discs) {
		return nil, errors.OutOfBounds(errors.PhaseLookup, []string{u.String(), "discriminator"}, n, len(discs))
	}
	return newInfo(u.h.tl, discs[n]).(*ConstantInfo), nil
}

// ActiveField reads the discriminator of the union at base and returns
// the index of the field it selects.
func (u *UnionInfo) ActiveField(mem girepository.Memory, base uint32) (int, error) {
	dt, err := u.DiscriminatorType()
	if err != nil {
		return -1, err
	}
	if dt == nil {
		return -1, errors.InvalidData(errors.PhaseField, []string{u.String()}, "discriminator has no type")
	}
	defer dt.Release()
	if base == 0 {
		return -1, errors.NilPointer(errors.PhaseField, []string{u.String()}, "instance")
	}
	tag := dt.StorageTag()
	v, err := LoadArgument(mem, base+u.entry().DiscriminatorOffset, tag, false)
	if err != nil {
		return -1, errors.Wrap(errors.PhaseField, errors.KindOutOfBounds, err, "read discriminator of "+u.String())
	}
	raw := u.raw()
	for i, idx := range u.entry().Discriminators {
		if extend(tag, raw.MustEntry(idx).Value) == v.Bits() {
			return i, nil
		}
	}
	return -1, errors.NotFound(errors.PhaseField, "discriminator value", fmt.Sprintf("%s=%d", u.String(), v.Int64()))
}

func (u *UnionInfo) requireDiscriminated() error {
	if !u.IsDiscriminated() {
		return errors.ContractViolation(errors.PhaseLookup, u.String(), "union is not discriminated")
	}
	return nil
}

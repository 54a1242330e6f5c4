package invoke

import (
	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/typelib"
)

// MaxArrayLen bounds zero-terminated scans.
const MaxArrayLen = 1 << 20

// Declared rebuilds the per-argument values of a completed call in
// declared order: in values for in arguments and out values for out and
// inout arguments. The instance of a method is not included.
func Declared(c gi.Callable, in, out []gi.Argument) []gi.Argument {
	next := 0
	if c.IsMethod() {
		next = 1
	}
	outIndex := 0
	vals := make([]gi.Argument, 0, c.Args().Len())
	for _, arg := range c.Args().All() {
		switch arg.Direction() {
		case typelib.DirectionIn:
			vals = append(vals, at(in, next))
			next++
		case typelib.DirectionOut:
			vals = append(vals, at(out, outIndex))
			outIndex++
		case typelib.DirectionInOut:
			vals = append(vals, at(out, outIndex))
			next++
			outIndex++
		}
		arg.Release()
	}
	return vals
}

func at(args []gi.Argument, i int) gi.Argument {
	if i < len(args) {
		return args[i]
	}
	return gi.Argument{}
}

// ArrayLength returns the element count of the C array at ptr described
// by t. A fixed size wins over a length argument, which is looked up in
// declared (see Declared), which wins over zero termination.
func ArrayLength(mem girepository.Memory, t *gi.TypeInfo, ptr uint32, declared []gi.Argument) (int, error) {
	if err := requireCArray(t); err != nil {
		return 0, err
	}
	if n := t.ArrayFixedSize(); n >= 0 {
		return n, nil
	}
	if idx := t.ArrayLength(); idx >= 0 {
		if idx >= len(declared) {
			return 0, errors.OutOfBounds(errors.PhaseInvoke, []string{t.String(), "length"}, idx, len(declared))
		}
		n := declared[idx].Int64()
		if n < 0 {
			return 0, errors.InvalidData(errors.PhaseInvoke, []string{t.String()}, "negative array length")
		}
		return int(n), nil
	}
	if !t.IsZeroTerminated() {
		return 0, errors.InvalidData(errors.PhaseInvoke, []string{t.String()}, "array has no length, fixed size or terminator")
	}
	if ptr == 0 {
		return 0, nil
	}
	elem, size, err := element(t)
	if err != nil {
		return 0, err
	}
	defer elem.Release()
	for n := 0; n < MaxArrayLen; n++ {
		v, err := gi.LoadArgument(mem, ptr+uint32(n)*size, elem.StorageTag(), elem.IsPointer())
		if err != nil {
			return 0, err
		}
		if v.Bits() == 0 {
			return n, nil
		}
	}
	return 0, errors.InvalidData(errors.PhaseInvoke, []string{t.String()}, "unterminated array")
}

// ReadArray loads n elements of the C array at ptr.
func ReadArray(mem girepository.Memory, t *gi.TypeInfo, ptr uint32, n int) ([]gi.Argument, error) {
	if err := requireCArray(t); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if ptr == 0 {
		return nil, errors.NilPointer(errors.PhaseInvoke, []string{t.String()}, "array")
	}
	elem, size, err := element(t)
	if err != nil {
		return nil, err
	}
	defer elem.Release()
	out := make([]gi.Argument, n)
	for i := range out {
		v, err := gi.LoadArgument(mem, ptr+uint32(i)*size, elem.StorageTag(), elem.IsPointer())
		if err != nil {
			return nil, errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "read array element")
		}
		out[i] = v
	}
	return out, nil
}

func requireCArray(t *gi.TypeInfo) error {
	if t == nil || t.Tag() != typelib.TagArray {
		return errors.ContractViolation(errors.PhaseInvoke, "", "type is not an array")
	}
	if t.ArrayType() != typelib.ArrayC {
		return errors.Unsupported(errors.PhaseInvoke, t.ArrayType().String()+" arrays")
	}
	return nil
}

func element(t *gi.TypeInfo) (*gi.TypeInfo, uint32, error) {
	elem, ok := t.ParamType(0)
	if !ok {
		return nil, 0, errors.InvalidData(errors.PhaseInvoke, []string{t.String()}, "array has no element type")
	}
	size := gi.TagSize(elem.StorageTag(), elem.IsPointer())
	if size == 0 {
		elem.Release()
		return nil, 0, errors.Unsupported(errors.PhaseInvoke, "arrays of "+elem.Tag().String())
	}
	return elem, size, nil
}

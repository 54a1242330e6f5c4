package typelib

import (
	"bytes"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/typelib/internal/binary"
)

// Magic identifies an encoded typelib.
var Magic = []byte{'G', 'I', 'T', 'L'}

// FormatVersion is the encoding revision written by Encode.
const FormatVersion uint32 = 1

// Encode serializes a typelib.
//
// Layout: magic, format version, header, entries (each length prefixed,
// starting with kind and name), directory, type name index, error domain
// index.
func Encode(t *Typelib) ([]byte, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}

	w := binary.NewWriter()
	w.WriteBytes(Magic)
	w.WriteU32LE(FormatVersion)

	w.WriteName(t.Namespace)
	w.WriteName(t.Version)
	w.WriteName(t.CPrefix)
	writeNames(w, t.SharedLibraries)
	writeNames(w, t.Dependencies)

	w.WriteU32(uint32(len(entries)))
	for i := range entries {
		body := binary.NewWriter()
		encodeEntry(body, &entries[i])
		w.WriteU32(uint32(body.Len()))
		w.WriteBytes(body.Bytes())
	}

	w.WriteU32(uint32(len(t.directory)))
	for _, idx := range t.directory {
		w.WriteU32(uint32(idx))
	}

	writeIndex(w, t.byTypeName, t.directory, entries, func(e *Entry) string { return e.TypeName })
	writeIndex(w, t.byDomain, t.directory, entries, func(e *Entry) string { return e.ErrorDomain })

	return w.Bytes(), nil
}

// Decode parses an encoded typelib. With LoadFlagLazy entry bodies are
// framed and indexed but decoded on first access.
func Decode(data []byte, flags LoadFlags) (*Typelib, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadBytes(len(Magic))
	if err != nil || !bytes.Equal(magic, Magic) {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "not a typelib: bad magic")
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, decodeError(r, "header", err)
	}
	if version != FormatVersion {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Detail("format version %d, want %d", version, FormatVersion).
			Value(version).
			Build()
	}

	var h Header
	if h.Namespace, err = r.ReadName(); err != nil {
		return nil, decodeError(r, "header", err)
	}
	if h.Version, err = r.ReadName(); err != nil {
		return nil, decodeError(r, "header", err)
	}
	if h.CPrefix, err = r.ReadName(); err != nil {
		return nil, decodeError(r, "header", err)
	}
	if h.SharedLibraries, err = readNames(r); err != nil {
		return nil, decodeError(r, "header", err)
	}
	if h.Dependencies, err = readNames(r); err != nil {
		return nil, decodeError(r, "header", err)
	}

	count, err := r.ReadU32()
	if err != nil {
		return nil, decodeError(r, "entries", err)
	}
	if int(count) > r.Len() {
		return nil, decodeError(r, "entries", fmt.Errorf("entry count %d exceeds blob size", count))
	}

	lazy := flags.Has(LoadFlagLazy)
	t := &Typelib{
		Header: h,
		slots:  make([]atomic.Pointer[Entry], count),
		kinds:  make([]InfoKind, count),
		names:  make([]string, count),
	}
	if lazy {
		t.bodies = make([][]byte, count)
		t.failures = make([]atomic.Pointer[decodeFailure], count)
	}

	for i := 0; i < int(count); i++ {
		size, err := r.ReadU32()
		if err != nil {
			return nil, decodeError(r, "entries", err)
		}

		if lazy {
			// Read the kind and name prefix in place and skip the rest.
			start := r.Position()
			kind, err := r.ReadByte()
			if err != nil {
				return nil, decodeError(r, "entries", err)
			}
			name, err := r.ReadName()
			if err != nil {
				return nil, decodeError(r, "entries", err)
			}
			if err := r.Skip(int(size) - (r.Position() - start)); err != nil {
				return nil, decodeError(r, "entries", err)
			}
			t.bodies[i] = data[start:r.Position()]
			t.kinds[i] = InfoKind(kind)
			t.names[i] = name
			continue
		}

		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, decodeError(r, "entries", err)
		}
		e, err := decodeEntry(binary.NewReader(body))
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Detail("entry %d", i).
				Cause(err).
				Build()
		}
		t.slots[i].Store(e)
		t.kinds[i] = e.Kind
		t.names[i] = e.Name
	}

	dirLen, err := r.ReadU32()
	if err != nil {
		return nil, decodeError(r, "directory", err)
	}
	if int(dirLen) > r.Len() {
		return nil, decodeError(r, "directory", fmt.Errorf("directory length %d exceeds blob size", dirLen))
	}
	t.directory = make([]int, dirLen)
	for i := range t.directory {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, decodeError(r, "directory", err)
		}
		t.directory[i] = int(idx)
	}

	if t.byTypeName, err = readIndex(r, int(count)); err != nil {
		return nil, decodeError(r, "type index", err)
	}
	if t.byDomain, err = readIndex(r, int(count)); err != nil {
		return nil, decodeError(r, "domain index", err)
	}
	if r.Len() != 0 {
		return nil, decodeError(r, "trailer", fmt.Errorf("%d trailing bytes", r.Len()))
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	if err := t.buildIndexes(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeError(r *binary.Reader, section string, err error) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Detail("malformed %s", section).
		Cause(r.WrapError(section, err)).
		Build()
}

func writeNames(w *binary.Writer, names []string) {
	w.WriteU32(uint32(len(names)))
	for _, n := range names {
		w.WriteName(n)
	}
}

func readNames(r *binary.Reader) ([]string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("name count %d exceeds blob size", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.ReadName(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// writeIndex writes a name -> entry index in directory order so output is deterministic.
func writeIndex(w *binary.Writer, index map[string]int, directory []int, entries []Entry, key func(*Entry) string) {
	var pairs []int
	for _, idx := range directory {
		k := key(&entries[idx])
		if k == "" {
			continue
		}
		if got, ok := index[k]; ok && got == idx {
			pairs = append(pairs, idx)
		}
	}
	w.WriteU32(uint32(len(pairs)))
	for _, idx := range pairs {
		w.WriteName(key(&entries[idx]))
		w.WriteU32(uint32(idx))
	}
}

func readIndex(r *binary.Reader, entries int) (map[string]int, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("index size %d exceeds blob size", n)
	}
	out := make(map[string]int, n)
	for i := 0; i < int(n); i++ {
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if int(idx) >= entries {
			return nil, fmt.Errorf("index entry %q points at %d of %d", name, idx, entries)
		}
		out[name] = int(idx)
	}
	return out, nil
}

// Optional indices are signed so None encodes in a single byte.
func writeIndexValue(w *binary.Writer, v int) {
	w.WriteS64(int64(v))
}

func readIndexValue(r *binary.Reader) (int, error) {
	v, err := r.ReadS64()
	if err != nil {
		return None, err
	}
	if v < None || v > math.MaxInt32 {
		return None, fmt.Errorf("index %d out of range", v)
	}
	return int(v), nil
}

func writeIndexList(w *binary.Writer, list []int) {
	w.WriteU32(uint32(len(list)))
	for _, v := range list {
		w.WriteU32(uint32(v))
	}
}

func readIndexList(r *binary.Reader) ([]int, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("list length %d exceeds entry size", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]int, n)
	for i := range out {
		v, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		out[i] = int(v)
	}
	return out, nil
}

func writeRef(w *binary.Writer, ref Ref) {
	w.WriteName(ref.Namespace)
	w.WriteName(ref.Name)
}

func readRef(r *binary.Reader) (Ref, error) {
	var ref Ref
	var err error
	if ref.Namespace, err = r.ReadName(); err != nil {
		return ref, err
	}
	ref.Name, err = r.ReadName()
	return ref, err
}

func writeRefs(w *binary.Writer, refs []Ref) {
	w.WriteU32(uint32(len(refs)))
	for _, ref := range refs {
		writeRef(w, ref)
	}
}

func readRefs(r *binary.Reader) ([]Ref, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Len() {
		return nil, fmt.Errorf("ref count %d exceeds entry size", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Ref, n)
	for i := range out {
		if out[i], err = readRef(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

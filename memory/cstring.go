package memory

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
)

// MaxCStringLen bounds ReadCString so a missing terminator cannot walk memory forever.
const MaxCStringLen = 1 << 20

const chunk = 64

// ReadCString reads a NUL-terminated string at ptr. A null ptr yields "".
func ReadCString(mem girepository.Memory, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	limit := uint32(MaxCStringLen)
	if sz, ok := mem.(girepository.MemorySizer); ok {
		if avail := sz.Size() - min(ptr, sz.Size()); avail < limit {
			limit = avail
		}
	}

	var buf []byte
	for off := uint32(0); off < limit; off += chunk {
		n := min(uint32(chunk), limit-off)
		data, err := mem.Read(ptr+off, n)
		if err != nil {
			return "", err
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			buf = append(buf, data[:i]...)
			if !utf8.Valid(buf) {
				return "", errors.InvalidUTF8(errors.PhaseMemory, []string{fmt.Sprintf("0x%x", ptr)}, buf)
			}
			return string(buf), nil
		}
		buf = append(buf, data...)
	}
	return "", errors.InvalidData(errors.PhaseMemory, []string{fmt.Sprintf("0x%x", ptr)}, "unterminated string")
}

// WriteCString allocates len(s)+1 bytes and stores s with a terminator.
// The caller owns the returned block.
func WriteCString(mem girepository.Memory, alloc girepository.Allocator, s string) (uint32, error) {
	size := uint32(len(s)) + 1
	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return 0, err
	}
	data := make([]byte, size)
	copy(data, s)
	if err := mem.Write(ptr, data); err != nil {
		alloc.Free(ptr, size, 1)
		return 0, err
	}
	return ptr, nil
}

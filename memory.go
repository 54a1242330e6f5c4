package girepository

// PointerSize is the width of a foreign pointer. Every supported backend
// addresses its memory with 32-bit offsets; address 0 is the null pointer.
const PointerSize = 4

// Memory represents the foreign address space a library operates on
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of foreign memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates scratch memory in a foreign address space
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/wippyai/girepository"
)

var ErrBufferFull = errors.New("memory buffer exhausted")

// reserved keeps address 0 unusable so it can stand for null.
const reserved = 8

// Buffer is a growable byte arena with a free list per block size.
// Implements girepository.Memory, girepository.Allocator and MemorySizer.
type Buffer struct {
	data     []byte
	freeList map[uint32][]uint32
	next     uint32
	limit    uint32
	mu       sync.RWMutex
}

var (
	_ girepository.Memory      = (*Buffer)(nil)
	_ girepository.Allocator   = (*Buffer)(nil)
	_ girepository.MemorySizer = (*Buffer)(nil)
)

// NewBuffer creates an arena with the given initial capacity. A limit of
// zero lets the arena grow up to the 32-bit address space.
func NewBuffer(capacity, limit uint32) *Buffer {
	if capacity < reserved {
		capacity = reserved
	}
	if limit == 0 {
		limit = ^uint32(0)
	}
	return &Buffer{
		data:     make([]byte, capacity),
		freeList: make(map[uint32][]uint32),
		next:     reserved,
		limit:    limit,
	}
}

// Size returns the number of addressable bytes.
func (b *Buffer) Size() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint32(len(b.data))
}

// Alloc returns a zeroed block of at least size bytes aligned to align.
func (b *Buffer) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", align)
	}
	if size == 0 {
		size = 1
	}
	size = alignUp(size, reserved)

	b.mu.Lock()
	defer b.mu.Unlock()

	if list := b.freeList[size]; len(list) > 0 {
		for i := len(list) - 1; i >= 0; i-- {
			ptr := list[i]
			if ptr%align != 0 {
				continue
			}
			b.freeList[size] = append(list[:i], list[i+1:]...)
			clear(b.data[ptr : ptr+size])
			return ptr, nil
		}
	}

	ptr := alignUp(b.next, align)
	end := uint64(ptr) + uint64(size)
	if end > uint64(b.limit) {
		return 0, ErrBufferFull
	}
	if end > uint64(len(b.data)) {
		grown := uint64(len(b.data)) * 2
		for grown < end {
			grown *= 2
		}
		if grown > uint64(b.limit) {
			grown = uint64(b.limit)
		}
		data := make([]byte, grown)
		copy(data, b.data)
		b.data = data
	}
	b.next = uint32(end)
	return ptr, nil
}

// Free returns a block to the free list. Freeing null is a no-op.
func (b *Buffer) Free(ptr, size, _ uint32) {
	if ptr == 0 {
		return
	}
	if size == 0 {
		size = 1
	}
	size = alignUp(size, reserved)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.freeList[size] = append(b.freeList[size], ptr)
}

// Read returns a copy of length bytes at offset.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b.data[offset:])
	return out, nil
}

// Write copies data to offset.
func (b *Buffer) Write(offset uint32, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.data[offset:]), nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[offset:]), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(offset, 1); err != nil {
		return err
	}
	b.data[offset] = value
	return nil
}

func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.data[offset:], value)
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[offset:], value)
	return nil
}

// check must be called with mu held.
func (b *Buffer) check(offset, length uint32) error {
	if offset == 0 && length > 0 {
		return fmt.Errorf("null pointer access: length=%d", length)
	}
	if uint64(offset)+uint64(length) > uint64(len(b.data)) {
		return fmt.Errorf("memory access out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

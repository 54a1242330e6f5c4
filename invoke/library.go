package invoke

import (
	"context"

	"github.com/wippyai/girepository"
)

// Function is a foreign entry point taking and returning raw 64-bit
// words. wazero's api.Function satisfies it.
type Function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Library resolves symbols to entry points within one foreign address
// space.
type Library interface {
	// Name identifies the library. It is matched against the shared
	// libraries a typelib lists to order symbol resolution.
	Name() string
	Lookup(symbol string) (Function, bool)
	// Address returns the function pointer value of symbol.
	Address(symbol string) (uint32, bool)
	// FunctionAt resolves a function pointer read from foreign memory.
	FunctionAt(addr uint32) (Function, bool)
	Memory() girepository.Memory
	// Allocator returns nil when the library cannot allocate.
	Allocator() girepository.Allocator
}

// HostFunc adapts a Go function to Function.
type HostFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f HostFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

// Package memory provides foreign address spaces for invocation backends.
//
// Buffer is a self-contained little-endian arena used by host libraries whose
// callables are implemented in Go. Wrapper and the allocator adapters expose a
// wazero module's linear memory and allocation exports through the same
// girepository.Memory and girepository.Allocator interfaces.
package memory

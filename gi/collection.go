package gi

import (
	"iter"

	"github.com/wippyai/girepository/typelib"
)

// Collection is an ordered, index-addressable list of child infos.
// Elements are materialized on access; each call to At returns a new
// handle.
type Collection[T Info] struct {
	at   func(int) T
	name func(int) string
	n    int
}

func indexCollection[T Info](tl *Typelib, indices []int) Collection[T] {
	if tl == nil {
		return Collection[T]{}
	}
	return Collection[T]{
		n:    len(indices),
		at:   func(i int) T { return newInfo(tl, indices[i]).(T) },
		name: func(i int) string { return tl.raw.Name(indices[i]) },
	}
}

func refCollection(tl *Typelib, refs []typelib.Ref) Collection[Info] {
	if tl == nil {
		return Collection[Info]{}
	}
	return Collection[Info]{
		n:    len(refs),
		at:   func(i int) Info { return tl.resolve(refs[i]) },
		name: func(i int) string { return refs[i].Name },
	}
}

// Len returns the number of elements.
func (c Collection[T]) Len() int { return c.n }

// At returns element i. It panics if i is out of range.
func (c Collection[T]) At(i int) T {
	if i < 0 || i >= c.n {
		panic("gi: collection index out of range")
	}
	return c.at(i)
}

// All iterates over the elements in order.
func (c Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < c.n; i++ {
			if !yield(i, c.at(i)) {
				return
			}
		}
	}
}

// Find returns the first element with the given name.
func (c Collection[T]) Find(name string) (T, bool) {
	for i := 0; i < c.n; i++ {
		if c.name(i) == name {
			return c.at(i), true
		}
	}
	var zero T
	return zero, false
}

// Names returns the element names without materializing the elements.
func (c Collection[T]) Names() []string {
	out := make([]string, c.n)
	for i := range out {
		out[i] = c.name(i)
	}
	return out
}

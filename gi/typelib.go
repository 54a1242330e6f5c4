package gi

import (
	"sync/atomic"

	"github.com/wippyai/girepository/typelib"
)

// Typelib is a namespace loaded into a Repository. It is immutable once
// loaded and stays loaded for the life of the repository.
type Typelib struct {
	raw   *typelib.Typelib
	repo  *Repository
	path  string
	flags LoadFlags
	live  atomic.Int64
}

func newTypelib(repo *Repository, raw *typelib.Typelib, path string, flags LoadFlags) *Typelib {
	return &Typelib{raw: raw, repo: repo, path: path, flags: flags}
}

func (t *Typelib) Namespace() string { return t.raw.Namespace }
func (t *Typelib) Version() string   { return t.raw.Version }
func (t *Typelib) CPrefix() string   { return t.raw.CPrefix }

// Path returns the file the typelib was read from, or "" when it was
// registered from memory.
func (t *Typelib) Path() string { return t.path }

// Flags returns the flags the typelib was loaded with.
func (t *Typelib) Flags() LoadFlags { return t.flags }

// SharedLibraries returns the foreign libraries providing its symbols.
func (t *Typelib) SharedLibraries() []string {
	return append([]string(nil), t.raw.SharedLibraries...)
}

// Dependencies returns the immediate "Namespace-Version" dependencies.
func (t *Typelib) Dependencies() []string {
	return append([]string(nil), t.raw.Dependencies...)
}

// Raw returns the underlying decoded blob.
func (t *Typelib) Raw() *typelib.Typelib { return t.raw }

// NumInfos returns the number of top-level infos.
func (t *Typelib) NumInfos() int { return t.raw.NumInfos() }

// Info returns the n-th top-level info in directory order.
func (t *Typelib) Info(n int) (Info, bool) {
	idx, ok := t.raw.Info(n)
	if !ok {
		return nil, false
	}
	return newInfo(t, idx), true
}

// Find returns the top-level info with the given name.
func (t *Typelib) Find(name string) (Info, bool) {
	idx, ok := t.raw.Lookup(name)
	if !ok {
		return nil, false
	}
	return newInfo(t, idx), true
}

// LiveInfos returns the number of info handles into this typelib that
// have not been fully released.
func (t *Typelib) LiveInfos() int64 { return t.live.Load() }

// resolve turns a type reference into an info. References into
// namespaces that are not loaded yield an UnresolvedInfo.
func (t *Typelib) resolve(r typelib.Ref) Info {
	if r.IsZero() {
		return nil
	}
	ns := r.Namespace
	if ns == "" || ns == t.Namespace() {
		if idx, ok := t.raw.Lookup(r.Name); ok {
			return newInfo(t, idx)
		}
		return newUnresolved(t.Namespace(), r.Name)
	}
	if t.repo != nil {
		if info, ok := t.repo.FindByName(ns, r.Name); ok {
			return info
		}
	}
	return newUnresolved(ns, r.Name)
}

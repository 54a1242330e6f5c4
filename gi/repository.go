package gi

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// Repository holds loaded namespaces and answers lookups across them.
// It is safe for concurrent use. Namespaces are never unloaded.
type Repository struct {
	loader   Loader
	registry *gtype.Registry
	log      *zap.Logger

	// loadMu serializes namespace loads; mu guards the fields below.
	loadMu     sync.Mutex
	mu         sync.RWMutex
	loaded     map[string]*Typelib
	order      []string
	searchPath []string
	typeInit   TypeInitializer
}

// Option configures a Repository.
type Option func(*Repository)

// WithSearchPath replaces the default search path.
func WithSearchPath(dirs ...string) Option {
	return func(r *Repository) {
		r.searchPath = append([]string(nil), dirs...)
	}
}

// WithLoader replaces the FileLoader.
func WithLoader(l Loader) Option {
	return func(r *Repository) {
		r.loader = l
	}
}

// WithTypeRegistry shares a runtime type registry with the repository.
func WithTypeRegistry(reg *gtype.Registry) Option {
	return func(r *Repository) {
		r.registry = reg
	}
}

// WithTypeInitializer sets the hook resolving unknown runtime types.
func WithTypeInitializer(fn TypeInitializer) Option {
	return func(r *Repository) {
		r.typeInit = fn
	}
}

// WithLogger sets the repository logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.log = l
	}
}

// New creates an empty repository. The search path defaults to the
// directories listed in GI_TYPELIB_PATH.
func New(opts ...Option) *Repository {
	r := &Repository{
		loaded:     make(map[string]*Typelib),
		searchPath: SearchPathFromEnv(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = FileLoader{}
	}
	if r.registry == nil {
		r.registry = gtype.NewRegistry()
	}
	if r.log == nil {
		r.log = Logger()
	}
	return r
}

var (
	defaultRepo *Repository
	defaultOnce sync.Once
)

// Default returns the process-wide repository, created on first use.
// Prefer explicit repositories where the caller controls the lifetime.
func Default() *Repository {
	defaultOnce.Do(func() {
		defaultRepo = New()
	})
	return defaultRepo
}

// Require loads namespace and its dependencies. An empty version loads
// the newest available one. Requiring a loaded namespace returns it
// without reloading; requiring a different version of it fails.
func (r *Repository) Require(ctx context.Context, namespace, version string, flags LoadFlags) (*Typelib, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.require(ctx, namespace, version, flags, r.SearchPath(), nil)
}

// RequirePrivate is Require with dir searched before the search path.
func (r *Repository) RequirePrivate(ctx context.Context, dir, namespace, version string, flags LoadFlags) (*Typelib, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	path := append([]string{dir}, r.SearchPath()...)
	return r.require(ctx, namespace, version, flags, path, nil)
}

// LoadTypelib registers an already decoded typelib and requires its
// dependencies. Registering a namespace that is already loaded returns
// the loaded typelib if the versions agree.
func (r *Repository) LoadTypelib(ctx context.Context, raw *typelib.Typelib, flags LoadFlags) (*Typelib, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	if tl, ok := r.typelib(raw.Namespace); ok {
		if tl.Version() != raw.Version {
			return nil, errors.VersionConflict(raw.Namespace, tl.Version(), raw.Version)
		}
		return tl, nil
	}
	return r.register(ctx, raw, "", flags, r.SearchPath(), nil)
}

func (r *Repository) require(ctx context.Context, namespace, version string, flags LoadFlags, searchPath, chain []string) (*Typelib, error) {
	if tl, ok := r.typelib(namespace); ok {
		if version != "" && tl.Version() != version {
			err := errors.VersionConflict(namespace, tl.Version(), version)
			r.log.Error("rejected namespace load", zap.Error(err))
			return nil, err
		}
		return tl, nil
	}
	if slices.Contains(chain, namespace) {
		return nil, errors.Load(fmt.Sprintf("dependency cycle %s -> %s", strings.Join(chain, " -> "), namespace), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, path, err := r.loader.Load(ctx, namespace, version, searchPath, flags)
	if err != nil {
		r.log.Error("namespace load failed",
			zap.String("namespace", namespace),
			zap.String("version", version),
			zap.Error(err))
		return nil, err
	}
	if raw.Namespace != namespace {
		return nil, errors.Load(fmt.Sprintf("%s declares namespace %s, expected %s", path, raw.Namespace, namespace), nil)
	}
	if version != "" && raw.Version != version {
		return nil, errors.VersionConflict(namespace, raw.Version, version)
	}
	return r.register(ctx, raw, path, flags, searchPath, chain)
}

// register requires the dependencies of raw and publishes it.
func (r *Repository) register(ctx context.Context, raw *typelib.Typelib, path string, flags LoadFlags, searchPath, chain []string) (*Typelib, error) {
	chain = append(chain, raw.Namespace)
	for _, dep := range raw.Dependencies {
		ns, ver := splitDependency(dep)
		r.log.Debug("requiring dependency",
			zap.String("namespace", raw.Namespace),
			zap.String("dependency", dep))
		if _, err := r.require(ctx, ns, ver, flags, searchPath, chain); err != nil {
			return nil, errors.Load(fmt.Sprintf("dependency %s of %s", dep, raw.Namespace), err)
		}
	}

	tl := newTypelib(r, raw, path, flags)
	r.mu.Lock()
	r.loaded[raw.Namespace] = tl
	r.order = append(r.order, raw.Namespace)
	r.mu.Unlock()

	r.log.Debug("loaded namespace",
		zap.String("namespace", raw.Namespace),
		zap.String("version", raw.Version),
		zap.String("path", path),
		zap.Bool("lazy", raw.Lazy()),
		zap.Int("infos", raw.NumInfos()))
	return tl, nil
}

func (r *Repository) typelib(namespace string) (*Typelib, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tl, ok := r.loaded[namespace]
	return tl, ok
}

// Typelib returns the loaded typelib of namespace.
func (r *Repository) Typelib(namespace string) (*Typelib, bool) {
	return r.typelib(namespace)
}

// FindByName looks up a top-level info of a loaded namespace.
func (r *Repository) FindByName(namespace, name string) (Info, bool) {
	tl, ok := r.typelib(namespace)
	if !ok {
		return nil, false
	}
	return tl.Find(name)
}

// FindByGType looks up the registered type info for a runtime type.
func (r *Repository) FindByGType(t gtype.Type) (Registered, bool) {
	name := r.registry.Name(t)
	if name == "" {
		return nil, false
	}
	for _, tl := range r.typelibs() {
		if idx, ok := tl.raw.LookupTypeName(name); ok {
			info := newInfo(tl, idx)
			reg, ok := info.(Registered)
			if !ok {
				info.Release()
			}
			return reg, ok
		}
	}
	return nil, false
}

// FindByErrorDomain looks up the enum declaring an error domain.
func (r *Repository) FindByErrorDomain(domain gtype.Quark) (*EnumInfo, bool) {
	name := domain.String()
	if name == "" {
		return nil, false
	}
	for _, tl := range r.typelibs() {
		if idx, ok := tl.raw.LookupErrorDomain(name); ok {
			info := newInfo(tl, idx)
			e, ok := info.(*EnumInfo)
			if !ok {
				info.Release()
			}
			return e, ok
		}
	}
	return nil, false
}

// NInfos returns the number of top-level infos of a loaded namespace.
func (r *Repository) NInfos(namespace string) (int, bool) {
	tl, ok := r.typelib(namespace)
	if !ok {
		return 0, false
	}
	return tl.NumInfos(), true
}

// Info returns the i-th top-level info of a loaded namespace.
func (r *Repository) Info(namespace string, i int) (Info, error) {
	tl, ok := r.typelib(namespace)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLookup, "namespace", namespace)
	}
	info, ok := tl.Info(i)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseLookup, []string{namespace}, i, tl.NumInfos())
	}
	return info, nil
}

// Infos returns every top-level info of a loaded namespace in order.
func (r *Repository) Infos(namespace string) []Info {
	tl, ok := r.typelib(namespace)
	if !ok {
		return nil
	}
	out := make([]Info, tl.NumInfos())
	for i := range out {
		out[i], _ = tl.Info(i)
	}
	return out
}

// Version returns the loaded version of namespace.
func (r *Repository) Version(namespace string) (string, bool) {
	tl, ok := r.typelib(namespace)
	if !ok {
		return "", false
	}
	return tl.Version(), true
}

// LoadedNamespaces returns the loaded namespaces in load order.
func (r *Repository) LoadedNamespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// IsRegistered reports whether namespace is loaded, and if version is
// not empty, whether it is loaded at that version.
func (r *Repository) IsRegistered(namespace, version string) bool {
	tl, ok := r.typelib(namespace)
	return ok && (version == "" || tl.Version() == version)
}

// ImmediateDependencies returns the "Namespace-Version" dependencies
// namespace declares.
func (r *Repository) ImmediateDependencies(namespace string) []string {
	tl, ok := r.typelib(namespace)
	if !ok {
		return nil
	}
	return tl.Dependencies()
}

// Dependencies returns the transitive dependencies of namespace in
// depth-first declaration order, each listed once.
func (r *Repository) Dependencies(namespace string) []string {
	var (
		out  []string
		seen = map[string]bool{namespace: true}
		walk func(ns string)
	)
	walk = func(ns string) {
		for _, dep := range r.ImmediateDependencies(ns) {
			depNS, _ := splitDependency(dep)
			if seen[depNS] {
				continue
			}
			seen[depNS] = true
			out = append(out, dep)
			walk(depNS)
		}
	}
	walk(namespace)
	return out
}

// SharedLibraries returns the foreign libraries of namespace.
func (r *Repository) SharedLibraries(namespace string) []string {
	tl, ok := r.typelib(namespace)
	if !ok {
		return nil
	}
	return tl.SharedLibraries()
}

// CPrefix returns the C identifier prefix of namespace.
func (r *Repository) CPrefix(namespace string) string {
	tl, ok := r.typelib(namespace)
	if !ok {
		return ""
	}
	return tl.CPrefix()
}

// TypelibPath returns the file namespace was loaded from.
func (r *Repository) TypelibPath(namespace string) string {
	tl, ok := r.typelib(namespace)
	if !ok {
		return ""
	}
	return tl.Path()
}

// SearchPath returns a copy of the search path.
func (r *Repository) SearchPath() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.searchPath...)
}

// PrependSearchPath adds dir in front of the search path.
func (r *Repository) PrependSearchPath(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchPath = append([]string{dir}, r.searchPath...)
}

// EnumerateVersions lists the available versions of namespace, newest
// first. A loaded version is always included.
func (r *Repository) EnumerateVersions(namespace string) []string {
	versions := r.loader.Versions(namespace, r.SearchPath())
	if v, ok := r.Version(namespace); ok && !slices.Contains(versions, v) {
		versions = append(versions, v)
		SortVersions(versions)
	}
	return versions
}

// TypeRegistry returns the runtime type registry.
func (r *Repository) TypeRegistry() *gtype.Registry { return r.registry }

// SetTypeInitializer installs the hook resolving unknown runtime types.
func (r *Repository) SetTypeInitializer(fn TypeInitializer) {
	r.mu.Lock()
	r.typeInit = fn
	r.mu.Unlock()
}

func (r *Repository) typeInitializer() TypeInitializer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeInit
}

func (r *Repository) typelibs() []*Typelib {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Typelib, len(r.order))
	for i, ns := range r.order {
		out[i] = r.loaded[ns]
	}
	return out
}

package gi

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// writeFixtures compiles YAML sources from testdata into binary
// typelibs in a temporary directory.
func writeFixtures(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join("testdata", f))
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		tl, err := typelib.CompileSource(data)
		if err != nil {
			t.Fatalf("compile %s: %v", f, err)
		}
		if _, err := WriteTypelib(dir, tl); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return dir
}

func newDemoRepo(t *testing.T, flags LoadFlags) *Repository {
	t.Helper()
	dir := writeFixtures(t, "glib.yaml", "gobject.yaml", "demo.yaml")
	repo := New(WithSearchPath(dir))
	if _, err := repo.Require(context.Background(), "Demo", "1.0", flags); err != nil {
		t.Fatalf("Require(Demo): %v", err)
	}
	return repo
}

func find[T Info](t *testing.T, repo *Repository, namespace, name string) T {
	t.Helper()
	info, ok := repo.FindByName(namespace, name)
	if !ok {
		t.Fatalf("%s.%s not found", namespace, name)
	}
	v, ok := info.(T)
	if !ok {
		t.Fatalf("%s.%s is %T", namespace, name, info)
	}
	return v
}

func errKind(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// memLoader serves typelibs from memory keyed by "Namespace-Version".
type memLoader struct {
	typelibs map[string]*typelib.Typelib
	loads    []string
}

func (m *memLoader) Load(_ context.Context, namespace, version string, searchPath []string, _ LoadFlags) (*typelib.Typelib, string, error) {
	if version == "" {
		versions := m.Versions(namespace, searchPath)
		if len(versions) == 0 {
			return nil, "", errors.NotFound(errors.PhaseLoad, "namespace", namespace)
		}
		version = versions[0]
	}
	key := namespace + "-" + version
	tl, ok := m.typelibs[key]
	if !ok {
		return nil, "", errors.NotFound(errors.PhaseLoad, "typelib", key)
	}
	m.loads = append(m.loads, key)
	return tl, "mem:" + key, nil
}

func (m *memLoader) Versions(namespace string, _ []string) []string {
	var out []string
	for key := range m.typelibs {
		ns, v := splitDependency(key)
		if ns == namespace {
			out = append(out, v)
		}
	}
	SortVersions(out)
	return out
}

// synthetic builds a namespace of n functions.
func synthetic(t *testing.T, namespace, version string, n int, deps ...string) *typelib.Typelib {
	t.Helper()
	b := typelib.NewBuilder(typelib.Header{Namespace: namespace, Version: version, Dependencies: deps})
	for i := 0; i < n; i++ {
		fn := typelib.NewEntry(typelib.KindFunction, fmt.Sprintf("func_%d", i))
		fn.Symbol = fmt.Sprintf("%s_func_%d", strings.ToLower(namespace), i)
		b.AddTop(fn)
	}
	tl, err := b.Build()
	if err != nil {
		t.Fatalf("build %s: %v", namespace, err)
	}
	return tl
}

func TestRequire_LoadsDependenciesFirst(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)

	if got, want := repo.LoadedNamespaces(), []string{"GLib", "GObject", "Demo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("LoadedNamespaces = %v, want %v", got, want)
	}
	if got, want := repo.ImmediateDependencies("Demo"), []string{"GObject-2.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ImmediateDependencies = %v, want %v", got, want)
	}
	if got, want := repo.Dependencies("Demo"), []string{"GObject-2.0", "GLib-2.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Dependencies = %v, want %v", got, want)
	}
	for _, ns := range repo.LoadedNamespaces() {
		all := repo.Dependencies(ns)
		for _, dep := range repo.ImmediateDependencies(ns) {
			found := false
			for _, d := range all {
				found = found || d == dep
			}
			if !found {
				t.Errorf("%s: immediate dependency %s missing from %v", ns, dep, all)
			}
		}
	}

	if v, ok := repo.Version("GObject"); !ok || v != "2.0" {
		t.Errorf("Version(GObject) = %q, %v", v, ok)
	}
	if got := repo.SharedLibraries("Demo"); !reflect.DeepEqual(got, []string{"libdemo.so.1"}) {
		t.Errorf("SharedLibraries = %v", got)
	}
	if got := repo.CPrefix("Demo"); got != "demo" {
		t.Errorf("CPrefix = %q", got)
	}
	if got := repo.TypelibPath("Demo"); filepath.Base(got) != "Demo-1.0.typelib" {
		t.Errorf("TypelibPath = %q", got)
	}
	if !repo.IsRegistered("Demo", "1.0") || !repo.IsRegistered("Demo", "") || repo.IsRegistered("Demo", "2.0") {
		t.Error("IsRegistered mismatch")
	}
	if repo.IsRegistered("Gtk", "") {
		t.Error("Gtk should not be registered")
	}
}

func TestRequire_Idempotent(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	ctx := context.Background()

	first, err := repo.Require(ctx, "GLib", "2.0", LoadFlagNone)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	second, err := repo.Require(ctx, "GLib", "", LoadFlagLazy)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if first != second {
		t.Error("second Require returned a different typelib")
	}
	if n := len(repo.LoadedNamespaces()); n != 3 {
		t.Errorf("loaded %d namespaces, want 3", n)
	}
}

func TestRequire_VersionConflict(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)

	_, err := repo.Require(context.Background(), "GLib", "3.0", LoadFlagNone)
	if err == nil {
		t.Fatal("expected version conflict")
	}
	if errKind(err) != errors.KindLoadFailure {
		t.Errorf("kind = %q, want %q", errKind(err), errors.KindLoadFailure)
	}
	if v, _ := repo.Version("GLib"); v != "2.0" {
		t.Errorf("loaded version changed to %q", v)
	}
}

func TestRequire_Failures(t *testing.T) {
	loader := &memLoader{typelibs: map[string]*typelib.Typelib{
		"A-1.0":      synthetic(t, "A", "1.0", 1, "B-1.0"),
		"B-1.0":      synthetic(t, "B", "1.0", 1, "A-1.0"),
		"Broken-1.0": synthetic(t, "Broken", "1.0", 1, "Missing-1.0"),
		"Liar-1.0":   synthetic(t, "Other", "1.0", 1),
	}}

	tests := []struct {
		name      string
		namespace string
		kind      errors.Kind
	}{
		{"not found", "Nope", errors.KindNotFound},
		{"dependency cycle", "A", errors.KindLoadFailure},
		{"missing dependency", "Broken", errors.KindLoadFailure},
		{"wrong namespace", "Liar", errors.KindLoadFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := New(WithLoader(loader), WithSearchPath())
			_, err := repo.Require(context.Background(), tt.namespace, "1.0", LoadFlagNone)
			if err == nil {
				t.Fatal("expected error")
			}
			if errKind(err) != tt.kind {
				t.Errorf("kind = %q, want %q (%v)", errKind(err), tt.kind, err)
			}
			if ns := repo.LoadedNamespaces(); len(ns) != 0 {
				t.Errorf("failed load left namespaces %v", ns)
			}
		})
	}
}

func TestRequire_MissingDependencyIsNotFound(t *testing.T) {
	loader := &memLoader{typelibs: map[string]*typelib.Typelib{
		"Broken-1.0": synthetic(t, "Broken", "1.0", 1, "Missing-1.0"),
	}}
	repo := New(WithLoader(loader))
	_, err := repo.Require(context.Background(), "Broken", "1.0", LoadFlagNone)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound}) {
		t.Errorf("cause chain lacks not-found: %v", err)
	}
}

func TestRequire_NewestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, v := range []string{"1.0", "1.10", "1.2"} {
		if _, err := WriteTypelib(dir, synthetic(t, "Multi", v, 1)); err != nil {
			t.Fatal(err)
		}
	}
	repo := New(WithSearchPath(dir))

	if got, want := repo.EnumerateVersions("Multi"), []string{"1.10", "1.2", "1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("EnumerateVersions = %v, want %v", got, want)
	}
	tl, err := repo.Require(context.Background(), "Multi", "", LoadFlagNone)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if tl.Version() != "1.10" {
		t.Errorf("loaded %s, want 1.10", tl.Version())
	}
}

func TestRequirePrivate(t *testing.T) {
	public := t.TempDir()
	private := t.TempDir()
	if _, err := WriteTypelib(public, synthetic(t, "Pkg", "1.0", 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteTypelib(private, synthetic(t, "Pkg", "1.0", 2)); err != nil {
		t.Fatal(err)
	}

	repo := New(WithSearchPath(public))
	tl, err := repo.RequirePrivate(context.Background(), private, "Pkg", "1.0", LoadFlagNone)
	if err != nil {
		t.Fatalf("RequirePrivate: %v", err)
	}
	if tl.NumInfos() != 2 || filepath.Dir(tl.Path()) != private {
		t.Errorf("loaded %s with %d infos", tl.Path(), tl.NumInfos())
	}
	if got := repo.SearchPath(); !reflect.DeepEqual(got, []string{public}) {
		t.Errorf("search path changed: %v", got)
	}
}

func TestSearchPath(t *testing.T) {
	t.Setenv(EnvSearchPath, strings.Join([]string{"/a", "/b"}, string(os.PathListSeparator)))
	repo := New()
	if got := repo.SearchPath(); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("SearchPath = %v", got)
	}
	repo.PrependSearchPath("/first")
	if got := repo.SearchPath(); !reflect.DeepEqual(got, []string{"/first", "/a", "/b"}) {
		t.Errorf("SearchPath = %v", got)
	}
}

func TestLoadTypelib(t *testing.T) {
	ctx := context.Background()
	loader := &memLoader{typelibs: map[string]*typelib.Typelib{
		"Base-1.0": synthetic(t, "Base", "1.0", 1),
	}}
	repo := New(WithLoader(loader))

	app := synthetic(t, "App", "1.0", 3, "Base-1.0")
	tl, err := repo.LoadTypelib(ctx, app, LoadFlagNone)
	if err != nil {
		t.Fatalf("LoadTypelib: %v", err)
	}
	if tl.Path() != "" || tl.Raw() != app {
		t.Error("LoadTypelib should keep the blob and have no path")
	}
	if got := repo.LoadedNamespaces(); !reflect.DeepEqual(got, []string{"Base", "App"}) {
		t.Errorf("LoadedNamespaces = %v", got)
	}

	again, err := repo.LoadTypelib(ctx, synthetic(t, "App", "1.0", 1), LoadFlagNone)
	if err != nil || again != tl {
		t.Errorf("reloading same version: %v, same=%v", err, again == tl)
	}
	if _, err := repo.LoadTypelib(ctx, synthetic(t, "App", "2.0", 1), LoadFlagNone); errKind(err) != errors.KindLoadFailure {
		t.Errorf("conflicting version: %v", err)
	}
}

func TestLookups_NeverAutoLoad(t *testing.T) {
	loader := &memLoader{typelibs: map[string]*typelib.Typelib{
		"Lazy-1.0": synthetic(t, "Lazy", "1.0", 1),
	}}
	repo := New(WithLoader(loader))

	if _, ok := repo.FindByName("Lazy", "func_0"); ok {
		t.Error("FindByName found an info in an unloaded namespace")
	}
	if _, ok := repo.NInfos("Lazy"); ok {
		t.Error("NInfos succeeded for an unloaded namespace")
	}
	if _, err := repo.Info("Lazy", 0); errKind(err) != errors.KindNotFound {
		t.Errorf("Info: %v", err)
	}
	if repo.Infos("Lazy") != nil {
		t.Error("Infos returned entries for an unloaded namespace")
	}
	if len(loader.loads) != 0 || len(repo.LoadedNamespaces()) != 0 {
		t.Errorf("lookups triggered loads: %v", loader.loads)
	}
}

func TestEnumerationCompleteness(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)

	for _, ns := range repo.LoadedNamespaces() {
		n, ok := repo.NInfos(ns)
		if !ok {
			t.Fatalf("NInfos(%s) failed", ns)
		}
		infos := repo.Infos(ns)
		if len(infos) != n {
			t.Fatalf("%s: Infos has %d entries, NInfos %d", ns, len(infos), n)
		}
		seen := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			info, err := repo.Info(ns, i)
			if err != nil {
				t.Fatalf("Info(%s, %d): %v", ns, i, err)
			}
			if !info.Equal(infos[i]) {
				t.Errorf("%s[%d]: Info and Infos disagree", ns, i)
			}
			if seen[info.Name()] {
				t.Errorf("%s: duplicate %s", ns, info.Name())
			}
			seen[info.Name()] = true
			byName, ok := repo.FindByName(ns, info.Name())
			if !ok || !byName.Equal(info) {
				t.Errorf("%s: FindByName(%s) does not round trip", ns, info.Name())
			}
			if info.Container() != nil {
				t.Errorf("%s: top-level info has a container", info)
			}
		}
		if _, err := repo.Info(ns, n); errKind(err) != errors.KindOutOfBounds {
			t.Errorf("Info(%s, %d): %v", ns, n, err)
		}
	}
}

func TestRequire_LargeNamespace(t *testing.T) {
	dir := t.TempDir()
	if _, err := WriteTypelib(dir, synthetic(t, "GLib", "2.0", 900)); err != nil {
		t.Fatal(err)
	}
	repo := New(WithSearchPath(dir))
	if _, err := repo.Require(context.Background(), "GLib", "2.0", LoadFlagLazy); err != nil {
		t.Fatalf("Require: %v", err)
	}

	if got := repo.LoadedNamespaces(); !reflect.DeepEqual(got, []string{"GLib"}) {
		t.Errorf("LoadedNamespaces = %v", got)
	}
	n, _ := repo.NInfos("GLib")
	if n <= 860 {
		t.Errorf("NInfos = %d", n)
	}
	info, err := repo.Info("GLib", n-1)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if fn, ok := info.(*FunctionInfo); !ok || fn.Symbol() != "glib_func_899" {
		t.Errorf("last info = %v", info)
	}
}

func TestFindByGTypeAndErrorDomain(t *testing.T) {
	repo := newDemoRepo(t, LoadFlagNone)
	reg := repo.TypeRegistry()

	widget, err := reg.Register("DemoWidget", gtype.Object)
	if err != nil {
		t.Fatal(err)
	}
	info, ok := repo.FindByGType(widget)
	if !ok || info.Name() != "Widget" {
		t.Errorf("FindByGType(DemoWidget) = %v, %v", info, ok)
	}
	obj, ok := repo.FindByGType(gtype.Object)
	if !ok || obj.String() != "GObject.Object" {
		t.Errorf("FindByGType(GObject) = %v, %v", obj, ok)
	}
	if _, ok := repo.FindByGType(gtype.Variant); ok {
		t.Error("FindByGType(Variant) should fail")
	}

	enum, ok := repo.FindByErrorDomain(gtype.QuarkFromString("g-file-error-quark"))
	if !ok || enum.String() != "GLib.FileError" {
		t.Errorf("FindByErrorDomain = %v, %v", enum, ok)
	}
	if _, ok := repo.FindByErrorDomain(gtype.QuarkFromString("no-such-quark")); ok {
		t.Error("unknown domain found")
	}
}

func TestDefault(t *testing.T) {
	if Default() != Default() {
		t.Error("Default is not a singleton")
	}
}

func TestVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"2.0", Version{2, 0, 0}, true},
		{"1.10.3", Version{1, 10, 3}, true},
		{"3", Version{3, 0, 0}, true},
		{"", Version{}, false},
		{"1..0", Version{}, false},
		{"1.x", Version{}, false},
		{"1.2.3.4", Version{}, false},
		{"99999999999", Version{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseVersion(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, %v", tt.in, got, ok)
		}
	}

	versions := []string{"1.0", "dev", "2.0", "1.10", "1.2"}
	SortVersions(versions)
	if want := []string{"2.0", "1.10", "1.2", "1.0", "dev"}; !reflect.DeepEqual(versions, want) {
		t.Errorf("SortVersions = %v", versions)
	}

	if ns, v := splitDependency("GdkPixbuf-2.0"); ns != "GdkPixbuf" || v != "2.0" {
		t.Errorf("splitDependency = %s, %s", ns, v)
	}
}

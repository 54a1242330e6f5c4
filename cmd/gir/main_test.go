package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate keeps the user's config and typelib path out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("GI_TYPELIB_PATH", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIR_WASM", "")
	t.Setenv("GIR_TYPELIB_PATH", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// compiled writes the testdata typelibs into a temporary directory.
func compiled(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := run(t, "compile", "testdata/base.yaml", "testdata/tool.yaml", "-o", dir)
	if err != nil {
		t.Fatalf("compile: %v\n%s", err, out)
	}
	for _, name := range []string{"Base-1.0.typelib", "Tool-2.0.typelib"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("compile did not write %s: %v", name, err)
		}
	}
	return dir
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	want := []string{"list", "inspect", "deps", "compile", "call", "browse"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %s not registered", name)
		}
	}
}

func TestCommands(t *testing.T) {
	isolate(t)
	dir := compiled(t)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "list",
			args: []string{"list", "Tool"},
			want: []string{"add(a: int32, b: int32) -> int32", "Mode (ToolMode)", `VERSION = "2.0.1"`, "(deprecated)"},
		},
		{
			name:    "list filtered",
			args:    []string{"list", "Tool-2.0", "--filter", `kind == "function" && !deprecated`},
			want:    []string{"add(", "sample("},
			notWant: []string{"old_add", "Mode", "VERSION"},
		},
		{
			name: "list by symbol",
			args: []string{"list", "Tool", "-f", `symbol startsWith "tool_s"`},
			want: []string{"sample("},
		},
		{
			name: "inspect enum",
			args: []string{"inspect", "Tool.Mode"},
			want: []string{"enum Tool.Mode", "ToolMode", "values", "fast", "2"},
		},
		{
			name: "inspect member",
			args: []string{"inspect", "Tool.Mode.fast"},
			want: []string{"value", "2"},
		},
		{
			name: "inspect function",
			args: []string{"inspect", "Tool.sample"},
			want: []string{"symbol", "tool_sample", "throws", "data: void*?"},
		},
		{
			name: "deps",
			args: []string{"deps", "Tool"},
			want: []string{"Tool-2.0", "Tool-2.0.typelib", "libtool.so.2", "requires", "Base-1.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append(tt.args, "-I", dir, "--no-color")...)
			if err != nil {
				t.Fatalf("%v\n%s", err, out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output contains %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	isolate(t)
	dir := compiled(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown namespace", []string{"list", "Missing"}, "Missing"},
		{"bad path", []string{"inspect", "Tool"}, "Namespace.Name"},
		{"unknown info", []string{"inspect", "Tool.nope"}, "not found"},
		{"unknown member", []string{"inspect", "Tool.Mode.medium"}, "no member"},
		{"bad filter", []string{"list", "Tool", "--filter", "name +"}, "filter"},
		{"call without library", []string{"call", "Tool.add", "1", "2"}, "--wasm"},
		{"call a constant", []string{"call", "Tool.VERSION"}, "not a function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append(tt.args, "-I", dir)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestCompile_InvalidSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(src, []byte("namespace: Bad\ninfos:\n  - kind: nonsense\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "compile", src, "-o", t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}

package gi

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/typelib"
)

// TypelibExt is the file extension of binary typelibs.
const TypelibExt = ".typelib"

// EnvSearchPath names the environment variable listing typelib
// directories, separated by the OS path list separator.
const EnvSearchPath = "GI_TYPELIB_PATH"

// Loader locates and decodes the typelib of a namespace version.
type Loader interface {
	// Load returns the decoded typelib and the path it was read from.
	// An empty version selects the newest available one.
	Load(ctx context.Context, namespace, version string, searchPath []string, flags LoadFlags) (*typelib.Typelib, string, error)
	// Versions lists the available versions of namespace, newest first.
	Versions(namespace string, searchPath []string) []string
}

// FileLoader reads "<Namespace>-<Version>.typelib" files from the
// search path. The first directory containing the file wins.
type FileLoader struct{}

var _ Loader = FileLoader{}

func (l FileLoader) Load(ctx context.Context, namespace, version string, searchPath []string, flags LoadFlags) (*typelib.Typelib, string, error) {
	if version == "" {
		versions := l.Versions(namespace, searchPath)
		if len(versions) == 0 {
			return nil, "", errors.NotFound(errors.PhaseLoad, "namespace", namespace)
		}
		version = versions[0]
	}

	file := namespace + "-" + version + TypelibExt
	for _, dir := range searchPath {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		path := filepath.Join(dir, file)
		data, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", errors.Load("read "+path, err)
		}
		tl, err := typelib.Decode(data, flags)
		if err != nil {
			return nil, "", errors.Load("decode "+path, err)
		}
		return tl, path, nil
	}
	return nil, "", errors.NotFound(errors.PhaseLoad, "typelib", file)
}

func (FileLoader) Versions(namespace string, searchPath []string) []string {
	prefix := namespace + "-"
	seen := make(map[string]bool)
	var out []string
	for _, dir := range searchPath {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, TypelibExt) {
				continue
			}
			v := strings.TrimSuffix(strings.TrimPrefix(name, prefix), TypelibExt)
			if v == "" || strings.Contains(v, "-") || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	SortVersions(out)
	return out
}

// SearchPathFromEnv returns the directories listed in GI_TYPELIB_PATH.
func SearchPathFromEnv() []string {
	return filepath.SplitList(os.Getenv(EnvSearchPath))
}

// WriteTypelib encodes tl into dir under its canonical file name and
// returns the path written.
func WriteTypelib(dir string, tl *typelib.Typelib) (string, error) {
	data, err := typelib.Encode(tl)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, tl.Namespace+"-"+tl.Version+TypelibExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "write "+path)
	}
	return path, nil
}

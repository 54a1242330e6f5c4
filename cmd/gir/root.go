package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/girepository/gi"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gir",
		Short: "Inspect typelibs and call the functions they describe",
		Long: `gir loads binary typelibs from the search path, prints the metadata they
carry and invokes their functions against a WebAssembly library.

Typelibs are looked up in --typelib-path directories, then GI_TYPELIB_PATH.
Settings may also come from gir.yaml or GIR_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringSliceP("typelib-path", "I", nil, "directories searched for typelibs")
	flags.String("wasm", "", "WebAssembly module providing the namespace's symbols")
	flags.BoolP("verbose", "v", false, "log repository and invocation events")
	flags.Bool("no-color", false, "disable coloured output")
	flags.String("config", "", "config file (default ./gir.yaml)")

	root.AddCommand(
		newListCommand(),
		newInspectCommand(),
		newDepsCommand(),
		newCompileCommand(),
		newCallCommand(),
		newBrowseCommand(),
	)
	return root
}

// session is the state shared by commands working on a repository.
type session struct {
	cfg  *config
	log  *zap.Logger
	repo *gi.Repository
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := cfg.setup(cmd)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, repo: cfg.repository(log)}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

// require loads "Namespace" or "Namespace-Version".
func (s *session) require(ctx context.Context, arg string, flags gi.LoadFlags) (*gi.Typelib, error) {
	ns, version, _ := strings.Cut(arg, "-")
	return s.repo.Require(ctx, ns, version, flags)
}

// lookup resolves "Namespace.Name" or "Namespace.Name.member", loading
// the namespace first.
func (s *session) lookup(ctx context.Context, path string) (gi.Info, error) {
	ns, rest, ok := strings.Cut(path, ".")
	if !ok || rest == "" {
		return nil, fmt.Errorf("%q is not of the form Namespace.Name", path)
	}
	if _, err := s.require(ctx, ns, gi.LoadFlagLazy); err != nil {
		return nil, err
	}
	name, member, _ := strings.Cut(rest, ".")
	info, ok := s.repo.FindByName(ns, name)
	if !ok {
		return nil, fmt.Errorf("%s.%s not found", ns, name)
	}
	if member == "" {
		return info, nil
	}
	m, ok := findMember(info, member)
	if !ok {
		return nil, fmt.Errorf("%s has no member %q", info, member)
	}
	return m, nil
}

// findMember looks member up among the methods, vfuncs, fields and
// values of a container info.
func findMember(info gi.Info, member string) (gi.Info, bool) {
	switch v := info.(type) {
	case *gi.ObjectInfo:
		if m, _, ok := v.FindMethodUsingInterfaces(member); ok {
			return m, true
		}
		if vf, _, ok := v.FindVFuncUsingInterfaces(member); ok {
			return vf, true
		}
		if s, ok := v.FindSignal(member); ok {
			return s, true
		}
	case *gi.InterfaceInfo:
		if m, ok := v.FindMethod(member); ok {
			return m, true
		}
		if vf, ok := v.FindVFunc(member); ok {
			return vf, true
		}
		if s, ok := v.FindSignal(member); ok {
			return s, true
		}
	case *gi.StructInfo:
		if m, ok := v.FindMethod(member); ok {
			return m, true
		}
		if f, ok := v.FindField(member); ok {
			return f, true
		}
	case *gi.UnionInfo:
		if m, ok := v.FindMethod(member); ok {
			return m, true
		}
		if f, ok := v.FindField(member); ok {
			return f, true
		}
	case *gi.EnumInfo:
		if m, ok := v.FindMethod(member); ok {
			return m, true
		}
		for _, val := range v.Values().All() {
			if val.Name() == member {
				return val, true
			}
		}
	}
	return nil, false
}

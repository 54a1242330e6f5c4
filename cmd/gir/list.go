package main

import (
	"fmt"
	"io"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cobra"

	"github.com/wippyai/girepository/gi"
)

// entry is the environment --filter expressions are evaluated against.
type entry struct {
	Index      int    `expr:"index"`
	Name       string `expr:"name"`
	Kind       string `expr:"kind"`
	Namespace  string `expr:"namespace"`
	TypeName   string `expr:"type_name"`
	Symbol     string `expr:"symbol"`
	Deprecated bool   `expr:"deprecated"`
	Throws     bool   `expr:"throws"`
	Args       int    `expr:"args"`
}

func newEntry(i int, info gi.Info) entry {
	e := entry{
		Index:      i,
		Name:       info.Name(),
		Kind:       info.Kind().String(),
		Namespace:  info.Namespace(),
		Deprecated: info.IsDeprecated(),
	}
	if r, ok := info.(gi.Registered); ok {
		e.TypeName = r.TypeName()
	}
	if c, ok := info.(gi.Callable); ok {
		e.Throws = c.CanThrow()
		e.Args = c.Args().Len()
	}
	if fn, ok := info.(*gi.FunctionInfo); ok {
		e.Symbol = fn.Symbol()
	}
	return e
}

// filter is a compiled --filter predicate. The zero filter matches
// everything.
type filter struct {
	prg *vm.Program
}

func compileFilter(src string) (filter, error) {
	if src == "" {
		return filter{}, nil
	}
	prg, err := expr.Compile(src, expr.Env(entry{}), expr.AsBool())
	if err != nil {
		return filter{}, fmt.Errorf("filter: %w", err)
	}
	return filter{prg: prg}, nil
}

func (f filter) match(e entry) (bool, error) {
	if f.prg == nil {
		return true, nil
	}
	out, err := expr.Run(f.prg, e)
	if err != nil {
		return false, fmt.Errorf("filter %s: %w", e.Name, err)
	}
	return out.(bool), nil
}

func newListCommand() *cobra.Command {
	var filterSrc string
	cmd := &cobra.Command{
		Use:   "list NAMESPACE[-VERSION]",
		Short: "List the top-level infos of a namespace",
		Example: `  gir list GLib
  gir list Gtk-4.0 --filter 'kind == "object" && !deprecated'
  gir list Calc --filter 'throws || args > 2'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := compileFilter(filterSrc)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			tl, err := s.require(cmd.Context(), args[0], gi.LoadFlagLazy)
			if err != nil {
				return err
			}
			return listInfos(cmd.OutOrStdout(), s.repo.Infos(tl.Namespace()), f)
		},
	}
	cmd.Flags().StringVarP(&filterSrc, "filter", "f", "", "expression selecting entries (fields: name, kind, type_name, symbol, deprecated, throws, args, index)")
	return cmd
}

func listInfos(w io.Writer, all []gi.Info, f filter) error {
	for i, info := range all {
		ok, err := f.match(newEntry(i, info))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		dimColor.Fprintf(w, "%4d ", i)
		kindColor.Fprintf(w, "%-10s ", info.Kind())
		fmt.Fprint(w, summary(info))
		if info.IsDeprecated() {
			warnColor.Fprint(w, " (deprecated)")
		}
		fmt.Fprintln(w)
	}
	return nil
}

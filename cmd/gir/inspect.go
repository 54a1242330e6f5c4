package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/girepository/gi"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect NAMESPACE.NAME[.MEMBER]",
		Short: "Describe one info and its members",
		Example: `  gir inspect GObject.Object
  gir inspect Calc.Counter.step`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			info, err := s.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			describe(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func newDepsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deps NAMESPACE[-VERSION]",
		Short: "Show where a namespace was loaded from and what it requires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			tl, err := s.require(cmd.Context(), args[0], gi.LoadFlagLazy)
			if err != nil {
				return err
			}
			printDeps(cmd.OutOrStdout(), s.repo, tl.Namespace())
			return nil
		},
	}
}

func printDeps(w io.Writer, repo *gi.Repository, ns string) {
	version, _ := repo.Version(ns)
	nameColor.Fprintf(w, "%s-%s\n", ns, version)
	field(w, "path", repo.TypelibPath(ns))
	field(w, "c prefix", repo.CPrefix(ns))
	field(w, "versions", strings.Join(repo.EnumerateVersions(ns), ", "))
	field(w, "libraries", strings.Join(repo.SharedLibraries(ns), ", "))

	direct := repo.ImmediateDependencies(ns)
	if len(direct) == 0 {
		return
	}
	headingColor.Fprintln(w, "  requires")
	for _, d := range direct {
		fmt.Fprintln(w, "    "+d)
	}
	all := repo.Dependencies(ns)
	if len(all) > len(direct) {
		headingColor.Fprintln(w, "  transitively")
		seen := make(map[string]bool, len(direct))
		for _, d := range direct {
			seen[d] = true
		}
		for _, d := range all {
			if !seen[d] {
				fmt.Fprintln(w, "    "+d)
			}
		}
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/typelib"
)

func newCompileCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "compile SOURCE.yaml...",
		Short: "Compile YAML typelib sources to binary typelibs",
		Long: `compile reads typelib sources in YAML and writes each as
<Namespace>-<Version>.typelib into the output directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, src := range args {
				path, err := compileFile(src, outDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", src, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	return cmd
}

func compileFile(src, outDir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	tl, err := typelib.CompileSource(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", src, err)
	}
	return gi.WriteTypelib(outDir, tl)
}

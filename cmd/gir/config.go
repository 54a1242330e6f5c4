package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/invoke"
)

// config is merged from gir.yaml, GIR_* variables and flags, in
// increasing precedence.
type config struct {
	TypelibPath []string `mapstructure:"typelib-path"`
	Wasm        string   `mapstructure:"wasm"`
	Verbose     bool     `mapstructure:"verbose"`
	NoColor     bool     `mapstructure:"no-color"`
}

func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	v.SetConfigName("gir")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "gir"))
	}
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		v.SetConfigFile(file)
	}

	v.SetEnvPrefix("GIR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"typelib-path", "wasm", "verbose", "no-color"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.TypelibPath = splitPathList(cfg.TypelibPath)
	return &cfg, nil
}

// splitPathList expands entries holding an OS path list, as
// GIR_TYPELIB_PATH does.
func splitPathList(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, dir := range filepath.SplitList(e) {
			if dir != "" {
				out = append(out, dir)
			}
		}
	}
	return out
}

// setup applies the ambient settings of cfg: loggers and colour.
func (cfg *config) setup(cmd *cobra.Command) (*zap.Logger, error) {
	if cfg.NoColor || !isTerminal(cmd.OutOrStdout()) {
		color.NoColor = true
	}
	if !cfg.Verbose {
		return zap.NewNop(), nil
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	gi.SetLogger(log.Named("gi"))
	invoke.SetLogger(log.Named("invoke"))
	return log, nil
}

// repository builds a repository searching the configured directories
// ahead of GI_TYPELIB_PATH.
func (cfg *config) repository(log *zap.Logger) *gi.Repository {
	path := append(append([]string(nil), cfg.TypelibPath...), gi.SearchPathFromEnv()...)
	return gi.New(gi.WithSearchPath(path...), gi.WithLogger(log.Named("gi")))
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

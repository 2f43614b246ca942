package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"jremap/internal/classfile"
	"jremap/internal/config"
	"jremap/internal/jar"
	"jremap/internal/mapping"
	"jremap/internal/renamer"
	"jremap/internal/rewrite"
	"jremap/internal/slogutil"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    int
	quiet      bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "jremap",
		Short:         "Rename symbols in JVM class files using a mapping",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./"+config.FileName+" when present)")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "more logging (-v info, -vv debug)")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "no logging")

	root.AddCommand(
		a.remapCmd(),
		a.classCmd(),
		a.inspectCmd(),
		a.graphCmd(),
		a.initCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slogutil.NewLogger(cmd.ErrOrStderr(), slogutil.Resolve(a.verbose, a.quiet, cfg.LogLevel))
	return nil
}

// translator loads the mapping at path, or the configured one when path is
// empty.
func (a *app) translator(path string) (*mapping.Translator, error) {
	if path == "" {
		path = a.cfg.Mappings
	}
	if path == "" {
		return nil, errors.New("--mappings is required")
	}
	s, err := mapping.Load(path)
	if err != nil {
		return nil, err
	}
	st := s.Stats()
	a.logger.Info("mappings loaded", "path", path, "classes", st.Classes, "fields", st.Fields, "methods", st.Methods)
	return mapping.NewTranslator(s, a.cfg.CacheSize)
}

func (a *app) rewriter(tr *mapping.Translator) *rewrite.Rewriter {
	return rewrite.New(tr, renamer.New(), rewrite.WithLogger(a.logger))
}

// parseClasses decodes the class entries of a jar. Entries that do not
// parse are logged and skipped.
func (a *app) parseClasses(entries []jar.Entry) []*classfile.Class {
	var out []*classfile.Class
	for _, e := range entries {
		if !e.IsClass() {
			continue
		}
		c, err := classfile.Parse(e.Data)
		if err != nil {
			a.logger.Warn("skipping class", "entry", e.Name, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out
}

func readClassFile(path string) (*classfile.Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// required checks name/value flag pairs in order.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("--%s is required", pairs[i])
		}
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jremap/internal/classfile"
)

func (a *app) classCmd() *cobra.Command {
	var in, out, mappings string
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Remap a single class file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required("in", in, "out", out); err != nil {
				return err
			}
			tr, err := a.translator(mappings)
			if err != nil {
				return err
			}
			c, err := readClassFile(in)
			if err != nil {
				return err
			}
			old, err := c.Name()
			if err != nil {
				return err
			}
			stats, err := a.rewriter(tr).RewriteStats(c)
			if err != nil {
				return err
			}
			data, err := classfile.Write(c)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			name, err := c.Name()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s -> %s, %d refs, %d fields, %d methods)\n",
				out, old, name, stats.References, stats.Fields, stats.Methods)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "input class file")
	f.StringVar(&out, "out", "", "output class file")
	f.StringVar(&mappings, "mappings", "", "mapping file")
	return cmd
}

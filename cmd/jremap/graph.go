package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jremap/internal/batch"
	"jremap/internal/classfmt"
	"jremap/internal/jar"
	"jremap/internal/output"
	"jremap/internal/refgraph"
)

func (a *app) graphCmd() *cobra.Command {
	var (
		in, out, mappings string
		all               bool
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Write the class reference graph of a jar as DOT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required("in", in, "out", out); err != nil {
				return err
			}
			entries, err := jar.Read(in)
			if err != nil {
				return err
			}
			if mappings != "" {
				tr, err := a.translator(mappings)
				if err != nil {
					return err
				}
				opts := a.cfg.Options()
				opts.Mode = classfmt.ModeBestEffort
				res, err := batch.Run(cmd.Context(), entries, a.rewriter(tr), batch.Options{Options: opts, Logger: a.logger})
				if err != nil {
					return err
				}
				entries = res.Entries
			}

			keep := refgraph.SkipPlatform
			if all {
				keep = nil
			}
			g, err := refgraph.Build(a.parseClasses(entries), keep)
			if err != nil {
				return err
			}
			if err := output.WriteDOT(out, refgraph.DOT(g, "references")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d nodes, %d edges)\n", out, len(g.Nodes), len(g.Edges))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "input jar")
	f.StringVar(&out, "out", "", "output DOT file")
	f.StringVar(&mappings, "mappings", "", "remap classes before graphing")
	f.BoolVar(&all, "all", false, "keep JDK classes")
	return cmd
}

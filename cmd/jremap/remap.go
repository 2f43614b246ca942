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

func (a *app) remapCmd() *cobra.Command {
	var (
		in, out, mappings string
		report, graph     string
		workers           int
		strict            bool
	)
	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Remap every class of a jar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required("in", in, "out", out); err != nil {
				return err
			}
			tr, err := a.translator(mappings)
			if err != nil {
				return err
			}
			entries, err := jar.Read(in)
			if err != nil {
				return err
			}

			opts := a.cfg.Options()
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if strict {
				opts.Mode = classfmt.ModeStrict
			}
			res, err := batch.Run(cmd.Context(), entries, a.rewriter(tr), batch.Options{Options: opts, Logger: a.logger})
			if err != nil {
				return fmt.Errorf("remap: %w", err)
			}
			if err := jar.Write(out, res.Entries); err != nil {
				return err
			}
			sum := res.Summary()
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d entries, %d classes, %d renamed, %d failed)\n",
				out, sum.Entries, sum.Classes, sum.Renamed, sum.Failed)
			for _, d := range res.Diags.Items() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", d)
			}

			if report != "" {
				r := output.NewReport(in, out, opts, tr.Store().Stats(), res)
				if err := output.WriteReport(report, r); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", report)
			}
			if graph != "" {
				g, err := refgraph.Build(a.parseClasses(res.Entries), refgraph.SkipPlatform)
				if err != nil {
					return err
				}
				if err := output.WriteDOT(graph, refgraph.DOT(g, "references")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d nodes, %d edges)\n", graph, len(g.Nodes), len(g.Edges))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "input jar")
	f.StringVar(&out, "out", "", "output jar")
	f.StringVar(&mappings, "mappings", "", "mapping file (Enigma text, or YAML by .yaml/.yml extension)")
	f.StringVar(&report, "report", "", "write a JSON report")
	f.StringVar(&graph, "graph", "", "write the remapped reference graph as DOT")
	f.IntVar(&workers, "workers", 0, "concurrent class workers (default from config)")
	f.BoolVar(&strict, "strict", false, "stop at the first class that fails")
	return cmd
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"jremap/internal/output"
)

func (a *app) inspectCmd() *cobra.Command {
	var (
		in      string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump the constant pool, members and attributes of a class file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required("in", in); err != nil {
				return err
			}
			c, err := readClassFile(in)
			if err != nil {
				return err
			}
			d, err := output.Dump(c)
			if err != nil {
				return err
			}
			if jsonOut {
				return output.EncodeJSON(cmd.OutOrStdout(), d)
			}
			printDump(cmd.OutOrStdout(), d)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "class file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON instead of text")
	return cmd
}

func printDump(w io.Writer, d *output.ClassDump) {
	fmt.Fprintf(w, "class %s (access %s, version %s)\n", d.Name, d.Access, d.Version)
	if d.Super != "" {
		fmt.Fprintf(w, "  extends %s\n", d.Super)
	}
	if len(d.Interfaces) > 0 {
		fmt.Fprintf(w, "  implements %s\n", strings.Join(d.Interfaces, ", "))
	}
	if d.SourceFile != "" {
		fmt.Fprintf(w, "  source %s\n", d.SourceFile)
	}

	fmt.Fprintf(w, "\nconstant pool (%d):\n", len(d.Pool))
	for _, p := range d.Pool {
		fmt.Fprintf(w, "  #%-5d %-18s %s\n", p.Index, p.Tag, p.Value)
	}

	fmt.Fprintf(w, "\nfields (%d):\n", len(d.Fields))
	for _, m := range d.Fields {
		printMember(w, m)
	}
	fmt.Fprintf(w, "\nmethods (%d):\n", len(d.Methods))
	for _, m := range d.Methods {
		printMember(w, m)
	}
	if len(d.Attributes) > 0 {
		fmt.Fprintf(w, "\nattributes: %s\n", strings.Join(d.Attributes, ", "))
	}
}

func printMember(w io.Writer, m output.MemberRecord) {
	fmt.Fprintf(w, "  %s %s %s", m.Access, m.Name, m.Descriptor)
	if len(m.Attributes) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(m.Attributes, ", "))
	}
	fmt.Fprintln(w)
}

// Package refgraph builds class dependency graphs from parsed class files.
package refgraph

import (
	"fmt"
	"strings"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"jremap/internal/classfile"
)

// Filter decides whether a referenced class becomes a node. A nil Filter
// keeps everything.
type Filter func(name string) bool

// SkipPlatform drops classes that ship with the JDK.
func SkipPlatform(name string) bool {
	for _, p := range []string{"java/", "javax/", "jdk/", "sun/", "com/sun/"} {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

// Build constructs a lattice.Graph with one node per class and an edge from
// each class to every class it extends, implements, or references through a
// field or method ref. Array owners are reduced to their element class.
// Self edges are skipped.
func Build(classes []*classfile.Class, keep Filter) (*lattice.Graph, error) {
	g := &lattice.Graph{}
	for _, c := range classes {
		self, err := c.Name()
		if err != nil {
			return nil, fmt.Errorf("refgraph: %w", err)
		}
		g.Nodes = append(g.Nodes, self)
		targets, err := references(c)
		if err != nil {
			return nil, fmt.Errorf("refgraph: %s: %w", self, err)
		}
		for _, t := range targets {
			if t == self || (keep != nil && !keep(t)) {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{Caller: self, Callee: t})
		}
	}
	g.Dedup()
	return g, nil
}

func references(c *classfile.Class) ([]string, error) {
	var out []string
	if c.SuperClass != 0 {
		super, err := c.SuperName()
		if err != nil {
			return nil, err
		}
		out = append(out, super)
	}
	for _, i := range c.Interfaces {
		name, err := c.Pool.ClassName(i)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	for i := 1; i < c.Pool.Len(); i++ {
		if _, ok := c.Pool.At(i).(classfile.MemberRef); !ok {
			continue
		}
		ref, err := c.Pool.MemberRef(i)
		if err != nil {
			return nil, err
		}
		if owner := elementClass(ref.Owner); owner != "" {
			out = append(out, owner)
		}
	}
	return out, nil
}

// elementClass strips array dimensions from a class constant name. It
// returns "" for primitive arrays.
func elementClass(name string) string {
	if !strings.HasPrefix(name, "[") {
		return name
	}
	name = strings.TrimLeft(name, "[")
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") {
		return name[1 : len(name)-1]
	}
	return ""
}

// DOT renders g as Graphviz source.
func DOT(g *lattice.Graph, title string) string {
	return render.DOT(g, title)
}

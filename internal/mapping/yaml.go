package mapping

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlFile is the on-disk YAML layout:
//
//	classes:
//	  - obf: obf/A
//	    deobf: pkg/Widget
//	    fields:
//	      - {obf: a, desc: Lobf/B;, deobf: count}
//	    methods:
//	      - {obf: b, desc: (I)V, deobf: run, args: {1: times}}
//	    classes:
//	      - {obf: c, deobf: Inner}
type yamlFile struct {
	Classes []yamlClass `yaml:"classes"`
}

type yamlClass struct {
	Obf     string       `yaml:"obf"`
	Deobf   string       `yaml:"deobf,omitempty"`
	Fields  []yamlMember `yaml:"fields,omitempty"`
	Methods []yamlMember `yaml:"methods,omitempty"`
	Classes []yamlClass  `yaml:"classes,omitempty"`
}

type yamlMember struct {
	Obf   string         `yaml:"obf"`
	Desc  string         `yaml:"desc"`
	Deobf string         `yaml:"deobf,omitempty"`
	Args  map[int]string `yaml:"args,omitempty"`
}

// ReadYAML parses mappings in the YAML layout.
func ReadYAML(r io.Reader) (*Store, error) {
	var f yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: yaml: %v", ErrSyntax, err)
	}
	s := NewStore()
	for _, c := range f.Classes {
		if c.Obf == "" {
			return nil, fmt.Errorf("%w: yaml: class without obf name", ErrSyntax)
		}
		if err := fillYAML(s.AddClass(c.Obf, c.Deobf), c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func fillYAML(m *ClassMapping, c yamlClass) error {
	for _, f := range c.Fields {
		if f.Obf == "" || f.Desc == "" || f.Deobf == "" {
			return fmt.Errorf("%w: yaml: field in %s needs obf, desc and deobf", ErrSyntax, c.Obf)
		}
		m.AddField(f.Obf, f.Desc, f.Deobf)
	}
	for _, meth := range c.Methods {
		if meth.Obf == "" || meth.Desc == "" {
			return fmt.Errorf("%w: yaml: method in %s needs obf and desc", ErrSyntax, c.Obf)
		}
		mm := m.AddMethod(meth.Obf, meth.Desc, meth.Deobf)
		if len(meth.Args) > 0 {
			mm.Args = meth.Args
		}
	}
	for _, in := range c.Classes {
		if in.Obf == "" {
			return fmt.Errorf("%w: yaml: inner class of %s without obf name", ErrSyntax, c.Obf)
		}
		deobf := in.Deobf
		if deobf != "" {
			deobf = lastSegment(deobf)
		}
		if err := fillYAML(m.AddInner(lastSegment(in.Obf), deobf), in); err != nil {
			return err
		}
	}
	return nil
}

// WriteYAML writes s in the YAML layout.
func WriteYAML(w io.Writer, s *Store) error {
	var f yamlFile
	for _, name := range s.ClassNames() {
		f.Classes = append(f.Classes, toYAML(s.classes[name]))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("mapping: write yaml: %w", err)
	}
	return enc.Close()
}

func toYAML(m *ClassMapping) yamlClass {
	c := yamlClass{Obf: m.Obf, Deobf: m.Deobf}
	for _, k := range sortedKeys(m.Fields) {
		c.Fields = append(c.Fields, yamlMember{Obf: k.Name, Desc: k.Descriptor, Deobf: m.Fields[k]})
	}
	for _, k := range sortedKeys(m.Methods) {
		mm := m.Methods[k]
		c.Methods = append(c.Methods, yamlMember{Obf: k.Name, Desc: k.Descriptor, Deobf: mm.Deobf, Args: mm.Args})
	}
	inner := make([]string, 0, len(m.Inner))
	for n := range m.Inner {
		inner = append(inner, n)
	}
	sort.Strings(inner)
	for _, n := range inner {
		c.Classes = append(c.Classes, toYAML(m.Inner[n]))
	}
	return c
}

// Load reads a mapping file, choosing the format by extension: .yaml and
// .yml are YAML, anything else is Enigma text.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open: %w", err)
	}
	defer f.Close()
	var s *Store
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err = ReadYAML(f)
	default:
		s, err = ReadEnigma(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

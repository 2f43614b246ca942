package mapping

import (
	"sort"
	"strings"
)

// MemberKey identifies a field or method inside a class mapping by its
// obfuscated name and obfuscated descriptor.
type MemberKey struct {
	Name       string
	Descriptor string
}

// MethodMapping is the target of one method mapping.
type MethodMapping struct {
	Deobf string
	Args  map[int]string // local variable index → name
}

// ClassMapping maps one class. Top-level mappings use the full internal
// name for Obf and Deobf; inner mappings use the simple segment after '$'.
// Deobf is "" when only members are mapped.
type ClassMapping struct {
	Obf     string
	Deobf   string
	Inner   map[string]*ClassMapping
	Fields  map[MemberKey]string
	Methods map[MemberKey]*MethodMapping
}

func newClassMapping(obf, deobf string) *ClassMapping {
	return &ClassMapping{
		Obf:     obf,
		Deobf:   deobf,
		Inner:   make(map[string]*ClassMapping),
		Fields:  make(map[MemberKey]string),
		Methods: make(map[MemberKey]*MethodMapping),
	}
}

// AddInner adds (or returns the existing) mapping for a nested class.
func (m *ClassMapping) AddInner(obf, deobf string) *ClassMapping {
	if in, ok := m.Inner[obf]; ok {
		if deobf != "" {
			in.Deobf = deobf
		}
		return in
	}
	in := newClassMapping(obf, deobf)
	m.Inner[obf] = in
	return in
}

// AddField maps the field named obf with obfuscated descriptor desc.
func (m *ClassMapping) AddField(obf, desc, deobf string) {
	m.Fields[MemberKey{obf, desc}] = deobf
}

// AddMethod maps the method named obf with obfuscated descriptor desc.
func (m *ClassMapping) AddMethod(obf, desc, deobf string) *MethodMapping {
	mm := &MethodMapping{Deobf: deobf}
	m.Methods[MemberKey{obf, desc}] = mm
	return mm
}

// Store is a mapping database. It is built once and then only read, so a
// Store may be shared by concurrent readers.
type Store struct {
	classes map[string]*ClassMapping
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{classes: make(map[string]*ClassMapping)}
}

// AddClass adds (or returns the existing) mapping for a top-level class.
func (s *Store) AddClass(obf, deobf string) *ClassMapping {
	if m, ok := s.classes[obf]; ok {
		if deobf != "" {
			m.Deobf = deobf
		}
		return m
	}
	m := newClassMapping(obf, deobf)
	s.classes[obf] = m
	return m
}

// Class returns the mapping for an obfuscated internal class name, walking
// through nested mappings for inner classes.
func (s *Store) Class(name string) (*ClassMapping, bool) {
	path := s.lookup(name)
	if len(path) == 0 || len(path) != len(splitNested(name)) {
		return nil, false
	}
	return path[len(path)-1], true
}

// lookup returns the mappings along the nesting chain of name, stopping at
// the first segment that has no mapping.
func (s *Store) lookup(name string) []*ClassMapping {
	segs := splitNested(name)
	m, ok := s.classes[segs[0]]
	if !ok {
		return nil
	}
	path := []*ClassMapping{m}
	for _, seg := range segs[1:] {
		if m, ok = m.Inner[seg]; !ok {
			break
		}
		path = append(path, m)
	}
	return path
}

// splitNested splits "pkg/A$B$C" into ["pkg/A", "B", "C"]. A '$' at the
// start of the simple name belongs to the outer segment.
func splitNested(name string) []string {
	pkgLen := strings.LastIndexByte(name, '/') + 1
	simple := name[pkgLen:]
	i := nestIndex(simple)
	if i < 0 {
		return []string{name}
	}
	return append([]string{name[:pkgLen+i]}, strings.Split(simple[i+1:], "$")...)
}

// Stats counts what a store holds.
type Stats struct {
	Classes int `json:"classes"`
	Fields  int `json:"fields"`
	Methods int `json:"methods"`
	Args    int `json:"args"`
}

// Stats walks the whole store.
func (s *Store) Stats() Stats {
	var st Stats
	var walk func(m *ClassMapping)
	walk = func(m *ClassMapping) {
		st.Classes++
		st.Fields += len(m.Fields)
		st.Methods += len(m.Methods)
		for _, mm := range m.Methods {
			st.Args += len(mm.Args)
		}
		for _, in := range m.Inner {
			walk(in)
		}
	}
	for _, m := range s.classes {
		walk(m)
	}
	return st
}

// ClassNames returns the obfuscated names of all top-level mappings, sorted.
func (s *Store) ClassNames() []string {
	names := make([]string, 0, len(s.classes))
	for n := range s.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[MemberKey]V) []MemberKey {
	keys := make([]MemberKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Descriptor < keys[j].Descriptor
	})
	return keys
}

func sortedArgs(args map[int]string) []int {
	idx := make([]int, 0, len(args))
	for i := range args {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

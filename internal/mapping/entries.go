// Package mapping holds symbol identities, the obfuscated-to-deobfuscated
// mapping store, its file loaders, and the Translator built on top of them.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"jremap/internal/descriptor"
)

var ErrMalformedName = errors.New("mapping: malformed class name")

// ClassEntry identifies a class by its internal name ("pkg/Outer$Inner").
// Array classes use their descriptor ("[Lpkg/A;") as the name.
type ClassEntry struct {
	Name string
}

// Package returns the package part of the name ("pkg/sub"), or "" for the
// default package.
func (c ClassEntry) Package() string {
	if i := strings.LastIndexByte(c.Name, '/'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// SimpleName returns the name without its package ("Outer$Inner").
func (c ClassEntry) SimpleName() string {
	return c.Name[strings.LastIndexByte(c.Name, '/')+1:]
}

// InnerName returns the last $-separated segment of the simple name, or the
// simple name itself for a top-level class.
func (c ClassEntry) InnerName() string {
	s := c.SimpleName()
	if nestIndex(s) < 0 {
		return s
	}
	return s[strings.LastIndexByte(s, '$')+1:]
}

// IsInner reports whether the class is nested in another class.
func (c ClassEntry) IsInner() bool {
	return nestIndex(c.SimpleName()) > 0
}

// nestIndex returns the index of the '$' that ends the outermost segment of
// a simple name, or -1. A leading '$' is part of the name, as in $Proxy0.
func nestIndex(simple string) int {
	if len(simple) < 2 {
		return -1
	}
	i := strings.IndexByte(simple[1:], '$')
	if i < 0 {
		return -1
	}
	return i + 1
}

// IsArray reports whether the entry names an array class.
func (c ClassEntry) IsArray() bool {
	return strings.HasPrefix(c.Name, "[")
}

// OuterName returns the name of the directly enclosing class, or "" if the
// class is not nested.
func (c ClassEntry) OuterName() string {
	if !c.IsInner() {
		return ""
	}
	return c.Name[:strings.LastIndexByte(c.Name, '$')]
}

// Outermost returns the top-level class of the nesting chain. A class that
// is not nested is its own outermost class.
func (c ClassEntry) Outermost() (ClassEntry, error) {
	if err := c.validate(); err != nil {
		return ClassEntry{}, err
	}
	pkgLen := strings.LastIndexByte(c.Name, '/') + 1
	simple := c.Name[pkgLen:]
	i := nestIndex(simple)
	if i < 0 {
		return c, nil
	}
	return ClassEntry{Name: c.Name[:pkgLen+i]}, nil
}

func (c ClassEntry) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: empty name", ErrMalformedName)
	case c.IsArray():
		return fmt.Errorf("%w: %q is an array class", ErrMalformedName, c.Name)
	case strings.HasPrefix(c.Name, "/") || strings.HasSuffix(c.Name, "/"):
		return fmt.Errorf("%w: %q", ErrMalformedName, c.Name)
	case strings.Contains(c.Name, "//") || strings.ContainsAny(c.Name, ".;"):
		return fmt.Errorf("%w: %q", ErrMalformedName, c.Name)
	}
	return nil
}

func (c ClassEntry) String() string { return c.Name }

// FieldEntry identifies a field by owner, name and type.
type FieldEntry struct {
	Class ClassEntry
	Name  string
	Type  descriptor.Type
}

func (f FieldEntry) String() string {
	return fmt.Sprintf("%s.%s:%s", f.Class.Name, f.Name, f.Type)
}

// BehaviorEntry identifies a method, constructor or static initializer by
// owner, name and signature.
type BehaviorEntry struct {
	Class     ClassEntry
	Name      string
	Signature descriptor.Signature
}

// Equal reports whether two entries name the same behavior.
func (b BehaviorEntry) Equal(o BehaviorEntry) bool {
	return b.Class == o.Class && b.Name == o.Name && b.Signature.Equal(o.Signature)
}

func (b BehaviorEntry) IsConstructor() bool       { return b.Name == "<init>" }
func (b BehaviorEntry) IsStaticInitializer() bool { return b.Name == "<clinit>" }

func (b BehaviorEntry) String() string {
	return fmt.Sprintf("%s.%s%s", b.Class.Name, b.Name, b.Signature)
}

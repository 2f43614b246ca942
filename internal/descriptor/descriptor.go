// Package descriptor parses and prints JVM field and method descriptors.
//
// A Type is the structured form of a field descriptor such as "I",
// "[[Ljava/lang/String;" or "Lobf/B;". A Signature is the structured form of
// a method descriptor such as "(ILobf/B;)V". Both print back to their
// canonical descriptor string, and class names embedded in them can be
// substituted without touching primitive or array structure.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("descriptor: malformed descriptor")

// MaxArrayDims is the JVM limit on array dimensions in a descriptor.
const MaxArrayDims = 255

// Type is a field type. Exactly one of Base or Class is set.
type Type struct {
	Dims  int    // array dimensions; 0 for non-arrays
	Base  byte   // primitive code (B C D F I J S Z, or V for method returns)
	Class string // internal class name, e.g. "java/lang/String"
}

// Void is the return type of methods that return nothing.
var Void = Type{Base: 'V'}

// Object returns a class type with the given internal name.
func Object(name string) Type { return Type{Class: name} }

// Primitive returns a primitive type for a base code.
func Primitive(code byte) Type { return Type{Base: code} }

func (t Type) IsPrimitive() bool { return t.Dims == 0 && t.Base != 0 }
func (t Type) IsObject() bool    { return t.Dims == 0 && t.Class != "" }
func (t Type) IsArray() bool     { return t.Dims > 0 }
func (t Type) IsVoid() bool      { return t.Dims == 0 && t.Base == 'V' }

// HasClass reports whether a class name is embedded in t (possibly as an
// array element).
func (t Type) HasClass() bool { return t.Class != "" }

// Elem returns the element type of an array type, or t itself.
func (t Type) Elem() Type {
	if t.Dims == 0 {
		return t
	}
	t.Dims--
	return t
}

// String returns the canonical descriptor.
func (t Type) String() string {
	var b strings.Builder
	t.appendTo(&b)
	return b.String()
}

func (t Type) appendTo(b *strings.Builder) {
	for i := 0; i < t.Dims; i++ {
		b.WriteByte('[')
	}
	if t.Class != "" {
		b.WriteByte('L')
		b.WriteString(t.Class)
		b.WriteByte(';')
		return
	}
	b.WriteByte(t.Base)
}

// MapClass returns t with its embedded class name passed through fn.
// Primitive types are returned unchanged.
func (t Type) MapClass(fn func(string) string) Type {
	if t.Class == "" {
		return t
	}
	t.Class = fn(t.Class)
	return t
}

// ParseType parses a field descriptor.
func ParseType(s string) (Type, error) {
	t, n, err := parseType(s, 0, false)
	if err != nil {
		return Type{}, err
	}
	if n != len(s) {
		return Type{}, fmt.Errorf("%w: trailing data in %q", ErrMalformed, s)
	}
	return t, nil
}

// parseType reads one type starting at s[i] and returns the index after it.
func parseType(s string, i int, allowVoid bool) (Type, int, error) {
	var t Type
	for i < len(s) && s[i] == '[' {
		t.Dims++
		i++
	}
	if t.Dims > MaxArrayDims {
		return Type{}, 0, fmt.Errorf("%w: %d array dimensions in %q", ErrMalformed, t.Dims, s)
	}
	if i >= len(s) {
		return Type{}, 0, fmt.Errorf("%w: truncated %q", ErrMalformed, s)
	}
	switch c := s[i]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		t.Base = c
		return t, i + 1, nil
	case 'V':
		if !allowVoid || t.Dims > 0 {
			return Type{}, 0, fmt.Errorf("%w: void not allowed in %q", ErrMalformed, s)
		}
		t.Base = c
		return t, i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return Type{}, 0, fmt.Errorf("%w: unterminated class in %q", ErrMalformed, s)
		}
		name := s[i+1 : i+end]
		if !validClassName(name) {
			return Type{}, 0, fmt.Errorf("%w: bad class name %q in %q", ErrMalformed, name, s)
		}
		t.Class = name
		return t, i + end + 1, nil
	default:
		return Type{}, 0, fmt.Errorf("%w: unexpected %q in %q", ErrMalformed, c, s)
	}
}

func validClassName(name string) bool {
	if name == "" || name[0] == '/' || name[len(name)-1] == '/' {
		return false
	}
	return !strings.ContainsAny(name, ".;[<>") && !strings.Contains(name, "//")
}

// Signature is a method descriptor.
type Signature struct {
	Params []Type
	Return Type
}

// String returns the canonical method descriptor.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range s.Params {
		p.appendTo(&b)
	}
	b.WriteByte(')')
	s.Return.appendTo(&b)
	return b.String()
}

// Equal reports whether two signatures describe the same method shape.
func (s Signature) Equal(o Signature) bool {
	if s.Return != o.Return || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// MapClasses returns a copy of s with every embedded class name passed through fn.
func (s Signature) MapClasses(fn func(string) string) Signature {
	out := Signature{Return: s.Return.MapClass(fn)}
	if len(s.Params) > 0 {
		out.Params = make([]Type, len(s.Params))
		for i, p := range s.Params {
			out.Params[i] = p.MapClass(fn)
		}
	}
	return out
}

// ParseSignature parses a method descriptor.
func ParseSignature(s string) (Signature, error) {
	if len(s) < 3 || s[0] != '(' {
		return Signature{}, fmt.Errorf("%w: %q is not a method descriptor", ErrMalformed, s)
	}
	var sig Signature
	i := 1
	for {
		if i >= len(s) {
			return Signature{}, fmt.Errorf("%w: unterminated parameters in %q", ErrMalformed, s)
		}
		if s[i] == ')' {
			i++
			break
		}
		t, next, err := parseType(s, i, false)
		if err != nil {
			return Signature{}, err
		}
		sig.Params = append(sig.Params, t)
		i = next
	}
	ret, next, err := parseType(s, i, true)
	if err != nil {
		return Signature{}, err
	}
	if next != len(s) {
		return Signature{}, fmt.Errorf("%w: trailing data in %q", ErrMalformed, s)
	}
	sig.Return = ret
	return sig, nil
}

// MapDescriptor rewrites class names inside either a field or a method
// descriptor string.
func MapDescriptor(desc string, fn func(string) string) (string, error) {
	if strings.HasPrefix(desc, "(") {
		sig, err := ParseSignature(desc)
		if err != nil {
			return "", err
		}
		return sig.MapClasses(fn).String(), nil
	}
	t, err := ParseType(desc)
	if err != nil {
		return "", err
	}
	return t.MapClass(fn).String(), nil
}

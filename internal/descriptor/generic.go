package descriptor

import (
	"fmt"
	"strings"
)

// RemapGeneric rewrites every class name inside a generic signature (the
// value of a Signature attribute) through fn. Class, method and field
// signatures are all accepted. Type variables and primitive types are copied.
//
// Inner class suffixes ("Lobf/A<TT;>.b;") are resolved to their binary name
// ("obf/A$b") before calling fn, and only the last segment of the result is
// written back after the dot.
func RemapGeneric(sig string, fn func(string) string) (string, error) {
	r := &genericRemapper{s: sig, fn: fn}
	if err := r.signature(); err != nil {
		return "", fmt.Errorf("%w: signature %q: %v", ErrMalformed, sig, err)
	}
	return r.b.String(), nil
}

type genericRemapper struct {
	s  string
	i  int
	fn func(string) string
	b  strings.Builder
}

func (r *genericRemapper) eof() bool { return r.i >= len(r.s) }

func (r *genericRemapper) peek() byte {
	if r.eof() {
		return 0
	}
	return r.s[r.i]
}

func (r *genericRemapper) expect(c byte) error {
	if r.peek() != c {
		return fmt.Errorf("expected %q at %d", c, r.i)
	}
	r.b.WriteByte(c)
	r.i++
	return nil
}

func (r *genericRemapper) signature() error {
	if r.peek() == '<' {
		if err := r.typeParameters(); err != nil {
			return err
		}
	}
	if r.peek() == '(' {
		return r.method()
	}
	if r.eof() {
		return fmt.Errorf("empty signature")
	}
	for !r.eof() {
		if err := r.javaType(); err != nil {
			return err
		}
	}
	return nil
}

func (r *genericRemapper) method() error {
	if err := r.expect('('); err != nil {
		return err
	}
	for r.peek() != ')' {
		if r.eof() {
			return fmt.Errorf("unterminated parameters")
		}
		if err := r.javaType(); err != nil {
			return err
		}
	}
	r.b.WriteByte(')')
	r.i++
	if r.peek() == 'V' {
		r.b.WriteByte('V')
		r.i++
	} else if err := r.javaType(); err != nil {
		return err
	}
	for r.peek() == '^' {
		r.b.WriteByte('^')
		r.i++
		if err := r.referenceType(); err != nil {
			return err
		}
	}
	if !r.eof() {
		return fmt.Errorf("trailing data at %d", r.i)
	}
	return nil
}

func (r *genericRemapper) typeParameters() error {
	if err := r.expect('<'); err != nil {
		return err
	}
	for r.peek() != '>' {
		if r.eof() {
			return fmt.Errorf("unterminated type parameters")
		}
		id := r.identifier()
		if id == "" {
			return fmt.Errorf("missing type parameter name at %d", r.i)
		}
		r.b.WriteString(id)
		// Class bound may be empty; interface bounds may not.
		if err := r.expect(':'); err != nil {
			return err
		}
		if c := r.peek(); c == 'L' || c == 'T' || c == '[' {
			if err := r.referenceType(); err != nil {
				return err
			}
		}
		for r.peek() == ':' {
			r.b.WriteByte(':')
			r.i++
			if err := r.referenceType(); err != nil {
				return err
			}
		}
	}
	r.b.WriteByte('>')
	r.i++
	return nil
}

func (r *genericRemapper) javaType() error {
	switch r.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		r.b.WriteByte(r.peek())
		r.i++
		return nil
	}
	return r.referenceType()
}

func (r *genericRemapper) referenceType() error {
	switch r.peek() {
	case 'L':
		return r.classType()
	case 'T':
		end := strings.IndexByte(r.s[r.i:], ';')
		if end < 0 {
			return fmt.Errorf("unterminated type variable at %d", r.i)
		}
		r.b.WriteString(r.s[r.i : r.i+end+1])
		r.i += end + 1
		return nil
	case '[':
		r.b.WriteByte('[')
		r.i++
		return r.javaType()
	default:
		return fmt.Errorf("unexpected %q at %d", r.peek(), r.i)
	}
}

func (r *genericRemapper) classType() error {
	r.b.WriteByte('L')
	r.i++
	start := r.i
	for !r.eof() && !strings.ContainsRune("<.;", rune(r.peek())) {
		r.i++
	}
	full := r.s[start:r.i]
	if full == "" {
		return fmt.Errorf("empty class name at %d", start)
	}
	r.b.WriteString(r.fn(full))
	for {
		switch r.peek() {
		case '<':
			if err := r.typeArguments(); err != nil {
				return err
			}
		case '.':
			r.i++
			id := r.identifier()
			if id == "" {
				return fmt.Errorf("empty inner class name at %d", r.i)
			}
			full += "$" + id
			r.b.WriteByte('.')
			r.b.WriteString(innerSegment(r.fn(full)))
		case ';':
			r.b.WriteByte(';')
			r.i++
			return nil
		default:
			return fmt.Errorf("unterminated class type at %d", r.i)
		}
	}
}

func (r *genericRemapper) typeArguments() error {
	r.b.WriteByte('<')
	r.i++
	for r.peek() != '>' {
		switch r.peek() {
		case 0:
			return fmt.Errorf("unterminated type arguments")
		case '*':
			r.b.WriteByte('*')
			r.i++
			continue
		case '+', '-':
			r.b.WriteByte(r.peek())
			r.i++
		}
		if err := r.referenceType(); err != nil {
			return err
		}
	}
	r.b.WriteByte('>')
	r.i++
	return nil
}

func (r *genericRemapper) identifier() string {
	start := r.i
	for !r.eof() && !strings.ContainsRune(":;<>./[", rune(r.peek())) {
		r.i++
	}
	return r.s[start:r.i]
}

// innerSegment returns the part of a binary class name after the last '$',
// or after the last '/' when there is no '$'.
func innerSegment(name string) string {
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		return name[i+1:]
	}
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

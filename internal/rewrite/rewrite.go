// Package rewrite renames the symbols of a single class in place.
//
// A class names the same logical symbol in several places: member
// references in the constant pool, its own field and method declarations,
// the EnclosingMethod attribute, class constants and descriptors used by
// code, and the SourceFile attribute. Rewrite updates all of them in a fixed
// order of passes so that every lookup is made with the obfuscated identity
// the mapping database was keyed by.
package rewrite

import (
	"errors"
	"fmt"
	"log/slog"

	"jremap/internal/classfile"
	"jremap/internal/descriptor"
	"jremap/internal/mapping"
)

// Translator maps obfuscated identities to deobfuscated ones. Identity
// translations return their input unchanged. Implementations used by
// concurrent rewrites must be safe for concurrent reads.
type Translator interface {
	TranslateClass(mapping.ClassEntry) mapping.ClassEntry
	TranslateField(mapping.FieldEntry) mapping.FieldEntry
	TranslateBehavior(mapping.BehaviorEntry) mapping.BehaviorEntry
	FieldName(mapping.FieldEntry) (string, bool)
	BehaviorName(mapping.BehaviorEntry) (string, bool)
	TranslateType(descriptor.Type) descriptor.Type
	TranslateSignature(descriptor.Signature) descriptor.Signature
}

// ClassNameRenamer retargets every class name the member, enclosing and
// provenance passes do not handle: class constants, descriptors inside code
// and class-valued metadata.
//
// Constants appended to the pool during the current rewrite are reported by
// classfile.Pool.Fresh; they already hold translated values and must be left
// alone.
type ClassNameRenamer interface {
	RenameClasses(c *classfile.Class, t Translator) error
}

// RenamerFunc adapts a function to ClassNameRenamer.
type RenamerFunc func(c *classfile.Class, t Translator) error

func (f RenamerFunc) RenameClasses(c *classfile.Class, t Translator) error { return f(c, t) }

// Pass names one stage of the rewrite.
type Pass int

const (
	PassPrepare Pass = iota
	PassReferences
	PassMembers
	PassEnclosing
	PassClassNames
	PassProvenance
)

func (p Pass) String() string {
	switch p {
	case PassPrepare:
		return "prepare"
	case PassReferences:
		return "references"
	case PassMembers:
		return "members"
	case PassEnclosing:
		return "enclosing"
	case PassClassNames:
		return "class-names"
	case PassProvenance:
		return "provenance"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

var (
	ErrMalformedDescriptor = errors.New("rewrite: malformed descriptor")
	ErrMalformedEnclosing  = errors.New("rewrite: malformed enclosing context")
	ErrMalformedProvenance = errors.New("rewrite: cannot derive source file")
)

// Error reports a failed rewrite. The class is left partially rewritten and
// must be discarded.
type Error struct {
	Class string
	Pass  Pass
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rewrite: %s: %s: %v", e.Class, e.Pass, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Stats counts what one rewrite changed.
type Stats struct {
	References  int    `json:"references"`
	Fields      int    `json:"fields"`
	Methods     int    `json:"methods"`
	Descriptors int    `json:"descriptors"`
	Enclosing   bool   `json:"enclosing,omitempty"`
	SourceFile  string `json:"source_file,omitempty"`
}

// Rewriter applies a Translator to classes. It holds no per-class state and
// may be shared by goroutines when its Translator and ClassNameRenamer can.
type Rewriter struct {
	translator Translator
	renamer    ClassNameRenamer
	logger     *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger passes report to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(rw *Rewriter) { rw.logger = l }
}

// New returns a Rewriter. A nil renamer skips the class-name pass.
func New(t Translator, r ClassNameRenamer, opts ...Option) *Rewriter {
	rw := &Rewriter{
		translator: t,
		renamer:    r,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(rw)
	}
	return rw
}

// state is the per-class context threaded through the passes.
type state struct {
	c     *classfile.Class
	self  mapping.ClassEntry // identity before any pass ran
	stats Stats
}

type stage struct {
	pass Pass
	run  func(*Rewriter, *state) error
}

// pipeline is the pass order. Member references are rewritten before
// declarations because both are looked up by their obfuscated identity;
// class constants are retargeted only once all member passes are done.
var pipeline = [...]stage{
	{PassReferences, (*Rewriter).references},
	{PassMembers, (*Rewriter).members},
	{PassEnclosing, (*Rewriter).enclosing},
	{PassClassNames, (*Rewriter).classNames},
	{PassProvenance, (*Rewriter).provenance},
}

// Rewrite renames every symbol in c. On error c is in an undefined state.
func (rw *Rewriter) Rewrite(c *classfile.Class) error {
	_, err := rw.RewriteStats(c)
	return err
}

// RewriteStats is Rewrite that also reports what changed.
func (rw *Rewriter) RewriteStats(c *classfile.Class) (Stats, error) {
	name, err := c.Name()
	if err != nil {
		return Stats{}, &Error{Class: "?", Pass: PassPrepare, Err: err}
	}
	st := &state{c: c, self: mapping.ClassEntry{Name: name}}
	c.Pool.Mark()
	for _, s := range pipeline {
		if err := s.run(rw, st); err != nil {
			return st.stats, &Error{Class: name, Pass: s.pass, Err: err}
		}
		rw.logger.Debug("pass done", "class", name, "pass", s.pass.String(), "pool", c.Pool.Len())
	}
	return st.stats, nil
}

// references rewrites Fieldref, Methodref and InterfaceMethodref constants.
// Only the NameAndType is re-pointed; the owner class constant is left to
// the class-name pass.
func (rw *Rewriter) references(st *state) error {
	pool := st.c.Pool
	n := pool.Baseline()
	for i := 1; i < n; i++ {
		if _, ok := pool.At(i).(classfile.MemberRef); !ok {
			continue
		}
		ref, err := pool.MemberRef(i)
		if err != nil {
			return err
		}
		owner := mapping.ClassEntry{Name: ref.Owner}
		var name, desc string
		if ref.Kind == classfile.TagFieldref {
			typ, err := descriptor.ParseType(ref.Descriptor)
			if err != nil {
				return fmt.Errorf("%w: field ref %d: %w", ErrMalformedDescriptor, i, err)
			}
			e := mapping.FieldEntry{Class: owner, Name: ref.Name, Type: typ}
			te := rw.translator.TranslateField(e)
			if te == e {
				continue
			}
			name, desc = te.Name, te.Type.String()
		} else {
			sig, err := descriptor.ParseSignature(ref.Descriptor)
			if err != nil {
				return fmt.Errorf("%w: method ref %d: %w", ErrMalformedDescriptor, i, err)
			}
			e := mapping.BehaviorEntry{Class: owner, Name: ref.Name, Signature: sig}
			te := rw.translator.TranslateBehavior(e)
			if te.Equal(e) {
				continue
			}
			name, desc = te.Name, te.Signature.String()
		}
		if classfile.IsInitializer(ref.Name) {
			name = ref.Name
		}
		if name == ref.Name && desc == ref.Descriptor {
			continue
		}
		if err := pool.SetMemberRefNameAndType(i, name, desc); err != nil {
			return err
		}
		st.stats.References++
	}
	return nil
}

// members renames declared fields and methods and rewrites their
// descriptors. Constructors and static initializers keep their names.
func (rw *Rewriter) members(st *state) error {
	c := st.c
	for _, f := range c.Fields {
		name, err := c.MemberName(f)
		if err != nil {
			return err
		}
		desc, err := c.MemberDescriptor(f)
		if err != nil {
			return err
		}
		typ, err := descriptor.ParseType(desc)
		if err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrMalformedDescriptor, name, err)
		}
		e := mapping.FieldEntry{Class: st.self, Name: name, Type: typ}
		if n, ok := rw.translator.FieldName(e); ok && n != name {
			if err := c.SetMemberName(f, n); err != nil {
				return err
			}
			st.stats.Fields++
		}
		if err := rw.setDescriptor(st, f, desc, rw.translator.TranslateType(typ).String()); err != nil {
			return err
		}
	}
	for _, m := range c.Methods {
		name, err := c.MemberName(m)
		if err != nil {
			return err
		}
		desc, err := c.MemberDescriptor(m)
		if err != nil {
			return err
		}
		sig, err := descriptor.ParseSignature(desc)
		if err != nil {
			return fmt.Errorf("%w: method %s: %w", ErrMalformedDescriptor, name, err)
		}
		e := mapping.BehaviorEntry{Class: st.self, Name: name, Signature: sig}
		if !classfile.IsInitializer(name) {
			if n, ok := rw.translator.BehaviorName(e); ok && n != name {
				if err := c.SetMemberName(m, n); err != nil {
					return err
				}
				st.stats.Methods++
			}
		}
		if err := rw.setDescriptor(st, m, desc, rw.translator.TranslateSignature(sig).String()); err != nil {
			return err
		}
	}
	return nil
}

func (rw *Rewriter) setDescriptor(st *state, m *classfile.Member, old, desc string) error {
	if err := st.c.SetMemberDescriptor(m, desc); err != nil {
		return err
	}
	if desc != old {
		st.stats.Descriptors++
	}
	return nil
}

// enclosing rewrites the EnclosingMethod attribute, if present.
func (rw *Rewriter) enclosing(st *state) error {
	ctx, err := st.c.EnclosingContext()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEnclosing, err)
	}
	var next classfile.EnclosingContext
	switch e := ctx.(type) {
	case nil:
		return nil
	case classfile.EnclosingClass:
		tc := rw.translator.TranslateClass(mapping.ClassEntry{Name: e.Class})
		if tc.Name == e.Class {
			return nil
		}
		next = classfile.EnclosingClass{Class: tc.Name}
	case classfile.EnclosingMethod:
		sig, err := descriptor.ParseSignature(e.Descriptor)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrMalformedEnclosing, e.Class, e.Name, err)
		}
		b := mapping.BehaviorEntry{Class: mapping.ClassEntry{Name: e.Class}, Name: e.Name, Signature: sig}
		tb := rw.translator.TranslateBehavior(b)
		if tb.Equal(b) {
			return nil
		}
		next = classfile.EnclosingMethod{Class: tb.Class.Name, Name: tb.Name, Descriptor: tb.Signature.String()}
	default:
		return fmt.Errorf("%w: %T", ErrMalformedEnclosing, ctx)
	}
	if err := st.c.SetEnclosingContext(next); err != nil {
		return err
	}
	st.stats.Enclosing = true
	return nil
}

func (rw *Rewriter) classNames(st *state) error {
	if rw.renamer == nil {
		return nil
	}
	return rw.renamer.RenameClasses(st.c, rw.translator)
}

// provenance names the source file after the outermost class of the
// translated name. Classes without a mapping keep their SourceFile.
func (rw *Rewriter) provenance(st *state) error {
	tc := rw.translator.TranslateClass(st.self)
	if tc == st.self {
		return nil
	}
	outer, err := tc.Outermost()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedProvenance, err)
	}
	src := outer.SimpleName() + ".java"
	if err := st.c.SetSourceFile(src); err != nil {
		return err
	}
	st.stats.SourceFile = src
	return nil
}

// Package renamer is the default class-name pass: it retargets every class
// name a class carries outside its member references and declarations.
package renamer

import (
	"fmt"

	"jremap/internal/classfile"
	"jremap/internal/classfmt"
	"jremap/internal/descriptor"
	"jremap/internal/mapping"
	"jremap/internal/rewrite"
)

// Renamer implements rewrite.ClassNameRenamer. It rewrites:
//
//   - Class constants, including array classes
//   - MethodType descriptors
//   - NameAndType descriptors of Dynamic and InvokeDynamic constants
//   - Signature attributes of the class, its fields and its methods
//   - LocalVariableTable and LocalVariableTypeTable inside Code
//   - annotation type, enum and class descriptors
//   - InnerClasses simple names
//
// Pool entries appended after the pool's mark are skipped: they were written
// by earlier passes with values that are already translated.
type Renamer struct{}

// New returns a Renamer.
func New() *Renamer { return &Renamer{} }

var _ rewrite.ClassNameRenamer = (*Renamer)(nil)

// job holds one RenameClasses call.
type job struct {
	c     *classfile.Class
	pool  *classfile.Pool
	class func(string) string
}

func (r *Renamer) RenameClasses(c *classfile.Class, t rewrite.Translator) error {
	j := &job{
		c:    c,
		pool: c.Pool,
		class: func(name string) string {
			return t.TranslateClass(mapping.ClassEntry{Name: name}).Name
		},
	}
	// InnerClasses must see the original class constants.
	if err := j.innerClasses(); err != nil {
		return fmt.Errorf("renamer: inner classes: %w", err)
	}
	if err := j.attributes(c.Attributes, false); err != nil {
		return fmt.Errorf("renamer: class attributes: %w", err)
	}
	for _, f := range c.Fields {
		if err := j.attributes(f.Attributes, false); err != nil {
			return fmt.Errorf("renamer: field attributes: %w", err)
		}
	}
	for _, m := range c.Methods {
		if err := j.attributes(m.Attributes, true); err != nil {
			return fmt.Errorf("renamer: method attributes: %w", err)
		}
	}
	if err := j.constants(); err != nil {
		return fmt.Errorf("renamer: constants: %w", err)
	}
	return nil
}

// constants rewrites the original Class, MethodType and Dynamic constants.
func (j *job) constants() error {
	n := j.pool.Baseline()
	for i := 1; i < n; i++ {
		switch v := j.pool.At(i).(type) {
		case classfile.ClassInfo:
			name, err := j.pool.Utf8(v.NameIndex)
			if err != nil {
				return err
			}
			if next := j.class(name); next != name {
				idx, err := j.pool.AddUtf8(next)
				if err != nil {
					return err
				}
				if err := j.pool.Set(i, classfile.ClassInfo{NameIndex: idx}); err != nil {
					return err
				}
			}
		case classfile.MethodType:
			idx, changed, err := j.descriptor(v.DescriptorIndex)
			if err != nil {
				return fmt.Errorf("method type %d: %w", i, err)
			}
			if changed {
				if err := j.pool.Set(i, classfile.MethodType{DescriptorIndex: idx}); err != nil {
					return err
				}
			}
		case classfile.Dynamic:
			name, desc, err := j.pool.NameAndType(v.NameAndTypeIndex)
			if err != nil {
				return err
			}
			next, err := descriptor.MapDescriptor(desc, j.class)
			if err != nil {
				return fmt.Errorf("%s %d: %w", v.Kind, i, err)
			}
			if next == desc {
				continue
			}
			nt, err := j.pool.AddNameAndType(name, next)
			if err != nil {
				return err
			}
			v.NameAndTypeIndex = nt
			if err := j.pool.Set(i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// descriptor translates the field or method descriptor held by the Utf8
// constant at idx and returns the index holding the result.
func (j *job) descriptor(idx uint16) (uint16, bool, error) {
	return j.remapUtf8(idx, func(s string) (string, error) {
		return descriptor.MapDescriptor(s, j.class)
	})
}

func (j *job) generic(idx uint16) (uint16, bool, error) {
	return j.remapUtf8(idx, func(s string) (string, error) {
		return descriptor.RemapGeneric(s, j.class)
	})
}

func (j *job) remapUtf8(idx uint16, fn func(string) (string, error)) (uint16, bool, error) {
	if j.pool.Fresh(int(idx)) {
		return idx, false, nil
	}
	s, err := j.pool.Utf8(idx)
	if err != nil {
		return 0, false, err
	}
	next, err := fn(s)
	if err != nil {
		return 0, false, err
	}
	if next == s {
		return idx, false, nil
	}
	n, err := j.pool.AddUtf8(next)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// attributes rewrites Signature, annotation and (for methods) Code
// attributes in attrs.
func (j *job) attributes(attrs []*classfile.Attribute, method bool) error {
	for _, a := range attrs {
		name, err := j.c.AttributeName(a)
		if err != nil {
			return err
		}
		switch {
		case name == classfile.AttrSignature:
			if err := j.signature(a); err != nil {
				return err
			}
		case classfile.IsAnnotationAttribute(name):
			if err := j.annotations(name, a); err != nil {
				return err
			}
		case name == classfile.AttrCode && method:
			if err := j.code(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *job) signature(a *classfile.Attribute) error {
	idx, err := classfile.Utf8Index(a)
	if err != nil {
		return err
	}
	next, changed, err := j.generic(idx)
	if err != nil || !changed {
		return err
	}
	return classfile.SetUtf8Index(a, next)
}

func (j *job) annotations(name string, a *classfile.Attribute) error {
	slots, err := classfile.AnnotationDescriptorSlots(name, a.Data)
	if err != nil {
		return err
	}
	for _, s := range slots {
		idx := classfmt.Uint16At(a.Data, s.Offset)
		if s.Role == classfile.RoleReturn {
			if v, err := j.pool.Utf8(idx); err == nil && v == "V" {
				continue
			}
		}
		next, changed, err := j.descriptor(idx)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if changed {
			classfmt.PutUint16At(a.Data, s.Offset, next)
		}
	}
	return nil
}

// code rewrites the local variable tables nested in a Code attribute and
// re-encodes it when anything changed.
func (j *job) code(a *classfile.Attribute) error {
	code, err := classfile.ParseCode(a.Data)
	if err != nil {
		return err
	}
	dirty := false
	for _, na := range code.Attributes {
		name, err := j.c.AttributeName(na)
		if err != nil {
			return err
		}
		var remap func(uint16) (uint16, bool, error)
		switch name {
		case classfile.AttrLocalVariableTable:
			remap = j.descriptor
		case classfile.AttrLocalVariableTypeTable:
			remap = j.generic
		default:
			continue
		}
		offs, err := classfile.LocalVariableDescriptorOffsets(na.Data)
		if err != nil {
			return err
		}
		for _, off := range offs {
			next, changed, err := remap(classfmt.Uint16At(na.Data, off))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if changed {
				classfmt.PutUint16At(na.Data, off, next)
				dirty = true
			}
		}
	}
	if !dirty {
		return nil
	}
	data, err := code.Encode()
	if err != nil {
		return err
	}
	a.Data = data
	return nil
}

// innerClasses renames the simple names recorded in the InnerClasses
// attribute to match the translated class names.
func (j *job) innerClasses() error {
	a := j.c.FindAttribute(j.c.Attributes, classfile.AttrInnerClasses)
	if a == nil {
		return nil
	}
	entries, err := classfile.ParseInnerClasses(a.Data)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name == 0 || j.pool.Fresh(int(e.Name)) {
			continue
		}
		inner, err := j.pool.ClassName(e.Inner)
		if err != nil {
			return err
		}
		next := j.class(inner)
		if next == inner {
			continue
		}
		simple := mapping.ClassEntry{Name: next}.InnerName()
		cur, err := j.pool.Utf8(e.Name)
		if err != nil {
			return err
		}
		if simple == cur || simple == "" {
			continue
		}
		idx, err := j.pool.AddUtf8(simple)
		if err != nil {
			return err
		}
		classfmt.PutUint16At(a.Data, e.NameOffset(), idx)
	}
	return nil
}

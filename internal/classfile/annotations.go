package classfile

import (
	"fmt"

	"jremap/internal/classfmt"
)

// DescriptorRole tells how the Utf8 constant behind a DescriptorSlot is to
// be read.
type DescriptorRole int

const (
	// RoleField is a field descriptor: annotation type_index and enum
	// type_name_index.
	RoleField DescriptorRole = iota
	// RoleReturn is a return descriptor (field descriptor or "V"): class
	// element class_info_index.
	RoleReturn
)

// DescriptorSlot is the byte offset of a u2 Utf8 index inside an attribute
// body, plus how to interpret the descriptor it points to.
type DescriptorSlot struct {
	Offset int
	Role   DescriptorRole
}

// IsAnnotationAttribute reports whether name is an attribute that
// AnnotationDescriptorSlots understands.
func IsAnnotationAttribute(name string) bool {
	switch name {
	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations,
		AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations,
		AttrAnnotationDefault:
		return true
	}
	return false
}

// AnnotationDescriptorSlots walks an annotation attribute body and returns
// every slot that names a type by descriptor.
func AnnotationDescriptorSlots(name string, data []byte) ([]DescriptorSlot, error) {
	w := &annotationWalker{s: classfmt.NewStream(data)}
	var err error
	switch name {
	case AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations:
		err = w.annotations()
	case AttrRuntimeVisibleParameterAnnotations, AttrRuntimeInvisibleParameterAnnotations:
		var n uint8
		if n, err = w.s.ReadUint8(); err == nil {
			for i := 0; i < int(n) && err == nil; i++ {
				err = w.annotations()
			}
		}
	case AttrAnnotationDefault:
		err = w.elementValue()
	default:
		return nil, fmt.Errorf("%w: %s is not an annotation attribute", ErrMalformedAttribute, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedAttribute, name, err)
	}
	if w.s.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformedAttribute, name, w.s.Remaining())
	}
	return w.slots, nil
}

type annotationWalker struct {
	s     *classfmt.Stream
	slots []DescriptorSlot
}

func (w *annotationWalker) slot(role DescriptorRole) error {
	w.slots = append(w.slots, DescriptorSlot{Offset: w.s.Position(), Role: role})
	return w.s.Skip(2)
}

func (w *annotationWalker) annotations() error {
	n, err := w.s.ReadUint16()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if err := w.annotation(); err != nil {
			return err
		}
	}
	return nil
}

// annotation { u2 type_index; u2 num_pairs; { u2 name_index; element_value value; }[num_pairs] }
func (w *annotationWalker) annotation() error {
	if err := w.slot(RoleField); err != nil {
		return err
	}
	pairs, err := w.s.ReadUint16()
	if err != nil {
		return err
	}
	for i := 0; i < int(pairs); i++ {
		if err := w.s.Skip(2); err != nil {
			return err
		}
		if err := w.elementValue(); err != nil {
			return err
		}
	}
	return nil
}

func (w *annotationWalker) elementValue() error {
	tag, err := w.s.ReadUint8()
	if err != nil {
		return err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		return w.s.Skip(2)
	case 'e':
		if err := w.slot(RoleField); err != nil {
			return err
		}
		return w.s.Skip(2)
	case 'c':
		return w.slot(RoleReturn)
	case '@':
		return w.annotation()
	case '[':
		n, err := w.s.ReadUint16()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			if err := w.elementValue(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown element value tag %q at %d", tag, w.s.Position()-1)
	}
}

package classfile

import (
	"fmt"
	"math"

	"jremap/internal/classfmt"
)

// Write encodes a class file. Write(Parse(b)) reproduces b for any
// well-formed input that was not modified.
func Write(c *Class) ([]byte, error) {
	w := classfmt.NewWriter(4096)
	w.WriteUint32(Magic)
	w.WriteUint16(c.Minor)
	w.WriteUint16(c.Major)
	if err := writePool(w, c.Pool); err != nil {
		return nil, err
	}
	w.WriteUint16(c.AccessFlags)
	w.WriteUint16(c.ThisClass)
	w.WriteUint16(c.SuperClass)
	if len(c.Interfaces) > math.MaxUint16 {
		return nil, fmt.Errorf("classfile: %d interfaces", len(c.Interfaces))
	}
	w.WriteUint16(uint16(len(c.Interfaces)))
	for _, i := range c.Interfaces {
		w.WriteUint16(i)
	}
	if err := writeMembers(w, c.Fields); err != nil {
		return nil, err
	}
	if err := writeMembers(w, c.Methods); err != nil {
		return nil, err
	}
	if err := WriteAttributes(w, c.Attributes); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writePool(w *classfmt.Writer, p *Pool) error {
	if p.Len() > math.MaxUint16 {
		return fmt.Errorf("%w: %d entries", ErrPoolOverflow, p.Len())
	}
	w.WriteUint16(uint16(p.Len()))
	for i := 1; i < p.Len(); i++ {
		c := p.entries[i]
		if c == nil {
			// Second slot of a Long or Double.
			continue
		}
		w.WriteUint8(uint8(c.Tag()))
		switch v := c.(type) {
		case Utf8:
			if err := w.WriteModifiedUTF8(v.Value); err != nil {
				return fmt.Errorf("classfile: constant %d: %w", i, err)
			}
		case Integer:
			w.WriteUint32(uint32(v.Value))
		case Float:
			w.WriteUint32(v.Bits)
		case Long:
			w.WriteUint64(uint64(v.Value))
		case Double:
			w.WriteUint64(v.Bits)
		case ClassInfo:
			w.WriteUint16(v.NameIndex)
		case StringInfo:
			w.WriteUint16(v.StringIndex)
		case MemberRef:
			w.WriteUint16(v.ClassIndex)
			w.WriteUint16(v.NameAndTypeIndex)
		case NameAndType:
			w.WriteUint16(v.NameIndex)
			w.WriteUint16(v.DescriptorIndex)
		case MethodHandle:
			w.WriteUint8(v.RefKind)
			w.WriteUint16(v.RefIndex)
		case MethodType:
			w.WriteUint16(v.DescriptorIndex)
		case Dynamic:
			w.WriteUint16(v.BootstrapIndex)
			w.WriteUint16(v.NameAndTypeIndex)
		case NamedRef:
			w.WriteUint16(v.NameIndex)
		default:
			return fmt.Errorf("%w: %T at %d", ErrUnknownTag, c, i)
		}
	}
	return nil
}

func writeMembers(w *classfmt.Writer, members []*Member) error {
	if len(members) > math.MaxUint16 {
		return fmt.Errorf("classfile: %d members", len(members))
	}
	w.WriteUint16(uint16(len(members)))
	for _, m := range members {
		w.WriteUint16(m.AccessFlags)
		w.WriteUint16(m.NameIndex)
		w.WriteUint16(m.DescriptorIndex)
		if err := WriteAttributes(w, m.Attributes); err != nil {
			return err
		}
	}
	return nil
}

// WriteAttributes writes a u2 count followed by the attributes.
func WriteAttributes(w *classfmt.Writer, attrs []*Attribute) error {
	if len(attrs) > math.MaxUint16 {
		return fmt.Errorf("classfile: %d attributes", len(attrs))
	}
	w.WriteUint16(uint16(len(attrs)))
	for _, a := range attrs {
		if uint64(len(a.Data)) > math.MaxUint32 {
			return fmt.Errorf("classfile: attribute of %d bytes", len(a.Data))
		}
		w.WriteUint16(a.NameIndex)
		w.WriteUint32(uint32(len(a.Data)))
		w.WriteBytes(a.Data)
	}
	return nil
}

package classfile

import (
	"errors"
	"fmt"
	"math"

	"jremap/internal/classfmt"
)

var (
	ErrBadMagic   = errors.New("classfile: bad magic")
	ErrTruncated  = errors.New("classfile: truncated class file")
	ErrTrailing   = errors.New("classfile: trailing data after class file")
	ErrUnknownTag = errors.New("classfile: unknown constant tag")
)

// Parse decodes a class file.
//
// Layout:
//
//	u4 magic (0xCAFEBABE)
//	u2 minor, u2 major
//	u2 constant_pool_count, cp_info[count-1]
//	u2 access_flags, u2 this_class, u2 super_class
//	u2 interfaces_count, u2[interfaces_count]
//	u2 fields_count, field_info[]
//	u2 methods_count, method_info[]
//	u2 attributes_count, attribute_info[]
func Parse(data []byte) (*Class, error) {
	s := classfmt.NewStream(data)
	c, err := parse(s)
	if err != nil {
		if errors.Is(err, classfmt.ErrStreamEOF) {
			return nil, fmt.Errorf("%w at offset %d", ErrTruncated, s.Position())
		}
		return nil, err
	}
	if s.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailing, s.Remaining())
	}
	return c, nil
}

func parse(s *classfmt.Stream) (*Class, error) {
	magic, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic)
	}
	c := &Class{}
	if c.Minor, err = s.ReadUint16(); err != nil {
		return nil, err
	}
	if c.Major, err = s.ReadUint16(); err != nil {
		return nil, err
	}
	if c.Pool, err = parsePool(s); err != nil {
		return nil, err
	}
	if c.AccessFlags, err = s.ReadUint16(); err != nil {
		return nil, err
	}
	if c.ThisClass, err = s.ReadUint16(); err != nil {
		return nil, err
	}
	if c.SuperClass, err = s.ReadUint16(); err != nil {
		return nil, err
	}
	n, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	c.Interfaces = make([]uint16, n)
	for i := range c.Interfaces {
		if c.Interfaces[i], err = s.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if c.Fields, err = parseMembers(s); err != nil {
		return nil, err
	}
	if c.Methods, err = parseMembers(s); err != nil {
		return nil, err
	}
	if c.Attributes, err = ParseAttributes(s); err != nil {
		return nil, err
	}
	return c, nil
}

func parsePool(s *classfmt.Stream) (*Pool, error) {
	count, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	p := &Pool{entries: make([]Constant, 1, max(int(count), 1))}
	for len(p.entries) < int(count) {
		off := s.Position()
		tag, err := s.ReadUint8()
		if err != nil {
			return nil, err
		}
		c, err := parseConstant(s, Tag(tag))
		if err != nil {
			return nil, fmt.Errorf("classfile: constant %d at offset %d: %w", len(p.entries), off, err)
		}
		p.entries = append(p.entries, c)
		if c.Tag().Wide() {
			p.entries = append(p.entries, nil)
		}
	}
	if len(p.entries) != max(int(count), 1) {
		return nil, fmt.Errorf("classfile: wide constant overruns pool of %d", count)
	}
	return p, nil
}

func parseConstant(s *classfmt.Stream, tag Tag) (Constant, error) {
	switch tag {
	case TagUtf8:
		v, err := s.ReadModifiedUTF8()
		return Utf8{Value: v}, err
	case TagInteger:
		v, err := s.ReadUint32()
		return Integer{Value: int32(v)}, err
	case TagFloat:
		v, err := s.ReadUint32()
		return Float{Bits: v}, err
	case TagLong:
		v, err := s.ReadUint64()
		return Long{Value: int64(v)}, err
	case TagDouble:
		v, err := s.ReadUint64()
		return Double{Bits: v}, err
	case TagClass:
		v, err := s.ReadUint16()
		return ClassInfo{NameIndex: v}, err
	case TagString:
		v, err := s.ReadUint16()
		return StringInfo{StringIndex: v}, err
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		a, b, err := readPair(s)
		return MemberRef{Kind: tag, ClassIndex: a, NameAndTypeIndex: b}, err
	case TagNameAndType:
		a, b, err := readPair(s)
		return NameAndType{NameIndex: a, DescriptorIndex: b}, err
	case TagMethodHandle:
		k, err := s.ReadUint8()
		if err != nil {
			return nil, err
		}
		ref, err := s.ReadUint16()
		return MethodHandle{RefKind: k, RefIndex: ref}, err
	case TagMethodType:
		v, err := s.ReadUint16()
		return MethodType{DescriptorIndex: v}, err
	case TagDynamic, TagInvokeDynamic:
		a, b, err := readPair(s)
		return Dynamic{Kind: tag, BootstrapIndex: a, NameAndTypeIndex: b}, err
	case TagModule, TagPackage:
		v, err := s.ReadUint16()
		return NamedRef{Kind: tag, NameIndex: v}, err
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, uint8(tag))
	}
}

func readPair(s *classfmt.Stream) (uint16, uint16, error) {
	a, err := s.ReadUint16()
	if err != nil {
		return 0, 0, err
	}
	b, err := s.ReadUint16()
	return a, b, err
}

func parseMembers(s *classfmt.Stream) ([]*Member, error) {
	n, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, n)
	for i := 0; i < int(n); i++ {
		m := &Member{}
		if m.AccessFlags, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if m.NameIndex, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if m.DescriptorIndex, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if m.Attributes, err = ParseAttributes(s); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// ParseAttributes reads a u2 count followed by that many attribute_info
// structures.
func ParseAttributes(s *classfmt.Stream) ([]*Attribute, error) {
	n, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	attrs := make([]*Attribute, 0, n)
	for i := 0; i < int(n); i++ {
		name, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		length, err := s.ReadUint32()
		if err != nil {
			return nil, err
		}
		if length > math.MaxInt32 {
			return nil, classfmt.ErrStreamOverrun
		}
		data, err := s.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, &Attribute{NameIndex: name, Data: data})
	}
	return attrs, nil
}

// Package classfile holds the in-memory form of a JVM class file and its
// binary codec.
package classfile

import (
	"fmt"
)

// Magic is the 4-byte magic at the start of every class file.
const Magic uint32 = 0xcafebabe

// Access flags used by this package.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSuper     uint16 = 0x0020
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccSynthetic uint16 = 0x1000
)

// Special method names.
const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

// Class is one parsed class file. A Class is owned by a single caller and
// is not safe for concurrent mutation.
type Class struct {
	Minor       uint16
	Major       uint16
	Pool        *Pool
	AccessFlags uint16
	ThisClass   uint16
	SuperClass  uint16 // 0 for java/lang/Object and module-info
	Interfaces  []uint16
	Fields      []*Member
	Methods     []*Member
	Attributes  []*Attribute
}

// Member is a declared field or method.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []*Attribute
}

// Attribute is a raw attribute. Data excludes the 6-byte name/length header.
type Attribute struct {
	NameIndex uint16
	Data      []byte
}

// Name returns the internal name of the class.
func (c *Class) Name() (string, error) {
	return c.Pool.ClassName(c.ThisClass)
}

// SuperName returns the internal name of the superclass, or "" if there is none.
func (c *Class) SuperName() (string, error) {
	if c.SuperClass == 0 {
		return "", nil
	}
	return c.Pool.ClassName(c.SuperClass)
}

// MemberName returns the declared name of a field or method.
func (c *Class) MemberName(m *Member) (string, error) {
	return c.Pool.Utf8(m.NameIndex)
}

// MemberDescriptor returns the declared descriptor of a field or method.
func (c *Class) MemberDescriptor(m *Member) (string, error) {
	return c.Pool.Utf8(m.DescriptorIndex)
}

// SetMemberName renames a declared member. It does nothing if the name is
// unchanged.
func (c *Class) SetMemberName(m *Member, name string) error {
	idx, err := c.setUtf8(m.NameIndex, name)
	if err != nil {
		return fmt.Errorf("classfile: set member name: %w", err)
	}
	m.NameIndex = idx
	return nil
}

// SetMemberDescriptor rewrites a declared member's descriptor. It does
// nothing if the descriptor is unchanged.
func (c *Class) SetMemberDescriptor(m *Member, desc string) error {
	idx, err := c.setUtf8(m.DescriptorIndex, desc)
	if err != nil {
		return fmt.Errorf("classfile: set member descriptor: %w", err)
	}
	m.DescriptorIndex = idx
	return nil
}

// setUtf8 returns the index to hold s in place of cur.
func (c *Class) setUtf8(cur uint16, s string) (uint16, error) {
	if old, err := c.Pool.Utf8(cur); err == nil && old == s {
		return cur, nil
	}
	return c.Pool.AddUtf8(s)
}

// IsInitializer reports whether name is a constructor or static initializer.
func IsInitializer(name string) bool {
	return name == ConstructorName || name == StaticInitializerName
}

// AttributeName returns the name of an attribute.
func (c *Class) AttributeName(a *Attribute) (string, error) {
	return c.Pool.Utf8(a.NameIndex)
}

// FindAttribute returns the first attribute in attrs with the given name,
// or nil if there is none. Attributes whose name cannot be resolved are
// skipped.
func (c *Class) FindAttribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if n, err := c.AttributeName(a); err == nil && n == name {
			return a
		}
	}
	return nil
}

// PutAttribute replaces the data of the first attribute named name in
// attrs, or appends a new attribute.
func (c *Class) PutAttribute(attrs *[]*Attribute, name string, data []byte) error {
	if a := c.FindAttribute(*attrs, name); a != nil {
		a.Data = data
		return nil
	}
	ni, err := c.Pool.AddUtf8(name)
	if err != nil {
		return fmt.Errorf("classfile: put attribute %s: %w", name, err)
	}
	*attrs = append(*attrs, &Attribute{NameIndex: ni, Data: data})
	return nil
}

// New returns an empty public class with the given internal name and
// superclass, at class-file version 52 (Java 8).
func New(name, super string) (*Class, error) {
	c := &Class{
		Major:       52,
		Pool:        NewPool(),
		AccessFlags: AccPublic | AccSuper,
	}
	var err error
	if c.ThisClass, err = c.Pool.AddClass(name); err != nil {
		return nil, err
	}
	if super != "" {
		if c.SuperClass, err = c.Pool.AddClass(super); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddField declares a field.
func (c *Class) AddField(access uint16, name, desc string) (*Member, error) {
	m, err := c.newMember(access, name, desc)
	if err != nil {
		return nil, err
	}
	c.Fields = append(c.Fields, m)
	return m, nil
}

// AddMethod declares a method or constructor.
func (c *Class) AddMethod(access uint16, name, desc string) (*Member, error) {
	m, err := c.newMember(access, name, desc)
	if err != nil {
		return nil, err
	}
	c.Methods = append(c.Methods, m)
	return m, nil
}

func (c *Class) newMember(access uint16, name, desc string) (*Member, error) {
	ni, err := c.Pool.AddUtf8(name)
	if err != nil {
		return nil, err
	}
	di, err := c.Pool.AddUtf8(desc)
	if err != nil {
		return nil, err
	}
	return &Member{AccessFlags: access, NameIndex: ni, DescriptorIndex: di}, nil
}

// AddMemberRef appends a Fieldref, Methodref or InterfaceMethodref constant.
func (c *Class) AddMemberRef(kind Tag, owner, name, desc string) (uint16, error) {
	switch kind {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return 0, fmt.Errorf("%w: %s is not a member ref kind", ErrWrongTag, kind)
	}
	ci, err := c.Pool.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nt, err := c.Pool.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return c.Pool.Add(MemberRef{Kind: kind, ClassIndex: ci, NameAndTypeIndex: nt})
}

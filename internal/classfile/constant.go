package classfile

import "fmt"

// Tag identifies the kind of a constant pool entry.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

func (t Tag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Wide reports whether constants with this tag occupy two pool slots.
func (t Tag) Wide() bool { return t == TagLong || t == TagDouble }

// Constant is one constant pool entry. Implementations are plain values;
// replacing an entry means storing a new value at the same index.
type Constant interface {
	Tag() Tag
}

type Utf8 struct{ Value string }

type Integer struct{ Value int32 }

type Float struct{ Bits uint32 }

type Long struct{ Value int64 }

type Double struct{ Bits uint64 }

type ClassInfo struct{ NameIndex uint16 }

type StringInfo struct{ StringIndex uint16 }

// MemberRef is a Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	Kind             Tag
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type NameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

type MethodHandle struct {
	RefKind  uint8
	RefIndex uint16
}

type MethodType struct{ DescriptorIndex uint16 }

// Dynamic is a Dynamic or InvokeDynamic constant.
type Dynamic struct {
	Kind             Tag
	BootstrapIndex   uint16
	NameAndTypeIndex uint16
}

// NamedRef is a Module or Package constant.
type NamedRef struct {
	Kind      Tag
	NameIndex uint16
}

func (Utf8) Tag() Tag         { return TagUtf8 }
func (Integer) Tag() Tag      { return TagInteger }
func (Float) Tag() Tag        { return TagFloat }
func (Long) Tag() Tag         { return TagLong }
func (Double) Tag() Tag       { return TagDouble }
func (ClassInfo) Tag() Tag    { return TagClass }
func (StringInfo) Tag() Tag   { return TagString }
func (m MemberRef) Tag() Tag  { return m.Kind }
func (NameAndType) Tag() Tag  { return TagNameAndType }
func (MethodHandle) Tag() Tag { return TagMethodHandle }
func (MethodType) Tag() Tag   { return TagMethodType }
func (d Dynamic) Tag() Tag    { return d.Kind }
func (n NamedRef) Tag() Tag   { return n.Kind }

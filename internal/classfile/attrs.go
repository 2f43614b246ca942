package classfile

import (
	"errors"
	"fmt"

	"jremap/internal/classfmt"
)

// Attribute names handled by this package.
const (
	AttrCode                                 = "Code"
	AttrSourceFile                           = "SourceFile"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrInnerClasses                         = "InnerClasses"
	AttrSignature                            = "Signature"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrAnnotationDefault                    = "AnnotationDefault"
)

var (
	ErrMalformedEnclosing = errors.New("classfile: malformed EnclosingMethod attribute")
	ErrMalformedAttribute = errors.New("classfile: malformed attribute")
)

// EnclosingContext is the decoded EnclosingMethod attribute. It is either
// an EnclosingClass or an EnclosingMethod.
type EnclosingContext interface {
	EnclosingClassName() string
}

// EnclosingClass is the shape used when the inner class is not enclosed by
// a method (for example an anonymous class in a field initializer).
type EnclosingClass struct {
	Class string
}

// EnclosingMethod names the method that lexically encloses the class.
type EnclosingMethod struct {
	Class      string
	Name       string
	Descriptor string
}

func (e EnclosingClass) EnclosingClassName() string  { return e.Class }
func (e EnclosingMethod) EnclosingClassName() string { return e.Class }

// EnclosingContext decodes the class's EnclosingMethod attribute. It
// returns nil, nil when the attribute is absent.
func (c *Class) EnclosingContext() (EnclosingContext, error) {
	a := c.FindAttribute(c.Attributes, AttrEnclosingMethod)
	if a == nil {
		return nil, nil
	}
	if len(a.Data) != 4 {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedEnclosing, len(a.Data))
	}
	classIdx := classfmt.Uint16At(a.Data, 0)
	methodIdx := classfmt.Uint16At(a.Data, 2)
	class, err := c.Pool.ClassName(classIdx)
	if err != nil {
		return nil, fmt.Errorf("%w: class: %v", ErrMalformedEnclosing, err)
	}
	if methodIdx == 0 {
		return EnclosingClass{Class: class}, nil
	}
	name, desc, err := c.Pool.NameAndType(methodIdx)
	if err != nil {
		return nil, fmt.Errorf("%w: method: %v", ErrMalformedEnclosing, err)
	}
	return EnclosingMethod{Class: class, Name: name, Descriptor: desc}, nil
}

// SetEnclosingContext replaces (or adds) the EnclosingMethod attribute.
// New Class and NameAndType constants are appended for it.
func (c *Class) SetEnclosingContext(ctx EnclosingContext) error {
	var classIdx, methodIdx uint16
	var err error
	switch e := ctx.(type) {
	case EnclosingClass:
		if classIdx, err = c.Pool.AddClass(e.Class); err != nil {
			return err
		}
	case EnclosingMethod:
		if classIdx, err = c.Pool.AddClass(e.Class); err != nil {
			return err
		}
		if methodIdx, err = c.Pool.AddNameAndType(e.Name, e.Descriptor); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unsupported context %T", ErrMalformedEnclosing, ctx)
	}
	data := make([]byte, 4)
	classfmt.PutUint16At(data, 0, classIdx)
	classfmt.PutUint16At(data, 2, methodIdx)
	return c.PutAttribute(&c.Attributes, AttrEnclosingMethod, data)
}

// SourceFile returns the value of the SourceFile attribute and whether it
// is present.
func (c *Class) SourceFile() (string, bool, error) {
	a := c.FindAttribute(c.Attributes, AttrSourceFile)
	if a == nil {
		return "", false, nil
	}
	idx, err := Utf8Index(a)
	if err != nil {
		return "", true, err
	}
	s, err := c.Pool.Utf8(idx)
	return s, true, err
}

// SetSourceFile replaces (or adds) the SourceFile attribute.
func (c *Class) SetSourceFile(name string) error {
	idx, err := c.Pool.AddUtf8(name)
	if err != nil {
		return err
	}
	data := make([]byte, 2)
	classfmt.PutUint16At(data, 0, idx)
	return c.PutAttribute(&c.Attributes, AttrSourceFile, data)
}

// Utf8Index returns the single u2 constant index held by attributes such
// as SourceFile and Signature.
func Utf8Index(a *Attribute) (uint16, error) {
	if len(a.Data) != 2 {
		return 0, fmt.Errorf("%w: length %d, want 2", ErrMalformedAttribute, len(a.Data))
	}
	return classfmt.Uint16At(a.Data, 0), nil
}

// SetUtf8Index stores a u2 constant index into a SourceFile or Signature
// style attribute.
func SetUtf8Index(a *Attribute, idx uint16) error {
	if len(a.Data) != 2 {
		return fmt.Errorf("%w: length %d, want 2", ErrMalformedAttribute, len(a.Data))
	}
	classfmt.PutUint16At(a.Data, 0, idx)
	return nil
}

// Code is a decoded Code attribute. Bytecode and the exception table are
// kept opaque.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []byte // exception_table_length * 8 bytes
	Attributes     []*Attribute
}

// ParseCode decodes the body of a Code attribute.
func ParseCode(data []byte) (*Code, error) {
	s := classfmt.NewStream(data)
	code := &Code{}
	var err error
	if code.MaxStack, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrMalformedAttribute, err)
	}
	if code.MaxLocals, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrMalformedAttribute, err)
	}
	n, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrMalformedAttribute, err)
	}
	if n > uint32(s.Remaining()) {
		return nil, fmt.Errorf("%w: code length %d", ErrMalformedAttribute, n)
	}
	if code.Bytecode, err = s.ReadBytes(int(n)); err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrMalformedAttribute, err)
	}
	handlers, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrMalformedAttribute, err)
	}
	if code.ExceptionTable, err = s.ReadBytes(int(handlers) * 8); err != nil {
		return nil, fmt.Errorf("%w: exception table: %v", ErrMalformedAttribute, err)
	}
	if code.Attributes, err = ParseAttributes(s); err != nil {
		return nil, fmt.Errorf("%w: code attributes: %v", ErrMalformedAttribute, err)
	}
	if s.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in code", ErrMalformedAttribute, s.Remaining())
	}
	return code, nil
}

// Encode returns the body of the Code attribute.
func (code *Code) Encode() ([]byte, error) {
	w := classfmt.NewWriter(len(code.Bytecode) + len(code.ExceptionTable) + 32)
	w.WriteUint16(code.MaxStack)
	w.WriteUint16(code.MaxLocals)
	w.WriteUint32(uint32(len(code.Bytecode)))
	w.WriteBytes(code.Bytecode)
	w.WriteUint16(uint16(len(code.ExceptionTable) / 8))
	w.WriteBytes(code.ExceptionTable)
	if err := WriteAttributes(w, code.Attributes); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// LocalVariableDescriptorOffsets returns the byte offsets, within the body
// of a LocalVariableTable or LocalVariableTypeTable attribute, of each
// entry's descriptor (or signature) index.
//
//	u2 local_variable_table_length
//	{ u2 start_pc; u2 length; u2 name_index; u2 descriptor_index; u2 index; }
func LocalVariableDescriptorOffsets(data []byte) ([]int, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: local variable table", ErrMalformedAttribute)
	}
	n := int(classfmt.Uint16At(data, 0))
	if len(data) != 2+n*10 {
		return nil, fmt.Errorf("%w: local variable table of %d entries has %d bytes", ErrMalformedAttribute, n, len(data))
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = 2 + i*10 + 6
	}
	return offsets, nil
}

// InnerClass is one entry of an InnerClasses attribute. Offset is the byte
// offset of the entry within the attribute body.
type InnerClass struct {
	Offset int
	Inner  uint16 // Class constant
	Outer  uint16 // Class constant, 0 for local and anonymous classes
	Name   uint16 // Utf8 simple name, 0 for anonymous classes
	Flags  uint16
}

// NameOffset is the offset of the entry's inner_name_index.
func (ic InnerClass) NameOffset() int { return ic.Offset + 4 }

// ParseInnerClasses decodes the body of an InnerClasses attribute.
func ParseInnerClasses(data []byte) ([]InnerClass, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: inner classes", ErrMalformedAttribute)
	}
	n := int(classfmt.Uint16At(data, 0))
	if len(data) != 2+n*8 {
		return nil, fmt.Errorf("%w: inner classes table of %d entries has %d bytes", ErrMalformedAttribute, n, len(data))
	}
	out := make([]InnerClass, n)
	for i := range out {
		off := 2 + i*8
		out[i] = InnerClass{
			Offset: off,
			Inner:  classfmt.Uint16At(data, off),
			Outer:  classfmt.Uint16At(data, off+2),
			Name:   classfmt.Uint16At(data, off+4),
			Flags:  classfmt.Uint16At(data, off+6),
		}
	}
	return out, nil
}

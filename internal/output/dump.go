package output

import (
	"fmt"
	"math"
	"strconv"

	"jremap/internal/classfile"
)

// PoolRecord is one constant of a dumped pool.
type PoolRecord struct {
	Index int    `json:"index"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// MemberRecord is one dumped field or method.
type MemberRecord struct {
	Access     string   `json:"access"`
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Attributes []string `json:"attributes,omitempty"`
}

// ClassDump is a readable view of a class file.
type ClassDump struct {
	Name       string         `json:"name"`
	Super      string         `json:"super,omitempty"`
	Version    string         `json:"version"`
	Access     string         `json:"access"`
	Interfaces []string       `json:"interfaces,omitempty"`
	SourceFile string         `json:"source_file,omitempty"`
	Pool       []PoolRecord   `json:"pool"`
	Fields     []MemberRecord `json:"fields"`
	Methods    []MemberRecord `json:"methods"`
	Attributes []string       `json:"attributes,omitempty"`
}

// Dump resolves c into a ClassDump.
func Dump(c *classfile.Class) (*ClassDump, error) {
	d := &ClassDump{
		Version: c.VersionString(),
		Access:  fmt.Sprintf("0x%04x", c.AccessFlags),
	}
	var err error
	if d.Name, err = c.Name(); err != nil {
		return nil, fmt.Errorf("output: dump: %w", err)
	}
	if c.SuperClass != 0 {
		if d.Super, err = c.SuperName(); err != nil {
			return nil, fmt.Errorf("output: dump: %w", err)
		}
	}
	for _, i := range c.Interfaces {
		name, err := c.Pool.ClassName(i)
		if err != nil {
			return nil, fmt.Errorf("output: dump: interface: %w", err)
		}
		d.Interfaces = append(d.Interfaces, name)
	}
	if sf, ok, err := c.SourceFile(); err != nil {
		return nil, fmt.Errorf("output: dump: %w", err)
	} else if ok {
		d.SourceFile = sf
	}
	for i := 1; i < c.Pool.Len(); i++ {
		k := c.Pool.At(i)
		if k == nil {
			continue
		}
		d.Pool = append(d.Pool, PoolRecord{Index: i, Tag: k.Tag().String(), Value: describe(c.Pool, k)})
	}
	if d.Fields, err = dumpMembers(c, c.Fields); err != nil {
		return nil, err
	}
	if d.Methods, err = dumpMembers(c, c.Methods); err != nil {
		return nil, err
	}
	if d.Attributes, err = attrNames(c, c.Attributes); err != nil {
		return nil, err
	}
	return d, nil
}

func dumpMembers(c *classfile.Class, ms []*classfile.Member) ([]MemberRecord, error) {
	out := make([]MemberRecord, 0, len(ms))
	for _, m := range ms {
		name, err := c.MemberName(m)
		if err != nil {
			return nil, fmt.Errorf("output: dump: %w", err)
		}
		desc, err := c.MemberDescriptor(m)
		if err != nil {
			return nil, fmt.Errorf("output: dump: %s: %w", name, err)
		}
		attrs, err := attrNames(c, m.Attributes)
		if err != nil {
			return nil, err
		}
		out = append(out, MemberRecord{
			Access:     fmt.Sprintf("0x%04x", m.AccessFlags),
			Name:       name,
			Descriptor: desc,
			Attributes: attrs,
		})
	}
	return out, nil
}

func attrNames(c *classfile.Class, attrs []*classfile.Attribute) ([]string, error) {
	var out []string
	for _, a := range attrs {
		name, err := c.AttributeName(a)
		if err != nil {
			return nil, fmt.Errorf("output: dump: attribute: %w", err)
		}
		out = append(out, name)
	}
	return out, nil
}

// describe renders a constant with its indices followed. Unresolvable
// indices are shown raw.
func describe(p *classfile.Pool, k classfile.Constant) string {
	utf8 := func(i uint16) string {
		s, err := p.Utf8(i)
		if err != nil {
			return "#" + strconv.Itoa(int(i))
		}
		return s
	}
	nat := func(i uint16) string {
		name, desc, err := p.NameAndType(i)
		if err != nil {
			return "#" + strconv.Itoa(int(i))
		}
		return name + ":" + desc
	}
	class := func(i uint16) string {
		s, err := p.ClassName(i)
		if err != nil {
			return "#" + strconv.Itoa(int(i))
		}
		return s
	}
	switch k := k.(type) {
	case classfile.Utf8:
		return strconv.Quote(k.Value)
	case classfile.Integer:
		return strconv.Itoa(int(k.Value))
	case classfile.Float:
		return strconv.FormatFloat(float64(math.Float32frombits(k.Bits)), 'g', -1, 32)
	case classfile.Long:
		return strconv.FormatInt(k.Value, 10) + "L"
	case classfile.Double:
		return strconv.FormatFloat(math.Float64frombits(k.Bits), 'g', -1, 64)
	case classfile.ClassInfo:
		return utf8(k.NameIndex)
	case classfile.StringInfo:
		return strconv.Quote(utf8(k.StringIndex))
	case classfile.MemberRef:
		return class(k.ClassIndex) + "." + nat(k.NameAndTypeIndex)
	case classfile.NameAndType:
		return utf8(k.NameIndex) + ":" + utf8(k.DescriptorIndex)
	case classfile.MethodHandle:
		return fmt.Sprintf("kind %d #%d", k.RefKind, k.RefIndex)
	case classfile.MethodType:
		return utf8(k.DescriptorIndex)
	case classfile.Dynamic:
		return fmt.Sprintf("bsm %d %s", k.BootstrapIndex, nat(k.NameAndTypeIndex))
	case classfile.NamedRef:
		return utf8(k.NameIndex)
	default:
		return k.Tag().String()
	}
}

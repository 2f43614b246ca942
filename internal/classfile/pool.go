package classfile

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrBadIndex     = errors.New("classfile: bad constant pool index")
	ErrWrongTag     = errors.New("classfile: unexpected constant tag")
	ErrPoolOverflow = errors.New("classfile: constant pool overflow")
)

// Pool is the constant pool: an indexed arena of tagged constants.
//
// Index 0 and the slot after every Long or Double are unusable and hold nil.
// Entries are never inserted or removed; they are replaced in place with Set
// or appended with the Add methods, so an index held anywhere in the class
// stays valid for the life of the pool.
//
// Utf8, NameAndType and ClassInfo values are treated as immutable by this
// package: renaming appends a new constant and re-points the holder, because
// other holders may share the old one.
type Pool struct {
	entries []Constant
	mark    int

	utf8s map[string]uint16
	nats  map[natKey]uint16
}

type natKey struct{ name, desc string }

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{entries: make([]Constant, 1)}
}

// Len returns the constant_pool_count value: one more than the highest index.
func (p *Pool) Len() int { return len(p.entries) }

// At returns the constant at index i, or nil for unusable or out-of-range slots.
func (p *Pool) At(i int) Constant {
	if i <= 0 || i >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

// Set replaces the constant at index i. The slot must already hold a
// constant of the same width.
func (p *Pool) Set(i int, c Constant) error {
	old := p.At(i)
	if old == nil {
		return fmt.Errorf("%w: set %d", ErrBadIndex, i)
	}
	if old.Tag().Wide() != c.Tag().Wide() {
		return fmt.Errorf("%w: cannot replace %s with %s at %d", ErrWrongTag, old.Tag(), c.Tag(), i)
	}
	p.entries[i] = c
	if old.Tag() == TagUtf8 || c.Tag() == TagUtf8 {
		p.utf8s = nil
	}
	if old.Tag() == TagNameAndType || c.Tag() == TagNameAndType {
		p.nats = nil
	}
	return nil
}

// Mark records the current pool length as a watermark. Entries appended
// after Mark are reported as fresh.
func (p *Pool) Mark() { p.mark = len(p.entries) }

// Fresh reports whether index i was appended after the last Mark.
func (p *Pool) Fresh(i int) bool { return p.mark > 0 && i >= p.mark }

// Baseline returns the watermark, or the current length if Mark was never called.
func (p *Pool) Baseline() int {
	if p.mark > 0 {
		return p.mark
	}
	return len(p.entries)
}

func (p *Pool) add(c Constant) (uint16, error) {
	width := 1
	if c.Tag().Wide() {
		width = 2
	}
	if len(p.entries)+width > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d entries", ErrPoolOverflow, len(p.entries))
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if width == 2 {
		p.entries = append(p.entries, nil)
	}
	return idx, nil
}

// Add appends a constant and returns its index.
func (p *Pool) Add(c Constant) (uint16, error) {
	idx, err := p.add(c)
	if err != nil {
		return 0, err
	}
	switch v := c.(type) {
	case Utf8:
		if p.utf8s != nil {
			if _, ok := p.utf8s[v.Value]; !ok {
				p.utf8s[v.Value] = idx
			}
		}
	case NameAndType:
		if p.nats != nil {
			n, err1 := p.Utf8(v.NameIndex)
			d, err2 := p.Utf8(v.DescriptorIndex)
			k := natKey{n, d}
			if _, seen := p.nats[k]; !seen && err1 == nil && err2 == nil {
				p.nats[k] = idx
			}
		}
	}
	return idx, nil
}

// AddUtf8 returns the index of a Utf8 constant holding s, appending one if
// none exists.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	if p.utf8s == nil {
		p.utf8s = make(map[string]uint16)
		for i, c := range p.entries {
			if u, ok := c.(Utf8); ok {
				if _, seen := p.utf8s[u.Value]; !seen {
					p.utf8s[u.Value] = uint16(i)
				}
			}
		}
	}
	if idx, ok := p.utf8s[s]; ok {
		return idx, nil
	}
	return p.Add(Utf8{Value: s})
}

// AddClass appends a new ClassInfo constant naming name. Existing ClassInfo
// constants are never reused.
func (p *Pool) AddClass(name string) (uint16, error) {
	ni, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	return p.Add(ClassInfo{NameIndex: ni})
}

// AddNameAndType returns the index of a NameAndType constant for name and
// desc, appending one if none exists.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	if p.nats == nil {
		p.nats = make(map[natKey]uint16)
		for i, c := range p.entries {
			nt, ok := c.(NameAndType)
			if !ok {
				continue
			}
			n, err1 := p.Utf8(nt.NameIndex)
			d, err2 := p.Utf8(nt.DescriptorIndex)
			if err1 != nil || err2 != nil {
				continue
			}
			k := natKey{n, d}
			if _, seen := p.nats[k]; !seen {
				p.nats[k] = uint16(i)
			}
		}
	}
	if idx, ok := p.nats[natKey{name, desc}]; ok {
		return idx, nil
	}
	ni, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	di, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.Add(NameAndType{NameIndex: ni, DescriptorIndex: di})
}

// Utf8 returns the string held by the Utf8 constant at i.
func (p *Pool) Utf8(i uint16) (string, error) {
	c := p.At(int(i))
	if c == nil {
		return "", fmt.Errorf("%w: utf8 %d", ErrBadIndex, i)
	}
	u, ok := c.(Utf8)
	if !ok {
		return "", fmt.Errorf("%w: %d is %s, want Utf8", ErrWrongTag, i, c.Tag())
	}
	return u.Value, nil
}

// ClassName returns the internal name held by the ClassInfo constant at i.
func (p *Pool) ClassName(i uint16) (string, error) {
	c := p.At(int(i))
	if c == nil {
		return "", fmt.Errorf("%w: class %d", ErrBadIndex, i)
	}
	ci, ok := c.(ClassInfo)
	if !ok {
		return "", fmt.Errorf("%w: %d is %s, want Class", ErrWrongTag, i, c.Tag())
	}
	return p.Utf8(ci.NameIndex)
}

// NameAndType returns the name and descriptor of the NameAndType constant at i.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c := p.At(int(i))
	if c == nil {
		return "", "", fmt.Errorf("%w: name and type %d", ErrBadIndex, i)
	}
	nt, ok := c.(NameAndType)
	if !ok {
		return "", "", fmt.Errorf("%w: %d is %s, want NameAndType", ErrWrongTag, i, c.Tag())
	}
	if name, err = p.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// ResolvedRef is a member reference with its indices followed.
type ResolvedRef struct {
	Kind       Tag
	Owner      string
	Name       string
	Descriptor string
}

// MemberRef resolves the Fieldref, Methodref or InterfaceMethodref at i.
func (p *Pool) MemberRef(i int) (ResolvedRef, error) {
	c := p.At(i)
	m, ok := c.(MemberRef)
	if !ok {
		if c == nil {
			return ResolvedRef{}, fmt.Errorf("%w: member ref %d", ErrBadIndex, i)
		}
		return ResolvedRef{}, fmt.Errorf("%w: %d is %s, want member ref", ErrWrongTag, i, c.Tag())
	}
	owner, err := p.ClassName(m.ClassIndex)
	if err != nil {
		return ResolvedRef{}, fmt.Errorf("member ref %d owner: %w", i, err)
	}
	name, desc, err := p.NameAndType(m.NameAndTypeIndex)
	if err != nil {
		return ResolvedRef{}, fmt.Errorf("member ref %d: %w", i, err)
	}
	return ResolvedRef{Kind: m.Kind, Owner: owner, Name: name, Descriptor: desc}, nil
}

// SetMemberRefNameAndType points the member reference at i to a
// NameAndType for name and desc. The owner class index and the index i
// itself are unchanged.
func (p *Pool) SetMemberRefNameAndType(i int, name, desc string) error {
	m, ok := p.At(i).(MemberRef)
	if !ok {
		return fmt.Errorf("%w: %d is not a member ref", ErrWrongTag, i)
	}
	nt, err := p.AddNameAndType(name, desc)
	if err != nil {
		return err
	}
	m.NameAndTypeIndex = nt
	return p.Set(i, m)
}

package rewrite_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"jremap/internal/classfile"
	"jremap/internal/descriptor"
	"jremap/internal/mapping"
	"jremap/internal/renamer"
	"jremap/internal/rewrite"
)

const mappings = `CLASS obf/A pkg/Widget
	FIELD a count Lobf/B;
	METHOD b run (I)Lobf/B;
	METHOD c execute ()V
	CLASS d Part
		CLASS e Piece
CLASS obf/B pkg/Gadget
`

func translator(t *testing.T, text string) *mapping.Translator {
	t.Helper()
	s, err := mapping.ReadEnigma(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := mapping.NewTranslator(s, 64)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// sampleClass builds obf/A with declared members, self references, a
// reference to another class and class-level metadata.
func sampleClass(t *testing.T) *classfile.Class {
	t.Helper()
	c, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	_, err = c.AddField(classfile.AccPrivate, "a", "Lobf/B;")
	check(t, err)
	_, err = c.AddField(classfile.AccPrivate, "z", "[[Lobf/B;")
	check(t, err)
	_, err = c.AddMethod(classfile.AccPublic, classfile.ConstructorName, "(Lobf/B;)V")
	check(t, err)
	_, err = c.AddMethod(classfile.AccStatic, classfile.StaticInitializerName, "()V")
	check(t, err)
	m, err := c.AddMethod(classfile.AccPublic, "b", "(I)Lobf/B;")
	check(t, err)
	_, err = c.AddMethod(classfile.AccPublic, "c", "()V")
	check(t, err)
	_, err = c.AddMemberRef(classfile.TagFieldref, "obf/A", "a", "Lobf/B;")
	check(t, err)
	_, err = c.AddMemberRef(classfile.TagMethodref, "obf/A", "b", "(I)Lobf/B;")
	check(t, err)
	_, err = c.AddMemberRef(classfile.TagMethodref, "obf/B", "<init>", "()V")
	check(t, err)
	_, err = c.AddMemberRef(classfile.TagInterfaceMethodref, "java/lang/Runnable", "run", "()V")
	check(t, err)

	sig, err := c.Pool.AddUtf8("Ljava/util/List<Lobf/B;>;")
	check(t, err)
	check(t, c.PutAttribute(&c.Fields[1].Attributes, classfile.AttrSignature, u2(sig)))

	lvtName, err := c.Pool.AddUtf8("this")
	check(t, err)
	lvtDesc, err := c.Pool.AddUtf8("Lobf/A;")
	check(t, err)
	lvtAttr, err := c.Pool.AddUtf8(classfile.AttrLocalVariableTable)
	check(t, err)
	lvt := append(u2(1), 0, 0, 0, 1)
	lvt = append(lvt, u2(lvtName)...)
	lvt = append(lvt, u2(lvtDesc)...)
	lvt = append(lvt, 0, 0)
	code := &classfile.Code{MaxStack: 1, MaxLocals: 2, Bytecode: []byte{0x01, 0xb0},
		Attributes: []*classfile.Attribute{{NameIndex: lvtAttr, Data: lvt}}}
	data, err := code.Encode()
	check(t, err)
	check(t, c.PutAttribute(&m.Attributes, classfile.AttrCode, data))

	check(t, c.SetSourceFile("SourceFile.java"))
	return c
}

func u2(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func roundTrip(t *testing.T, c *classfile.Class) (*classfile.Class, []byte) {
	t.Helper()
	data, err := classfile.Write(c)
	check(t, err)
	parsed, err := classfile.Parse(data)
	check(t, err)
	return parsed, data
}

func memberByName(t *testing.T, c *classfile.Class, members []*classfile.Member, name string) *classfile.Member {
	t.Helper()
	for _, m := range members {
		if n, _ := c.MemberName(m); n == name {
			return m
		}
	}
	t.Fatalf("no member %q", name)
	return nil
}

func TestIdentityTranslationIsByteIdentical(t *testing.T) {
	c := sampleClass(t)
	check(t, c.SetEnclosingContext(classfile.EnclosingMethod{Class: "obf/O", Name: "m", Descriptor: "()V"}))
	for name, text := range map[string]string{
		"empty":     "",
		"unrelated": "CLASS other/X some/Y\n\tFIELD q r I\n",
	} {
		t.Run(name, func(t *testing.T) {
			parsed, before := roundTrip(t, c)
			rw := rewrite.New(translator(t, text), renamer.New())
			check(t, rw.Rewrite(parsed))
			after, err := classfile.Write(parsed)
			check(t, err)
			if !bytes.Equal(before, after) {
				t.Errorf("identity rewrite changed the class: %d → %d bytes", len(before), len(after))
			}
		})
	}
}

func TestFieldRenameScenario(t *testing.T) {
	c, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	f, err := c.AddField(0, "obf$a", "Lobf/B;")
	check(t, err)

	text := "CLASS obf/A\n\tFIELD obf$a count Lobf/B;\nCLASS obf/B pkg/Widget\n"
	rw := rewrite.New(translator(t, text), renamer.New())
	check(t, rw.Rewrite(c))

	name, _ := c.MemberName(f)
	desc, _ := c.MemberDescriptor(f)
	if name != "count" || desc != "Lpkg/Widget;" {
		t.Errorf("field = %s %s, want count Lpkg/Widget;", name, desc)
	}
}

func TestMethodRefLeavesOwnerToClassNamePass(t *testing.T) {
	c, err := classfile.New("obf/Caller", "java/lang/Object")
	check(t, err)
	ref, err := c.AddMemberRef(classfile.TagMethodref, "obf/A", "c", "()V")
	check(t, err)
	owner := c.Pool.At(int(ref)).(classfile.MemberRef).ClassIndex

	rw := rewrite.New(translator(t, mappings), nil)
	check(t, rw.Rewrite(c))

	r, err := c.Pool.MemberRef(int(ref))
	check(t, err)
	if r.Name != "execute" || r.Descriptor != "()V" {
		t.Errorf("ref = %+v, want execute ()V", r)
	}
	if got := c.Pool.At(int(ref)).(classfile.MemberRef).ClassIndex; got != owner {
		t.Errorf("owner index moved from %d to %d", owner, got)
	}
	if r.Owner != "obf/A" {
		t.Errorf("owner = %s, want obf/A untouched without a class-name pass", r.Owner)
	}

	// With the default renamer the owner constant itself is retargeted.
	c2, err := classfile.New("obf/Caller", "java/lang/Object")
	check(t, err)
	ref2, err := c2.AddMemberRef(classfile.TagMethodref, "obf/A", "c", "()V")
	check(t, err)
	check(t, rewrite.New(translator(t, mappings), renamer.New()).Rewrite(c2))
	r2, err := c2.Pool.MemberRef(int(ref2))
	check(t, err)
	if r2.Owner != "pkg/Widget" || r2.Name != "execute" {
		t.Errorf("ref = %+v, want pkg/Widget.execute", r2)
	}
}

func TestPoolDeclarationConsistency(t *testing.T) {
	c, _ := roundTrip(t, sampleClass(t))
	stats, err := rewrite.New(translator(t, mappings), renamer.New()).RewriteStats(c)
	check(t, err)

	name, err := c.Name()
	check(t, err)
	if name != "pkg/Widget" {
		t.Fatalf("class name = %s", name)
	}
	declared := map[string]string{}
	for _, ms := range [][]*classfile.Member{c.Fields, c.Methods} {
		for _, m := range ms {
			n, _ := c.MemberName(m)
			d, _ := c.MemberDescriptor(m)
			declared[n] = d
		}
	}
	selfRefs := 0
	for i := 1; i < c.Pool.Len(); i++ {
		if _, ok := c.Pool.At(i).(classfile.MemberRef); !ok {
			continue
		}
		r, err := c.Pool.MemberRef(i)
		check(t, err)
		if r.Owner != name {
			continue
		}
		selfRefs++
		if d, ok := declared[r.Name]; !ok || d != r.Descriptor {
			t.Errorf("self reference %s%s has no matching declaration (%q)", r.Name, r.Descriptor, d)
		}
	}
	if selfRefs != 2 {
		t.Errorf("%d self references, want 2", selfRefs)
	}
	if declared["count"] != "Lpkg/Gadget;" || declared["run"] != "(I)Lpkg/Gadget;" {
		t.Errorf("declared = %v", declared)
	}
	want := rewrite.Stats{References: 2, Fields: 1, Methods: 2, Descriptors: 4, SourceFile: "Widget.java"}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

// renameAll renames every member and leaves classes alone.
type renameAll struct{}

func (renameAll) TranslateClass(c mapping.ClassEntry) mapping.ClassEntry { return c }
func (renameAll) TranslateField(f mapping.FieldEntry) mapping.FieldEntry {
	f.Name = "x_" + f.Name
	return f
}
func (renameAll) TranslateBehavior(b mapping.BehaviorEntry) mapping.BehaviorEntry {
	b.Name = "x_" + b.Name
	return b
}
func (renameAll) FieldName(f mapping.FieldEntry) (string, bool)       { return "x_" + f.Name, true }
func (renameAll) BehaviorName(b mapping.BehaviorEntry) (string, bool) { return "x_" + b.Name, true }
func (renameAll) TranslateType(t descriptor.Type) descriptor.Type     { return t }
func (renameAll) TranslateSignature(s descriptor.Signature) descriptor.Signature {
	return s
}

func TestInitializersNeverRenamed(t *testing.T) {
	c := sampleClass(t)
	check(t, rewrite.New(renameAll{}, nil).Rewrite(c))
	names := map[string]bool{}
	for _, m := range c.Methods {
		n, _ := c.MemberName(m)
		names[n] = true
	}
	for _, want := range []string{"<init>", "<clinit>", "x_b", "x_c"} {
		if !names[want] {
			t.Errorf("method %s missing; have %v", want, names)
		}
	}
}

func TestProvenanceNamesOutermostClass(t *testing.T) {
	c, err := classfile.New("obf/A$d$e", "java/lang/Object")
	check(t, err)
	check(t, c.SetSourceFile("e.java"))
	stats, err := rewrite.New(translator(t, mappings), renamer.New()).RewriteStats(c)
	check(t, err)
	src, ok, err := c.SourceFile()
	check(t, err)
	if !ok || src != "Widget.java" {
		t.Errorf("SourceFile = %q, want Widget.java", src)
	}
	if stats.SourceFile != "Widget.java" {
		t.Errorf("stats.SourceFile = %q", stats.SourceFile)
	}
	if name, _ := c.Name(); name != "pkg/Widget$Part$Piece" {
		t.Errorf("class name = %s", name)
	}
}

func TestProvenanceDollarLeadingNames(t *testing.T) {
	const dollar = `CLASS obf/$a
	CLASS b Inner
CLASS obf/a com/sun/proxy/$Proxy0
`
	tests := []struct{ class, name, source string }{
		{"obf/$a$b", "obf/$a$Inner", "$a.java"},
		{"obf/a", "com/sun/proxy/$Proxy0", "$Proxy0.java"},
	}
	for _, tt := range tests {
		c, err := classfile.New(tt.class, "java/lang/Object")
		check(t, err)
		if err := rewrite.New(translator(t, dollar), renamer.New()).Rewrite(c); err != nil {
			t.Errorf("%s: %v", tt.class, err)
			continue
		}
		if name, _ := c.Name(); name != tt.name {
			t.Errorf("%s: class name = %s, want %s", tt.class, name, tt.name)
		}
		if src, _, _ := c.SourceFile(); src != tt.source {
			t.Errorf("%s: SourceFile = %q, want %q", tt.class, src, tt.source)
		}
	}
}

func TestProvenanceUnmappedIsNoop(t *testing.T) {
	c, err := classfile.New("other/Q", "java/lang/Object")
	check(t, err)
	check(t, c.SetSourceFile("Q.kt"))
	check(t, rewrite.New(translator(t, mappings), renamer.New()).Rewrite(c))
	if src, _, _ := c.SourceFile(); src != "Q.kt" {
		t.Errorf("SourceFile = %q, want unchanged", src)
	}

	bare, err := classfile.New("other/R", "java/lang/Object")
	check(t, err)
	check(t, rewrite.New(translator(t, mappings), renamer.New()).Rewrite(bare))
	if _, ok, _ := bare.SourceFile(); ok {
		t.Error("SourceFile added to an unmapped class")
	}
}

// badClasses maps every class to a name with an empty package segment.
type badClasses struct{ renameAll }

func (badClasses) TranslateClass(c mapping.ClassEntry) mapping.ClassEntry {
	return mapping.ClassEntry{Name: "pkg//Bad"}
}

func TestProvenanceMalformedIsFatal(t *testing.T) {
	c, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	err = rewrite.New(badClasses{}, nil).Rewrite(c)
	if !errors.Is(err, rewrite.ErrMalformedProvenance) || !errors.Is(err, mapping.ErrMalformedName) {
		t.Fatalf("expected ErrMalformedProvenance, got %v", err)
	}
	var re *rewrite.Error
	if !errors.As(err, &re) || re.Pass != rewrite.PassProvenance || re.Class != "obf/A" {
		t.Errorf("error = %#v", re)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	tr := translator(t, mappings)
	for _, desc := range []string{"()V", "(I[Lobf/B;J)Lobf/A;", "([[Lobf/A$d;Ljava/lang/String;)[Z"} {
		sig, err := descriptor.ParseSignature(desc)
		check(t, err)
		out := tr.TranslateSignature(sig)
		again, err := descriptor.ParseSignature(out.String())
		check(t, err)
		if !again.Equal(out) {
			t.Errorf("%s: %s does not round-trip", desc, out)
		}
	}
}

func TestEnclosingContext(t *testing.T) {
	tests := []struct {
		name string
		in   classfile.EnclosingContext
		want classfile.EnclosingContext
	}{
		{"class", classfile.EnclosingClass{Class: "obf/A"}, classfile.EnclosingClass{Class: "pkg/Widget"}},
		{"method", classfile.EnclosingMethod{Class: "obf/A", Name: "b", Descriptor: "(I)Lobf/B;"},
			classfile.EnclosingMethod{Class: "pkg/Widget", Name: "run", Descriptor: "(I)Lpkg/Gadget;"}},
		{"unmapped", classfile.EnclosingMethod{Class: "x/Y", Name: "m", Descriptor: "()V"},
			classfile.EnclosingMethod{Class: "x/Y", Name: "m", Descriptor: "()V"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := classfile.New("obf/A$1", "java/lang/Object")
			check(t, err)
			check(t, c.SetEnclosingContext(tt.in))
			stats, err := rewrite.New(translator(t, mappings), renamer.New()).RewriteStats(c)
			check(t, err)
			got, err := c.EnclosingContext()
			check(t, err)
			if got != tt.want {
				t.Errorf("context = %#v, want %#v", got, tt.want)
			}
			if stats.Enclosing != (tt.in != tt.want) {
				t.Errorf("stats.Enclosing = %v", stats.Enclosing)
			}
		})
	}
}

func TestMalformedDescriptorIsFatal(t *testing.T) {
	c, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	_, err = c.AddField(0, "a", "Lobf/B")
	check(t, err)
	err = rewrite.New(translator(t, mappings), renamer.New()).Rewrite(c)
	if !errors.Is(err, rewrite.ErrMalformedDescriptor) || !errors.Is(err, descriptor.ErrMalformed) {
		t.Fatalf("expected malformed descriptor, got %v", err)
	}
	var re *rewrite.Error
	if !errors.As(err, &re) || re.Pass != rewrite.PassMembers || re.Class != "obf/A" {
		t.Errorf("error = %#v", re)
	}

	c2, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	_, err = c2.AddMemberRef(classfile.TagMethodref, "obf/B", "m", "(V)V")
	check(t, err)
	err = rewrite.New(translator(t, mappings), nil).Rewrite(c2)
	if !errors.As(err, &re) || re.Pass != rewrite.PassReferences {
		t.Errorf("method ref: expected references failure, got %v", err)
	}
}

func TestMalformedEnclosingIsFatal(t *testing.T) {
	c, err := classfile.New("obf/A$1", "java/lang/Object")
	check(t, err)
	check(t, c.PutAttribute(&c.Attributes, classfile.AttrEnclosingMethod, []byte{0, 1}))
	err = rewrite.New(translator(t, mappings), nil).Rewrite(c)
	var re *rewrite.Error
	if !errors.Is(err, rewrite.ErrMalformedEnclosing) || !errors.As(err, &re) || re.Pass != rewrite.PassEnclosing {
		t.Errorf("expected enclosing failure, got %v", err)
	}
}

func TestPassOrder(t *testing.T) {
	c := sampleClass(t)
	called := false
	probe := rewrite.RenamerFunc(func(c *classfile.Class, tr rewrite.Translator) error {
		called = true
		if _, ok := tr.(*mapping.Translator); !ok {
			t.Errorf("renamer got translator %T", tr)
		}
		// Members are already renamed; the class and its source file are not.
		memberByName(t, c, c.Fields, "count")
		memberByName(t, c, c.Methods, "run")
		if name, _ := c.Name(); name != "obf/A" {
			t.Errorf("class renamed before the class-name pass: %s", name)
		}
		if src, _, _ := c.SourceFile(); src != "SourceFile.java" {
			t.Errorf("source file rewritten before the class-name pass: %s", src)
		}
		return renamer.New().RenameClasses(c, tr)
	})
	check(t, rewrite.New(translator(t, mappings), probe).Rewrite(c))
	if !called {
		t.Fatal("class-name pass did not run")
	}
	if src, _, _ := c.SourceFile(); src != "Widget.java" {
		t.Errorf("SourceFile = %s", src)
	}
}

func TestRenamerErrorIsTagged(t *testing.T) {
	boom := errors.New("boom")
	c, err := classfile.New("obf/A", "java/lang/Object")
	check(t, err)
	err = rewrite.New(translator(t, mappings), rewrite.RenamerFunc(func(*classfile.Class, rewrite.Translator) error {
		return boom
	})).Rewrite(c)
	var re *rewrite.Error
	if !errors.Is(err, boom) || !errors.As(err, &re) || re.Pass != rewrite.PassClassNames {
		t.Errorf("got %v", err)
	}
	if !strings.Contains(err.Error(), "obf/A") || !strings.Contains(err.Error(), "class-names") {
		t.Errorf("error text %q", err)
	}
}

package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"jremap/internal/batch"
	"jremap/internal/classfile"
	"jremap/internal/classfmt"
	"jremap/internal/mapping"
	"jremap/internal/rewrite"
)

func TestWriteReport(t *testing.T) {
	res := &batch.Result{
		Classes: []batch.ClassResult{
			{Entry: "obf/A.class", NewEntry: "pkg/Widget.class", OldName: "obf/A", NewName: "pkg/Widget",
				Stats: rewrite.Stats{Fields: 1, SourceFile: "Widget.java"}},
			{Entry: "obf/broken.class", Error: "classfile: bad magic"},
		},
	}
	res.Diags.Add("obf/broken.class", classfmt.DiagInvalid, "classfile: bad magic")
	opts := classfmt.Options{Mode: classfmt.ModeBestEffort, Workers: 2}
	r := NewReport("in.jar", "out.jar", opts, mapping.Stats{Classes: 1, Fields: 1}, res)

	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(path, r); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Mode != "best-effort" || got.Workers != 2 || got.Summary.Failed != 1 || got.Summary.Classes != 2 {
		t.Errorf("report = %+v", got)
	}
	if len(got.Classes) != 2 || got.Classes[0].Stats.SourceFile != "Widget.java" {
		t.Errorf("classes = %+v", got.Classes)
	}
	if len(got.Diags) != 1 || got.Diags[0].Kind != classfmt.DiagInvalid {
		t.Errorf("diags = %+v", got.Diags)
	}
}

func TestWriteDOT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.dot")
	if err := WriteDOT(path, "digraph x {}\n"); err != nil {
		t.Fatal(err)
	}
	if err := WriteDOT(filepath.Join(t.TempDir(), "missing", "refs.dot"), ""); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestEncodeJSONNoEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, map[string]string{"name": "<init>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"<init>"`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestDump(t *testing.T) {
	c, err := classfile.New("pkg/Widget", "java/lang/Object")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddField(classfile.AccPrivate, "count", "I"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddMethod(classfile.AccPublic, "<init>", "()V"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddMemberRef(classfile.TagMethodref, "java/lang/Object", "<init>", "()V"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Pool.Add(classfile.Long{Value: 7}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSourceFile("Widget.java"); err != nil {
		t.Fatal(err)
	}

	d, err := Dump(c)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "pkg/Widget" || d.Super != "java/lang/Object" || d.SourceFile != "Widget.java" {
		t.Errorf("dump = %+v", d)
	}
	if !strings.Contains(d.Version, "Java 8") {
		t.Errorf("version = %s", d.Version)
	}
	if len(d.Fields) != 1 || d.Fields[0].Name != "count" || d.Fields[0].Access != "0x0002" {
		t.Errorf("fields = %+v", d.Fields)
	}
	if len(d.Methods) != 1 || d.Methods[0].Descriptor != "()V" {
		t.Errorf("methods = %+v", d.Methods)
	}
	if len(d.Attributes) != 1 || d.Attributes[0] != classfile.AttrSourceFile {
		t.Errorf("attributes = %v", d.Attributes)
	}
	values := make(map[string]bool)
	for _, r := range d.Pool {
		values[r.Tag+" "+r.Value] = true
	}
	for _, want := range []string{"Class pkg/Widget", "Methodref java/lang/Object.<init>:()V", "Long 7L", `Utf8 "count"`} {
		if !values[want] {
			t.Errorf("pool missing %q", want)
		}
	}
}

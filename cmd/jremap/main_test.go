package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"jremap/internal/classfile"
	"jremap/internal/jar"
	"jremap/internal/output"
)

const mappings = `CLASS obf/A pkg/Widget
	FIELD a count I
	METHOD b run ()V
CLASS obf/B pkg/Gadget
`

func buildClass(t *testing.T, name, super string, refs bool) []byte {
	t.Helper()
	c, err := classfile.New(name, super)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddField(0, "a", "I"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddMethod(0, "b", "()V"); err != nil {
		t.Fatal(err)
	}
	if refs {
		if _, err := c.AddMemberRef(classfile.TagMethodref, "obf/A", "b", "()V"); err != nil {
			t.Fatal(err)
		}
	}
	data, err := classfile.Write(c)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type fixture struct {
	dir, jar, classFile, mappings string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:       dir,
		jar:       filepath.Join(dir, "in.jar"),
		classFile: filepath.Join(dir, "A.class"),
		mappings:  filepath.Join(dir, "m.mappings"),
	}
	entries := []jar.Entry{
		{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\n")},
		{Name: "obf/A.class", Data: buildClass(t, "obf/A", "java/lang/Object", false)},
		{Name: "obf/B.class", Data: buildClass(t, "obf/B", "obf/A", true)},
	}
	if err := jar.Write(f.jar, entries); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.classFile, entries[1].Data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.mappings, []byte(mappings), 0644); err != nil {
		t.Fatal(err)
	}
	return f
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRemap(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out.jar")
	report := filepath.Join(f.dir, "report.json")
	graph := filepath.Join(f.dir, "refs.dot")
	_, stderr, err := run(t, "remap", "-q", "--in", f.jar, "--out", out, "--mappings", f.mappings,
		"--workers", "2", "--report", report, "--graph", graph)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "wrote "+out) {
		t.Errorf("stderr = %q", stderr)
	}

	entries, err := jar.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "META-INF/MANIFEST.MF,pkg/Widget.class,pkg/Gadget.class" {
		t.Errorf("entries = %s", got)
	}
	c, err := classfile.Parse(entries[2].Data)
	if err != nil {
		t.Fatal(err)
	}
	if super, _ := c.SuperName(); super != "pkg/Widget" {
		t.Errorf("super = %s", super)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	var r output.Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if r.Summary.Renamed != 2 || r.Mappings.Classes != 2 || r.Workers != 2 {
		t.Errorf("report = %+v", r)
	}
	if _, err := os.Stat(graph); err != nil {
		t.Errorf("graph not written: %v", err)
	}
}

func TestRemapRequiresFlags(t *testing.T) {
	f := newFixture(t)
	if _, _, err := run(t, "remap", "-q", "--in", f.jar, "--mappings", f.mappings); err == nil || !strings.Contains(err.Error(), "--out") {
		t.Errorf("got %v, want --out required", err)
	}
	if _, _, err := run(t, "remap", "-q", "--in", f.jar, "--out", filepath.Join(f.dir, "x.jar")); err == nil || !strings.Contains(err.Error(), "--mappings") {
		t.Errorf("got %v, want --mappings required", err)
	}
}

func TestClassAndInspect(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "Widget.class")
	if _, _, err := run(t, "class", "-q", "--in", f.classFile, "--out", out, "--mappings", f.mappings); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := run(t, "inspect", "-q", "--in", out, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var d output.ClassDump
	if err := json.Unmarshal([]byte(stdout), &d); err != nil {
		t.Fatal(err)
	}
	if d.Name != "pkg/Widget" || d.SourceFile != "Widget.java" {
		t.Errorf("dump = %+v", d)
	}
	if len(d.Fields) != 1 || d.Fields[0].Name != "count" || len(d.Methods) != 1 || d.Methods[0].Name != "run" {
		t.Errorf("members = %+v %+v", d.Fields, d.Methods)
	}

	text, _, err := run(t, "inspect", "-q", "--in", out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "class pkg/Widget") || !strings.Contains(text, "constant pool") {
		t.Errorf("text dump = %q", text)
	}
}

func TestGraph(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "g.dot")
	_, stderr, err := run(t, "graph", "-q", "--in", f.jar, "--out", out, "--mappings", f.mappings)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "(2 nodes, 1 edges)") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jremap.toml")
	if _, _, err := run(t, "init", "-q", "--path", path); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, "init", "-q", "--path", path); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, _, err := run(t, "init", "-q", "--path", path, "--force"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, "inspect", "-q", "--config", path, "--in", path); err == nil {
		t.Error("expected parse error for a non-class file")
	}
}

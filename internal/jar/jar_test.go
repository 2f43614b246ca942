package jar

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

func TestWriteReadRoundTrip(t *testing.T) {
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Name: "META-INF/", Modified: mod},
		{Name: "META-INF/MANIFEST.MF", Data: []byte("Manifest-Version: 1.0\n"), Modified: mod},
		{Name: "obf/A.class", Data: []byte{0xca, 0xfe, 0xba, 0xbe}, Modified: mod, Stored: true},
		{Name: "obf/B.class", Data: bytes.Repeat([]byte{1}, 1000), Modified: mod},
	}
	path := filepath.Join(t.TempDir(), "out.jar")
	if err := Write(path, entries); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(entries) {
		t.Fatalf("read %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Name != e.Name || !bytes.Equal(got[i].Data, e.Data) {
			t.Errorf("entry %d = %s (%d bytes), want %s (%d bytes)", i, got[i].Name, len(got[i].Data), e.Name, len(e.Data))
		}
	}
	// Entries without Stored are deflated; directories are always stored.
	wantMethods := []uint16{zip.Store, zip.Deflate, zip.Store, zip.Deflate}
	for i, want := range wantMethods {
		if got[i].Method() != want {
			t.Errorf("entry %s: method = %d, want %d", got[i].Name, got[i].Method(), want)
		}
	}
	if !got[2].Stored || got[3].Stored {
		t.Errorf("stored = %v, %v", got[2].Stored, got[3].Stored)
	}
}

func TestEntryKinds(t *testing.T) {
	tests := []struct {
		name       string
		dir, class bool
	}{
		{"obf/", true, false},
		{"obf/A.class", false, true},
		{"META-INF/versions/9/module-info.class", false, true},
		{"obf/a.txt", false, false},
	}
	for _, tt := range tests {
		e := Entry{Name: tt.name}
		if e.IsDir() != tt.dir || e.IsClass() != tt.class {
			t.Errorf("%s: IsDir=%v IsClass=%v", tt.name, e.IsDir(), e.IsClass())
		}
	}
}

func TestDuplicateEntry(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTo(&buf, []Entry{{Name: "a"}, {Name: "a"}})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestNotJar(t *testing.T) {
	r := strings.NewReader("not a zip")
	if _, err := ReadFrom(r, int64(r.Len())); !errors.Is(err, ErrNotJar) {
		t.Errorf("expected ErrNotJar, got %v", err)
	}
}

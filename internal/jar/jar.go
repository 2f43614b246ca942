// Package jar reads and writes jar archives.
package jar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

var (
	ErrNotJar        = errors.New("jar: not a zip archive")
	ErrEntryTooLarge = errors.New("jar: entry too large")
	ErrDuplicate     = errors.New("jar: duplicate entry")
)

// MaxEntrySize bounds the uncompressed size of a single entry.
const MaxEntrySize = 256 << 20

// Entry is one archive member, fully read into memory.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
	Stored   bool // written without compression; other files are deflated
}

// Method returns the zip method the entry is written with.
func (e Entry) Method() uint16 {
	if e.Stored || e.IsDir() {
		return zip.Store
	}
	return zip.Deflate
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return strings.HasSuffix(e.Name, "/") }

// IsClass reports whether the entry holds a class file.
func (e Entry) IsClass() bool { return !e.IsDir() && strings.HasSuffix(e.Name, ".class") }

// Read loads every entry of the jar at path, in archive order.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jar: open: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("jar: stat: %w", err)
	}
	return ReadFrom(f, info.Size())
}

// ReadFrom loads every entry of a jar held in r.
func ReadFrom(r io.ReaderAt, size int64) ([]Entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJar, err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		e := Entry{Name: f.Name, Modified: f.Modified, Stored: f.Method == zip.Store}
		if !e.IsDir() {
			if e.Data, err = readFile(f); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrEntryTooLarge, f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("jar: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("jar: read %s: %w", f.Name, err)
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, f.Name)
	}
	return data, nil
}

// Write stores entries as a jar at path, in the given order.
func Write(path string, entries []Entry) error {
	var buf bytes.Buffer
	if err := WriteTo(&buf, entries); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("jar: write: %w", err)
	}
	return nil
}

// WriteTo writes entries as a zip stream. Entry names must be unique.
func WriteTo(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicate, e.Name)
		}
		seen[e.Name] = true
		h := &zip.FileHeader{Name: e.Name, Method: e.Method(), Modified: e.Modified}
		fw, err := zw.CreateHeader(h)
		if err != nil {
			return fmt.Errorf("jar: create %s: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("jar: write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("jar: close: %w", err)
	}
	return nil
}

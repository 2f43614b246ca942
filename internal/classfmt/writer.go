package classfmt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates big-endian class-file data.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated data.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteModifiedUTF8 writes a u2 length-prefixed modified UTF-8 string.
func (w *Writer) WriteModifiedUTF8(s string) error {
	b := EncodeModifiedUTF8(s)
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("%w: utf8 constant of %d bytes", ErrStreamOverrun, len(b))
	}
	w.WriteUint16(uint16(len(b)))
	w.WriteBytes(b)
	return nil
}

// PutUint16At overwrites a u2 at offset within data.
func PutUint16At(data []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(data[offset:], v)
}

// Uint16At reads a u2 at offset within data.
func Uint16At(data []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(data[offset:])
}

package classfmt

import (
	"bytes"
	"testing"
)

func TestReadUint16_BigEndian(t *testing.T) {
	s := NewStream([]byte{0x12, 0x34, 0xca, 0xfe, 0xba, 0xbe})
	got, err := s.ReadUint16()
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x1234 {
		t.Errorf("ReadUint16 = 0x%x, want 0x1234", got)
	}
	magic, err := s.ReadUint32()
	if err != nil {
		t.Fatal(err)
	}
	if magic != 0xcafebabe {
		t.Errorf("ReadUint32 = 0x%x, want 0xcafebabe", magic)
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", s.Remaining())
	}
}

func TestReadUint_EOF(t *testing.T) {
	s := NewStream([]byte{0x01})
	if _, err := s.ReadUint16(); err != ErrStreamEOF {
		t.Errorf("ReadUint16: expected EOF, got %v", err)
	}
	if _, err := s.ReadUint32(); err != ErrStreamEOF {
		t.Errorf("ReadUint32: expected EOF, got %v", err)
	}
	if _, err := s.ReadBytes(2); err != ErrStreamEOF {
		t.Errorf("ReadBytes: expected EOF, got %v", err)
	}
	if err := s.Skip(2); err != ErrStreamEOF {
		t.Errorf("Skip: expected EOF, got %v", err)
	}
}

func TestModifiedUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		enc  []byte
	}{
		{"ascii", "Lpkg/Widget;", []byte("Lpkg/Widget;")},
		{"nul", "a\x00b", []byte{'a', 0xc0, 0x80, 'b'}},
		{"two byte", "é", []byte{0xc3, 0xa9}},
		{"three byte", "€", []byte{0xe2, 0x82, 0xac}},
		// U+1F600 as a surrogate pair D83D DE00.
		{"supplementary", "\U0001F600", []byte{0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeModifiedUTF8(tt.in)
			if !bytes.Equal(enc, tt.enc) {
				t.Errorf("Encode(%q) = % x, want % x", tt.in, enc, tt.enc)
			}
			dec, err := DecodeModifiedUTF8(tt.enc)
			if err != nil {
				t.Fatal(err)
			}
			if dec != tt.in {
				t.Errorf("Decode(% x) = %q, want %q", tt.enc, dec, tt.in)
			}
		})
	}
}

func TestDecodeModifiedUTF8_Truncated(t *testing.T) {
	if _, err := DecodeModifiedUTF8([]byte{0xe2, 0x82}); err != ErrBadUTF8 {
		t.Errorf("expected ErrBadUTF8, got %v", err)
	}
	if _, err := DecodeModifiedUTF8([]byte{0xff}); err != ErrBadUTF8 {
		t.Errorf("expected ErrBadUTF8 for 0xff, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter(16)
	w.WriteUint32(0xcafebabe)
	w.WriteUint16(52)
	if err := w.WriteModifiedUTF8("Code"); err != nil {
		t.Fatal(err)
	}
	w.WriteUint64(0x0102030405060708)

	s := NewStream(w.Bytes())
	if v, _ := s.ReadUint32(); v != 0xcafebabe {
		t.Errorf("magic = 0x%x", v)
	}
	if v, _ := s.ReadUint16(); v != 52 {
		t.Errorf("major = %d", v)
	}
	str, err := s.ReadModifiedUTF8()
	if err != nil {
		t.Fatal(err)
	}
	if str != "Code" {
		t.Errorf("utf8 = %q, want Code", str)
	}
	if v, _ := s.ReadUint64(); v != 0x0102030405060708 {
		t.Errorf("u8 = 0x%x", v)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"strict": ModeStrict, "best-effort": ModeBestEffort, "": ModeBestEffort} {
		got, err := ParseMode(in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseMode("lenient"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

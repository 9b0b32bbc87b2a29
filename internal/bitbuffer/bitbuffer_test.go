package bitbuffer

import (
	"bytes"
	"testing"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/filebuffer"
)

func writeThenRead(t *testing.T, write func(*Buffer), read func(*Buffer)) {
	t.Helper()
	var dst bytes.Buffer
	fb, err := filebuffer.New(filebuffer.Writing, nil, &dst, 16)
	if err != nil {
		t.Fatalf("filebuffer.New: %v", err)
	}
	bb := New(fb)
	write(bb)
	if err := bb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rfb, err := filebuffer.New(filebuffer.Reading, bytes.NewReader(dst.Bytes()), nil, 16)
	if err != nil {
		t.Fatalf("filebuffer.New (read): %v", err)
	}
	rbb := New(rfb)
	read(rbb)
}

func TestWriteBitsReadBitsRoundTrip(t *testing.T) {
	writeThenRead(t,
		func(bb *Buffer) {
			// 13 bits: 1 0110 1101 0000 (MSB first) left-aligned.
			in := []byte{0b10110110, 0b10000000}
			if n, err := bb.WriteBits(in, 13); err != nil || n != 13 {
				t.Fatalf("WriteBits() = %d, %v; want 13, nil", n, err)
			}
		},
		func(bb *Buffer) {
			out := make([]byte, 2)
			n, err := bb.ReadBits(out, 13)
			if err != nil || n != 13 {
				t.Fatalf("ReadBits() = %d, %v; want 13, nil", n, err)
			}
			want := []byte{0b10110110, 0b10000000}
			if !bytes.Equal(out, want) {
				t.Fatalf("ReadBits() content = %08b %08b, want %08b %08b", out[0], out[1], want[0], want[1])
			}
		},
	)
}

func TestValueRoundTrip(t *testing.T) {
	cases := []struct {
		value uint64
		bits  int
	}{
		{0, 1},
		{1, 1},
		{5, 3},
		{255, 8},
		{12345, 16},
		{1<<40 - 1, 40},
	}
	for _, c := range cases {
		writeThenRead(t,
			func(bb *Buffer) {
				if n, err := bb.WriteValue(c.value, c.bits); err != nil || n != c.bits {
					t.Fatalf("WriteValue(%d,%d) = %d, %v", c.value, c.bits, n, err)
				}
			},
			func(bb *Buffer) {
				got, n, err := bb.ReadValue(c.bits)
				if err != nil || n != c.bits {
					t.Fatalf("ReadValue(%d) = %d, %d, %v", c.bits, got, n, err)
				}
				if got != c.value {
					t.Fatalf("ReadValue(%d) = %d, want %d", c.bits, got, c.value)
				}
			},
		)
	}
}

func TestMultipleValuesPackTogether(t *testing.T) {
	var dst bytes.Buffer
	fb, _ := filebuffer.New(filebuffer.Writing, nil, &dst, 16)
	bb := New(fb)
	values := []struct {
		v    uint64
		bits int
	}{{3, 2}, {0, 1}, {200, 8}, {1, 1}}
	for _, x := range values {
		if _, err := bb.WriteValue(x.v, x.bits); err != nil {
			t.Fatalf("WriteValue: %v", err)
		}
	}
	if err := bb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rfb, _ := filebuffer.New(filebuffer.Reading, bytes.NewReader(dst.Bytes()), nil, 16)
	rbb := New(rfb)
	for _, x := range values {
		got, n, err := rbb.ReadValue(x.bits)
		if err != nil || n != x.bits || got != x.v {
			t.Fatalf("ReadValue(%d) = %d,%d,%v; want %d", x.bits, got, n, err, x.v)
		}
	}
}

// TestModeFlipPreservesCarryoverBits writes a fractional byte, flips the
// buffer straight to reading without an intervening flush/close, and
// checks the left-over bits are recoverable via the carryover register
// instead of being silently dropped.
func TestModeFlipPreservesCarryoverBits(t *testing.T) {
	var dst bytes.Buffer
	fb, _ := filebuffer.New(filebuffer.Writing, nil, &dst, 16)
	bb := New(fb)
	if _, err := bb.WriteValue(0b101, 3); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}

	if err := bb.SetMode(filebuffer.Reading); err != nil {
		t.Fatalf("SetMode(Reading): %v", err)
	}

	got, n, err := bb.ReadValue(3)
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if n != 3 || got != 0b101 {
		t.Fatalf("ReadValue() = %d (%d bits), want 0b101 (3 bits)", got, n)
	}
}

func TestAtEndReportsExhaustion(t *testing.T) {
	var dst bytes.Buffer
	fb, _ := filebuffer.New(filebuffer.Writing, nil, &dst, 16)
	bb := New(fb)
	bb.WriteValue(42, 8)
	bb.Close()

	rfb, _ := filebuffer.New(filebuffer.Reading, bytes.NewReader(dst.Bytes()), nil, 16)
	rbb := New(rfb)
	atEnd, err := rbb.AtEnd()
	if err != nil {
		t.Fatalf("AtEnd: %v", err)
	}
	if atEnd {
		t.Fatalf("AtEnd() = true before consuming the byte")
	}
	rbb.ReadValue(8)
	atEnd, err = rbb.AtEnd()
	if err != nil {
		t.Fatalf("AtEnd: %v", err)
	}
	if !atEnd {
		t.Fatalf("AtEnd() = false after consuming the only byte")
	}
}

package stage

import (
	"bytes"
	"math"
	"testing"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/filebuffer"
)

// runStage feeds payload (raw bytes) through fn via fresh in/out bit
// buffers and returns the raw bytes the stage produced.
func runStage(t *testing.T, fn Func, opts *Options, payload []byte) []byte {
	t.Helper()
	inFB, err := filebuffer.New(filebuffer.Reading, bytes.NewReader(payload), nil, 64)
	if err != nil {
		t.Fatalf("filebuffer.New(in): %v", err)
	}
	in := bitbuffer.New(inFB)

	var dst bytes.Buffer
	outFB, err := filebuffer.New(filebuffer.Writing, nil, &dst, 64)
	if err != nil {
		t.Fatalf("filebuffer.New(out): %v", err)
	}
	out := bitbuffer.New(outFB)

	if err := fn(in, out, opts); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return dst.Bytes()
}

func float32Bytes(v float32) []byte {
	var b [4]byte
	putLeUint32(b[:], math.Float32bits(v))
	return b[:]
}

// TestFloat32WireFormatIsLittleEndian pins the wire layout to a known
// vector instead of a self-consistent round trip: 1.0 (0x3F800000) must
// appear on the wire least-significant-byte first.
func TestFloat32WireFormatIsLittleEndian(t *testing.T) {
	got := float32Bytes(1.0)
	want := []byte{0x00, 0x00, 0x80, 0x3F}
	if !bytes.Equal(got, want) {
		t.Fatalf("float32Bytes(1.0) = % X, want % X", got, want)
	}
	if v := math.Float32frombits(leUint32(want)); v != 1.0 {
		t.Fatalf("leUint32(% X) decoded to %v, want 1.0", want, v)
	}
}

func TestCopyStagePassesThroughBytes(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockSizeBits = 8
	got := runStage(t, Copy, &opts, []byte("abcdef"))
	if string(got) != "abcdef" {
		t.Fatalf("Copy() = %q, want \"abcdef\"", got)
	}
}

func TestDifferentialRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.ValueSizeBits = 8
	payload := []byte{10, 12, 9, 9, 0, 255}

	encoded := runStage(t, EncodeDifferential, &opts, payload)
	decoded := runStage(t, DecodeDifferential, &opts, encoded)
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("DecodeDifferential(EncodeDifferential(x)) = %v, want %v", decoded, payload)
	}
}

func TestDifferentialRejectsOverflow(t *testing.T) {
	opts := DefaultOptions()
	opts.ValueSizeBits = 4 // range [-8,7]
	payload := []byte{0x78} // nibbles 0111 (7), 1000 (-8): diff -15 overflows [-8,7]

	inFB, _ := filebuffer.New(filebuffer.Reading, bytes.NewReader(payload), nil, 64)
	in := bitbuffer.New(inFB)
	var dst bytes.Buffer
	outFB, _ := filebuffer.New(filebuffer.Writing, nil, &dst, 64)
	out := bitbuffer.New(outFB)

	if err := EncodeDifferential(in, out, &opts); err == nil {
		t.Fatalf("expected an out-of-range error encoding a too-large jump")
	}
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.ValueSizeBits = 16
	opts.NormalizationFactor = 100

	var payload []byte
	for _, v := range []float32{1.23, -4.56, 0} {
		payload = append(payload, float32Bytes(v)...)
	}

	normalized := runStage(t, Normalize, &opts, payload)
	denormalized := runStage(t, Denormalize, &opts, normalized)

	if len(denormalized) != len(payload) {
		t.Fatalf("denormalized length = %d, want %d", len(denormalized), len(payload))
	}
	for i := 0; i < len(payload); i += 4 {
		got := math.Float32frombits(leUint32(denormalized[i : i+4]))
		want := math.Float32frombits(leUint32(payload[i : i+4]))
		if diff := float64(got - want); diff > 0.02 || diff < -0.02 {
			t.Fatalf("value %d: got %v, want ~%v", i/4, got, want)
		}
	}
}

func TestAggregateSumsGroups(t *testing.T) {
	opts := DefaultOptions()
	opts.NumValues = 2
	var payload []byte
	for _, v := range []float32{1, 2, 3, 4, 5} {
		payload = append(payload, float32Bytes(v)...)
	}
	got := runStage(t, Aggregate, &opts, payload)
	var sums []float32
	for i := 0; i < len(got); i += 4 {
		sums = append(sums, math.Float32frombits(leUint32(got[i:i+4])))
	}
	want := []float32{3, 7, 5} // (1+2), (3+4), (5) — last group runs out early
	if len(sums) != len(want) {
		t.Fatalf("got %v sums, want %v", sums, want)
	}
	for i := range want {
		if sums[i] != want[i] {
			t.Fatalf("sums[%d] = %v, want %v", i, sums[i], want[i])
		}
	}
}

func TestWriteCSVThenReadCSVRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Column = 2
	opts.SeparatorChar = ','
	opts.NumDecimalPlaces = 2

	var payload []byte
	for _, v := range []float32{1.5, -2.25} {
		payload = append(payload, float32Bytes(v)...)
	}

	csvText := runStage(t, WriteCSV, &opts, payload)
	if string(csvText) != ",1.50\n,-2.25\n" {
		t.Fatalf("WriteCSV() = %q", csvText)
	}

	roundTripped := runStage(t, ReadCSV, &opts, csvText)
	if len(roundTripped) != len(payload) {
		t.Fatalf("ReadCSV() length = %d, want %d", len(roundTripped), len(payload))
	}
	for i := 0; i < len(payload); i += 4 {
		got := math.Float32frombits(leUint32(roundTripped[i : i+4]))
		want := math.Float32frombits(leUint32(payload[i : i+4]))
		if got != want {
			t.Fatalf("value %d: got %v, want %v", i/4, got, want)
		}
	}
}

func TestFindOptionAndStage(t *testing.T) {
	if _, ok := FindOption("valuesize"); !ok {
		t.Fatalf("expected to find option \"valuesize\"")
	}
	if _, ok := FindOption("nonexistent"); ok {
		t.Fatalf("did not expect to find option \"nonexistent\"")
	}
	e, ok := Find("bac")
	if !ok {
		t.Fatalf("expected to find stage \"bac\"")
	}
	if !e.SupportsOption("adaptive") {
		t.Fatalf("expected bac to support \"adaptive\"")
	}
	if e.SupportsOption("column") {
		t.Fatalf("did not expect bac to support \"column\"")
	}
}

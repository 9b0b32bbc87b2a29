package pipeline

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/stage"
)

func float32Bytes(v float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return b[:]
}

func TestRunSingleStageRoundTrip(t *testing.T) {
	opts := stage.DefaultOptions()
	opts.BlockSizeBits = 8
	payload := []byte("hello, pipeline")

	var encoded bytes.Buffer
	if err := Run(bytes.NewReader(payload), &encoded, []Step{
		{Name: "copy", Encode: true, Options: &opts},
	}); err != nil {
		t.Fatalf("Run(encode): %v", err)
	}

	var decoded bytes.Buffer
	if err := Run(bytes.NewReader(encoded.Bytes()), &decoded, []Step{
		{Name: "copy", Encode: false, Options: &opts},
	}); err != nil {
		t.Fatalf("Run(decode): %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), payload) {
		t.Fatalf("decoded = %q, want %q", decoded.Bytes(), payload)
	}
}

func TestRunMultiStageRoundTrip(t *testing.T) {
	diffOpts := stage.DefaultOptions()
	diffOpts.ValueSizeBits = 8
	segOpts := stage.DefaultOptions()
	segOpts.ValueSizeBits = 8

	payload := []byte{10, 12, 9, 9, 0, 255, 250, 1}

	var encoded bytes.Buffer
	encodeSteps := []Step{
		{Name: "diff", Encode: true, Options: &diffOpts},
		{Name: "seg", Encode: true, Options: &segOpts},
	}
	if err := Run(bytes.NewReader(payload), &encoded, encodeSteps); err != nil {
		t.Fatalf("Run(encode): %v", err)
	}

	var decoded bytes.Buffer
	decodeSteps := []Step{
		{Name: "seg", Encode: false, Options: &segOpts},
		{Name: "diff", Encode: false, Options: &diffOpts},
	}
	if err := Run(bytes.NewReader(encoded.Bytes()), &decoded, decodeSteps); err != nil {
		t.Fatalf("Run(decode): %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), payload) {
		t.Fatalf("decoded = %v, want %v", decoded.Bytes(), payload)
	}
}

func TestRunThreeStagePipeline(t *testing.T) {
	normOpts := stage.DefaultOptions()
	normOpts.ValueSizeBits = 16
	normOpts.NormalizationFactor = 100
	diffOpts := stage.DefaultOptions()
	diffOpts.ValueSizeBits = 16
	bacOpts := stage.DefaultOptions()
	bacOpts.Adaptive = true

	var payload []byte
	for _, v := range []float32{1.23, 1.25, 1.20, 1.19} {
		payload = append(payload, float32Bytes(v)...)
	}

	encodeSteps := []Step{
		{Name: "normalize", Encode: true, Options: &normOpts},
		{Name: "diff", Encode: true, Options: &diffOpts},
		{Name: "bac", Encode: true, Options: &bacOpts},
	}
	var encoded bytes.Buffer
	if err := Run(bytes.NewReader(payload), &encoded, encodeSteps); err != nil {
		t.Fatalf("Run(encode): %v", err)
	}

	decodeSteps := []Step{
		{Name: "bac", Encode: false, Options: &bacOpts},
		{Name: "diff", Encode: false, Options: &diffOpts},
		{Name: "normalize", Encode: false, Options: &normOpts},
	}
	var decoded bytes.Buffer
	if err := Run(bytes.NewReader(encoded.Bytes()), &decoded, decodeSteps); err != nil {
		t.Fatalf("Run(decode): %v", err)
	}
	if len(decoded.Bytes()) != len(payload) {
		t.Fatalf("decoded length = %d, want %d", len(decoded.Bytes()), len(payload))
	}
	for i := 0; i < len(payload); i += 4 {
		got := math.Float32frombits(binary.LittleEndian.Uint32(decoded.Bytes()[i : i+4]))
		want := math.Float32frombits(binary.LittleEndian.Uint32(payload[i : i+4]))
		if diff := float64(got - want); diff > 0.02 || diff < -0.02 {
			t.Fatalf("value %d: got %v, want ~%v", i/4, got, want)
		}
	}
}

func TestRunRejectsUnknownStage(t *testing.T) {
	opts := stage.DefaultOptions()
	var out bytes.Buffer
	err := Run(bytes.NewReader(nil), &out, []Step{{Name: "nonexistent", Encode: true, Options: &opts}})
	if err == nil {
		t.Fatalf("expected an error for an unknown stage")
	}
}

func TestRunRejectsMissingDecoder(t *testing.T) {
	opts := stage.DefaultOptions()
	var out bytes.Buffer
	err := Run(bytes.NewReader(nil), &out, []Step{{Name: "aggregate", Encode: false, Options: &opts}})
	if err == nil {
		t.Fatalf("expected an error requesting aggregate's nonexistent decoder")
	}
}

func TestRunRejectsEmptyPipeline(t *testing.T) {
	var out bytes.Buffer
	if err := Run(bytes.NewReader(nil), &out, nil); err == nil {
		t.Fatalf("expected an error for an empty pipeline")
	}
}

// TestRunFlushesOutputOnStageFailure: a mid-stream failure must still tear
// down (flush and zero-pad) whatever partial output had already reached
// the residual bit register, not just on the success path.
func TestRunFlushesOutputOnStageFailure(t *testing.T) {
	opts := stage.DefaultOptions()
	opts.ValueSizeBits = 4 // range [-8,7]
	payload := []byte{0x78} // nibbles 0111 (7), 1000 (-8): diff -15 overflows [-8,7]

	var out bytes.Buffer
	err := Run(bytes.NewReader(payload), &out, []Step{
		{Name: "diff", Encode: true, Options: &opts},
	})
	if err == nil {
		t.Fatalf("expected an error encoding a too-large jump")
	}
	want := []byte{0x70} // the first value's diff (7), zero-padded to a full byte
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("output after failure = % X, want % X (partial output should still be flushed)", out.Bytes(), want)
	}
}

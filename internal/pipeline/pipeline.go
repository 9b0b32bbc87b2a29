// Package pipeline drives one or more registered stages in sequence over
// an input/output stream, the way cli.c's main loop and buffer-switching
// logic does: read straight from the input file, write straight to the
// output file, and pass everything in between through in-memory bit
// buffers.
package pipeline

import (
	"io"

	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/filebuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/stage"
)

const (
	readBufferSize  = 1024 // matches READ_BUFFER_SIZE
	writeBufferSize = 1024 // matches WRITE_BUFFER_SIZE
	tempBufferSize  = 2048 // matches TEMP_BUFFER_SIZE
)

// Step names one registered stage, which direction to run it in, and the
// options to run it with.
type Step struct {
	Name    string
	Encode  bool
	Options *stage.Options
}

// resolve looks up Step's stage entry and the function for the requested
// direction.
func (s Step) resolve() (*stage.Entry, stage.Func, error) {
	entry, ok := stage.Find(s.Name)
	if !ok {
		return nil, nil, errs.New(errs.InvalidFormat, "unknown stage %q", s.Name)
	}
	fn := entry.Decoder
	direction := "decoder"
	if s.Encode {
		fn = entry.Encoder
		direction = "encoder"
	}
	if fn == nil {
		return nil, nil, errs.New(errs.InvalidFormat, "stage %q has no %s", s.Name, direction)
	}
	return entry, fn, nil
}

// Run executes steps in order, reading from in and writing to out. With
// more than one step, every intermediate result is written into a freshly
// allocated growable in-memory bit buffer, which is then flipped to
// reading for the next stage; buffers are not reused between stages.
// Only the first stage reads from in and only the last writes to out.
func Run(in io.Reader, out io.Writer, steps []Step) (err error) {
	if len(steps) == 0 {
		return errs.New(errs.InvalidFormat, "pipeline requires at least one stage")
	}

	inFB, err := filebuffer.New(filebuffer.Reading, in, nil, readBufferSize)
	if err != nil {
		return err
	}
	outFB, err := filebuffer.New(filebuffer.Writing, nil, out, writeBufferSize)
	if err != nil {
		return err
	}
	inBit := bitbuffer.New(inFB)
	outBit := bitbuffer.New(outFB)

	// liveTemp tracks whichever in-memory temp buffer is currently open
	// for writing, so teardown can close it alongside outBit. A temp
	// buffer holds no external resource, so closing it is only about
	// running the same single teardown path uniformly, not about
	// releasing anything that would otherwise leak.
	var liveTemp *bitbuffer.Buffer

	// Teardown runs exactly once, on every exit path (success or
	// failure), mirroring cli.c's main(): UninitBuffers(&buffer_env)
	// always runs, even down the stage-failure branch.
	defer func() {
		if liveTemp != nil {
			if closeErr := liveTemp.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
		if closeErr := outBit.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var tempReadBit *bitbuffer.Buffer

	for i, step := range steps {
		_, fn, stepErr := step.resolve()
		if stepErr != nil {
			return stepErr
		}

		readBit := inBit
		if i > 0 {
			readBit = tempReadBit
		}

		last := i == len(steps)-1
		var writeBit *bitbuffer.Buffer
		if last {
			writeBit = outBit
		} else {
			tempWriteFB, tempErr := filebuffer.NewMemory(filebuffer.Writing, tempBufferSize)
			if tempErr != nil {
				return tempErr
			}
			writeBit = bitbuffer.New(tempWriteFB)
			liveTemp = writeBit
		}

		if stageErr := fn(readBit, writeBit, step.Options); stageErr != nil {
			return errs.Wrap(errs.LibraryCall, stageErr, "stage %d/%d (%s)", i+1, len(steps), step.Name)
		}

		if !last {
			if switchErr := writeBit.SetMode(filebuffer.Reading); switchErr != nil {
				return errs.Wrap(errs.LibraryCall, switchErr, "switching temporary buffer to reading after stage %d/%d (%s)", i+1, len(steps), step.Name)
			}
			tempReadBit = writeBit
			liveTemp = nil
		}
	}
	return nil
}

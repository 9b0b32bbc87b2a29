package stage

import (
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/bitbuffer"
	"github.com/CenterForSecureEnergyInformatics/data-compressor/internal/errs"
)

// Adaptive binary arithmetic coding, following the range-coder listings in
// Witten, Neal & Cleary, "Arithmetic Coding for Data Compression" (CACM
// 30(6), 1987). All coder and model state lives in per-call structs
// (bacModel, bacEncoder, bacDecoder) rather than package globals, so
// concurrent encode/decode calls never interfere with each other.
const (
	bacRangeBits = 16
	bacMaxRange  = (uint32(1) << bacRangeBits) - 1
	bacQuarter   = bacMaxRange/4 + 1
	bacHalf      = 2 * bacQuarter
	bacThreeQtr  = 3 * bacQuarter
	bacMaxFreq   = bacMaxRange >> 2

	bacNumSymbols      = 2
	bacEOFSymbolIndex  = bacNumSymbols + 1 // 3
	bacTotalSymbols    = bacNumSymbols + 1 // 3: indices 0..3 are in use
	bacModelArraySize  = bacTotalSymbols + 1
)

// bacModel is the adaptive frequency table shared by encoder and decoder.
type bacModel struct {
	symbolToIndex            [bacNumSymbols]int
	indexToSymbol            [bacModelArraySize]int
	symbolFrequencies        [bacModelArraySize]uint32
	cumulativeSymbolFrequencies [bacModelArraySize]uint32
}

func newBACModel() *bacModel {
	m := &bacModel{}
	for i := 0; i < bacNumSymbols; i++ {
		m.symbolToIndex[i] = i + 1
		m.indexToSymbol[i+1] = i
	}
	for i := 0; i <= bacTotalSymbols; i++ {
		if i == 0 {
			m.symbolFrequencies[i] = 0
		} else {
			m.symbolFrequencies[i] = 1
		}
		m.cumulativeSymbolFrequencies[i] = uint32(bacTotalSymbols - i)
	}
	return m
}

func (m *bacModel) update(lastSymbolIndex int) {
	if m.cumulativeSymbolFrequencies[0] == bacMaxFreq {
		var cumulative uint32
		for i := bacModelArraySize - 1; i >= 0; i-- {
			m.symbolFrequencies[i] = (m.symbolFrequencies[i] + 1) / 2
			m.cumulativeSymbolFrequencies[i] = cumulative
			cumulative += m.symbolFrequencies[i]
		}
	}
	i := lastSymbolIndex
	for m.symbolFrequencies[i] == m.symbolFrequencies[i-1] {
		i--
	}
	if i < lastSymbolIndex {
		currentSymbol := m.indexToSymbol[i]
		lastSymbol := m.indexToSymbol[lastSymbolIndex]
		m.indexToSymbol[i] = lastSymbol
		m.indexToSymbol[lastSymbolIndex] = currentSymbol
		m.symbolToIndex[currentSymbol] = lastSymbolIndex
		m.symbolToIndex[lastSymbol] = i
	}
	m.symbolFrequencies[i]++
	for i > 0 {
		i--
		m.cumulativeSymbolFrequencies[i]++
	}
}

type bacEncoder struct {
	startRange, endRange uint32
	nextBits             int
}

func newBACEncoder() *bacEncoder {
	return &bacEncoder{startRange: 0, endRange: bacMaxRange}
}

func (e *bacEncoder) outputNextBits(currentBit int, out *bitbuffer.Buffer) error {
	var bit uint64
	if currentBit != 0 {
		bit = 1
	}
	if err := checkedWriteValue(out, bit, 1); err != nil {
		return err
	}
	inverse := uint64(1) - bit
	for e.nextBits > 0 {
		bitsToWrite := e.nextBits
		if bitsToWrite > 64 {
			bitsToWrite = 64
		}
		var pattern uint64
		if inverse != 0 {
			pattern = ^uint64(0)
		}
		if err := checkedWriteValue(out, pattern, bitsToWrite); err != nil {
			return err
		}
		e.nextBits -= bitsToWrite
	}
	return nil
}

func (e *bacEncoder) encodeSymbol(model *bacModel, symbolIndex int, out *bitbuffer.Buffer) error {
	total := model.cumulativeSymbolFrequencies[0]
	rangeWidth := uint64(e.endRange-e.startRange) + 1
	e.endRange = e.startRange + uint32((rangeWidth*uint64(model.cumulativeSymbolFrequencies[symbolIndex-1]))/uint64(total)) - 1
	e.startRange += uint32((rangeWidth * uint64(model.cumulativeSymbolFrequencies[symbolIndex])) / uint64(total))
	for {
		switch {
		case e.endRange < bacHalf:
			if err := e.outputNextBits(0, out); err != nil {
				return err
			}
		case e.startRange >= bacHalf:
			if err := e.outputNextBits(1, out); err != nil {
				return err
			}
			e.startRange -= bacHalf
			e.endRange -= bacHalf
		case e.startRange >= bacQuarter && e.endRange < bacThreeQtr:
			e.nextBits++
			e.startRange -= bacQuarter
			e.endRange -= bacQuarter
		default:
			return nil
		}
		e.startRange *= 2
		e.endRange = 2*e.endRange + 1
	}
}

func (e *bacEncoder) finish(out *bitbuffer.Buffer) error {
	e.nextBits++
	bit := 1
	if e.startRange < bacQuarter {
		bit = 0
	}
	return e.outputNextBits(bit, out)
}

// EncodeBAC adaptively range-codes the bit stream read from in, one bit
// at a time, terminating with a reserved EOF symbol.
func EncodeBAC(in, out *bitbuffer.Buffer, opts *Options) error {
	model := newBACModel()
	enc := newBACEncoder()
	for {
		atEnd, err := in.AtEnd()
		if err != nil {
			return err
		}
		if atEnd {
			break
		}
		bit, err := checkedReadValue(in, 1)
		if err != nil {
			return err
		}
		symbolIndex := model.symbolToIndex[bit]
		if err := enc.encodeSymbol(model, symbolIndex, out); err != nil {
			return err
		}
		if opts.Adaptive {
			model.update(symbolIndex)
		}
	}
	if err := enc.encodeSymbol(model, bacEOFSymbolIndex, out); err != nil {
		return err
	}
	return enc.finish(out)
}

type bacDecoder struct {
	startRange, endRange uint32
	currentValue         uint32
	afterEOFBits         int
}

// readBitSpecial reads one bit, tolerating up to afterEOFBits bits of
// "garbage" past end of stream so the decoder's read-ahead window can
// fully drain without erroring on the coder's trailing bits.
func (d *bacDecoder) readBitSpecial(in *bitbuffer.Buffer) (uint64, error) {
	atEnd, err := in.AtEnd()
	if err != nil {
		return 0, err
	}
	if atEnd {
		if d.afterEOFBits > 0 {
			d.afterEOFBits--
			return 0, nil
		}
		return 0, errs.New(errs.InvalidFormat, "read too many bits past end of BAC stream")
	}
	return checkedReadValue(in, 1)
}

func newBACDecoder(in *bitbuffer.Buffer) (*bacDecoder, error) {
	d := &bacDecoder{afterEOFBits: bacRangeBits - 2}
	for i := 0; i < bacRangeBits; i++ {
		bit, err := d.readBitSpecial(in)
		if err != nil {
			return nil, err
		}
		d.currentValue = 2*d.currentValue + uint32(bit)
	}
	d.startRange = 0
	d.endRange = bacMaxRange
	return d, nil
}

func (d *bacDecoder) decodeSymbol(model *bacModel, in *bitbuffer.Buffer) (int, error) {
	total := model.cumulativeSymbolFrequencies[0]
	rangeWidth := uint64(d.endRange-d.startRange) + 1
	currentCumFreq := uint32(((uint64(d.currentValue-d.startRange)+1)*uint64(total) - 1) / rangeWidth)

	symbolIndex := 1
	for model.cumulativeSymbolFrequencies[symbolIndex] > currentCumFreq {
		symbolIndex++
	}
	d.endRange = d.startRange + uint32((rangeWidth*uint64(model.cumulativeSymbolFrequencies[symbolIndex-1]))/uint64(total)) - 1
	d.startRange += uint32((rangeWidth * uint64(model.cumulativeSymbolFrequencies[symbolIndex])) / uint64(total))

	for {
		switch {
		case d.endRange < bacHalf:
		case d.startRange >= bacHalf:
			d.currentValue -= bacHalf
			d.startRange -= bacHalf
			d.endRange -= bacHalf
		case d.startRange >= bacQuarter && d.endRange < bacThreeQtr:
			d.currentValue -= bacQuarter
			d.startRange -= bacQuarter
			d.endRange -= bacQuarter
		default:
			return symbolIndex, nil
		}
		d.startRange *= 2
		d.endRange = 2*d.endRange + 1
		bit, err := d.readBitSpecial(in)
		if err != nil {
			return 0, err
		}
		d.currentValue = 2*d.currentValue + uint32(bit)
	}
}

// DecodeBAC reverses EncodeBAC, stopping at the reserved EOF symbol.
func DecodeBAC(in, out *bitbuffer.Buffer, opts *Options) error {
	model := newBACModel()
	dec, err := newBACDecoder(in)
	if err != nil {
		return err
	}
	for {
		symbolIndex, err := dec.decodeSymbol(model, in)
		if err != nil {
			return err
		}
		if symbolIndex == bacEOFSymbolIndex {
			break
		}
		bit := uint64(model.indexToSymbol[symbolIndex])
		if err := checkedWriteValue(out, bit, 1); err != nil {
			return err
		}
		if opts.Adaptive {
			model.update(symbolIndex)
		}
	}
	return nil
}
